package aqua

import (
	"fmt"
	"sync"
	"time"
)

// FiberState is the lifecycle state of a fiber.
type FiberState int

const (
	FiberReady    FiberState = iota // queued, waiting for a worker
	FiberRunning                    // executing on a worker
	FiberWaiting                    // suspended on a channel or timer
	FiberFinished                   // work returned normally; terminal
	FiberErrored                    // work failed; terminal
)

func (s FiberState) String() string {
	switch s {
	case FiberReady:
		return "ready"
	case FiberRunning:
		return "running"
	case FiberWaiting:
		return "waiting"
	case FiberFinished:
		return "finished"
	case FiberErrored:
		return "errored"
	}
	return "unknown"
}

// FiberFunc is the unit of work a fiber executes. A non-nil error (or a
// panic, which is recovered) transitions the fiber to FiberErrored without
// affecting the worker thread or other fibers.
type FiberFunc func(ctx *FiberContext) error

// Fiber is a cooperatively scheduled unit of execution. Each fiber owns a
// goroutine as its execution context; when the fiber suspends, that
// goroutine parks and the worker thread that was driving it returns to the
// scheduler. Suspension is voluntary: a fiber only leaves FiberRunning at a
// yield point (blocking channel op, sleep, or explicit yield).
//
// A Fiber handle may be retained externally for inspection; state
// transitions are driven exclusively by the scheduler.
type Fiber struct {
	id    uint64
	fn    FiberFunc
	sched *Scheduler

	// state and pendingWake are guarded by sched.mu, together with the
	// scheduler's ready/running/waiting sets, so a fiber is always in
	// exactly one set consistent with its state.
	state       FiberState
	pendingWake bool
	started     bool

	// resume is buffered so a dispatching worker never blocks handing the
	// fiber its turn; yield is unbuffered so the worker regains control
	// only when the fiber has actually left FiberRunning.
	resume chan struct{}
	yield  chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	locals map[string]Value
	err    error
}

func newFiber(id uint64, fn FiberFunc, sched *Scheduler) *Fiber {
	return &Fiber{
		id:     id,
		fn:     fn,
		sched:  sched,
		state:  FiberReady,
		resume: make(chan struct{}, 1),
		yield:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ID returns the fiber's monotonically assigned identity.
func (f *Fiber) ID() uint64 {
	return f.id
}

// State returns the fiber's current lifecycle state.
func (f *Fiber) State() FiberState {
	f.sched.mu.Lock()
	defer f.sched.mu.Unlock()
	return f.state
}

// IsFinished reports whether the fiber reached a terminal state.
func (f *Fiber) IsFinished() bool {
	s := f.State()
	return s == FiberFinished || s == FiberErrored
}

// Err returns the failure that moved the fiber to FiberErrored, or nil.
func (f *Fiber) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done returns a channel closed when the fiber reaches a terminal state.
func (f *Fiber) Done() <-chan struct{} {
	return f.done
}

// Wait blocks the calling goroutine until the fiber terminates and returns
// its error, if any.
func (f *Fiber) Wait() error {
	<-f.done
	return f.Err()
}

// setLocal and getLocal back the fiber's private local-storage table, which
// survives suspension/resumption for the life of the fiber.
func (f *Fiber) setLocal(key string, v Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locals == nil {
		f.locals = make(map[string]Value)
	}
	f.locals[key] = v
}

func (f *Fiber) getLocal(key string) (Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.locals[key]
	return v, ok
}

// localsSnapshot copies the current local values; the collector marks from
// these as roots.
func (f *Fiber) localsSnapshot() []Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.locals) == 0 {
		return nil
	}
	vals := make([]Value, 0, len(f.locals))
	for _, v := range f.locals {
		vals = append(vals, v)
	}
	return vals
}

// park suspends the calling fiber: it hands the worker back to the
// scheduler, moves Running -> Waiting, and blocks until a wake routes it
// through the ready queue again. The worker is released first so the fiber
// is never visible in the ready queue while a previous run slice is still
// being handed off. A wake that raced in while the fiber was still running
// (pendingWake) turns the park into an immediate requeue; the woken
// operation re-checks its condition either way.
func (f *Fiber) park() {
	s := f.sched
	f.yield <- struct{}{} // release the worker

	s.mu.Lock()
	if f.pendingWake {
		f.pendingWake = false
		f.state = FiberReady
		delete(s.running, f.id)
		s.readyq = append(s.readyq, f)
		s.mu.Unlock()
		s.signal()
	} else {
		f.state = FiberWaiting
		delete(s.running, f.id)
		s.waiting[f.id] = f
		s.mu.Unlock()
	}

	<-f.resume // redispatched by a worker
}

// wake makes a waiting fiber ready again. A woken fiber re-enters the ready
// queue and is dispatched like any other ready fiber; Waiting -> Running is
// never direct. Waking a running fiber records a pending wake instead, which
// the next park consumes.
func (f *Fiber) wake() {
	s := f.sched
	s.mu.Lock()
	switch f.state {
	case FiberWaiting:
		f.state = FiberReady
		delete(s.waiting, f.id)
		s.readyq = append(s.readyq, f)
		s.mu.Unlock()
		s.signal()
	case FiberRunning:
		f.pendingWake = true
		s.mu.Unlock()
	default:
		s.mu.Unlock()
	}
}

// main is the fiber's execution context. It runs on the fiber's own
// goroutine, gated by the resume/yield handshake with whichever worker is
// currently driving the fiber.
func (f *Fiber) main() {
	<-f.resume

	ctx := &FiberContext{fiber: f, sched: f.sched}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fiber %d panicked: %v", f.id, r)
			}
		}()
		err = f.fn(ctx)
	}()

	s := f.sched
	s.mu.Lock()
	delete(s.running, f.id)
	if err != nil {
		f.state = FiberErrored
	} else {
		f.state = FiberFinished
	}
	s.mu.Unlock()

	if err != nil {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		s.errored.Add(1)
		s.logger.DebugCat(CatFiber, "fiber %d errored: %v", f.id, err)
	} else {
		s.finished.Add(1)
		s.logger.DebugCat(CatFiber, "fiber %d finished", f.id)
	}

	close(f.done)
	f.yield <- struct{}{} // release the worker for good
}

// FiberContext is passed to a fiber's work function. It is the fiber's view
// of the runtime: local storage, suspension primitives, and identity. It
// must only be used from within that fiber's work function.
type FiberContext struct {
	fiber *Fiber
	sched *Scheduler
}

// ID returns the running fiber's identity.
func (ctx *FiberContext) ID() uint64 {
	return ctx.fiber.id
}

// SetLocal stores a value in the fiber's private local table.
func (ctx *FiberContext) SetLocal(key string, v Value) {
	ctx.fiber.setLocal(key, v)
}

// GetLocal reads a value from the fiber's private local table.
func (ctx *FiberContext) GetLocal(key string) (Value, bool) {
	return ctx.fiber.getLocal(key)
}

// Sleep suspends the fiber for at least d. The worker is released for the
// duration; a non-positive d degrades to Yield.
func (ctx *FiberContext) Sleep(d time.Duration) {
	if d <= 0 {
		ctx.Yield()
		return
	}
	time.AfterFunc(d, ctx.fiber.wake)
	ctx.fiber.park()
}

// Yield voluntarily reschedules the fiber: it re-enters the ready queue
// behind every currently ready fiber and its worker picks up other work.
func (ctx *FiberContext) Yield() {
	f := ctx.fiber
	s := ctx.sched
	f.yield <- struct{}{} // release the worker

	s.mu.Lock()
	// Consume a raced-in wake; the requeue below already covers it.
	f.pendingWake = false
	f.state = FiberReady
	delete(s.running, f.id)
	s.readyq = append(s.readyq, f)
	s.mu.Unlock()
	s.signal()

	<-f.resume
}

// Spawn starts a new fiber from within a fiber, inheriting nothing but the
// scheduler.
func (ctx *FiberContext) Spawn(fn FiberFunc) (*Fiber, error) {
	return ctx.sched.Spawn(fn)
}
