package aqua

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSchedulerStopped is returned by Spawn and Start after Stop.
var ErrSchedulerStopped = errors.New("aqua: scheduler is stopped")

const (
	// idleParkTimeout bounds how long an idle worker sleeps so it stays
	// responsive to shutdown.
	idleParkTimeout = 10 * time.Millisecond
	// waitAllBackoff is the poll interval of the WaitAll barrier.
	waitAllBackoff = time.Millisecond
)

// Scheduler multiplexes cooperative fibers over a fixed pool of worker
// threads (M:N). Ready fibers are dispatched strictly FIFO, with no
// priorities and no preemption; work lands on whichever worker dequeues
// next. A fiber is in exactly one of the ready queue, the running set or the
// waiting set at any instant, or in none once terminal.
type Scheduler struct {
	mu      sync.Mutex
	readyq  []*Fiber
	running map[uint64]*Fiber
	waiting map[uint64]*Fiber

	workers int
	wakeCh  chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lifeMu  sync.Mutex
	started bool
	stopped bool

	nextFiberID atomic.Uint64
	spawned     atomic.Int64
	finished    atomic.Int64
	errored     atomic.Int64

	logger *Logger
}

// SchedulerStats is a point-in-time snapshot of scheduler activity.
type SchedulerStats struct {
	Ready    int   // fibers queued for dispatch
	Running  int   // fibers currently on a worker
	Waiting  int   // fibers suspended on a channel or timer
	Spawned  int64 // total fibers ever spawned
	Finished int64 // fibers that completed normally
	Errored  int64 // fibers that failed
	Workers  int   // worker count (fixed at creation)
}

// NewScheduler creates a scheduler with the given number of worker threads.
// workers <= 0 selects the available hardware parallelism. Workers do not
// run until Start.
func NewScheduler(workers int, logger *Logger) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = NewLogger(false)
	}
	return &Scheduler{
		running: make(map[uint64]*Fiber),
		waiting: make(map[uint64]*Fiber),
		workers: workers,
		wakeCh:  make(chan struct{}, workers),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// Start launches the worker pool. Idempotent while running; returns
// ErrSchedulerStopped once Stop has been called.
func (s *Scheduler) Start() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker(i)
	}
	s.logger.DebugCat(CatSched, "started %d workers", s.workers)
	return nil
}

// Stop shuts the worker pool down and joins every worker before returning.
// Safe to call multiple times. Fibers still suspended at that point are
// abandoned in place; they are never forcibly terminated.
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	if s.stopped {
		s.lifeMu.Unlock()
		s.wg.Wait()
		return
	}
	s.stopped = true
	started := s.started
	s.lifeMu.Unlock()

	close(s.stopCh)
	if started {
		s.wg.Wait()
	}
	s.logger.DebugCat(CatSched, "stopped")
}

// IsRunning reports whether the pool has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.started && !s.stopped
}

// Spawn wraps fn in a new fiber, enqueues it ready, and wakes one idle
// worker. Fails synchronously once the scheduler is stopped.
func (s *Scheduler) Spawn(fn FiberFunc) (*Fiber, error) {
	if fn == nil {
		return nil, errors.New("aqua: Spawn requires a non-nil function")
	}
	s.lifeMu.Lock()
	if s.stopped {
		s.lifeMu.Unlock()
		return nil, ErrSchedulerStopped
	}
	s.lifeMu.Unlock()

	f := newFiber(s.nextFiberID.Add(1), fn, s)

	s.mu.Lock()
	s.readyq = append(s.readyq, f)
	s.mu.Unlock()

	s.spawned.Add(1)
	s.signal()
	s.logger.DebugCat(CatSched, "spawned fiber %d", f.id)
	return f, nil
}

// signal nudges one idle worker without blocking.
func (s *Scheduler) signal() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// dequeue pops the oldest ready fiber and moves it to the running set.
func (s *Scheduler) dequeue() *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readyq) == 0 {
		return nil
	}
	f := s.readyq[0]
	s.readyq = s.readyq[1:]
	f.state = FiberRunning
	s.running[f.id] = f
	return f
}

// worker is the dispatch loop run by each pool thread: dequeue a ready
// fiber, drive it to its next suspension point or completion, loop. With no
// ready work it parks on the wake signal, bounded so shutdown stays prompt.
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		f := s.dequeue()
		if f == nil {
			select {
			case <-s.wakeCh:
			case <-s.stopCh:
				return
			case <-time.After(idleParkTimeout):
			}
			continue
		}
		s.runFiber(f)
	}
}

// runFiber drives one run slice of f: resume it, then block until the fiber
// leaves FiberRunning (suspension, completion or failure). The fiber side of
// the handshake records the resulting state transition.
func (s *Scheduler) runFiber(f *Fiber) {
	if !f.started {
		f.started = true
		go f.main()
	}
	f.resume <- struct{}{}
	<-f.yield
}

// WaitAll blocks until the ready queue, running set and waiting set are all
// simultaneously empty (quiescence). Implemented as a poll/backoff loop; an
// accepted latency/CPU tradeoff that keeps the barrier free of cross-lock
// signalling.
func (s *Scheduler) WaitAll() {
	for {
		s.mu.Lock()
		quiet := len(s.readyq) == 0 && len(s.running) == 0 && len(s.waiting) == 0
		s.mu.Unlock()
		if quiet {
			return
		}
		time.Sleep(waitAllBackoff)
	}
}

// ActiveFibers returns the number of fibers currently on a worker.
func (s *Scheduler) ActiveFibers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// TotalFibers returns the number of live (non-terminal) fibers.
func (s *Scheduler) TotalFibers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readyq) + len(s.running) + len(s.waiting)
}

// Stats returns a snapshot of scheduler counters. Safe to call concurrently.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	ready, running, waiting := len(s.readyq), len(s.running), len(s.waiting)
	s.mu.Unlock()
	return SchedulerStats{
		Ready:    ready,
		Running:  running,
		Waiting:  waiting,
		Spawned:  s.spawned.Load(),
		Finished: s.finished.Load(),
		Errored:  s.errored.Load(),
		Workers:  s.workers,
	}
}

// Roots implements the collector's root source for fiber local storage: the
// locals of every live fiber, whichever set it currently occupies.
func (s *Scheduler) Roots() []Value {
	s.mu.Lock()
	fibers := make([]*Fiber, 0, len(s.readyq)+len(s.running)+len(s.waiting))
	fibers = append(fibers, s.readyq...)
	for _, f := range s.running {
		fibers = append(fibers, f)
	}
	for _, f := range s.waiting {
		fibers = append(fibers, f)
	}
	s.mu.Unlock()

	var roots []Value
	for _, f := range fibers {
		roots = append(roots, f.localsSnapshot()...)
	}
	return roots
}
