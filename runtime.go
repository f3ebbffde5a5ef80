package aqua

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

// Rough per-object accounting used when the runtime registers its own
// channel allocations with the collector. An embedding interpreter that
// knows better registers with exact sizes instead.
const (
	channelBaseBytes = 96
	valueSlotBytes   = 48
)

// Runtime is the process facade over the execution substrate: it owns the
// scheduler, the garbage collector and the global-variable table, and is the
// sole boundary consumed by the parser/interpreter layers and the CLI.
//
// Construct isolated instances with NewRuntime; Default returns a shared
// process-wide instance for use at the outermost boundary only.
type Runtime struct {
	id       string
	injector *do.Injector

	logger    *Logger
	scheduler *Scheduler
	gc        *GarbageCollector

	globalsMu sync.RWMutex
	globals   map[string]Value

	lifeMu      sync.Mutex
	initialized bool
}

// NewRuntime composes a runtime from cfg. A nil cfg selects defaults.
func NewRuntime(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.Provide(injector, func(i *do.Injector) (*Logger, error) {
		return newLoggerFromConfig(do.MustInvoke[*Config](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (*Scheduler, error) {
		c := do.MustInvoke[*Config](i)
		return NewScheduler(c.Workers, do.MustInvoke[*Logger](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (*GarbageCollector, error) {
		c := do.MustInvoke[*Config](i)
		return NewGarbageCollector(c.GCThreshold, do.MustInvoke[*Logger](i)), nil
	})

	rt := &Runtime{
		id:        uuid.NewString(),
		injector:  injector,
		logger:    do.MustInvoke[*Logger](injector),
		scheduler: do.MustInvoke[*Scheduler](injector),
		gc:        do.MustInvoke[*GarbageCollector](injector),
		globals:   make(map[string]Value),
	}

	// Root sources for the collector: the globals table and every live
	// fiber's locals. Channel buffers are reached through the handles
	// these roots contain.
	rt.gc.AddRoots(RootsFunc(rt.globalRoots))
	rt.gc.AddRoots(RootsFunc(rt.scheduler.Roots))

	return rt, nil
}

// ID returns the runtime instance identity used for log correlation.
func (rt *Runtime) ID() string {
	return rt.id
}

// Initialize starts the worker pool. Idempotent.
func (rt *Runtime) Initialize() error {
	rt.lifeMu.Lock()
	defer rt.lifeMu.Unlock()
	if rt.initialized {
		return nil
	}
	if err := rt.scheduler.Start(); err != nil {
		return err
	}
	rt.initialized = true
	rt.logger.DebugCat(CatRuntime, "runtime %s initialized", rt.id)
	return nil
}

// Shutdown stops the worker pool, draining outstanding workers before
// returning, and clears the globals table. Idempotent.
func (rt *Runtime) Shutdown() {
	rt.lifeMu.Lock()
	if !rt.initialized {
		rt.lifeMu.Unlock()
		return
	}
	rt.initialized = false
	rt.lifeMu.Unlock()

	rt.scheduler.Stop()

	rt.globalsMu.Lock()
	rt.globals = make(map[string]Value)
	rt.globalsMu.Unlock()

	rt.logger.DebugCat(CatRuntime, "runtime %s shut down", rt.id)
}

// Scheduler exposes the runtime's scheduler.
func (rt *Runtime) Scheduler() *Scheduler {
	return rt.scheduler
}

// GC exposes the runtime's garbage collector.
func (rt *Runtime) GC() *GarbageCollector {
	return rt.gc
}

// MakeChannel creates a channel of the given capacity (0 = rendezvous) and
// registers it with the collector.
func (rt *Runtime) MakeChannel(capacity int) *Channel {
	ch := NewChannel(capacity)
	size := uint64(channelBaseBytes)
	if capacity > 0 {
		size += uint64(capacity) * valueSlotBytes
	}
	if err := rt.gc.Register(ch, size); err != nil {
		rt.logger.WarnCat(CatRuntime, "channel registration: %v", err)
	}
	return ch
}

// MakeUnboundedChannel creates a channel whose sends never suspend.
func (rt *Runtime) MakeUnboundedChannel() *Channel {
	ch := NewUnboundedChannel()
	if err := rt.gc.Register(ch, channelBaseBytes); err != nil {
		rt.logger.WarnCat(CatRuntime, "channel registration: %v", err)
	}
	return ch
}

// SpawnFiber enqueues fn as a new fiber.
func (rt *Runtime) SpawnFiber(fn FiberFunc) (*Fiber, error) {
	return rt.scheduler.Spawn(fn)
}

// WaitAll blocks until every fiber has drained; see Scheduler.WaitAll.
func (rt *Runtime) WaitAll() {
	rt.scheduler.WaitAll()
}

// SleepMS suspends the calling fiber for at least ms milliseconds. Outside
// a fiber (ctx == nil) it blocks the calling goroutine instead.
func (rt *Runtime) SleepMS(ctx *FiberContext, ms int) {
	d := time.Duration(ms) * time.Millisecond
	if ctx != nil {
		ctx.Sleep(d)
		return
	}
	time.Sleep(d)
}

// SetGlobal stores a process-wide named value. Globals live from
// Initialize to Shutdown.
func (rt *Runtime) SetGlobal(name string, v Value) {
	rt.globalsMu.Lock()
	defer rt.globalsMu.Unlock()
	rt.globals[name] = v
}

// GetGlobal reads a process-wide named value.
func (rt *Runtime) GetGlobal(name string) (Value, bool) {
	rt.globalsMu.RLock()
	defer rt.globalsMu.RUnlock()
	v, ok := rt.globals[name]
	return v, ok
}

// DeleteGlobal removes a process-wide named value.
func (rt *Runtime) DeleteGlobal(name string) {
	rt.globalsMu.Lock()
	defer rt.globalsMu.Unlock()
	delete(rt.globals, name)
}

// globalRoots snapshots the globals table for the collector.
func (rt *Runtime) globalRoots() []Value {
	rt.globalsMu.RLock()
	defer rt.globalsMu.RUnlock()
	if len(rt.globals) == 0 {
		return nil
	}
	roots := make([]Value, 0, len(rt.globals))
	for _, v := range rt.globals {
		roots = append(roots, v)
	}
	return roots
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// Default returns the process-wide runtime, created and initialized on
// first use. It exists for the outermost boundary (the CLI); library code
// receives an explicit *Runtime instead, and callers needing isolated
// runtimes must use NewRuntime.
func Default() *Runtime {
	defaultRuntimeOnce.Do(func() {
		rt, err := NewRuntime(DefaultConfig())
		if err != nil {
			panic("aqua: default runtime construction failed: " + err.Error())
		}
		if err := rt.Initialize(); err != nil {
			panic("aqua: default runtime initialization failed: " + err.Error())
		}
		defaultRuntime = rt
	})
	return defaultRuntime
}
