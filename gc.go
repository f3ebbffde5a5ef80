package aqua

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultGCThreshold is the tracked-byte total above which a registration
// triggers an immediate collection.
const DefaultGCThreshold = 1 << 20

// ErrNotRegistered is returned by Unregister for an unknown identity.
var ErrNotRegistered = errors.New("aqua: object is not registered")

// HeapObject is an allocation tracked by the collector. TraceRefs returns
// the values the object holds, so the mark phase can continue through it.
// Channels are the runtime's built-in heap object; an embedding interpreter
// registers its own allocations the same way.
type HeapObject interface {
	HeapID() uint64
	TraceRefs() []Value
}

// RootSource contributes root values to a collection: the globals table,
// live fiber locals, and similar. Sources are consulted with only their own
// internal locks held, never the registry lock.
type RootSource interface {
	Roots() []Value
}

// RootsFunc adapts a function to the RootSource interface.
type RootsFunc func() []Value

// Roots implements RootSource.
func (f RootsFunc) Roots() []Value {
	return f()
}

type heapEntry struct {
	obj    HeapObject
	size   uint64
	marked bool
}

// GarbageCollector is the runtime's tracing memory accountant. It tracks
// registered allocations by identity and byte size; when the running total
// passes the threshold, a synchronous mark-and-sweep removes every entry not
// reachable from the registered root sources.
//
// Sweeping drops an entry from the registry and its bytes from the total; it
// does not invalidate the underlying Go object, which the host language's
// collector reclaims once truly unreferenced. An object reachable only
// through native Go storage outside the runtime's value model is invisible
// to the tracer: callers must publish an object to a root (global, fiber
// local, or a buffered channel value) before relying on the collector to
// keep its registration alive. In particular, registering an object and only
// then rooting it leaves a window where the very collection the registration
// triggers can sweep it.
type GarbageCollector struct {
	mu        sync.Mutex
	objects   map[uint64]*heapEntry
	total     uint64
	threshold uint64

	rootsMu sync.Mutex
	roots   []RootSource

	collections atomic.Int64

	logger *Logger
}

// NewGarbageCollector creates a collector with the given threshold;
// threshold 0 selects DefaultGCThreshold.
func NewGarbageCollector(threshold uint64, logger *Logger) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}
	if logger == nil {
		logger = NewLogger(false)
	}
	return &GarbageCollector{
		objects:   make(map[uint64]*heapEntry),
		threshold: threshold,
		logger:    logger,
	}
}

// AddRoots registers a root source consulted by every subsequent collection.
func (gc *GarbageCollector) AddRoots(src RootSource) {
	if src == nil {
		return
	}
	gc.rootsMu.Lock()
	defer gc.rootsMu.Unlock()
	gc.roots = append(gc.roots, src)
}

// Register records a tracked allocation. If the running byte total exceeds
// the threshold, a collection pass runs before Register returns.
func (gc *GarbageCollector) Register(obj HeapObject, size uint64) error {
	if obj == nil {
		return errors.New("aqua: Register requires a non-nil object")
	}

	gc.mu.Lock()
	id := obj.HeapID()
	if _, exists := gc.objects[id]; exists {
		gc.mu.Unlock()
		return fmt.Errorf("aqua: object %d is already registered", id)
	}
	gc.objects[id] = &heapEntry{obj: obj, size: size}
	gc.total += size
	over := gc.total > gc.threshold
	gc.mu.Unlock()

	gc.logger.DebugCat(CatGC, "registered object %d (%d bytes)", id, size)
	if over {
		gc.Collect()
	}
	return nil
}

// Unregister releases a tracked allocation whose ownership ended
// deterministically, without waiting for tracing. Unknown identities
// (including double release) are reported, not ignored.
func (gc *GarbageCollector) Unregister(id uint64) error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	entry, exists := gc.objects[id]
	if !exists {
		return fmt.Errorf("aqua: unregister object %d: %w", id, ErrNotRegistered)
	}
	gc.total -= entry.size
	delete(gc.objects, id)
	return nil
}

// Collect runs a stop-the-world mark-and-sweep: clear every mark, mark
// everything transitively reachable from the root sources, then remove every
// still-unmarked entry and subtract its bytes. Roots are snapshotted before
// the registry lock is taken, so no code path ever holds the registry lock
// together with a scheduler or globals lock; the trace itself runs with the
// registry locked so no register/unregister interleaves mid-pass.
func (gc *GarbageCollector) Collect() {
	roots := gc.gatherRoots()

	gc.mu.Lock()
	for _, entry := range gc.objects {
		entry.marked = false
	}
	for _, v := range roots {
		gc.markValue(v)
	}

	var swept int
	var sweptBytes uint64
	for id, entry := range gc.objects {
		if !entry.marked {
			gc.total -= entry.size
			sweptBytes += entry.size
			delete(gc.objects, id)
			swept++
		}
	}
	remaining := len(gc.objects)
	gc.mu.Unlock()

	gc.collections.Add(1)
	gc.logger.DebugCat(CatGC, "collected %d objects (%d bytes), %d remain",
		swept, sweptBytes, remaining)
}

// gatherRoots snapshots every root source. Runs without the registry lock.
func (gc *GarbageCollector) gatherRoots() []Value {
	gc.rootsMu.Lock()
	sources := make([]RootSource, len(gc.roots))
	copy(sources, gc.roots)
	gc.rootsMu.Unlock()

	var roots []Value
	for _, src := range sources {
		roots = append(roots, src.Roots()...)
	}
	return roots
}

// markValue marks the heap object behind v, if any, and recurses through its
// references. Called with the registry lock held. Only channel handles carry
// a heap identity among the value kinds; every other kind is inline data.
func (gc *GarbageCollector) markValue(v Value) {
	ch, ok := v.ChannelHandle()
	if !ok || ch == nil {
		return
	}
	gc.markObject(ch.HeapID())
}

func (gc *GarbageCollector) markObject(id uint64) {
	entry, exists := gc.objects[id]
	if !exists || entry.marked {
		return
	}
	entry.marked = true
	for _, ref := range entry.obj.TraceRefs() {
		gc.markValue(ref)
	}
}

// SetThreshold updates the collection threshold. Zero is rejected.
func (gc *GarbageCollector) SetThreshold(bytes uint64) error {
	if bytes == 0 {
		return errors.New("aqua: threshold must be positive")
	}
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.threshold = bytes
	return nil
}

// Threshold returns the current collection threshold in bytes.
func (gc *GarbageCollector) Threshold() uint64 {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.threshold
}

// AllocatedObjects returns the number of currently tracked allocations.
func (gc *GarbageCollector) AllocatedObjects() int {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return len(gc.objects)
}

// TotalMemory returns the tracked byte total, always equal to the sum of
// the sizes of the currently registered objects.
func (gc *GarbageCollector) TotalMemory() uint64 {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.total
}

// Collections returns how many collection passes have run.
func (gc *GarbageCollector) Collections() int64 {
	return gc.collections.Load()
}
