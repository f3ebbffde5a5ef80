package aqua

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rootSet is a mutable root source for collector tests.
type rootSet struct {
	mu   sync.Mutex
	vals []Value
}

func (r *rootSet) Roots() []Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Value(nil), r.vals...)
}

func (r *rootSet) add(v Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals = append(r.vals, v)
}

func (r *rootSet) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals = nil
}

func TestGCRegisterUnregister(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	ch := NewChannel(0)

	require.NoError(t, gc.Register(ch, 100))
	assert.Equal(t, 1, gc.AllocatedObjects())
	assert.Equal(t, uint64(100), gc.TotalMemory())

	require.NoError(t, gc.Unregister(ch.HeapID()))
	assert.Equal(t, 0, gc.AllocatedObjects())
	assert.Equal(t, uint64(0), gc.TotalMemory())

	// Double release is reported, not ignored.
	assert.ErrorIs(t, gc.Unregister(ch.HeapID()), ErrNotRegistered)
}

func TestGCRegisterDuplicate(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	ch := NewChannel(0)

	require.NoError(t, gc.Register(ch, 10))
	assert.Error(t, gc.Register(ch, 10))
	assert.Equal(t, uint64(10), gc.TotalMemory())
}

func TestGCRegisterNil(t *testing.T) {
	gc := NewGarbageCollector(0, nil)
	assert.Error(t, gc.Register(nil, 10))
}

func TestGCCollectSweepsUnrooted(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	roots := &rootSet{}
	gc.AddRoots(roots)

	kept := NewChannel(0)
	lost := NewChannel(0)
	roots.add(ChannelValue(kept))
	require.NoError(t, gc.Register(kept, 64))
	require.NoError(t, gc.Register(lost, 32))

	gc.Collect()

	assert.Equal(t, 1, gc.AllocatedObjects())
	assert.Equal(t, uint64(64), gc.TotalMemory())
	assert.Equal(t, int64(1), gc.Collections())

	// Dropping the root makes the survivor sweepable too.
	roots.clear()
	gc.Collect()
	assert.Equal(t, 0, gc.AllocatedObjects())
	assert.Equal(t, uint64(0), gc.TotalMemory())
}

func TestGCThresholdTriggersCollection(t *testing.T) {
	gc := NewGarbageCollector(1024, nil)
	roots := &rootSet{}
	gc.AddRoots(roots)

	// Two rooted channels fill the threshold exactly; nothing to sweep yet.
	for i := 0; i < 2; i++ {
		ch := NewChannel(0)
		roots.add(ChannelValue(ch))
		require.NoError(t, gc.Register(ch, 512))
	}
	assert.Equal(t, int64(0), gc.Collections())
	assert.Equal(t, uint64(1024), gc.TotalMemory())

	// Each unrooted registration pushes past the threshold and is swept by
	// the collection its own registration triggers.
	for i := 0; i < 2; i++ {
		require.NoError(t, gc.Register(NewChannel(0), 512))
	}
	assert.Equal(t, int64(2), gc.Collections())
	assert.Equal(t, 2, gc.AllocatedObjects())
	assert.Equal(t, uint64(1024), gc.TotalMemory())
}

func TestGCMarksThroughChannelBuffers(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	roots := &rootSet{}
	gc.AddRoots(roots)

	outer := NewChannel(2)
	inner := NewChannel(2)
	innermost := NewChannel(0)

	// outer (rooted) -> inner -> innermost, linked only through buffered
	// channel-handle values.
	require.True(t, outer.TrySend(ChannelValue(inner)))
	require.True(t, inner.TrySend(ChannelValue(innermost)))
	roots.add(ChannelValue(outer))

	require.NoError(t, gc.Register(outer, 10))
	require.NoError(t, gc.Register(inner, 10))
	require.NoError(t, gc.Register(innermost, 10))

	gc.Collect()
	assert.Equal(t, 3, gc.AllocatedObjects())

	// Draining outer unlinks the chain; inner and innermost become garbage.
	_, ok := outer.TryReceive()
	require.True(t, ok)
	gc.Collect()
	assert.Equal(t, 1, gc.AllocatedObjects())
	assert.Equal(t, uint64(10), gc.TotalMemory())
}

func TestGCMarkHandlesChannelCycles(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	roots := &rootSet{}
	gc.AddRoots(roots)

	a := NewChannel(1)
	b := NewChannel(1)
	require.True(t, a.TrySend(ChannelValue(b)))
	require.True(t, b.TrySend(ChannelValue(a)))
	roots.add(ChannelValue(a))

	require.NoError(t, gc.Register(a, 8))
	require.NoError(t, gc.Register(b, 8))

	// Must terminate despite the a <-> b cycle.
	gc.Collect()
	assert.Equal(t, 2, gc.AllocatedObjects())

	// An unreachable cycle is still collected.
	roots.clear()
	gc.Collect()
	assert.Equal(t, 0, gc.AllocatedObjects())
}

func TestGCNonHeapRootsAreIgnored(t *testing.T) {
	gc := NewGarbageCollector(1<<30, nil)
	gc.AddRoots(RootsFunc(func() []Value {
		return []Value{IntValue(1), TextValue("x"), NullValue(), BoolValue(true)}
	}))

	require.NoError(t, gc.Register(NewChannel(0), 16))
	gc.Collect()
	assert.Equal(t, 0, gc.AllocatedObjects())
}

func TestGCThresholdAccessors(t *testing.T) {
	gc := NewGarbageCollector(0, nil)
	assert.Equal(t, uint64(DefaultGCThreshold), gc.Threshold())

	require.NoError(t, gc.SetThreshold(4096))
	assert.Equal(t, uint64(4096), gc.Threshold())

	assert.Error(t, gc.SetThreshold(0))
	assert.Equal(t, uint64(4096), gc.Threshold())
}
