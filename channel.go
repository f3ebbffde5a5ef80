package aqua

import (
	"sync"
	"sync/atomic"
)

// CapUnbounded selects the unbounded channel mode. It must be requested
// explicitly; capacity 0 always means a synchronous rendezvous.
const CapUnbounded = -1

var nextChannelID atomic.Uint64

// waiter represents one suspended sender or receiver. Waking a waiter only
// makes it runnable again; the woken operation re-checks its condition, so
// spurious wake-ups are harmless.
type waiter struct {
	wake func()
}

// Channel is a thread-safe FIFO queue of Values shared between fibers.
//
// Three modes exist:
//   - capacity 0: rendezvous; a send completes only once a receiver has
//     committed to receiving, and no value is ever buffered in the queue
//   - capacity > 0: bounded buffer; a send on a full channel suspends until
//     space frees (backpressure)
//   - CapUnbounded: sends never suspend; opt-in via NewUnboundedChannel
//
// A fiber performing a blocking Send or Receive suspends and releases its
// worker thread; a plain goroutine caller (ctx == nil) blocks normally.
// Once closed, no value can be enqueued, but buffered values remain
// drainable. Close is idempotent and cannot be undone.
type Channel struct {
	id       uint64
	capacity int

	mu     sync.Mutex
	buf    []Value
	closed bool

	// Rendezvous state: the handoff slot and the number of receivers
	// currently committed to a receive.
	slot        *Value
	recvWaiting int

	sendq []*waiter
	recvq []*waiter
}

// NewChannel creates a channel. capacity 0 is a rendezvous channel,
// capacity > 0 a bounded one. Panics on any other capacity; unbounded
// channels are created with NewUnboundedChannel.
func NewChannel(capacity int) *Channel {
	if capacity < 0 && capacity != CapUnbounded {
		panic("aqua: NewChannel requires capacity >= 0")
	}
	return &Channel{
		id:       nextChannelID.Add(1),
		capacity: capacity,
	}
}

// NewUnboundedChannel creates a channel whose buffer grows without bound.
// Sends on it never suspend.
func NewUnboundedChannel() *Channel {
	return NewChannel(CapUnbounded)
}

// newWaiter builds the waiter entry and the matching park function for the
// calling context. Fibers park through the scheduler; plain goroutines park
// on a private gate channel. The gate is buffered so a wake that lands
// before the park does not get lost.
func newWaiter(ctx *FiberContext) (*waiter, func()) {
	if ctx != nil {
		f := ctx.fiber
		return &waiter{wake: f.wake}, f.park
	}
	gate := make(chan struct{}, 1)
	w := &waiter{wake: func() {
		select {
		case gate <- struct{}{}:
		default:
		}
	}}
	return w, func() { <-gate }
}

// popWaiterLocked removes and returns the oldest waiter from q.
func popWaiterLocked(q *[]*waiter) *waiter {
	if len(*q) == 0 {
		return nil
	}
	w := (*q)[0]
	*q = (*q)[1:]
	return w
}

// waitAsSender parks the caller on the send queue. Called with c.mu held;
// returns with c.mu reacquired.
func (c *Channel) waitAsSender(ctx *FiberContext) {
	w, park := newWaiter(ctx)
	c.sendq = append(c.sendq, w)
	c.mu.Unlock()
	park()
	c.mu.Lock()
}

// waitAsReceiver parks the caller on the receive queue. wakeFirst, if
// non-nil, is invoked after the channel lock is released and before parking;
// it is how a rendezvous receiver announces itself to a parked sender.
func (c *Channel) waitAsReceiver(ctx *FiberContext, wakeFirst *waiter) {
	w, park := newWaiter(ctx)
	c.recvq = append(c.recvq, w)
	c.mu.Unlock()
	if wakeFirst != nil {
		wakeFirst.wake()
	}
	park()
	c.mu.Lock()
}

// Send enqueues v. It returns false immediately if the channel is closed,
// or if it closes while the caller is suspended waiting for space (or, on a
// rendezvous channel, for a receiver). ctx is the calling fiber's context;
// pass nil when calling from outside a fiber.
func (c *Channel) Send(ctx *FiberContext, v Value) bool {
	c.mu.Lock()
	for {
		if c.closed {
			c.mu.Unlock()
			return false
		}

		switch {
		case c.capacity == CapUnbounded:
			c.buf = append(c.buf, v)
			w := popWaiterLocked(&c.recvq)
			c.mu.Unlock()
			if w != nil {
				w.wake()
			}
			return true

		case c.capacity == 0:
			// Rendezvous: hand off only when a receiver has committed
			// and the slot is free.
			if c.slot == nil && c.recvWaiting > 0 {
				val := v
				c.slot = &val
				w := popWaiterLocked(&c.recvq)
				c.mu.Unlock()
				if w != nil {
					w.wake()
				}
				return true
			}

		default:
			if len(c.buf) < c.capacity {
				c.buf = append(c.buf, v)
				w := popWaiterLocked(&c.recvq)
				c.mu.Unlock()
				if w != nil {
					w.wake()
				}
				return true
			}
		}

		c.waitAsSender(ctx)
	}
}

// TrySend attempts to enqueue v without suspending. Returns false when the
// channel is closed, full, or (for a rendezvous channel) has no committed
// receiver.
func (c *Channel) TrySend(v Value) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	var ok bool
	switch {
	case c.capacity == CapUnbounded:
		c.buf = append(c.buf, v)
		ok = true
	case c.capacity == 0:
		if c.slot == nil && c.recvWaiting > 0 {
			val := v
			c.slot = &val
			ok = true
		}
	default:
		if len(c.buf) < c.capacity {
			c.buf = append(c.buf, v)
			ok = true
		}
	}
	var w *waiter
	if ok {
		w = popWaiterLocked(&c.recvq)
	}
	c.mu.Unlock()
	if w != nil {
		w.wake()
	}
	return ok
}

// Receive dequeues the oldest value (FIFO). Draining is permitted after
// close; the second result is false only when the channel is closed and
// empty (end of stream). On an empty open channel the caller suspends until
// a value arrives or the channel closes. ctx is the calling fiber's
// context; pass nil when calling from outside a fiber.
func (c *Channel) Receive(ctx *FiberContext) (Value, bool) {
	c.mu.Lock()
	for {
		if c.slot != nil {
			v := *c.slot
			c.slot = nil
			w := popWaiterLocked(&c.sendq)
			c.mu.Unlock()
			if w != nil {
				w.wake()
			}
			return v, true
		}

		if len(c.buf) > 0 {
			v := c.buf[0]
			c.buf = c.buf[1:]
			var w *waiter
			if c.capacity > 0 {
				// Space freed; a parked sender may proceed.
				w = popWaiterLocked(&c.sendq)
			}
			c.mu.Unlock()
			if w != nil {
				w.wake()
			}
			return v, true
		}

		if c.closed {
			c.mu.Unlock()
			return Value{}, false
		}

		if c.capacity == 0 {
			c.recvWaiting++
			// Announce this receiver to the oldest parked sender so it
			// can deposit into the slot.
			sender := popWaiterLocked(&c.sendq)
			c.waitAsReceiver(ctx, sender)
			c.recvWaiting--
		} else {
			c.waitAsReceiver(ctx, nil)
		}
	}
}

// TryReceive attempts to dequeue without suspending. The second result is
// false when no value is immediately available.
func (c *Channel) TryReceive() (Value, bool) {
	c.mu.Lock()
	if c.slot != nil {
		v := *c.slot
		c.slot = nil
		w := popWaiterLocked(&c.sendq)
		c.mu.Unlock()
		if w != nil {
			w.wake()
		}
		return v, true
	}
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		var w *waiter
		if c.capacity > 0 {
			w = popWaiterLocked(&c.sendq)
		}
		c.mu.Unlock()
		if w != nil {
			w.wake()
		}
		return v, true
	}
	c.mu.Unlock()
	return Value{}, false
}

// Close marks the channel closed and wakes every suspended sender and
// receiver so they can re-evaluate. Idempotent; a channel cannot be
// reopened. Buffered values remain drainable.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wakes := make([]*waiter, 0, len(c.sendq)+len(c.recvq))
	wakes = append(wakes, c.sendq...)
	wakes = append(wakes, c.recvq...)
	c.sendq = nil
	c.recvq = nil
	c.mu.Unlock()

	for _, w := range wakes {
		w.wake()
	}
}

// Len returns the number of buffered values (including an occupied
// rendezvous slot).
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.buf)
	if c.slot != nil {
		n++
	}
	return n
}

// Cap returns the configured capacity: 0 for rendezvous, CapUnbounded for
// unbounded channels.
func (c *Channel) Cap() int {
	return c.capacity
}

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsEmpty reports whether no value is buffered.
func (c *Channel) IsEmpty() bool {
	return c.Len() == 0
}

// IsFull reports whether a send would have to suspend for lack of space.
// Unbounded channels are never full; a rendezvous channel is full while its
// handoff slot is occupied.
func (c *Channel) IsFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.capacity == CapUnbounded:
		return false
	case c.capacity == 0:
		return c.slot != nil
	default:
		return len(c.buf) >= c.capacity
	}
}

// HeapID implements HeapObject; channels are the runtime's heap-tracked
// reference type.
func (c *Channel) HeapID() uint64 {
	return c.id
}

// TraceRefs implements HeapObject: the values currently in flight through
// this channel, a root fan-out point for the collector's mark phase.
func (c *Channel) TraceRefs() []Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]Value, 0, len(c.buf)+1)
	refs = append(refs, c.buf...)
	if c.slot != nil {
		refs = append(refs, *c.slot)
	}
	return refs
}
