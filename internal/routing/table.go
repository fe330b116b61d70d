// Package routing holds the mutable per-node ring state: the finger table,
// successor (finger[0]), predecessor, and next-finger cursor, guarded by a
// single mutex.
package routing

import (
	"sync"

	"github.com/jacklowrie/chordnet/internal/ring"
	"github.com/jacklowrie/chordnet/internal/transport"
)

// Table is the routing-table tuple: finger table,
// predecessor, and the next-finger cursor. It never performs network I/O —
// callers must snapshot a value under the lock, release it, do the RPC,
// then reacquire the lock to apply any update.
type Table struct {
	mu sync.Mutex

	self    transport.Address
	fingers []*transport.Address // len == space.Bits; fingers[0] is the successor
	pred    *transport.Address
	cursor  int
}

// New builds an empty routing table for self in the given space. All
// fingers and the predecessor start unset; the cursor starts at 0.
func New(self transport.Address, sp ring.Space) *Table {
	return &Table{
		self:    self,
		fingers: make([]*transport.Address, sp.Bits),
	}
}

// Self returns this node's own address.
func (t *Table) Self() transport.Address {
	return t.self
}

// Bits returns the number of finger slots.
func (t *Table) Bits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fingers)
}

// Successor returns finger[0], or nil if unset.
func (t *Table) Successor() *transport.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fingers[0]
}

// SetSuccessor sets finger[0].
func (t *Table) SetSuccessor(addr transport.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fingers[0] = &addr
}

// Finger returns finger[i], or nil if unset or i is out of range.
func (t *Table) Finger(i int) *transport.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.fingers) {
		return nil
	}
	return t.fingers[i]
}

// SetFinger sets finger[i] if i is in range.
func (t *Table) SetFinger(i int, addr transport.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.fingers) {
		return
	}
	t.fingers[i] = &addr
}

// Fingers returns a snapshot copy of the whole finger table (nil entries
// included, to preserve index meaning).
func (t *Table) Fingers() []*transport.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*transport.Address, len(t.fingers))
	copy(out, t.fingers)
	return out
}

// Predecessor returns the current predecessor, or nil if unset.
func (t *Table) Predecessor() *transport.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pred
}

// SetPredecessor sets the predecessor. Passing ok=false clears it.
func (t *Table) SetPredecessor(addr transport.Address, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !ok {
		t.pred = nil
		return
	}
	t.pred = &addr
}

// NextCursor returns the current next-finger cursor value.
func (t *Table) NextCursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// AdvanceCursor moves the cursor to (cursor+1) mod Bits and returns the
// value it held before advancing (the index that was just serviced).
// Advancing unconditionally — even when the refresh for that index failed
// — keeps a persistently failing finger from starving the rest of the
// table.
func (t *Table) AdvanceCursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.cursor
	if len(t.fingers) > 0 {
		t.cursor = (t.cursor + 1) % len(t.fingers)
	}
	return prev
}

// ClosestPrecedingFinger scans the finger table from the farthest entry
// down and returns the first finger whose key lies strictly between self
// and target on the circle. If none qualifies, returns
// self's own address.
func (t *Table) ClosestPrecedingFinger(target ring.ID) transport.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.fingers) - 1; i >= 0; i-- {
		f := t.fingers[i]
		if f != nil && ring.InOpenInterval(t.self.Key, target, f.Key) {
			return *f
		}
	}
	return t.self
}
