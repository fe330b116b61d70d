package routing

import (
	"testing"

	"github.com/jacklowrie/chordnet/internal/ring"
	"github.com/jacklowrie/chordnet/internal/transport"
)

func mustSpace(t *testing.T, bits uint) ring.Space {
	t.Helper()
	sp, err := ring.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return sp
}

func addrWithKey(key ring.ID) transport.Address {
	return transport.Address{IP: "127.0.0.1", Port: 4000, Key: key}
}

func TestSuccessorIsFinger0(t *testing.T) {
	sp := mustSpace(t, 8)
	rt := New(addrWithKey(128), sp)

	if rt.Successor() != nil {
		t.Fatal("successor should start unset")
	}

	succ := addrWithKey(130)
	rt.SetSuccessor(succ)

	if got := rt.Successor(); got == nil || !got.Equal(succ) {
		t.Errorf("Successor() = %v, want %v", got, succ)
	}
	if got := rt.Finger(0); got == nil || !got.Equal(succ) {
		t.Errorf("Finger(0) = %v, want %v (successor is finger[0])", got, succ)
	}
}

func TestPredecessorUnsetByDefault(t *testing.T) {
	sp := mustSpace(t, 8)
	rt := New(addrWithKey(128), sp)
	if rt.Predecessor() != nil {
		t.Fatal("predecessor should start unset")
	}
	rt.SetPredecessor(addrWithKey(70), true)
	if rt.Predecessor() == nil {
		t.Fatal("predecessor should be set")
	}
	rt.SetPredecessor(transport.Address{}, false)
	if rt.Predecessor() != nil {
		t.Fatal("predecessor should be cleared")
	}
}

// self.key=57776, finger keys [10, 30, 50].
func TestClosestPrecedingFingerBasic(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(57776)
	rt := New(self, sp)
	rt.SetFinger(0, addrWithKey(10))
	rt.SetFinger(1, addrWithKey(30))
	rt.SetFinger(2, addrWithKey(50))

	got := rt.ClosestPrecedingFinger(60)
	if got.Key != 50 {
		t.Errorf("ClosestPrecedingFinger(60) = %d, want 50", got.Key)
	}

	got = rt.ClosestPrecedingFinger(5)
	if !got.Equal(self) {
		t.Errorf("ClosestPrecedingFinger(5) = %v, want self %v", got, self)
	}
}

func TestAdvanceCursorWrapsAndAlwaysAdvances(t *testing.T) {
	sp := mustSpace(t, 8) // 8 fingers
	rt := New(addrWithKey(0), sp)

	for i := 0; i < 8; i++ {
		prev := rt.AdvanceCursor()
		if prev != i {
			t.Fatalf("AdvanceCursor() iteration %d returned %d, want %d", i, prev, i)
		}
	}
	// Wraps back to 0.
	if got := rt.NextCursor(); got != 0 {
		t.Errorf("cursor after 8 advances = %d, want 0", got)
	}
}

func TestFingersSnapshotIsACopy(t *testing.T) {
	sp := mustSpace(t, 4)
	rt := New(addrWithKey(0), sp)
	rt.SetFinger(2, addrWithKey(5))

	snap := rt.Fingers()
	snap[2] = nil

	if rt.Finger(2) == nil {
		t.Fatal("mutating the snapshot must not affect the table")
	}
}
