package chordnode

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jacklowrie/chordnet/internal/ring"
	"github.com/jacklowrie/chordnet/internal/transport"
)

func mustListen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	return ln
}

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

// unreachable is an address nothing listens on; dialing it fails fast
// (connection refused) without needing a mock transport.
var unreachable = transport.Address{IP: "127.0.0.1", Port: 1, Key: 150}

// Seed case 4: notify acceptance and rejection, driven straight off
// BeNotified (it performs no I/O, so no listener is needed).
func TestBeNotifiedAcceptsAndRejects(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(100)
	n := New(self, sp, WithRequestTimeout(200*time.Millisecond))

	if !n.BeNotified(addrWithKey(50)) {
		t.Fatal("candidate should be accepted when predecessor is unset")
	}
	if got := n.Predecessor(); got == nil || got.Key != 50 {
		t.Fatalf("predecessor = %v, want key 50", got)
	}

	// predecessor now 50; self is 100. A candidate strictly between
	// (50, 100) should be accepted; one outside should be rejected.
	if !n.BeNotified(addrWithKey(75)) {
		t.Fatal("candidate within (predecessor, self) should be accepted")
	}
	if got := n.Predecessor(); got == nil || got.Key != 75 {
		t.Fatalf("predecessor = %v, want key 75", got)
	}

	if n.BeNotified(addrWithKey(10)) {
		t.Fatal("candidate outside (predecessor, self) should be rejected")
	}
	if got := n.Predecessor(); got == nil || got.Key != 75 {
		t.Fatalf("predecessor changed after a rejected candidate: %v", got)
	}
}

// Seed case 5: find_successor falls back to the local successor when the
// forwarding hop is unreachable.
func TestFindSuccessorFallsBackOnRemoteFailure(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(100)
	n := New(self, sp, WithRequestTimeout(200*time.Millisecond))

	succ := addrWithKey(200) // target lies outside (100, 200], so lookup must forward
	n.rt.SetSuccessor(succ)
	n.rt.SetFinger(1, unreachable) // closest preceding finger for target below

	target := ring.ID(500)
	got := n.FindSuccessor(context.Background(), target)

	if !got.Equal(succ) {
		t.Fatalf("FindSuccessor fallback = %v, want local successor %v", got, succ)
	}
}

// Seed case 6: fix_fingers advances the cursor even when the refresh for
// that slot resolves via the failure-fallback path.
func TestFixFingersAdvancesCursorOnFailure(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(100)
	n := New(self, sp, WithRequestTimeout(200*time.Millisecond))

	succ := addrWithKey(200)
	n.rt.SetSuccessor(succ)
	n.rt.SetFinger(1, unreachable)

	// Advance past the low-order fingers, whose targets still fall inside
	// (self, successor] and so resolve locally without forwarding.
	for i := 0; i < 7; i++ {
		n.rt.AdvanceCursor()
	}

	before := n.rt.NextCursor()
	n.FixFingers(context.Background())
	after := n.rt.NextCursor()

	if after == before {
		t.Fatal("cursor did not advance")
	}
	if got := n.rt.Finger(before); got == nil {
		t.Fatalf("finger[%d] left unset after fix_fingers", before)
	}
}

// Create initializes a solo ring: self is its own successor and the
// predecessor starts unset.
func TestCreateInitializesSoloRing(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(42)
	n := New(self, sp)

	ln := mustListen(t)
	defer ln.Close()
	n.Create(ln)
	defer n.Stop()

	succ := n.Successor()
	if succ == nil || !succ.Equal(self) {
		t.Fatalf("Successor() = %v, want self %v", succ, self)
	}
	if n.Predecessor() != nil {
		t.Fatal("predecessor should be unset on a fresh solo ring")
	}
}

// Join fails cleanly, without starting anything, when the bootstrap peer
// is unreachable.
func TestJoinFailsOnUnreachablePeer(t *testing.T) {
	sp := mustSpace(t, 16)
	self := addrWithKey(7)
	n := New(self, sp, WithRequestTimeout(200*time.Millisecond))

	ln := mustListen(t)
	defer ln.Close()

	err := n.Join(context.Background(), ln, unreachable.IP, unreachable.Port)
	if err != ErrJoinFailed {
		t.Fatalf("Join err = %v, want ErrJoinFailed", err)
	}
	if n.Successor() != nil {
		t.Fatal("successor should remain unset after a failed join")
	}
}

// Two real nodes over real TCP: node A creates a ring, node B joins
// through it, and stabilization converges their pointers within a few
// maintenance ticks.
func TestTwoNodeRingConverges(t *testing.T) {
	sp := mustSpace(t, 16)

	lnA := mustListen(t)
	defer lnA.Close()
	addrA := transport.NewAddress(sp, "127.0.0.1", uint16(lnA.Addr().(*net.TCPAddr).Port))
	a := New(addrA, sp, WithMaintenanceInterval(20*time.Millisecond), WithRequestTimeout(200*time.Millisecond))
	a.Create(lnA)
	defer a.Stop()

	lnB := mustListen(t)
	defer lnB.Close()
	addrB := transport.NewAddress(sp, "127.0.0.1", uint16(lnB.Addr().(*net.TCPAddr).Port))
	b := New(addrB, sp, WithMaintenanceInterval(20*time.Millisecond), WithRequestTimeout(200*time.Millisecond))
	if err := b.Join(context.Background(), lnB, addrA.IP, addrA.Port); err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer b.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sa, sb := a.Successor(), b.Successor()
		pa, pb := a.Predecessor(), b.Predecessor()
		if sa != nil && sb != nil && pa != nil && pb != nil &&
			sa.Equal(addrB) && sb.Equal(addrA) && pa.Equal(addrB) && pb.Equal(addrA) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("ring did not converge: a.succ=%v a.pred=%v b.succ=%v b.pred=%v",
		a.Successor(), a.Predecessor(), b.Successor(), b.Predecessor())
}
