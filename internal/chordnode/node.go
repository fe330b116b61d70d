// Package chordnode implements the Chord ring-membership and routing
// engine: identifier lookup, finger-table maintenance, and the inbound
// dispatch table, tying together ring, routing, and transport.
package chordnode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jacklowrie/chordnet/internal/logger"
	"github.com/jacklowrie/chordnet/internal/ring"
	"github.com/jacklowrie/chordnet/internal/routing"
	"github.com/jacklowrie/chordnet/internal/telemetry"
	"github.com/jacklowrie/chordnet/internal/transport"
)

// ErrJoinFailed is returned by Join when the known peer does not reply, or
// replies unparseably, to the initial FIND_SUCCESSOR.
var ErrJoinFailed = errors.New("chordnode: join failed: bootstrap peer unreachable or replied unparseably")

const (
	defaultMaintenanceInterval = time.Second
	defaultRequestTimeout      = 5 * time.Second
)

// Node is a single Chord ring participant: routing state, the outbound
// dispatcher, and the maintenance scheduler. The zero value is not usable;
// construct with New.
type Node struct {
	lgr logger.Logger
	sp  ring.Space
	rt  *routing.Table

	client   *transport.Client
	listener *transport.Listener

	maintenanceInterval   time.Duration
	requestTimeout        time.Duration
	maxConcurrentHandlers int

	mu              sync.Mutex
	running         bool
	stopMaintenance chan struct{}
	maintenanceDone chan struct{}
}

// New constructs a Node identified by self, in identifier space sp. The
// node is in the freshly-constructed, not-yet-active state until Create or
// Join is called.
func New(self transport.Address, sp ring.Space, opts ...Option) *Node {
	n := &Node{
		lgr:                 &logger.NopLogger{},
		sp:                  sp,
		rt:                  routing.New(self, sp),
		maintenanceInterval: defaultMaintenanceInterval,
		requestTimeout:      defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.client = transport.NewClient(n.requestTimeout)
	return n
}

// Self returns this node's own address.
func (n *Node) Self() transport.Address { return n.rt.Self() }

// Space returns the identifier space this node operates in.
func (n *Node) Space() ring.Space { return n.sp }

// Successor returns the current successor, or nil if unset.
func (n *Node) Successor() *transport.Address { return n.rt.Successor() }

// Predecessor returns the current predecessor, or nil if unset.
func (n *Node) Predecessor() *transport.Address { return n.rt.Predecessor() }

// Fingers returns a snapshot of the finger table.
func (n *Node) Fingers() []*transport.Address { return n.rt.Fingers() }

// ---------------------------------------------------------------------
// Lifecycle: create, join, stop
// ---------------------------------------------------------------------

// Create initializes a solo ring: this node is its own successor, it has
// no predecessor, and the maintenance loop and listener start immediately
//.
func (n *Node) Create(ln net.Listener) {
	self := n.rt.Self()
	n.rt.SetSuccessor(self)
	n.rt.SetPredecessor(transport.Address{}, false)

	n.start(ln)
	n.FixFingers(context.Background())
	n.lgr.Info("create: solo ring initialized", logger.F("self", self.Serialize()))
}

// Join connects to an existing ring through a known peer at (peerIP,
// peerPort). On success the node's successor is set from the peer's reply
// and the listener/maintenance loop start. On failure the node is left in
// its not-yet-active state and ErrJoinFailed is returned.
func (n *Node) Join(ctx context.Context, ln net.Listener, peerIP string, peerPort uint16) error {
	ctx, span := telemetry.Tracer().Start(ctx, "chordnode.join")
	defer span.End()

	peer := transport.NewAddress(n.sp, peerIP, peerPort)

	reply, ok := n.client.SendRequest(ctx, peer, transport.FindSuccessor, n.rt.Self().Key.String())
	if !ok {
		n.lgr.Warn("join: bootstrap peer unreachable", logger.F("peer", peer.Serialize()))
		return ErrJoinFailed
	}
	succ, valid, err := transport.ParseAddress(reply)
	if err != nil || !valid {
		n.lgr.Warn("join: bootstrap peer replied unparseably", logger.F("reply", reply))
		return ErrJoinFailed
	}

	n.rt.SetSuccessor(succ)
	n.start(ln)
	n.FixFingers(context.Background())
	n.lgr.Info("join: ring joined", logger.F("self", n.rt.Self().Serialize()), logger.F("successor", succ.Serialize()))
	return nil
}

func (n *Node) start(ln net.Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.listener = transport.NewListener(ln, n.maxConcurrentHandlers, n.lgr.Named("listener"))
	n.stopMaintenance = make(chan struct{})
	n.maintenanceDone = make(chan struct{})
	n.running = true

	go func() { _ = n.listener.Serve(n) }()
	go n.maintenanceLoop()
}

// Stop ends the maintenance loop and closes the listener. Safe to call
// before Create/Join (no-op) and idempotently afterward.
func (n *Node) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	stopCh := n.stopMaintenance
	doneCh := n.maintenanceDone
	ln := n.listener
	n.mu.Unlock()

	close(stopCh)
	<-doneCh
	if ln != nil {
		ln.Stop()
	}
	n.lgr.Info("stop: node stopped", logger.F("self", n.rt.Self().Serialize()))
}

func (n *Node) maintenanceLoop() {
	defer close(n.maintenanceDone)
	ticker := time.NewTicker(n.maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopMaintenance:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), n.requestTimeout)
			n.Stabilize(ctx)
			n.FixFingers(ctx)
			n.CheckPredecessor(ctx)
			cancel()
		}
	}
}

// ---------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------

// FindSuccessor resolves ownership of target. It never
// propagates a remote failure to the caller — on any transient error it
// falls back to the local successor.
func (n *Node) FindSuccessor(ctx context.Context, target ring.ID) transport.Address {
	ctx, span := telemetry.Tracer().Start(ctx, "chordnode.find_successor")
	defer span.End()

	self := n.rt.Self()
	succ := n.rt.Successor()

	if succ != nil && ring.InHalfOpenInterval(self.Key, succ.Key, target) {
		return *succ
	}

	cpf := n.rt.ClosestPrecedingFinger(target)
	if cpf.Equal(self) {
		if succ != nil {
			return *succ
		}
		return self
	}

	reply, ok := n.client.SendRequest(ctx, cpf, transport.FindSuccessor, target.String())
	if !ok {
		return n.fallbackSuccessor(self, succ)
	}
	addr, valid, err := transport.ParseAddress(reply)
	if err != nil || !valid {
		return n.fallbackSuccessor(self, succ)
	}
	return addr
}

func (n *Node) fallbackSuccessor(self transport.Address, succ *transport.Address) transport.Address {
	if succ != nil {
		return *succ
	}
	return self
}

// TraceSuccessor behaves like FindSuccessor but additionally reports the
// number of forwarding hops taken end to end. The reported
// hop count on a fallback path is the count accumulated so far — a
// failure does not add a hop, since no forwarding actually succeeded.
func (n *Node) TraceSuccessor(ctx context.Context, target ring.ID, hops int) (transport.Address, int) {
	self := n.rt.Self()
	succ := n.rt.Successor()

	if succ != nil && ring.InHalfOpenInterval(self.Key, succ.Key, target) {
		return *succ, hops
	}

	cpf := n.rt.ClosestPrecedingFinger(target)
	if cpf.Equal(self) {
		return n.fallbackSuccessor(self, succ), hops
	}

	reply, ok := n.client.SendRequest(ctx, cpf, transport.TraceSuccessor, target.String(), strconv.Itoa(hops))
	if !ok {
		return n.fallbackSuccessor(self, succ), hops
	}
	addr, gotHops, err := parseTraceReply(reply)
	if err != nil {
		return n.fallbackSuccessor(self, succ), hops
	}
	return addr, gotHops + 1
}

func parseTraceReply(reply string) (transport.Address, int, error) {
	idx := strings.LastIndexByte(reply, ':')
	if idx < 0 {
		return transport.Address{}, 0, fmt.Errorf("chordnode: malformed trace reply %q", reply)
	}
	addrPart, hopsPart := reply[:idx], reply[idx+1:]
	addr, ok, err := transport.ParseAddress(addrPart)
	if err != nil || !ok {
		return transport.Address{}, 0, fmt.Errorf("chordnode: malformed trace reply address %q", addrPart)
	}
	hops, err := strconv.Atoi(hopsPart)
	if err != nil {
		return transport.Address{}, 0, fmt.Errorf("chordnode: malformed trace reply hop count %q", hopsPart)
	}
	return addr, hops, nil
}

// ---------------------------------------------------------------------
// Maintenance: stabilize, notify, be_notified, fix_fingers, check_predecessor
// ---------------------------------------------------------------------

// Stabilize corrects the successor pointer and advertises self to it
//. Network failures at any step are swallowed; the final
// notify is attempted against whichever successor is current by the time
// it runs.
func (n *Node) Stabilize(ctx context.Context) {
	ctx, span := telemetry.Tracer().Start(ctx, "chordnode.stabilize")
	defer span.End()

	succ := n.rt.Successor()
	if succ == nil {
		return
	}

	self := n.rt.Self()
	reply, ok := n.client.SendRequest(ctx, *succ, transport.GetPredecessor)
	if ok {
		if x, valid, err := transport.ParseAddress(reply); err == nil && valid {
			// A node that is its own successor (solo ring) adopts any other
			// node it learns of; the open interval (self, self) is empty.
			if ring.InOpenInterval(self.Key, succ.Key, x.Key) || (succ.Equal(self) && !x.Equal(self)) {
				n.rt.SetSuccessor(x)
				succ = &x
			}
		}
	} else {
		n.lgr.Debug("stabilize: GET_PREDECESSOR failed", logger.F("successor", succ.Serialize()))
	}

	if !n.Notify(ctx, succ) {
		n.lgr.Debug("stabilize: NOTIFY failed or rejected", logger.F("successor", succ.Serialize()))
	}
}

// Notify sends a NOTIFY(self) to candidate. It returns true if candidate
// replied OK or IGNORED (both mean the peer received and parsed the
// notification); false on any other reply, network failure, or a nil
// candidate.
func (n *Node) Notify(ctx context.Context, candidate *transport.Address) bool {
	if candidate == nil {
		return false
	}
	reply, ok := n.client.SendRequest(ctx, *candidate, transport.Notify,
		n.rt.Self().Key.String(), n.rt.Self().IP, strconv.Itoa(int(n.rt.Self().Port)))
	if !ok {
		return false
	}
	return reply == transport.ReplyOK || reply == transport.ReplyIgnored
}

// BeNotified is the inbound NOTIFY handler: candidate thinks it might be
// this node's predecessor.
func (n *Node) BeNotified(candidate transport.Address) bool {
	self := n.rt.Self()
	pred := n.rt.Predecessor()

	if pred == nil {
		n.rt.SetPredecessor(candidate, true)
		n.lgr.Debug("be_notified: adopted predecessor (was unset)", logger.F("predecessor", candidate.Serialize()))
		return true
	}
	if ring.InOpenInterval(pred.Key, self.Key, candidate.Key) {
		n.rt.SetPredecessor(candidate, true)
		n.lgr.Debug("be_notified: adopted predecessor", logger.F("predecessor", candidate.Serialize()))
		return true
	}
	return false
}

// FixFingers refreshes one finger per call, advancing the cursor
// unconditionally so a persistently failing finger cannot starve the rest
// of the table.
func (n *Node) FixFingers(ctx context.Context) {
	if n.rt.Successor() == nil {
		return
	}
	i := n.rt.NextCursor()
	defer n.rt.AdvanceCursor()

	target := n.sp.FingerStart(n.rt.Self().Key, uint(i))
	addr := n.FindSuccessor(ctx, target)
	n.rt.SetFinger(i, addr)
}

// CheckPredecessor pings the predecessor and clears it if the reply is
// anything other than ALIVE, or if the request fails.
func (n *Node) CheckPredecessor(ctx context.Context) {
	pred := n.rt.Predecessor()
	if pred == nil {
		return
	}
	reply, ok := n.client.SendRequest(ctx, *pred, transport.Ping)
	if !ok || reply != transport.ReplyAlive {
		n.rt.SetPredecessor(transport.Address{}, false)
		n.lgr.Debug("check_predecessor: predecessor unresponsive, cleared")
	}
}

// ---------------------------------------------------------------------
// Inbound dispatch
// ---------------------------------------------------------------------

// Dispatch implements transport.Handler: it is invoked once per accepted
// connection with the decoded method and args, and returns the reply line
// to write back. It never panics across the dispatch boundary — malformed
// arguments are signalled by a reply sentinel instead, except for a
// malformed FIND_SUCCESSOR, which is answered with this node's own address.
func (n *Node) Dispatch(method transport.Method, args []string) string {
	switch method {
	case transport.Ping:
		return transport.ReplyAlive

	case transport.FindSuccessor:
		if len(args) != 1 {
			return n.rt.Self().Serialize()
		}
		target, err := ring.ParseID(args[0])
		if err != nil {
			return n.rt.Self().Serialize()
		}
		return n.FindSuccessor(context.Background(), target).Serialize()

	case transport.GetPredecessor:
		pred := n.rt.Predecessor()
		if pred == nil {
			return transport.NilSentinel
		}
		return pred.Serialize()

	case transport.Notify:
		if len(args) != 3 {
			return transport.ReplyInvalidNode
		}
		addr, valid, err := transport.ParseAddress(strings.Join(args, ":"))
		if err != nil || !valid {
			return transport.ReplyInvalidNode
		}
		if n.BeNotified(addr) {
			return transport.ReplyOK
		}
		return transport.ReplyIgnored

	case transport.TraceSuccessor:
		if len(args) != 2 {
			return transport.ReplyTraceErrPrefix
		}
		target, err1 := ring.ParseID(args[0])
		hops, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return transport.ReplyTraceErrPrefix
		}
		addr, newHops := n.TraceSuccessor(context.Background(), target, hops)
		return fmt.Sprintf("%s:%d", addr.Serialize(), newHops)

	default:
		return transport.ReplyInvalidMethod
	}
}
