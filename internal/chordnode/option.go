package chordnode

import (
	"time"

	"github.com/jacklowrie/chordnet/internal/logger"
)

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger sets the node's logger (default logger.NopLogger).
func WithLogger(lgr logger.Logger) Option {
	return func(n *Node) { n.lgr = lgr }
}

// WithMaintenanceInterval sets the stabilize/fix-fingers/check-predecessor
// tick interval (default 1 second).
func WithMaintenanceInterval(d time.Duration) Option {
	return func(n *Node) { n.maintenanceInterval = d }
}

// WithRequestTimeout sets the outbound RPC timeout (default 5 seconds).
func WithRequestTimeout(d time.Duration) Option {
	return func(n *Node) { n.requestTimeout = d }
}

// WithMaxConcurrentHandlers bounds the listener's concurrent inbound
// handlers (default unbounded).
func WithMaxConcurrentHandlers(n int) Option {
	return func(node *Node) { node.maxConcurrentHandlers = n }
}
