// Package bootstrap resolves the set of peer addresses a joining node
// should try, and optionally registers/deregisters this node's own
// address with a shared discovery backend.
package bootstrap

import "context"

// Source discovers candidate bootstrap peers and, where the backend
// supports it, advertises this node's own address for others to discover.
type Source interface {
	// Discover returns the addresses of currently known peers. An empty,
	// non-error result means no ring exists yet — the caller should create
	// one rather than join.
	Discover(ctx context.Context) ([]string, error)

	// Register advertises self so later Discover calls from other nodes
	// can find it.
	Register(ctx context.Context, self string) error

	// Deregister withdraws a prior Register. Called on graceful shutdown.
	Deregister(ctx context.Context, self string) error
}
