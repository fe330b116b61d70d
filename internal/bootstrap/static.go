package bootstrap

import "context"

// Static returns a fixed, operator-supplied list of peers. Register and
// Deregister are no-ops — a static list has nothing to update.
type Static struct {
	peers []string
}

// NewStatic builds a Static source from a fixed peer list.
func NewStatic(peers []string) *Static {
	out := make([]string, len(peers))
	copy(out, peers)
	return &Static{peers: out}
}

func (s *Static) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

func (s *Static) Register(ctx context.Context, self string) error { return nil }

func (s *Static) Deregister(ctx context.Context, self string) error { return nil }
