package routebuilder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/route-command-engine/internal/route"
)

var ErrSessionNotFound = errors.New("route session not found")

// Registry holds builders by session ID.
type Registry struct {
	directions route.Directions
	opts       []Option

	mu       sync.RWMutex
	builders map[string]*Builder
}

// NewRegistry returns a registry whose builders share directions and opts.
func NewRegistry(directions route.Directions, opts ...Option) *Registry {
	return &Registry{
		directions: directions,
		opts:       opts,
		builders:   make(map[string]*Builder),
	}
}

// Create starts a new session, optionally seeded with waypoints.
func (r *Registry) Create(waypoints ...*route.Waypoint) (*Builder, error) {
	rt, err := route.New(waypoints...)
	if err != nil {
		return nil, err
	}
	opts := append(append([]Option(nil), r.opts...), WithRoute(rt))
	b := New(r.directions, opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[b.ID()]; ok {
		return nil, fmt.Errorf("session %s already exists", b.ID())
	}
	r.builders[b.ID()] = b
	return b, nil
}

func (r *Registry) Get(id string) (*Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return b, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	b, ok := r.builders[id]
	delete(r.builders, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	b.Close()
	return nil
}

// List returns the sessions ordered by ID.
func (r *Registry) List() []*Builder {
	r.mu.RLock()
	out := make([]*Builder, 0, len(r.builders))
	for _, b := range r.builders {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.builders)
}
