// Package route models an ordered sequence of waypoints and the legs between them.
package route

import (
	"errors"
	"fmt"
	"sync"

	"github.com/i474232898/route-command-engine/internal/command"
)

var (
	ErrInvalidArgument   = command.ErrInvalidArgument
	ErrDuplicateWaypoint = errors.New("route: duplicate waypoint")
	ErrWaypointNotFound  = errors.New("route: waypoint not found")
)

// Route is an ordered sequence of waypoints in travel order. It is safe for
// concurrent readers; writers are expected to be commands run by a command.Manager.
type Route struct {
	Emitter

	mu        sync.RWMutex
	waypoints []*Waypoint
	unsub     map[*Waypoint]func()
}

// New returns a route holding waypoints.
func New(waypoints ...*Waypoint) (*Route, error) {
	r := &Route{unsub: make(map[*Waypoint]func())}
	if err := checkDistinct(waypoints); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.attachLocked(waypoints)
	r.mu.Unlock()
	return r, nil
}

func checkDistinct(waypoints []*Waypoint) error {
	seen := make(map[*Waypoint]struct{}, len(waypoints))
	for _, w := range waypoints {
		if w == nil {
			return fmt.Errorf("%w: nil waypoint", ErrInvalidArgument)
		}
		if _, ok := seen[w]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateWaypoint, w.ID())
		}
		seen[w] = struct{}{}
	}
	return nil
}

func (r *Route) attachLocked(waypoints []*Waypoint) {
	for _, w := range waypoints {
		r.waypoints = append(r.waypoints, w)
		r.unsub[w] = w.Subscribe(EventChangeDistance, r.forwardDistance)
	}
}

func (r *Route) detachLocked(w *Waypoint) {
	if unsub, ok := r.unsub[w]; ok {
		unsub()
		delete(r.unsub, w)
	}
}

func (r *Route) forwardDistance(ev Event) {
	r.emit(Event{
		Name:     EventChangeDistance,
		Waypoint: ev.Waypoint,
		Value:    r.Distance(),
		Delta:    ev.Delta,
	})
}

// Add appends w.
func (r *Route) Add(w *Waypoint) error {
	if w == nil {
		return fmt.Errorf("%w: nil waypoint", ErrInvalidArgument)
	}
	r.mu.Lock()
	if r.indexLocked(w) >= 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateWaypoint, w.ID())
	}
	r.attachLocked([]*Waypoint{w})
	idx := len(r.waypoints) - 1
	r.mu.Unlock()

	r.emit(Event{Name: EventAdd, Waypoint: w, Index: idx})
	return nil
}

// Remove detaches w.
func (r *Route) Remove(w *Waypoint) error {
	r.mu.Lock()
	idx := r.indexLocked(w)
	if idx < 0 {
		r.mu.Unlock()
		return ErrWaypointNotFound
	}
	r.waypoints = append(r.waypoints[:idx:idx], r.waypoints[idx+1:]...)
	r.detachLocked(w)
	r.mu.Unlock()

	r.emit(Event{Name: EventRemove, Waypoint: w, Index: idx})
	return nil
}

// Reset replaces the whole sequence.
func (r *Route) Reset(waypoints []*Waypoint) error {
	if err := checkDistinct(waypoints); err != nil {
		return err
	}
	r.mu.Lock()
	for _, w := range r.waypoints {
		r.detachLocked(w)
	}
	r.waypoints = nil
	r.attachLocked(waypoints)
	r.mu.Unlock()

	r.emit(Event{Name: EventReset})
	return nil
}

func (r *Route) indexLocked(w *Waypoint) int {
	for i, x := range r.waypoints {
		if x == w {
			return i
		}
	}
	return -1
}

func (r *Route) IndexOf(w *Waypoint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(w)
}

func (r *Route) Has(w *Waypoint) bool {
	return r.IndexOf(w) >= 0
}

func (r *Route) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.waypoints)
}

// Waypoints returns a copy of the sequence.
func (r *Route) Waypoints() []*Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Waypoint(nil), r.waypoints...)
}

func (r *Route) First() *Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.waypoints) == 0 {
		return nil
	}
	return r.waypoints[0]
}

func (r *Route) Last() *Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.waypoints) == 0 {
		return nil
	}
	return r.waypoints[len(r.waypoints)-1]
}

// Next returns the waypoint after w, or nil.
func (r *Route) Next(w *Waypoint) *Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(w)
	if idx < 0 || idx+1 >= len(r.waypoints) {
		return nil
	}
	return r.waypoints[idx+1]
}

// Previous returns the waypoint before w, or nil.
func (r *Route) Previous(w *Waypoint) *Waypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(w)
	if idx <= 0 {
		return nil
	}
	return r.waypoints[idx-1]
}

// Get looks a waypoint up by ID.
func (r *Route) Get(id string) (*Waypoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.waypoints {
		if w.ID() == id {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWaypointNotFound, id)
}

// Distance is the sum of the leg distances in meters.
func (r *Route) Distance() float64 {
	var total float64
	for _, w := range r.Waypoints() {
		total += w.Distance()
	}
	return total
}
