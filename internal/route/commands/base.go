// Package commands implements the route mutations run through a command.Manager.
package commands

import (
	"fmt"
	"sync"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

// lifecycle enforces the execute/undo alternation. A rejected step reverts the flag.
type lifecycle struct {
	mu       sync.Mutex
	executed bool
}

func (l *lifecycle) forward(fn func() *future.Future) *future.Future {
	l.mu.Lock()
	if l.executed {
		l.mu.Unlock()
		return future.Rejected(command.ErrAlreadyExecuted)
	}
	l.executed = true
	l.mu.Unlock()

	return l.track(fn(), false)
}

func (l *lifecycle) backward(fn func() *future.Future) *future.Future {
	l.mu.Lock()
	if !l.executed {
		l.mu.Unlock()
		return future.Rejected(command.ErrNotExecuted)
	}
	l.executed = false
	l.mu.Unlock()

	return l.track(fn(), true)
}

// track returns a Future that settles like f once a rejection has reverted the flag.
func (l *lifecycle) track(f *future.Future, revert bool) *future.Future {
	out := future.New()
	f.Done(out.Resolve).Fail(func(args ...any) {
		l.set(revert)
		out.Reject(args...)
	})
	return out
}

func (l *lifecycle) set(executed bool) {
	l.mu.Lock()
	l.executed = executed
	l.mu.Unlock()
}

// base holds what every route command shares: the target route, the directions
// service and the state captured when the command last ran forward.
type base struct {
	lifecycle

	route      *route.Route
	directions route.Directions

	prior []*route.Waypoint
	saved map[*route.Waypoint]route.WaypointState
	order []*route.Waypoint
}

func newBase(r *route.Route, d route.Directions) (*base, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil route", command.ErrInvalidArgument)
	}
	return &base{route: r, directions: d}, nil
}

// begin records the current sequence and drops state captured by an earlier run.
func (b *base) begin() {
	b.prior = b.route.Waypoints()
	b.saved = make(map[*route.Waypoint]route.WaypointState)
	b.order = nil
}

// capture saves the state of each waypoint the first time it is touched.
func (b *base) capture(waypoints ...*route.Waypoint) {
	for _, w := range waypoints {
		if _, ok := b.saved[w]; ok {
			continue
		}
		b.saved[w] = w.State()
		b.order = append(b.order, w)
	}
}

// restoreStates reverts every captured waypoint.
func (b *base) restoreStates() {
	for _, w := range b.order {
		w.Restore(b.saved[w])
	}
}

// restoreAll puts the recorded sequence back and reverts captured waypoints.
func (b *base) restoreAll() error {
	if err := b.route.Reset(b.prior); err != nil {
		return err
	}
	b.restoreStates()
	return nil
}

func needsDirections(d route.Directions, waypoints ...*route.Waypoint) error {
	if d != nil {
		return nil
	}
	for _, w := range waypoints {
		if w != nil && w.FollowPaths() {
			return fmt.Errorf("%w: waypoint %s follows paths but no directions service is set",
				command.ErrInvalidArgument, w.ID())
		}
	}
	return nil
}

func settled(err error, args ...any) *future.Future {
	if err != nil {
		return future.Rejected(err)
	}
	return future.Resolved(args...)
}
