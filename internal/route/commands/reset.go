package commands

import (
	"fmt"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

// ResetRoute replaces the whole waypoint sequence.
//
// In refresh mode the route is emptied and every waypoint goes through the
// add-waypoint pipeline in order, so legs are recomputed. A failed add rejects the
// command and puts the previous sequence back.
type ResetRoute struct {
	*base
	waypoints []*route.Waypoint
	refresh   bool
}

var _ command.Command = (*ResetRoute)(nil)

func NewResetRoute(r *route.Route, waypoints []*route.Waypoint, refresh bool, d route.Directions) (*ResetRoute, error) {
	b, err := newBase(r, d)
	if err != nil {
		return nil, err
	}
	seen := make(map[*route.Waypoint]struct{}, len(waypoints))
	for _, w := range waypoints {
		if w == nil {
			return nil, fmt.Errorf("%w: unable to reset route: nil waypoint", command.ErrInvalidArgument)
		}
		if _, ok := seen[w]; ok {
			return nil, fmt.Errorf("%w: unable to reset route: waypoint %s listed twice",
				command.ErrInvalidArgument, w.ID())
		}
		seen[w] = struct{}{}
	}
	if refresh && len(waypoints) > 1 {
		if err := needsDirections(d, waypoints[1:]...); err != nil {
			return nil, err
		}
	}
	return &ResetRoute{
		base:      b,
		waypoints: append([]*route.Waypoint(nil), waypoints...),
		refresh:   refresh,
	}, nil
}

func (c *ResetRoute) Description() string {
	if c.refresh {
		return fmt.Sprintf("refresh route (%d waypoints)", len(c.waypoints))
	}
	return fmt.Sprintf("reset route (%d waypoints)", len(c.waypoints))
}

func (c *ResetRoute) Execute() *future.Future { return c.forward(c.reset) }

func (c *ResetRoute) Redo() *future.Future { return c.forward(c.reset) }

func (c *ResetRoute) Undo() *future.Future {
	return c.backward(func() *future.Future {
		return settled(c.restoreAll())
	})
}

func (c *ResetRoute) reset() *future.Future {
	c.begin()
	c.capture(c.waypoints...)

	if !c.refresh {
		return settled(c.route.Reset(c.waypoints))
	}
	return c.addAll()
}

func (c *ResetRoute) addAll() *future.Future {
	if err := c.route.Reset(nil); err != nil {
		return future.Rejected(err)
	}

	adds := make([]*future.Future, len(c.waypoints))
	prev := future.Resolved()
	for i, w := range c.waypoints {
		if err := w.Set(map[string]any{"path": nil, "distance": 0.0}); err != nil {
			return c.abort(err)
		}
		add := &AddWaypoint{base: &base{route: c.route, directions: c.directions}, waypoint: w}
		next := future.New()
		prev.
			Done(func(...any) { add.Execute().Pipe(next) }).
			Fail(next.Reject)
		adds[i] = next
		prev = next
	}

	result := future.New()
	future.WhenAll(adds...).
		Done(func(...any) { result.Resolve() }).
		Fail(func(args ...any) {
			_ = c.restoreAll()
			result.Reject(args...)
		})
	return result
}

func (c *ResetRoute) abort(err error) *future.Future {
	_ = c.restoreAll()
	return future.Rejected(err)
}
