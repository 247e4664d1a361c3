package commands

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

// RemoveWaypoint detaches a waypoint once the leg that replaces it is known.
//
// Removing the first waypoint clears the following leg. Removing a middle waypoint
// reconnects its neighbours, routed when the removed waypoint follows paths; otherwise
// the following waypoint gets a straight leg and stops following paths. Removing the last waypoint touches nothing else.
type RemoveWaypoint struct {
	*base
	waypoint *route.Waypoint
}

var _ command.Command = (*RemoveWaypoint)(nil)

func NewRemoveWaypoint(r *route.Route, w *route.Waypoint, d route.Directions) (*RemoveWaypoint, error) {
	b, err := newBase(r, d)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: nil waypoint", command.ErrInvalidArgument)
	}
	if !r.Has(w) {
		return nil, fmt.Errorf("%w: cannot remove waypoint %s, it is not in the route",
			command.ErrInvalidArgument, w.ID())
	}
	if r.Previous(w) != nil && r.Next(w) != nil {
		if err := needsDirections(d, w); err != nil {
			return nil, err
		}
	}
	return &RemoveWaypoint{base: b, waypoint: w}, nil
}

func (c *RemoveWaypoint) Description() string {
	return "remove waypoint " + c.waypoint.ID()
}

func (c *RemoveWaypoint) Execute() *future.Future { return c.forward(c.remove) }

func (c *RemoveWaypoint) Redo() *future.Future { return c.forward(c.remove) }

func (c *RemoveWaypoint) Undo() *future.Future {
	return c.backward(func() *future.Future {
		return settled(c.restoreAll(), c.waypoint)
	})
}

func (c *RemoveWaypoint) remove() *future.Future {
	c.begin()
	if !c.route.Has(c.waypoint) {
		return future.Rejected(fmt.Errorf("%w: %s", route.ErrWaypointNotFound, c.waypoint.ID()))
	}

	prev, next := c.route.Previous(c.waypoint), c.route.Next(c.waypoint)
	var step *future.Future

	switch {
	case next == nil:
		step = future.Resolved()

	case prev == nil:
		c.capture(next)
		step = settled(next.Set(map[string]any{"path": nil, "distance": 0.0}))

	case c.waypoint.FollowPaths():
		c.capture(next)
		leg := future.New()
		route.FetchPath(context.Background(), c.directions, prev, next).
			Done(func(args ...any) {
				err := next.Set(map[string]any{
					"path":     args[0].(orb.LineString),
					"distance": args[1].(float64),
				})
				if err != nil {
					leg.Reject(err)
					return
				}
				leg.Resolve()
			}).
			Fail(leg.Reject)
		step = leg

	default:
		c.capture(next)
		step = settled(next.Set(map[string]any{
			"path":        route.StraightPath(prev.LatLon(), next.LatLon()),
			"followPaths": false,
			"distance":    prev.DirectDistanceTo(next),
		}))
	}

	result := future.New()
	step.
		Done(func(...any) {
			if err := c.route.Remove(c.waypoint); err != nil {
				c.restoreStates()
				result.Reject(err)
				return
			}
			result.Resolve(c.waypoint)
		}).
		Fail(func(args ...any) {
			c.restoreStates()
			result.Reject(args...)
		})
	return result
}
