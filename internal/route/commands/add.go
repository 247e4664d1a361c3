package commands

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

// AddWaypoint appends a waypoint to a route, computing the leg from the current
// last waypoint. The Future resolves with the waypoint.
type AddWaypoint struct {
	*base
	waypoint *route.Waypoint
}

var _ command.Command = (*AddWaypoint)(nil)

func NewAddWaypoint(r *route.Route, w *route.Waypoint, d route.Directions) (*AddWaypoint, error) {
	b, err := newBase(r, d)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: nil waypoint", command.ErrInvalidArgument)
	}
	if r.Has(w) {
		return nil, fmt.Errorf("%w: waypoint %s is already in the route", command.ErrInvalidArgument, w.ID())
	}
	if err := needsDirections(d, w); err != nil {
		return nil, err
	}
	return &AddWaypoint{base: b, waypoint: w}, nil
}

func (c *AddWaypoint) Description() string {
	return "add waypoint " + c.waypoint.ID()
}

func (c *AddWaypoint) Execute() *future.Future { return c.forward(c.add) }

func (c *AddWaypoint) Redo() *future.Future { return c.forward(c.add) }

func (c *AddWaypoint) Undo() *future.Future {
	return c.backward(func() *future.Future {
		if err := c.route.Remove(c.waypoint); err != nil {
			return future.Rejected(err)
		}
		c.restoreStates()
		return future.Resolved(c.waypoint)
	})
}

func (c *AddWaypoint) add() *future.Future {
	c.begin()
	c.capture(c.waypoint)

	last := c.route.Last()
	switch {
	case last == nil || c.waypoint.HasPath():
		return c.appendNow()
	case !c.waypoint.FollowPaths():
		_ = c.waypoint.SetDistance(last.DirectDistanceTo(c.waypoint))
		return c.appendNow()
	}

	c.capture(last)
	result := future.New()
	route.FetchPath(context.Background(), c.directions, last, c.waypoint).
		Done(func(args ...any) {
			err := route.ApplyLeg(last, c.waypoint, args[0].(orb.LineString), args[1].(float64))
			if err == nil {
				err = c.route.Add(c.waypoint)
			}
			if err != nil {
				c.restoreStates()
				result.Reject(err)
				return
			}
			result.Resolve(c.waypoint)
		}).
		Fail(result.Reject)
	return result
}

func (c *AddWaypoint) appendNow() *future.Future {
	if err := c.route.Add(c.waypoint); err != nil {
		c.restoreStates()
		return future.Rejected(err)
	}
	return future.Resolved(c.waypoint)
}
