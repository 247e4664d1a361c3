package commands

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/i474232898/route-command-engine/internal/route"
)

func threeWaypoints(t *testing.T, bFollows, cFollows bool) (*route.Route, *route.Waypoint, *route.Waypoint, *route.Waypoint) {
	t.Helper()
	a := route.NewWaypoint(route.NewLatLon(44.97, -93.26))
	b := route.NewWaypoint(route.NewLatLon(44.98, -93.27),
		route.WithFollowPaths(bFollows),
		route.WithPath(orb.LineString{{-93.26, 44.97}, {-93.27, 44.98}}, 50))
	c := route.NewWaypoint(route.NewLatLon(44.99, -93.28),
		route.WithFollowPaths(cFollows),
		route.WithPath(orb.LineString{{-93.27, 44.98}, {-93.28, 44.99}}, 60))
	return newRoute(t, a, b, c), a, b, c
}

func TestRemoveMiddleReroutes(t *testing.T) {
	ac := orb.LineString{{-93.26, 44.97}, {-93.27, 44.985}, {-93.28, 44.99}}
	dirs := &fakeDirections{result: &route.DirectionsResult{Path: ac, Distance: 95}}
	r, a, b, c := threeWaypoints(t, true, true)

	cmd, err := NewRemoveWaypoint(r, b, dirs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustResolve(t, cmd.Execute())

	calls := dirs.calls()
	if len(calls) != 1 || calls[0].Origin != a.LatLon() || calls[0].Destination != c.LatLon() {
		t.Fatalf("expected a single A->C request, got %+v", calls)
	}
	if !sameSequence(r, a, c) {
		t.Fatalf("expected [A, C]")
	}
	if c.Distance() != 95 || !c.Path().Equal(ac) {
		t.Fatalf("expected C to carry the A->C leg, got %v %v", c.Distance(), c.Path())
	}

	mustResolve(t, cmd.Undo())
	if !sameSequence(r, a, b, c) {
		t.Fatalf("expected undo to restore [A, B, C]")
	}
	if c.Distance() != 60 || len(c.Path()) != 2 {
		t.Fatalf("expected C's previous leg back, got %v %v", c.Distance(), c.Path())
	}

	mustResolve(t, cmd.Redo())
	if !sameSequence(r, a, c) || c.Distance() != 95 {
		t.Fatalf("expected redo to remove B again")
	}
}

func TestRemoveMiddleFailureKeepsWaypoint(t *testing.T) {
	dirs := &fakeDirections{err: errNoRoute}
	r, a, b, c := threeWaypoints(t, true, true)

	cmd, _ := NewRemoveWaypoint(r, b, dirs)
	if err := mustReject(t, cmd.Execute()); !errors.Is(err, errNoRoute) {
		t.Fatalf("expected errNoRoute, got %v", err)
	}
	if !sameSequence(r, a, b, c) {
		t.Fatalf("expected route to remain [A, B, C]")
	}
	if c.Distance() != 60 {
		t.Fatalf("expected C untouched, got distance %v", c.Distance())
	}
}

func TestRemoveMiddleStraightLine(t *testing.T) {
	dirs := &fakeDirections{}
	r, a, b, c := threeWaypoints(t, false, true)

	cmd, _ := NewRemoveWaypoint(r, b, dirs)
	mustResolve(t, cmd.Execute())

	if len(dirs.calls()) != 0 {
		t.Fatalf("expected no directions request")
	}
	if !sameSequence(r, a, c) {
		t.Fatalf("expected [A, C]")
	}
	path := c.Path()
	if len(path) != 2 || route.LatLonFromPoint(path[0]) != a.LatLon() || route.LatLonFromPoint(path[1]) != c.LatLon() {
		t.Fatalf("expected two-point path A->C, got %v", path)
	}
	if c.Distance() != a.DirectDistanceTo(c) {
		t.Fatalf("expected great-circle distance, got %v", c.Distance())
	}
	if c.FollowPaths() {
		t.Fatal("expected C to stop following paths")
	}

	mustResolve(t, cmd.Undo())
	if !sameSequence(r, a, b, c) || !c.FollowPaths() || c.Distance() != 60 {
		t.Fatalf("expected undo to restore C, got follow=%v distance=%v", c.FollowPaths(), c.Distance())
	}
}

func TestRemoveMiddleRoutesByRemovedWaypoint(t *testing.T) {
	ac := orb.LineString{{-93.26, 44.97}, {-93.28, 44.99}}
	dirs := &fakeDirections{result: &route.DirectionsResult{Path: ac, Distance: 88}}
	r, a, b, c := threeWaypoints(t, true, false)

	cmd, err := NewRemoveWaypoint(r, b, dirs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustResolve(t, cmd.Execute())

	calls := dirs.calls()
	if len(calls) != 1 || calls[0].Origin != a.LatLon() || calls[0].Destination != c.LatLon() {
		t.Fatalf("expected a single A->C request, got %+v", calls)
	}
	if c.Distance() != 88 || !c.Path().Equal(ac) {
		t.Fatalf("expected C to carry the routed leg, got %v %v", c.Distance(), c.Path())
	}
	if c.FollowPaths() {
		t.Fatal("routed removal changed C's followPaths")
	}

	if _, err := NewRemoveWaypoint(r, c, nil); err != nil {
		t.Fatalf("removing the last waypoint needs no directions: %v", err)
	}
}

func TestRemoveStraightMiddleNeedsNoDirections(t *testing.T) {
	r, _, b, _ := threeWaypoints(t, false, true)
	if _, err := NewRemoveWaypoint(r, b, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveFirstClearsFollowingLeg(t *testing.T) {
	r, a, b, c := threeWaypoints(t, true, true)

	cmd, _ := NewRemoveWaypoint(r, a, nil)
	mustResolve(t, cmd.Execute())
	if !sameSequence(r, b, c) {
		t.Fatalf("expected [B, C]")
	}
	if b.HasPath() || b.Distance() != 0 {
		t.Fatalf("expected B's leg to be cleared")
	}

	mustResolve(t, cmd.Undo())
	if !sameSequence(r, a, b, c) || b.Distance() != 50 || !b.HasPath() {
		t.Fatalf("expected undo to restore A and B's leg")
	}
}

func TestRemoveLast(t *testing.T) {
	r, a, b, c := threeWaypoints(t, true, true)

	cmd, _ := NewRemoveWaypoint(r, c, nil)
	mustResolve(t, cmd.Execute())
	if !sameSequence(r, a, b) || b.Distance() != 50 {
		t.Fatalf("expected [A, B] with B untouched")
	}

	// Removed by someone else before a redo.
	mustResolve(t, cmd.Undo())
	if err := r.Remove(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mustReject(t, cmd.Redo()); !errors.Is(err, route.ErrWaypointNotFound) {
		t.Fatalf("expected ErrWaypointNotFound, got %v", err)
	}
}
