package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

var errNoRoute = errors.New("no route")

// fakeDirections records requests. With a fixed result it returns it, otherwise a
// straight path with a 100m leg.
type fakeDirections struct {
	mu       sync.Mutex
	requests []route.DirectionsRequest
	result   *route.DirectionsResult
	err      error
}

func (f *fakeDirections) Route(_ context.Context, req route.DirectionsRequest) (route.DirectionsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return route.DirectionsResult{}, f.err
	}
	if f.result != nil {
		return *f.result, nil
	}
	return route.DirectionsResult{Path: route.StraightPath(req.Origin, req.Destination), Distance: 100}, nil
}

func (f *fakeDirections) calls() []route.DirectionsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]route.DirectionsRequest(nil), f.requests...)
}

func wait(t *testing.T, f *future.Future) ([]any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	args, err := f.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("future did not settle")
	}
	return args, err
}

func mustResolve(t *testing.T, f *future.Future) []any {
	t.Helper()
	args, err := wait(t, f)
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	return args
}

func mustReject(t *testing.T, f *future.Future) error {
	t.Helper()
	_, err := wait(t, f)
	if err == nil {
		t.Fatalf("expected rejection")
	}
	return err
}

func newRoute(t *testing.T, waypoints ...*route.Waypoint) *route.Route {
	t.Helper()
	r, err := route.New(waypoints...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func sameSequence(r *route.Route, want ...*route.Waypoint) bool {
	got := r.Waypoints()
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestAddWaypointScenario(t *testing.T) {
	p := orb.LineString{{-93.2600, 44.9700}, {-93.2650, 44.9750}, {-93.2700, 44.9800}}
	dirs := &fakeDirections{result: &route.DirectionsResult{Path: p, Distance: 120}}
	r := newRoute(t)

	a := route.NewWaypoint(route.NewLatLon(44.97, -93.26), route.WithFollowPaths(false))
	b := route.NewWaypoint(route.NewLatLon(44.98, -93.27), route.WithTravelMode(route.TravelModeWalking))

	addA, err := NewAddWaypoint(r, a, dirs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f := addA.Execute(); f.State() != future.StateResolved {
		t.Fatalf("expected first add to resolve synchronously, got %s", f.State())
	}
	if !sameSequence(r, a) || r.Distance() != 0 {
		t.Fatalf("expected [A] with distance 0")
	}

	addB, err := NewAddWaypoint(r, b, dirs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := mustResolve(t, addB.Execute())
	if args[0] != b {
		t.Fatalf("expected resolution with b, got %v", args)
	}

	if !sameSequence(r, a, b) {
		t.Fatalf("expected [A, B]")
	}
	if b.Distance() != 120 || !b.Path().Equal(p) {
		t.Fatalf("expected B distance 120 and path P, got %v %v", b.Distance(), b.Path())
	}
	calls := dirs.calls()
	if len(calls) != 1 || calls[0].Origin != a.OriginalLatLon() || calls[0].TravelMode != route.TravelModeWalking {
		t.Fatalf("unexpected directions requests: %+v", calls)
	}
	if ll, _ := a.GeocodedLatLon(); ll != route.LatLonFromPoint(p[0]) {
		t.Fatalf("expected origin geocoded to path start, got %v", ll)
	}
	if ll, _ := b.GeocodedLatLon(); ll != route.LatLonFromPoint(p[2]) {
		t.Fatalf("expected destination geocoded to path end, got %v", ll)
	}
}

func TestAddWaypointStraightLine(t *testing.T) {
	a := route.NewWaypoint(route.NewLatLon(0, 0))
	b := route.NewWaypoint(route.NewLatLon(0, 1), route.WithFollowPaths(false))
	r := newRoute(t, a)

	cmd, err := NewAddWaypoint(r, b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f := cmd.Execute(); f.State() != future.StateResolved {
		t.Fatalf("expected synchronous resolution")
	}
	if want := a.DirectDistanceTo(b); b.Distance() != want {
		t.Fatalf("expected distance %v, got %v", want, b.Distance())
	}
}

func TestAddWaypointWithPathSkipsDirections(t *testing.T) {
	dirs := &fakeDirections{}
	a := route.NewWaypoint(route.NewLatLon(0, 0))
	b := route.NewWaypoint(route.NewLatLon(0, 1), route.WithPath(orb.LineString{{0, 0}, {1, 0}}, 7))
	r := newRoute(t, a)

	cmd, _ := NewAddWaypoint(r, b, dirs)
	mustResolve(t, cmd.Execute())
	if len(dirs.calls()) != 0 || b.Distance() != 7 {
		t.Fatalf("expected preset path to be kept without a request")
	}
}

func TestAddWaypointFailure(t *testing.T) {
	dirs := &fakeDirections{err: errNoRoute}
	a := route.NewWaypoint(route.NewLatLon(0, 0))
	b := route.NewWaypoint(route.NewLatLon(0, 1))
	r := newRoute(t, a)

	cmd, _ := NewAddWaypoint(r, b, dirs)
	if err := mustReject(t, cmd.Execute()); !errors.Is(err, errNoRoute) {
		t.Fatalf("expected errNoRoute, got %v", err)
	}
	if r.Has(b) {
		t.Fatalf("expected b not to be appended")
	}

	// The failed run does not count as executed.
	dirs.mu.Lock()
	dirs.err = nil
	dirs.mu.Unlock()
	mustResolve(t, cmd.Execute())
	if !sameSequence(r, a, b) {
		t.Fatalf("expected retry to append b")
	}
}

func TestAddWaypointUndoRedo(t *testing.T) {
	dirs := &fakeDirections{}
	a := route.NewWaypoint(route.NewLatLon(0, 0))
	b := route.NewWaypoint(route.NewLatLon(0, 1))
	r := newRoute(t, a)

	cmd, _ := NewAddWaypoint(r, b, dirs)
	mustResolve(t, cmd.Execute())

	mustResolve(t, cmd.Undo())
	if !sameSequence(r, a) {
		t.Fatalf("expected undo to remove b")
	}
	if _, ok := a.GeocodedLatLon(); ok {
		t.Fatalf("expected origin geocoding to be reverted")
	}
	if b.HasPath() || b.Distance() != 0 {
		t.Fatalf("expected b's leg to be reverted")
	}

	mustResolve(t, cmd.Redo())
	if !sameSequence(r, a, b) || b.Distance() != 100 {
		t.Fatalf("expected redo to re-add b with its leg")
	}
	if len(dirs.calls()) != 2 {
		t.Fatalf("expected redo to request the leg again, got %d requests", len(dirs.calls()))
	}
}

func TestLifecycleErrors(t *testing.T) {
	r := newRoute(t)
	cmd, _ := NewAddWaypoint(r, route.NewWaypoint(route.NewLatLon(1, 1)), &fakeDirections{})

	if err := mustReject(t, cmd.Undo()); !errors.Is(err, command.ErrNotExecuted) {
		t.Fatalf("expected ErrNotExecuted, got %v", err)
	}
	mustResolve(t, cmd.Execute())
	if err := mustReject(t, cmd.Execute()); !errors.Is(err, command.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}
	if err := mustReject(t, cmd.Redo()); !errors.Is(err, command.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted on redo, got %v", err)
	}
}

func TestConstructorValidation(t *testing.T) {
	a := route.NewWaypoint(route.NewLatLon(1, 1))
	b := route.NewWaypoint(route.NewLatLon(2, 2))
	c := route.NewWaypoint(route.NewLatLon(3, 3))
	r := newRoute(t, a, b, c)
	outsider := route.NewWaypoint(route.NewLatLon(4, 4))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"add nil route", func() error { _, err := NewAddWaypoint(nil, outsider, &fakeDirections{}); return err }},
		{"add nil waypoint", func() error { _, err := NewAddWaypoint(r, nil, &fakeDirections{}); return err }},
		{"add existing waypoint", func() error { _, err := NewAddWaypoint(r, a, &fakeDirections{}); return err }},
		{"add without directions", func() error { _, err := NewAddWaypoint(r, outsider, nil); return err }},
		{"remove missing waypoint", func() error { _, err := NewRemoveWaypoint(r, outsider, &fakeDirections{}); return err }},
		{"remove middle without directions", func() error { _, err := NewRemoveWaypoint(r, b, nil); return err }},
		{"reset duplicates", func() error { _, err := NewResetRoute(r, []*route.Waypoint{a, a}, false, nil); return err }},
		{"reset nil waypoint", func() error { _, err := NewResetRoute(r, []*route.Waypoint{nil}, false, nil); return err }},
		{"refresh without directions", func() error { _, err := NewResetRoute(r, []*route.Waypoint{a, b}, true, nil); return err }},
		{"clear nil route", func() error { _, err := NewClearRoute(nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, command.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	// Removing the first or last waypoint never needs directions.
	if _, err := NewRemoveWaypoint(r, a, nil); err != nil {
		t.Fatalf("unexpected error removing first: %v", err)
	}
	if _, err := NewRemoveWaypoint(r, c, nil); err != nil {
		t.Fatalf("unexpected error removing last: %v", err)
	}
}
