package route

import (
	"errors"
	"math"
	"testing"
)

func newTestRoute(t *testing.T, waypoints ...*Waypoint) *Route {
	t.Helper()
	r, err := New(waypoints...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRoutePositionalQueries(t *testing.T) {
	a := NewWaypoint(NewLatLon(44.97, -93.26))
	b := NewWaypoint(NewLatLon(44.98, -93.27))
	c := NewWaypoint(NewLatLon(44.99, -93.28))
	r := newTestRoute(t, a, b, c)

	if r.First() != a || r.Last() != c {
		t.Fatalf("expected first/last to be a/c")
	}
	if r.Next(a) != b || r.Next(c) != nil {
		t.Fatalf("unexpected Next results")
	}
	if r.Previous(b) != a || r.Previous(a) != nil {
		t.Fatalf("unexpected Previous results")
	}
	if r.IndexOf(b) != 1 || r.IndexOf(NewWaypoint(LatLon{})) != -1 {
		t.Fatalf("unexpected IndexOf results")
	}

	got, err := r.Get(b.ID())
	if err != nil || got != b {
		t.Fatalf("expected Get to find b, got %v, %v", got, err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrWaypointNotFound) {
		t.Fatalf("expected ErrWaypointNotFound, got %v", err)
	}
}

func TestRouteRejectsDuplicates(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	r := newTestRoute(t, a)

	if err := r.Add(a); !errors.Is(err, ErrDuplicateWaypoint) {
		t.Fatalf("expected ErrDuplicateWaypoint, got %v", err)
	}
	if err := r.Reset([]*Waypoint{a, a}); !errors.Is(err, ErrDuplicateWaypoint) {
		t.Fatalf("expected ErrDuplicateWaypoint on reset, got %v", err)
	}
	if _, err := New(a, a); !errors.Is(err, ErrDuplicateWaypoint) {
		t.Fatalf("expected ErrDuplicateWaypoint on New, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected route to keep 1 waypoint, got %d", r.Len())
	}
}

func TestRouteRemove(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	b := NewWaypoint(NewLatLon(2, 2))
	r := newTestRoute(t, a, b)

	var removed []int
	r.Subscribe(EventRemove, func(ev Event) { removed = append(removed, ev.Index) })

	if err := r.Remove(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Remove(a); !errors.Is(err, ErrWaypointNotFound) {
		t.Fatalf("expected ErrWaypointNotFound, got %v", err)
	}
	if r.Has(a) || !r.Has(b) {
		t.Fatalf("expected only b to remain")
	}
	if len(removed) != 1 || removed[0] != 0 {
		t.Fatalf("expected one remove event at index 0, got %v", removed)
	}
}

func TestRouteForwardsDistanceChanges(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	b := NewWaypoint(NewLatLon(2, 2))
	r := newTestRoute(t, a, b)

	var events []Event
	r.Subscribe(EventChangeDistance, func(ev Event) { events = append(events, ev) })

	if err := b.SetDistance(100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Value != 100 || events[0].Delta != 100 {
		t.Fatalf("unexpected events: %+v", events)
	}

	// Detached waypoints no longer reach the route.
	if err := r.Remove(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = b.SetDistance(50)
	if len(events) != 1 {
		t.Fatalf("expected no event after removal, got %d", len(events))
	}
	if b.SubscriberCount(EventChangeDistance) != 0 {
		t.Fatalf("expected route subscription to be released")
	}
}

func TestRouteResetReplacesSubscriptions(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	b := NewWaypoint(NewLatLon(2, 2))
	r := newTestRoute(t, a)

	resets := 0
	r.Subscribe(EventReset, func(Event) { resets++ })

	if err := r.Reset([]*Waypoint{b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resets != 1 {
		t.Fatalf("expected one reset event, got %d", resets)
	}
	if a.SubscriberCount(EventChangeDistance) != 0 || b.SubscriberCount(EventChangeDistance) != 1 {
		t.Fatalf("expected subscriptions to move from a to b")
	}
}

func TestRouteDistance(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	b := NewWaypoint(NewLatLon(2, 2), WithPath(nil, 120))
	c := NewWaypoint(NewLatLon(3, 3), WithPath(nil, 30.5))
	r := newTestRoute(t, a, b, c)

	if got := r.Distance(); math.Abs(got-150.5) > 1e-9 {
		t.Fatalf("expected distance 150.5, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	a := NewWaypoint(NewLatLon(1, 1))
	b := NewWaypoint(NewLatLon(2, 2), WithPath(nil, 100), WithTravelMode(TravelModeDriving))
	c := NewWaypoint(NewLatLon(3, 3), WithPath(nil, 40), WithFollowPaths(false))
	d := NewWaypoint(NewLatLon(4, 4), WithPath(nil, 60), WithTravelMode(TravelModeDriving))

	s := Summarize([]*Waypoint{a, b, c, d})
	if s.Waypoints != 4 || s.Legs != 3 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.RoutedLegs != 2 || s.StraightLegs != 1 {
		t.Fatalf("unexpected leg kinds: %+v", s)
	}
	if s.TotalDistance != 200 || s.LongestLeg != 100 {
		t.Fatalf("unexpected distances: %+v", s)
	}
	if m := s.ByMode[TravelModeDriving]; m.Legs != 2 || m.Distance != 160 {
		t.Fatalf("unexpected driving summary: %+v", m)
	}
	if m := s.ByMode[TravelModeWalking]; m.Legs != 1 || m.Distance != 40 {
		t.Fatalf("unexpected walking summary: %+v", m)
	}

	if empty := Summarize(nil); empty.Legs != 0 || empty.ByMode == nil {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}
