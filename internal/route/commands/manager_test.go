package commands

import (
	"context"
	"testing"
	"time"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/route"
)

// gatedDirections blocks every request until release is closed.
type gatedDirections struct {
	fakeDirections
	release chan struct{}
}

func (g *gatedDirections) Route(ctx context.Context, req route.DirectionsRequest) (route.DirectionsResult, error) {
	<-g.release
	return g.fakeDirections.Route(ctx, req)
}

func TestManagerSerializesRouteCommands(t *testing.T) {
	dirs := &gatedDirections{release: make(chan struct{})}
	mgr := command.NewManager()
	r := newRoute(t)

	a := route.NewWaypoint(route.NewLatLon(1, 1))
	b := route.NewWaypoint(route.NewLatLon(2, 2))
	c := route.NewWaypoint(route.NewLatLon(3, 3))

	for _, w := range []*route.Waypoint{a, b, c} {
		cmd, err := NewAddWaypoint(r, w, dirs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := mgr.ExecuteCommand(cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// a is appended synchronously; b waits on directions and c waits on b.
	if !sameSequence(r, a) {
		t.Fatalf("expected only A before directions respond, got %d waypoints", r.Len())
	}
	if mgr.UndoCount() != 3 {
		t.Fatalf("expected 3 queued entries, got %d", mgr.UndoCount())
	}

	undo, err := mgr.Undo()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	close(dirs.release)
	mustResolve(t, undo)

	if !sameSequence(r, a, b) {
		t.Fatalf("expected [A, B] after undoing C")
	}
	calls := dirs.calls()
	if len(calls) != 2 || calls[1].Origin != b.LatLon() {
		t.Fatalf("expected C to be routed from B, got %+v", calls)
	}
	if !mgr.CanRedo() || !mgr.CanUndo() {
		t.Fatalf("expected both undo and redo to be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mgr.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManagerDropsFailedRemove(t *testing.T) {
	dirs := &fakeDirections{err: errNoRoute}
	mgr := command.NewManager()
	r, a, b, c := threeWaypoints(t, true, true)

	cmd, _ := NewRemoveWaypoint(r, b, dirs)
	f, err := mgr.ExecuteCommand(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustReject(t, f)

	if !sameSequence(r, a, b, c) {
		t.Fatalf("expected route to remain [A, B, C]")
	}
	if mgr.CanUndo() {
		t.Fatalf("expected failed remove to leave no history")
	}
}
