// Package routebuilder ties a route to a command manager and a directions service.
package routebuilder

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
	"github.com/i474232898/route-command-engine/internal/route/commands"
)

// Builder edits one route through undoable commands.
type Builder struct {
	id         string
	directions route.Directions
	manager    *command.Manager
	logger     zerolog.Logger
	maxHistory int

	mu     sync.RWMutex
	route  *route.Route
	unsubs []func()

	revision    atomic.Uint64
	snapshotted atomic.Uint64
}

// Option configures a Builder.
type Option func(*Builder)

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(b *Builder) { b.id = id }
}

// WithRoute edits r instead of a new empty route.
func WithRoute(r *route.Route) Option {
	return func(b *Builder) { b.route = r }
}

// WithHistoryLimit caps the undo history.
func WithHistoryLimit(n int) Option {
	return func(b *Builder) { b.maxHistory = n }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New returns a Builder. directions may be nil when only straight legs are used.
func New(directions route.Directions, opts ...Option) *Builder {
	b := &Builder{
		id:         uuid.NewString(),
		directions: directions,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("session", b.id).Logger()
	b.manager = command.NewManager(
		command.WithMaxHistory(b.maxHistory),
		command.WithLogger(b.logger.With().Str("component", "commands").Logger()),
	)
	if b.route == nil {
		b.route, _ = route.New()
	}
	b.bind(b.route)
	return b
}

func (b *Builder) ID() string { return b.id }

func (b *Builder) Route() *route.Route {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.route
}

// SetRoute moves the builder to r. History recorded against the old route is dropped.
func (b *Builder) SetRoute(r *route.Route) {
	b.mu.Lock()
	b.unbindLocked()
	b.route = r
	b.mu.Unlock()

	b.bind(r)
	b.manager.Clear()
	b.touch(route.Event{Name: route.EventReset})
}

func (b *Builder) bind(r *route.Route) {
	var unsubs []func()
	for _, name := range []string{route.EventAdd, route.EventRemove, route.EventReset, route.EventChangeDistance} {
		unsubs = append(unsubs, r.Subscribe(name, b.touch))
	}
	b.mu.Lock()
	b.unsubs = unsubs
	b.mu.Unlock()
}

func (b *Builder) unbindLocked() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
}

// Close releases the route subscriptions.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unbindLocked()
}

func (b *Builder) touch(ev route.Event) {
	rev := b.revision.Add(1)
	b.logger.Debug().Str("event", ev.Name).Uint64("revision", rev).Msg("route changed")
}

// Revision increases on every route change.
func (b *Builder) Revision() uint64 { return b.revision.Load() }

func (b *Builder) submit(cmd command.Command, err error) (*future.Future, error) {
	if err != nil {
		return nil, err
	}
	b.logger.Debug().Str("command", command.Describe(cmd)).Msg("submitting command")
	return b.manager.ExecuteCommand(cmd)
}

func (b *Builder) AddWaypoint(w *route.Waypoint) (*future.Future, error) {
	return b.submit(commands.NewAddWaypoint(b.Route(), w, b.directions))
}

func (b *Builder) RemoveWaypoint(w *route.Waypoint) (*future.Future, error) {
	return b.submit(commands.NewRemoveWaypoint(b.Route(), w, b.directions))
}

// RemoveWaypointByID removes the waypoint with the given ID.
func (b *Builder) RemoveWaypointByID(id string) (*future.Future, error) {
	w, err := b.Route().Get(id)
	if err != nil {
		return nil, err
	}
	return b.RemoveWaypoint(w)
}

func (b *Builder) ResetRoute(waypoints []*route.Waypoint, refresh bool) (*future.Future, error) {
	return b.submit(commands.NewResetRoute(b.Route(), waypoints, refresh, b.directions))
}

func (b *Builder) ClearRoute() (*future.Future, error) {
	return b.submit(commands.NewClearRoute(b.Route()))
}

// ImportRoute resets the route from a document produced by ExportRoute.
func (b *Builder) ImportRoute(doc []byte, refresh bool) (*future.Future, error) {
	waypoints, err := route.Import(doc)
	if err != nil {
		return nil, err
	}
	return b.ResetRoute(waypoints, refresh)
}

func (b *Builder) ExportRoute() ([]byte, error) {
	return b.Route().Export()
}

func (b *Builder) Undo() (*future.Future, error) { return b.manager.Undo() }

func (b *Builder) Redo() (*future.Future, error) { return b.manager.Redo() }

func (b *Builder) CanUndo() bool { return b.manager.CanUndo() }

func (b *Builder) CanRedo() bool { return b.manager.CanRedo() }

// History returns the undo and redo entries, oldest first.
func (b *Builder) History() (undo, redo []command.Info) {
	return b.manager.UndoInfo(), b.manager.RedoInfo()
}

// Manager exposes the underlying command manager.
func (b *Builder) Manager() *command.Manager { return b.manager }

// Snapshot copies the route and reports whether it changed since the last
// snapshot marked with MarkSnapshotted.
func (b *Builder) Snapshot() (snap route.Snapshot, revision uint64, changed bool) {
	revision = b.Revision()
	snap = b.Route().Snapshot(b.id)
	snap.Revision = revision
	return snap, revision, revision != b.snapshotted.Load()
}

// MarkSnapshotted records that revision has been persisted.
func (b *Builder) MarkSnapshotted(revision uint64) {
	b.snapshotted.Store(revision)
}
