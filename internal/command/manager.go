package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/route-command-engine/internal/future"
)

// UnlimitedHistory disables eviction of old undo entries.
const UnlimitedHistory = 0

type opKind string

const (
	opExecute opKind = "execute"
	opUndo    opKind = "undo"
	opRedo    opKind = "redo"
)

// entry wraps a submitted command with history metadata.
type entry struct {
	cmd       Command
	submitted time.Time
	failed    bool // Execute rejected; queued undo/redo must not touch the command
}

// op is one submitted Execute, Undo or Redo, kept until it settles.
type op struct {
	kind  opKind
	entry *entry
	epoch uint64

	// index is where an undo or redo took the entry from, in done or redo.
	index int
	// cleared holds the redo entries an execute dropped at submission.
	cleared []*entry

	cancelled bool
	result    *future.Future
}

// Manager serializes command execution and keeps the undo/redo history.
type Manager struct {
	mu sync.Mutex

	done []*entry
	redo []*entry

	// queue holds submitted operations, oldest first, until they settle.
	queue []*op
	// pending is the result of the most recently submitted operation until it settles.
	pending *future.Future
	// epoch changes on Clear; compensation of older operations is dropped.
	epoch uint64

	maxHistory int
	logger     zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxHistory bounds the number of undoable commands; older entries are evicted.
func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		if n < 0 {
			n = UnlimitedHistory
		}
		m.maxHistory = n
	}
}

// WithLogger sets the logger used for history transitions.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		maxHistory: UnlimitedHistory,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExecuteCommand queues cmd.Execute behind any in-flight operation, records cmd as
// undoable and clears the redo stack. The returned Future mirrors the outcome of
// Execute. A rejected Execute removes cmd from the history again and gives back the
// redo entries it cleared.
func (m *Manager) ExecuteCommand(cmd Command) (*future.Future, error) {
	if isNil(cmd) {
		return nil, fmt.Errorf("%w: not a command", ErrInvalidArgument)
	}

	e := &entry{cmd: cmd, submitted: time.Now()}

	m.mu.Lock()
	o := m.enqueueLocked(opExecute, e)
	o.cleared = m.redo
	m.done = append(m.done, e)
	m.redo = nil
	if m.maxHistory > 0 && len(m.done) > m.maxHistory {
		excess := len(m.done) - m.maxHistory
		m.done = m.done[excess:]
	}
	prev := m.prevLocked(o)
	m.mu.Unlock()

	return m.dispatch(o, prev, cmd.Execute, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e.failed = true
		m.done = removeEntry(m.done, e)
		m.redo = removeEntry(m.redo, e)
		if o.epoch != m.epoch {
			return
		}
		// The next queued execute clears redo again; hand it the entries instead.
		if later := m.nextExecuteLocked(o); later != nil {
			later.cleared = append(append([]*entry(nil), o.cleared...), later.cleared...)
			return
		}
		m.redo = append(append([]*entry(nil), o.cleared...), m.redo...)
	}), nil
}

// Undo queues an undo of the most recently executed command. It returns
// ErrCommandHistory immediately when there is nothing to undo. A rejected undo
// puts the command back where it was on the undo stack and cancels the undos and
// redos queued behind it.
func (m *Manager) Undo() (*future.Future, error) {
	m.mu.Lock()
	if len(m.done) == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to undo", ErrCommandHistory)
	}
	i := len(m.done) - 1
	e := m.done[i]
	o := m.enqueueLocked(opUndo, e)
	o.index = i
	m.done = m.done[:i]
	m.redo = append(m.redo, e)
	prev := m.prevLocked(o)
	m.mu.Unlock()

	return m.dispatch(o, prev, e.cmd.Undo, func() { m.compensate(o) }), nil
}

// Redo queues a redo of the most recently undone command. It returns
// ErrCommandHistory immediately when there is nothing to redo.
func (m *Manager) Redo() (*future.Future, error) {
	m.mu.Lock()
	if len(m.redo) == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to redo", ErrCommandHistory)
	}
	i := len(m.redo) - 1
	e := m.redo[i]
	o := m.enqueueLocked(opRedo, e)
	o.index = i
	m.redo = m.redo[:i]
	m.done = append(m.done, e)
	prev := m.prevLocked(o)
	m.mu.Unlock()

	return m.dispatch(o, prev, e.cmd.Redo, func() { m.compensate(o) }), nil
}

// enqueueLocked records a new operation on e at the tail of the queue.
// m.mu must be held, together with the matching stack move.
func (m *Manager) enqueueLocked(kind opKind, e *entry) *op {
	o := &op{kind: kind, entry: e, epoch: m.epoch, result: future.New()}
	m.queue = append(m.queue, o)
	return o
}

// prevLocked makes o the tail of the queue and returns the previous tail.
func (m *Manager) prevLocked(o *op) *future.Future {
	prev := m.pending
	m.pending = o.result
	return prev
}

// compensate undoes the stack move of a rejected undo or redo. Undos and redos
// queued behind it were computed from the history it assumed, so they are
// cancelled and their moves reverted first, newest first.
func (m *Manager) compensate(o *op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.entry.failed || o.epoch != m.epoch {
		return
	}

	var later []*op
	seen := false
	for _, q := range m.queue {
		if q == o {
			seen = true
			continue
		}
		if seen && q.kind != opExecute && !q.cancelled {
			later = append(later, q)
		}
	}
	for i := len(later) - 1; i >= 0; i-- {
		later[i].cancelled = true
		if !later[i].entry.failed {
			m.revertLocked(later[i])
		}
	}
	m.revertLocked(o)
}

// revertLocked puts o's entry back at the position it was taken from.
func (m *Manager) revertLocked(o *op) {
	e := o.entry
	m.done = removeEntry(m.done, e)
	m.redo = removeEntry(m.redo, e)
	for _, q := range m.queue {
		if q.kind == opExecute {
			q.cleared = removeEntry(q.cleared, e)
		}
	}
	switch o.kind {
	case opUndo:
		m.done = insertEntry(m.done, o.index, e)
	case opRedo:
		m.redo = insertEntry(m.redo, o.index, e)
	}
}

func (m *Manager) nextExecuteLocked(o *op) *op {
	seen := false
	for _, q := range m.queue {
		if q == o {
			seen = true
			continue
		}
		if seen && q.kind == opExecute {
			return q
		}
	}
	return nil
}

// dispatch runs the command method once prev settles and mirrors its outcome into o.result.
func (m *Manager) dispatch(o *op, prev *future.Future, run func() *future.Future, onFail func()) *future.Future {
	kind, result := o.kind, o.result
	name := Describe(o.entry.cmd)

	m.logger.Debug().
		Str("op", string(kind)).
		Str("command", name).
		Bool("queued", prev != nil).
		Msg("command submitted")

	start := func(...any) {
		m.mu.Lock()
		failed := o.entry.failed && kind != opExecute
		cancelled := o.cancelled
		m.mu.Unlock()

		if failed || cancelled {
			reason := "failed to execute"
			if cancelled {
				reason = "history changed by an earlier rejection"
			}
			m.logger.Debug().Str("op", string(kind)).Str("command", name).Msg("skipping command: " + reason)
			m.finish(o)
			result.Reject(fmt.Errorf("%w: %s %s", ErrCommandHistory, name, reason))
			return
		}

		f := run()
		if f == nil {
			f = future.Resolved()
		}
		f.Done(func(args ...any) {
			m.logger.Debug().Str("op", string(kind)).Str("command", name).Msg("command resolved")
			m.finish(o)
			result.Resolve(args...)
		})
		f.Fail(func(args ...any) {
			m.logger.Warn().
				Str("op", string(kind)).
				Str("command", name).
				Err(f.Err()).
				Msg("command rejected")
			onFail()
			m.finish(o)
			result.Reject(args...)
		})
	}

	if prev == nil {
		start()
	} else {
		prev.Always(start)
	}

	return result
}

// finish drops o from the queue.
func (m *Manager) finish(o *op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.queue {
		if q == o {
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			break
		}
	}
	if m.pending == o.result {
		m.pending = nil
	}
}

func removeEntry(stack []*entry, e *entry) []*entry {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == e {
			return append(stack[:i:i], stack[i+1:]...)
		}
	}
	return stack
}

func insertEntry(stack []*entry, i int, e *entry) []*entry {
	if i > len(stack) {
		i = len(stack)
	}
	out := make([]*entry, 0, len(stack)+1)
	out = append(out, stack[:i]...)
	out = append(out, e)
	return append(out, stack[i:]...)
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.done) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// UndoCount returns the number of undoable commands.
func (m *Manager) UndoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.done)
}

// RedoCount returns the number of redoable commands.
func (m *Manager) RedoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo)
}

// UndoDescription describes the command Undo would act on, "" if there is none.
func (m *Manager) UndoDescription() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.done) == 0 {
		return ""
	}
	return Describe(m.done[len(m.done)-1].cmd)
}

// RedoDescription describes the command Redo would act on, "" if there is none.
func (m *Manager) RedoDescription() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return ""
	}
	return Describe(m.redo[len(m.redo)-1].cmd)
}

// Pending reports whether an operation is running or queued.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0
}

// Wait blocks until every submitted operation has settled or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	for {
		m.mu.Lock()
		p := m.pending
		m.mu.Unlock()
		if p == nil {
			return nil
		}
		if _, err := p.Wait(ctx); ctx.Err() != nil {
			return err
		}
	}
}

// Clear drops the undo and redo history. Operations already queued still run, but
// their failures no longer restore history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = nil
	m.redo = nil
	m.epoch++
}

// Info describes a history entry.
type Info struct {
	Description string    `json:"description"`
	Submitted   time.Time `json:"submitted"`
}

// UndoInfo lists the undo stack, oldest first.
func (m *Manager) UndoInfo() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return infos(m.done)
}

// RedoInfo lists the redo stack, oldest first.
func (m *Manager) RedoInfo() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return infos(m.redo)
}

func infos(stack []*entry) []Info {
	out := make([]Info, len(stack))
	for i, e := range stack {
		out[i] = Info{Description: Describe(e.cmd), Submitted: e.submitted}
	}
	return out
}
