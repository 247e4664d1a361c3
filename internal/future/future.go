// Package future provides a single-assignment result cell with resolved/rejected
// callback registration, used to sequence asynchronous route mutations.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrRejected is returned by Err and Wait when a Future was rejected without an error argument.
var ErrRejected = errors.New("future rejected")

// State is the settlement state of a Future.
type State int

const (
	StatePending State = iota
	StateResolved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Callback receives the arguments a Future was settled with.
type Callback func(args ...any)

// Future is a single-assignment asynchronous result. The zero value is not usable; call New.
type Future struct {
	mu       sync.Mutex
	state    State
	args     []any
	resolved []Callback
	rejected []Callback
	settled  chan struct{}
}

// New returns a pending Future.
func New() *Future {
	return &Future{settled: make(chan struct{})}
}

// Resolved returns a Future already resolved with args.
func Resolved(args ...any) *Future {
	f := New()
	f.Resolve(args...)
	return f
}

// Rejected returns a Future already rejected with args.
func Rejected(args ...any) *Future {
	f := New()
	f.Reject(args...)
	return f
}

// Done registers cb for the resolved outcome. If the Future is already resolved,
// cb runs immediately on the calling goroutine.
func (f *Future) Done(cb Callback) *Future {
	f.bind(StateResolved, cb)
	return f
}

// Fail registers cb for the rejected outcome.
func (f *Future) Fail(cb Callback) *Future {
	f.bind(StateRejected, cb)
	return f
}

// Always registers cb for both outcomes.
func (f *Future) Always(cb Callback) *Future {
	f.Done(cb)
	f.Fail(cb)
	return f
}

// Pipe settles to with the same outcome and arguments as f.
func (f *Future) Pipe(to *Future) *Future {
	f.Done(to.Resolve)
	f.Fail(to.Reject)
	return f
}

func (f *Future) bind(state State, cb Callback) {
	if cb == nil {
		return
	}

	f.mu.Lock()
	switch f.state {
	case state:
		args := f.args
		f.mu.Unlock()
		cb(args...)
		return
	case StatePending:
		if state == StateResolved {
			f.resolved = append(f.resolved, cb)
		} else {
			f.rejected = append(f.rejected, cb)
		}
	}
	f.mu.Unlock()
}

// Resolve settles the Future as resolved. Calls after the first settlement are ignored.
func (f *Future) Resolve(args ...any) {
	f.settle(StateResolved, args)
}

// Reject settles the Future as rejected. By convention the first argument is an error.
func (f *Future) Reject(args ...any) {
	f.settle(StateRejected, args)
}

func (f *Future) settle(state State, args []any) {
	f.mu.Lock()
	if f.state != StatePending {
		f.mu.Unlock()
		return
	}

	f.state = state
	f.args = args

	callbacks := f.resolved
	if state == StateRejected {
		callbacks = f.rejected
	}
	f.resolved = nil
	f.rejected = nil
	close(f.settled)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(args...)
	}
}

// State reports the current settlement state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Args returns a copy of the settlement arguments, nil while pending.
func (f *Future) Args() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.args == nil {
		return nil
	}
	out := make([]any, len(f.args))
	copy(out, f.args)
	return out
}

// Err returns the first error argument of a rejected Future, ErrRejected if the
// rejection carried none, and nil otherwise.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateRejected {
		return nil
	}
	return rejectionError(f.args)
}

func rejectionError(args []any) error {
	for _, a := range args {
		if err, ok := a.(error); ok && err != nil {
			return err
		}
	}
	return ErrRejected
}

// Wait blocks until the Future settles or ctx is done. A rejected Future returns
// its arguments together with Err().
func (f *Future) Wait(ctx context.Context) ([]any, error) {
	select {
	case <-f.settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := f.Err(); err != nil {
		return f.Args(), err
	}
	return f.Args(), nil
}

// WhenAll returns a master Future that rejects with the arguments of the first input
// to reject, or resolves once every input has resolved. The resolved payload holds one
// []any per input, appended in the order the inputs settled rather than input order.
// An empty input resolves immediately.
func WhenAll(futures ...*Future) *Future {
	master := New()
	if len(futures) == 0 {
		master.Resolve()
		return master
	}

	var (
		mu      sync.Mutex
		payload = make([]any, 0, len(futures))
	)

	for _, f := range futures {
		f.Fail(master.Reject)
		f.Done(func(args ...any) {
			mu.Lock()
			payload = append(payload, append([]any(nil), args...))
			complete := len(payload) == len(futures)
			var out []any
			if complete {
				out = payload
			}
			mu.Unlock()

			if complete {
				master.Resolve(out...)
			}
		})
	}

	return master
}
