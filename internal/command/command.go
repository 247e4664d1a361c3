// Package command sequences undoable asynchronous commands.
//
// A Manager accepts Commands and runs their Execute, Undo and Redo methods one at a
// time, in submission order. Each method returns a future.Future; the next queued
// operation starts only once the previous Future has settled. History stacks move
// at submission time, so CanUndo and CanRedo reflect queued work immediately.
//
//	mgr := command.NewManager(command.WithMaxHistory(100))
//	f, err := mgr.ExecuteCommand(cmd)
//	if err != nil {
//		return err // invalid command
//	}
//	f.Done(func(args ...any) { ... }).Fail(func(args ...any) { ... })
//
//	mgr.Undo() // queued behind the execute above
package command

import (
	"errors"
	"reflect"

	"github.com/i474232898/route-command-engine/internal/future"
)

var (
	// ErrInvalidArgument reports malformed input detected at the call site.
	ErrInvalidArgument = errors.New("command: invalid argument")
	// ErrCommandHistory reports an undo or redo with nothing to act on.
	ErrCommandHistory = errors.New("command: history error")
	// ErrAlreadyExecuted is the rejection of a second Execute without an Undo in between.
	ErrAlreadyExecuted = errors.New("command: already executed")
	// ErrNotExecuted is the rejection of an Undo before any Execute.
	ErrNotExecuted = errors.New("command: not executed")
)

// Command is an executable, undoable and redoable unit of work. Each method returns
// a Future that settles once the work, including any asynchronous step, completes.
type Command interface {
	Execute() *future.Future
	Undo() *future.Future
	Redo() *future.Future
}

// Describer is implemented by commands that carry a human-readable label.
type Describer interface {
	Description() string
}

// Describe returns the command's description, or its type name.
func Describe(cmd Command) string {
	if d, ok := cmd.(Describer); ok {
		return d.Description()
	}
	if cmd == nil {
		return "<nil>"
	}
	return reflect.TypeOf(cmd).String()
}

func isNil(cmd Command) bool {
	if cmd == nil {
		return true
	}
	v := reflect.ValueOf(cmd)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
