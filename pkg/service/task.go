package service

import (
	"context"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/status"
)

// Task is a handle to an action running on its own goroutine.
type Task[Out any] struct {
	done     chan struct{}
	res      status.Result[Out]
	err      error
	panicked bool
	panicVal any
}

// Start runs DoDB on a new goroutine and returns immediately.
// cancel ctx to ask the action to stop; a panic in the action is re-raised by Wait.
func Start[In, Out any](ctx context.Context, s *Service, act action.Action[In, Out], comms *action.Comms, in In) *Task[Out] {
	t := &Task[Out]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.panicked, t.panicVal = true, r
			}
		}()
		t.res, t.err = DoDB(ctx, s, act, comms, in)
	}()
	return t
}

// Done is closed when the action has returned and was disposed.
func (t *Task[Out]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is done and returns what DoDB returned.
func (t *Task[Out]) Wait() (status.Result[Out], error) {
	<-t.done
	if t.panicked {
		panic(t.panicVal)
	}
	return t.res, t.err
}
