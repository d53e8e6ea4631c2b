/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package deferred

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/xid"
)

// ErrTaskCanceled is an error that is recorded on a task that was canceled before it started.
var ErrTaskCanceled = errors.New("task canceled")

// State represents a state of a task lifecycle.
type State int

// Task states. Transitions are one-directional:
// Pending -> Running -> Succeeded or Failed. A Pending task may also move
// directly to Failed when it's canceled.
const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

// String returns a string representation of the state.
// Implements fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status is a snapshot of a task's state and outcome.
// Result is meaningful only when State is StateSucceeded,
// Err - only when State is StateFailed.
type Status[V any] struct {
	State  State
	Result V
	Err    error
}

// Task is an opaque handle of a submitted unit of work.
// It's returned by Executor.Submit and can be used to poll (Status), await (Wait),
// or cancel (Cancel) the work. All methods are safe for concurrent use.
type Task[V any] struct {
	id string

	mu     sync.Mutex
	state  State
	result V
	err    error

	done chan struct{} // closed when the task reaches a terminal state
}

func newTask[V any]() *Task[V] {
	return &Task[V]{
		id:   xid.New().String(),
		done: make(chan struct{}),
	}
}

// ID returns the unique identifier of the task.
func (t *Task[V]) ID() string {
	return t.id
}

// Status returns a snapshot of the task's current state and outcome.
func (t *Task[V]) Status() Status[V] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status[V]{State: t.state, Result: t.result, Err: t.err}
}

// Wait blocks until the task reaches a terminal state or ctx is done.
// It returns the task's result or its recorded error; if ctx is done first,
// ctx.Err() is returned and the task itself is not affected.
func (t *Task[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Done returns a channel that is closed when the task reaches a terminal state.
func (t *Task[V]) Done() <-chan struct{} {
	return t.done
}

// Cancel transitions a still-Pending task to Failed with ErrTaskCanceled recorded
// and reports whether it succeeded. A task that is already Running or terminal
// is not affected, and false is returned.
func (t *Task[V]) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return false
	}
	t.state = StateFailed
	t.err = ErrTaskCanceled
	close(t.done)
	return true
}

// startRunning transitions the task to Running.
// It reports false if the task is not Pending anymore (e.g., it was canceled).
func (t *Task[V]) startRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return false
	}
	t.state = StateRunning
	return true
}

func (t *Task[V]) succeed(result V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateSucceeded
	t.result = result
	close(t.done)
}

func (t *Task[V]) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateFailed
	t.err = err
	close(t.done)
}
