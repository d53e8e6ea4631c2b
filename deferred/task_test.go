/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package deferred

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskStates(t *testing.T) {
	t.Run("pending to succeeded", func(t *testing.T) {
		task := newTask[int]()
		require.NotEmpty(t, task.ID())
		require.Equal(t, StatePending, task.Status().State)

		require.True(t, task.startRunning())
		require.Equal(t, StateRunning, task.Status().State)

		task.succeed(42)
		status := task.Status()
		require.Equal(t, StateSucceeded, status.State)
		require.Equal(t, 42, status.Result)
		require.NoError(t, status.Err)
	})

	t.Run("pending to failed", func(t *testing.T) {
		task := newTask[int]()
		require.True(t, task.startRunning())

		wantErr := errors.New("work failed")
		task.fail(wantErr)
		status := task.Status()
		require.Equal(t, StateFailed, status.State)
		require.ErrorIs(t, status.Err, wantErr)
	})
}

func TestTaskCancel(t *testing.T) {
	t.Run("pending task is canceled", func(t *testing.T) {
		task := newTask[int]()
		require.True(t, task.Cancel())

		status := task.Status()
		require.Equal(t, StateFailed, status.State)
		require.ErrorIs(t, status.Err, ErrTaskCanceled)

		// A canceled task cannot start running.
		require.False(t, task.startRunning())
	})

	t.Run("running task is not canceled", func(t *testing.T) {
		task := newTask[int]()
		require.True(t, task.startRunning())
		require.False(t, task.Cancel())
		require.Equal(t, StateRunning, task.Status().State)
	})

	t.Run("double cancel", func(t *testing.T) {
		task := newTask[int]()
		require.True(t, task.Cancel())
		require.False(t, task.Cancel())
	})
}

func TestTaskWait(t *testing.T) {
	t.Run("wait returns result", func(t *testing.T) {
		task := newTask[string]()
		go func() {
			task.startRunning()
			task.succeed("done")
		}()

		res, err := task.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, "done", res)
	})

	t.Run("wait respects context", func(t *testing.T) {
		task := newTask[string]()

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
		defer cancel()

		_, err := task.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, StatePending, task.Status().State)
	})
}

func TestStateString(t *testing.T) {
	require.Equal(t, "pending", StatePending.String())
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "succeeded", StateSucceeded.String())
	require.Equal(t, "failed", StateFailed.String())
	require.Equal(t, "unknown", State(100).String())
}
