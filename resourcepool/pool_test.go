/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package resourcepool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type testConn struct {
	id     int
	closed bool
}

func newTestPool(t *testing.T, size int, opts Opts[*testConn]) *Pool[*testConn] {
	t.Helper()
	var nextID atomic.Int64
	pool, err := NewWithOpts[*testConn](context.Background(), size, func(ctx context.Context) (*testConn, error) {
		return &testConn{id: int(nextID.Inc())}, nil
	}, opts)
	require.NoError(t, err)
	return pool
}

func TestPoolAcquireRelease(t *testing.T) {
	pool := newTestPool(t, 2, Opts[*testConn]{})

	r1, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, r1.Value().id, r2.Value().id)
	require.Equal(t, 2, pool.InUse())

	require.NoError(t, r1.Release())
	require.Equal(t, 1, pool.InUse())

	// The released handle is available again.
	r3, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, r1.Value().id, r3.Value().id)

	require.NoError(t, r2.Release())
	require.NoError(t, r3.Release())
}

func TestPoolAcquireTimeout(t *testing.T) {
	pool := newTestPool(t, 1, Opts[*testConn]{})

	r, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = pool.AcquireWithTimeout(context.Background(), time.Millisecond*50)
	require.ErrorIs(t, err, ErrAcquireTimeout)
	require.GreaterOrEqual(t, time.Since(start), time.Millisecond*50)

	require.NoError(t, r.Release())
}

func TestPoolAcquireWakesWaiter(t *testing.T) {
	pool := newTestPool(t, 1, Opts[*testConn]{})

	r, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *Resource[*testConn])
	go func() {
		waiterRes, acquireErr := pool.AcquireWithTimeout(context.Background(), time.Second*5)
		require.NoError(t, acquireErr)
		acquired <- waiterRes
	}()

	time.Sleep(time.Millisecond * 20) // Let the goroutine block in Acquire.
	require.NoError(t, r.Release())

	select {
	case waiterRes := <-acquired:
		require.Equal(t, r.Value().id, waiterRes.Value().id)
		require.NoError(t, waiterRes.Release())
	case <-time.After(time.Second * 5):
		t.Fatal("waiter was not woken up by the release")
	}
}

func TestPoolDoubleRelease(t *testing.T) {
	pool := newTestPool(t, 1, Opts[*testConn]{})

	r, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Release())
	require.ErrorIs(t, r.Release(), ErrAlreadyReleased)

	// The pool is not corrupted: the handle can be acquired and released again.
	r, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Release())
	require.Equal(t, 0, pool.InUse())
}

func TestPoolAcquireContextCanceled(t *testing.T) {
	pool := newTestPool(t, 1, Opts[*testConn]{})

	r, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*30)
	defer cancel()

	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, r.Release())
}

func TestPoolClose(t *testing.T) {
	t.Run("close disposes all handles", func(t *testing.T) {
		var closedConns atomic.Int64
		pool := newTestPool(t, 3, Opts[*testConn]{
			CloseFunc: func(c *testConn) error {
				c.closed = true
				closedConns.Inc()
				return nil
			},
		})

		require.NoError(t, pool.Close(context.Background()))
		require.Equal(t, int64(3), closedConns.Load())

		_, err := pool.Acquire(context.Background())
		require.ErrorIs(t, err, ErrPoolClosed)
	})

	t.Run("close waits for handles in use", func(t *testing.T) {
		pool := newTestPool(t, 1, Opts[*testConn]{})

		r, err := pool.Acquire(context.Background())
		require.NoError(t, err)

		go func() {
			time.Sleep(time.Millisecond * 50)
			_ = r.Release()
		}()

		require.NoError(t, pool.Close(context.Background()))
	})

	t.Run("close is bounded by context", func(t *testing.T) {
		pool := newTestPool(t, 1, Opts[*testConn]{})

		_, err := pool.Acquire(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*30)
		defer cancel()

		err = pool.Close(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("double close is a no-op", func(t *testing.T) {
		pool := newTestPool(t, 1, Opts[*testConn]{})
		require.NoError(t, pool.Close(context.Background()))
		require.NoError(t, pool.Close(context.Background()))
	})
}

func TestPoolFactoryError(t *testing.T) {
	var created, closed int
	_, err := NewWithOpts[*testConn](context.Background(), 3, func(ctx context.Context) (*testConn, error) {
		if created == 2 {
			return nil, errors.New("connection refused")
		}
		created++
		return &testConn{id: created}, nil
	}, Opts[*testConn]{
		CloseFunc: func(c *testConn) error {
			closed++
			return nil
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")

	// Resources created before the failure are disposed.
	require.Equal(t, 2, closed)
}

func TestPoolConcurrentUse(t *testing.T) {
	const poolSize = 4
	const users = 32

	pool := newTestPool(t, poolSize, Opts[*testConn]{})

	var inUse atomic.Int64
	var maxInUse atomic.Int64
	var wg sync.WaitGroup
	wg.Add(users)
	for i := 0; i < users; i++ {
		go func() {
			defer wg.Done()
			r, err := pool.AcquireWithTimeout(context.Background(), time.Second*5)
			require.NoError(t, err)

			cur := inUse.Inc()
			for {
				prevMax := maxInUse.Load()
				if cur <= prevMax || maxInUse.CAS(prevMax, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inUse.Dec()

			require.NoError(t, r.Release())
		}()
	}
	wg.Wait()

	// Never more simultaneous owners than handles.
	require.LessOrEqual(t, maxInUse.Load(), int64(poolSize))
	require.Equal(t, 0, pool.InUse())
}

func TestPoolInvalidArgs(t *testing.T) {
	_, err := New[*testConn](context.Background(), 0, func(ctx context.Context) (*testConn, error) {
		return &testConn{}, nil
	})
	require.Error(t, err)

	_, err = New[*testConn](context.Background(), 1, nil)
	require.Error(t, err)
}

func ExamplePool() {
	pool, err := New[string](context.Background(), 2, func(ctx context.Context) (string, error) {
		return "conn", nil
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	r, err := pool.Acquire(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(r.Value())
	_ = r.Release()
	// Output: conn
}
