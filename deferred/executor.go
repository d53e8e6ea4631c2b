/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package deferred

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/loadkit/go-loadkit/log"
	"github.com/loadkit/go-loadkit/retry"
)

// DefaultQueueSize is a default capacity of the executor's submission queue.
const DefaultQueueSize = 1024

// ErrQueueFull is returned by Submit when the submission queue is at capacity.
var ErrQueueFull = errors.New("task queue is full")

// ErrExecutorStopped is returned by Submit after the executor's Run has finished.
var ErrExecutorStopped = errors.New("executor is stopped")

// WorkFunc is a unit of work executed by the executor.
// The passed context is canceled when the executor is shutting down.
type WorkFunc[V any] func(ctx context.Context) (V, error)

type queuedTask[V any] struct {
	task        *Task[V]
	work        WorkFunc[V]
	retryPolicy retry.Policy
	isRetryable retry.IsRetryable
}

// Executor runs submitted work on a fixed-size worker pool.
//
// Submission is decoupled from execution: Submit enqueues the work and returns a
// Task handle immediately, workers pick the work up in FIFO order. Run implements
// service.Worker, so the executor can be managed as a service unit
// (e.g., service.NewWorkerUnit(executor)).
type Executor[V any] struct {
	workers int
	queue   chan queuedTask[V]
	logger  log.FieldLogger

	dispatchLimiter *rate.Limiter

	queueLen    atomic.Int64
	busyWorkers atomic.Int64
	stopped     atomic.Bool

	metricsCollector MetricsCollector
}

// Opts represents options for Executor.
type Opts struct {
	// QueueSize is the capacity of the submission queue.
	// If it's zero, DefaultQueueSize is used.
	QueueSize int

	// Logger is used for logging worker lifecycle events and task panics.
	// If it's nil, logging is disabled.
	Logger log.FieldLogger

	// DispatchRate limits how many tasks per second the pool may start.
	// Zero means no limit.
	DispatchRate int

	// MetricsCollector is a collector of the executor metrics.
	// If it's nil, metrics are disabled.
	MetricsCollector MetricsCollector
}

// SubmitOpts represents per-task options for SubmitWithOpts.
type SubmitOpts struct {
	// RetryPolicy makes the executor re-invoke the failed work according to the policy.
	// Retries happen on the worker, the task stays Running in between.
	// If it's nil, the work is invoked exactly once.
	RetryPolicy retry.Policy

	// IsRetryable tells if an error returned by the work can be retried.
	// If it's nil, any error is considered retryable. Matters only when RetryPolicy is set.
	IsRetryable retry.IsRetryable
}

// NewExecutor creates a new Executor with the provided number of workers.
func NewExecutor[V any](workers int) (*Executor[V], error) {
	return NewExecutorWithOpts[V](workers, Opts{})
}

// NewExecutorWithOpts creates a new Executor with the provided number of workers and options.
func NewExecutorWithOpts[V any](workers int, opts Opts) (*Executor[V], error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers count should be positive, got %d", workers)
	}
	if opts.QueueSize < 0 {
		return nil, fmt.Errorf("queue size should not be negative, got %d", opts.QueueSize)
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	var dispatchLimiter *rate.Limiter
	if opts.DispatchRate > 0 {
		dispatchLimiter = rate.NewLimiter(rate.Limit(opts.DispatchRate), opts.DispatchRate)
	}
	return &Executor[V]{
		workers:          workers,
		queue:            make(chan queuedTask[V], opts.QueueSize),
		logger:           opts.Logger,
		dispatchLimiter:  dispatchLimiter,
		metricsCollector: metrics,
	}, nil
}

// Submit enqueues the work for execution and returns its Task handle immediately.
// It never blocks: when the queue is at capacity, ErrQueueFull is returned.
func (e *Executor[V]) Submit(work WorkFunc[V]) (*Task[V], error) {
	return e.SubmitWithOpts(work, SubmitOpts{})
}

// SubmitWithOpts enqueues the work for execution with per-task options
// and returns its Task handle immediately.
func (e *Executor[V]) SubmitWithOpts(work WorkFunc[V], opts SubmitOpts) (*Task[V], error) {
	if work == nil {
		return nil, fmt.Errorf("work should not be nil")
	}
	if e.stopped.Load() {
		return nil, ErrExecutorStopped
	}

	task := newTask[V]()
	select {
	case e.queue <- queuedTask[V]{task: task, work: work, retryPolicy: opts.RetryPolicy, isRetryable: opts.IsRetryable}:
	default:
		e.metricsCollector.IncRejected()
		return nil, ErrQueueFull
	}
	e.metricsCollector.SetQueueLen(int(e.queueLen.Inc()))
	e.metricsCollector.IncSubmitted()
	return task, nil
}

// QueueLen returns the number of tasks waiting in the submission queue.
func (e *Executor[V]) QueueLen() int {
	return int(e.queueLen.Load())
}

// BusyWorkers returns the number of workers currently executing a task.
func (e *Executor[V]) BusyWorkers() int {
	return int(e.busyWorkers.Load())
}

// Run starts the worker pool and blocks until ctx is canceled.
// Implements service.Worker interface.
//
// On cancellation the workers finish their current tasks and exit; tasks that are
// still queued stay Pending and may be canceled by their submitters. After Run
// returns, Submit fails with ErrExecutorStopped.
func (e *Executor[V]) Run(ctx context.Context) error {
	e.logger.Info("starting deferred task executor",
		log.Int("workers", e.workers), log.Int("queue_capacity", cap(e.queue)))

	var wg sync.WaitGroup
	wg.Add(e.workers)
	for i := 0; i < e.workers; i++ {
		go func(workerNum int) {
			defer wg.Done()
			e.runWorker(ctx, workerNum)
		}(i)
	}
	wg.Wait()

	e.stopped.Store(true)
	e.logger.Info("deferred task executor stopped")
	return nil
}

func (e *Executor[V]) runWorker(ctx context.Context, workerNum int) {
	logger := e.logger.With(log.Int("worker_num", workerNum))
	for {
		select {
		case <-ctx.Done():
			return
		case qt := <-e.queue:
			e.metricsCollector.SetQueueLen(int(e.queueLen.Dec()))
			if e.dispatchLimiter != nil {
				if err := e.dispatchLimiter.Wait(ctx); err != nil {
					// Shutdown while throttled, the task stays Pending.
					return
				}
			}
			e.executeTask(ctx, qt, logger)
		}
	}
}

func (e *Executor[V]) executeTask(ctx context.Context, qt queuedTask[V], logger log.FieldLogger) {
	if !qt.task.startRunning() {
		// The task was canceled while it was waiting in the queue.
		e.metricsCollector.IncDone(StateFailed)
		return
	}

	e.metricsCollector.SetBusyWorkers(int(e.busyWorkers.Inc()))
	defer func() {
		e.metricsCollector.SetBusyWorkers(int(e.busyWorkers.Dec()))
	}()

	result, err := e.invokeWork(ctx, qt, logger)
	if err != nil {
		qt.task.fail(err)
		e.metricsCollector.IncDone(StateFailed)
		return
	}
	qt.task.succeed(result)
	e.metricsCollector.IncDone(StateSucceeded)
}

func (e *Executor[V]) invokeWork(ctx context.Context, qt queuedTask[V], logger log.FieldLogger) (result V, err error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(fmt.Sprintf("panic in deferred task: %+v", p),
				log.String("task_id", qt.task.ID()), log.Bytes("stack", stack))
			err = fmt.Errorf("panic in deferred task: %+v", p)
		}
	}()

	if qt.retryPolicy == nil {
		return qt.work(ctx)
	}

	err = retry.DoWithRetry(ctx, qt.retryPolicy, qt.isRetryable, nil, func(ctx context.Context) error {
		var workErr error
		result, workErr = qt.work(ctx)
		return workErr
	})
	return result, err
}
