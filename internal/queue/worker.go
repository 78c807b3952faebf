package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Outcome is the result of processing one task
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
	OutcomeReleased  Outcome = "released"
)

const failedHookTimeout = 30 * time.Second

// Worker drains a set of queues
type Worker struct {
	id           int
	backend      Backend
	registry     *Registry
	targets      []Target
	logger       *logging.SafeLogger
	pollInterval time.Duration
	now          func() time.Time
	stopChan     chan struct{}
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithPollInterval sets the idle polling period
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithClock overrides the worker clock
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// WithLogger overrides the worker logger
func WithLogger(l *logging.SafeLogger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

func NewWorker(id int, backend Backend, registry *Registry, targets []Target, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:           id,
		backend:      backend,
		registry:     registry,
		targets:      targets,
		logger:       logging.Logger.Named("queue"),
		pollInterval: 200 * time.Millisecond,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.Int("worker_id", id))
	return w
}

// Start polls until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("queue worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("queue worker stopped")
			return
		case <-w.stopChan:
			w.logger.Info("queue worker stopped")
			return
		case <-ticker.C:
			// drain while there is work so a backlog does not wait a tick per task
			for {
				processed, err := w.RunOnce(ctx)
				if err != nil {
					w.logger.Warn("queue poll failed", zap.Error(err))
					break
				}
				if !processed || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// Stop stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
}

// RunOnce pops and processes at most one task from each target in order.
// It reports whether any task was processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	processed := false
	for _, target := range w.targets {
		task, err := w.backend.Pop(ctx, target)
		if err != nil {
			return processed, err
		}
		if task == nil {
			continue
		}
		w.Process(ctx, task)
		processed = true
	}
	return processed, nil
}

// Process runs one attempt of task and settles it
func (w *Worker) Process(ctx context.Context, task *Task) Outcome {
	if ctx.Err() != nil {
		return w.release(task)
	}

	if task.Expired(w.now()) {
		cause := ErrDeadlineExceeded
		if task.LastError != "" {
			cause = fmt.Errorf("%w: last error: %s", ErrDeadlineExceeded, task.LastError)
		}
		return w.fail(task, cause)
	}

	handler, err := w.registry.Lookup(task.Job)
	if err != nil {
		return w.fail(task, err)
	}

	task.Attempts++
	start := time.Now()

	spanCtx, span := observability.StartSpan(ctx, "queue.process",
		attribute.String("queue.job", task.Job),
		attribute.String("queue.task_id", task.ID),
		attribute.String("queue.name", task.Target().String()),
		attribute.Int("queue.attempt", task.Attempts),
	)
	err = w.run(spanCtx, handler, task)
	observability.EndSpan(span, err)
	observability.JobDuration.WithLabelValues(task.Job).Observe(time.Since(start).Seconds())

	if err == nil {
		w.releaseLock(task)
		observability.JobsProcessed.WithLabelValues(task.Job, task.Queue, string(OutcomeSucceeded)).Inc()
		return OutcomeSucceeded
	}

	// shutdown mid-run: put the task back without charging the attempt
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		task.Attempts--
		return w.release(task)
	}

	task.LastError = err.Error()
	if isException(err) {
		task.Exceptions++
	}

	if IsFatal(err) || !w.canRetry(task) {
		if !IsFatal(err) && task.Attempts >= task.Policy.MaxAttempts {
			err = fmt.Errorf("%w (%d): %w", ErrAttemptsExceeded, task.Attempts, err)
		}
		return w.fail(task, err)
	}
	return w.retry(task, err)
}

func (w *Worker) canRetry(task *Task) bool {
	if task.Attempts >= task.Policy.MaxAttempts {
		return false
	}
	if task.Policy.MaxExceptions > 0 && task.Exceptions >= task.Policy.MaxExceptions {
		return false
	}
	return !task.Expired(w.now())
}

// run executes the handler under the task timeout. The handler works on a
// copy of the task; payload changes are kept only when it returns in time.
func (w *Worker) run(ctx context.Context, handler Handler, task *Task) error {
	if task.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Policy.Timeout)
		defer cancel()
	}

	attempt := *task
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		done <- handler.Handle(ctx, &attempt)
	}()

	select {
	case err := <-done:
		task.Payload = attempt.Payload
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTaskTimeout, task.Policy.Timeout)
		}
		return ctx.Err()
	}
}

func (w *Worker) retry(task *Task, cause error) Outcome {
	delay := task.Policy.BackoffFor(task.Attempts)
	task.AvailableAt = w.now().Add(delay)

	w.logger.Warn("task failed, retrying",
		zap.String("task_id", task.ID),
		zap.String("job", task.Job),
		zap.Int("attempt", task.Attempts),
		zap.Int("max_attempts", task.Policy.MaxAttempts),
		zap.Int("exceptions", task.Exceptions),
		zap.Duration("backoff", delay),
		zap.Error(cause))

	if err := w.backend.Push(context.Background(), task); err != nil {
		w.logger.Error("failed to re-queue task", zap.String("task_id", task.ID), zap.Error(err))
		return w.fail(task, fmt.Errorf("re-queue: %w (after %v)", err, cause))
	}
	observability.JobsProcessed.WithLabelValues(task.Job, task.Queue, string(OutcomeRetried)).Inc()
	return OutcomeRetried
}

func (w *Worker) fail(task *Task, cause error) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), failedHookTimeout)
	defer cancel()

	if task.LastError == "" {
		task.LastError = cause.Error()
	}

	if handler, err := w.registry.Lookup(task.Job); err == nil {
		if fh, ok := handler.(FailedHandler); ok {
			w.callFailed(ctx, fh, task, cause)
		}
	}

	failed := &FailedTask{Task: *task, Error: cause.Error(), FailedAt: w.now()}
	if err := w.backend.Bury(ctx, failed); err != nil {
		w.logger.Error("failed to dead-letter task", zap.String("task_id", task.ID), zap.Error(err))
	}
	w.releaseLock(task)

	w.logger.Error("task failed permanently",
		zap.String("task_id", task.ID),
		zap.String("job", task.Job),
		zap.Int("attempts", task.Attempts),
		zap.Int("exceptions", task.Exceptions),
		zap.Time("created_at", task.CreatedAt),
		zap.Error(cause))
	observability.JobsProcessed.WithLabelValues(task.Job, task.Queue, string(OutcomeFailed)).Inc()
	return OutcomeFailed
}

func (w *Worker) callFailed(ctx context.Context, fh FailedHandler, task *Task, cause error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("failed hook panicked", zap.String("task_id", task.ID), zap.Any("panic", r))
		}
	}()
	fh.Failed(ctx, task, cause)
}

func (w *Worker) release(task *Task) Outcome {
	if err := w.backend.Push(context.Background(), task); err != nil {
		w.logger.Error("failed to release task", zap.String("task_id", task.ID), zap.Error(err))
	}
	return OutcomeReleased
}

func (w *Worker) releaseLock(task *Task) {
	if task.UniqueKey == "" {
		return
	}
	if err := w.backend.ReleaseUnique(context.Background(), task.UniqueKey, task.ID); err != nil {
		w.logger.Warn("failed to release unique lock",
			zap.String("task_id", task.ID),
			zap.String("unique_key", task.UniqueKey),
			zap.Error(err))
	}
}
