package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher turns jobs into tasks on a backend
type Dispatcher struct {
	backend Backend
	now     func() time.Time
	logger  *logging.SafeLogger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatchClock overrides the clock used for task timestamps
func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(backend Backend, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		now:     time.Now,
		logger:  logging.Logger.Named("queue"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch enqueues job on target. When the job is unique and an identical
// job is still pending, nothing is enqueued and queued is false.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, job Job) (task *Task, queued bool, err error) {
	return d.DispatchAfter(ctx, target, job, 0)
}

// DispatchAfter is Dispatch with an initial delay
func (d *Dispatcher) DispatchAfter(ctx context.Context, target Target, job Job, delay time.Duration) (*Task, bool, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, false, fmt.Errorf("marshal %s: %w", job.JobName(), err)
	}

	now := d.now()
	policy := job.Policy()
	task := &Task{
		ID:          uuid.NewString(),
		Job:         job.JobName(),
		Payload:     payload,
		Connection:  target.Connection,
		Queue:       target.Queue,
		CreatedAt:   now,
		AvailableAt: now.Add(delay),
		Policy:      policy,
	}
	if policy.RetryFor > 0 {
		task.RetryUntil = now.Add(policy.RetryFor)
	}

	if key := job.UniqueKey(); key != "" {
		task.UniqueKey = job.JobName() + ":" + key
		acquired, err := d.backend.AcquireUnique(ctx, task.UniqueKey, task.ID, policy.lockTTL())
		if err != nil {
			return nil, false, err
		}
		if !acquired {
			observability.JobsDeduplicated.WithLabelValues(task.Job).Inc()
			d.logger.Debug("duplicate job dropped",
				zap.String("job", task.Job),
				zap.String("unique_key", task.UniqueKey),
				zap.String("queue", target.String()))
			return nil, false, nil
		}
	}

	if err := d.backend.Push(ctx, task); err != nil {
		if task.UniqueKey != "" {
			_ = d.backend.ReleaseUnique(ctx, task.UniqueKey, task.ID)
		}
		return nil, false, err
	}

	d.logger.Debug("job dispatched",
		zap.String("task_id", task.ID),
		zap.String("job", task.Job),
		zap.String("queue", target.String()))
	return task, true, nil
}
