package queue

import (
	"context"
	"time"
)

// Backend is the durable store behind the queues
type Backend interface {
	// Push stores a task. Tasks with AvailableAt in the future stay hidden
	// from Pop until then.
	Push(ctx context.Context, task *Task) error
	// Pop removes and returns the next available task, or nil when the
	// queue has nothing ready.
	Pop(ctx context.Context, target Target) (*Task, error)
	// AcquireUnique takes the lock for key unless another owner holds it
	AcquireUnique(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// ReleaseUnique drops the lock if owner still holds it
	ReleaseUnique(ctx context.Context, key, owner string) error
	// Bury moves a task to the dead-letter list of its queue
	Bury(ctx context.Context, failed *FailedTask) error
	// Size counts ready and delayed tasks
	Size(ctx context.Context, target Target) (int64, error)
	// DeadSize counts dead-lettered tasks
	DeadSize(ctx context.Context, target Target) (int64, error)
	// Dead returns up to limit of the most recent dead-lettered tasks
	Dead(ctx context.Context, target Target, limit int64) ([]FailedTask, error)
}

// Stats is a snapshot of one queue
type Stats struct {
	Connection string `json:"connection"`
	Queue      string `json:"queue"`
	Ready      int64  `json:"ready"`
	Dead       int64  `json:"dead"`
}

// CollectStats reads sizes for each target
func CollectStats(ctx context.Context, backend Backend, targets []Target) ([]Stats, error) {
	stats := make([]Stats, 0, len(targets))
	for _, t := range targets {
		ready, err := backend.Size(ctx, t)
		if err != nil {
			return nil, err
		}
		dead, err := backend.DeadSize(ctx, t)
		if err != nil {
			return nil, err
		}
		stats = append(stats, Stats{Connection: t.Connection, Queue: t.Queue, Ready: ready, Dead: dead})
	}
	return stats, nil
}
