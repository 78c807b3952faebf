// Package scheduler dispatches periodic full reindex runs.
package scheduler

import (
	"context"
	"fmt"

	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Dispatcher enqueues jobs
type Dispatcher interface {
	Dispatch(ctx context.Context, target queue.Target, job queue.Job) (*queue.Task, bool, error)
}

// Scheduler wraps robfig/cron and fires a Reindex on each tick
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	dispatcher Dispatcher
	target     queue.Target
	logger     *logging.SafeLogger
}

// New validates spec, a standard five-field cron expression or descriptor
// such as "@daily"
func New(spec string, dispatcher Dispatcher, target queue.Target) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid reindex schedule %q: %w", spec, err)
	}
	logger := logging.Logger.Named("scheduler")
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger.Unwrap())))),
		spec:       spec,
		dispatcher: dispatcher,
		target:     target,
		logger:     logger,
	}, nil
}

// Start registers the reindex entry and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.Trigger(ctx); err != nil {
			s.logger.Error("scheduled reindex dispatch failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("reindex schedule started", zap.String("spec", s.spec))
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop halts the cron loop and waits for a running dispatch to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("reindex schedule stopped")
}

// Trigger dispatches a full reindex now. queued is false when one is
// already pending.
func (s *Scheduler) Trigger(ctx context.Context) (queued bool, err error) {
	_, queued, err = s.dispatcher.Dispatch(ctx, s.target, jobs.Reindex{Type: jobs.AllTypes})
	if err != nil {
		return false, err
	}
	if queued {
		s.logger.Info("scheduled reindex dispatched")
	} else {
		s.logger.Info("reindex already pending, skipping scheduled run")
	}
	return queued, nil
}
