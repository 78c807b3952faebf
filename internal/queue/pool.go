package queue

import (
	"context"
	"sync"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/observability"
	"go.uber.org/zap"
)

// DefaultMonitorInterval is how often the pool samples queue depth
const DefaultMonitorInterval = 5 * time.Minute

// Pool runs a fleet of workers over the same targets plus a dead-letter monitor
type Pool struct {
	backend         Backend
	targets         []Target
	workers         []*Worker
	logger          *logging.SafeLogger
	monitorInterval time.Duration
}

// NewPool creates count workers sharing backend and registry
func NewPool(backend Backend, registry *Registry, targets []Target, count int, opts ...WorkerOption) *Pool {
	if count <= 0 {
		count = 1
	}
	p := &Pool{
		backend:         backend,
		targets:         targets,
		logger:          logging.Logger.Named("queue"),
		monitorInterval: DefaultMonitorInterval,
	}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, NewWorker(i, backend, registry, targets, opts...))
	}
	return p
}

// SetMonitorInterval changes the dead-letter sampling period
func (p *Pool) SetMonitorInterval(d time.Duration) {
	if d > 0 {
		p.monitorInterval = d
	}
}

// Run blocks until ctx is cancelled and every worker has returned
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("starting queue workers",
		zap.Int("workers", len(p.workers)),
		zap.Int("queues", len(p.targets)))

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Start(ctx)
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.monitor(ctx)
	}()

	wg.Wait()
	p.logger.Info("queue workers stopped")
	return nil
}

func (p *Pool) monitor(ctx context.Context) {
	p.sample(ctx)

	ticker := time.NewTicker(p.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx)
		}
	}
}

func (p *Pool) sample(ctx context.Context) {
	stats, err := CollectStats(ctx, p.backend, p.targets)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("failed to collect queue stats", zap.Error(err))
		}
		return
	}

	for _, s := range stats {
		observability.QueueDepth.WithLabelValues(s.Queue, "ready").Set(float64(s.Ready))
		observability.QueueDepth.WithLabelValues(s.Queue, "dead").Set(float64(s.Dead))
		if s.Dead > 0 {
			p.logger.Warn("dead-letter queue has tasks",
				zap.String("connection", s.Connection),
				zap.String("queue", s.Queue),
				zap.Int64("count", s.Dead))
		}
	}
}
