package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/freelancehub/app-indexer/internal/app"
	"github.com/freelancehub/app-indexer/internal/config"
	"github.com/freelancehub/app-indexer/internal/consumer"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/freelancehub/app-indexer/internal/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logging.Logger.Sync()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := observability.InitTracer("app-indexer-worker"); err != nil {
		logging.Logger.Error("failed to initialize tracer", zap.Error(err))
	}
	defer observability.ShutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.New(ctx, config.AppConfig)
	if err != nil {
		logging.Logger.Fatal("failed to initialize components", zap.Error(err))
	}

	logging.Logger.Info("starting indexer worker",
		zap.Int("workers", config.AppConfig.WorkerCount),
		zap.String("indexation_queue", components.Targets.Indexation.String()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return components.Pool().Run(gctx)
	})

	if spec := config.AppConfig.ReindexSchedule; spec != "" {
		sched, err := scheduler.New(spec, components.Dispatcher, components.Targets.Default)
		if err != nil {
			logging.Logger.Fatal("invalid reindex schedule", zap.Error(err))
		}
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if config.AppConfig.KafkaEnabled() {
		consumers, err := buildConsumers(components)
		if err != nil {
			logging.Logger.Fatal("failed to create kafka consumers", zap.Error(err))
		}
		for _, c := range consumers {
			g.Go(func() error {
				defer c.Close()
				return c.Run(gctx)
			})
		}
	} else {
		logging.Logger.Info("KAFKA_BROKERS is not set, change event ingress disabled")
	}

	if err := g.Wait(); err != nil {
		logging.Logger.Error("worker stopped with error", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := components.Close(closeCtx); err != nil {
		logging.Logger.Error("failed to close components", zap.Error(err))
	}
	logging.Logger.Info("indexer worker stopped")
}

func buildConsumers(components *app.App) ([]*consumer.Consumer, error) {
	cfg := config.AppConfig

	changes, err := consumer.NewReader(cfg.KafkaBrokers, cfg.ChangeEventsTopic, cfg.KafkaGroupID)
	if err != nil {
		return nil, fmt.Errorf("change events reader: %w", err)
	}
	matches, err := consumer.NewReader(cfg.KafkaBrokers, cfg.OfferMatchesTopic, cfg.KafkaGroupID)
	if err != nil {
		changes.Close()
		return nil, fmt.Errorf("offer matches reader: %w", err)
	}

	return []*consumer.Consumer{
		consumer.New(changes, cfg.ChangeEventsTopic, consumer.ChangeEvents(components.Observer())),
		consumer.New(matches, cfg.OfferMatchesTopic, consumer.OfferMatches(components.Dispatcher, components.Targets.Notifications)),
	}, nil
}
