// Package app assembles the indexer components from configuration. Both
// binaries build on it so they agree on queues, stores and index names.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/freelancehub/app-indexer/internal/alerting"
	"github.com/freelancehub/app-indexer/internal/config"
	"github.com/freelancehub/app-indexer/internal/handlers"
	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/notifier"
	"github.com/freelancehub/app-indexer/internal/observers"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/search"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/freelancehub/app-indexer/internal/store/mongostore"
	"github.com/freelancehub/app-indexer/internal/store/sqlstore"
	"go.uber.org/zap"
)

// Targets names the queues jobs are dispatched to
type Targets struct {
	Indexation    queue.Target
	Default       queue.Target
	Notifications queue.Target
}

// All lists the targets in worker polling priority
func (t Targets) All() []queue.Target {
	return []queue.Target{t.Indexation, t.Default, t.Notifications}
}

// App holds the wired components
type App struct {
	Config     *config.Config
	Store      store.Store
	Engine     search.Engine
	Indexer    *search.Indexer
	Backend    queue.Backend
	Dispatcher *queue.Dispatcher
	Alerter    alerting.Alerter
	Mailer     *notifier.MatchMailer
	Reports    jobs.ReportStore
	Targets    Targets
}

// TargetsFrom builds queue targets from configuration. Index mutations use
// their own connection and queue, the other jobs share the indexation
// connection.
func TargetsFrom(cfg *config.Config) Targets {
	return Targets{
		Indexation:    queue.Target{Connection: cfg.IndexationConnection, Queue: cfg.IndexationQueue},
		Default:       queue.Target{Connection: cfg.IndexationConnection, Queue: cfg.DefaultQueue},
		Notifications: queue.Target{Connection: cfg.IndexationConnection, Queue: cfg.NotificationsQueue},
	}
}

// New connects every backing service selected by cfg. config.AppConfig must
// already hold cfg since the connection helpers read it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	models.ProfileCompletionThreshold = cfg.ProfileCompletionThreshold

	a := &App{
		Config:  cfg,
		Targets: TargetsFrom(cfg),
		Alerter: alerting.NewWebhookAlerter(cfg.AlertWebhookURL),
		Mailer: notifier.NewMatchMailer(notifier.EmailConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		}, cfg.AppURL, nil),
	}

	var err error
	if a.Store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}

	if a.Engine, err = openEngine(cfg); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Indexer = search.NewIndexer(a.Engine, cfg.SearchIndexPrefix)

	switch cfg.QueueDriver {
	case "redis":
		if err := config.InitRedis(); err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Backend = queue.NewRedisBackend(config.Redis)
		a.Reports = jobs.NewRedisReportStore(config.Redis)
	default:
		a.Backend = queue.NewMemoryBackend(nil)
		a.Reports = jobs.NewMemoryReportStore()
	}
	a.Dispatcher = queue.NewDispatcher(a.Backend)

	logging.Logger.Info("components ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("queue", cfg.QueueDriver),
		zap.String("search", cfg.SearchDriver),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		if err := config.InitMongoDB(); err != nil {
			return nil, err
		}
		s := mongostore.New(config.MongoDB)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return s, nil
	case "mysql", "sqlite":
		if err := config.InitSQL(); err != nil {
			return nil, err
		}
		s := sqlstore.New(config.SQL)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", cfg.StoreDriver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openEngine(cfg *config.Config) (search.Engine, error) {
	if cfg.SearchDriver == "memory" {
		return search.NewMemoryEngine(), nil
	}
	engine, err := search.NewElasticEngine(cfg.ElasticURLs)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return engine, nil
}

// Registry binds every job to its handler
func (a *App) Registry() *queue.Registry {
	registry := queue.NewRegistry()
	jobs.Handlers{
		IndexMutation:     jobs.NewIndexMutationHandler(a.Store, a.Indexer, a.Alerter),
		Reindex:           jobs.NewReindexHandler(a.Store, a.Indexer, a.Reports),
		MatchNotification: jobs.NewMatchNotificationHandler(a.Store, a.Mailer),
	}.Register(registry)
	return registry
}

// Observer returns the change observer dispatching to the indexation queue
func (a *App) Observer() *observers.Observer {
	return observers.New(a.Dispatcher, a.Targets.Indexation)
}

// Pool builds the worker fleet over every target
func (a *App) Pool() *queue.Pool {
	return queue.NewPool(a.Backend, a.Registry(), a.Targets.All(), a.Config.WorkerCount,
		queue.WithPollInterval(a.Config.WorkerPollInterval))
}

// HealthChecks lists the dependencies reported by the health endpoint
func (a *App) HealthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"search": a.Indexer.Health,
		"store":  a.Store.Ping,
	}
	if config.Redis != nil && a.Config.QueueDriver == "redis" {
		checks["redis"] = func(ctx context.Context) error {
			return config.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Handler builds the admin API over the wired components
func (a *App) Handler() *handlers.Handler {
	return handlers.New(handlers.Options{
		Dispatcher:    a.Dispatcher,
		Backend:       a.Backend,
		Reports:       a.Reports,
		Targets:       a.Targets.All(),
		ReindexTarget: a.Targets.Default,
		Checks:        a.HealthChecks(),
	})
}

// Close releases the store and Redis connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if config.Redis != nil && a.Config.QueueDriver == "redis" {
		if err := config.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
