package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/freelancehub/app-indexer/internal/alerting"
	"github.com/freelancehub/app-indexer/internal/notifier"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/search"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/stretchr/testify/require"
)

const indexPrefix = "test_"

var (
	indexationTarget    = queue.Target{Connection: "memory", Queue: "indexation"}
	defaultTarget       = queue.Target{Connection: "memory", Queue: "default"}
	notificationsTarget = queue.Target{Connection: "memory", Queue: "notifications"}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	clk        *clock
	store      *store.MemoryStore
	engine     *search.MemoryEngine
	indexer    *search.Indexer
	alerts     *alerting.Recorder
	sender     *notifier.FakeSender
	reports    *MemoryReportStore
	backend    *queue.MemoryBackend
	dispatcher *queue.Dispatcher
	worker     *queue.Worker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	e := &env{
		clk:     clk,
		store:   store.NewMemoryStore(),
		engine:  search.NewMemoryEngine(),
		alerts:  alerting.NewRecorder(),
		sender:  &notifier.FakeSender{},
		reports: NewMemoryReportStore(),
		backend: queue.NewMemoryBackend(clk.Now),
	}
	e.indexer = search.NewIndexer(e.engine, indexPrefix)
	e.dispatcher = queue.NewDispatcher(e.backend, queue.WithDispatchClock(clk.Now))

	registry := queue.NewRegistry()
	Handlers{
		IndexMutation:     NewIndexMutationHandler(e.store, e.indexer, e.alerts),
		Reindex:           NewReindexHandler(e.store, e.indexer, e.reports),
		MatchNotification: NewMatchNotificationHandler(e.store, notifier.NewMatchMailer(notifier.EmailConfig{From: "no-reply@example.com"}, "https://app.example.com", e.sender)),
	}.Register(registry)

	e.worker = queue.NewWorker(1, e.backend, registry,
		[]queue.Target{indexationTarget, defaultTarget, notificationsTarget},
		queue.WithClock(clk.Now))
	return e
}

func (e *env) dispatch(t *testing.T, target queue.Target, job queue.Job) *queue.Task {
	t.Helper()
	task, queued, err := e.dispatcher.Dispatch(context.Background(), target, job)
	require.NoError(t, err)
	require.True(t, queued)
	return task
}

// drain processes target until it is empty, jumping the clock over backoff
// delays, and returns every outcome in order
func (e *env) drain(t *testing.T, target queue.Target) []queue.Outcome {
	t.Helper()
	ctx := context.Background()
	var outcomes []queue.Outcome
	for i := 0; i < 50; i++ {
		task, err := e.backend.Pop(ctx, target)
		require.NoError(t, err)
		if task == nil {
			size, err := e.backend.Size(ctx, target)
			require.NoError(t, err)
			if size == 0 {
				return outcomes
			}
			e.clk.Advance(10 * time.Minute)
			continue
		}
		outcomes = append(outcomes, e.worker.Process(ctx, task))
	}
	t.Fatalf("queue %s did not drain", target)
	return nil
}
