// Package jobs holds the queued work of the indexation pipeline: single
// record mutations, bulk reindex runs and offer match notifications.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freelancehub/app-indexer/internal/alerting"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/search"
	"github.com/freelancehub/app-indexer/internal/store"
	"go.uber.org/zap"
)

// JobIndexMutation is the registry name of IndexMutation
const JobIndexMutation = "index_mutation"

// Operation is the index change an IndexMutation performs
type Operation string

const (
	OperationIndex  Operation = "index"
	OperationUpdate Operation = "update"
	OperationRemove Operation = "remove"
)

// Valid reports whether op is a known operation
func (op Operation) Valid() bool {
	switch op {
	case OperationIndex, OperationUpdate, OperationRemove:
		return true
	}
	return false
}

// IndexMutation mirrors one record change into the search index
type IndexMutation struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityKey  string            `json:"entity_key"`
	Operation  Operation         `json:"operation"`
}

func (IndexMutation) JobName() string { return JobIndexMutation }

func (IndexMutation) Policy() queue.Policy {
	return queue.Policy{
		MaxAttempts:   5,
		MaxExceptions: 3,
		Timeout:       120 * time.Second,
		Backoff: []time.Duration{
			30 * time.Second,
			60 * time.Second,
			120 * time.Second,
			240 * time.Second,
			480 * time.Second,
		},
		RetryFor: 2 * time.Hour,
	}
}

// UniqueKey allows one pending mutation per record whatever the operation
func (j IndexMutation) UniqueKey() string {
	return string(j.EntityType) + ":" + j.EntityKey
}

// IndexMutationHandler executes IndexMutation tasks
type IndexMutationHandler struct {
	store   store.Store
	indexer *search.Indexer
	alerter alerting.Alerter
	logger  *logging.SafeLogger
}

func NewIndexMutationHandler(s store.Store, indexer *search.Indexer, alerter alerting.Alerter) *IndexMutationHandler {
	return &IndexMutationHandler{
		store:   s,
		indexer: indexer,
		alerter: alerter,
		logger:  logging.Indexation(),
	}
}

func (h *IndexMutationHandler) Handle(ctx context.Context, task *queue.Task) error {
	var job IndexMutation
	if err := task.Decode(&job); err != nil {
		return err
	}
	if !job.Operation.Valid() {
		return queue.Fatal(fmt.Errorf("unknown index operation %q", job.Operation))
	}

	log := h.logger.With(
		zap.String("entity_type", string(job.EntityType)),
		zap.String("entity_key", job.EntityKey),
		zap.String("operation", string(job.Operation)),
		zap.Int("attempt", task.Attempts),
	)
	log.Info("index mutation started")

	err := h.apply(ctx, log, job)
	if err != nil {
		log.Warn("index mutation failed", zap.Error(err))
		if errors.Is(err, search.ErrNoIndex) || errors.Is(err, store.ErrUnsupportedType) {
			return queue.Fatal(err)
		}
		return err
	}
	return nil
}

func (h *IndexMutationHandler) apply(ctx context.Context, log *logging.SafeLogger, job IndexMutation) error {
	if job.Operation == OperationRemove {
		if err := h.indexer.RemoveFromIndex(ctx, job.EntityType, job.EntityKey); err != nil {
			return err
		}
		log.Info("index mutation succeeded")
		return nil
	}

	entity, err := h.store.Find(ctx, job.EntityType, job.EntityKey)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("record no longer exists, removing from index")
		return h.indexer.RemoveFromIndex(ctx, job.EntityType, job.EntityKey)
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	// the record may have stopped qualifying after dispatch
	if !entity.ShouldBeSearchable() {
		log.Info("record is no longer searchable, removing instead")
		return h.indexer.RemoveFromIndex(ctx, job.EntityType, job.EntityKey)
	}

	if err := h.indexer.PushToIndex(ctx, entity); err != nil {
		return err
	}
	log.Info("index mutation succeeded")
	return nil
}

// Failed escalates a mutation that ran out of retries
func (h *IndexMutationHandler) Failed(ctx context.Context, task *queue.Task, err error) {
	var job IndexMutation
	_ = task.Decode(&job)

	message := task.LastError
	if message == "" {
		message = err.Error()
	}

	h.logger.Error("index mutation failed permanently",
		zap.String("entity_type", string(job.EntityType)),
		zap.String("entity_key", job.EntityKey),
		zap.String("operation", string(job.Operation)),
		zap.Int("attempt", task.Attempts),
		zap.Time("dispatched_at", task.CreatedAt),
		zap.Error(err))

	h.alerter.Alert(ctx, alerting.Alert{
		EntityType: job.EntityType,
		EntityKey:  job.EntityKey,
		Operation:  string(job.Operation),
		Error:      message,
		Attempts:   task.Attempts,
	})
}
