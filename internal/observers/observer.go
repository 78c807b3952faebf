// Package observers turns record lifecycle events into index mutation jobs.
package observers

import (
	"context"
	"errors"
	"fmt"

	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/queue"
	"go.uber.org/zap"
)

var (
	// ErrInvalidEvent marks events that can never be routed
	ErrInvalidEvent = errors.New("observers: invalid change event")
	ErrMissingKey   = fmt.Errorf("%w: no record key", ErrInvalidEvent)
	ErrUnknownEvent = fmt.Errorf("%w: unknown event kind", ErrInvalidEvent)
)

// affectingFields are the fields whose change can flip ShouldBeSearchable
var affectingFields = map[models.EntityType][]string{
	models.EntityProfessionalProfile: {"completion_percentage"},
	models.EntityServiceOffer:        {"status", "is_private"},
	models.EntityAchievement:         {"title", "category"},
}

// AffectingFields returns the searchability-affecting fields of t
func AffectingFields(t models.EntityType) []string {
	return append([]string(nil), affectingFields[t]...)
}

// Dispatcher enqueues jobs
type Dispatcher interface {
	Dispatch(ctx context.Context, target queue.Target, job queue.Job) (*queue.Task, bool, error)
}

// Observer routes record changes to the indexation queue
type Observer struct {
	dispatcher Dispatcher
	target     queue.Target
	logger     *logging.SafeLogger
}

func New(dispatcher Dispatcher, target queue.Target) *Observer {
	return &Observer{dispatcher: dispatcher, target: target, logger: logging.Indexation()}
}

// Created indexes a new record that qualifies. A record that does not
// qualify was never indexed, so nothing is dispatched.
func (o *Observer) Created(ctx context.Context, entity models.Searchable) error {
	if !entity.ShouldBeSearchable() {
		return nil
	}
	return o.dispatch(ctx, entity.EntityType(), entity.SearchKey(), jobs.OperationIndex)
}

// Updated re-evaluates searchability when an affecting field changed and
// otherwise refreshes the document
func (o *Observer) Updated(ctx context.Context, before models.Snapshot, entity models.Searchable) error {
	after, err := models.TakeSnapshot(entity)
	if err != nil {
		return err
	}

	if !models.AnyChanged(before, after, affectingFields[entity.EntityType()]...) {
		return o.dispatch(ctx, entity.EntityType(), entity.SearchKey(), jobs.OperationUpdate)
	}
	if entity.ShouldBeSearchable() {
		return o.dispatch(ctx, entity.EntityType(), entity.SearchKey(), jobs.OperationIndex)
	}
	return o.dispatch(ctx, entity.EntityType(), entity.SearchKey(), jobs.OperationRemove)
}

// Deleted always removes, for soft and hard deletes alike
func (o *Observer) Deleted(ctx context.Context, t models.EntityType, key string) error {
	return o.dispatch(ctx, t, key, jobs.OperationRemove)
}

// Restored indexes a restored record that qualifies
func (o *Observer) Restored(ctx context.Context, entity models.Searchable) error {
	return o.Created(ctx, entity)
}

// Handle routes one change event
func (o *Observer) Handle(ctx context.Context, ev models.ChangeEvent) error {
	if _, err := models.NewEntity(ev.EntityType); err != nil {
		return fmt.Errorf("%w: %w %q", ErrInvalidEvent, err, ev.EntityType)
	}

	switch ev.Event {
	case models.ChangeDeleted, models.ChangeForceDeleted:
		key := ev.Key
		if key == "" {
			if entity, err := models.DecodeEntity(ev.EntityType, ev.After); err == nil {
				key = entity.SearchKey()
			}
		}
		if key == "" {
			return ErrMissingKey
		}
		return o.Deleted(ctx, ev.EntityType, key)
	}

	entity, err := models.DecodeEntity(ev.EntityType, ev.After)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if entity.SearchKey() == "" {
		return ErrMissingKey
	}

	switch ev.Event {
	case models.ChangeCreated:
		return o.Created(ctx, entity)
	case models.ChangeUpdated:
		return o.Updated(ctx, ev.Before, entity)
	case models.ChangeRestored:
		return o.Restored(ctx, entity)
	default:
		return fmt.Errorf("%w %q", ErrUnknownEvent, ev.Event)
	}
}

func (o *Observer) dispatch(ctx context.Context, t models.EntityType, key string, op jobs.Operation) error {
	job := jobs.IndexMutation{EntityType: t, EntityKey: key, Operation: op}
	fields := []zap.Field{
		zap.String("entity_type", string(t)),
		zap.String("entity_key", key),
		zap.String("operation", string(op)),
	}

	_, queued, err := o.dispatcher.Dispatch(ctx, o.target, job)
	if err != nil {
		o.logger.Error("failed to dispatch index mutation", append(fields, zap.Error(err))...)
		return fmt.Errorf("dispatch %s %s %s: %w", op, t, key, err)
	}
	if !queued {
		o.logger.Debug("index mutation already pending", fields...)
		return nil
	}
	o.logger.Debug("index mutation dispatched", fields...)
	return nil
}
