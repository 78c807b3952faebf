package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/search"
	"github.com/freelancehub/app-indexer/internal/store"
	"go.uber.org/zap"
)

const (
	// JobReindex is the registry name of Reindex
	JobReindex = "reindex"
	// DefaultBatchSize is how many records a reindex pushes per engine call
	DefaultBatchSize = 100
	// AllTypes selects every searchable type
	AllTypes = "all"
)

// Reindex rebuilds the search index from the record store. An empty Type
// or "all" covers every searchable type.
type Reindex struct {
	Type         string `json:"type,omitempty"`
	ShowProgress bool   `json:"show_progress,omitempty"`
}

func (Reindex) JobName() string { return JobReindex }

func (Reindex) Policy() queue.Policy {
	return queue.Policy{
		MaxAttempts: 3,
		Timeout:     300 * time.Second,
		Backoff:     []time.Duration{60 * time.Second, 180 * time.Second, 300 * time.Second},
		RetryFor:    time.Hour,
	}
}

// UniqueKey keeps a single reindex pending at a time
func (Reindex) UniqueKey() string { return JobReindex }

// ResolveTypes maps the requested type name to the types to rebuild.
// ok is false for a name that matches no searchable type.
func ResolveTypes(name string) (types []models.EntityType, ok bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, AllTypes) {
		return models.SearchableTypes(), true
	}
	t, ok := models.ParseEntityType(name)
	if !ok {
		return nil, false
	}
	return []models.EntityType{t}, true
}

// ReindexHandler executes Reindex tasks
type ReindexHandler struct {
	store     store.Store
	indexer   *search.Indexer
	reports   ReportStore
	batchSize int
	now       func() time.Time
	logger    *logging.SafeLogger
}

func NewReindexHandler(s store.Store, indexer *search.Indexer, reports ReportStore) *ReindexHandler {
	return &ReindexHandler{
		store:     s,
		indexer:   indexer,
		reports:   reports,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		logger:    logging.Indexation(),
	}
}

func (h *ReindexHandler) Handle(ctx context.Context, task *queue.Task) error {
	var job Reindex
	if err := task.Decode(&job); err != nil {
		return err
	}
	report, err := h.Run(ctx, job)
	report.TaskID = task.ID
	report.Attempt = task.Attempts

	if saveErr := h.reports.Save(ctx, report); saveErr != nil {
		h.logger.Warn("failed to save reindex report", zap.Error(saveErr))
	}
	return err
}

// Run performs one reindex pass. Per-type failures do not stop the other
// types; they are joined into the returned error once every type ran.
func (h *ReindexHandler) Run(ctx context.Context, job Reindex) (*ReindexReport, error) {
	report := &ReindexReport{RequestedType: job.Type, StartedAt: h.now(), Types: []TypeReport{}}

	types, ok := ResolveTypes(job.Type)
	if !ok {
		h.logger.Warn("reindex requested for unknown type, nothing to do", zap.String("entity_type", job.Type))
		report.FinishedAt = h.now()
		return report, nil
	}

	h.logger.Info("reindex started", zap.Int("types", len(types)), zap.Bool("show_progress", job.ShowProgress))

	var errs []error
	for _, t := range types {
		tr, err := h.reindexType(ctx, t, job.ShowProgress)
		if err != nil {
			tr.Error = err.Error()
			errs = append(errs, err)
			report.Errors = append(report.Errors, err.Error())
			h.logger.Error("reindex failed for type",
				zap.String("entity_type", string(t)),
				zap.Int64("indexed", tr.Indexed),
				zap.Error(err))
		} else {
			h.logger.Info("reindexed type",
				zap.String("entity_type", string(t)),
				zap.Int64("total", tr.Total),
				zap.Int64("indexed", tr.Indexed),
				zap.Int64("skipped", tr.Skipped),
				zap.Int("batches", tr.Batches))
		}
		report.Types = append(report.Types, tr)
	}
	report.FinishedAt = h.now()

	if len(errs) > 0 {
		return report, fmt.Errorf("reindex completed with %d error(s): %w", len(errs), errors.Join(errs...))
	}
	h.logger.Info("reindex finished",
		zap.Int64("indexed", report.Indexed()),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (h *ReindexHandler) reindexType(ctx context.Context, t models.EntityType, showProgress bool) (TypeReport, error) {
	tr := TypeReport{Type: t}

	if !h.indexer.Supports(t) {
		tr.Warning = "type has no search index"
		h.logger.Warn("skipping type without search index", zap.String("entity_type", string(t)))
		return tr, nil
	}

	total, err := h.store.Count(ctx, t)
	if err != nil {
		return tr, fmt.Errorf("count %s: %w", t, err)
	}
	tr.Total = total
	if total == 0 {
		return tr, nil
	}

	// clearing must finish before the first batch goes in
	if err := h.indexer.Clear(ctx, t); err != nil {
		return tr, err
	}

	progress := h.logger.Debug
	if showProgress {
		progress = h.logger.Info
	}

	err = h.store.Chunk(ctx, t, h.batchSize, func(batch []models.Searchable) error {
		searchable := make([]models.Searchable, 0, len(batch))
		for _, r := range batch {
			if r.ShouldBeSearchable() {
				searchable = append(searchable, r)
			}
		}
		tr.Skipped += int64(len(batch) - len(searchable))

		if len(searchable) > 0 {
			if err := h.indexer.PushBatch(ctx, t, searchable); err != nil {
				return err
			}
			tr.Batches++
			tr.Indexed += int64(len(searchable))
			observability.DocumentsReindexed.WithLabelValues(string(t)).Add(float64(len(searchable)))
		}

		done := tr.Indexed + tr.Skipped
		progress("reindex progress",
			zap.String("entity_type", string(t)),
			zap.Int64("processed", done),
			zap.Int64("total", total),
			zap.Int64("percent", done*100/total))
		return nil
	})
	if err != nil {
		return tr, fmt.Errorf("reindex %s: %w", t, err)
	}
	return tr, nil
}
