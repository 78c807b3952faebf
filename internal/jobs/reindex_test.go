package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/freelancehub/app-indexer/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putProfiles(e *env, n, completion int) {
	for i := 0; i < n; i++ {
		e.store.Put(&models.ProfessionalProfile{
			ID:                   fmt.Sprintf("p%04d", i),
			Headline:             "Go developer",
			CompletionPercentage: completion,
		})
	}
}

func TestResolveTypes(t *testing.T) {
	all, ok := ResolveTypes("")
	assert.True(t, ok)
	assert.Equal(t, models.SearchableTypes(), all)

	all, ok = ResolveTypes("ALL")
	assert.True(t, ok)
	assert.Len(t, all, 3)

	one, ok := ResolveTypes(" offers ")
	assert.True(t, ok)
	assert.Equal(t, []models.EntityType{models.EntityServiceOffer}, one)

	_, ok = ResolveTypes("invoices")
	assert.False(t, ok)
}

func TestReindex_Policy(t *testing.T) {
	p := Reindex{}.Policy()

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 300*time.Second, p.Timeout)
	assert.Equal(t, time.Hour, p.RetryFor)
	assert.Equal(t, []time.Duration{60 * time.Second, 180 * time.Second, 300 * time.Second}, p.Backoff)
	assert.Equal(t, "reindex", Reindex{Type: "offers"}.UniqueKey())
}

func TestReindex_BatchAccounting(t *testing.T) {
	e := newEnv(t)
	putProfiles(e, 250, 90)

	report, err := NewReindexHandler(e.store, e.indexer, e.reports).Run(context.Background(), Reindex{Type: "professional_profiles"})
	require.NoError(t, err)

	require.Len(t, report.Types, 1)
	tr := report.Types[0]
	assert.Equal(t, int64(250), tr.Total)
	assert.Equal(t, int64(250), tr.Indexed)
	assert.Equal(t, 3, tr.Batches)
	assert.Equal(t, int64(250), report.Indexed())

	ops := e.engine.Ops()
	require.Len(t, ops, 4)
	assert.Equal(t, "clear", ops[0].Kind)
	var sizes []int
	for _, op := range ops[1:] {
		assert.Equal(t, "push", op.Kind)
		sizes = append(sizes, len(op.IDs))
	}
	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, 250, e.engine.Count(indexPrefix+"professional_profiles"))
}

func TestReindex_EmptyTypeIsNoop(t *testing.T) {
	e := newEnv(t)

	report, err := NewReindexHandler(e.store, e.indexer, e.reports).Run(context.Background(), Reindex{Type: "achievements"})
	require.NoError(t, err)

	require.Len(t, report.Types, 1)
	assert.Equal(t, models.EntityAchievement, report.Types[0].Type)
	assert.Equal(t, int64(0), report.Types[0].Total)
	assert.Equal(t, int64(0), report.Types[0].Indexed)
	assert.Empty(t, e.engine.Ops())
}

func TestReindex_SkipsUnsearchableRecords(t *testing.T) {
	e := newEnv(t)
	e.store.Put(openOffer("o1"), openOffer("o2"), &models.ServiceOffer{ID: "o3", Status: models.OfferStatusDraft})

	report, err := NewReindexHandler(e.store, e.indexer, e.reports).Run(context.Background(), Reindex{Type: "offers"})
	require.NoError(t, err)

	tr := report.Types[0]
	assert.Equal(t, int64(3), tr.Total)
	assert.Equal(t, int64(2), tr.Indexed)
	assert.Equal(t, int64(1), tr.Skipped)
	_, ok := e.engine.Get(indexPrefix+"service_offers", "o3")
	assert.False(t, ok)
}

func TestReindex_UnknownTypeIsNoop(t *testing.T) {
	e := newEnv(t)
	putProfiles(e, 3, 90)

	report, err := NewReindexHandler(e.store, e.indexer, e.reports).Run(context.Background(), Reindex{Type: "invoices"})
	require.NoError(t, err)
	assert.Empty(t, report.Types)
	assert.Empty(t, e.engine.Ops())
}

func TestReindex_TypeWithoutIndexIsWarning(t *testing.T) {
	e := newEnv(t)
	e.store.Put(&models.Achievement{ID: "a1", Title: "AWS certified", Category: models.AchievementCertification})
	indexer := search.NewIndexer(e.engine, indexPrefix, models.EntityServiceOffer)

	report, err := NewReindexHandler(e.store, indexer, e.reports).Run(context.Background(), Reindex{Type: "achievements"})
	require.NoError(t, err)
	assert.NotEmpty(t, report.Types[0].Warning)
	assert.Empty(t, e.engine.Ops())
}

func TestReindex_AggregatesErrorsAcrossTypes(t *testing.T) {
	e := newEnv(t)
	putProfiles(e, 5, 90)
	e.store.Put(openOffer("o1"))
	e.store.Put(&models.Achievement{ID: "a1", Title: "Award", Category: models.AchievementAward})
	boom := errors.New("replica lag")
	e.store.FailChunk(models.EntityProfessionalProfile, boom)

	report, err := NewReindexHandler(e.store, e.indexer, e.reports).Run(context.Background(), Reindex{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	require.Len(t, report.Types, 3)
	assert.Contains(t, report.Types[0].Error, "replica lag")
	assert.Equal(t, int64(1), report.Types[1].Indexed)
	assert.Equal(t, int64(1), report.Types[2].Indexed)
	assert.Len(t, report.Errors, 1)
}

func TestReindex_HandleRetriesAndStoresReport(t *testing.T) {
	e := newEnv(t)
	putProfiles(e, 2, 90)
	e.store.FailChunk(models.EntityProfessionalProfile, errors.New("replica lag"))

	task := e.dispatch(t, defaultTarget, Reindex{Type: "profiles", ShowProgress: true})
	outcomes := e.drain(t, defaultTarget)

	assert.Equal(t, []queue.Outcome{queue.OutcomeRetried, queue.OutcomeRetried, queue.OutcomeFailed}, outcomes)
	assert.Empty(t, e.alerts.Alerts())

	report, err := e.reports.Last(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.ID, report.TaskID)
	assert.Equal(t, 3, report.Attempt)
	assert.Equal(t, "profiles", report.RequestedType)
	require.Len(t, report.Errors, 1)
}

func TestMemoryReportStore(t *testing.T) {
	s := NewMemoryReportStore()
	_, err := s.Last(context.Background())
	assert.ErrorIs(t, err, ErrNoReport)

	require.NoError(t, s.Save(context.Background(), &ReindexReport{RequestedType: "all"}))
	report, err := s.Last(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all", report.RequestedType)
}
