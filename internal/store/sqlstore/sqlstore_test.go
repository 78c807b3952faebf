package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "marketplace.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := New(db)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStore_FindExcludesSoftDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	deleted := time.Now()

	require.NoError(t, s.DB().Create(&models.ServiceOffer{ID: "o1", Title: "Logo", Status: models.OfferStatusOpen, Skills: []string{"design"}}).Error)
	require.NoError(t, s.DB().Create(&models.ServiceOffer{ID: "o2", Title: "Gone", Status: models.OfferStatusOpen, DeletedAt: &deleted}).Error)

	found, err := s.Find(ctx, models.EntityServiceOffer, "o1")
	require.NoError(t, err)
	offer := found.(*models.ServiceOffer)
	assert.Equal(t, "Logo", offer.Title)
	assert.Equal(t, []string{"design"}, offer.Skills)

	_, err = s.Find(ctx, models.EntityServiceOffer, "o2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Find(ctx, models.EntityServiceOffer, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Find(ctx, "invoices", "x")
	assert.ErrorIs(t, err, store.ErrUnsupportedType)

	n, err := s.Count(ctx, models.EntityServiceOffer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_ChunkBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profiles := make([]models.ProfessionalProfile, 250)
	for i := range profiles {
		profiles[i] = models.ProfessionalProfile{ID: fmt.Sprintf("p%04d", i), CompletionPercentage: 90}
	}
	require.NoError(t, s.DB().CreateInBatches(profiles, 100).Error)

	var sizes []int
	var keys []string
	err := s.Chunk(ctx, models.EntityProfessionalProfile, 100, func(batch []models.Searchable) error {
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			keys = append(keys, r.SearchKey())
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, sizes)
	require.Len(t, keys, 250)
	assert.Equal(t, "p0000", keys[0])
	assert.Equal(t, "p0249", keys[249])
}

func TestStore_ChunkStopsOnError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DB().Create(&models.Achievement{ID: "a1", Title: "x", Category: models.AchievementAward}).Error)

	boom := fmt.Errorf("boom")
	err := s.Chunk(context.Background(), models.EntityAchievement, 10, func([]models.Searchable) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = s.Chunk(context.Background(), models.EntityAchievement, 0, func([]models.Searchable) error { return nil })
	assert.Error(t, err)
}

func TestStore_FindProfileWithUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}).Error)
	require.NoError(t, s.DB().Create(&models.ProfessionalProfile{ID: "p1", UserID: "u1"}).Error)
	require.NoError(t, s.DB().Create(&models.ProfessionalProfile{ID: "p2", UserID: "ghost"}).Error)

	withUser, err := s.FindProfileWithUser(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, withUser.User)
	assert.Equal(t, "ana@example.com", withUser.User.Email)

	orphan, err := s.FindProfileWithUser(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, orphan.User)

	_, err = s.FindProfileWithUser(ctx, "p3")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_CreateMatchLogFirstWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateMatchLog(ctx, &models.MatchLog{OfferID: "o1", UserID: "u1", ProfileID: "p1"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := s.CountMatchLogs(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := s.CreateMatchLog(ctx, &models.MatchLog{OfferID: "o1", UserID: "u2"})
	require.NoError(t, err)
	assert.True(t, ok, "a different user gets their own row")
}

func TestStore_MarkMatchLogNotified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindMatchLog(ctx, "o1", "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.MarkMatchLogNotified(ctx, "o1", "u1", time.Now()), store.ErrNotFound)

	ok, err := s.CreateMatchLog(ctx, &models.MatchLog{OfferID: "o1", UserID: "u1", ProfileID: "p1", TaskID: "t1"})
	require.NoError(t, err)
	require.True(t, ok)

	log, err := s.FindMatchLog(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", log.TaskID)
	assert.Nil(t, log.NotifiedAt)

	require.NoError(t, s.MarkMatchLogNotified(ctx, "o1", "u1", time.Now()))
	log, err = s.FindMatchLog(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.True(t, log.Delivered())
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
