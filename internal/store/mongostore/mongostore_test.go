package mongostore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/freelancehub/app-indexer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Integration(t *testing.T) {
	db := testutil.StartMongo(t, "marketplace_test")
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.EnsureIndexes(ctx))
	require.NoError(t, s.EnsureIndexes(ctx), "index creation must be idempotent")
	require.NoError(t, s.Ping(ctx))

	deleted := time.Now()
	docs := make([]interface{}, 0, 251)
	for i := 0; i < 250; i++ {
		docs = append(docs, &models.ServiceOffer{ID: fmt.Sprintf("o%04d", i), Status: models.OfferStatusOpen})
	}
	docs = append(docs, &models.ServiceOffer{ID: "zz-deleted", Status: models.OfferStatusOpen, DeletedAt: &deleted})
	_, err := db.Collection(string(models.EntityServiceOffer)).InsertMany(ctx, docs)
	require.NoError(t, err)

	n, err := s.Count(ctx, models.EntityServiceOffer)
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)

	var sizes []int
	err = s.Chunk(ctx, models.EntityServiceOffer, 100, func(batch []models.Searchable) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, sizes)

	_, err = s.FindOffer(ctx, "zz-deleted")
	assert.ErrorIs(t, err, store.ErrNotFound)

	offer, err := s.FindOffer(ctx, "o0001")
	require.NoError(t, err)
	assert.True(t, offer.ShouldBeSearchable())

	_, err = db.Collection("users").InsertOne(ctx, &models.User{ID: "u1", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = db.Collection(string(models.EntityProfessionalProfile)).InsertOne(ctx, &models.ProfessionalProfile{ID: "p1", UserID: "u1"})
	require.NoError(t, err)

	pw, err := s.FindProfileWithUser(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, pw.User)
	assert.Equal(t, "ana@example.com", pw.User.Email)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateMatchLog(ctx, &models.MatchLog{OfferID: "o0001", UserID: "u1", ProfileID: "p1"})
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

	count, err := s.CountMatchLogs(ctx, "o0001", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	claim, err := s.FindMatchLog(ctx, "o0001", "u1")
	require.NoError(t, err)
	assert.False(t, claim.Delivered())
	require.NoError(t, s.MarkMatchLogNotified(ctx, "o0001", "u1", time.Now()))
	claim, err = s.FindMatchLog(ctx, "o0001", "u1")
	require.NoError(t, err)
	assert.True(t, claim.Delivered())
	assert.ErrorIs(t, s.MarkMatchLogNotified(ctx, "o0001", "u2", time.Now()), store.ErrNotFound)
}
