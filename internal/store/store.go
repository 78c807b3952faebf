// Package store reads marketplace records for the indexation pipeline and
// records match notifications.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
)

var (
	ErrNotFound        = errors.New("store: record not found")
	ErrUnsupportedType = errors.New("store: unsupported entity type")
)

// ChunkFunc receives one batch of records ordered by key
type ChunkFunc func(batch []models.Searchable) error

// Store is the record store. Soft-deleted records are invisible to every
// read method.
type Store interface {
	Find(ctx context.Context, t models.EntityType, key string) (models.Searchable, error)
	Count(ctx context.Context, t models.EntityType) (int64, error)
	// Chunk walks all records of t in key order, size at a time, stopping
	// at the first error returned by fn
	Chunk(ctx context.Context, t models.EntityType, size int, fn ChunkFunc) error
	FindOffer(ctx context.Context, id string) (*models.ServiceOffer, error)
	FindProfileWithUser(ctx context.Context, id string) (*models.ProfileWithUser, error)
	// CreateMatchLog inserts log unless a row for (offer, user) exists.
	// created is true only for the caller whose insert won.
	CreateMatchLog(ctx context.Context, log *models.MatchLog) (created bool, err error)
	CountMatchLogs(ctx context.Context, offerID, userID string) (int64, error)
	// FindMatchLog returns the row for (offer, user) or ErrNotFound
	FindMatchLog(ctx context.Context, offerID, userID string) (*models.MatchLog, error)
	// MarkMatchLogNotified records that the email for (offer, user) was sent
	MarkMatchLogNotified(ctx context.Context, offerID, userID string, at time.Time) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
