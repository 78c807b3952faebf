// Package sqlstore implements store.Store on a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const notDeleted = "deleted_at IS NULL"

// Store reads records through gorm
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables the pipeline reads and writes
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.ProfessionalProfile{},
		&models.ServiceOffer{},
		&models.Achievement{},
		&models.MatchLog{},
	)
}

// DB exposes the handle for seeding and tests
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Find(ctx context.Context, t models.EntityType, key string) (models.Searchable, error) {
	entity, err := models.NewEntity(t)
	if err != nil {
		return nil, store.ErrUnsupportedType
	}
	if err := s.first(ctx, entity, key); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Store) first(ctx context.Context, dest interface{}, key string) error {
	err := s.db.WithContext(ctx).Where("id = ?", key).Where(notDeleted).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", key, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, t models.EntityType) (int64, error) {
	entity, err := models.NewEntity(t)
	if err != nil {
		return 0, store.ErrUnsupportedType
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(entity).Where(notDeleted).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

func (s *Store) Chunk(ctx context.Context, t models.EntityType, size int, fn store.ChunkFunc) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	switch t {
	case models.EntityProfessionalProfile:
		return chunk[models.ProfessionalProfile](ctx, s.db, size, fn)
	case models.EntityServiceOffer:
		return chunk[models.ServiceOffer](ctx, s.db, size, fn)
	case models.EntityAchievement:
		return chunk[models.Achievement](ctx, s.db, size, fn)
	default:
		return store.ErrUnsupportedType
	}
}

// chunk pages by primary key so rows changing mid-walk never shift a page
func chunk[T any, PT interface {
	*T
	models.Searchable
}](ctx context.Context, db *gorm.DB, size int, fn store.ChunkFunc) error {
	last := ""
	for {
		var rows []T
		err := db.WithContext(ctx).
			Where(notDeleted).
			Where("id > ?", last).
			Order("id").
			Limit(size).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("read chunk after %q: %w", last, err)
		}
		if len(rows) == 0 {
			return nil
		}

		batch := make([]models.Searchable, len(rows))
		for i := range rows {
			batch[i] = PT(&rows[i])
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(rows) < size {
			return nil
		}
		last = batch[len(batch)-1].SearchKey()
	}
}

func (s *Store) FindOffer(ctx context.Context, id string) (*models.ServiceOffer, error) {
	var offer models.ServiceOffer
	if err := s.first(ctx, &offer, id); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Store) FindProfileWithUser(ctx context.Context, id string) (*models.ProfileWithUser, error) {
	var profile models.ProfessionalProfile
	if err := s.first(ctx, &profile, id); err != nil {
		return nil, err
	}

	result := &models.ProfileWithUser{Profile: &profile}
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", profile.UserID).Take(&user).Error
	switch {
	case err == nil:
		result.User = &user
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user %s: %w", profile.UserID, err)
	}
	return result, nil
}

// CreateMatchLog relies on the (offer_id, user_id) unique index: a losing
// concurrent insert affects no rows
func (s *Store) CreateMatchLog(ctx context.Context, log *models.MatchLog) (bool, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(log)
	if res.Error != nil {
		return false, fmt.Errorf("create match log: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) CountMatchLogs(ctx context.Context, offerID, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.MatchLog{}).
		Where("offer_id = ? AND user_id = ?", offerID, userID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count match logs: %w", err)
	}
	return n, nil
}

func (s *Store) FindMatchLog(ctx context.Context, offerID, userID string) (*models.MatchLog, error) {
	var log models.MatchLog
	err := s.db.WithContext(ctx).
		Where("offer_id = ? AND user_id = ?", offerID, userID).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find match log: %w", err)
	}
	return &log, nil
}

func (s *Store) MarkMatchLogNotified(ctx context.Context, offerID, userID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.MatchLog{}).
		Where("offer_id = ? AND user_id = ?", offerID, userID).
		Update("notified_at", at)
	if res.Error != nil {
		return fmt.Errorf("mark match log notified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
