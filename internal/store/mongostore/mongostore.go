// Package mongostore implements store.Store on MongoDB. Each entity type
// lives in the collection of the same name.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection     = "users"
	matchLogsCollection = "match_logs"
	matchLogsIndex      = "ux_match_logs_offer_user"
)

// live matches documents without a deleted_at value
var live = bson.M{"deleted_at": nil}

// Store reads records from a MongoDB database
type Store struct {
	db     *mongo.Database
	logger *logging.SafeLogger
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, logger: logging.Logger.Named("mongostore")}
}

// EnsureIndexes creates the indexes the pipeline depends on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.ensureIndex(ctx, matchLogsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "offer_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetName(matchLogsIndex).SetUnique(true),
	}); err != nil {
		return err
	}

	for _, t := range models.SearchableTypes() {
		if err := s.ensureIndex(ctx, string(t), mongo.IndexModel{
			Keys:    bson.D{{Key: "deleted_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("deleted_at_1__id_1"),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context, collection string, model mongo.IndexModel) error {
	name := *model.Options.Name

	cursor, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes on %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			continue
		}
		if existing, ok := index["name"].(string); ok && existing == name {
			s.logger.Debug("index already exists", zap.String("collection", collection), zap.String("index", name))
			return nil
		}
	}

	if _, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		// another instance may have created it first
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("create index %s on %s: %w", name, collection, err)
	}

	s.logger.Info("created index", zap.String("collection", collection), zap.String("index", name))
	return nil
}

func (s *Store) Find(ctx context.Context, t models.EntityType, key string) (models.Searchable, error) {
	entity, err := models.NewEntity(t)
	if err != nil {
		return nil, store.ErrUnsupportedType
	}
	if err := s.findOne(ctx, string(t), key, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Store) findOne(ctx context.Context, collection, key string, dest interface{}) error {
	filter := bson.M{"_id": key, "deleted_at": nil}
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s in %s: %w", key, collection, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, t models.EntityType) (int64, error) {
	if _, err := models.NewEntity(t); err != nil {
		return 0, store.ErrUnsupportedType
	}
	n, err := s.db.Collection(string(t)).CountDocuments(ctx, live)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

func (s *Store) Chunk(ctx context.Context, t models.EntityType, size int, fn store.ChunkFunc) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	coll := s.db.Collection(string(t))
	switch t {
	case models.EntityProfessionalProfile:
		return chunk[models.ProfessionalProfile](ctx, coll, size, fn)
	case models.EntityServiceOffer:
		return chunk[models.ServiceOffer](ctx, coll, size, fn)
	case models.EntityAchievement:
		return chunk[models.Achievement](ctx, coll, size, fn)
	default:
		return store.ErrUnsupportedType
	}
}

func chunk[T any, PT interface {
	*T
	models.Searchable
}](ctx context.Context, coll *mongo.Collection, size int, fn store.ChunkFunc) error {
	last := ""
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(size))
	for {
		cursor, err := coll.Find(ctx, bson.M{"deleted_at": nil, "_id": bson.M{"$gt": last}}, opts)
		if err != nil {
			return fmt.Errorf("read chunk after %q: %w", last, err)
		}
		var rows []T
		if err := cursor.All(ctx, &rows); err != nil {
			return fmt.Errorf("decode chunk after %q: %w", last, err)
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
	if err := s.findOne(ctx, string(models.EntityServiceOffer), id, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Store) FindProfileWithUser(ctx context.Context, id string) (*models.ProfileWithUser, error) {
	var profile models.ProfessionalProfile
	if err := s.findOne(ctx, string(models.EntityProfessionalProfile), id, &profile); err != nil {
		return nil, err
	}

	result := &models.ProfileWithUser{Profile: &profile}
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": profile.UserID}).Decode(&user)
	switch {
	case err == nil:
		result.User = &user
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("find user %s: %w", profile.UserID, err)
	}
	return result, nil
}

// CreateMatchLog relies on the unique (offer_id, user_id) index: a losing
// concurrent insert fails with a duplicate key error
func (s *Store) CreateMatchLog(ctx context.Context, log *models.MatchLog) (bool, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := s.db.Collection(matchLogsCollection).InsertOne(ctx, log)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("create match log: %w", err)
	}
	return true, nil
}

func (s *Store) CountMatchLogs(ctx context.Context, offerID, userID string) (int64, error) {
	n, err := s.db.Collection(matchLogsCollection).CountDocuments(ctx, bson.M{"offer_id": offerID, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count match logs: %w", err)
	}
	return n, nil
}

func (s *Store) FindMatchLog(ctx context.Context, offerID, userID string) (*models.MatchLog, error) {
	var log models.MatchLog
	err := s.db.Collection(matchLogsCollection).
		FindOne(ctx, bson.M{"offer_id": offerID, "user_id": userID}).
		Decode(&log)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find match log: %w", err)
	}
	return &log, nil
}

func (s *Store) MarkMatchLogNotified(ctx context.Context, offerID, userID string, at time.Time) error {
	res, err := s.db.Collection(matchLogsCollection).UpdateOne(ctx,
		bson.M{"offer_id": offerID, "user_id": userID},
		bson.M{"$set": bson.M{"notified_at": at}},
	)
	if err != nil {
		return fmt.Errorf("mark match log notified: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
