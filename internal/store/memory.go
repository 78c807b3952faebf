package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/google/uuid"
)

type matchKey struct{ offer, user string }

// MemoryStore is an in-process Store used by tests and local runs
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[models.EntityType]map[string]models.Searchable
	users    map[string]*models.User
	matches  map[matchKey]*models.MatchLog
	chunkErr map[models.EntityType]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[models.EntityType]map[string]models.Searchable),
		users:    make(map[string]*models.User),
		matches:  make(map[matchKey]*models.MatchLog),
		chunkErr: make(map[models.EntityType]error),
	}
}

// Put stores or replaces a record
func (m *MemoryStore) Put(records ...models.Searchable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		byKey := m.records[r.EntityType()]
		if byKey == nil {
			byKey = make(map[string]models.Searchable)
			m.records[r.EntityType()] = byKey
		}
		byKey[r.SearchKey()] = r
	}
}

// PutUser stores or replaces a user
func (m *MemoryStore) PutUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// Remove deletes a record outright
func (m *MemoryStore) Remove(t models.EntityType, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[t], key)
}

// FailChunk makes Chunk on t fail with err
func (m *MemoryStore) FailChunk(t models.EntityType, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkErr[t] = err
}

func softDeleted(r models.Searchable) bool {
	switch v := r.(type) {
	case *models.ProfessionalProfile:
		return v.DeletedAt != nil
	case *models.ServiceOffer:
		return v.DeletedAt != nil
	case *models.Achievement:
		return v.DeletedAt != nil
	}
	return false
}

func supported(t models.EntityType) bool {
	_, err := models.NewEntity(t)
	return err == nil
}

func (m *MemoryStore) Find(_ context.Context, t models.EntityType, key string) (models.Searchable, error) {
	if !supported(t) {
		return nil, ErrUnsupportedType
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[t][key]
	if !ok || softDeleted(r) {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) live(t models.EntityType) []models.Searchable {
	var out []models.Searchable
	for _, r := range m.records[t] {
		if !softDeleted(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SearchKey() < out[j].SearchKey() })
	return out
}

func (m *MemoryStore) Count(_ context.Context, t models.EntityType) (int64, error) {
	if !supported(t) {
		return 0, ErrUnsupportedType
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.live(t))), nil
}

func (m *MemoryStore) Chunk(ctx context.Context, t models.EntityType, size int, fn ChunkFunc) error {
	if !supported(t) {
		return ErrUnsupportedType
	}
	m.mu.RLock()
	if err := m.chunkErr[t]; err != nil {
		m.mu.RUnlock()
		return err
	}
	all := m.live(t)
	m.mu.RUnlock()

	for start := 0; start < len(all); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) FindOffer(ctx context.Context, id string) (*models.ServiceOffer, error) {
	r, err := m.Find(ctx, models.EntityServiceOffer, id)
	if err != nil {
		return nil, err
	}
	return r.(*models.ServiceOffer), nil
}

func (m *MemoryStore) FindProfileWithUser(ctx context.Context, id string) (*models.ProfileWithUser, error) {
	r, err := m.Find(ctx, models.EntityProfessionalProfile, id)
	if err != nil {
		return nil, err
	}
	profile := r.(*models.ProfessionalProfile)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return &models.ProfileWithUser{Profile: profile, User: m.users[profile.UserID]}, nil
}

func (m *MemoryStore) CreateMatchLog(_ context.Context, log *models.MatchLog) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := matchKey{offer: log.OfferID, user: log.UserID}
	if _, exists := m.matches[key]; exists {
		return false, nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	copied := *log
	m.matches[key] = &copied
	return true, nil
}

func (m *MemoryStore) CountMatchLogs(_ context.Context, offerID, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.matches[matchKey{offer: offerID, user: userID}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (m *MemoryStore) FindMatchLog(_ context.Context, offerID, userID string) (*models.MatchLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log, ok := m.matches[matchKey{offer: offerID, user: userID}]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *log
	return &copied, nil
}

func (m *MemoryStore) MarkMatchLogNotified(_ context.Context, offerID, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.matches[matchKey{offer: offerID, user: userID}]
	if !ok {
		return ErrNotFound
	}
	log.NotifiedAt = &at
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }
