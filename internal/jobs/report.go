package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

// LastReportKey holds the most recent reindex report in Redis
const LastReportKey = "reindex:last_report"

var ErrNoReport = errors.New("jobs: no reindex report recorded")

// TypeReport is the outcome of reindexing one entity type
type TypeReport struct {
	Type    models.EntityType `json:"type"`
	Total   int64             `json:"total"`
	Indexed int64             `json:"indexed"`
	Skipped int64             `json:"skipped"`
	Batches int               `json:"batches"`
	Warning string            `json:"warning,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ReindexReport summarizes one reindex run
type ReindexReport struct {
	TaskID        string       `json:"task_id,omitempty"`
	Attempt       int          `json:"attempt"`
	RequestedType string       `json:"requested_type,omitempty"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	Types         []TypeReport `json:"types"`
	Errors        []string     `json:"errors,omitempty"`
}

// Indexed sums the indexed counts over every type
func (r *ReindexReport) Indexed() int64 {
	var n int64
	for _, t := range r.Types {
		n += t.Indexed
	}
	return n
}

// ReportStore keeps the last reindex report for the admin API
type ReportStore interface {
	Save(ctx context.Context, report *ReindexReport) error
	Last(ctx context.Context) (*ReindexReport, error)
}

// RedisReportStore persists reports as JSON under LastReportKey
type RedisReportStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewRedisReportStore(client *redisclient.Client) *RedisReportStore {
	return &RedisReportStore{client: client, ttl: 30 * 24 * time.Hour}
}

func (s *RedisReportStore) Save(ctx context.Context, report *ReindexReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal reindex report: %w", err)
	}
	if err := s.client.Set(ctx, LastReportKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save reindex report: %w", err)
	}
	return nil
}

func (s *RedisReportStore) Last(ctx context.Context) (*ReindexReport, error) {
	raw, err := s.client.Get(ctx, LastReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("load reindex report: %w", err)
	}
	var report ReindexReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode reindex report: %w", err)
	}
	return &report, nil
}

// MemoryReportStore keeps the last report in process
type MemoryReportStore struct {
	mu   sync.RWMutex
	last *ReindexReport
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

func (s *MemoryReportStore) Save(_ context.Context, report *ReindexReport) error {
	copied := *report
	copied.Types = append([]TypeReport(nil), report.Types...)
	copied.Errors = append([]string(nil), report.Errors...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &copied
	return nil
}

func (s *MemoryReportStore) Last(context.Context) (*ReindexReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, ErrNoReport
	}
	copied := *s.last
	return &copied, nil
}
