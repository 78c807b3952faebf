package search

import (
	"context"
	"errors"
)

// Error values returned by engines for callers to react to
var (
	ErrTooManyRequests = errors.New("search engine: too many requests (429)")
	ErrServerError     = errors.New("search engine: server error (5xx)")
	ErrUnhealthy       = errors.New("search engine: cluster unhealthy")
	ErrNoIndex         = errors.New("search engine: no index configured for entity type")
)

// Document is one record body addressed by id
type Document struct {
	ID   string
	Body map[string]interface{}
}

// Engine is the full-text search backend. Push upserts by id. Delete and
// Clear treat a missing document or index as success.
type Engine interface {
	Push(ctx context.Context, index string, docs []Document) error
	Delete(ctx context.Context, index, id string) error
	Clear(ctx context.Context, index string) error
	Health(ctx context.Context) error
}
