package search

import (
	"context"
	"fmt"

	"github.com/freelancehub/app-indexer/internal/models"
)

// Indexer maps searchable records onto engine indices named
// <prefix><entity type>
type Indexer struct {
	engine  Engine
	indices map[models.EntityType]string
}

// NewIndexer registers an index for each given type, or for every
// searchable type when none are given
func NewIndexer(engine Engine, prefix string, types ...models.EntityType) *Indexer {
	if len(types) == 0 {
		types = models.SearchableTypes()
	}
	indices := make(map[models.EntityType]string, len(types))
	for _, t := range types {
		indices[t] = prefix + string(t)
	}
	return &Indexer{engine: engine, indices: indices}
}

// IndexName returns the index backing t
func (i *Indexer) IndexName(t models.EntityType) (string, error) {
	name, ok := i.indices[t]
	if !ok {
		return "", fmt.Errorf("%s: %w", t, ErrNoIndex)
	}
	return name, nil
}

// Supports reports whether t has an index
func (i *Indexer) Supports(t models.EntityType) bool {
	_, ok := i.indices[t]
	return ok
}

// PushToIndex upserts one record
func (i *Indexer) PushToIndex(ctx context.Context, s models.Searchable) error {
	return i.PushBatch(ctx, s.EntityType(), []models.Searchable{s})
}

// PushBatch upserts records of a single type in one engine call
func (i *Indexer) PushBatch(ctx context.Context, t models.EntityType, records []models.Searchable) error {
	if len(records) == 0 {
		return nil
	}
	index, err := i.IndexName(t)
	if err != nil {
		return err
	}

	docs := make([]Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, Document{ID: r.SearchKey(), Body: r.SearchDocument()})
	}
	if err := i.engine.Push(ctx, index, docs); err != nil {
		return fmt.Errorf("push %d %s: %w", len(docs), t, err)
	}
	return nil
}

// RemoveFromIndex deletes one record. Removing an absent record succeeds.
func (i *Indexer) RemoveFromIndex(ctx context.Context, t models.EntityType, key string) error {
	index, err := i.IndexName(t)
	if err != nil {
		return err
	}
	if err := i.engine.Delete(ctx, index, key); err != nil {
		return fmt.Errorf("remove %s %s: %w", t, key, err)
	}
	return nil
}

// Clear drops every document of type t
func (i *Indexer) Clear(ctx context.Context, t models.EntityType) error {
	index, err := i.IndexName(t)
	if err != nil {
		return err
	}
	if err := i.engine.Clear(ctx, index); err != nil {
		return fmt.Errorf("clear %s: %w", t, err)
	}
	return nil
}

// Health checks the underlying engine
func (i *Indexer) Health(ctx context.Context) error {
	return i.engine.Health(ctx)
}
