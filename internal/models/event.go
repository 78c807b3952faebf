package models

import (
	"encoding/json"
	"fmt"
)

// ChangeKind is a record lifecycle event
type ChangeKind string

const (
	ChangeCreated      ChangeKind = "created"
	ChangeUpdated      ChangeKind = "updated"
	ChangeDeleted      ChangeKind = "deleted"
	ChangeForceDeleted ChangeKind = "force_deleted"
	ChangeRestored     ChangeKind = "restored"
)

// ChangeEvent is a record change emitted by the marketplace database layer.
// Before carries the pre-update values and is only set for updates. After is
// the full record in its JSON form and may be empty for deletions.
type ChangeEvent struct {
	EntityType EntityType      `json:"entity_type"`
	Event      ChangeKind      `json:"event"`
	Key        string          `json:"key"`
	Before     Snapshot        `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// DecodeEntity builds the typed record for t from its JSON form
func DecodeEntity(t EntityType, raw []byte) (Searchable, error) {
	entity, err := NewEntity(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrEmptyPayload
	}
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return entity, nil
}
