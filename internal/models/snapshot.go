package models

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Snapshot is a record's field values keyed by their JSON names
type Snapshot map[string]interface{}

// TakeSnapshot captures the JSON-visible fields of v
func TakeSnapshot(v interface{}) (Snapshot, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// ChangedFields returns which of fields differ between before and after.
// A field missing on one side and present on the other counts as changed.
func ChangedFields(before, after Snapshot, fields ...string) []string {
	var changed []string
	for _, f := range fields {
		b, inBefore := before[f]
		a, inAfter := after[f]
		if inBefore != inAfter || !reflect.DeepEqual(b, a) {
			changed = append(changed, f)
		}
	}
	return changed
}

// AnyChanged reports whether at least one of fields differs
func AnyChanged(before, after Snapshot, fields ...string) bool {
	return len(ChangedFields(before, after, fields...)) > 0
}
