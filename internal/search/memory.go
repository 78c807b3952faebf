package search

import (
	"context"
	"sync"
)

// Op records one call made against a MemoryEngine
type Op struct {
	Kind  string // push, delete, clear
	Index string
	IDs   []string
}

// MemoryEngine is an in-process Engine for local runs and tests
type MemoryEngine struct {
	mu      sync.Mutex
	indices map[string]map[string]map[string]interface{}
	ops     []Op
	err     error
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{indices: make(map[string]map[string]map[string]interface{})}
}

// Fail makes every subsequent call return err until Fail(nil) is called
func (m *MemoryEngine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryEngine) Push(_ context.Context, index string, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	ids := make([]string, 0, len(docs))
	idx := m.indices[index]
	if idx == nil {
		idx = make(map[string]map[string]interface{})
		m.indices[index] = idx
	}
	for _, d := range docs {
		idx[d.ID] = d.Body
		ids = append(ids, d.ID)
	}
	m.ops = append(m.ops, Op{Kind: "push", Index: index, IDs: ids})
	return nil
}

func (m *MemoryEngine) Delete(_ context.Context, index, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	delete(m.indices[index], id)
	m.ops = append(m.ops, Op{Kind: "delete", Index: index, IDs: []string{id}})
	return nil
}

func (m *MemoryEngine) Clear(_ context.Context, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	delete(m.indices, index)
	m.ops = append(m.ops, Op{Kind: "clear", Index: index})
	return nil
}

func (m *MemoryEngine) Health(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Get returns a stored document body
func (m *MemoryEngine) Get(index, id string) (map[string]interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.indices[index][id]
	return doc, ok
}

// Count returns the number of documents in an index
func (m *MemoryEngine) Count(index string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indices[index])
}

// Ops returns a copy of the call log
func (m *MemoryEngine) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// OpsOf returns the logged calls of one kind
func (m *MemoryEngine) OpsOf(kind string) []Op {
	var out []Op
	for _, op := range m.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
