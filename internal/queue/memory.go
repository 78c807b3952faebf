package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryLock struct {
	owner   string
	expires time.Time
}

// MemoryBackend keeps queues in process. Tasks are stored serialized so
// callers never share state with a queued task.
type MemoryBackend struct {
	mu    sync.Mutex
	now   func() time.Time
	ready map[Target][][]byte
	dead  map[Target][]FailedTask
	locks map[string]memoryLock
}

// NewMemoryBackend creates an empty backend. now defaults to time.Now.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{
		now:   now,
		ready: make(map[Target][][]byte),
		dead:  make(map[Target][]FailedTask),
		locks: make(map[string]memoryLock),
	}
}

func (m *MemoryBackend) Push(_ context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := task.Target()
	m.ready[t] = append(m.ready[t], raw)
	return nil
}

func (m *MemoryBackend) Pop(_ context.Context, target Target) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	tasks := m.ready[target]
	for i, raw := range tasks {
		var task Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, err
		}
		if task.AvailableAt.After(now) {
			continue
		}
		m.ready[target] = append(tasks[:i:i], tasks[i+1:]...)
		return &task, nil
	}
	return nil, nil
}

func (m *MemoryBackend) AcquireUnique(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.locks[key]; ok && now.Before(l.expires) {
		return false, nil
	}
	m.locks[key] = memoryLock{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (m *MemoryBackend) ReleaseUnique(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok && l.owner == owner {
		delete(m.locks, key)
	}
	return nil
}

// Locked reports whether key is currently held
func (m *MemoryBackend) Locked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	return ok && m.now().Before(l.expires)
}

func (m *MemoryBackend) Bury(_ context.Context, failed *FailedTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := failed.Task.Target()
	m.dead[t] = append(m.dead[t], *failed)
	return nil
}

func (m *MemoryBackend) Size(_ context.Context, target Target) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.ready[target])), nil
}

func (m *MemoryBackend) DeadSize(_ context.Context, target Target) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.dead[target])), nil
}

func (m *MemoryBackend) Dead(_ context.Context, target Target, limit int64) ([]FailedTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dead := m.dead[target]
	out := make([]FailedTask, 0, len(dead))
	for i := len(dead) - 1; i >= 0 && (limit <= 0 || int64(len(out)) < limit); i-- {
		out = append(out, dead[i])
	}
	return out, nil
}
