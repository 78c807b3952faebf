package queue

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one attempt of a task
type Handler interface {
	Handle(ctx context.Context, task *Task) error
}

// FailedHandler is implemented by handlers that react to permanent failure
type FailedHandler interface {
	Failed(ctx context.Context, task *Task, err error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, task *Task) error

func (f HandlerFunc) Handle(ctx context.Context, task *Task) error {
	return f(ctx, task)
}

// Registry maps job names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job name, replacing any previous binding
func (r *Registry) Register(job string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[job] = h
}

// Lookup returns the handler for job
func (r *Registry) Lookup(job string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[job]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}
	return h, nil
}
