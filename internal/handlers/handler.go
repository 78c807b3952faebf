// Package handlers exposes the operator HTTP API.
package handlers

import (
	"context"

	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/middleware"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/gin-gonic/gin"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// Dispatcher enqueues jobs
type Dispatcher interface {
	Dispatch(ctx context.Context, target queue.Target, job queue.Job) (*queue.Task, bool, error)
}

// Handler serves the admin API
type Handler struct {
	dispatcher    Dispatcher
	backend       queue.Backend
	reports       jobs.ReportStore
	targets       []queue.Target
	reindexTarget queue.Target
	checks        map[string]HealthCheck
}

// Options carries the Handler dependencies
type Options struct {
	Dispatcher Dispatcher
	Backend    queue.Backend
	Reports    jobs.ReportStore
	// Targets are the queues reported by the queues endpoint
	Targets       []queue.Target
	ReindexTarget queue.Target
	Checks        map[string]HealthCheck
}

func New(opts Options) *Handler {
	return &Handler{
		dispatcher:    opts.Dispatcher,
		backend:       opts.Backend,
		reports:       opts.Reports,
		targets:       opts.Targets,
		reindexTarget: opts.ReindexTarget,
		checks:        opts.Checks,
	}
}

// RegisterRoutes mounts the API on r, which is expected to be the /v1 group
func (h *Handler) RegisterRoutes(r gin.IRouter, adminKey string) {
	r.GET("/health", h.HealthCheck)

	admin := r.Group("/admin", middleware.AdminKey(adminKey), middleware.AdminAudit())
	{
		admin.POST("/reindex", h.TriggerReindex)
		admin.GET("/reindex/report", h.GetReindexReport)
		admin.GET("/queues", h.GetQueues)
		admin.GET("/queues/:connection/:queue/failed", h.GetFailedTasks)
	}
}
