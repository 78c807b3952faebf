package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/freelancehub/app-indexer/internal/jobs"
	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/freelancehub/app-indexer/internal/queue"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultFailedLimit = 20
	maxFailedLimit     = 200
)

// TriggerReindex godoc
// @Summary Trigger a bulk reindex
// @Description Dispatches a reindex of one entity type, or of every type when none is given. Only one reindex can be pending at a time.
// @Tags admin
// @Accept json
// @Produce json
// @Param data body ReindexRequest false "Type to rebuild and progress logging flag"
// @Security ApiKeyAuth
// @Success 202 {object} ReindexResponse
// @Failure 400 {object} ErrorResponse "Malformed body or unknown type"
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/reindex [post]
func (h *Handler) TriggerReindex(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "TriggerReindex",
		attribute.String("operation", "trigger_reindex"))
	defer span.End()

	var req ReindexRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	types, ok := jobs.ResolveTypes(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown entity type: " + req.Type})
		return
	}
	typeName := jobs.AllTypes
	if len(types) == 1 && req.Type != "" {
		typeName = string(types[0])
	}

	task, queued, err := h.dispatcher.Dispatch(ctx, h.reindexTarget, jobs.Reindex{Type: typeName, ShowProgress: req.ShowProgress})
	if err != nil {
		observability.RecordError(span, err)
		observability.Logger().Error("failed to dispatch reindex", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to dispatch reindex"})
		return
	}

	resp := ReindexResponse{Dispatched: queued, Type: typeName}
	if queued {
		resp.TaskID = task.ID
		resp.Message = "reindex dispatched"
	} else {
		resp.Message = "a reindex is already pending"
	}
	span.SetAttributes(attribute.Bool("reindex.dispatched", queued), attribute.String("reindex.type", typeName))
	c.JSON(http.StatusAccepted, resp)
}

// GetReindexReport godoc
// @Summary Last reindex report
// @Description Returns the outcome of the most recent reindex run with per-type counts and errors
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} jobs.ReindexReport
// @Failure 404 {object} ErrorResponse "No reindex has run yet"
// @Failure 500 {object} ErrorResponse
// @Router /admin/reindex/report [get]
func (h *Handler) GetReindexReport(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "GetReindexReport")
	defer span.End()

	report, err := h.reports.Last(ctx)
	if errors.Is(err, jobs.ErrNoReport) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no reindex report available"})
		return
	}
	if err != nil {
		observability.RecordError(span, err)
		observability.Logger().Error("failed to load reindex report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load reindex report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetQueues godoc
// @Summary Queue sizes
// @Description Returns ready and dead-letter sizes for every worker queue
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} QueuesResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/queues [get]
func (h *Handler) GetQueues(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "GetQueues")
	defer span.End()

	stats, err := queue.CollectStats(ctx, h.backend, h.targets)
	if err != nil {
		observability.RecordError(span, err)
		observability.Logger().Error("failed to collect queue stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to collect queue stats"})
		return
	}
	c.JSON(http.StatusOK, QueuesResponse{Queues: stats})
}

// GetFailedTasks godoc
// @Summary Dead-lettered tasks
// @Description Lists the most recent permanently failed tasks of a queue
// @Tags admin
// @Produce json
// @Param connection path string true "Queue connection" example(redis)
// @Param queue path string true "Queue name" example(indexation)
// @Param limit query int false "Maximum number of tasks" default(20)
// @Security ApiKeyAuth
// @Success 200 {object} FailedTasksResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown queue"
// @Failure 500 {object} ErrorResponse
// @Router /admin/queues/{connection}/{queue}/failed [get]
func (h *Handler) GetFailedTasks(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "GetFailedTasks")
	defer span.End()

	target := queue.Target{Connection: c.Param("connection"), Queue: c.Param("queue")}
	known := false
	for _, t := range h.targets {
		if t == target {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown queue " + target.String()})
		return
	}

	limit := defaultFailedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxFailedLimit)
	}

	tasks, err := h.backend.Dead(ctx, target, int64(limit))
	if err != nil {
		observability.RecordError(span, err)
		observability.Logger().Error("failed to list dead-lettered tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list failed tasks"})
		return
	}
	c.JSON(http.StatusOK, FailedTasksResponse{Connection: target.Connection, Queue: target.Queue, Tasks: tasks})
}
