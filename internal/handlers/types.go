package handlers

import (
	"time"

	"github.com/freelancehub/app-indexer/internal/queue"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// ReindexRequest selects what to rebuild. An empty type means every type.
type ReindexRequest struct {
	Type         string `json:"type" example:"service_offers"`
	ShowProgress bool   `json:"show_progress" example:"true"`
}

type ReindexResponse struct {
	Dispatched bool   `json:"dispatched"`
	TaskID     string `json:"task_id,omitempty"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

type QueuesResponse struct {
	Queues []queue.Stats `json:"queues"`
}

type FailedTasksResponse struct {
	Connection string             `json:"connection"`
	Queue      string             `json:"queue"`
	Tasks      []queue.FailedTask `json:"tasks"`
}
