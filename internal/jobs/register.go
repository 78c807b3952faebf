package jobs

import "github.com/freelancehub/app-indexer/internal/queue"

// Handlers bundles the job handlers a worker process serves
type Handlers struct {
	IndexMutation     *IndexMutationHandler
	Reindex           *ReindexHandler
	MatchNotification *MatchNotificationHandler
}

// Register binds every configured handler to its job name
func (h Handlers) Register(r *queue.Registry) {
	if h.IndexMutation != nil {
		r.Register(JobIndexMutation, h.IndexMutation)
	}
	if h.Reindex != nil {
		r.Register(JobReindex, h.Reindex)
	}
	if h.MatchNotification != nil {
		r.Register(JobMatchNotification, h.MatchNotification)
	}
}
