package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_indexer_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_indexer_active_connections",
			Help: "Number of active connections",
		},
	)

	// JobsProcessed counts task executions by outcome (succeeded, retried, failed)
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_jobs_processed_total",
			Help: "Number of queued jobs processed by outcome",
		},
		[]string{"job", "queue", "outcome"},
	)

	// JobDuration tracks how long a single attempt takes
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_indexer_job_duration_seconds",
			Help:    "Duration of a single job attempt in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"job"},
	)

	// JobsDeduplicated counts dispatches dropped by the uniqueness lock
	JobsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_jobs_deduplicated_total",
			Help: "Number of dispatches dropped because an identical job was pending",
		},
		[]string{"job"},
	)

	// QueueDepth tracks ready and dead-letter sizes per queue
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_indexer_queue_depth",
			Help: "Number of tasks per queue",
		},
		[]string{"queue", "state"},
	)

	// AlertsSent counts operator alerts by delivery status
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_alerts_total",
			Help: "Number of operator alerts emitted",
		},
		[]string{"status"},
	)

	// DocumentsReindexed counts documents pushed by bulk reindex runs
	DocumentsReindexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_documents_reindexed_total",
			Help: "Number of documents pushed by bulk reindex",
		},
		[]string{"entity_type"},
	)

	// MessagesConsumed counts ingress messages by topic and status
	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_messages_consumed_total",
			Help: "Number of change and match messages consumed",
		},
		[]string{"topic", "status"},
	)

	// MatchNotifications counts match notification outcomes
	MatchNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_indexer_match_notifications_total",
			Help: "Number of offer match notifications by outcome",
		},
		[]string{"outcome"},
	)
)
