package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:3000"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// Record store configuration
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"marketplace"`
	SQLDSN        string `env:"SQL_DSN" envDefault:"marketplace.db"`

	// Redis configuration
	RedisURI      string `env:"REDIS_URI" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Search engine configuration
	SearchDriver      string   `env:"SEARCH_DRIVER" envDefault:"elasticsearch"`
	ElasticURLs       []string `env:"ELASTIC_URLS" envDefault:"http://localhost:9200" envSeparator:","`
	SearchIndexPrefix string   `env:"SEARCH_INDEX_PREFIX" envDefault:"marketplace_"`

	// Kafka ingress
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID      string   `env:"KAFKA_GROUP_ID" envDefault:"app-indexer"`
	ChangeEventsTopic string   `env:"CHANGE_EVENTS_TOPIC" envDefault:"marketplace.changes"`
	OfferMatchesTopic string   `env:"OFFER_MATCHES_TOPIC" envDefault:"marketplace.offer_matches"`

	// Queue configuration
	QueueDriver          string        `env:"QUEUE_DRIVER" envDefault:"redis"`
	WorkerCount          int           `env:"WORKER_COUNT" envDefault:"4"`
	WorkerPollInterval   time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"200ms"`
	IndexationConnection string        `env:"INDEXATION_CONNECTION" envDefault:"redis"`
	IndexationQueue      string        `env:"INDEXATION_QUEUE" envDefault:"indexation"`
	DefaultQueue         string        `env:"DEFAULT_QUEUE" envDefault:"default"`
	NotificationsQueue   string        `env:"NOTIFICATIONS_QUEUE" envDefault:"notifications"`

	// Alerting
	AlertWebhookURL string `env:"ALERT_WEBHOOK_URL"`

	// Mail transport
	MailHost     string `env:"MAIL_HOST" envDefault:"localhost"`
	MailPort     int    `env:"MAIL_PORT" envDefault:"1025"`
	MailUsername string `env:"MAIL_USERNAME"`
	MailPassword string `env:"MAIL_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@freelancehub.local"`

	// Domain rules
	ProfileCompletionThreshold int    `env:"PROFILE_COMPLETION_THRESHOLD" envDefault:"80"`
	ReindexSchedule            string `env:"REINDEX_SCHEDULE"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	cfg, err := Parse()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Parse reads the environment into a validated Config without touching AppConfig
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case "mongo", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: expected mongo, mysql or sqlite", cfg.StoreDriver)
	}

	cfg.QueueDriver = strings.ToLower(strings.TrimSpace(cfg.QueueDriver))
	switch cfg.QueueDriver {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("invalid QUEUE_DRIVER %q: expected redis or memory", cfg.QueueDriver)
	}

	cfg.SearchDriver = strings.ToLower(strings.TrimSpace(cfg.SearchDriver))
	switch cfg.SearchDriver {
	case "elasticsearch", "memory":
	default:
		return nil, fmt.Errorf("invalid SEARCH_DRIVER %q: expected elasticsearch or memory", cfg.SearchDriver)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.WorkerPollInterval <= 0 {
		cfg.WorkerPollInterval = 200 * time.Millisecond
	}
	if cfg.ProfileCompletionThreshold < 0 || cfg.ProfileCompletionThreshold > 100 {
		return nil, fmt.Errorf("invalid PROFILE_COMPLETION_THRESHOLD %d: expected 0-100", cfg.ProfileCompletionThreshold)
	}

	return &cfg, nil
}

// KafkaEnabled reports whether Kafka ingress is configured
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
