// Package alerting notifies operators when an index mutation gives up.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/models"
	"github.com/freelancehub/app-indexer/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Alert describes a permanently failed index mutation
type Alert struct {
	EntityType models.EntityType
	EntityKey  string
	Operation  string
	Error      string
	Attempts   int
}

// Alerter delivers alerts. Delivery problems are logged, never returned.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// FormatMessage renders the one-line operator message
func FormatMessage(a Alert) string {
	return fmt.Sprintf(":rotating_light: Search indexation failed for %s %s (operation: %s, attempts: %d): %s",
		a.EntityType, a.EntityKey, a.Operation, a.Attempts, a.Error)
}

// WebhookAlerter posts {"text": message} to an incoming-webhook URL
type WebhookAlerter struct {
	url    string
	client *http.Client
	logger *logging.SafeLogger
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url: url,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logging.Indexation(),
	}
}

// WithClient replaces the HTTP client
func (w *WebhookAlerter) WithClient(c *http.Client) *WebhookAlerter {
	w.client = c
	return w
}

func (w *WebhookAlerter) Alert(ctx context.Context, a Alert) {
	fields := []zap.Field{
		zap.String("entity_type", string(a.EntityType)),
		zap.String("entity_key", a.EntityKey),
		zap.String("operation", a.Operation),
		zap.Int("attempt", a.Attempts),
	}

	if w.url == "" {
		w.logger.Debug("alert webhook not configured, skipping", fields...)
		observability.AlertsSent.WithLabelValues("skipped").Inc()
		return
	}

	if err := w.post(ctx, FormatMessage(a)); err != nil {
		w.logger.Error("failed to send indexation alert", append(fields, zap.Error(err))...)
		observability.AlertsSent.WithLabelValues("error").Inc()
		return
	}

	w.logger.Info("indexation alert sent", fields...)
	observability.AlertsSent.WithLabelValues("sent").Inc()
}

func (w *WebhookAlerter) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
