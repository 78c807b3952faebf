package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/freelancehub/app-indexer/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ElasticEngine implements Engine over the Elasticsearch REST API
type ElasticEngine struct {
	client  *elasticsearch.Client
	refresh string
}

// ElasticOption configures an ElasticEngine
type ElasticOption func(*ElasticEngine)

// WithRefresh sets the refresh policy on writes ("true", "false", "wait_for")
func WithRefresh(refresh string) ElasticOption {
	return func(e *ElasticEngine) { e.refresh = refresh }
}

// NewElasticEngine connects to the given node addresses
func NewElasticEngine(addresses []string, opts ...ElasticOption) (*ElasticEngine, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("at least one elasticsearch address is required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return NewElasticEngineWithClient(client, opts...)
}

// NewElasticEngineWithClient wraps an existing client
func NewElasticEngineWithClient(client *elasticsearch.Client, opts ...ElasticOption) (*ElasticEngine, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	e := &ElasticEngine{client: client, refresh: "false"}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Push upserts documents through the Bulk API
func (e *ElasticEngine) Push(ctx context.Context, index string, docs []Document) (err error) {
	if len(docs) == 0 {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "search.push",
		attribute.String("search.index", index),
		attribute.Int("search.documents", len(docs)),
	)
	defer func() { observability.EndSpan(span, err) }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": index,
				"_id":    doc.ID,
			},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(doc.Body); err != nil {
			return fmt.Errorf("encode bulk doc %s: %w", doc.ID, err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh(e.refresh),
	)
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if err := statusError(res, "bulk"); err != nil {
		return err
	}

	var body struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !body.Errors {
		return nil
	}

	for _, item := range body.Items {
		for _, v := range item {
			switch {
			case v.Status < 300, v.Status == http.StatusConflict:
				continue
			case v.Status == http.StatusTooManyRequests:
				return ErrTooManyRequests
			case v.Status >= 500:
				return ErrServerError
			default:
				reason := http.StatusText(v.Status)
				if v.Error != nil {
					reason = v.Error.Type + ": " + v.Error.Reason
				}
				return fmt.Errorf("bulk item %s rejected (%d): %s", v.ID, v.Status, reason)
			}
		}
	}
	return nil
}

// Delete removes a single document. A missing document or index is not an error.
func (e *ElasticEngine) Delete(ctx context.Context, index, id string) (err error) {
	ctx, span := observability.StartSpan(ctx, "search.delete",
		attribute.String("search.index", index),
		attribute.String("search.id", id),
	)
	defer func() { observability.EndSpan(span, err) }()

	res, err := e.client.Delete(index, id,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh(e.refresh),
	)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError(res, "delete")
}

// Clear deletes every document in the index, keeping its mappings
func (e *ElasticEngine) Clear(ctx context.Context, index string) (err error) {
	ctx, span := observability.StartSpan(ctx, "search.clear", attribute.String("search.index", index))
	defer func() { observability.EndSpan(span, err) }()

	res, err := e.client.DeleteByQuery(
		[]string{index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithConflicts("proceed"),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("delete_by_query request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError(res, "delete_by_query")
}

// Health fails when the cluster is unreachable or red
func (e *ElasticEngine) Health(ctx context.Context) error {
	res, err := e.client.Cluster.Health(e.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("cluster health request: %w", err)
	}
	defer res.Body.Close()

	if err := statusError(res, "cluster health"); err != nil {
		return err
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode cluster health: %w", err)
	}
	if body.Status == "red" {
		return ErrUnhealthy
	}
	return nil
}

func statusError(res *esapi.Response, op string) error {
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case res.StatusCode >= 500:
		return fmt.Errorf("%s: %w", op, ErrServerError)
	case res.IsError():
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s error (%d): %s", op, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
