package search

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bulk     []string
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeCluster(t *testing.T) (*fakeCluster, *ElasticEngine) {
	t.Helper()
	fc := &fakeCluster{routes: make(map[string]func(http.ResponseWriter, *http.Request))}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodGet && r.URL.Path == "/" {
			_, _ = w.Write([]byte(`{"version":{"number":"8.17.0","build_flavor":"default"},"tagline":"You Know, for Search"}`))
			return
		}

		key := r.Method + " " + r.URL.Path
		fc.mu.Lock()
		fc.requests = append(fc.requests, key)
		if r.URL.Path == "/_bulk" {
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				fc.bulk = append(fc.bulk, scanner.Text())
			}
		}
		handler := fc.routes[key]
		fc.mu.Unlock()

		if handler == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	engine, err := NewElasticEngine([]string{srv.URL})
	require.NoError(t, err)
	return fc, engine
}

func (fc *fakeCluster) on(key string, status int, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.routes[key] = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestElasticEngine_PushEncodesBulk(t *testing.T) {
	fc, engine := newFakeCluster(t)
	fc.on("POST /_bulk", http.StatusOK, `{"errors":false,"items":[]}`)

	err := engine.Push(context.Background(), "marketplace_service_offers", []Document{
		{ID: "o1", Body: map[string]interface{}{"title": "Logo design"}},
		{ID: "o2", Body: map[string]interface{}{"title": "Landing page"}},
	})
	require.NoError(t, err)

	require.Len(t, fc.bulk, 4)
	var meta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(fc.bulk[0]), &meta))
	assert.Equal(t, "marketplace_service_offers", meta["index"]["_index"])
	assert.Equal(t, "o1", meta["index"]["_id"])
	assert.Contains(t, fc.bulk[3], "Landing page")
}

func TestElasticEngine_PushEmptyIsNoop(t *testing.T) {
	fc, engine := newFakeCluster(t)

	require.NoError(t, engine.Push(context.Background(), "idx", nil))
	assert.Empty(t, fc.requests)
}

func TestElasticEngine_PushErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantAny bool
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, body: `{}`, wantErr: ErrTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantErr: ErrServerError},
		{name: "item conflict ignored", status: http.StatusOK, body: `{"errors":true,"items":[{"index":{"_id":"o1","status":409}}]}`},
		{name: "item throttled", status: http.StatusOK, body: `{"errors":true,"items":[{"index":{"_id":"o1","status":429}}]}`, wantErr: ErrTooManyRequests},
		{name: "item server error", status: http.StatusOK, body: `{"errors":true,"items":[{"index":{"_id":"o1","status":503}}]}`, wantErr: ErrServerError},
		{name: "item mapping error", status: http.StatusOK, body: `{"errors":true,"items":[{"index":{"_id":"o1","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}}]}`, wantAny: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, engine := newFakeCluster(t)
			fc.on("POST /_bulk", tt.status, tt.body)

			err := engine.Push(context.Background(), "idx", []Document{{ID: "o1", Body: map[string]interface{}{}}})
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAny:
				require.Error(t, err)
				assert.Contains(t, err.Error(), "mapper_parsing_exception")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestElasticEngine_DeleteToleratesMissing(t *testing.T) {
	fc, engine := newFakeCluster(t)
	fc.on("DELETE /idx/_doc/absent", http.StatusNotFound, `{"result":"not_found"}`)

	require.NoError(t, engine.Delete(context.Background(), "idx", "absent"))
	require.NoError(t, engine.Delete(context.Background(), "idx", "present"))
	assert.Equal(t, []string{"DELETE /idx/_doc/absent", "DELETE /idx/_doc/present"}, fc.requests)
}

func TestElasticEngine_Clear(t *testing.T) {
	fc, engine := newFakeCluster(t)
	fc.on("POST /missing/_delete_by_query", http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`)
	fc.on("POST /broken/_delete_by_query", http.StatusBadRequest, `{"error":"bad"}`)

	require.NoError(t, engine.Clear(context.Background(), "idx"))
	require.NoError(t, engine.Clear(context.Background(), "missing"))

	err := engine.Clear(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))
}

func TestElasticEngine_Health(t *testing.T) {
	fc, engine := newFakeCluster(t)
	fc.on("GET /_cluster/health", http.StatusOK, `{"status":"yellow"}`)
	require.NoError(t, engine.Health(context.Background()))

	fc.on("GET /_cluster/health", http.StatusOK, `{"status":"red"}`)
	assert.ErrorIs(t, engine.Health(context.Background()), ErrUnhealthy)
}

func TestNewElasticEngine_RequiresAddress(t *testing.T) {
	_, err := NewElasticEngine(nil)
	assert.Error(t, err)

	_, err = NewElasticEngineWithClient(nil)
	assert.Error(t, err)
}
