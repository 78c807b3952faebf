package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestElasticEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := os.Stat("/var/run/docker.sock"); err != nil {
		t.Skip("docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.17.0",
			ExposedPorts: []string{"9200/tcp"},
			Env: map[string]string{
				"discovery.type":         "single-node",
				"xpack.security.enabled": "false",
				"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
			},
			WaitingFor: wait.ForHTTP("/_cluster/health").
				WithPort("9200/tcp").
				WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(context.Background()) }()

	endpoint, err := container.PortEndpoint(ctx, "9200", "http")
	require.NoError(t, err)

	engine, err := NewElasticEngine([]string{endpoint}, WithRefresh("wait_for"))
	require.NoError(t, err)

	require.NoError(t, engine.Health(ctx))
	require.NoError(t, engine.Clear(ctx, "it_offers"))
	require.NoError(t, engine.Push(ctx, "it_offers", []Document{
		{ID: "o1", Body: map[string]interface{}{"title": "Logo design"}},
	}))
	require.NoError(t, engine.Delete(ctx, "it_offers", "o1"))
	require.NoError(t, engine.Delete(ctx, "it_offers", "o1"))
	require.NoError(t, engine.Clear(ctx, "it_offers"))
}
