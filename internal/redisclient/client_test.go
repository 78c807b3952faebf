package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupRedisForTest initializes Redis client for testing
func setupRedisForTest(t *testing.T) *Client {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("Skipping Redis integration tests: REDIS_ADDR not set")
	}

	client := NewClient(redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	}))

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "test:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(original) })
	return recorder
}

func TestClient_SpanOnConnectionError(t *testing.T) {
	recorder := withRecorder(t)

	client := NewClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	}))
	defer client.Close()

	err := client.Get(context.Background(), "test:missing").Err()
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "redis.get", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestClient_StringCommands(t *testing.T) {
	client := setupRedisForTest(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:key", "value", time.Minute).Err())
	val, err := client.Get(ctx, "test:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	_, err = client.Get(ctx, "test:absent").Result()
	assert.ErrorIs(t, err, redis.Nil)

	ok, err := client.SetNX(ctx, "test:lock", "a", time.Minute).Result()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(ctx, "test:lock", "b", time.Minute).Result()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ListAndSortedSetCommands(t *testing.T) {
	client := setupRedisForTest(t)
	ctx := context.Background()

	require.NoError(t, client.LPush(ctx, "test:list", "a", "b").Err())
	n, err := client.LLen(ctx, "test:list").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := client.RPop(ctx, "test:list").Result()
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	require.NoError(t, client.ZAdd(ctx, "test:zset", redis.Z{Score: 10, Member: "late"}, redis.Z{Score: 1, Member: "early"}).Err())
	due, err := client.ZRangeByScore(ctx, "test:zset", &redis.ZRangeBy{Min: "-inf", Max: "5"}).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, due)

	removed, err := client.ZRem(ctx, "test:zset", "early").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	card, err := client.ZCard(ctx, "test:zset").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)
}

func TestClient_Eval(t *testing.T) {
	client := setupRedisForTest(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:owner", "me", time.Minute).Err())
	res, err := client.Eval(ctx, `return redis.call("GET", KEYS[1]) == ARGV[1] and 1 or 0`, []string{"test:owner"}, "me").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, res)
}

func TestClient_PoolStats(t *testing.T) {
	client := NewClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer client.Close()
	assert.NotNil(t, client.PoolStats())
}
