package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client wraps a Redis client with OpenTelemetry tracing
type Client struct {
	cmdable redis.UniversalClient
}

// NewClient creates a new traced Redis client for single Redis instance
func NewClient(client *redis.Client) *Client {
	return &Client{cmdable: client}
}

// NewClusterClient creates a new traced Redis client for Redis cluster
func NewClusterClient(client *redis.ClusterClient) *Client {
	return &Client{cmdable: client}
}

// start opens a span for a single command. The returned finish func must be
// called with the command error.
func (c *Client) start(ctx context.Context, op, key string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()
	attrs = append(attrs,
		attribute.String("redis.operation", op),
		attribute.String("redis.key", key),
		attribute.String("redis.client", "app-indexer"),
	)
	ctx, span := otel.Tracer("redis").Start(ctx, "redis."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		span.SetAttributes(attribute.Int64("redis.duration_ms", time.Since(begin).Milliseconds()))
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		span.End()
	}
}

// Get wraps Redis GET
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	ctx, finish := c.start(ctx, "get", key)
	cmd := c.cmdable.Get(ctx, key)
	finish(cmd.Err())
	return cmd
}

// Set wraps Redis SET
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	ctx, finish := c.start(ctx, "set", key, attribute.String("redis.expiration", expiration.String()))
	cmd := c.cmdable.Set(ctx, key, value, expiration)
	finish(cmd.Err())
	return cmd
}

// SetNX wraps Redis SET NX
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	ctx, finish := c.start(ctx, "setnx", key, attribute.String("redis.expiration", expiration.String()))
	cmd := c.cmdable.SetNX(ctx, key, value, expiration)
	finish(cmd.Err())
	return cmd
}

// Del wraps Redis DEL
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	ctx, finish := c.start(ctx, "del", firstKey(keys), attribute.Int("redis.key_count", len(keys)))
	cmd := c.cmdable.Del(ctx, keys...)
	finish(cmd.Err())
	return cmd
}

// Ping wraps Redis PING
func (c *Client) Ping(ctx context.Context) *redis.StatusCmd {
	ctx, finish := c.start(ctx, "ping", "")
	cmd := c.cmdable.Ping(ctx)
	finish(cmd.Err())
	return cmd
}

// LLen wraps Redis LLEN
func (c *Client) LLen(ctx context.Context, key string) *redis.IntCmd {
	ctx, finish := c.start(ctx, "llen", key)
	cmd := c.cmdable.LLen(ctx, key)
	finish(cmd.Err())
	return cmd
}

// LPush wraps Redis LPUSH
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	ctx, finish := c.start(ctx, "lpush", key, attribute.Int("redis.value_count", len(values)))
	cmd := c.cmdable.LPush(ctx, key, values...)
	finish(cmd.Err())
	return cmd
}

// RPop wraps Redis RPOP
func (c *Client) RPop(ctx context.Context, key string) *redis.StringCmd {
	ctx, finish := c.start(ctx, "rpop", key)
	cmd := c.cmdable.RPop(ctx, key)
	finish(cmd.Err())
	return cmd
}

// LRange wraps Redis LRANGE
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	ctx, finish := c.start(ctx, "lrange", key)
	cmd := c.cmdable.LRange(ctx, key, start, stop)
	finish(cmd.Err())
	return cmd
}

// ZAdd wraps Redis ZADD
func (c *Client) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	ctx, finish := c.start(ctx, "zadd", key)
	cmd := c.cmdable.ZAdd(ctx, key, members...)
	finish(cmd.Err())
	return cmd
}

// ZRangeByScore wraps Redis ZRANGEBYSCORE
func (c *Client) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	ctx, finish := c.start(ctx, "zrangebyscore", key)
	cmd := c.cmdable.ZRangeByScore(ctx, key, opt)
	finish(cmd.Err())
	return cmd
}

// ZRem wraps Redis ZREM
func (c *Client) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	ctx, finish := c.start(ctx, "zrem", key)
	cmd := c.cmdable.ZRem(ctx, key, members...)
	finish(cmd.Err())
	return cmd
}

// ZCard wraps Redis ZCARD
func (c *Client) ZCard(ctx context.Context, key string) *redis.IntCmd {
	ctx, finish := c.start(ctx, "zcard", key)
	cmd := c.cmdable.ZCard(ctx, key)
	finish(cmd.Err())
	return cmd
}

// Eval runs a Lua script
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	ctx, finish := c.start(ctx, "eval", firstKey(keys))
	cmd := c.cmdable.Eval(ctx, script, keys, args...)
	finish(cmd.Err())
	return cmd
}

// Keys wraps Redis KEYS. Only meant for tests and admin tooling.
func (c *Client) Keys(ctx context.Context, pattern string) *redis.StringSliceCmd {
	ctx, finish := c.start(ctx, "keys", pattern)
	cmd := c.cmdable.Keys(ctx, pattern)
	finish(cmd.Err())
	return cmd
}

// PoolStats returns connection pool statistics
func (c *Client) PoolStats() *redis.PoolStats {
	return c.cmdable.PoolStats()
}

// Close closes the underlying client
func (c *Client) Close() error {
	return c.cmdable.Close()
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
