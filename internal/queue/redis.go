package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/freelancehub/app-indexer/internal/logging"
	"github.com/freelancehub/app-indexer/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	promoteBatch = 100

	releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
)

// RedisBackend stores each queue as a ready list, a delayed sorted set
// scored by availability in unix milliseconds, and a dead-letter list
type RedisBackend struct {
	redis  *redisclient.Client
	now    func() time.Time
	logger *logging.SafeLogger
}

func NewRedisBackend(client *redisclient.Client) *RedisBackend {
	return &RedisBackend{redis: client, now: time.Now, logger: logging.Logger.Named("queue")}
}

func readyKey(t Target) string   { return fmt.Sprintf("queue:%s:%s", t.Connection, t.Queue) }
func delayedKey(t Target) string { return readyKey(t) + ":delayed" }
func failedKey(t Target) string  { return readyKey(t) + ":failed" }
func uniqueKey(key string) string {
	return "queue:unique:" + key
}

func (b *RedisBackend) Push(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}

	t := task.Target()
	if task.AvailableAt.After(b.now()) {
		score := float64(task.AvailableAt.UnixMilli())
		if err := b.redis.ZAdd(ctx, delayedKey(t), redis.Z{Score: score, Member: string(raw)}).Err(); err != nil {
			return fmt.Errorf("schedule task %s: %w", task.ID, err)
		}
		return nil
	}

	if err := b.redis.LPush(ctx, readyKey(t), string(raw)).Err(); err != nil {
		return fmt.Errorf("push task %s: %w", task.ID, err)
	}
	return nil
}

// promote moves due delayed tasks onto the ready list. ZREM decides which
// worker wins a member so each task is promoted once.
func (b *RedisBackend) promote(ctx context.Context, t Target) error {
	due, err := b.redis.ZRangeByScore(ctx, delayedKey(t), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(b.now().UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return fmt.Errorf("read delayed tasks: %w", err)
	}

	for _, member := range due {
		removed, err := b.redis.ZRem(ctx, delayedKey(t), member).Result()
		if err != nil {
			return fmt.Errorf("claim delayed task: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := b.redis.LPush(ctx, readyKey(t), member).Err(); err != nil {
			return fmt.Errorf("promote delayed task: %w", err)
		}
	}
	return nil
}

func (b *RedisBackend) Pop(ctx context.Context, target Target) (*Task, error) {
	if err := b.promote(ctx, target); err != nil {
		return nil, err
	}

	raw, err := b.redis.RPop(ctx, readyKey(target)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop %s: %w", target, err)
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task from %s: %w", target, err)
	}
	return &task, nil
}

func (b *RedisBackend) AcquireUnique(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := b.redis.SetNX(ctx, uniqueKey(key), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire unique lock %s: %w", key, err)
	}
	return ok, nil
}

func (b *RedisBackend) ReleaseUnique(ctx context.Context, key, owner string) error {
	if err := b.redis.Eval(ctx, releaseScript, []string{uniqueKey(key)}, owner).Err(); err != nil {
		return fmt.Errorf("release unique lock %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Bury(ctx context.Context, failed *FailedTask) error {
	raw, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal failed task %s: %w", failed.Task.ID, err)
	}
	if err := b.redis.LPush(ctx, failedKey(failed.Task.Target()), string(raw)).Err(); err != nil {
		return fmt.Errorf("bury task %s: %w", failed.Task.ID, err)
	}
	return nil
}

func (b *RedisBackend) Size(ctx context.Context, target Target) (int64, error) {
	ready, err := b.redis.LLen(ctx, readyKey(target)).Result()
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", target, err)
	}
	delayed, err := b.redis.ZCard(ctx, delayedKey(target)).Result()
	if err != nil {
		return 0, fmt.Errorf("delayed size of %s: %w", target, err)
	}
	return ready + delayed, nil
}

func (b *RedisBackend) DeadSize(ctx context.Context, target Target) (int64, error) {
	n, err := b.redis.LLen(ctx, failedKey(target)).Result()
	if err != nil {
		return 0, fmt.Errorf("dead size of %s: %w", target, err)
	}
	return n, nil
}

func (b *RedisBackend) Dead(ctx context.Context, target Target, limit int64) ([]FailedTask, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	raws, err := b.redis.LRange(ctx, failedKey(target), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters of %s: %w", target, err)
	}

	out := make([]FailedTask, 0, len(raws))
	for i, raw := range raws {
		var ft FailedTask
		if err := json.Unmarshal([]byte(raw), &ft); err != nil {
			b.logger.Warn("skipping undecodable dead-letter entry",
				zap.String("queue", target.String()),
				zap.Int("position", i),
				zap.Int("size", len(raw)),
				zap.Error(err))
			continue
		}
		out = append(out, ft)
	}
	return out, nil
}
