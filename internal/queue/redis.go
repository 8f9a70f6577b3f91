package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisQueue implements Queue on a Redis list (LPUSH / BRPOP).
type RedisQueue struct {
	rdb *goredis.Client
	key string
}

// RedisConfig holds connection settings for RedisQueue.
type RedisConfig struct {
	URL string
	Key string
}

// Dial builds a RedisQueue without contacting the server. The client
// connects on first use, so callers can start while Redis is down.
func Dial(cfg *RedisConfig) (*RedisQueue, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "parse redis url")
	}
	opts.DialTimeout = 5 * time.Second

	return NewRedisQueueFromClient(goredis.NewClient(opts), cfg.Key), nil
}

// NewRedisQueue connects to Redis and verifies the connection.
// Parameters:
//   - ctx: bounds the initial ping.
//   - cfg: redis URL and list key.
// Returns:
//   - *RedisQueue: ready queue.
//   - error: non-nil if the URL is invalid or Redis is unreachable.
func NewRedisQueue(ctx context.Context, cfg *RedisConfig) (*RedisQueue, error) {
	q, err := Dial(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := q.Ping(pingCtx); err != nil {
		_ = q.Close()
		return nil, eris.Wrap(err, "redis ping")
	}
	return q, nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(rdb *goredis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

// Client exposes the underlying client for auxiliary keys such as the worker heartbeat.
func (q *RedisQueue) Client() *goredis.Client {
	return q.rdb
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return eris.Wrap(err, "encode task")
	}
	return eris.Wrapf(q.rdb.LPush(ctx, q.key, raw).Err(), "enqueue job %d", task.JobID)
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if errors.Is(err, goredis.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, eris.Wrap(err, "dequeue")
	}
	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return nil, eris.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, eris.Wrapf(err, "decode task %q", res[1])
	}
	return &task, nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
