package queue

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Heartbeat records worker liveness as a Redis key with a TTL.
type Heartbeat struct {
	rdb *goredis.Client
	key string
}

// NewHeartbeat creates a heartbeat stored under key.
func NewHeartbeat(rdb *goredis.Client, key string) *Heartbeat {
	return &Heartbeat{rdb: rdb, key: key}
}

// Beat marks the worker alive for ttl.
func (h *Heartbeat) Beat(ctx context.Context, workerID string, ttl time.Duration) error {
	return eris.Wrap(h.rdb.Set(ctx, h.key, workerID, ttl).Err(), "write heartbeat")
}

// Alive reports whether any worker has beaten within its TTL.
func (h *Heartbeat) Alive(ctx context.Context) (bool, error) {
	err := h.rdb.Get(ctx, h.key).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "read heartbeat")
	}
	return true, nil
}
