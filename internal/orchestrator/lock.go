package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress is returned when another process already holds the run
// lock for an engine.
var ErrRunInProgress = fmt.Errorf("run already in progress")

// runLock serializes engine runs across processes via Redis. A nil client
// disables locking (single-process and test paths).
type runLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// acquire takes the per-engine lock. The returned release is safe to call
// even when it is the TTL that eventually frees the lock.
func (l *runLock) acquire(ctx context.Context, engine, executionID string) (func(), error) {
	if l.rdb == nil {
		return func() {}, nil
	}
	key := "runlock:" + engine
	ok, err := l.rdb.SetNX(ctx, key, executionID, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		// Only delete our own lock.
		val, err := l.rdb.Get(context.Background(), key).Result()
		if err == nil && val == executionID {
			l.rdb.Del(context.Background(), key)
		}
	}, nil
}
