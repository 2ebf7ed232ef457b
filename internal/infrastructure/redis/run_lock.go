// Package redis provides redis-backed coordination primitives for the
// pipeline, currently the distributed per-stage run lock.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/intelpipe/internal/config"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// NewClient connects to redis per the configuration.
func NewClient(cfg *config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "connecting to redis at %s", cfg.Address)
	}
	log.Info(context.Background(), "redis connected", logger.Fields{"address": cfg.Address})
	return rdb, nil
}

// releaseScript deletes the lock key only when it still belongs to the
// releasing owner, so an expired-and-reacquired lock is never released by the
// previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RunLock is a distributed per-stage run lock on SET NX PX. The TTL bounds
// how long a crashed run can block its stage. One instance is shared by every
// run of a stage, so acquisition state never lives on the struct: TryLock
// hands each holder a release bound to its own token, and a holder whose lock
// expired and was reacquired by a later run cannot release that run's lock.
type RunLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRunLock creates a lock for the named stage.
func NewRunLock(rdb *redis.Client, stage string, ttl time.Duration) *RunLock {
	return &RunLock{
		rdb: rdb,
		key: fmt.Sprintf("intelpipe:runlock:%s", stage),
		ttl: ttl,
	}
}

// TryLock attempts to acquire the lock without blocking. It returns false
// when another run of the same stage holds it. On success the returned
// release function frees the lock only while this acquisition still owns it.
func (l *RunLock) TryLock(ctx context.Context) (func(ctx context.Context) error, bool, error) {
	owner := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "acquiring run lock %s", l.key)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, owner).Err(); err != nil && err != redis.Nil {
			return errors.Wrap(err, errors.CodeInternal, "releasing run lock %s", l.key)
		}
		return nil
	}
	return release, true, nil
}
