package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRunLockAcquireAndRelease(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	lock := NewRunLock(rdb, "ingestion", time.Minute)
	release, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A second acquisition for the same stage is rejected, through the same
	// instance or another.
	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	other := NewRunLock(rdb, "ingestion", time.Minute)
	_, ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))

	_, ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLockStagesAreIndependent(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	ingestion := NewRunLock(rdb, "ingestion", time.Minute)
	scoring := NewRunLock(rdb, "scoring", time.Minute)

	_, ok, err := ingestion.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = scoring.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLockStaleHolderCannotReleaseSuccessor(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	// One shared instance per stage, as the scheduler registers it.
	lock := NewRunLock(rdb, "ingestion", 50*time.Millisecond)

	staleRelease, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The TTL elapses mid-run and the next cycle reacquires through the same
	// instance.
	mr.FastForward(time.Second)
	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder's deferred release fires after its lock lapsed. It
	// must not free the second holder's live lock.
	require.NoError(t, staleRelease(ctx))
	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunLockReleaseIsIdempotent(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	lock := NewRunLock(rdb, "ingestion", time.Minute)
	release, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))
}
