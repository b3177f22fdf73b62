package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "rfm-load", time.Minute)
	b := NewRedisLock(client, "rfm-load", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:rfm-load"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	// b does not own the lock, so its release is a no-op
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists("lock:rfm-load"))

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists("lock:rfm-load"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "rfm-load", time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewRedisLock(client, "rfm-load", time.Second)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, a.Extend(ctx, time.Minute), ErrLockHeld)
	assert.NoError(t, b.Extend(ctx, time.Minute))
}

func TestWithLock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "rfm-load", time.Minute)
	calls := 0
	err := WithLock(ctx, holder, func(ctx context.Context) error {
		calls++
		// nested attempt on the same key is rejected
		inner := NewRedisLock(client, "rfm-load", time.Minute)
		return WithLock(ctx, inner, func(context.Context) error {
			calls++
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Equal(t, 1, calls)

	// released after fn returns
	again := NewRedisLock(client, "rfm-load", time.Minute)
	err = WithLock(ctx, again, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithLock_PropagatesError(t *testing.T) {
	lock := NewLocalLock("propagate")
	boom := errors.New("boom")
	err := WithLock(context.Background(), lock, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released after fn fails")
	require.NoError(t, lock.Release(context.Background()))
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	a := NewLocalLock("local-key")
	b := NewLocalLock("local-key")

	ok, _ := a.Acquire(ctx)
	assert.True(t, ok)
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok)
	require.NoError(t, a.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx))
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := AdvisoryID("rfm-load")
	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lock := NewPGAdvisoryLock(db, "rfm-load")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_NotAcquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "rfm-load")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	// nothing held, nothing to unlock
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLock_Backends(t *testing.T) {
	_, client := setupRedis(t)
	assert.IsType(t, &RedisLock{}, NewLock(client, nil, "k", time.Minute))

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &PGAdvisoryLock{}, NewLock(nil, db, "k", time.Minute))
	assert.IsType(t, &LocalLock{}, NewLock(nil, nil, "k", time.Minute))
}
