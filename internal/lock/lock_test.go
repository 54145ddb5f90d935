package lock

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// Other keys are independent.
	other, err := l.Acquire(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLocal_Expires(t *testing.T) {
	l := NewLocal()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	// Releasing the expired holder must not free the new one.
	stale()
	_, err = l.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	fresh()
}

func TestRedis_Exclusive(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewRedis(client, "fairshare:test:"+t.Name()+":", logger)

	release, err := l.Acquire(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "sweep", 10*time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()

	again, err := l.Acquire(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)
	again()
}
