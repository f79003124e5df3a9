package throttle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupThrottle(t *testing.T, max int, window time.Duration) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, max, window, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestLoginThrottle_BlocksAfterMaxFailures(t *testing.T) {
	l, _ := setupThrottle(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(ctx, "john@x.com")
		require.True(t, ok, "attempt %d should be allowed", i+1)
		l.RecordFailure(ctx, "john@x.com")
	}

	ok, retry := l.Allow(ctx, "john@x.com")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)
}

func TestLoginThrottle_IdentifierNormalized(t *testing.T) {
	l, mr := setupThrottle(t, 2, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "John@X.com")
	l.RecordFailure(ctx, "  john@x.com ")

	ok, _ := l.Allow(ctx, "JOHN@x.COM")
	assert.False(t, ok)
	mr.CheckGet(t, keyPrefix+"john@x.com", "2")
}

func TestLoginThrottle_WindowLapses(t *testing.T) {
	l, mr := setupThrottle(t, 1, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "+15550100")
	ok, _ := l.Allow(ctx, "+15550100")
	require.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, _ = l.Allow(ctx, "+15550100")
	assert.True(t, ok)
}

func TestLoginThrottle_WindowStartsAtFirstFailure(t *testing.T) {
	l, mr := setupThrottle(t, 5, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "a@b.com")
	mr.FastForward(40 * time.Second)
	l.RecordFailure(ctx, "a@b.com")

	assert.LessOrEqual(t, mr.TTL(keyPrefix+"a@b.com"), 20*time.Second)
}

func TestLoginThrottle_ResetClearsCounter(t *testing.T) {
	l, mr := setupThrottle(t, 1, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "a@b.com")
	l.Reset(ctx, "a@b.com")

	assert.False(t, mr.Exists(keyPrefix+"a@b.com"))
	ok, _ := l.Allow(ctx, "a@b.com")
	assert.True(t, ok)
}

func TestLoginThrottle_FailsOpen(t *testing.T) {
	l, mr := setupThrottle(t, 1, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "a@b.com")
	mr.Close()

	ok, _ := l.Allow(ctx, "a@b.com")
	assert.True(t, ok)

	l.RecordFailure(ctx, "a@b.com")
	l.Reset(ctx, "a@b.com")
}

func TestNew_Defaults(t *testing.T) {
	l := New(nil, 0, 0, slog.Default())
	assert.Equal(t, int64(DefaultMaxFailures), l.maxFailures)
	assert.Equal(t, DefaultWindow, l.window)
}
