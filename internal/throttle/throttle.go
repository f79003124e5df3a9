// Package throttle limits repeated failed logins per identifier.
package throttle

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const keyPrefix = "storefront:login_failures:"

// Defaults used when the configured values are not positive.
const (
	DefaultMaxFailures = 5
	DefaultWindow      = 15 * time.Minute
)

// LoginThrottle counts failed logins in Redis. Once an identifier reaches
// maxFailures inside window it is blocked until the counter expires. Redis
// errors are logged and treated as allowed.
type LoginThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	window      time.Duration
	logger      *slog.Logger
}

// New creates a Redis-backed login throttle.
func New(client redis.Cmdable, maxFailures int, window time.Duration, logger *slog.Logger) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &LoginThrottle{
		client:      client,
		maxFailures: int64(maxFailures),
		window:      window,
		logger:      logger,
	}
}

// key normalizes identifier the way the user store does so "A@B.com" and
// " a@b.com" share a counter.
func key(identifier string) string {
	return keyPrefix + domain.NormalizeIdentifier(identifier)
}

// Allow reports whether another login attempt for identifier may proceed.
// When blocked it also returns how long until the window lapses.
func (l *LoginThrottle) Allow(ctx context.Context, identifier string) (bool, time.Duration) {
	k := key(identifier)

	n, err := l.client.Get(ctx, k).Int64()
	if err != nil {
		if err != redis.Nil {
			l.failOpen(ctx, "get", err)
		}
		return true, 0
	}
	if n < l.maxFailures {
		return true, 0
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		l.failOpen(ctx, "ttl", err)
		return false, l.window
	}
	if ttl < 0 {
		ttl = l.window
	}
	return false, ttl
}

// RecordFailure counts a failed attempt. The window starts at the first
// failure and is not extended by later ones.
func (l *LoginThrottle) RecordFailure(ctx context.Context, identifier string) {
	k := key(identifier)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.failOpen(ctx, "record failure", err)
		return
	}

	if incr.Val() == l.maxFailures {
		l.logger.WarnContext(ctx, "login throttled after repeated failures",
			slog.Int64("failures", incr.Val()),
			slog.Duration("window", l.window),
		)
	}
}

// Reset clears the failure counter after a successful login.
func (l *LoginThrottle) Reset(ctx context.Context, identifier string) {
	if err := l.client.Del(ctx, key(identifier)).Err(); err != nil {
		l.failOpen(ctx, "reset", err)
	}
}

func (l *LoginThrottle) failOpen(ctx context.Context, op string, err error) {
	l.logger.ErrorContext(ctx, "login throttle unavailable",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
