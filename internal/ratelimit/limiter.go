package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter throttle backed by Redis. It guards the
// code-issuance endpoint against bulk abuse; the per-phone resend window is
// enforced separately by the issuance logic itself.
//
// A nil Redis client disables the limiter entirely, and Redis failures fail
// open: throttling is protection, not a correctness requirement, so an
// unreachable Redis must not take authentication down with it.
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
	limit  int64
	window time.Duration
}

// New creates a limiter allowing at most limit hits per key per window.
// Pass a nil client to disable throttling.
func New(client *redis.Client, logger *slog.Logger, limit int64, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		logger: logger,
		limit:  limit,
		window: window,
	}
}

// Enabled reports whether the limiter has a backing Redis client.
func (l *Limiter) Enabled() bool {
	return l.client != nil
}

// Allow increments the counter for the key and reports whether the hit is
// within the window's budget.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.client == nil {
		return true
	}

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, failing open",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}

	// First hit in the window starts the TTL.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.WarnContext(ctx, "failed to set rate limit TTL",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return count <= l.limit
}

// PhoneKey builds the counter key for per-phone send throttling.
func PhoneKey(phone string) string {
	return fmt.Sprintf("otp:send:phone:%s", phone)
}

// IPKey builds the counter key for per-client-address send throttling.
func IPKey(ip string) string {
	return fmt.Sprintf("otp:send:ip:%s", ip)
}
