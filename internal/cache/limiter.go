package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WindowLimiter allows at most Limit hits per key within Window.
type WindowLimiter struct {
	redis  *Redis
	prefix string
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewWindowLimiter builds a fixed-window limiter. A non-positive limit disables limiting.
func NewWindowLimiter(r *Redis, prefix string, limit int, window time.Duration, logger *slog.Logger) *WindowLimiter {
	return &WindowLimiter{
		redis:  r,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		logger: logger.With("component", "limiter"),
	}
}

// Allow reports whether key still has budget. Redis failures fail open.
func (l *WindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return true
	}
	if key == "" {
		key = "anonymous"
	}
	n, err := l.redis.IncrWindow(ctx, fmt.Sprintf("rl:%s:%s", l.prefix, key), l.window)
	if err != nil {
		l.logger.Warn("rate limit incr failed", "error", err)
		return true
	}
	return n <= l.limit
}
