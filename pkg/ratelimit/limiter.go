package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/config"
	redisclient "github.com/richxcame/vehicle-marketplace/pkg/redis"
)

// IdentityType represents the subject of a rate limit decision.
type IdentityType int

const (
	// IdentityAnonymous represents unauthenticated traffic keyed by IP address.
	IdentityAnonymous IdentityType = iota
	// IdentityAuthenticated represents authenticated users keyed by user ID.
	IdentityAuthenticated
)

func (t IdentityType) String() string {
	if t == IdentityAuthenticated {
		return "user"
	}
	return "ip"
}

// Result captures the outcome of a rate limiting decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter counts requests per identity and endpoint in fixed Redis windows.
type Limiter struct {
	redis redisclient.ClientInterface
	cfg   config.RateLimitConfig
	now   func() time.Time
}

func NewLimiter(redis redisclient.ClientInterface, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{redis: redis, cfg: cfg, now: time.Now}
}

// Enabled reports whether requests should be limited at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg.Enabled && l.redis != nil
}

// Allow records one request and reports whether it fits the endpoint budget.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, identityType IdentityType) (Result, error) {
	limit := l.cfg.LimitFor(endpoint)
	window := l.cfg.Window()
	if limit <= 0 {
		return Result{Allowed: true, Limit: limit}, nil
	}

	now := l.now()
	windowStart := now.Truncate(window)
	key := fmt.Sprintf("%s:%s:%s:%s:%d", l.cfg.RedisPrefix, endpoint, identityType, identity, windowStart.Unix())

	count, err := l.redis.IncrWindow(ctx, key, window)
	if err != nil {
		return Result{}, fmt.Errorf("failed to count request: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    int(count) <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: windowStart.Add(window).Sub(now),
	}, nil
}
