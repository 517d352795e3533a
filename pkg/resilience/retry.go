package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	EnableJitter      bool
	// RetryableChecker decides whether an error is worth another attempt.
	// When nil, everything except context and breaker errors is retried.
	RetryableChecker func(error) bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// ConservativeRetryConfig is used for side effects like outbound email where a
// duplicate is worse than a miss.
func ConservativeRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// Retry runs operation with exponential backoff and records metrics under
// operationName.
func Retry(ctx context.Context, cfg RetryConfig, operation Operation, operationName string) (interface{}, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			recordRetryOperation(operationName, time.Since(start), attempt, false)
			return nil, err
		}

		result, err := operation(ctx)
		if err == nil {
			recordRetryAttempt(operationName, true)
			recordRetryOperation(operationName, time.Since(start), attempt, true)
			if attempt > 1 {
				logger.DebugContext(ctx, "operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		recordRetryAttempt(operationName, false)
		lastErr = err

		if !shouldRetry(err, cfg) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, cfg)
		recordRetryBackoff(operationName, backoff)
		logger.InfoContext(ctx, "retrying operation after backoff",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			recordRetryOperation(operationName, time.Since(start), attempt, false)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	recordRetryOperation(operationName, time.Since(start), cfg.MaxAttempts, false)
	return nil, lastErr
}

// RetryWithBreaker retries operation, sending every attempt through breaker.
func RetryWithBreaker(ctx context.Context, cfg RetryConfig, breaker *CircuitBreaker, operation Operation, operationName string) (interface{}, error) {
	return Retry(ctx, cfg, func(ctx context.Context) (interface{}, error) {
		return breaker.Execute(ctx, operation)
	}, operationName)
}

func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	d := time.Duration(backoff)
	if cfg.EnableJitter && d > 0 {
		// full jitter
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}

func shouldRetry(err error, cfg RetryConfig) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cfg.RetryableChecker != nil {
		return cfg.RetryableChecker(err)
	}
	return !errors.Is(err, ErrCircuitOpen)
}
