package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/resilience"
	"go.uber.org/zap"
)

// ResilientEmailClient wraps a Sender with circuit breaker and retry logic
type ResilientEmailClient struct {
	client  Sender
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewResilientEmailClient creates a resilient wrapper around an existing sender
func NewResilientEmailClient(client Sender, breaker *resilience.CircuitBreaker) *ResilientEmailClient {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.Settings{
			Name:             "smtp-email",
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
		}, func(ctx context.Context, err error) (interface{}, error) {
			logger.ErrorContext(ctx, "Email circuit breaker open, email send failed", zap.Error(err))
			return nil, err
		})
	}

	// Email retries are less aggressive since emails can be delayed
	retryConfig := resilience.ConservativeRetryConfig()
	retryConfig.MaxAttempts = 3
	retryConfig.InitialBackoff = 2 * time.Second
	retryConfig.MaxBackoff = 15 * time.Second
	retryConfig.RetryableChecker = isEmailRetryable

	return &ResilientEmailClient{
		client:  client,
		breaker: breaker,
		retry:   retryConfig,
	}
}

// WithRetry replaces the retry policy. The retryable checker is kept when
// cfg leaves it nil.
func (r *ResilientEmailClient) WithRetry(cfg resilience.RetryConfig) *ResilientEmailClient {
	if cfg.RetryableChecker == nil {
		cfg.RetryableChecker = isEmailRetryable
	}
	r.retry = cfg
	return r
}

// SendEmail sends an HTML email with retry and circuit breaker
func (r *ResilientEmailClient) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := resilience.RetryWithBreaker(ctx, r.retry, r.breaker, func(ctx context.Context) (interface{}, error) {
		return nil, r.client.SendEmail(ctx, to, subject, body)
	}, "smtp_send")

	if err != nil {
		logger.ErrorContext(ctx, "Failed to send email after retries",
			zap.Error(err),
			zap.String("to", maskEmail(to)),
			zap.String("subject", subject),
		)
		return err
	}

	logger.DebugContext(ctx, "Successfully sent email",
		zap.String("to", maskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

// isEmailRetryable determines if an email error should be retried
func isEmailRetryable(err error) bool {
	if err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	// Permanent SMTP replies first: "550 ... timeout" is still permanent.
	nonRetryableMessages := []string{
		"550", // mailbox unavailable
		"551", // user not local
		"552", // exceeded storage allocation
		"553", // mailbox name not allowed
		"554", // transaction failed
		"invalid address",
		"mailbox not found",
		"user unknown",
		"authentication failed",
		"auth failed",
		"bad username",
		"bad password",
		"access denied",
	}
	for _, msg := range nonRetryableMessages {
		if strings.Contains(errMsg, msg) {
			return false
		}
	}

	retryableMessages := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"421", // service not available
		"450", // mailbox busy
		"451", // local error in processing
		"452", // insufficient system storage
		"network is unreachable",
		"eof",
		"too many connections",
	}
	for _, msg := range retryableMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	// By default, retry network-related errors
	return true
}

// maskEmail masks email address for logging (show only first char and domain)
func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***"
	}
	if len(parts[0]) == 0 {
		return "***@" + parts[1]
	}
	return string(parts[0][0]) + "***@" + parts[1]
}
