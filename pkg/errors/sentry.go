// Package errors reports unexpected failures to Sentry.
package errors

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/config"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
)

// InitSentry initializes the SDK. A missing DSN is not an error: reporting
// is simply disabled and false is returned.
func InitSentry(cfg config.SentryConfig, server config.ServerConfig) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      server.Environment,
		Release:          server.ServiceName + "@" + server.Version,
		ServerName:       server.ServiceName,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
		BeforeBreadcrumb: func(b *sentry.Breadcrumb, _ *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			if b.Category == "http" && b.Data != nil {
				delete(b.Data, "Authorization")
				delete(b.Data, "Cookie")
			}
			return b
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// ShouldReportError filters out typed business failures and client errors.
// Rate limiting is reported since it usually signals abuse.
func ShouldReportError(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	if appErr, ok := common.AsAppError(err); ok && appErr.Code < http.StatusInternalServerError {
		return false
	}
	if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
		return false
	}
	return true
}

// CaptureWithContext reports err tagged with the correlation ID found in ctx.
func CaptureWithContext(ctx context.Context, hub *sentry.Hub, err error, extras map[string]interface{}) *sentry.EventID {
	if err == nil {
		return nil
	}
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	var id *sentry.EventID
	hub.WithScope(func(scope *sentry.Scope) {
		if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
			scope.SetTag("correlation_id", cid)
		}
		if uid := logger.UserIDFromContext(ctx); uid != "" {
			scope.SetUser(sentry.User{ID: uid})
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		id = hub.CaptureException(err)
	})
	return id
}

// AddBreadcrumbForRequest records a finished request on the current hub.
func AddBreadcrumbForRequest(hub *sentry.Hub, method, path string, statusCode int, duration time.Duration) {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	level := sentry.LevelInfo
	if statusCode >= 500 {
		level = sentry.LevelError
	} else if statusCode >= 400 {
		level = sentry.LevelWarning
	}
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Type:     "http",
		Category: "http",
		Level:    level,
		Data: map[string]interface{}{
			"method":      method,
			"url":         path,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
	}, nil)
}
