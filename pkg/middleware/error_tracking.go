package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/errors"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

// SentryMiddleware attaches a per-request hub.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorHandler reports errors attached with c.Error and bare 5xx responses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		hub := sentrygin.GetHubFromContext(c)
		errors.AddBreadcrumbForRequest(hub, c.Request.Method, c.FullPath(), status, time.Since(start))

		extras := map[string]interface{}{
			"method": c.Request.Method,
			"route":  c.FullPath(),
			"status": status,
		}

		reported := false
		for _, ginErr := range c.Errors {
			if errors.ShouldReportError(ginErr.Err, status) {
				errors.CaptureWithContext(c.Request.Context(), hub, ginErr.Err, extras)
				reported = true
			}
		}
		if !reported && status >= http.StatusInternalServerError && len(c.Errors) == 0 {
			errors.CaptureWithContext(c.Request.Context(), hub, fmt.Errorf("HTTP %d on %s %s", status, c.Request.Method, c.FullPath()), extras)
		}
	}
}

// RecoveryWithSentry turns a panic into a 500 envelope after reporting it.
func RecoveryWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				hub := sentrygin.GetHubFromContext(c)
				if hub == nil {
					hub = sentry.CurrentHub().Clone()
				}
				hub.Scope().SetRequest(c.Request)
				if userID, ok := c.Get(ContextUserID); ok {
					hub.Scope().SetUser(sentry.User{ID: fmt.Sprintf("%v", userID)})
				}
				hub.RecoverWithContext(c.Request.Context(), rec)

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
				)
				c.Abort()
				common.ErrorResponse(c, http.StatusInternalServerError, "an unexpected error occurred")
			}
		}()
		c.Next()
	}
}
