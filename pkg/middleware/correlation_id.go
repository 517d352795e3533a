package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request id in and out of the API.
	CorrelationIDHeader = "X-Request-ID"
	// upstreamCorrelationHeader is accepted from proxies that do not set X-Request-ID.
	upstreamCorrelationHeader = "X-Correlation-ID"
	// CorrelationIDKey is the gin context key for the request id.
	CorrelationIDKey = "correlation_id"
)

// Request ids end up in logs, Sentry tags and reservation events, so only
// short opaque tokens are accepted from clients.
var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,64}$`)

// CorrelationID reuses a well-formed incoming request id or mints a UUID,
// then exposes it to handlers, the logger context and the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := incomingCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), id))
		c.Writer.Header().Set(CorrelationIDHeader, id)

		c.Next()
	}
}

func incomingCorrelationID(c *gin.Context) string {
	for _, h := range []string{CorrelationIDHeader, upstreamCorrelationHeader} {
		if id := strings.TrimSpace(c.GetHeader(h)); correlationIDPattern.MatchString(id) {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the request id set by CorrelationID.
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(CorrelationIDKey); id != "" {
		return id
	}
	return logger.CorrelationIDFromContext(c.Request.Context())
}
