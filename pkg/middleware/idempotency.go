package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/vehicle-marketplace/pkg/cache"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	redisclient "github.com/richxcame/vehicle-marketplace/pkg/redis"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// idempotencyTTL is how long idempotency results are cached
	idempotencyTTL = 24 * time.Hour
	// idempotencyLockTTL bounds how long an in-flight marker survives a crashed request.
	idempotencyLockTTL = 30 * time.Second
	inFlightMarker     = "in-flight"
)

// idempotencyEntry stores the cached response for a given idempotency key
type idempotencyEntry struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
	RequestHash string          `json:"request_hash"`
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *idempotencyResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Idempotency replays the stored response of a POST or PUT carrying an
// Idempotency-Key the caller has already used, so a retried reservation
// request does not create a second reservation. Keys are scoped per user.
func Idempotency(redis redisclient.ClientInterface) gin.HandlerFunc {
	keys := cache.Keys{}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		ctx := c.Request.Context()
		requestHash := hashRequest(c.Request.Method, c.FullPath(), bodyBytes)

		userID := "anonymous"
		if uid, err := GetUserID(c); err == nil {
			userID = uid.String()
		}
		redisKey := keys.Idempotency(userID, idempotencyKey)

		acquired, err := redis.SetIfAbsent(ctx, redisKey, inFlightMarker, idempotencyLockTTL)
		if err != nil {
			logger.WarnContext(ctx, "idempotency store unavailable, processing without replay protection",
				zap.String("key", idempotencyKey),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !acquired {
			replayStored(c, redis, redisKey, requestHash)
			return
		}

		writer := &idempotencyResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		c.Writer = writer

		c.Next()

		// Failed requests release the key so the caller can retry.
		if writer.statusCode < 200 || writer.statusCode >= 300 {
			if err := redis.Delete(ctx, redisKey); err != nil {
				logger.WarnContext(ctx, "failed to release idempotency key", zap.String("key", idempotencyKey), zap.Error(err))
			}
			return
		}

		entry := idempotencyEntry{
			StatusCode:  writer.statusCode,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
			RequestHash: requestHash,
		}
		data, err := json.Marshal(entry)
		if err == nil {
			err = redis.SetWithExpiration(ctx, redisKey, string(data), idempotencyTTL)
		}
		if err != nil {
			logger.WarnContext(ctx, "failed to cache idempotency response",
				zap.String("key", idempotencyKey),
				zap.Error(err),
			)
		}
	}
}

func replayStored(c *gin.Context, redis redisclient.ClientInterface, redisKey, requestHash string) {
	cached, err := redis.GetString(c.Request.Context(), redisKey)
	if err != nil && !errors.Is(err, redisclient.Nil) {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "idempotency store unavailable")
		c.Abort()
		return
	}

	if cached == "" || cached == inFlightMarker {
		common.AppErrorResponse(c, common.NewConflictError("a request with this Idempotency-Key is already in progress").WithCode("IDEMPOTENCY_IN_PROGRESS"))
		c.Abort()
		return
	}

	var entry idempotencyEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "corrupt idempotency record")
		c.Abort()
		return
	}

	if entry.RequestHash != requestHash {
		common.ErrorResponse(c, http.StatusUnprocessableEntity,
			"Idempotency-Key has already been used with a different request")
		c.Abort()
		return
	}

	contentType := entry.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(entry.StatusCode, contentType, entry.Body)
	c.Abort()
}

// hashRequest creates a SHA-256 hash of the request method, path, and body
func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
