// Package async starts detached background work that keeps the request's
// correlation and user IDs for logging but not its cancellation.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

// TaskContext is the part of a request context worth carrying into a
// background task.
type TaskContext struct {
	CorrelationID string
	UserID        string
	TaskName      string
	StartTime     time.Time
}

func Capture(ctx context.Context, taskName string) TaskContext {
	return TaskContext{
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		UserID:        logger.UserIDFromContext(ctx),
		TaskName:      taskName,
		StartTime:     time.Now(),
	}
}

// Detach returns a fresh context carrying the captured values. It is never
// cancelled by the originating request.
func (tc TaskContext) Detach() context.Context {
	ctx := context.Background()
	if tc.CorrelationID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, tc.CorrelationID)
	}
	if tc.UserID != "" {
		ctx = logger.ContextWithUserID(ctx, tc.UserID)
	}
	return ctx
}

// Detached is a shorthand for Capture(ctx, "").Detach().
func Detached(ctx context.Context) context.Context {
	return Capture(ctx, "").Detach()
}

// GoWithTimeout runs fn in a goroutine bounded by timeout. Errors and panics
// are logged and never reach the caller.
func GoWithTimeout(ctx context.Context, taskName string, timeout time.Duration, fn func(ctx context.Context) error) {
	tc := Capture(ctx, taskName)

	go func() {
		taskCtx, cancel := context.WithTimeout(tc.Detach(), timeout)
		defer cancel()
		defer recoverWithLogging(taskCtx, tc)

		if err := fn(taskCtx); err != nil {
			logger.WarnContext(taskCtx, "async task failed",
				zap.String("task", tc.TaskName),
				zap.Duration("duration", time.Since(tc.StartTime)),
				zap.Error(err),
			)
			return
		}
		logger.DebugContext(taskCtx, "async task completed",
			zap.String("task", tc.TaskName),
			zap.Duration("duration", time.Since(tc.StartTime)),
		)
	}()
}

func recoverWithLogging(ctx context.Context, tc TaskContext) {
	if r := recover(); r != nil {
		logger.ErrorContext(ctx, "async task panicked",
			zap.String("task", tc.TaskName),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}
