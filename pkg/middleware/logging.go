package middleware

import (
	"time"

	"github.com/Suhaibinator/SApp/pkg/app"
	"go.uber.org/zap"
)

// Logging is a handler that logs requests. It records the duration of
// everything downstream of it and the status the pipeline settled on.
func Logging(logger *zap.Logger) app.Handler {
	return func(c *app.Context, next app.Next) error {
		start := time.Now()

		// Run the rest of the pipeline
		err := next()

		duration := time.Since(start)
		status := c.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method()),
			zap.String("path", c.Request.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if traceID := GetTraceID(c); traceID != "" {
			fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
		}

		// Use appropriate log level based on status code and duration
		switch {
		case err != nil || status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		case duration > 1*time.Second:
			logger.Warn("Slow request", fields...)
		default:
			// Normal requests at Debug level to avoid log spam
			logger.Debug("Request", fields...)
		}

		return err
	}
}
