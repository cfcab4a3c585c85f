package middleware

import (
	"github.com/Suhaibinator/SApp/pkg/app"
	"github.com/google/uuid"
)

// TraceIDKey is the state key under which the per-request trace ID is stored.
const TraceIDKey = "trace_id"

// Trace creates a handler that generates a unique trace ID for each request,
// stores it in the context state, and echoes it in the X-Trace-ID response
// header. This allows for request tracing across logs.
func Trace() app.Handler {
	return func(c *app.Context, next app.Next) error {
		// Generate a unique trace ID
		traceID := uuid.New().String()

		c.Set(TraceIDKey, traceID)
		c.Response.Header().Set("X-Trace-ID", traceID)

		return next()
	}
}

// GetTraceID extracts the trace ID from the context state.
// Returns an empty string if no trace ID is found.
func GetTraceID(c *app.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		if traceID, ok := v.(string); ok {
			return traceID
		}
	}
	return ""
}
