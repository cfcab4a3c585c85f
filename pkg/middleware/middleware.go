// Package middleware provides a collection of pipeline handlers for the SApp
// framework. Each handler follows the two-argument calling convention: code
// before the call to next runs on the way in, code after it runs on the way
// out.
package middleware

import (
	"net/http"
	"strings"

	"github.com/Suhaibinator/SApp/pkg/app"
)

// CORS is a handler that adds CORS headers to the response.
// Preflight requests are answered directly without running the rest of the
// pipeline.
func CORS(origins []string, methods []string, headers []string) app.Handler {
	return func(c *app.Context, next app.Next) error {
		// Set CORS headers
		h := c.Response.Header()
		if len(origins) > 0 {
			h.Set("Access-Control-Allow-Origin", strings.Join(origins, ", "))
		}
		if len(methods) > 0 {
			h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
		}
		if len(headers) > 0 {
			h.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
		}

		// Handle preflight requests
		if c.Request.Method() == http.MethodOptions {
			c.SetStatus(http.StatusOK)
			c.SetBody("")
			return nil
		}

		return next()
	}
}

// MaxBodySize is a handler that limits the size of the request body.
// Reads past the limit fail downstream with the net/http max-bytes error.
func MaxBodySize(maxSize int64) app.Handler {
	return func(c *app.Context, next app.Next) error {
		c.Request.Raw.Body = http.MaxBytesReader(c.Response, c.Request.Raw.Body, maxSize)
		return next()
	}
}
