package app

import (
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Config defines the process-wide configuration for an App. It is read at
// construction and stays mutable on App.Config by direct assignment; the
// read-mostly flags (TrustProxy, SubdomainOffset, Env, Silent) take effect on
// the next request.
type Config struct {
	Logger          *zap.Logger                    // Logger for all coordinator operations
	Env             string                         // Environment label; defaults to $APP_ENV or "development"
	TrustProxy      bool                           // Trust X-Forwarded-* headers for IP/host/protocol accessors
	SubdomainOffset int                            // Number of trailing host labels ignored by Subdomains (default 2)
	Silent          bool                           // Suppress fault logging entirely
	OnError         func(err error, c *Context)    // Optional fault observer; nil selects the default fault handler
	ErrorBody       func(c *Context, err error, status int) string // Body text for finalized faults; nil selects the default
}

// DefaultErrorBody is the default body formatter for finalized faults.
// Expose-safe faults reveal their message; everything else gets the generic
// status text so internal details never leak to the client.
func DefaultErrorBody(c *Context, err error, status int) string {
	if faultExposed(err) {
		if httpErr := asHTTPError(err); httpErr != nil && httpErr.Message != "" {
			return httpErr.Message
		}
	}
	text := http.StatusText(status)
	if text == "" {
		text = "Internal Server Error"
	}
	return text
}

// withDefaults fills in the zero values of a Config.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		// Create a default logger if none is provided
		logger, err := zap.NewProduction()
		if err != nil {
			// Fallback to a no-op logger if we can't create a production logger
			logger = zap.NewNop()
		}
		c.Logger = logger
	}
	if c.Env == "" {
		c.Env = os.Getenv("APP_ENV")
		if c.Env == "" {
			c.Env = "development"
		}
	}
	if c.SubdomainOffset == 0 {
		c.SubdomainOffset = 2
	}
	if c.ErrorBody == nil {
		c.ErrorBody = DefaultErrorBody
	}
	return c
}
