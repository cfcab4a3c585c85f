package app

import (
	"net/http"

	"github.com/Suhaibinator/SApp/pkg/common"
)

// WrapMiddleware adapts a classic net/http middleware to the pipeline's
// two-argument calling convention. The middleware's pre-processing runs on
// the way in and its post-processing on the way out, exactly as it would in
// a plain net/http chain: the bridge handler passed to the middleware
// dispatches the rest of the pipeline when invoked.
//
// A middleware that writes to the channel owns the response, whether or not
// it invoked the rest of the pipeline, so finalization is skipped for it.
func WrapMiddleware(mw common.Middleware) Handler {
	return func(c *Context, next Next) error {
		var nextErr error

		bridge := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Carry forward request mutations (context values, rewritten
			// bodies) made by the middleware
			c.Request.Raw = req
			nextErr = next()
		})

		mw(bridge).ServeHTTP(c.Response, c.Request.Raw)

		if nextErr != nil {
			return nextErr
		}
		if c.Response.HeaderWritten() {
			c.Respond = false
		}
		return nil
	}
}

// WrapHandler adapts a terminal net/http handler into a pipeline handler.
// If the wrapped handler writes to the channel, finalization is skipped;
// the rest of the pipeline still runs either way.
func WrapHandler(h http.Handler) Handler {
	return func(c *Context, next Next) error {
		h.ServeHTTP(c.Response, c.Request.Raw)
		if c.Response.HeaderWritten() {
			c.Respond = false
		}
		return next()
	}
}
