package common

import "net/http"

// MiddlewareChain is an ordered sequence of classic net/http middleware.
// Chains compose around plain handlers via Then; a whole chain can also be
// registered on an App through UseChain, which adapts it into the pipeline's
// calling convention with its ordering intact.
type MiddlewareChain []Middleware

// NewMiddlewareChain creates a chain from the given middleware, outermost
// first.
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return middlewares
}

// Append returns a new chain with the given middleware added after the
// existing entries. The receiver is not modified.
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	result := make(MiddlewareChain, 0, len(c)+len(middlewares))
	result = append(result, c...)
	return append(result, middlewares...)
}

// Prepend returns a new chain with the given middleware placed before the
// existing entries. The receiver is not modified.
func (c MiddlewareChain) Prepend(middlewares ...Middleware) MiddlewareChain {
	result := make(MiddlewareChain, 0, len(c)+len(middlewares))
	result = append(result, middlewares...)
	return append(result, c...)
}

// Then wraps h in the chain, first entry outermost.
func (c MiddlewareChain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// AsMiddleware collapses the chain into a single Middleware that applies
// every entry in order.
func (c MiddlewareChain) AsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return c.Then(next)
	}
}
