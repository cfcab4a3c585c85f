// Package pipeline implements the middleware composition engine for the SApp
// framework. It turns an ordered sequence of handlers into a single callable
// pipeline with "onion" control flow: code before a handler's call to next()
// runs in registration order, code after runs in reverse registration order.
package pipeline

import (
	"fmt"
	"runtime/debug"
)

// Next is a handler's continuation. Calling it dispatches the rest of the
// pipeline and returns once everything downstream has completed. A handler
// may call its continuation at most once per request.
type Next func() error

// Handler is a single node in the chain. It receives the per-request context
// and the continuation for the rest of the pipeline. The type parameter C is
// the context type, which keeps the composer free of any dependency on the
// application layer.
type Handler[C any] func(c C, next Next) error

// Pipeline is the callable produced by composing a handler sequence. The
// terminal continuation is invoked after the last handler in the sequence;
// a nil terminal resolves immediately.
type Pipeline[C any] func(c C, terminal Next) error

// Compose turns an ordered sequence of handlers into a single Pipeline.
// The sequence is validated eagerly: a nil element fails with a
// ConfigurationError at composition time rather than at dispatch time.
//
// Within a single invocation each position is entered at most once. A handler
// that calls its continuation twice gets a DoubleInvocationError, and a panic
// inside any handler is recovered and returned as a PanicError so the caller
// always receives an error value, never an escaped panic.
func Compose[C any](handlers []Handler[C]) (Pipeline[C], error) {
	// Validate the sequence up front
	for i, h := range handlers {
		if h == nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("handler at index %d is nil", i)}
		}
	}

	return func(c C, terminal Next) error {
		// High-water mark for dispatched positions; starts below the
		// first valid index
		lastIndex := -1

		var dispatch func(i int) error
		dispatch = func(i int) error {
			// Enforce the single-invocation invariant
			if i <= lastIndex {
				return &DoubleInvocationError{Index: i}
			}
			lastIndex = i

			// Select the handler at this position, or the terminal
			// continuation at the end of the sequence
			if i == len(handlers) {
				if terminal == nil {
					return nil
				}
				return invoke(func() error { return terminal() })
			}

			h := handlers[i]
			return invoke(func() error {
				return h(c, func() error { return dispatch(i + 1) })
			})
		}

		return dispatch(0)
	}, nil
}

// invoke calls fn and converts a panic into a returned PanicError. This makes
// a handler that panics indistinguishable, at the pipeline boundary, from one
// that returns the same error.
func invoke(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn()
}
