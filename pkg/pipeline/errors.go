package pipeline

import "fmt"

// ConfigurationError indicates that an invalid handler was supplied to
// Compose or to a registration call. It is fatal at the call site and is
// never retried.
type ConfigurationError struct {
	// Reason describes what was wrong with the input
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline configuration error: %s", e.Reason)
}

// DoubleInvocationError indicates that a handler invoked its continuation
// more than once during a single pipeline invocation. This always signals a
// logic bug in a handler and surfaces as the pipeline's returned error.
type DoubleInvocationError struct {
	// Index is the dispatch position at which the violation was detected
	Index int
}

// Error implements the error interface.
func (e *DoubleInvocationError) Error() string {
	return fmt.Sprintf("next() called multiple times at position %d", e.Index)
}

// PanicError wraps a panic recovered from a handler so the pipeline always
// returns an error value instead of letting the panic escape. It carries the
// recovered value and the stack at the point of recovery.
type PanicError struct {
	// Value is the value the handler panicked with
	Value any

	// Stack is the goroutine stack captured when the panic was recovered
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error, so callers can
// use errors.As on faults that originated as panics.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
