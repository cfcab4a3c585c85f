package app

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusClientClosedRequest is the non-standard status code recorded when the
// client disconnects before the pipeline completes.
const StatusClientClosedRequest = 499

// HTTPError represents a request fault with a status code, a message, and an
// expose flag. When a handler returns an HTTPError, the status code and
// message control the finalized error response. Expose determines whether the
// message is safe to reveal to the client; faults created for 4xx statuses
// are exposed by default, 5xx faults are not.
type HTTPError struct {
	StatusCode int    // HTTP status code (e.g., 400, 404, 500)
	Message    string // Error message describing the fault
	Expose     bool   // Whether the message may be sent to the client
}

// Error implements the error interface.
// It returns a string representation of the HTTP error in the format "status: message".
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTPError with the specified status code and message.
// Client-error statuses (4xx) are marked expose-safe; everything else is not.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Expose:     statusCode >= 400 && statusCode < 500,
	}
}

// ErrClientDisconnected is the synthetic fault routed when the remote side
// closes the connection before the pipeline has completed.
var ErrClientDisconnected = &HTTPError{
	StatusCode: StatusClientClosedRequest,
	Message:    "client closed request",
}

// InvalidFaultError indicates that a nil error value was routed to the fault
// handler. This is a programmer error in the caller, not a request fault, and
// it fails loudly instead of being absorbed.
type InvalidFaultError struct{}

// Error implements the error interface.
func (e *InvalidFaultError) Error() string {
	return "non-fault value routed to fault handler"
}

// asHTTPError unwraps a fault to its HTTPError, if it carries one.
func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// faultStatus extracts the status code from a fault, defaulting to 500 for
// anything that is not an HTTPError or carries an out-of-range code.
func faultStatus(err error) int {
	if httpErr := asHTTPError(err); httpErr != nil {
		if httpErr.StatusCode >= 100 && httpErr.StatusCode < 600 {
			return httpErr.StatusCode
		}
	}
	return http.StatusInternalServerError
}

// faultExposed reports whether the fault's details are safe to reveal.
func faultExposed(err error) bool {
	if httpErr := asHTTPError(err); httpErr != nil {
		return httpErr.Expose
	}
	return false
}
