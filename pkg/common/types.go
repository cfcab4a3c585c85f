// Package common provides shared types and utilities used across the SApp framework.
package common

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler.
// It allows for pre-processing and post-processing of HTTP requests.
// Middleware can be chained together to create a pipeline of request
// processing, and can be adapted into the app pipeline's calling convention
// via app.WrapMiddleware.
type Middleware func(http.Handler) http.Handler
