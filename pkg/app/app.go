// Package app implements the request lifecycle coordinator for the SApp
// framework. An App owns an ordered sequence of registered handlers, composes
// them into a pipeline, builds a fresh context for every incoming request,
// and finalizes the response once the pipeline settles, successfully or with
// a fault.
package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/Suhaibinator/SApp/pkg/common"
	"github.com/Suhaibinator/SApp/pkg/pipeline"
	"go.uber.org/zap"
)

// Handler is a node in the request pipeline. Code before the call to next
// runs on the way in, in registration order; code after it runs on the way
// out, in reverse registration order.
type Handler = pipeline.Handler[*Context]

// Next is a handler's continuation.
type Next = pipeline.Next

// Pipeline is the composed form of the registered handler sequence.
type Pipeline = pipeline.Pipeline[*Context]

// App is the lifecycle coordinator. It implements http.Handler and can be
// bound directly to any net/http server.
type App struct {
	// Config is read at construction; the read-mostly flags (TrustProxy,
	// SubdomainOffset, Env, Silent) remain assignable afterwards
	Config Config

	logger *zap.Logger

	// handlers is the registered sequence; pipeline is its composed form,
	// rebuilt lazily when registration changes the sequence
	handlers []Handler
	pipeline Pipeline
	stale    bool
	mu       sync.Mutex

	srv        *http.Server
	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
}

// New creates a new App with the given configuration.
func New(config Config) *App {
	config = config.withDefaults()
	return &App{
		Config: config,
		logger: config.Logger,
	}
}

// Logger returns the coordinator's logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Use appends a handler to the pipeline and returns the App for chaining.
// Registration with a nil handler is a configuration error and panics; the
// handler sequence is not mutated in that case. Registration is expected to
// happen during setup, not concurrently with in-flight requests.
func (a *App) Use(h Handler) *App {
	if h == nil {
		panic(&pipeline.ConfigurationError{Reason: "Use called with nil handler"})
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, h)
	a.stale = true
	return a
}

// UseMiddleware registers a classic net/http middleware, adapting it to the
// pipeline's calling convention. Pre/post ordering of the wrapped middleware
// is preserved.
func (a *App) UseMiddleware(mw common.Middleware) *App {
	if mw == nil {
		panic(&pipeline.ConfigurationError{Reason: "UseMiddleware called with nil middleware"})
	}
	return a.Use(WrapMiddleware(mw))
}

// UseChain registers a whole chain of classic net/http middleware as one
// pipeline node. The chain's ordering is preserved: its first entry runs
// outermost.
func (a *App) UseChain(chain common.MiddlewareChain) *App {
	return a.Use(WrapMiddleware(chain.AsMiddleware()))
}

// Handler returns a request handler bound to the current composed pipeline,
// suitable for binding to a platform listener. The pipeline is composed once
// and recomposed only when registration changes the sequence, not per
// request.
func (a *App) Handler() http.Handler {
	return http.HandlerFunc(a.ServeHTTP)
}

// currentPipeline returns the composed pipeline, rebuilding it if the
// handler sequence changed since the last composition.
func (a *App) currentPipeline() Pipeline {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline == nil || a.stale {
		p, err := pipeline.Compose(a.handlers)
		if err != nil {
			// Unreachable: Use validates every registration
			panic(err)
		}
		a.pipeline = p
		a.stale = false
	}
	return a.pipeline
}

// ServeHTTP implements http.Handler. It creates a fresh context for the
// request, runs the composed pipeline against it, and finalizes the response
// when the pipeline settles. A fault never escapes the request: it is routed
// to the fault handler and the process keeps serving.
func (a *App) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// First add to the wait group before checking shutdown status
	a.wg.Add(1)
	defer a.wg.Done()

	a.shutdownMu.RLock()
	isShutdown := a.shutdown
	a.shutdownMu.RUnlock()
	if isShutdown {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	p := a.currentPipeline()
	c := newContext(a, w, req)

	// Run the pipeline in its own goroutine so an early client disconnect
	// can be observed while handlers are still in flight
	done := make(chan error, 1)
	go func() {
		done <- p(c, nil)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.handleFault(err, c)
			return
		}
		if err := a.respond(c); err != nil {
			a.handleFault(err, c)
		}
	case <-req.Context().Done():
		// The remote side went away before normal completion. Mark the
		// channel closed so in-flight handler writes become no-ops, then
		// route a synthetic cancellation fault.
		c.Response.markClosed()
		a.handleFault(ErrClientDisconnected, c)
	}
}

// handleFault routes a fault raised during pipeline execution or response
// finalization. A nil value here is a programmer error and fails loudly
// instead of being absorbed.
func (a *App) handleFault(err error, c *Context) {
	if err == nil {
		panic(&InvalidFaultError{})
	}

	status := faultStatus(err)

	// An observer registered at configuration time replaces the default
	// fault handler
	if a.Config.OnError != nil {
		a.Config.OnError(err, c)
	} else {
		a.logFault(err, c, status)
	}

	a.finalizeFault(err, c, status)
}

// logFault is the default fault handler. "Not found" faults, expose-safe
// faults, and client disconnects are not operational errors and are not
// logged; everything else is emitted at error level unless the coordinator
// is silenced.
func (a *App) logFault(err error, c *Context, status int) {
	if a.Config.Silent {
		return
	}
	if status == http.StatusNotFound || status == StatusClientClosedRequest || faultExposed(err) {
		return
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", c.Request.Method()),
		zap.String("path", c.Request.Path()),
		zap.Int("status", status),
	}

	// Prefer the full trace when the fault originated as a panic
	var panicErr *pipeline.PanicError
	if errors.As(err, &panicErr) {
		fields = append(fields, zap.ByteString("stack", panicErr.Stack))
	}

	a.logger.Error("Request fault", fields...)
}

// finalizeFault gives a faulted request best-effort finalization: a
// status-derived plain-text body, unless the channel is already unwritable
// or a handler opted out of finalization.
func (a *App) finalizeFault(err error, c *Context, status int) {
	if !c.Respond {
		return
	}
	res := c.Response
	if !res.Writable() {
		return
	}

	body := a.Config.ErrorBody(c, err, status)
	res.SetStatus(status)
	if !res.HeaderWritten() {
		res.stripContentHeaders()
		res.Header().Set("Content-Type", "text/plain; charset=utf-8")
		res.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	_ = res.end([]byte(body))
}

// Run starts an HTTP server on addr with the App as its handler. It blocks
// until the server stops; a graceful shutdown is not reported as an error.
func (a *App) Run(addr string) error {
	srv := &http.Server{Addr: addr, Handler: a}
	a.mu.Lock()
	a.srv = srv
	a.mu.Unlock()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the coordinator. It stops accepting new
// requests and waits for in-flight requests to complete. If the context is
// canceled before all requests complete, it returns the context's error.
func (a *App) Shutdown(ctx context.Context) error {
	// Mark the coordinator as shutting down
	a.shutdownMu.Lock()
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	// Wait for all requests to finish or for the context to be canceled
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
