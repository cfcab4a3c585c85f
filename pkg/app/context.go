package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
)

// Context is the per-request record threaded through the pipeline. It is
// created fresh for every request, owned exclusively by that request's
// pipeline invocation, and discarded after the response is finalized.
//
// A Context aggregates a request view and a response view that both
// back-reference it; ownership of the underlying connection stays with
// net/http.
type Context struct {
	// Request is the inbound request view
	Request *Request

	// Response is the outbound response view
	Response *Response

	// State is a free-form container for handler-to-handler communication
	State map[string]any

	// Respond controls finalization. Handlers that write to the channel
	// directly should set it to false to opt out of the finalization step.
	Respond bool

	app *App
}

// newContext creates a fresh Context for one request. The response status
// starts as "not found" until a handler changes it.
func newContext(a *App, w http.ResponseWriter, r *http.Request) *Context {
	c := &Context{
		State:   make(map[string]any),
		Respond: true,
		app:     a,
	}
	c.Request = &Request{ctx: c, Raw: r}
	c.Response = &Response{ctx: c, w: w, status: http.StatusNotFound}
	return c
}

// App returns the coordinator that created this context.
func (c *Context) App() *App { return c.app }

// Context returns the request-scoped context.Context, which is canceled on
// client disconnect or deadline.
func (c *Context) Context() context.Context { return c.Request.Raw.Context() }

// Get retrieves a value from the per-request state container.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.State[key]
	return v, ok
}

// Set stores a value in the per-request state container.
func (c *Context) Set(key string, value any) { c.State[key] = value }

// Status returns the derived response status code.
func (c *Context) Status() int { return c.Response.Status() }

// SetStatus sets the response status code.
func (c *Context) SetStatus(code int) { c.Response.SetStatus(code) }

// Body returns the derived response body value.
func (c *Context) Body() any { return c.Response.Body() }

// SetBody sets the response body. Setting a non-nil body on a context whose
// status has not been set explicitly switches the status from the
// "not found" default to 200.
func (c *Context) SetBody(body any) { c.Response.SetBody(body) }

// Writable reports whether the outbound channel can still be written to.
func (c *Context) Writable() bool { return c.Response.Writable() }

// Request is the per-request view over the inbound http.Request. Its
// accessors honor the coordinator's TrustProxy and SubdomainOffset
// configuration.
type Request struct {
	// Raw is the inbound request handle owned by net/http
	Raw *http.Request

	ctx *Context
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.Raw.Method }

// Path returns the request path.
func (r *Request) Path() string { return r.Raw.URL.Path }

// Query returns the first value of the named query parameter.
func (r *Request) Query(name string) string { return r.Raw.URL.Query().Get(name) }

// Header returns the first value of the named request header.
func (r *Request) Header(name string) string { return r.Raw.Header.Get(name) }

// Host returns the request host, honoring X-Forwarded-Host when the
// coordinator trusts proxy headers.
func (r *Request) Host() string {
	if r.ctx.app.Config.TrustProxy {
		if host := r.Raw.Header.Get("X-Forwarded-Host"); host != "" {
			// The leftmost entry is the original host
			if i := strings.IndexByte(host, ','); i >= 0 {
				host = host[:i]
			}
			return strings.TrimSpace(host)
		}
	}
	return r.Raw.Host
}

// Protocol returns "https" or "http", honoring X-Forwarded-Proto when the
// coordinator trusts proxy headers.
func (r *Request) Protocol() string {
	if r.Raw.TLS != nil {
		return "https"
	}
	if r.ctx.app.Config.TrustProxy {
		if proto := r.Raw.Header.Get("X-Forwarded-Proto"); proto != "" {
			if i := strings.IndexByte(proto, ','); i >= 0 {
				proto = proto[:i]
			}
			return strings.TrimSpace(proto)
		}
	}
	return "http"
}

// IP returns the client IP address. When the coordinator trusts proxy
// headers, the leftmost X-Forwarded-For entry wins; otherwise RemoteAddr is
// used. The port is stripped if present.
func (r *Request) IP() string {
	var ip string
	if r.ctx.app.Config.TrustProxy {
		if xff := r.Raw.Header.Get("X-Forwarded-For"); xff != "" {
			// The leftmost IP is the original client
			parts := strings.Split(xff, ",")
			ip = strings.TrimSpace(parts[0])
		}
	}
	if ip == "" {
		ip = r.Raw.RemoteAddr
	}
	return cleanIP(ip)
}

// Subdomains returns the host's subdomain labels, ignoring the configured
// number of trailing labels (the registered domain) and ordered from the
// rightmost subdomain outward. An IP-literal host has no subdomains.
func (r *Request) Subdomains() []string {
	host := r.Host()
	// Strip the port if present
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}

	labels := strings.Split(host, ".")
	offset := r.ctx.app.Config.SubdomainOffset
	if len(labels) <= offset {
		return nil
	}

	subs := labels[:len(labels)-offset]
	// Reverse so the label closest to the registered domain comes first
	out := make([]string, len(subs))
	for i, s := range subs {
		out[len(subs)-1-i] = s
	}
	return out
}

// cleanIP removes the port from an IP address if present.
func cleanIP(ip string) string {
	// IPv6 addresses with ports are formatted as [IPv6]:port
	if strings.HasPrefix(ip, "[") {
		end := strings.LastIndex(ip, "]")
		if end > 0 {
			return strings.Trim(ip[:end+1], "[]")
		}
		return ip
	}

	// An address with multiple colons is a bare IPv6 literal
	if strings.Count(ip, ":") > 1 {
		return ip
	}

	if end := strings.LastIndex(ip, ":"); end > 0 {
		return ip[:end]
	}
	return ip
}

// Response is the per-request view over the outbound channel. It implements
// http.ResponseWriter so legacy net/http middleware can write through it, and
// it tracks the state the finalization step needs: the derived status and
// body, whether headers have been sent, and whether the channel is still
// writable.
type Response struct {
	ctx *Context
	w   http.ResponseWriter

	mu            sync.Mutex
	status        int
	statusSet     bool
	body          any
	headerWritten bool
	finished      bool
	closed        bool
	bytesWritten  int64
	lateHeader    http.Header
}

// Header returns the header map that will be sent with the response. After a
// disconnect, mutations land on a detached copy and never reach the transport.
func (r *Response) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		if r.lateHeader == nil {
			r.lateHeader = r.w.Header().Clone()
		}
		return r.lateHeader
	}
	return r.w.Header()
}

// Status returns the derived response status code.
func (r *Response) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SetStatus sets the response status code without writing it to the channel.
func (r *Response) SetStatus(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
	r.statusSet = true
}

// Body returns the derived response body value.
func (r *Response) Body() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body
}

// SetBody sets the derived response body. A non-nil body on a response whose
// status was never set explicitly promotes the status from the "not found"
// default to 200.
func (r *Response) SetBody(body any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.body = body
	if body != nil && !r.statusSet {
		r.status = http.StatusOK
	}
}

// HeaderWritten reports whether response headers have already been sent.
func (r *Response) HeaderWritten() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headerWritten
}

// Writable reports whether the channel can still be written to. It is false
// once the response has been finalized or the remote side has disconnected.
func (r *Response) Writable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.finished && !r.closed
}

// BytesWritten returns the number of body bytes written so far.
func (r *Response) BytesWritten() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytesWritten
}

// WriteHeader sends the response headers with the given status code.
// It implements http.ResponseWriter; repeated calls are ignored.
func (r *Response) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headerWritten || r.finished || r.closed {
		return
	}
	r.status = code
	r.statusSet = true
	r.headerWritten = true
	r.w.WriteHeader(code)
}

// Write writes raw bytes to the channel, sending headers first if needed.
// Writes after finalization or disconnect are dropped. It implements
// http.ResponseWriter and io.Writer.
func (r *Response) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.closed {
		// The channel is gone; pretend the write happened so cooperative
		// handlers that ignore cancellation still run to completion
		return len(b), nil
	}
	if !r.headerWritten {
		r.headerWritten = true
		r.w.WriteHeader(r.status)
	}
	n, err := r.w.Write(b)
	r.bytesWritten += int64(n)
	if err != nil {
		r.closed = true
	}
	return n, err
}

// Flush flushes buffered data to the client if the underlying writer
// supports it.
func (r *Response) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if f, ok := r.w.(http.Flusher); ok {
		f.Flush()
	}
}

// markClosed records that the remote side disconnected. All subsequent
// writes become no-ops.
func (r *Response) markClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// stripContentHeaders removes entity headers that must not accompany a
// bodiless response. It has no effect once headers are sent.
func (r *Response) stripContentHeaders() {
	r.mu.Lock()
	headerWritten := r.headerWritten
	r.mu.Unlock()
	if headerWritten {
		return
	}
	h := r.w.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	h.Del("Transfer-Encoding")
}

// end performs the single terminal write for the response. The first call
// wins; later calls are no-ops, which guards double finalization.
func (r *Response) end(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return nil
	}
	r.finished = true
	if r.closed {
		return nil
	}
	if !r.headerWritten {
		r.headerWritten = true
		r.w.WriteHeader(r.status)
	}
	if len(payload) > 0 {
		n, err := r.w.Write(payload)
		r.bytesWritten += int64(n)
		if err != nil {
			r.closed = true
			return err
		}
	}
	return nil
}

// stream performs the terminal write from a streaming body source. The
// channel ends when the stream ends; a disconnect observed mid-stream stops
// the copy. The source is closed afterwards if it is an io.Closer.
func (r *Response) stream(src io.Reader) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return nil
	}
	r.finished = true
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	if !r.headerWritten {
		r.headerWritten = true
		r.w.WriteHeader(r.status)
	}
	r.mu.Unlock()

	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			wn, writeErr := r.w.Write(buf[:n])
			r.mu.Lock()
			r.bytesWritten += int64(wn)
			if writeErr != nil {
				r.closed = true
			}
			r.mu.Unlock()
			if writeErr != nil {
				return writeErr
			}
			if f, ok := r.w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
