package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newContextFor(a *App, req *http.Request) *Context {
	return newContext(a, httptest.NewRecorder(), req)
}

func TestContextState(t *testing.T) {
	a := newTestApp()
	c := newContextFor(a, httptest.NewRequest("GET", "http://example.com/", nil))

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected missing key to report not found")
	}

	c.Set("user", "tobi")
	v, ok := c.Get("user")
	if !ok || v != "tobi" {
		t.Errorf("Expected stored value, got %v (found=%v)", v, ok)
	}
}

func TestSetBodyPromotesStatus(t *testing.T) {
	a := newTestApp()
	c := newContextFor(a, httptest.NewRequest("GET", "http://example.com/", nil))

	// The status starts as "not found"
	if c.Status() != http.StatusNotFound {
		t.Errorf("Expected default status 404, got %d", c.Status())
	}

	// Setting a body without an explicit status promotes it to 200
	c.SetBody("hello")
	if c.Status() != http.StatusOK {
		t.Errorf("Expected status 200 after SetBody, got %d", c.Status())
	}
}

func TestSetBodyKeepsExplicitStatus(t *testing.T) {
	a := newTestApp()
	c := newContextFor(a, httptest.NewRequest("GET", "http://example.com/", nil))

	c.SetStatus(http.StatusCreated)
	c.SetBody("created")
	if c.Status() != http.StatusCreated {
		t.Errorf("Expected explicit status 201 to win, got %d", c.Status())
	}
}

func TestRequestIPUntrusted(t *testing.T) {
	a := newTestApp()
	req := httptest.NewRequest("GET", "http://example.com/", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	c := newContextFor(a, req)

	// Without trust-proxy, forwarded headers are ignored
	if ip := c.Request.IP(); ip != "203.0.113.7" {
		t.Errorf("Expected RemoteAddr IP, got %q", ip)
	}
}

func TestRequestIPTrusted(t *testing.T) {
	a := New(Config{Logger: zap.NewNop(), TrustProxy: true})
	req := httptest.NewRequest("GET", "http://example.com/", nil)
	req.RemoteAddr = "10.0.0.1:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	c := newContextFor(a, req)

	// The leftmost forwarded entry is the original client
	if ip := c.Request.IP(); ip != "198.51.100.1" {
		t.Errorf("Expected forwarded IP, got %q", ip)
	}
}

func TestTrustProxyMutableAfterConstruction(t *testing.T) {
	a := newTestApp()
	req := httptest.NewRequest("GET", "http://example.com/", nil)
	req.RemoteAddr = "10.0.0.1:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	c := newContextFor(a, req)

	if ip := c.Request.IP(); ip != "10.0.0.1" {
		t.Fatalf("Expected RemoteAddr IP before trusting proxies, got %q", ip)
	}

	// Flipping the flag after construction takes effect immediately
	a.Config.TrustProxy = true
	if ip := c.Request.IP(); ip != "198.51.100.1" {
		t.Errorf("Expected forwarded IP after trusting proxies, got %q", ip)
	}
}

func TestRequestHostTrusted(t *testing.T) {
	a := New(Config{Logger: zap.NewNop(), TrustProxy: true})
	req := httptest.NewRequest("GET", "http://internal.example.com/", nil)
	req.Header.Set("X-Forwarded-Host", "public.example.com")
	c := newContextFor(a, req)

	if host := c.Request.Host(); host != "public.example.com" {
		t.Errorf("Expected forwarded host, got %q", host)
	}
}

func TestSubdomains(t *testing.T) {
	tests := []struct {
		host     string
		offset   int
		expected []string
	}{
		{"tobi.ferrets.example.com", 2, []string{"ferrets", "tobi"}},
		{"example.com", 2, nil},
		{"tobi.ferrets.example.com", 3, []string{"tobi"}},
		{"127.0.0.1", 2, nil},
	}

	for _, tt := range tests {
		a := New(Config{Logger: zap.NewNop(), SubdomainOffset: tt.offset})
		req := httptest.NewRequest("GET", "http://"+tt.host+"/", nil)
		req.Host = tt.host
		c := newContextFor(a, req)

		got := c.Request.Subdomains()
		if len(got) != len(tt.expected) {
			t.Errorf("%s offset %d: expected %v, got %v", tt.host, tt.offset, tt.expected, got)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("%s offset %d: expected %v, got %v", tt.host, tt.offset, tt.expected, got)
				break
			}
		}
	}
}

func TestCleanIP(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"203.0.113.7:4711", "203.0.113.7"},
		{"203.0.113.7", "203.0.113.7"},
		{"[2001:db8::1]:4711", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		if got := cleanIP(tt.in); got != tt.expected {
			t.Errorf("cleanIP(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestResponseHeaderAfterDisconnect(t *testing.T) {
	a := newTestApp()
	w := httptest.NewRecorder()
	c := newContext(a, w, httptest.NewRequest("GET", "http://example.com/", nil))

	c.Response.Header().Set("X-Early", "1")
	c.Response.markClosed()

	// Late mutations land on a detached copy, never the transport
	c.Response.Header().Set("X-Late", "1")
	if w.Header().Get("X-Late") != "" {
		t.Error("Expected late header not to reach the transport")
	}
	if got := c.Response.Header().Get("X-Late"); got != "1" {
		t.Errorf("Expected detached map to retain the value, got %q", got)
	}
	if got := c.Response.Header().Get("X-Early"); got != "1" {
		t.Errorf("Expected detached map to carry earlier headers, got %q", got)
	}
}

func TestResponseWriteAfterFinalize(t *testing.T) {
	a := newTestApp()
	w := httptest.NewRecorder()
	c := newContext(a, w, httptest.NewRequest("GET", "http://example.com/", nil))

	if err := c.Response.end([]byte("final")); err != nil {
		t.Fatalf("end returned error: %v", err)
	}

	// Writes after the terminal write are dropped
	n, err := c.Response.Write([]byte("extra"))
	if err != nil {
		t.Errorf("Expected dropped write to succeed, got %v", err)
	}
	if n != 5 {
		t.Errorf("Expected dropped write to report full length, got %d", n)
	}
	if w.Body.String() != "final" {
		t.Errorf("Expected single terminal write, got %q", w.Body.String())
	}
	if c.Writable() {
		t.Error("Expected context to be unwritable after finalization")
	}
}
