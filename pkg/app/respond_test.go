package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// finalize runs the finalization step against a fresh context and returns
// the recorder.
func finalize(t *testing.T, method string, setup func(c *Context)) *httptest.ResponseRecorder {
	t.Helper()
	a := newTestApp()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "http://example.com/", nil)
	c := newContext(a, w, req)
	setup(c)
	if err := a.respond(c); err != nil {
		t.Fatalf("respond returned error: %v", err)
	}
	return w
}

func TestRespondEmptyStatus(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetStatus(http.StatusNoContent)
		c.SetBody(map[string]int{"a": 1})
		c.Response.Header().Set("Content-Type", "application/json")
	})

	// Bodiless statuses end the channel with no payload and no content
	// headers
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "" {
		t.Errorf("Expected content headers stripped, got Content-Type %q", ct)
	}
}

func TestRespondHead(t *testing.T) {
	w := finalize(t, "HEAD", func(c *Context) {
		c.SetStatus(http.StatusOK)
		c.SetBody(map[string]int{"a": 1})
	})

	// HEAD ends headers-only, with the length the serialized body would
	// have had
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}
	if cl := w.Header().Get("Content-Length"); cl != "7" {
		t.Errorf("Expected Content-Length 7 for %q, got %q", `{"a":1}`, cl)
	}
}

func TestRespondNilBody(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetStatus(http.StatusOK)
	})

	// An absent body is synthesized from the status message
	if w.Body.String() != "OK" {
		t.Errorf("Expected body %q, got %q", "OK", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Expected plain text content type, got %q", ct)
	}
	if cl := w.Header().Get("Content-Length"); cl != "2" {
		t.Errorf("Expected Content-Length 2, got %q", cl)
	}
}

func TestRespondNilBodyUnknownStatus(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetStatus(599)
	})

	// A status with no default message falls back to the numeric code
	if w.Body.String() != "599" {
		t.Errorf("Expected body %q, got %q", "599", w.Body.String())
	}
}

func TestRespondString(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetBody("hello")
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "hello" {
		t.Errorf("Expected body %q, got %q", "hello", w.Body.String())
	}
}

func TestRespondBytes(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF}
	w := finalize(t, "GET", func(c *Context) {
		c.SetBody(payload)
	})

	if w.Body.String() != string(payload) {
		t.Errorf("Expected raw bytes verbatim, got %v", w.Body.Bytes())
	}
}

func TestRespondStream(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetBody(strings.NewReader("streamed payload"))
	})

	if w.Body.String() != "streamed payload" {
		t.Errorf("Expected streamed body, got %q", w.Body.String())
	}
}

func TestRespondJSON(t *testing.T) {
	w := finalize(t, "GET", func(c *Context) {
		c.SetBody(map[string]int{"a": 1})
	})

	if w.Body.String() != `{"a":1}` {
		t.Errorf("Expected serialized body, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	if cl := w.Header().Get("Content-Length"); cl != "7" {
		t.Errorf("Expected Content-Length 7, got %q", cl)
	}
}

func TestRespondProto(t *testing.T) {
	msg := wrapperspb.String("hello")
	w := finalize(t, "GET", func(c *Context) {
		c.SetBody(msg)
	})

	if ct := w.Header().Get("Content-Type"); ct != "application/x-protobuf" {
		t.Errorf("Expected protobuf content type, got %q", ct)
	}
	expected, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("proto.Marshal returned error: %v", err)
	}
	if w.Body.String() != string(expected) {
		t.Errorf("Expected proto-encoded body, got %v", w.Body.Bytes())
	}
}

func TestRespondOptOut(t *testing.T) {
	a := newTestApp()
	w := httptest.NewRecorder()
	c := newContext(a, w, httptest.NewRequest("GET", "http://example.com/", nil))
	c.Respond = false
	c.SetBody("ignored")

	if err := a.respond(c); err != nil {
		t.Fatalf("respond returned error: %v", err)
	}

	// Finalization must not touch the channel
	if c.Response.HeaderWritten() {
		t.Error("Expected no headers written for bypassed finalization")
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}
}

func TestRespondExactlyOnce(t *testing.T) {
	a := newTestApp()
	w := httptest.NewRecorder()
	c := newContext(a, w, httptest.NewRequest("GET", "http://example.com/", nil))
	c.SetBody("once")

	if err := a.respond(c); err != nil {
		t.Fatalf("respond returned error: %v", err)
	}
	// A second finalization is a contract violation; it must not
	// double-write
	if err := a.respond(c); err != nil {
		t.Fatalf("second respond returned error: %v", err)
	}

	if w.Body.String() != "once" {
		t.Errorf("Expected single write, got %q", w.Body.String())
	}
}

func TestRespondNotWritable(t *testing.T) {
	a := newTestApp()
	w := httptest.NewRecorder()
	c := newContext(a, w, httptest.NewRequest("GET", "http://example.com/", nil))
	c.SetBody("never sent")
	c.Response.markClosed()

	if err := a.respond(c); err != nil {
		t.Fatalf("respond returned error: %v", err)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected no write on closed channel, got %q", w.Body.String())
	}
}
