package app

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Suhaibinator/SApp/pkg/codec"
	"google.golang.org/protobuf/proto"
)

// emptyStatus is the set of status codes defined as having no body by
// protocol convention.
var emptyStatus = map[int]bool{
	http.StatusNoContent:    true,
	http.StatusResetContent: true,
	http.StatusNotModified:  true,
}

// respond finalizes the response from whatever the pipeline left on the
// context. It classifies the derived body and performs exactly one terminal
// write on the channel; the classification never distinguishes whether a
// handler produced the body synchronously or asynchronously.
func (a *App) respond(c *Context) error {
	// A handler opted out of finalization and owns the channel
	if !c.Respond {
		return nil
	}
	res := c.Response
	if !res.Writable() {
		return nil
	}

	status := res.Status()
	body := res.Body()

	// Bodiless statuses end the channel with no payload
	if emptyStatus[status] {
		res.SetBody(nil)
		res.stripContentHeaders()
		return res.end(nil)
	}

	// HEAD ends headers-only; a structured body still contributes its
	// would-be serialized length
	if c.Request.Method() == http.MethodHead {
		if !res.HeaderWritten() {
			if data, ok := marshalStructured(body); ok {
				res.Header().Set("Content-Length", strconv.Itoa(len(data)))
			}
		}
		return res.end(nil)
	}

	// An absent body is synthesized from the status message
	if body == nil {
		text := http.StatusText(status)
		if text == "" {
			text = strconv.Itoa(status)
		}
		if !res.HeaderWritten() {
			res.Header().Set("Content-Type", "text/plain; charset=utf-8")
			res.Header().Set("Content-Length", strconv.Itoa(len(text)))
		}
		return res.end([]byte(text))
	}

	switch b := body.(type) {
	case []byte:
		return res.end(b)
	case string:
		return res.end([]byte(b))
	case io.Reader:
		return res.stream(b)
	}

	// Everything else is structured data: serialize and end with the payload
	m := marshalerFor(body)
	data, err := m.Marshal(body)
	if err != nil {
		return err
	}
	if !res.HeaderWritten() {
		res.Header().Set("Content-Type", m.ContentType())
		res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	}
	return res.end(data)
}

// marshalerFor selects the serializer for a structured body. Protobuf
// messages use the proto codec; everything else serializes as JSON.
func marshalerFor(body any) codec.Marshaler {
	if _, ok := body.(proto.Message); ok {
		return codec.ProtoMarshaler{}
	}
	return codec.JSONMarshaler{}
}

// marshalStructured serializes a body that would finalize as structured
// data. It reports false for absent, raw, textual, and streaming bodies.
func marshalStructured(body any) ([]byte, bool) {
	if body == nil {
		return nil, false
	}
	switch body.(type) {
	case []byte, string, io.Reader:
		return nil, false
	}
	data, err := marshalerFor(body).Marshal(body)
	if err != nil {
		return nil, false
	}
	return data, true
}
