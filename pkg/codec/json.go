// Package codec provides the serializer collaborators used by response
// finalization: a canonical JSON encoding for structured bodies and a
// Protocol Buffers encoding for proto messages.
package codec

import (
	"encoding/json"
)

// Marshaler serializes a structured response body. Finalization uses the
// length of the marshaled bytes for Content-Length measurement.
type Marshaler interface {
	// Marshal converts a value to its wire encoding.
	Marshal(v any) ([]byte, error)

	// ContentType returns the media type for the encoding.
	ContentType() string
}

// JSONMarshaler is the canonical textual encoding for structured bodies.
type JSONMarshaler struct{}

// Marshal converts a value to JSON.
func (JSONMarshaler) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// ContentType returns the JSON media type.
func (JSONMarshaler) ContentType() string {
	return "application/json"
}
