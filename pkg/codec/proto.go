package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// ProtoMarshaler serializes proto.Message bodies with the Protocol Buffers
// binary encoding.
type ProtoMarshaler struct{}

// Marshal converts a proto.Message to its binary encoding. Any other value
// is an error.
func (ProtoMarshaler) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, errors.New("value does not implement proto.Message")
	}
	return proto.Marshal(msg)
}

// ContentType returns the protobuf media type.
func (ProtoMarshaler) ContentType() string {
	return "application/x-protobuf"
}
