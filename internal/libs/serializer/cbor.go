package serializer

import (
	"github.com/ugorji/go/codec"

	"github.com/hyp3rd/ewrap"
)

// CBORSerializer encodes responses as CBOR through ugorji/go/codec.
// Field names come from the `codec` struct tags.
type CBORSerializer struct {
	handle *codec.CborHandle
}

// NewCBORSerializer returns a CBOR serializer with a private handle.
func NewCBORSerializer() *CBORSerializer {
	handle := &codec.CborHandle{}
	handle.Canonical = true

	return &CBORSerializer{handle: handle}
}

// Marshal serializes the given value into a byte slice.
func (s *CBORSerializer) Marshal(v any) ([]byte, error) {
	var data []byte

	err := codec.NewEncoderBytes(&data, s.handle).Encode(v)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to marshal cbor")
	}

	return data, nil
}

// Unmarshal deserializes the given byte slice into the given value.
func (s *CBORSerializer) Unmarshal(data []byte, v any) error {
	err := codec.NewDecoderBytes(data, s.handle).Decode(v)
	if err != nil {
		return ewrap.Wrap(err, "failed to unmarshal cbor")
	}

	return nil
}
