package serializer

import (
	"github.com/klauspost/compress/zstd"

	"github.com/hyp3rd/ewrap"
)

// ZstdSerializer compresses the output of another serializer with zstd.
// Large pages shrink considerably in the cache store at a small CPU cost.
type ZstdSerializer struct {
	inner   ISerializer
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdSerializer wraps inner with zstd compression.
// The returned encoder and decoder are safe for concurrent use through EncodeAll/DecodeAll.
func NewZstdSerializer(inner ISerializer) (*ZstdSerializer, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, ewrap.Wrap(err, "creating zstd encoder")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, ewrap.Wrap(err, "creating zstd decoder")
	}

	return &ZstdSerializer{inner: inner, encoder: encoder, decoder: decoder}, nil
}

// Marshal serializes v with the inner serializer and compresses the result.
func (s *ZstdSerializer) Marshal(v any) ([]byte, error) {
	raw, err := s.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	return s.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal decompresses data and hands it to the inner serializer.
func (s *ZstdSerializer) Unmarshal(data []byte, v any) error {
	raw, err := s.decoder.DecodeAll(data, nil)
	if err != nil {
		return ewrap.Wrap(err, "failed to decompress zstd")
	}

	return s.inner.Unmarshal(raw, v)
}
