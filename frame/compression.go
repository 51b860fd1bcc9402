package frame

import (
	"github.com/klauspost/compress/snappy"
)

// Compressor compresses frame bodies. Name is the value negotiated in the
// STARTUP COMPRESSION option.
type Compressor interface {
	Name() string
	Encode(body []byte) ([]byte, error)
	Decode(body []byte) ([]byte, error)
}

// SnappyCompressor implements the "snappy" frame body compression.
type SnappyCompressor struct{}

// Name implements Compressor.
func (SnappyCompressor) Name() string { return "snappy" }

// Encode implements Compressor.
func (SnappyCompressor) Encode(body []byte) ([]byte, error) {
	return snappy.Encode(nil, body), nil
}

// Decode implements Compressor.
func (SnappyCompressor) Decode(body []byte) ([]byte, error) {
	return snappy.Decode(nil, body)
}

var _ Compressor = SnappyCompressor{}
