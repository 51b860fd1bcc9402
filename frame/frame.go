// Package frame encodes the CQL native protocol requests the routing layer
// hands over to a connection once a node has been picked.
//
// Only the v4 request side is covered: the 9 byte header, the PREPARE body
// and optional snappy body compression.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Opcode identifies a native protocol message.
type Opcode byte

// Request opcodes.
const (
	OpStartup  Opcode = 0x01
	OpOptions  Opcode = 0x05
	OpQuery    Opcode = 0x07
	OpPrepare  Opcode = 0x09
	OpExecute  Opcode = 0x0A
	OpRegister Opcode = 0x0B
	OpBatch    Opcode = 0x0D
)

func (o Opcode) String() string {
	switch o {
	case OpStartup:
		return "STARTUP"
	case OpOptions:
		return "OPTIONS"
	case OpQuery:
		return "QUERY"
	case OpPrepare:
		return "PREPARE"
	case OpExecute:
		return "EXECUTE"
	case OpRegister:
		return "REGISTER"
	case OpBatch:
		return "BATCH"
	default:
		return fmt.Sprintf("Opcode(0x%02X)", byte(o))
	}
}

// Header flags.
const (
	FlagCompression byte = 0x01
	FlagTracing     byte = 0x02
)

const (
	// ProtoVersion4 is the request version byte of protocol v4.
	ProtoVersion4 byte = 0x04
	// HeaderSize is the size of a v3+ frame header.
	HeaderSize = 9
)

// ErrStringTooLong is returned when a [long string] does not fit into an int32 length.
var ErrStringTooLong = errors.New("string is too long for a [long string]")

// Request is a serializable request body.
type Request interface {
	Opcode() Opcode
	Serialize(buf *bytes.Buffer) error
}

// Prepare asks a node to prepare Query.
type Prepare struct {
	Query string
}

// Opcode implements Request.
func (Prepare) Opcode() Opcode { return OpPrepare }

// Serialize implements Request. The body is the query as a [long string].
func (p Prepare) Serialize(buf *bytes.Buffer) error {
	return WriteLongString(buf, p.Query)
}

// WriteLongString writes s as an int32 big endian length followed by its bytes.
func WriteLongString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxInt32 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(s)))
	buf.Write(size[:])
	buf.WriteString(s)
	return nil
}

// Header is a v3+ frame header.
type Header struct {
	Version byte
	Flags   byte
	Stream  int16
	Opcode  Opcode
	Length  uint32
}

// AppendTo appends the encoded header to b.
func (h Header) AppendTo(b []byte) []byte {
	b = append(b, h.Version, h.Flags)
	b = binary.BigEndian.AppendUint16(b, uint16(h.Stream))
	b = append(b, byte(h.Opcode))
	return binary.BigEndian.AppendUint32(b, h.Length)
}

// DecodeHeader reads a header from the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("frame header needs %d bytes, got %d", HeaderSize, len(b))
	}
	return Header{
		Version: b[0],
		Flags:   b[1],
		Stream:  int16(binary.BigEndian.Uint16(b[2:4])),
		Opcode:  Opcode(b[4]),
		Length:  binary.BigEndian.Uint32(b[5:9]),
	}, nil
}

// EncodeRequest builds a complete v4 request frame. When c is not nil the body is
// compressed and the compression flag is set.
func EncodeRequest(stream int16, req Request, c Compressor) ([]byte, error) {
	var body bytes.Buffer
	if err := req.Serialize(&body); err != nil {
		return nil, fmt.Errorf("serialize %s: %w", req.Opcode(), err)
	}

	h := Header{Version: ProtoVersion4, Stream: stream, Opcode: req.Opcode()}
	payload := body.Bytes()
	if c != nil {
		compressed, err := c.Encode(payload)
		if err != nil {
			return nil, fmt.Errorf("compress %s body with %s: %w", req.Opcode(), c.Name(), err)
		}
		payload = compressed
		h.Flags |= FlagCompression
	}
	if uint64(len(payload)) > math.MaxInt32 {
		return nil, fmt.Errorf("%s body of %d bytes exceeds the frame limit", req.Opcode(), len(payload))
	}
	h.Length = uint32(len(payload))

	out := h.AppendTo(make([]byte, 0, HeaderSize+len(payload)))
	return append(out, payload...), nil
}
