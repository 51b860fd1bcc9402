// Package token implements the partitioning side of routing: mapping a
// partition key to its position on the token ring.
package token

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Token is a position on the Murmur3 token ring.
type Token int64

const (
	// MinToken is the smallest token on the ring. The partitioner never
	// produces it for a key, it only bounds ranges.
	MinToken Token = math.MinInt64
	// MaxToken is the largest token on the ring.
	MaxToken Token = math.MaxInt64
)

// String returns the decimal form used by system.local / system.peers.
func (t Token) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Parse reads a token in its decimal form.
func Parse(s string) (Token, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid murmur3 token %q: %w", s, err)
	}
	return Token(v), nil
}

// Partitioner maps a serialized partition key to a token.
type Partitioner interface {
	Name() string
	Token(routingKey []byte) Token
}

// Murmur3Partitioner is the default Scylla and Cassandra partitioner.
type Murmur3Partitioner struct{}

// Name implements Partitioner.
func (Murmur3Partitioner) Name() string {
	return "org.apache.cassandra.dht.Murmur3Partitioner"
}

// Token implements Partitioner.
func (Murmur3Partitioner) Token(routingKey []byte) Token {
	h := murmur3H1(routingKey)
	if h == math.MinInt64 {
		return MaxToken
	}
	return Token(h)
}

var _ Partitioner = Murmur3Partitioner{}

// RoutingKey serializes partition key components the way the server does
// before hashing. A single component is used as is, a composite key is
// encoded as a sequence of [uint16 length][bytes][0x00].
func RoutingKey(components ...[]byte) ([]byte, error) {
	switch len(components) {
	case 0:
		return nil, nil
	case 1:
		return components[0], nil
	}
	var buf bytes.Buffer
	for i, c := range components {
		if len(c) > math.MaxUint16 {
			return nil, fmt.Errorf("partition key component %d is %d bytes long, max is %d", i, len(c), math.MaxUint16)
		}
		var size [2]byte
		binary.BigEndian.PutUint16(size[:], uint16(len(c)))
		buf.Write(size[:])
		buf.Write(c)
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}
