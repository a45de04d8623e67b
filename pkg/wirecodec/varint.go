package wirecodec

import (
	"bytes"
	"fmt"
)

// maxVarintShift bounds the payload at 49 bits, per spec: seven
// groups of seven payload bits each.
const maxVarintShift = 49

// writeUvarint appends v to buf as a little-endian base-128 varint:
// each byte carries 7 payload bits low-to-high, with the top bit set
// on every byte but the last.
func writeUvarint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

// readUvarint reads a little-endian base-128 varint from r, returning
// ErrMalformed if the payload exceeds 49 bits or the reader runs out
// of bytes mid-varint.
func readUvarint(r *bytes.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: truncated varint: %v", ErrMalformed, err)
		}
		if shift >= maxVarintShift {
			return 0, fmt.Errorf("%w: varint exceeds %d-bit payload", ErrMalformed, maxVarintShift)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}
