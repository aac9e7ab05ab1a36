package naf

import (
	"errors"
	"io"
	"math"
)

// Archive numbers use a variable-length encoding: big-endian groups
// of 7 bits, with the high bit set on every byte except the last.
// A uint64 needs at most 10 bytes.
const maxNumberLen = 10

var errNumberTooLong = errors.New("malformed number: too many bytes")

func readNumber(r io.Reader) (uint64, error) {
	var v uint64
	var b [1]byte
	for i := 0; i < maxNumberLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if i > 0 {
				return 0, noEOF(err)
			}
			return 0, err
		}
		if v > math.MaxUint64>>7 {
			return 0, errNumberTooLong
		}
		v = v<<7 | uint64(b[0]&0x7f)
		if b[0]&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errNumberTooLong
}

func appendNumber(dst []byte, v uint64) []byte {
	var buf [maxNumberLen]byte
	n := 0
	buf[n] = byte(v & 0x7f)
	n++
	for v >>= 7; v > 0; v >>= 7 {
		buf[n] = byte(v&0x7f) | 0x80
		n++
	}
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, buf[i])
	}
	return dst
}

// noEOF reports a clean EOF in the middle of a structure as an
// unexpected one.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
