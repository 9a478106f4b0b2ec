// Package wire implements the byte-level encoding toolkit shared by the
// TLOG writer and the Multiplex protocol server: base-128 varuint coding,
// fixed-width little-endian integers, the CRC-16 (CCITT-false) checksum
// used on multiplex frames, and a growable, poolable byte buffer.
//
// All multi-byte values in both wire formats are little-endian; this
// package never produces or consumes big-endian bytes.
package wire

import "errors"

// MaxVaruintLen is the maximum number of bytes a 32-bit varuint can occupy.
const MaxVaruintLen = 5

// ErrMalformedVaruint is returned when a varuint's continuation bit is
// still set after the 5th byte, i.e. it cannot represent a 32-bit value.
var ErrMalformedVaruint = errors.New("wire: malformed varuint")

// ErrShortBuffer is returned when a decoder runs out of input before a
// value is fully read.
var ErrShortBuffer = errors.New("wire: short buffer")

// PutVaruint encodes v as a base-128 little-endian varuint into dst and
// returns the number of bytes written. dst must have at least
// MaxVaruintLen bytes of capacity.
func PutVaruint(dst []byte, v uint32) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// AppendVaruint appends v to dst as a varuint and returns the extended slice.
func AppendVaruint(dst []byte, v uint32) []byte {
	var buf [MaxVaruintLen]byte
	n := PutVaruint(buf[:], v)
	return append(dst, buf[:n]...)
}

// VaruintLen returns the number of bytes PutVaruint would write for v.
func VaruintLen(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Varuint decodes a base-128 little-endian varuint from src. It returns the
// decoded value and the number of bytes consumed. If src is exhausted
// before a terminating byte is seen, it returns ErrShortBuffer; if the 5th
// byte still carries the continuation bit, it returns ErrMalformedVaruint.
func Varuint(src []byte) (value uint32, n int, err error) {
	var result uint32
	for shift := uint(0); shift < 7*MaxVaruintLen; shift += 7 {
		if n >= len(src) {
			return 0, 0, ErrShortBuffer
		}
		b := src[n]
		n++
		result |= uint32(b&0x7f) << shift
		if b < 0x80 {
			return result, n, nil
		}
		if n == MaxVaruintLen {
			// 5th byte still carries the continuation bit: cannot
			// represent a 32-bit value in one more byte.
			return 0, 0, ErrMalformedVaruint
		}
	}
	return 0, 0, ErrMalformedVaruint
}
