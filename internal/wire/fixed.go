package wire

import (
	"encoding/binary"
	"math"
)

// PutU16 writes v to dst[0:2] little-endian. dst must have at least 2 bytes.
func PutU16(dst []byte, v uint16) { binary.LittleEndian.PutUint16(dst, v) }

// U16 reads a little-endian uint16 from src[0:2].
func U16(src []byte) uint16 { return binary.LittleEndian.Uint16(src) }

// PutU32 writes v to dst[0:4] little-endian. dst must have at least 4 bytes.
func PutU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }

// U32 reads a little-endian uint32 from src[0:4].
func U32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }

// PutU64 writes v to dst[0:8] little-endian. dst must have at least 8 bytes.
func PutU64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

// U64 reads a little-endian uint64 from src[0:8].
func U64(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }

// PutI64 writes v to dst[0:8] little-endian, matching the TLOG timestamp
// encoding (microseconds since epoch, signed).
func PutI64(dst []byte, v int64) { binary.LittleEndian.PutUint64(dst, uint64(v)) }

// I64 reads a little-endian signed int64 from src[0:8].
func I64(src []byte) int64 { return int64(binary.LittleEndian.Uint64(src)) }

// PutF32 writes the IEEE-754 bit pattern of v to dst[0:4] little-endian.
func PutF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

// F32 reads an IEEE-754 float32 from src[0:4] little-endian.
func F32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}

// AppendU16 appends a little-endian uint16 to dst.
func AppendU16(dst []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(dst, v) }

// AppendU32 appends a little-endian uint32 to dst.
func AppendU32(dst []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(dst, v) }

// AppendU64 appends a little-endian uint64 to dst.
func AppendU64(dst []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(dst, v) }

// AppendI64 appends a little-endian signed int64 to dst.
func AppendI64(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

// AppendF32 appends a little-endian IEEE-754 float32 to dst.
func AppendF32(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}
