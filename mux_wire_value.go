package tlogmux

import "github.com/brindlerobotics/tlogmux/internal/wire"

// encodeValue appends v's raw bytes (no type tag) to buf.
func encodeValue(buf *wire.Buffer, v Value) {
	switch v.typ {
	case ValueI8:
		buf.WriteByte(byte(v.i8))
	case ValueI16:
		buf.WriteU16(uint16(v.i16))
	case ValueI32:
		buf.WriteU32(uint32(v.i32))
	case ValueF32:
		buf.WriteF32(v.f32)
	}
}

// decodeValue reads a value of the given type from the front of b,
// returning the value and the number of bytes consumed.
func decodeValue(t ValueType, b []byte) (Value, int, error) {
	n := t.Size()
	if len(b) < n {
		return Value{}, 0, ErrMissingSubframe
	}
	switch t {
	case ValueI8:
		return I8(int8(b[0])), 1, nil
	case ValueI16:
		return I16(int16(wire.U16(b))), 2, nil
	case ValueI32:
		return I32(int32(wire.U32(b))), 4, nil
	case ValueF32:
		return F32(wire.F32(b)), 4, nil
	default:
		return Value{}, 0, ErrMalformedSubframe
	}
}
