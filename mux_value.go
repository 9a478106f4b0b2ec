// mux_value.go implements the tagged scalar union the Multiplex protocol
// passes as register values.
package tlogmux

import "fmt"

// ValueType is the 2-bit type discriminant carried in subframe opcodes, in
// declaration order {i8, i16, i32, f32}.
type ValueType uint8

const (
	ValueI8 ValueType = iota
	ValueI16
	ValueI32
	ValueF32
)

func (t ValueType) String() string {
	switch t {
	case ValueI8:
		return "i8"
	case ValueI16:
		return "i16"
	case ValueI32:
		return "i32"
	case ValueF32:
		return "f32"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Size returns the on-wire byte width of a value of this type.
func (t ValueType) Size() int {
	switch t {
	case ValueI8:
		return 1
	case ValueI16:
		return 2
	case ValueI32, ValueF32:
		return 4
	default:
		return 0
	}
}

// Value is a tagged union over the four register scalar types.
type Value struct {
	typ ValueType
	i8  int8
	i16 int16
	i32 int32
	f32 float32
}

// I8 constructs an i8-typed Value.
func I8(v int8) Value { return Value{typ: ValueI8, i8: v} }

// I16 constructs an i16-typed Value.
func I16(v int16) Value { return Value{typ: ValueI16, i16: v} }

// I32 constructs an i32-typed Value.
func I32(v int32) Value { return Value{typ: ValueI32, i32: v} }

// F32 constructs an f32-typed Value.
func F32(v float32) Value { return Value{typ: ValueF32, f32: v} }

// Type reports the value's discriminant.
func (v Value) Type() ValueType { return v.typ }

// AsI8 returns the value's i8 payload; the result is meaningless unless
// Type() == ValueI8.
func (v Value) AsI8() int8 { return v.i8 }

// AsI16 returns the value's i16 payload; the result is meaningless unless
// Type() == ValueI16.
func (v Value) AsI16() int16 { return v.i16 }

// AsI32 returns the value's i32 payload; the result is meaningless unless
// Type() == ValueI32.
func (v Value) AsI32() int32 { return v.i32 }

// AsF32 returns the value's f32 payload; the result is meaningless unless
// Type() == ValueF32.
func (v Value) AsF32() float32 { return v.f32 }

func (v Value) String() string {
	switch v.typ {
	case ValueI8:
		return fmt.Sprintf("i8(%d)", v.i8)
	case ValueI16:
		return fmt.Sprintf("i16(%d)", v.i16)
	case ValueI32:
		return fmt.Sprintf("i32(%d)", v.i32)
	case ValueF32:
		return fmt.Sprintf("f32(%g)", v.f32)
	default:
		return "Value(invalid)"
	}
}
