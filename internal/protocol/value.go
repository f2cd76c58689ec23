package protocol

import (
	"fmt"
	"math"
	"strconv"
)

// Value is one decoded argument. Signed integers and enums live in Int,
// unsigned integers and list flags in Uint, floats in Float, strings in Str.
// Value is comparable so decoded commands can be checked with ==.
type Value struct {
	Type  ArgType
	Int   int64
	Uint  uint64
	Float float64
	Str   string
}

func NewI8(v int8) Value       { return Value{Type: TypeI8, Int: int64(v)} }
func NewU8(v uint8) Value      { return Value{Type: TypeU8, Uint: uint64(v)} }
func NewI16(v int16) Value     { return Value{Type: TypeI16, Int: int64(v)} }
func NewU16(v uint16) Value    { return Value{Type: TypeU16, Uint: uint64(v)} }
func NewI32(v int32) Value     { return Value{Type: TypeI32, Int: int64(v)} }
func NewU32(v uint32) Value    { return Value{Type: TypeU32, Uint: uint64(v)} }
func NewI64(v int64) Value     { return Value{Type: TypeI64, Int: v} }
func NewU64(v uint64) Value    { return Value{Type: TypeU64, Uint: v} }
func NewFloat(v float32) Value { return Value{Type: TypeFloat, Float: float64(v)} }
func NewDouble(v float64) Value {
	return Value{Type: TypeDouble, Float: v}
}
func NewString(v string) Value       { return Value{Type: TypeString, Str: v} }
func NewEnumValue(v int32) Value     { return Value{Type: TypeEnum, Int: int64(v)} }
func NewListFlags(f ListFlags) Value { return Value{Type: TypeListFlags, Uint: uint64(f)} }

// Zero returns the type default used for fields of Empty list entries.
func Zero(t ArgType) Value {
	return Value{Type: t}
}

func (v Value) I8() int8             { return int8(v.Int) }
func (v Value) U8() uint8            { return uint8(v.Uint) }
func (v Value) I16() int16           { return int16(v.Int) }
func (v Value) U16() uint16          { return uint16(v.Uint) }
func (v Value) I32() int32           { return int32(v.Int) }
func (v Value) U32() uint32          { return uint32(v.Uint) }
func (v Value) I64() int64           { return v.Int }
func (v Value) U64() uint64          { return v.Uint }
func (v Value) Float32() float32     { return float32(v.Float) }
func (v Value) Float64() float64     { return v.Float }
func (v Value) Text() string         { return v.Str }
func (v Value) Enum() int32          { return int32(v.Int) }
func (v Value) ListFlags() ListFlags { return ListFlags(v.Uint) }
func (v Value) Bool() bool           { return v.Uint != 0 || v.Int != 0 }

// Fits reports whether v can be encoded as spec without loss.
func (v Value) Fits(spec ArgumentSpec) error {
	if v.Type != spec.Type {
		return fmt.Errorf("type %s, want %s", v.Type, spec.Type)
	}
	switch spec.Type {
	case TypeI8:
		return intRange(v.Int, math.MinInt8, math.MaxInt8)
	case TypeI16:
		return intRange(v.Int, math.MinInt16, math.MaxInt16)
	case TypeI32:
		return intRange(v.Int, math.MinInt32, math.MaxInt32)
	case TypeU8, TypeListFlags:
		return uintRange(v.Uint, math.MaxUint8)
	case TypeU16:
		return uintRange(v.Uint, math.MaxUint16)
	case TypeU32:
		return uintRange(v.Uint, math.MaxUint32)
	case TypeFloat:
		if !math.IsInf(v.Float, 0) && !math.IsNaN(v.Float) && math.Abs(v.Float) > math.MaxFloat32 {
			return fmt.Errorf("value %g overflows float32", v.Float)
		}
	case TypeEnum:
		if err := intRange(v.Int, math.MinInt32, math.MaxInt32); err != nil {
			return err
		}
		if spec.Enum != nil && !spec.Enum.Member(int32(v.Int)) {
			return fmt.Errorf("value %d is not a member of %s", v.Int, spec.Enum.Name)
		}
	}
	return nil
}

func intRange(v, lo, hi int64) error {
	if v < lo || v > hi {
		return fmt.Errorf("value %d out of range [%d, %d]", v, lo, hi)
	}
	return nil
}

func uintRange(v, hi uint64) error {
	if v > hi {
		return fmt.Errorf("value %d out of range [0, %d]", v, hi)
	}
	return nil
}

// Native returns v as the matching Go type.
func (v Value) Native() any {
	switch v.Type {
	case TypeI8:
		return v.I8()
	case TypeU8:
		return v.U8()
	case TypeI16:
		return v.I16()
	case TypeU16:
		return v.U16()
	case TypeI32:
		return v.I32()
	case TypeU32:
		return v.U32()
	case TypeI64:
		return v.Int
	case TypeU64:
		return v.Uint
	case TypeFloat:
		return v.Float32()
	case TypeDouble:
		return v.Float
	case TypeString:
		return v.Str
	case TypeEnum:
		return v.Enum()
	case TypeListFlags:
		return v.ListFlags()
	default:
		return nil
	}
}

func (v Value) String() string {
	switch {
	case v.Type == TypeString:
		return strconv.Quote(v.Str)
	case v.Type == TypeListFlags:
		return v.ListFlags().String()
	case v.Type == TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 32)
	case v.Type == TypeDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case v.Type.Signed():
		return strconv.FormatInt(v.Int, 10)
	default:
		return strconv.FormatUint(v.Uint, 10)
	}
}

// ParseValue converts text into a value of spec's type. Enum arguments accept
// either a member name or its integer value.
func ParseValue(spec ArgumentSpec, raw string) (Value, error) {
	bits := spec.Type.Size() * 8
	var v Value
	switch spec.Type {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		n, err := strconv.ParseInt(raw, 0, bits)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: spec.Type, Int: n}
	case TypeU8, TypeU16, TypeU32, TypeU64, TypeListFlags:
		n, err := strconv.ParseUint(raw, 0, bits)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: spec.Type, Uint: n}
	case TypeFloat, TypeDouble:
		f, err := strconv.ParseFloat(raw, bits)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: spec.Type, Float: f}
	case TypeString:
		v = NewString(raw)
	case TypeEnum:
		if spec.Enum != nil {
			if member, ok := spec.Enum.Parse(raw); ok {
				return NewEnumValue(member), nil
			}
		}
		n, err := strconv.ParseInt(raw, 0, 32)
		if err != nil {
			return Value{}, fmt.Errorf("unknown enum member %q", raw)
		}
		v = NewEnumValue(int32(n))
	default:
		return Value{}, fmt.Errorf("unsupported type %s", spec.Type)
	}
	if err := v.Fits(spec); err != nil {
		return Value{}, err
	}
	return v, nil
}
