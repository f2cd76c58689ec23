package wire

import (
	"fmt"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// ArgError attaches the failing argument to a read or write error.
type ArgError struct {
	Arg    string
	Offset int
	Err    error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("wire: arg %q at offset %d: %v", e.Arg, e.Offset, e.Err)
}

func (e *ArgError) Unwrap() error {
	return e.Err
}

// ReadValue decodes one argument. Enum integers outside the declared set
// resolve to the enum's sentinel member instead of failing.
func ReadValue(r *Reader, spec protocol.ArgumentSpec) (protocol.Value, error) {
	switch spec.Type {
	case protocol.TypeI8:
		v, err := r.I8()
		return protocol.NewI8(v), err
	case protocol.TypeU8:
		v, err := r.U8()
		return protocol.NewU8(v), err
	case protocol.TypeI16:
		v, err := r.I16()
		return protocol.NewI16(v), err
	case protocol.TypeU16:
		v, err := r.U16()
		return protocol.NewU16(v), err
	case protocol.TypeI32:
		v, err := r.I32()
		return protocol.NewI32(v), err
	case protocol.TypeU32:
		v, err := r.U32()
		return protocol.NewU32(v), err
	case protocol.TypeI64:
		v, err := r.I64()
		return protocol.NewI64(v), err
	case protocol.TypeU64:
		v, err := r.U64()
		return protocol.NewU64(v), err
	case protocol.TypeFloat:
		v, err := r.F32()
		return protocol.NewFloat(v), err
	case protocol.TypeDouble:
		v, err := r.F64()
		return protocol.NewDouble(v), err
	case protocol.TypeString:
		v, err := r.String()
		return protocol.NewString(v), err
	case protocol.TypeEnum:
		raw, err := r.I32()
		if err != nil {
			return protocol.Value{}, err
		}
		if spec.Enum != nil {
			raw, _ = spec.Enum.Resolve(raw)
		}
		return protocol.NewEnumValue(raw), nil
	case protocol.TypeListFlags:
		v, err := r.U8()
		return protocol.NewListFlags(protocol.ListFlags(v)), err
	default:
		return protocol.Value{}, fmt.Errorf("wire: unsupported type %s: %w", spec.Type, protocol.ErrMalformedArgument)
	}
}

// ReadArgs decodes specs in order. When a list flags argument carries Empty,
// every other argument is still consumed from the wire and then reset to its
// default (ArgumentSpec.Default).
func ReadArgs(r *Reader, specs []protocol.ArgumentSpec) ([]protocol.Value, error) {
	out := make([]protocol.Value, len(specs))
	empty := false
	for i, spec := range specs {
		start := r.Pos()
		v, err := ReadValue(r, spec)
		if err != nil {
			return nil, &ArgError{Arg: spec.Name, Offset: start, Err: err}
		}
		if spec.Type == protocol.TypeListFlags && v.ListFlags().Empty() {
			empty = true
		}
		out[i] = v
	}
	if empty {
		for i, spec := range specs {
			if spec.Type != protocol.TypeListFlags {
				out[i] = spec.Default()
			}
		}
	}
	return out, nil
}

// AppendValue encodes v as spec after checking it fits.
func AppendValue(w *Writer, spec protocol.ArgumentSpec, v protocol.Value) error {
	if err := v.Fits(spec); err != nil {
		return fmt.Errorf("wire: %v: %w", err, protocol.ErrArgumentMismatch)
	}
	switch spec.Type {
	case protocol.TypeI8:
		w.PutI8(v.I8())
	case protocol.TypeU8:
		w.PutU8(v.U8())
	case protocol.TypeI16:
		w.PutI16(v.I16())
	case protocol.TypeU16:
		w.PutU16(v.U16())
	case protocol.TypeI32:
		w.PutI32(v.I32())
	case protocol.TypeU32:
		w.PutU32(v.U32())
	case protocol.TypeI64:
		w.PutI64(v.I64())
	case protocol.TypeU64:
		w.PutU64(v.U64())
	case protocol.TypeFloat:
		w.PutF32(v.Float32())
	case protocol.TypeDouble:
		w.PutF64(v.Float64())
	case protocol.TypeString:
		return w.PutString(v.Text())
	case protocol.TypeEnum:
		w.PutI32(v.Enum())
	case protocol.TypeListFlags:
		w.PutU8(uint8(v.ListFlags()))
	default:
		return fmt.Errorf("wire: unsupported type %s: %w", spec.Type, protocol.ErrArgumentMismatch)
	}
	return nil
}

// AppendArgs encodes values positionally against specs.
func AppendArgs(w *Writer, specs []protocol.ArgumentSpec, values []protocol.Value) error {
	if len(specs) != len(values) {
		return fmt.Errorf("wire: arity %d, want %d: %w", len(values), len(specs), protocol.ErrArgumentMismatch)
	}
	for i, spec := range specs {
		start := w.Len()
		if err := AppendValue(w, spec, values[i]); err != nil {
			return &ArgError{Arg: spec.Name, Offset: start, Err: err}
		}
	}
	return nil
}
