// Package wire marshals individual argument values.
//
// Every fixed-width type is little-endian with its exact width and no padding.
// Strings are UTF-8 and null-terminated.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

var le = binary.LittleEndian

// Reader is a cursor over a frame buffer.
//
// A bounded reader holds exactly one frame, so a string running into the end
// of the buffer is malformed. An unbounded reader sits on a stream where the
// rest of the string may still arrive, so the same condition is a truncation.
type Reader struct {
	buf     []byte
	pos     int
	bounded bool
}

func NewReader(buf []byte, offset int, bounded bool) *Reader {
	return &Reader{buf: buf, pos: offset, bounded: bounded}
}

func (r *Reader) Pos() int       { return r.pos }
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("wire: need %d bytes at offset %d, have %d: %w",
			n, r.pos, max(r.Remaining(), 0), protocol.ErrTruncatedFrame)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return le.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return le.Uint32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return le.Uint64(b), nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// String reads up to and including the null terminator.
func (r *Reader) String() (string, error) {
	if r.pos < 0 || r.pos > len(r.buf) {
		return "", fmt.Errorf("wire: string at offset %d: %w", r.pos, protocol.ErrTruncatedFrame)
	}
	idx := bytes.IndexByte(r.buf[r.pos:], 0)
	if idx < 0 {
		if r.bounded {
			return "", fmt.Errorf("wire: string at offset %d missing terminator: %w",
				r.pos, protocol.ErrMalformedArgument)
		}
		return "", fmt.Errorf("wire: string at offset %d not terminated yet: %w",
			r.pos, protocol.ErrTruncatedFrame)
	}
	raw := r.buf[r.pos : r.pos+idx]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("wire: string at offset %d is not utf-8: %w",
			r.pos, protocol.ErrMalformedArgument)
	}
	r.pos += idx + 1
	return string(raw), nil
}

// Writer appends encoded values to a byte slice.
type Writer struct {
	buf []byte
}

func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) PutU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) PutI8(v int8)    { w.buf = append(w.buf, byte(v)) }
func (w *Writer) PutU16(v uint16) { w.buf = le.AppendUint16(w.buf, v) }
func (w *Writer) PutI16(v int16)  { w.buf = le.AppendUint16(w.buf, uint16(v)) }
func (w *Writer) PutU32(v uint32) { w.buf = le.AppendUint32(w.buf, v) }
func (w *Writer) PutI32(v int32)  { w.buf = le.AppendUint32(w.buf, uint32(v)) }
func (w *Writer) PutU64(v uint64) { w.buf = le.AppendUint64(w.buf, v) }
func (w *Writer) PutI64(v int64)  { w.buf = le.AppendUint64(w.buf, uint64(v)) }
func (w *Writer) PutF32(v float32) {
	w.buf = le.AppendUint32(w.buf, math.Float32bits(v))
}
func (w *Writer) PutF64(v float64) {
	w.buf = le.AppendUint64(w.buf, math.Float64bits(v))
}

// PutString writes s and its terminator. Embedded nulls would split the
// string on decode, so they are rejected.
func (w *Writer) PutString(s string) error {
	if idx := bytes.IndexByte([]byte(s), 0); idx >= 0 {
		return fmt.Errorf("wire: string has null byte at %d: %w", idx, protocol.ErrMalformedArgument)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("wire: string is not utf-8: %w", protocol.ErrMalformedArgument)
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return nil
}
