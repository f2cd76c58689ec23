package wire

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

var band = protocol.DefineEnum("band", -1,
	protocol.EnumValue{Name: "unknown", Value: -1},
	protocol.EnumValue{Name: "2_4ghz", Value: 0},
	protocol.EnumValue{Name: "5ghz", Value: 1},
)

func TestFixedWidthLittleEndian(t *testing.T) {
	w := NewWriter(nil)
	w.PutU16(0x0102)
	w.PutI32(-2)
	w.PutU64(0x0807060504030201)
	w.PutF32(1.5)
	w.PutF64(-0.25)

	want := []byte{
		0x02, 0x01,
		0xfe, 0xff, 0xff, 0xff,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x00, 0x00, 0xc0, 0x3f,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xd0, 0xbf,
	}
	require.Equal(t, want, w.Bytes())

	r := NewReader(w.Bytes(), 0, true)
	u16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)
	i32, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)
	u64, err := r.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), u64)
	f32, err := r.F32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)
	f64, err := r.F64()
	require.NoError(t, err)
	assert.Equal(t, -0.25, f64)
	assert.Zero(t, r.Remaining())
}

func TestShortReadIsTruncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03}, 0, true)
	_, err := r.U32()
	require.ErrorIs(t, err, protocol.ErrTruncatedFrame)
	assert.Equal(t, 0, r.Pos(), "failed read must not advance the cursor")
}

func TestStringTerminator(t *testing.T) {
	r := NewReader([]byte("abc\x00def\x00"), 0, true)
	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.Equal(t, 4, r.Pos())

	bounded := NewReader([]byte("abc"), 0, true)
	_, err = bounded.String()
	require.ErrorIs(t, err, protocol.ErrMalformedArgument)

	stream := NewReader([]byte("abc"), 0, false)
	_, err = stream.String()
	require.ErrorIs(t, err, protocol.ErrTruncatedFrame)

	invalid := NewReader([]byte{0xff, 0xfe, 0x00}, 0, false)
	_, err = invalid.String()
	require.ErrorIs(t, err, protocol.ErrMalformedArgument)
}

func TestPutStringRejectsNull(t *testing.T) {
	w := NewWriter(nil)
	require.ErrorIs(t, w.PutString("a\x00b"), protocol.ErrMalformedArgument)
	require.NoError(t, w.PutString(""))
	assert.Equal(t, []byte{0}, w.Bytes())
}

func TestUnknownEnumResolvesToSentinelAndKeepsAlignment(t *testing.T) {
	specs := []protocol.ArgumentSpec{
		{Name: "band", Type: protocol.TypeEnum, Enum: band},
		{Name: "channel", Type: protocol.TypeU8},
	}
	w := NewWriter(nil)
	w.PutI32(77)
	w.PutU8(36)

	vals, err := ReadArgs(NewReader(w.Bytes(), 0, true), specs)
	require.NoError(t, err)
	assert.Equal(t, protocol.NewEnumValue(-1), vals[0])
	assert.Equal(t, protocol.NewU8(36), vals[1])
}

func TestEmptyListEntryConsumesFullPayload(t *testing.T) {
	specs := []protocol.ArgumentSpec{
		{Name: "list_flags", Type: protocol.TypeListFlags},
		{Name: "ssid", Type: protocol.TypeString},
		{Name: "rssi", Type: protocol.TypeI16},
	}
	w := NewWriter(nil)
	w.PutU8(uint8(protocol.ListEmpty))
	require.NoError(t, w.PutString("stale"))
	w.PutI16(-40)
	w.PutU8(0xaa)

	r := NewReader(w.Bytes(), 0, true)
	vals, err := ReadArgs(r, specs)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Value{
		protocol.NewListFlags(protocol.ListEmpty),
		protocol.Zero(protocol.TypeString),
		protocol.Zero(protocol.TypeI16),
	}, vals)
	assert.Equal(t, 1+6+2, r.Pos())
}

func TestReadArgsReportsArgument(t *testing.T) {
	specs := []protocol.ArgumentSpec{
		{Name: "a", Type: protocol.TypeU8},
		{Name: "b", Type: protocol.TypeU32},
	}
	_, err := ReadArgs(NewReader([]byte{1, 2}, 0, true), specs)
	var argErr *ArgError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "b", argErr.Arg)
	assert.Equal(t, 1, argErr.Offset)
	assert.ErrorIs(t, err, protocol.ErrTruncatedFrame)
}

func TestAppendArgsRejectsMismatch(t *testing.T) {
	specs := []protocol.ArgumentSpec{{Name: "a", Type: protocol.TypeI8}}

	err := AppendArgs(NewWriter(nil), specs, []protocol.Value{{Type: protocol.TypeI8, Int: math.MaxInt16}})
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)

	err = AppendArgs(NewWriter(nil), specs, nil)
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)

	err = AppendArgs(NewWriter(nil), []protocol.ArgumentSpec{{Name: "band", Type: protocol.TypeEnum, Enum: band}},
		[]protocol.Value{protocol.NewEnumValue(9)})
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)
}
