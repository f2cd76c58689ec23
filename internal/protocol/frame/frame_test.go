package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/testutil/testlog"
)

var magnetoFrame = []byte{0x02, 0x05, 0x03, 0x00, 0x01, 0x7f, 0x80, 0xff}

func TestDecodeMagnetoAxisState(t *testing.T) {
	testlog.Start(t)
	cmd, n, err := Decode(schema.Default(), magnetoFrame, 0)
	require.NoError(t, err)
	assert.Equal(t, len(magnetoFrame), n)
	assert.Equal(t, protocol.CommandID{Project: 2, Class: 5, Command: 3}, cmd.ID)
	assert.Equal(t, []protocol.Value{
		protocol.NewU8(1), protocol.NewU8(127), protocol.NewU8(128), protocol.NewU8(255),
	}, cmd.Args)

	y, ok := cmd.Arg("y")
	require.True(t, ok)
	assert.Equal(t, uint8(128), y.U8())

	out, err := Encode(cmd)
	require.NoError(t, err)
	if !bytes.Equal(out, magnetoFrame) {
		t.Fatalf("re-encode mismatch: got=% x want=% x", out, magnetoFrame)
	}
}

func TestDecodeUnknownCommandReportsHeaderOffset(t *testing.T) {
	testlog.Start(t)
	buf := []byte{0xaa, 0xbb, 0x09, 0x09, 0x09, 0x00, 0x01, 0x02, 0x03}
	_, _, err := Decode(schema.Default(), buf, 2)
	if !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	var derr *protocol.DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, protocol.CommandID{Project: 9, Class: 9, Command: 9}, derr.ID)
	assert.Equal(t, 6, derr.Offset)
	assert.Equal(t, protocol.KindUnknownCommand, protocol.KindOf(err))
}

func TestDecodeStrictPrefixIsTruncated(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	for _, s := range tbl.Specs() {
		cmd, err := Build(tbl, s.ID, sampleArgs(t, s)...)
		require.NoError(t, err, s.FullName())
		full, err := Encode(cmd)
		require.NoError(t, err, s.FullName())
		for cut := 0; cut < len(full); cut++ {
			got, n, err := Decode(tbl, full[:cut], 0)
			if !errors.Is(err, protocol.ErrTruncatedFrame) {
				t.Fatalf("%s prefix %d/%d: expected truncated, got cmd=%v n=%d err=%v",
					s.FullName(), cut, len(full), got, n, err)
			}
			assert.Nil(t, got)
		}
	}
}

func TestRoundTripEveryDefaultSpec(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	for _, s := range tbl.Specs() {
		cmd, err := Build(tbl, s.ID, sampleArgs(t, s)...)
		require.NoError(t, err, s.FullName())
		enc, err := Encode(cmd)
		require.NoError(t, err, s.FullName())

		got, n, err := Decode(tbl, enc, 0)
		require.NoError(t, err, s.FullName())
		assert.Equal(t, len(enc), n, s.FullName())
		assert.Equal(t, cmd, got, s.FullName())

		bounded, err := DecodePayload(tbl, enc)
		require.NoError(t, err, s.FullName())
		assert.Equal(t, cmd, bounded, s.FullName())
	}
}

func TestDecodeConsecutiveFrames(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	battery, err := BuildByName(tbl, "common", "CommonState", "BatteryStateChanged", protocol.NewU8(87))
	require.NoError(t, err)
	stream, err := Encode(battery)
	require.NoError(t, err)
	stream = append(stream, magnetoFrame...)

	first, n, err := Decode(tbl, stream, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(87), first.Args[0].U8())

	second, m, err := Decode(tbl, stream, n)
	require.NoError(t, err)
	assert.Equal(t, "minidrone.SensorsState.MagnetoAxisStateChanged", second.Name())
	assert.Equal(t, len(stream), n+m)
}

func TestDecodePayloadMissingTerminatorIsMalformed(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	payload := []byte{0x00, 0x05, 0x04, 0x00, '2', '0', '2', '6'}

	_, err := DecodePayload(tbl, payload)
	require.ErrorIs(t, err, protocol.ErrMalformedArgument)
	var derr *protocol.DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "date", derr.Arg)
	assert.Equal(t, 4, derr.Offset)

	_, _, err = Decode(tbl, payload, 0)
	require.ErrorIs(t, err, protocol.ErrTruncatedFrame)
}

func TestDecodePayloadToleratesTrailingBytes(t *testing.T) {
	testlog.Start(t)
	payload := append(append([]byte(nil), magnetoFrame...), 0xde, 0xad)
	cmd, err := DecodePayload(schema.Default(), payload)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), cmd.Args[3].U8())
}

func TestDecodeInvalidUTF8IsMalformed(t *testing.T) {
	testlog.Start(t)
	payload := []byte{0x00, 0x05, 0x04, 0x00, 0xff, 0xfe, 0x00}
	_, _, err := Decode(schema.Default(), payload, 0)
	require.ErrorIs(t, err, protocol.ErrMalformedArgument)
}

func TestUnknownEnumDecodesToSentinel(t *testing.T) {
	testlog.Start(t)
	// ardrone3.MediaRecordState.VideoStateChangedV2 state=99 error=camera_ko
	payload := []byte{0x01, 0x08, 0x03, 0x00, 99, 0, 0, 0, 2, 0, 0, 0}
	cmd, n, err := Decode(schema.Default(), payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, int32(-1), cmd.Args[0].Enum())
	assert.Equal(t, int32(2), cmd.Args[1].Enum())
	assert.Equal(t, "ardrone3.MediaRecordState.VideoStateChangedV2{state=unknown, error=camera_ko}", cmd.String())
}

func TestEmptyListEntryDecodesDefaults(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	payload := []byte{0x00, 0x05, 0x0a, 0x00, byte(protocol.ListEmpty), 'F', 'R', 0x00}
	cmd, n, err := Decode(tbl, payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	flags, ok := cmd.ListFlags()
	require.True(t, ok)
	assert.True(t, flags.First() && flags.Last() && flags.Empty())
	assert.Equal(t, "", cmd.Args[1].Text())
}

func TestEmptyListEntryMustCarryDefaults(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	id := protocol.CommandID{Project: 0, Class: 5, Command: 10}

	_, err := Build(tbl, id, protocol.NewListFlags(protocol.ListEmpty), protocol.NewString("FR"))
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)
	var mismatch protocol.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "countryCodes", mismatch.Arg)

	cmd, err := Build(tbl, id, protocol.NewListFlags(protocol.ListEmpty), protocol.NewString(""))
	require.NoError(t, err)
	raw, err := Encode(cmd)
	require.NoError(t, err)
	back, err := DecodePayload(tbl, raw)
	require.NoError(t, err)
	assert.Equal(t, cmd.Args, back.Args)
}

func TestEncodeRejectsMismatch(t *testing.T) {
	testlog.Start(t)
	tbl := schema.Default()
	id := protocol.CommandID{Project: 2, Class: 5, Command: 3}

	_, err := Build(tbl, id, protocol.NewU8(1))
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)

	_, err = Build(tbl, id, protocol.NewU8(1), protocol.NewU8(2), protocol.NewU8(3), protocol.NewI8(4))
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)

	_, err = BuildByName(tbl, "minidrone", "SensorsState", "Nope")
	require.ErrorIs(t, err, protocol.ErrUnknownCommand)

	spec, _ := tbl.Lookup(id)
	dst := []byte{0xee}
	out, err := Append(dst, &protocol.Command{ID: id, Spec: spec})
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)
	assert.Equal(t, []byte{0xee}, out)

	_, err = Encode(nil)
	require.ErrorIs(t, err, protocol.ErrArgumentMismatch)
}

func TestEncodeRejectsNullInString(t *testing.T) {
	testlog.Start(t)
	cmd, err := BuildByName(schema.Default(), "common", "Settings", "ProductName", protocol.NewString("a\x00b"))
	require.NoError(t, err)
	_, err = Encode(cmd)
	require.ErrorIs(t, err, protocol.ErrMalformedArgument)
}

func TestReadHeader(t *testing.T) {
	testlog.Start(t)
	id, err := ReadHeader(magnetoFrame, 0)
	require.NoError(t, err)
	assert.Equal(t, "2.5.3", id.String())

	_, err = ReadHeader(magnetoFrame[:3], 0)
	require.ErrorIs(t, err, protocol.ErrTruncatedFrame)
	_, err = ReadHeader(magnetoFrame, -1)
	require.ErrorIs(t, err, protocol.ErrTruncatedFrame)
}

// sampleArgs fills every argument with a non-default in-range value.
func sampleArgs(t *testing.T, s *protocol.CommandSpec) []protocol.Value {
	t.Helper()
	out := make([]protocol.Value, len(s.Args))
	for i, a := range s.Args {
		switch a.Type {
		case protocol.TypeI8:
			out[i] = protocol.NewI8(-12)
		case protocol.TypeU8:
			out[i] = protocol.NewU8(200)
		case protocol.TypeI16:
			out[i] = protocol.NewI16(-300)
		case protocol.TypeU16:
			out[i] = protocol.NewU16(60000)
		case protocol.TypeI32:
			out[i] = protocol.NewI32(-70000)
		case protocol.TypeU32:
			out[i] = protocol.NewU32(4000000000)
		case protocol.TypeI64:
			out[i] = protocol.NewI64(-1 << 40)
		case protocol.TypeU64:
			out[i] = protocol.NewU64(1 << 63)
		case protocol.TypeFloat:
			out[i] = protocol.NewFloat(3.25)
		case protocol.TypeDouble:
			out[i] = protocol.NewDouble(48.8789)
		case protocol.TypeString:
			out[i] = protocol.NewString("héllo")
		case protocol.TypeEnum:
			out[i] = protocol.NewEnumValue(a.Enum.Values[len(a.Enum.Values)-1].Value)
		case protocol.TypeListFlags:
			out[i] = protocol.NewListFlags(protocol.ListFirst | protocol.ListLast)
		default:
			t.Fatalf("%s: unexpected type %s", s.FullName(), a.Type)
		}
	}
	return out
}
