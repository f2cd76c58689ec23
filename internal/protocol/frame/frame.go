// Package frame encodes and decodes single command frames:
//
//	[project u8][class u8][command u16 LE][args...]
//
// Argument layout comes from the command table; nothing in the frame itself
// describes its arguments.
package frame

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/wire"
)

// ReadHeader parses the command id at offset without consulting a table.
func ReadHeader(buf []byte, offset int) (protocol.CommandID, error) {
	r := wire.NewReader(buf, offset, false)
	return readHeader(r)
}

func readHeader(r *wire.Reader) (protocol.CommandID, error) {
	start := r.Pos()
	if start < 0 || r.Remaining() < protocol.HeaderSize {
		return protocol.CommandID{}, &protocol.DecodeError{
			Kind:   protocol.KindTruncatedFrame,
			Offset: start,
			Reason: fmt.Sprintf("header needs %d bytes, have %d", protocol.HeaderSize, max(r.Remaining(), 0)),
		}
	}
	project, _ := r.U8()
	class, _ := r.U8()
	command, _ := r.U16()
	return protocol.CommandID{Project: project, Class: class, Command: command}, nil
}

// Decode reads one frame starting at offset and returns the command and the
// number of bytes it occupied. buf is treated as a stream prefix: running out
// of bytes anywhere, including inside a string, is a truncation.
func Decode(t *schema.Table, buf []byte, offset int) (*protocol.Command, int, error) {
	r := wire.NewReader(buf, offset, false)
	cmd, err := decode(t, r)
	if err != nil {
		return nil, 0, err
	}
	return cmd, r.Pos() - offset, nil
}

// DecodePayload decodes a buffer known to hold exactly one frame. A string
// without terminator is malformed here. Bytes left after the declared
// arguments are ignored.
func DecodePayload(t *schema.Table, payload []byte) (*protocol.Command, error) {
	r := wire.NewReader(payload, 0, true)
	cmd, err := decode(t, r)
	if err != nil {
		return nil, err
	}
	if rest := r.Remaining(); rest > 0 {
		log.Debug().
			Str("command", cmd.Name()).
			Int("trailing", rest).
			Msg("frame.DecodePayload ignoring trailing bytes")
	}
	return cmd, nil
}

func decode(t *schema.Table, r *wire.Reader) (*protocol.Command, error) {
	id, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	spec, ok := t.Lookup(id)
	if !ok {
		return nil, &protocol.DecodeError{
			Kind:   protocol.KindUnknownCommand,
			ID:     id,
			Offset: r.Pos(),
			Reason: "not in command table",
		}
	}
	args, err := wire.ReadArgs(r, spec.Args)
	if err != nil {
		derr := &protocol.DecodeError{
			Kind:   protocol.KindOf(err),
			ID:     id,
			Offset: r.Pos(),
			Reason: err.Error(),
		}
		var argErr *wire.ArgError
		if errors.As(err, &argErr) {
			derr.Arg = argErr.Arg
			derr.Offset = argErr.Offset
		}
		if derr.Kind == protocol.KindNone {
			derr.Kind = protocol.KindMalformedArgument
		}
		return nil, derr
	}
	return &protocol.Command{ID: id, Spec: spec, Args: args}, nil
}

// Encode returns the wire bytes of cmd.
func Encode(cmd *protocol.Command) ([]byte, error) {
	size := protocol.HeaderSize
	if cmd != nil && cmd.Spec != nil {
		size = cmd.Spec.MinSize()
	}
	return Append(make([]byte, 0, size), cmd)
}

// Append encodes cmd onto dst. dst is returned unchanged on error.
func Append(dst []byte, cmd *protocol.Command) ([]byte, error) {
	if cmd == nil {
		return dst, protocol.MismatchError{Reason: "nil command"}
	}
	if err := cmd.Validate(); err != nil {
		return dst, err
	}
	w := wire.NewWriter(dst)
	w.PutU8(cmd.ID.Project)
	w.PutU8(cmd.ID.Class)
	w.PutU16(cmd.ID.Command)
	if err := wire.AppendArgs(w, cmd.Spec.Args, cmd.Args); err != nil {
		// Validate already covered ranges; only string content can fail here.
		return dst, fmt.Errorf("frame: encode %s: %w", cmd.Name(), err)
	}
	return w.Bytes(), nil
}

// Build resolves id and checks args against its spec.
func Build(t *schema.Table, id protocol.CommandID, args ...protocol.Value) (*protocol.Command, error) {
	spec, ok := t.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("frame: build %s: %w", id, protocol.ErrUnknownCommand)
	}
	cmd := &protocol.Command{ID: id, Spec: spec, Args: make([]protocol.Value, len(args))}
	copy(cmd.Args, args)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// BuildByName is Build keyed by project, class and command names.
func BuildByName(t *schema.Table, project, class, command string, args ...protocol.Value) (*protocol.Command, error) {
	id, ok := t.LookupByName(project, class, command)
	if !ok {
		return nil, fmt.Errorf("frame: build %s.%s.%s: %w", project, class, command, protocol.ErrUnknownCommand)
	}
	return Build(t, id, args...)
}

// BuildFromText resolves a dotted project.class.command name and parses
// positional text arguments against its spec.
func BuildFromText(t *schema.Table, name string, raw []string) (*protocol.Command, error) {
	id, ok := t.LookupFullName(name)
	if !ok {
		return nil, fmt.Errorf("frame: build %s: %w", name, protocol.ErrUnknownCommand)
	}
	spec, _ := t.Lookup(id)
	if len(raw) != len(spec.Args) {
		return nil, protocol.MismatchError{ID: id, Reason: fmt.Sprintf("got %d arguments, want %d", len(raw), len(spec.Args))}
	}
	args := make([]protocol.Value, len(raw))
	for i, a := range spec.Args {
		v, err := protocol.ParseValue(a, raw[i])
		if err != nil {
			return nil, protocol.MismatchError{ID: id, Arg: a.Name, Reason: err.Error()}
		}
		args[i] = v
	}
	return Build(t, id, args...)
}
