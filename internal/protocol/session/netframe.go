package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// NetHeaderSize is the network frame header: type, buffer, seq, size (u32 LE).
// size counts the header itself.
const NetHeaderSize = 7

// FrameType is the delivery class of a network frame.
type FrameType uint8

const (
	FrameAck            FrameType = 1
	FrameData           FrameType = 2
	FrameLowLatencyData FrameType = 3
	FrameDataWithAck    FrameType = 4
)

func (t FrameType) String() string {
	switch t {
	case FrameAck:
		return "ack"
	case FrameData:
		return "data"
	case FrameLowLatencyData:
		return "low_latency_data"
	case FrameDataWithAck:
		return "data_with_ack"
	default:
		return fmt.Sprintf("frame_type(%d)", uint8(t))
	}
}

func (t FrameType) Valid() bool {
	return t >= FrameAck && t <= FrameDataWithAck
}

// Reserved buffers.
const (
	BufferPing    uint8 = 0
	BufferPong    uint8 = 1
	ackBufferBase uint8 = 128
)

// AckBuffer returns the buffer acknowledgements for id travel on.
func AckBuffer(id uint8) uint8 {
	return id + ackBufferBase
}

// IsAckBuffer reports whether id is an acknowledgement buffer and returns the
// data buffer it acknowledges.
func IsAckBuffer(id uint8) (uint8, bool) {
	if id < ackBufferBase {
		return 0, false
	}
	return id - ackBufferBase, true
}

var (
	ErrShortHeader      = errors.New("session: short network header")
	ErrSizeTooSmall     = errors.New("session: frame size smaller than header")
	ErrPayloadTooLarge  = errors.New("session: payload too large")
	ErrUnknownFrameType = errors.New("session: unknown frame type")
	errIncomplete       = errors.New("session: incomplete frame")
)

// Frame is one network frame.
type Frame struct {
	Type    FrameType
	Buffer  uint8
	Seq     uint8
	Payload []byte
}

// Limits constrains network frame memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 64 * 1024}
}

func (f Frame) Size() int {
	return NetHeaderSize + len(f.Payload)
}

// AppendFrame encodes f onto dst.
func AppendFrame(dst []byte, f Frame, limits Limits) ([]byte, error) {
	if !f.Type.Valid() {
		return dst, fmt.Errorf("%w: %d", ErrUnknownFrameType, uint8(f.Type))
	}
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return dst, ErrPayloadTooLarge
	}
	dst = append(dst, uint8(f.Type), f.Buffer, f.Seq)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(f.Size()))
	return append(dst, f.Payload...), nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	buf, err := AppendFrame(make([]byte, 0, f.Size()), f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// DecodeFrame parses one frame from the front of b and returns the bytes it
// used. The payload aliases b.
func DecodeFrame(b []byte, limits Limits) (Frame, int, error) {
	if len(b) < NetHeaderSize {
		return Frame{}, 0, errIncomplete
	}
	f := Frame{Type: FrameType(b[0]), Buffer: b[1], Seq: b[2]}
	size := binary.LittleEndian.Uint32(b[3:7])
	if size < NetHeaderSize {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrSizeTooSmall, size)
	}
	if size-NetHeaderSize > limits.MaxPayloadBytes {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrPayloadTooLarge, size-NetHeaderSize)
	}
	if !f.Type.Valid() {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrUnknownFrameType, b[0])
	}
	if uint64(len(b)) < uint64(size) {
		return Frame{}, 0, errIncomplete
	}
	f.Payload = b[NetHeaderSize:size]
	return f, int(size), nil
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var hdr [NetHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	size := binary.LittleEndian.Uint32(hdr[3:7])
	if size < NetHeaderSize {
		return Frame{}, fmt.Errorf("%w: %d", ErrSizeTooSmall, size)
	}
	if size-NetHeaderSize > limits.MaxPayloadBytes {
		return Frame{}, fmt.Errorf("%w: %d", ErrPayloadTooLarge, size-NetHeaderSize)
	}
	f := Frame{Type: FrameType(hdr[0]), Buffer: hdr[1], Seq: hdr[2]}
	if !f.Type.Valid() {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownFrameType, hdr[0])
	}
	f.Payload = make([]byte, size-NetHeaderSize)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Stream reassembles network frames from arbitrarily split reads.
type Stream struct {
	limits Limits
	buf    []byte
}

func NewStream(limits Limits) *Stream {
	return &Stream{limits: limits}
}

// Write buffers p. It never fails.
func (s *Stream) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame. ok is false when more bytes are
// needed. A header error poisons the stream: the caller has lost framing and
// should Reset or drop the link.
func (s *Stream) Next() (Frame, bool, error) {
	f, n, err := DecodeFrame(s.buf, s.limits)
	if errors.Is(err, errIncomplete) {
		return Frame{}, false, nil
	}
	if err != nil {
		return Frame{}, false, err
	}
	payload := make([]byte, len(f.Payload))
	copy(payload, f.Payload)
	f.Payload = payload
	s.buf = s.buf[n:]
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return f, true, nil
}

// Buffered is the number of bytes waiting for a complete frame.
func (s *Stream) Buffered() int {
	return len(s.buf)
}

func (s *Stream) Reset() {
	s.buf = nil
}
