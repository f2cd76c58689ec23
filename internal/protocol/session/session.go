package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
)

var ErrAckTimeout = errors.New("session: ack not received")

// Hooks observe link events. Nil fields are skipped.
type Hooks struct {
	// OnAck fires with "in" for a received ack matching a pending send and
	// "out" for every ack this side emits.
	OnAck          func(direction string)
	OnRetransmit   func(buffer uint8)
	OnFrameDropped func(reason string)
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Session drives one link: it reassembles network frames, acknowledges
// DataWithAck frames, answers pings and hands command payloads to the
// dispatcher. Sends may be issued from any goroutine.
type Session struct {
	cfg    Config
	conn   io.ReadWriter
	disp   *dispatch.Dispatcher
	hooks  Hooks
	logger zerolog.Logger
	outbox *AckOutbox
	jitter func() float64

	writeMu sync.Mutex
	seqMu   sync.Mutex
	seq     map[uint8]uint8

	// lastIn is only touched by the Run goroutine.
	lastIn map[uint8]uint8
}

type Option func(*Session)

func WithHooks(h Hooks) Option {
	return func(s *Session) { s.hooks = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithJitter sets the random source for backoff jitter.
func WithJitter(fn func() float64) Option {
	return func(s *Session) { s.jitter = fn }
}

func New(conn io.ReadWriter, d *dispatch.Dispatcher, cfg Config, opts ...Option) (*Session, error) {
	if conn == nil {
		return nil, errors.New("session: nil conn")
	}
	if d == nil {
		return nil, errors.New("session: nil dispatcher")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:    cfg,
		conn:   conn,
		disp:   d,
		logger: log.Logger,
		outbox: NewAckOutbox(),
		seq:    make(map[uint8]uint8),
		lastIn: make(map[uint8]uint8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) Outbox() *AckOutbox { return s.outbox }

// Run reads until ctx is cancelled, the peer closes the link or a read fails.
// When conn is an io.Closer, Run closes it on return.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if c, ok := s.conn.(io.Closer); ok {
		go func() {
			<-ctx.Done()
			_ = c.Close()
		}()
	}

	stream := NewStream(s.cfg.Limits)
	buf := make([]byte, s.readBufferSize())
	for {
		if dl, ok := s.conn.(readDeadliner); ok && s.cfg.ReadTimeout > 0 {
			_ = dl.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			_, _ = stream.Write(buf[:n])
			s.drain(stream)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info().Msg("session.Run peer closed link")
				return nil
			}
			return fmt.Errorf("session: read: %w", err)
		}
	}
}

// readBufferSize is ReadBufferSize, raised on datagram transports to hold
// the largest frame Limits allows: a short read there truncates the datagram.
func (s *Session) readBufferSize() int {
	n := s.cfg.ReadBufferSize
	if _, datagram := s.conn.(net.PacketConn); datagram {
		n = max(n, NetHeaderSize+int(s.cfg.Limits.MaxPayloadBytes))
	}
	return n
}

func (s *Session) drain(stream *Stream) {
	for {
		f, ok, err := stream.Next()
		if err != nil {
			s.logger.Warn().Err(err).Int("buffered", stream.Buffered()).Msg("session lost framing, resetting")
			stream.Reset()
			s.dropped("framing")
			return
		}
		if !ok {
			return
		}
		s.handle(f)
	}
}

func (s *Session) handle(f Frame) {
	switch f.Type {
	case FrameAck:
		data, ok := IsAckBuffer(f.Buffer)
		if !ok || len(f.Payload) < 1 {
			s.dropped("bad_ack")
			return
		}
		if s.outbox.Ack(data, f.Payload[0]) && s.hooks.OnAck != nil {
			s.hooks.OnAck("in")
		}
		return
	case FrameDataWithAck:
		if err := s.sendAck(f); err != nil {
			s.logger.Warn().Err(err).Uint8("buffer", f.Buffer).Uint8("seq", f.Seq).Msg("session ack write failed")
		}
		if last, seen := s.lastIn[f.Buffer]; seen && last == f.Seq {
			s.logger.Debug().Uint8("buffer", f.Buffer).Uint8("seq", f.Seq).Msg("session duplicate frame")
			s.dropped("duplicate")
			return
		}
		s.lastIn[f.Buffer] = f.Seq
	}

	switch f.Buffer {
	case BufferPing:
		pong := Frame{Type: FrameData, Buffer: BufferPong, Seq: s.nextSeq(BufferPong), Payload: f.Payload}
		if err := s.write(pong); err != nil {
			s.logger.Warn().Err(err).Msg("session pong write failed")
		}
		return
	case BufferPong:
		return
	}

	if err := s.disp.DispatchPayload(f.Payload); err != nil {
		s.dropped(protocol.KindOf(err).String())
	}
}

// Send encodes cmd and writes it. Acknowledged sends block until the peer
// acks, ctx ends or MaxAttempts transmissions went unanswered. Commands
// declared high priority or acknowledged always go acknowledged; reliable
// upgrades the rest.
func (s *Session) Send(ctx context.Context, cmd *protocol.Command, reliable bool) error {
	payload, err := frame.Encode(cmd)
	if err != nil {
		return err
	}
	buffer, typ := s.cfg.NonAckBuffer, FrameData
	switch {
	case cmd.Spec.Buffer == protocol.BufferHighPrio:
		buffer, typ = s.cfg.HighPrioBuffer, FrameDataWithAck
	case reliable || cmd.Spec.Buffer == protocol.BufferAck:
		buffer, typ = s.cfg.AckBuffer, FrameDataWithAck
	}
	f := Frame{Type: typ, Buffer: buffer, Seq: s.nextSeq(buffer), Payload: payload}
	if typ != FrameDataWithAck {
		return s.write(f)
	}
	return s.sendAcked(ctx, f, cmd.Name())
}

func (s *Session) sendAcked(ctx context.Context, f Frame, name string) error {
	done, err := s.outbox.Add(PendingFrame{Buffer: f.Buffer, Seq: f.Seq, Command: name, QueuedAt: time.Now()})
	if err != nil {
		s.logger.Warn().Err(err).Str("command", name).Msg("session send refused")
		return err
	}
	defer s.outbox.Remove(f.Buffer, f.Seq)

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.logger.Debug().Str("command", name).Uint8("seq", f.Seq).Int("attempt", attempt).Msg("session retransmit")
			if s.hooks.OnRetransmit != nil {
				s.hooks.OnRetransmit(f.Buffer)
			}
		}
		werr := s.write(f)
		lastErr := ""
		if werr != nil {
			lastErr = werr.Error()
		}
		s.outbox.MarkAttempt(f.Buffer, f.Seq, time.Now(), lastErr)
		if werr != nil {
			return werr
		}

		timer := time.NewTimer(s.cfg.Backoff.Delay(attempt, s.jitter))
		select {
		case <-done:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: %s buffer=%d seq=%d attempts=%d", ErrAckTimeout, name, f.Buffer, f.Seq, s.cfg.MaxAttempts)
}

func (s *Session) sendAck(f Frame) error {
	buffer := AckBuffer(f.Buffer)
	ack := Frame{Type: FrameAck, Buffer: buffer, Seq: s.nextSeq(buffer), Payload: []byte{f.Seq}}
	if err := s.write(ack); err != nil {
		return err
	}
	if s.hooks.OnAck != nil {
		s.hooks.OnAck("out")
	}
	return nil
}

func (s *Session) write(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if dl, ok := s.conn.(writeDeadliner); ok && s.cfg.WriteTimeout > 0 {
		_ = dl.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if err := WriteFrame(s.conn, f, s.cfg.Limits); err != nil {
		return fmt.Errorf("session: write %s buffer=%d: %w", f.Type, f.Buffer, err)
	}
	return nil
}

func (s *Session) nextSeq(buffer uint8) uint8 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.seq[buffer]
	s.seq[buffer] = seq + 1
	return seq
}

func (s *Session) dropped(reason string) {
	if s.hooks.OnFrameDropped != nil {
		s.hooks.OnFrameDropped(reason)
	}
}
