package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
)

// Hooks observe the decode and dispatch path. Nil fields are skipped.
type Hooks struct {
	OnDecoded         func(cmd *protocol.Command)
	OnDecodeError     func(err error)
	OnDispatched      func(cmd *protocol.Command, listeners int, elapsed time.Duration)
	OnListenerFailure func(cmd *protocol.Command, err *protocol.ListenerError)
}

// Dispatcher routes decoded commands to the registry's listeners.
type Dispatcher struct {
	table    *schema.Table
	registry *Registry
	hooks    Hooks
	logger   zerolog.Logger
}

type Option func(*Dispatcher)

func WithHooks(h Hooks) Option {
	return func(d *Dispatcher) { d.hooks = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(table *schema.Table, registry *Registry, opts ...Option) *Dispatcher {
	if table == nil {
		table = schema.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	d := &Dispatcher{table: table, registry: registry, logger: log.Logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Table() *schema.Table { return d.table }
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch delivers cmd to a snapshot of its listeners in registration order.
// Listeners receive copies; cmd itself is never handed out. Listener errors
// and panics are logged and do not stop delivery. The only
// returned error is a command that does not satisfy its own spec.
func (d *Dispatcher) Dispatch(cmd *protocol.Command) error {
	if cmd == nil {
		return protocol.MismatchError{Reason: "nil command"}
	}
	if err := cmd.Validate(); err != nil {
		d.logger.Warn().Err(err).Str("command", cmd.ID.String()).Msg("dispatch.Dispatch rejected command")
		return err
	}
	listeners := d.registry.Snapshot(cmd.ID)
	if len(listeners) == 0 {
		return nil
	}
	start := time.Now()
	for i, l := range listeners {
		// Each listener gets its own args so writes cannot leak to siblings.
		if err := invoke(l, cmd.Clone()); err != nil {
			lerr := &protocol.ListenerError{ID: cmd.ID, Index: i, Err: err}
			d.logger.Error().
				Err(err).
				Str("command", cmd.Name()).
				Int("listener", i).
				Str("kind", protocol.KindListenerFailure.String()).
				Msg("dispatch.Dispatch listener failed")
			if d.hooks.OnListenerFailure != nil {
				d.hooks.OnListenerFailure(cmd, lerr)
			}
		}
	}
	if d.hooks.OnDispatched != nil {
		d.hooks.OnDispatched(cmd, len(listeners), time.Since(start))
	}
	return nil
}

func invoke(l Listener, cmd *protocol.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.OnCommand(cmd)
}

// DispatchPayload decodes one bounded frame and dispatches it.
func (d *Dispatcher) DispatchPayload(payload []byte) error {
	cmd, err := frame.DecodePayload(d.table, payload)
	if err != nil {
		d.decodeFailed(err)
		return err
	}
	d.decoded(cmd)
	return d.Dispatch(cmd)
}

// Feed decodes and dispatches consecutive frames from buf. It returns the
// number of bytes fully handled. A truncated tail is not an error: the caller
// keeps buf[n:] and feeds again once more bytes arrive. Any other decode
// error stops the loop with n at the start of the offending frame.
func (d *Dispatcher) Feed(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		cmd, used, err := frame.Decode(d.table, buf, n)
		if errors.Is(err, protocol.ErrTruncatedFrame) {
			return n, nil
		}
		if err != nil {
			d.decodeFailed(err)
			return n, err
		}
		n += used
		d.decoded(cmd)
		if err := d.Dispatch(cmd); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (d *Dispatcher) decoded(cmd *protocol.Command) {
	d.logger.Debug().Str("command", cmd.Name()).Msg("dispatch decoded")
	if d.hooks.OnDecoded != nil {
		d.hooks.OnDecoded(cmd)
	}
}

func (d *Dispatcher) decodeFailed(err error) {
	ev := d.logger.Warn()
	var derr *protocol.DecodeError
	if errors.As(err, &derr) {
		ev = ev.Str("command", derr.ID.String()).Int("offset", derr.Offset).Str("kind", derr.Kind.String())
	}
	ev.Err(err).Msg("dispatch dropped frame")
	if d.hooks.OnDecodeError != nil {
		d.hooks.OnDecodeError(err)
	}
}
