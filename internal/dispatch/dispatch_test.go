package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/testutil/testlog"
)

var (
	magnetoID  = protocol.CommandID{Project: 2, Class: 5, Command: 3}
	quatID     = protocol.CommandID{Project: 2, Class: 5, Command: 0}
	batteryID  = protocol.CommandID{Project: 0, Class: 5, Command: 1}
	magnetoRaw = []byte{0x02, 0x05, 0x03, 0x00, 0x01, 0x7f, 0x80, 0xff}
)

func magneto(t *testing.T) *protocol.Command {
	t.Helper()
	cmd, err := frame.Build(schema.Default(), magnetoID,
		protocol.NewU8(1), protocol.NewU8(127), protocol.NewU8(128), protocol.NewU8(255))
	require.NoError(t, err)
	return cmd
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) listener(name string, fail error) Listener {
	return ListenerFunc(func(cmd *protocol.Command) error {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return fail
	})
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestDispatchOrderSurvivesFailingListener(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	var failures []*protocol.ListenerError
	d := NewDispatcher(schema.Default(), reg, WithHooks(Hooks{
		OnListenerFailure: func(_ *protocol.Command, err *protocol.ListenerError) {
			failures = append(failures, err)
		},
	}))

	reg.Register(magnetoID, rec.listener("L1", nil))
	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		rec.listener("L2", nil).OnCommand(cmd)
		panic("boom")
	}))
	reg.Register(magnetoID, rec.listener("L3", nil))
	reg.Register(magnetoID, rec.listener("L4", errors.New("nope")))
	reg.Register(magnetoID, rec.listener("L5", nil))

	require.NoError(t, d.Dispatch(magneto(t)))
	assert.Equal(t, []string{"L1", "L2", "L3", "L4", "L5"}, rec.got())

	require.Len(t, failures, 2)
	assert.Equal(t, 1, failures[0].Index)
	assert.ErrorIs(t, failures[0], protocol.ErrListenerFailure)
	assert.Contains(t, failures[0].Error(), "boom")
	assert.Equal(t, 3, failures[1].Index)
	assert.Equal(t, 5, reg.Len())
}

func TestListenerWritesDoNotReachSiblings(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	d := NewDispatcher(schema.Default(), reg)

	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		cmd.Args[1] = protocol.NewU8(0)
		panic("after write")
	}))
	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		cmd.Args[2] = protocol.NewU8(0)
		return errors.New("after write")
	}))
	var seen []uint8
	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		seen = []uint8{cmd.Args[0].U8(), cmd.Args[1].U8(), cmd.Args[2].U8(), cmd.Args[3].U8()}
		return nil
	}))

	cmd := magneto(t)
	require.NoError(t, d.Dispatch(cmd))
	assert.Equal(t, []uint8{1, 127, 128, 255}, seen)
	assert.Equal(t, uint8(127), cmd.Args[1].U8(), "dispatched command is untouched")
	assert.Equal(t, uint8(128), cmd.Args[2].U8())
}

func TestDispatchWithoutListenersIsNoop(t *testing.T) {
	testlog.Start(t)
	called := false
	d := NewDispatcher(nil, nil, WithHooks(Hooks{
		OnDispatched: func(*protocol.Command, int, time.Duration) { called = true },
	}))
	require.NoError(t, d.Dispatch(magneto(t)))
	assert.False(t, called)
}

func TestDispatchRejectsInvalidCommand(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	reg.Register(magnetoID, rec.listener("L1", nil))
	d := NewDispatcher(schema.Default(), reg)

	cmd := magneto(t)
	cmd.Args = cmd.Args[:2]
	require.ErrorIs(t, d.Dispatch(cmd), protocol.ErrArgumentMismatch)
	require.ErrorIs(t, d.Dispatch(nil), protocol.ErrArgumentMismatch)
	assert.Empty(t, rec.got())
}

func TestClassListenersRunAfterExact(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	d := NewDispatcher(schema.Default(), reg)

	reg.RegisterClass(2, 5, rec.listener("class", nil))
	reg.Register(magnetoID, rec.listener("exact", nil))
	reg.Register(batteryID, rec.listener("battery", nil))

	require.NoError(t, d.Dispatch(magneto(t)))
	quat, err := frame.Build(schema.Default(), quatID,
		protocol.NewFloat(1), protocol.NewFloat(0), protocol.NewFloat(0), protocol.NewFloat(0))
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(quat))

	assert.Equal(t, []string{"exact", "class", "class"}, rec.got())
}

func TestUnregister(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	d := NewDispatcher(schema.Default(), reg)

	a := reg.Register(magnetoID, rec.listener("A", nil))
	b := reg.Register(magnetoID, rec.listener("B", nil))
	c := reg.RegisterClass(2, 5, rec.listener("C", nil))
	require.Equal(t, 3, reg.Len())

	assert.True(t, reg.Unregister(a))
	assert.False(t, reg.Unregister(a))
	assert.True(t, reg.Unregister(c))
	require.NoError(t, d.Dispatch(magneto(t)))
	assert.Equal(t, []string{"B"}, rec.got())

	assert.True(t, reg.Unregister(b))
	assert.Zero(t, reg.Len())
	assert.Nil(t, reg.Snapshot(magnetoID))
	assert.False(t, reg.Unregister(Token(999)))
}

func TestUnregisterDuringDispatchKeepsSnapshot(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	d := NewDispatcher(schema.Default(), reg)

	var victim Token
	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		rec.listener("first", nil).OnCommand(cmd)
		reg.Unregister(victim)
		return nil
	}))
	victim = reg.Register(magnetoID, rec.listener("victim", nil))

	require.NoError(t, d.Dispatch(magneto(t)))
	require.NoError(t, d.Dispatch(magneto(t)))
	assert.Equal(t, []string{"first", "victim", "first"}, rec.got())
}

func TestRegisterDuringDispatchNotVisibleUntilNext(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	d := NewDispatcher(schema.Default(), reg)

	var once sync.Once
	reg.Register(magnetoID, ListenerFunc(func(cmd *protocol.Command) error {
		rec.listener("first", nil).OnCommand(cmd)
		once.Do(func() { reg.Register(magnetoID, rec.listener("late", nil)) })
		return nil
	}))

	require.NoError(t, d.Dispatch(magneto(t)))
	require.NoError(t, d.Dispatch(magneto(t)))
	assert.Equal(t, []string{"first", "first", "late"}, rec.got())
}

func TestConcurrentRegistryAndDispatch(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	d := NewDispatcher(schema.Default(), reg)
	var delivered atomic.Int64
	cmd := magneto(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tok := reg.Register(magnetoID, ListenerFunc(func(*protocol.Command) error {
					delivered.Add(1)
					return nil
				}))
				reg.Unregister(tok)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := d.Dispatch(cmd); err != nil {
					t.Errorf("dispatch: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, reg.Len())
	assert.Nil(t, reg.Snapshot(magnetoID))
}

func TestFeedStopsAtTruncatedTail(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	var seen []string
	reg.RegisterClass(2, 5, ListenerFunc(func(cmd *protocol.Command) error {
		seen = append(seen, cmd.String())
		return nil
	}))
	var decoded int
	d := NewDispatcher(schema.Default(), reg, WithHooks(Hooks{
		OnDecoded: func(*protocol.Command) { decoded++ },
	}))

	stream := append(append([]byte(nil), magnetoRaw...), magnetoRaw[:5]...)
	n, err := d.Feed(stream)
	require.NoError(t, err)
	assert.Equal(t, len(magnetoRaw), n)
	assert.Equal(t, 1, decoded)

	rest := append(stream[n:], magnetoRaw[5:]...)
	m, err := d.Feed(rest)
	require.NoError(t, err)
	assert.Equal(t, len(magnetoRaw), m)
	assert.Equal(t, []string{
		"minidrone.SensorsState.MagnetoAxisStateChanged{status=1, x=127, y=128, z=255}",
		"minidrone.SensorsState.MagnetoAxisStateChanged{status=1, x=127, y=128, z=255}",
	}, seen)
}

func TestFeedReportsUnknownCommand(t *testing.T) {
	testlog.Start(t)
	var decodeErrs []error
	d := NewDispatcher(schema.Default(), NewRegistry(), WithHooks(Hooks{
		OnDecodeError: func(err error) { decodeErrs = append(decodeErrs, err) },
	}))

	stream := append(append([]byte(nil), magnetoRaw...), 9, 9, 9, 0, 1, 2)
	n, err := d.Feed(stream)
	require.ErrorIs(t, err, protocol.ErrUnknownCommand)
	assert.Equal(t, len(magnetoRaw), n)
	require.Len(t, decodeErrs, 1)

	var derr *protocol.DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, len(magnetoRaw)+protocol.HeaderSize, derr.Offset)
}

func TestDispatchPayload(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	rec := &recorder{}
	reg.Register(magnetoID, rec.listener("L1", nil))
	d := NewDispatcher(schema.Default(), reg)

	require.NoError(t, d.DispatchPayload(magnetoRaw))
	require.ErrorIs(t, d.DispatchPayload([]byte{0, 5, 4, 0, 'x'}), protocol.ErrMalformedArgument)
	assert.Equal(t, []string{"L1"}, rec.got())
}
