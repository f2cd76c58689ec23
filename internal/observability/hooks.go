package observability

import (
	"time"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/session"
)

// DispatchHooks feeds the codec metrics from a dispatcher. Extra hooks run
// after the metric update, in order.
func DispatchHooks(extra ...dispatch.Hooks) dispatch.Hooks {
	return dispatch.Hooks{
		OnDecoded: func(cmd *protocol.Command) {
			project, class := specLabels(cmd)
			RecordFrameDecoded(project, class)
			for _, h := range extra {
				if h.OnDecoded != nil {
					h.OnDecoded(cmd)
				}
			}
		},
		OnDecodeError: func(err error) {
			RecordDecodeError(protocol.KindOf(err).String())
			for _, h := range extra {
				if h.OnDecodeError != nil {
					h.OnDecodeError(err)
				}
			}
		},
		OnDispatched: func(cmd *protocol.Command, listeners int, elapsed time.Duration) {
			RecordDispatch(elapsed)
			for _, h := range extra {
				if h.OnDispatched != nil {
					h.OnDispatched(cmd, listeners, elapsed)
				}
			}
		},
		OnListenerFailure: func(cmd *protocol.Command, err *protocol.ListenerError) {
			project, class := specLabels(cmd)
			RecordListenerFailure(project, class)
			for _, h := range extra {
				if h.OnListenerFailure != nil {
					h.OnListenerFailure(cmd, err)
				}
			}
		},
	}
}

func SessionHooks() session.Hooks {
	return session.Hooks{
		OnAck:          RecordSessionAck,
		OnRetransmit:   RecordRetransmit,
		OnFrameDropped: RecordFrameDropped,
	}
}

func specLabels(cmd *protocol.Command) (string, string) {
	if cmd.Spec == nil {
		return "unknown", "unknown"
	}
	return cmd.Spec.Project, cmd.Spec.Class
}
