// Package bridge republishes decoded commands on a NATS bus as JSON.
package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/observability"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

const (
	DefaultSubjectPrefix = "arsdk"
	DefaultGlobalSubject = "arsdk.commands"
)

// Publisher is the part of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON body published for every command.
type Event struct {
	ID        string         `json:"id"`
	Project   string         `json:"project"`
	Class     string         `json:"class"`
	Command   string         `json:"command"`
	Args      map[string]any `json:"args"`
	Text      string         `json:"text"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Options struct {
	SubjectPrefix string
	// GlobalSubject receives every event. Empty disables it.
	GlobalSubject string
	Source        string
}

type Bridge struct {
	pub    Publisher
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

func New(pub Publisher, opts Options) *Bridge {
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = DefaultSubjectPrefix
	}
	return &Bridge{
		pub:    pub,
		opts:   opts,
		now:    time.Now,
		logger: log.Logger.With().Str("component", "bridge").Logger(),
	}
}

// Subject is <prefix>.<project>.<class>.<command>.
func (b *Bridge) Subject(cmd *protocol.Command) string {
	if cmd.Spec == nil {
		id := cmd.ID
		return fmt.Sprintf("%s.%d.%d.%d", b.opts.SubjectPrefix, id.Project, id.Class, id.Command)
	}
	return strings.Join([]string{
		b.opts.SubjectPrefix,
		token(cmd.Spec.Project),
		token(cmd.Spec.Class),
		token(cmd.Spec.Name),
	}, ".")
}

// token strips characters NATS reserves in subjects.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}

func (b *Bridge) event(cmd *protocol.Command) Event {
	ev := Event{
		ID:        cmd.ID.String(),
		Args:      monitor.Args(cmd),
		Text:      cmd.String(),
		Source:    b.opts.Source,
		Timestamp: b.now().UTC(),
	}
	if cmd.Spec != nil {
		ev.Project, ev.Class, ev.Command = cmd.Spec.Project, cmd.Spec.Class, cmd.Spec.Name
	}
	return ev
}

// Publish sends cmd to its own subject and then the global subject.
func (b *Bridge) Publish(cmd *protocol.Command) error {
	data, err := json.Marshal(b.event(cmd))
	if err != nil {
		observability.RecordBridgePublish(false)
		return fmt.Errorf("bridge: encode %s: %w", cmd.ID, err)
	}
	subject := b.Subject(cmd)
	if err := b.pub.Publish(subject, data); err != nil {
		observability.RecordBridgePublish(false)
		b.logger.Error().Err(err).Str("subject", subject).Msg("bridge publish failed")
		return fmt.Errorf("bridge: publish %s: %w", subject, err)
	}
	if b.opts.GlobalSubject != "" {
		if err := b.pub.Publish(b.opts.GlobalSubject, data); err != nil {
			observability.RecordBridgePublish(false)
			b.logger.Error().Err(err).Str("subject", b.opts.GlobalSubject).Msg("bridge publish failed")
			return fmt.Errorf("bridge: publish %s: %w", b.opts.GlobalSubject, err)
		}
	}
	observability.RecordBridgePublish(true)
	b.logger.Debug().Str("subject", subject).Msg("bridge published")
	return nil
}

// OnCommand lets the bridge be registered as a listener.
func (b *Bridge) OnCommand(cmd *protocol.Command) error {
	return b.Publish(cmd)
}

// Hooks publishes every decoded command, whether or not anything listens
// for it. Failures are already logged and counted.
func (b *Bridge) Hooks() dispatch.Hooks {
	return dispatch.Hooks{
		OnDecoded: func(cmd *protocol.Command) { _ = b.Publish(cmd) },
	}
}
