package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand    = errors.New("protocol: unknown command")
	ErrTruncatedFrame    = errors.New("protocol: truncated frame")
	ErrMalformedArgument = errors.New("protocol: malformed argument")
	ErrListenerFailure   = errors.New("protocol: listener failure")
	ErrArgumentMismatch  = errors.New("protocol: argument mismatch")
)

// ErrorKind tags the failure classes a transport has to branch on.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindUnknownCommand
	KindTruncatedFrame
	KindMalformedArgument
	KindListenerFailure
	KindArgumentMismatch
)

var kindNames = map[ErrorKind]string{
	KindNone:              "none",
	KindUnknownCommand:    "unknown_command",
	KindTruncatedFrame:    "truncated_frame",
	KindMalformedArgument: "malformed_argument",
	KindListenerFailure:   "listener_failure",
	KindArgumentMismatch:  "argument_mismatch",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnknownCommand:
		return ErrUnknownCommand
	case KindTruncatedFrame:
		return ErrTruncatedFrame
	case KindMalformedArgument:
		return ErrMalformedArgument
	case KindListenerFailure:
		return ErrListenerFailure
	case KindArgumentMismatch:
		return ErrArgumentMismatch
	default:
		return nil
	}
}

// KindOf classifies err against the protocol sentinels.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownCommand):
		return KindUnknownCommand
	case errors.Is(err, ErrTruncatedFrame):
		return KindTruncatedFrame
	case errors.Is(err, ErrMalformedArgument):
		return KindMalformedArgument
	case errors.Is(err, ErrListenerFailure):
		return KindListenerFailure
	case errors.Is(err, ErrArgumentMismatch):
		return KindArgumentMismatch
	default:
		return KindNone
	}
}

// DecodeError reports where a frame failed to decode.
// Offset is the absolute buffer offset reached when the failure was detected;
// for KindUnknownCommand it is the offset right after the frame header.
type DecodeError struct {
	Kind   ErrorKind
	ID     CommandID
	Offset int
	Arg    string
	Reason string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("protocol: %s command=%s offset=%d", e.Kind, e.ID, e.Offset)
	if e.Arg != "" {
		msg += fmt.Sprintf(" arg=%q", e.Arg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}

// ListenerError wraps a failure raised by one registered listener.
type ListenerError struct {
	ID    CommandID
	Index int
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("protocol: listener_failure command=%s listener=%d: %v", e.ID, e.Index, e.Err)
}

func (e *ListenerError) Unwrap() []error {
	return []error{ErrListenerFailure, e.Err}
}

// MismatchError reports a command whose values do not satisfy its spec.
type MismatchError struct {
	ID     CommandID
	Arg    string
	Reason string
}

func (e MismatchError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("protocol: argument_mismatch command=%s: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("protocol: argument_mismatch command=%s arg=%q: %s", e.ID, e.Arg, e.Reason)
}

func (e MismatchError) Unwrap() error {
	return ErrArgumentMismatch
}
