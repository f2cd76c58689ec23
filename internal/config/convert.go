package config

import (
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/session"
)

func defaultSession() session.Config {
	return session.DefaultConfig()
}

// ToSession fills a session.Config. Backoff jitter stays on.
func (s SessionConfig) ToSession() session.Config {
	out := session.DefaultConfig()
	out.ReadTimeout = s.ReadTimeout.Std()
	out.WriteTimeout = s.WriteTimeout.Std()
	out.MaxAttempts = s.MaxAttempts
	out.Backoff.InitialDelay = s.BackoffInitial.Std()
	out.Backoff.MaxDelay = s.BackoffMax.Std()
	out.Backoff.Multiplier = s.BackoffMultiplier
	out.Limits.MaxPayloadBytes = s.MaxPayloadBytes
	out.NonAckBuffer = s.NonAckBuffer
	out.AckBuffer = s.AckBuffer
	out.HighPrioBuffer = s.HighPrioBuffer
	return out
}

func FromSession(c session.Config) SessionConfig {
	return SessionConfig{
		ReadTimeout:       Duration(c.ReadTimeout),
		WriteTimeout:      Duration(c.WriteTimeout),
		MaxAttempts:       c.MaxAttempts,
		BackoffInitial:    Duration(c.Backoff.InitialDelay),
		BackoffMax:        Duration(c.Backoff.MaxDelay),
		BackoffMultiplier: c.Backoff.Multiplier,
		MaxPayloadBytes:   c.Limits.MaxPayloadBytes,
		NonAckBuffer:      c.NonAckBuffer,
		AckBuffer:         c.AckBuffer,
		HighPrioBuffer:    c.HighPrioBuffer,
	}
}
