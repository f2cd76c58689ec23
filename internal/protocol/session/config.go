package session

import (
	"fmt"
	"time"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines link timing, retry and buffer defaults.
type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxAttempts    int
	Backoff        BackoffConfig
	Limits         Limits
	ReadBufferSize int

	// Outgoing buffer ids per delivery class.
	NonAckBuffer   uint8
	AckBuffer      uint8
	HighPrioBuffer uint8
}

// DefaultConfig matches the controller-to-device buffers of ARSDK products.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  5,
		Backoff: BackoffConfig{
			InitialDelay: 150 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
		Limits:         DefaultLimits(),
		ReadBufferSize: 4096,
		NonAckBuffer:   10,
		AckBuffer:      11,
		HighPrioBuffer: 12,
	}
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("session: max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.Backoff.InitialDelay <= 0 {
		return fmt.Errorf("session: backoff initial delay must be > 0")
	}
	if c.ReadBufferSize < NetHeaderSize {
		return fmt.Errorf("session: read buffer size %d smaller than header", c.ReadBufferSize)
	}
	for _, b := range []uint8{c.NonAckBuffer, c.AckBuffer, c.HighPrioBuffer} {
		if b == BufferPing || b == BufferPong {
			return fmt.Errorf("session: buffer %d is reserved for ping", b)
		}
		if _, ack := IsAckBuffer(b); ack {
			return fmt.Errorf("session: buffer %d is an acknowledgement buffer", b)
		}
	}
	return nil
}
