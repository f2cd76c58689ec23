package session

import (
	"math"
	"time"
)

// Delay returns how long to wait for an ack after send attempt n (1-based)
// before retransmitting. jitter yields values in [0, 1); nil means no
// randomness, which keeps tests deterministic.
func (c BackoffConfig) Delay(attempt int, jitter func() float64) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}
	mult := c.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(c.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(mult, float64(attempt-1))
	}
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.Jitter && jitter != nil {
		delay *= 0.5 + jitter()
	}
	return time.Duration(delay)
}
