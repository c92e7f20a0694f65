package sensor

import (
	"math"
	"time"
)

// defaultBackoffMultiplier doubles the delay on every failed restart.
const defaultBackoffMultiplier = 2.0

// Backoff configures restart delays for streams and supervised probes.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewBackoff returns a doubling backoff from interval up to 8x interval.
func NewBackoff(interval time.Duration) Backoff {
	return Backoff{
		InitialDelay: interval,
		MaxDelay:     8 * interval,
		Multiplier:   defaultBackoffMultiplier,
	}
}

// Delay returns the wait before restart attempt N (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return max(b.InitialDelay, 0)
	}

	multiplier := max(b.Multiplier, 1.0)

	delay := float64(b.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}

	return time.Duration(delay)
}
