package ratelimit

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff grows a block period geometrically with each repeated offence.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool
}

func NewBackoff(min, max time.Duration, factor float64) *Backoff {
	return &Backoff{
		Min:    min,
		Max:    max,
		Factor: factor,
	}
}

// Duration returns the period for the nth offence, starting at 1.
func (b *Backoff) Duration(n int) time.Duration {
	if n <= 1 {
		return b.Min
	}

	d := float64(b.Min) * math.Pow(b.Factor, float64(n-1))
	if d > float64(b.Max) || math.IsInf(d, 0) {
		d = float64(b.Max)
	}

	if b.Jitter {
		// Only jitter upwards so a repeat offence never blocks for less
		// than the previous one.
		d += d * 0.1 * rand.Float64()
		d = math.Min(d, float64(b.Max))
	}

	return time.Duration(d)
}
