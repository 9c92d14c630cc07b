package chat

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy defines capped exponential backoff with jitter for reconnects.
type BackoffPolicy struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	// Jitter is the randomization factor (0.0 to 1.0) added on top of the base delay.
	Jitter float64
}

// DefaultBackoff returns the reconnect policy used when none is configured.
// Initial: 500ms, Max: 30s, Factor: 2, Jitter: 10%
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Initial: 500 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay returns the wait before the given attempt. Attempts start at 1.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	return p.delayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// delayWithRand computes min(max, initial*factor^(attempt-1) * (1 + jitter*r)).
func (p BackoffPolicy) delayWithRand(attempt int, r float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	total := base + base*p.Jitter*r
	if p.Max > 0 {
		total = math.Min(float64(p.Max), total)
	}
	return time.Duration(total)
}
