// Package backoff provides exponential backoff utilities for retry logic.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines the parameters for exponential backoff calculation.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the exponential factor applied per attempt.
	Factor float64
	// Jitter is the randomization factor (0.0 to 1.0) added on top of the
	// base delay.
	Jitter float64
}

// Compute calculates the delay for a given attempt number. Attempts start
// at 1. The formula is base = Initial * Factor^(attempt-1), plus
// base*Jitter*random(), clamped to Max.
func Compute(policy Policy, attempt int) time.Duration {
	return ComputeWithRand(policy, attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// ComputeWithRand calculates the delay using a provided random value in
// [0.0, 1.0). Useful for deterministic tests.
func ComputeWithRand(policy Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(policy.Initial) * math.Pow(policy.Factor, exp)
	jitter := base * policy.Jitter * randomValue
	total := math.Min(float64(policy.Max), base+jitter)
	return time.Duration(total)
}

// LMPolicy returns the backoff schedule for language-model calls:
// 5s, 10s, 20s with no jitter, matching the provider's recommended
// handling of transient failures.
func LMPolicy() Policy {
	return Policy{
		Initial: 5 * time.Second,
		Max:     20 * time.Second,
		Factor:  2,
		Jitter:  0,
	}
}

// DefaultPolicy returns a general-purpose policy for storage and other
// short operations. Initial: 100ms, Max: 30s, Factor: 2, Jitter: 10%.
func DefaultPolicy() Policy {
	return Policy{
		Initial: 100 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}
