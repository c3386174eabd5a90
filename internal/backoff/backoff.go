// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backoff provides the delay strategies used between render poll
// attempts. Strategies are stateless and safe for concurrent use.
package backoff

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait after attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Bounded is implemented by strategies whose delay is random. MaxDelay
// returns the longest delay Delay can produce after attempt n.
type Bounded interface {
	MaxDelay(attempt int) time.Duration
}

// Bound returns the longest delay s can produce after attempt n.
func Bound(s Strategy, attempt int) time.Duration {
	if b, ok := s.(Bounded); ok {
		return b.MaxDelay(attempt)
	}
	return s.Delay(attempt)
}

// Constant always waits the same interval.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Exponential doubles the delay each attempt, capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns min(Initial * 2^(attempt-1), Max).
func (e *Exponential) Delay(attempt int) time.Duration {
	return time.Duration(capped(e.Initial, e.Max, attempt))
}

// ExponentialWithJitter applies full jitter to an exponential base so that
// many clients polling the same renderer spread out.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential strategy with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	return time.Duration(rand.Float64() * capped(e.Initial, e.Max, attempt)) //nolint:gosec // jitter does not need crypto rand
}

// MaxDelay returns min(Initial * 2^(attempt-1), Max).
func (e *ExponentialWithJitter) MaxDelay(attempt int) time.Duration {
	return time.Duration(capped(e.Initial, e.Max, attempt))
}

func capped(initial, maxDelay time.Duration, attempt int) float64 {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(initial) * math.Pow(2, float64(attempt-1))
	if maxDelay > 0 && base > float64(maxDelay) {
		base = float64(maxDelay)
	}
	return base
}

// Parse returns the strategy named by name: "constant" (or empty),
// "exponential" or "jitter".
func Parse(name string, interval, maxDelay time.Duration) (Strategy, error) {
	switch name {
	case "", "constant":
		return NewConstant(interval), nil
	case "exponential":
		return NewExponential(interval, maxDelay), nil
	case "jitter", "exponential-jitter":
		return NewExponentialWithJitter(interval, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", name)
	}
}
