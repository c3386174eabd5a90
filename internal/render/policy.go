// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"time"

	"github.com/pdiddy/citeassist/internal/backoff"
	"github.com/pdiddy/citeassist/pkg/types"
)

// Poll defaults: 30 attempts one second apart.
const (
	DefaultMaxAttempts  = 30
	DefaultPollInterval = time.Second
)

// PollPolicy bounds how long a render job is waited for. The attempt
// counter is the stop condition; Timeout is a safety net that, by default,
// never fires before MaxAttempts polls have been sent.
type PollPolicy struct {
	// Timeout bounds the whole wait. Zero means Ceiling().
	Timeout time.Duration

	// Interval is the base delay between attempts.
	Interval time.Duration

	// MaxAttempts is the number of poll requests before giving up.
	MaxAttempts int

	// RequestTimeout bounds each poll request. Zero means Interval, capped
	// at DefaultTimeout.
	RequestTimeout time.Duration

	// Backoff computes the delay after each failed attempt. Nil means a
	// constant Interval.
	Backoff backoff.Strategy
}

// DefaultPollPolicy returns 30 attempts at a constant one second interval.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{}.withDefaults()
}

// PolicyFromConfig builds a poll policy from render settings.
func PolicyFromConfig(cfg types.RenderConfig) (PollPolicy, error) {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	strategy, err := backoff.Parse(cfg.Backoff, interval, cfg.MaxBackoff)
	if err != nil {
		return PollPolicy{}, err
	}
	return PollPolicy{
		Timeout:        cfg.PollTimeout,
		Interval:       interval,
		MaxAttempts:    cfg.MaxAttempts,
		RequestTimeout: cfg.PollRequestTimeout,
		Backoff:        strategy,
	}.withDefaults(), nil
}

// Ceiling is the longest a job that never becomes ready is waited for:
// MaxAttempts requests that each run into RequestTimeout, the longest delay
// after every attempt but the last, and one interval of slack for timer
// drift.
func (p PollPolicy) Ceiling() time.Duration {
	p = p.fill()
	d := time.Duration(p.MaxAttempts)*p.RequestTimeout + p.Interval
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		d += backoff.Bound(p.Backoff, attempt)
	}
	return d
}

func (p PollPolicy) withDefaults() PollPolicy {
	p = p.fill()
	if p.Timeout <= 0 {
		p.Timeout = p.Ceiling()
	}
	return p
}

// fill sets every field but Timeout.
func (p PollPolicy) fill() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = min(p.Interval, DefaultTimeout)
	}
	if p.Backoff == nil {
		p.Backoff = backoff.NewConstant(p.Interval)
	}
	return p
}
