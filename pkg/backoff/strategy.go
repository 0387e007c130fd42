// Package backoff computes cooldown durations for sources that keep failing.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy maps a consecutive-error count to a cooldown duration.
// errors is 1-based: 1 for the first failure, 2 for the second, and so on.
type Strategy interface {
	Delay(errors int) time.Duration
}

// Fixed returns the same cooldown regardless of the error count.
type Fixed struct {
	Duration time.Duration
}

// NewFixed creates a Fixed strategy.
func NewFixed(duration time.Duration) *Fixed {
	return &Fixed{Duration: duration}
}

// Delay returns the fixed duration for any error count.
func (f *Fixed) Delay(errors int) time.Duration {
	return f.Duration
}

// Exponential grows the cooldown on each consecutive error, capped at
// MaxDelay. This is the default shape for municipal sources: a single
// transient failure costs little, a run of failures backs the scraper off
// quickly before the site operator notices.
type Exponential struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// NewExponential creates an Exponential strategy. maxDelay of 0 means
// no cap.
func NewExponential(baseDelay time.Duration, multiplier float64, maxDelay time.Duration) *Exponential {
	return &Exponential{
		BaseDelay:  baseDelay,
		Multiplier: multiplier,
		MaxDelay:   maxDelay,
	}
}

// Delay returns baseDelay * multiplier^(errors-1), capped at MaxDelay.
func (e *Exponential) Delay(errors int) time.Duration {
	if errors <= 0 {
		return e.BaseDelay
	}
	delay := float64(e.BaseDelay) * math.Pow(e.Multiplier, float64(errors-1))
	result := time.Duration(delay)
	if e.MaxDelay > 0 && result > e.MaxDelay {
		result = e.MaxDelay
	}
	return result
}

// Jitter is Exponential with full jitter: a uniformly random cooldown
// between 0 and the exponential value, to avoid synchronized retries when
// several sources fail at once.
type Jitter struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// NewJitter creates a Jitter strategy. maxDelay of 0 means no cap.
func NewJitter(baseDelay time.Duration, multiplier float64, maxDelay time.Duration) *Jitter {
	return &Jitter{
		BaseDelay:  baseDelay,
		Multiplier: multiplier,
		MaxDelay:   maxDelay,
	}
}

// Delay returns a random duration between 0 and the exponential delay.
func (j *Jitter) Delay(errors int) time.Duration {
	if errors <= 0 {
		return time.Duration(rand.Float64() * float64(j.BaseDelay))
	}
	exponential := float64(j.BaseDelay) * math.Pow(j.Multiplier, float64(errors-1))
	if j.MaxDelay > 0 && time.Duration(exponential) > j.MaxDelay {
		exponential = float64(j.MaxDelay)
	}
	return time.Duration(rand.Float64() * exponential)
}
