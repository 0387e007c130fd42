package gate

import (
	"time"

	"github.com/listingwire/scrapegate/pkg/backoff"
)

// errorPolicy decides how long a source cools down after failures.
type errorPolicy struct {
	strategy backoff.Strategy
	// threshold is the consecutive-error count at which the escalation
	// cooldown overrides the backoff strategy. 0 disables escalation.
	threshold  int
	escalation time.Duration
}

// errorState tracks consecutive failures for one source. While now is before
// cooldownUntil every request to the source is denied, regardless of window
// headroom.
type errorState struct {
	consecutive   int
	cooldownUntil time.Time
	lastError     string
	lastErrorAt   time.Time
}

// recordError advances the failure count and extends the cooldown.
func (s *errorState) recordError(now time.Time, pol errorPolicy, msg string) time.Duration {
	s.consecutive++
	s.lastError = msg
	s.lastErrorAt = now

	cooldown := pol.strategy.Delay(s.consecutive)
	if pol.threshold > 0 && s.consecutive >= pol.threshold {
		cooldown = pol.escalation
	}
	s.cooldownUntil = now.Add(cooldown)
	return cooldown
}

// recordSuccess clears all failure evidence.
func (s *errorState) recordSuccess() {
	s.consecutive = 0
	s.cooldownUntil = time.Time{}
	s.lastError = ""
	s.lastErrorAt = time.Time{}
}

func (s *errorState) inCooldown(now time.Time) bool {
	return now.Before(s.cooldownUntil)
}

// stale reports whether the cooldown expired more than age ago. Stale states
// are cleared by the periodic sweep to bound memory growth.
func (s *errorState) stale(now time.Time, age time.Duration) bool {
	if s.cooldownUntil.IsZero() {
		return false
	}
	return now.Sub(s.cooldownUntil) > age
}
