// Package gate implements the admission decision engine for municipal
// scraping: per-source and global request windows, error backoff with
// escalation, and business-hours/holiday gating. The engine does no I/O
// and never blocks; callers sleep the returned wait time themselves.
package gate

import (
	"sync"
	"time"

	"github.com/listingwire/scrapegate/pkg/backoff"
	"github.com/listingwire/scrapegate/pkg/source"
	"github.com/listingwire/scrapegate/pkg/timegate"
)

// Config holds engine-wide settings. Per-source settings live on the
// source profiles.
type Config struct {
	// Global windows shared by all sources.
	GlobalRequestsPerMinute int
	GlobalRequestsPerHour   int
	GlobalRequestsPerDay    int

	// Backoff shape applied to every source's BackoffBase.
	BackoffMultiplier float64
	BackoffCap        time.Duration

	// BackoffStrategy selects the cooldown curve: "exponential" (default),
	// "fixed", or "jitter".
	BackoffStrategy string

	// EscalationCooldown replaces the exponential cooldown once a source
	// reaches its MaxRetries consecutive errors.
	EscalationCooldown time.Duration

	// StaleAge is how long past expiry an error cooldown may linger before
	// the sweep clears it.
	StaleAge time.Duration

	// Clock is the time source; nil means time.Now. Injected for tests.
	Clock func() time.Time
}

// DefaultConfig returns the engine defaults used when config omits a value.
func DefaultConfig() Config {
	return Config{
		GlobalRequestsPerMinute: 30,
		GlobalRequestsPerHour:   500,
		GlobalRequestsPerDay:    5000,
		BackoffMultiplier:       2.0,
		BackoffCap:              30 * time.Minute,
		BackoffStrategy:         StrategyExponential,
		EscalationCooldown:      5 * time.Minute,
		StaleAge:                time.Hour,
	}
}

const defaultBackoffBase = 30 * time.Second

// Recognized BackoffStrategy values.
const (
	StrategyExponential = "exponential"
	StrategyFixed       = "fixed"
	StrategyJitter      = "jitter"
)

// newStrategy builds the configured backoff strategy around a source's base
// delay. Unrecognized names fall back to exponential.
func newStrategy(name string, base time.Duration, multiplier float64, maxDelay time.Duration) backoff.Strategy {
	switch name {
	case StrategyFixed:
		return backoff.NewFixed(base)
	case StrategyJitter:
		return backoff.NewJitter(base, multiplier, maxDelay)
	default:
		return backoff.NewExponential(base, multiplier, maxDelay)
	}
}

// sourceState is the mutable side of one source.
type sourceState struct {
	profile     *source.Profile
	windows     *counterSet
	errors      errorState
	policy      errorPolicy
	lastRequest time.Time
}

// Engine answers "can I fetch from source X now" and keeps the books when
// the caller reports back. A single mutex guards all state: every recorded
// success touches the global counters anyway, so per-source locks would
// still serialize on a shared one and add a lock-ordering hazard for no
// throughput gain at this scale.
type Engine struct {
	mu       sync.Mutex
	registry *source.Registry
	timegate *timegate.Gate
	cfg      Config
	now      func() time.Time

	global  *counterSet
	sources map[string]*sourceState
}

// New creates an engine with zeroed counters for every registered source.
func New(registry *source.Registry, tg *timegate.Gate, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.GlobalRequestsPerMinute <= 0 {
		cfg.GlobalRequestsPerMinute = def.GlobalRequestsPerMinute
	}
	if cfg.GlobalRequestsPerHour <= 0 {
		cfg.GlobalRequestsPerHour = def.GlobalRequestsPerHour
	}
	if cfg.GlobalRequestsPerDay <= 0 {
		cfg.GlobalRequestsPerDay = def.GlobalRequestsPerDay
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.EscalationCooldown <= 0 {
		cfg.EscalationCooldown = def.EscalationCooldown
	}
	if cfg.StaleAge <= 0 {
		cfg.StaleAge = def.StaleAge
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		registry: registry,
		timegate: tg,
		cfg:      cfg,
		now:      now,
		global:   newCounterSet(cfg.GlobalRequestsPerMinute, cfg.GlobalRequestsPerHour, cfg.GlobalRequestsPerDay, now()),
		sources:  make(map[string]*sourceState, registry.Len()),
	}
	start := now()
	for _, id := range registry.IDs() {
		p, _ := registry.Get(id)
		base := p.BackoffBase
		if base <= 0 {
			base = defaultBackoffBase
		}
		e.sources[id] = &sourceState{
			profile: p,
			windows: newCounterSet(p.RequestsPerMinute, p.RequestsPerHour, p.RequestsPerDay, start),
			policy: errorPolicy{
				strategy:   newStrategy(cfg.BackoffStrategy, base, cfg.BackoffMultiplier, cfg.BackoffCap),
				threshold:  p.MaxRetries,
				escalation: cfg.EscalationCooldown,
			},
		}
	}
	return e
}

// CanMakeRequest decides whether a request to the source may proceed now.
// It never mutates request counts; expired windows self-heal on read.
func (e *Engine) CanMakeRequest(sourceID string) (Decision, error) {
	return e.CanMakeRequestAt(sourceID, e.now())
}

// CanMakeRequestAt is CanMakeRequest at an explicit instant. The checks run
// in a fixed order, first denial wins: error cooldown, business hours,
// holiday, source windows, global windows, minimum delay. Static time-gate
// checks come before mutable state so a closed source is reported as closed
// rather than rate-limited, and source windows before global ones so a
// noisy source is diagnosed precisely.
func (e *Engine) CanMakeRequestAt(sourceID string, now time.Time) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.sources[sourceID]
	if !ok {
		return Decision{}, &source.ConfigurationError{SourceID: sourceID}
	}

	if st.errors.inCooldown(now) {
		return deny(ReasonErrorCooldown, st.errors.cooldownUntil.Sub(now), st.errors.lastError), nil
	}

	verdict, err := e.timegate.Check(st.profile, now)
	if err != nil {
		return Decision{}, err
	}
	if !verdict.Admissible {
		reason := ReasonOutsideBusinessHours
		if verdict.Holiday {
			reason = ReasonHoliday
		}
		wait := time.Duration(0)
		if next, err := e.timegate.NextOpen(st.profile, now); err == nil {
			wait = next.Sub(now)
		}
		return deny(reason, wait, verdict.Reason), nil
	}

	if w, kind := st.windows.firstExhausted(now); kind != kindNone {
		return deny(sourceReason(kind), w.wait(now), "source window exhausted"), nil
	}
	if w, kind := e.global.firstExhausted(now); kind != kindNone {
		return deny(globalReason(kind), w.wait(now), "global window exhausted"), nil
	}

	if st.profile.MinDelay > 0 && !st.lastRequest.IsZero() {
		if elapsed := now.Sub(st.lastRequest); elapsed < st.profile.MinDelay {
			return deny(ReasonMinDelayNotElapsed, st.profile.MinDelay-elapsed, "minimum delay between requests"), nil
		}
	}

	return allow(), nil
}

// RecordRequest reports a completed, successful request. It advances the
// source and global windows, clears any error state, and stamps the
// minimum-delay clock. Call exactly once per attempted request, after the
// network call, never pre-emptively.
func (e *Engine) RecordRequest(sourceID string) error {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.sources[sourceID]
	if !ok {
		return &source.ConfigurationError{SourceID: sourceID}
	}
	st.windows.record(now)
	e.global.record(now)
	st.errors.recordSuccess()
	st.lastRequest = now
	return nil
}

// RecordError reports a failed request. The engine does not judge the
// error beyond bookkeeping: the consecutive count grows and the cooldown
// extends exponentially, escalating to the fixed cooldown at the source's
// retry threshold. The failed attempt still counts for minimum delay.
func (e *Engine) RecordError(sourceID string, cause error) error {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.sources[sourceID]
	if !ok {
		return &source.ConfigurationError{SourceID: sourceID}
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	st.errors.recordError(now, st.policy, msg)
	st.lastRequest = now
	return nil
}

// SweepStale clears error states whose cooldown aged out. It returns the
// number of sources cleared. Safe to run concurrently with admissions; it
// takes the same lock.
func (e *Engine) SweepStale() int {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	cleared := 0
	for _, st := range e.sources {
		if st.errors.stale(now, e.cfg.StaleAge) {
			st.errors.recordSuccess()
			cleared++
		}
	}
	return cleared
}

func sourceReason(kind windowKind) Reason {
	switch kind {
	case kindMinute:
		return ReasonSourceMinuteLimit
	case kindHour:
		return ReasonSourceHourLimit
	default:
		return ReasonSourceDayLimit
	}
}

func globalReason(kind windowKind) Reason {
	switch kind {
	case kindMinute:
		return ReasonGlobalMinuteLimit
	case kindHour:
		return ReasonGlobalHourLimit
	default:
		return ReasonGlobalDayLimit
	}
}
