package gate

import "time"

// WindowStatus is the diagnostic view of one fixed window.
type WindowStatus struct {
	Count   int       `json:"count"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// SourceStatus is the diagnostic view of one source.
type SourceStatus struct {
	ID                string       `json:"id"`
	GateOpen          bool         `json:"gate_open"`
	GateReason        string       `json:"gate_reason"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	InCooldown        bool         `json:"in_cooldown"`
	CooldownUntil     *time.Time   `json:"cooldown_until,omitempty"`
	LastError         string       `json:"last_error,omitempty"`
	LastRequestAt     *time.Time   `json:"last_request_at,omitempty"`
	Minute            WindowStatus `json:"minute"`
	Hour              WindowStatus `json:"hour"`
	Day               WindowStatus `json:"day"`
}

// GlobalStatus is the diagnostic view of the shared windows.
type GlobalStatus struct {
	Minute WindowStatus `json:"minute"`
	Hour   WindowStatus `json:"hour"`
	Day    WindowStatus `json:"day"`
}

// StatusSnapshot is a point-in-time dump of every counter and cooldown,
// served by the admin API for monitoring. Nothing in it feeds back into
// admission decisions.
type StatusSnapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Global  GlobalStatus   `json:"global"`
	Sources []SourceStatus `json:"sources"`
}

// Status returns a snapshot of all engine state. Expired windows are reset
// before reporting so the counts reflect the live windows.
func (e *Engine) Status() StatusSnapshot {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := StatusSnapshot{
		TakenAt: now,
		Global: GlobalStatus{
			Minute: windowStatus(e.global.minute, now),
			Hour:   windowStatus(e.global.hour, now),
			Day:    windowStatus(e.global.day, now),
		},
	}
	for _, id := range e.registry.IDs() {
		st := e.sources[id]
		ss := SourceStatus{
			ID:                id,
			ConsecutiveErrors: st.errors.consecutive,
			InCooldown:        st.errors.inCooldown(now),
			LastError:         st.errors.lastError,
			Minute:            windowStatus(st.windows.minute, now),
			Hour:              windowStatus(st.windows.hour, now),
			Day:               windowStatus(st.windows.day, now),
		}
		if verdict, err := e.timegate.Check(st.profile, now); err == nil {
			ss.GateOpen = verdict.Admissible
			ss.GateReason = verdict.Reason
		}
		if !st.errors.cooldownUntil.IsZero() {
			t := st.errors.cooldownUntil
			ss.CooldownUntil = &t
		}
		if !st.lastRequest.IsZero() {
			t := st.lastRequest
			ss.LastRequestAt = &t
		}
		snap.Sources = append(snap.Sources, ss)
	}
	return snap
}

func windowStatus(w *window, now time.Time) WindowStatus {
	w.resetIfExpired(now)
	return WindowStatus{Count: w.count, Limit: w.limit, ResetAt: w.resetAt}
}
