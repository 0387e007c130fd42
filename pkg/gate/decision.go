package gate

import "time"

// Reason identifies which check denied a request. ReasonNone means allowed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonErrorCooldown
	ReasonOutsideBusinessHours
	ReasonHoliday
	ReasonSourceMinuteLimit
	ReasonSourceHourLimit
	ReasonSourceDayLimit
	ReasonGlobalMinuteLimit
	ReasonGlobalHourLimit
	ReasonGlobalDayLimit
	ReasonMinDelayNotElapsed
)

var reasonNames = map[Reason]string{
	ReasonNone:                 "none",
	ReasonErrorCooldown:        "error_cooldown",
	ReasonOutsideBusinessHours: "outside_business_hours",
	ReasonHoliday:              "holiday",
	ReasonSourceMinuteLimit:    "source_minute_limit",
	ReasonSourceHourLimit:      "source_hour_limit",
	ReasonSourceDayLimit:       "source_day_limit",
	ReasonGlobalMinuteLimit:    "global_minute_limit",
	ReasonGlobalHourLimit:      "global_hour_limit",
	ReasonGlobalDayLimit:       "global_day_limit",
	ReasonMinDelayNotElapsed:   "min_delay_not_elapsed",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the reason as its snake_case name in JSON output.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Decision is the engine's answer to "can I fetch from this source now".
// A denied decision is a normal return value, never an error: the caller is
// expected to sleep Wait and ask again.
type Decision struct {
	Allowed bool          `json:"allowed"`
	Reason  Reason        `json:"reason"`
	Wait    time.Duration `json:"-"`
	Detail  string        `json:"detail,omitempty"`
}

// WaitMillis returns the wait time in whole milliseconds, rounded up so a
// caller that sleeps exactly this long lands past the deadline.
func (d Decision) WaitMillis() int64 {
	if d.Wait <= 0 {
		return 0
	}
	ms := d.Wait.Milliseconds()
	if d.Wait%time.Millisecond != 0 {
		ms++
	}
	return ms
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonNone}
}

func deny(reason Reason, wait time.Duration, detail string) Decision {
	if wait < 0 {
		wait = 0
	}
	return Decision{Reason: reason, Wait: wait, Detail: detail}
}
