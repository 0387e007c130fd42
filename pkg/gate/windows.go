package gate

import "time"

// Fixed window lengths. Every scope (each source, plus the global scope)
// carries one counter per length.
const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour
)

// window is a fixed-window request counter. It self-heals on every access:
// when now has passed resetAt the count drops to zero and resetAt moves
// forward, so a stale window can never deny a request.
type window struct {
	length  time.Duration
	limit   int
	count   int
	resetAt time.Time
}

func newWindow(length time.Duration, limit int, now time.Time) *window {
	return &window{length: length, limit: limit, resetAt: now.Add(length)}
}

// resetIfExpired zeroes the count and recomputes resetAt once the current
// window has elapsed.
func (w *window) resetIfExpired(now time.Time) {
	if now.Before(w.resetAt) {
		return
	}
	w.count = 0
	w.resetAt = now.Add(w.length)
}

// exhausted reports whether the (possibly just reset) window has no headroom.
func (w *window) exhausted(now time.Time) bool {
	w.resetIfExpired(now)
	return w.count >= w.limit
}

// record counts one successful request against the window.
func (w *window) record(now time.Time) {
	w.resetIfExpired(now)
	w.count++
}

// wait returns how long until the window resets.
func (w *window) wait(now time.Time) time.Duration {
	return w.resetAt.Sub(now)
}

// counterSet is the minute/hour/day window triple for one scope.
type counterSet struct {
	minute *window
	hour   *window
	day    *window
}

func newCounterSet(perMinute, perHour, perDay int, now time.Time) *counterSet {
	return &counterSet{
		minute: newWindow(minuteWindow, perMinute, now),
		hour:   newWindow(hourWindow, perHour, now),
		day:    newWindow(dayWindow, perDay, now),
	}
}

// record counts one request against all three windows.
func (c *counterSet) record(now time.Time) {
	c.minute.record(now)
	c.hour.record(now)
	c.day.record(now)
}

// windowKind distinguishes the three window lengths when mapping an
// exhausted window to a denial reason.
type windowKind int

const (
	kindNone windowKind = iota
	kindMinute
	kindHour
	kindDay
)

// firstExhausted returns the shortest exhausted window in minute, hour, day
// order, or nil when all three have headroom. Checking the minute window
// first gives the caller the smallest wait time that could help.
func (c *counterSet) firstExhausted(now time.Time) (*window, windowKind) {
	if c.minute.exhausted(now) {
		return c.minute, kindMinute
	}
	if c.hour.exhausted(now) {
		return c.hour, kindHour
	}
	if c.day.exhausted(now) {
		return c.day, kindDay
	}
	return nil, kindNone
}
