// Package calendar provides holiday lookups for the compliance gate.
// Municipal sites are never scraped on holidays, so the gate consults a
// HolidayProvider before admitting any request.
package calendar

import "time"

// HolidayProvider reports whether a given date is a holiday. Implementations
// must be year-agnostic; the date's location is respected, only the calendar
// date matters.
type HolidayProvider interface {
	IsHoliday(date time.Time) bool
}

// StaticProvider is a fixed list of dates, typically loaded from config.
type StaticProvider struct {
	dates map[string]struct{}
}

const dateLayout = "2006-01-02"

// NewStaticProvider builds a provider from dates in YYYY-MM-DD form.
// Malformed entries are rejected by config validation before reaching here,
// so they are silently skipped.
func NewStaticProvider(dates []string) *StaticProvider {
	p := &StaticProvider{dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		if _, err := time.Parse(dateLayout, d); err == nil {
			p.dates[d] = struct{}{}
		}
	}
	return p
}

// IsHoliday reports whether the date appears in the static list.
func (p *StaticProvider) IsHoliday(date time.Time) bool {
	_, ok := p.dates[date.Format(dateLayout)]
	return ok
}

// MultiProvider is the union of several providers.
type MultiProvider []HolidayProvider

// IsHoliday reports whether any underlying provider marks the date.
func (m MultiProvider) IsHoliday(date time.Time) bool {
	for _, p := range m {
		if p.IsHoliday(date) {
			return true
		}
	}
	return false
}

// None is a provider with no holidays.
type None struct{}

// IsHoliday always returns false.
func (None) IsHoliday(time.Time) bool { return false }
