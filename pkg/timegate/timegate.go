// Package timegate decides whether a source may be scraped at a given
// instant, based on its configured business hours and the holiday calendar.
// All checks are done in the source's own timezone, never the process's.
package timegate

import (
	"fmt"
	"time"

	"github.com/listingwire/scrapegate/pkg/calendar"
	"github.com/listingwire/scrapegate/pkg/source"
)

// maxScanDays bounds NextOpen's forward search. A source that is closed for
// more than a year is a configuration problem, not a scheduling one.
const maxScanDays = 400

// Verdict is the result of a time-gate check. Reason is for diagnostics
// only; callers branch on Admissible and Holiday.
type Verdict struct {
	Admissible bool
	Holiday    bool
	Reason     string
}

// Gate checks business hours and holidays for source profiles.
type Gate struct {
	holidays calendar.HolidayProvider
}

// New creates a gate backed by the given holiday provider.
func New(holidays calendar.HolidayProvider) *Gate {
	if holidays == nil {
		holidays = calendar.None{}
	}
	return &Gate{holidays: holidays}
}

// Check reports whether the source is admissible at the given instant.
func (g *Gate) Check(p *source.Profile, now time.Time) (Verdict, error) {
	loc, err := p.Location()
	if err != nil {
		return Verdict{}, err
	}
	local := now.In(loc)

	if !p.AllowWeekends && isWeekend(local.Weekday()) {
		return Verdict{
			Reason: fmt.Sprintf("weekend scraping disabled (%s local time is %s)", p.ID, local.Weekday()),
		}, nil
	}
	if h := local.Hour(); h < p.StartHour || h >= p.EndHour {
		return Verdict{
			Reason: fmt.Sprintf("outside business hours %02d:00-%02d:00 %s (local time %s)",
				p.StartHour, p.EndHour, p.Timezone, local.Format("15:04")),
		}, nil
	}
	if g.holidays.IsHoliday(local) {
		return Verdict{
			Holiday: true,
			Reason:  fmt.Sprintf("holiday on %s", local.Format("2006-01-02")),
		}, nil
	}
	return Verdict{Admissible: true, Reason: "within business hours"}, nil
}

// NextOpen returns the earliest instant at or after now when the source is
// admissible again. Used to compute wait times for denied requests.
func (g *Gate) NextOpen(p *source.Profile, now time.Time) (time.Time, error) {
	loc, err := p.Location()
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)

	for i := 0; i < maxScanDays; i++ {
		day := local.AddDate(0, 0, i)
		if !g.dayOpen(p, day) {
			continue
		}
		open := time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, 0, 0, 0, loc)
		end := time.Date(day.Year(), day.Month(), day.Day(), p.EndHour, 0, 0, 0, loc)
		candidate := open
		if i == 0 && local.After(open) {
			candidate = local
		}
		if candidate.Before(end) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("source %s: no open window within %d days", p.ID, maxScanDays)
}

// dayOpen reports whether the calendar date is scrapeable at all.
func (g *Gate) dayOpen(p *source.Profile, day time.Time) bool {
	if !p.AllowWeekends && isWeekend(day.Weekday()) {
		return false
	}
	return !g.holidays.IsHoliday(day)
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
