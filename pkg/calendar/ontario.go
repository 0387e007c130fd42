package calendar

import "time"

// OntarioProvider computes Ontario public holidays for any year, so the
// holiday list never needs a code change when the calendar rolls over.
// Covered: the statutory holidays plus the Civic Holiday, since municipal
// offices close for it and their sites should not be hit that day.
type OntarioProvider struct{}

// IsHoliday reports whether the date is an Ontario public holiday.
func (OntarioProvider) IsHoliday(date time.Time) bool {
	y, m, d := date.Date()
	for _, h := range ontarioHolidays(y) {
		hy, hm, hd := h.Date()
		if y == hy && m == hm && d == hd {
			return true
		}
	}
	return false
}

func ontarioHolidays(year int) []time.Time {
	easter := easterSunday(year)
	return []time.Time{
		date(year, time.January, 1),                       // New Year's Day
		nthWeekday(year, time.February, time.Monday, 3),   // Family Day
		easter.AddDate(0, 0, -2),                          // Good Friday
		victoriaDay(year),                                 // Victoria Day
		date(year, time.July, 1),                          // Canada Day
		nthWeekday(year, time.August, time.Monday, 1),     // Civic Holiday
		nthWeekday(year, time.September, time.Monday, 1),  // Labour Day
		nthWeekday(year, time.October, time.Monday, 2),    // Thanksgiving
		date(year, time.December, 25),                     // Christmas Day
		date(year, time.December, 26),                     // Boxing Day
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the nth occurrence of the given weekday in a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	t := date(year, month, 1)
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset+(n-1)*7)
}

// victoriaDay is the Monday on or before May 24.
func victoriaDay(year int) time.Time {
	t := date(year, time.May, 24)
	offset := (int(t.Weekday()) - int(time.Monday) + 7) % 7
	return t.AddDate(0, 0, -offset)
}

// easterSunday computes Easter for the Gregorian calendar using the
// anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}
