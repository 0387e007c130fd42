package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestStaticProvider(t *testing.T) {
	// Given a static provider with two dates
	p := NewStaticProvider([]string{"2026-03-17", "2026-11-05"})

	assert.True(t, p.IsHoliday(day(2026, time.March, 17)))
	assert.True(t, p.IsHoliday(day(2026, time.November, 5)))
	assert.False(t, p.IsHoliday(day(2026, time.March, 18)))
}

func TestStaticProvider_SkipsMalformedDates(t *testing.T) {
	p := NewStaticProvider([]string{"not-a-date", "2026-01-02"})

	assert.True(t, p.IsHoliday(day(2026, time.January, 2)))
	assert.False(t, p.IsHoliday(day(2026, time.January, 3)))
}

func TestOntarioProvider_FixedDateHolidays(t *testing.T) {
	p := OntarioProvider{}

	assert.True(t, p.IsHoliday(day(2026, time.January, 1)), "New Year's Day")
	assert.True(t, p.IsHoliday(day(2026, time.July, 1)), "Canada Day")
	assert.True(t, p.IsHoliday(day(2026, time.December, 25)), "Christmas")
	assert.True(t, p.IsHoliday(day(2026, time.December, 26)), "Boxing Day")
	assert.False(t, p.IsHoliday(day(2026, time.March, 3)))
}

func TestOntarioProvider_FloatingHolidays(t *testing.T) {
	p := OntarioProvider{}

	// 2026: Family Day Feb 16, Victoria Day May 18, Civic Holiday Aug 3,
	// Labour Day Sep 7, Thanksgiving Oct 12.
	assert.True(t, p.IsHoliday(day(2026, time.February, 16)), "Family Day")
	assert.True(t, p.IsHoliday(day(2026, time.May, 18)), "Victoria Day")
	assert.True(t, p.IsHoliday(day(2026, time.August, 3)), "Civic Holiday")
	assert.True(t, p.IsHoliday(day(2026, time.September, 7)), "Labour Day")
	assert.True(t, p.IsHoliday(day(2026, time.October, 12)), "Thanksgiving")

	// 2025 floats differently: Family Day Feb 17, Victoria Day May 19.
	assert.True(t, p.IsHoliday(day(2025, time.February, 17)))
	assert.True(t, p.IsHoliday(day(2025, time.May, 19)))
	assert.False(t, p.IsHoliday(day(2025, time.February, 16)))
}

func TestOntarioProvider_GoodFriday(t *testing.T) {
	p := OntarioProvider{}

	// Easter 2025-04-20, 2026-04-05, 2027-03-28; Good Friday is two days prior.
	assert.True(t, p.IsHoliday(day(2025, time.April, 18)))
	assert.True(t, p.IsHoliday(day(2026, time.April, 3)))
	assert.True(t, p.IsHoliday(day(2027, time.March, 26)))
	assert.False(t, p.IsHoliday(day(2026, time.April, 10)))
}

func TestMultiProvider_Union(t *testing.T) {
	m := MultiProvider{
		OntarioProvider{},
		NewStaticProvider([]string{"2026-03-17"}),
	}

	assert.True(t, m.IsHoliday(day(2026, time.July, 1)), "from Ontario calendar")
	assert.True(t, m.IsHoliday(day(2026, time.March, 17)), "from static list")
	assert.False(t, m.IsHoliday(day(2026, time.March, 16)))
}

func TestNone(t *testing.T) {
	assert.False(t, None{}.IsHoliday(day(2026, time.December, 25)))
}
