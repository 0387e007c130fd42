package source

import (
	"fmt"
	"time"
)

// Profile holds the static per-source scraping configuration.
// Profiles are loaded once at startup and never mutated afterwards.
type Profile struct {
	// ID is the municipality key, e.g. "brampton".
	ID string

	// Rate limits for this source's fixed windows.
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int

	// MinDelay is the minimum gap between consecutive requests to this source.
	MinDelay time.Duration

	// Compliance metadata.
	MaxConcurrent int
	MaxRetries    int
	BackoffBase   time.Duration

	// Business hours in the source's local time. Requests are admissible
	// when the local hour is in [StartHour, EndHour).
	StartHour     int
	EndHour       int
	Timezone      string
	AllowWeekends bool
}

// Location resolves the profile's timezone. Profiles are validated at load
// time, so a failure here indicates the tz database changed underneath us.
func (p *Profile) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("source %s: invalid timezone %q: %w", p.ID, p.Timezone, err)
	}
	return loc, nil
}

// Validate checks the profile for internally inconsistent configuration.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("source profile missing id")
	}
	if p.RequestsPerMinute <= 0 || p.RequestsPerHour <= 0 || p.RequestsPerDay <= 0 {
		return fmt.Errorf("source %s: rate limits must be positive", p.ID)
	}
	if p.MinDelay < 0 {
		return fmt.Errorf("source %s: min delay must be non-negative", p.ID)
	}
	if p.StartHour < 0 || p.StartHour > 23 || p.EndHour < 1 || p.EndHour > 24 || p.StartHour >= p.EndHour {
		return fmt.Errorf("source %s: business hours [%d, %d) are invalid", p.ID, p.StartHour, p.EndHour)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("source %s: invalid timezone %q: %w", p.ID, p.Timezone, err)
	}
	if p.MaxConcurrent < 0 || p.MaxRetries < 0 || p.BackoffBase < 0 {
		return fmt.Errorf("source %s: compliance settings must be non-negative", p.ID)
	}
	return nil
}
