package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile(id string) Profile {
	return Profile{
		ID:                id,
		RequestsPerMinute: 6,
		RequestsPerHour:   60,
		RequestsPerDay:    300,
		MinDelay:          10 * time.Second,
		MaxConcurrent:     1,
		MaxRetries:        3,
		BackoffBase:       30 * time.Second,
		StartHour:         9,
		EndHour:           17,
		Timezone:          "America/Toronto",
	}
}

func TestRegistry_GetKnownSource(t *testing.T) {
	// Given a registry with one source
	registry, err := NewRegistry([]Profile{validProfile("brampton")})
	require.NoError(t, err)

	// When looking up the source
	p, err := registry.Get("brampton")

	// Then the profile is returned unchanged
	require.NoError(t, err)
	assert.Equal(t, "brampton", p.ID)
	assert.Equal(t, 6, p.RequestsPerMinute)
}

func TestRegistry_UnknownSourceIsConfigurationError(t *testing.T) {
	registry, err := NewRegistry([]Profile{validProfile("brampton")})
	require.NoError(t, err)

	// When looking up a source that was never configured
	_, err = registry.Get("atlantis")

	// Then a ConfigurationError identifies the source
	require.Error(t, err)
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "atlantis", confErr.SourceID)
}

func TestRegistry_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewRegistry([]Profile{validProfile("brampton"), validProfile("brampton")})
	assert.Error(t, err)
}

func TestRegistry_IDsAreSorted(t *testing.T) {
	registry, err := NewRegistry([]Profile{
		validProfile("mississauga"),
		validProfile("brampton"),
		validProfile("caledon"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"brampton", "caledon", "mississauga"}, registry.IDs())
	assert.Equal(t, 3, registry.Len())
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"valid", func(p *Profile) {}, false},
		{"missing id", func(p *Profile) { p.ID = "" }, true},
		{"zero minute limit", func(p *Profile) { p.RequestsPerMinute = 0 }, true},
		{"negative min delay", func(p *Profile) { p.MinDelay = -time.Second }, true},
		{"inverted hours", func(p *Profile) { p.StartHour = 18; p.EndHour = 9 }, true},
		{"bad timezone", func(p *Profile) { p.Timezone = "Mars/Olympus" }, true},
		{"weekend source", func(p *Profile) { p.AllowWeekends = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile("test")
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
