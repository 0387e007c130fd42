// Package config loads and validates scrapegate configuration: global and
// per-source rate limits, business hours, holidays, and daemon settings.
// Precedence is defaults, then the TOML config file, then SCRAPEGATE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/listingwire/scrapegate/pkg/calendar"
	"github.com/listingwire/scrapegate/pkg/gate"
	"github.com/listingwire/scrapegate/pkg/source"
)

// GlobalConfig covers the shared request windows and backoff shape.
type GlobalConfig struct {
	RequestsPerMinute  int           `mapstructure:"requests_per_minute"`
	RequestsPerHour    int           `mapstructure:"requests_per_hour"`
	RequestsPerDay     int           `mapstructure:"requests_per_day"`
	BackoffMultiplier  float64       `mapstructure:"backoff_multiplier"`
	BackoffCap         time.Duration `mapstructure:"backoff_cap"`
	BackoffStrategy    string        `mapstructure:"backoff_strategy"`
	EscalationCooldown time.Duration `mapstructure:"escalation_cooldown"`
	StaleAge           time.Duration `mapstructure:"stale_age"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

// SourceDefaults are applied to any source that omits a field.
type SourceDefaults struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestsPerHour   int           `mapstructure:"requests_per_hour"`
	RequestsPerDay    int           `mapstructure:"requests_per_day"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	StartHour         int           `mapstructure:"start_hour"`
	EndHour           int           `mapstructure:"end_hour"`
	Timezone          string        `mapstructure:"timezone"`
	AllowWeekends     bool          `mapstructure:"allow_weekends"`
}

// SourceConfig is one municipal source. Zero-valued fields inherit from
// SourceDefaults.
type SourceConfig struct {
	ID                string        `mapstructure:"id"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestsPerHour   int           `mapstructure:"requests_per_hour"`
	RequestsPerDay    int           `mapstructure:"requests_per_day"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	StartHour         int           `mapstructure:"start_hour"`
	EndHour           int           `mapstructure:"end_hour"`
	Timezone          string        `mapstructure:"timezone"`
	AllowWeekends     *bool         `mapstructure:"allow_weekends"`
}

// HolidayConfig selects the holiday providers. Province "ON" enables the
// computed Ontario calendar; Dates adds explicit YYYY-MM-DD entries.
type HolidayConfig struct {
	Province string   `mapstructure:"province"`
	Dates    []string `mapstructure:"dates"`
}

// DaemonConfig covers the admin daemon.
type DaemonConfig struct {
	HTTPPort         int           `mapstructure:"http_port"`
	PidFile          string        `mapstructure:"pid_file"`
	JournalPath      string        `mapstructure:"journal_path"`
	JournalRetention time.Duration `mapstructure:"journal_retention"`
	LogLevel         string        `mapstructure:"log_level"`
	EnableHTTP       bool          `mapstructure:"enable_http"`
}

// Config is the full scrapegate configuration.
type Config struct {
	Global   GlobalConfig   `mapstructure:"global"`
	Defaults SourceDefaults `mapstructure:"defaults"`
	Holidays HolidayConfig  `mapstructure:"holidays"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Sources  []SourceConfig `mapstructure:"sources"`
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// LoadFromFile loads configuration from a TOML file with environment
// overrides applied.
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFile)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvironment(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// LoadWithDefaults returns a configuration holding only defaults and
// environment overrides. Useful when no config file is present.
func LoadWithDefaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnvironment(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// FindConfigFile searches for a configuration file in the given directory.
func FindConfigFile(dir string) string {
	configNames := []string{".scrapegate.toml", "scrapegate.toml"}
	for _, name := range configNames {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.requests_per_minute", 30)
	v.SetDefault("global.requests_per_hour", 500)
	v.SetDefault("global.requests_per_day", 5000)
	v.SetDefault("global.backoff_multiplier", 2.0)
	v.SetDefault("global.backoff_cap", 30*time.Minute)
	v.SetDefault("global.backoff_strategy", gate.StrategyExponential)
	v.SetDefault("global.escalation_cooldown", 5*time.Minute)
	v.SetDefault("global.stale_age", time.Hour)
	v.SetDefault("global.sweep_interval", time.Minute)

	v.SetDefault("defaults.requests_per_minute", 6)
	v.SetDefault("defaults.requests_per_hour", 60)
	v.SetDefault("defaults.requests_per_day", 300)
	v.SetDefault("defaults.min_delay", 10*time.Second)
	v.SetDefault("defaults.max_concurrent", 1)
	v.SetDefault("defaults.max_retries", 3)
	v.SetDefault("defaults.backoff_base", 30*time.Second)
	v.SetDefault("defaults.start_hour", 9)
	v.SetDefault("defaults.end_hour", 17)
	v.SetDefault("defaults.timezone", "America/Toronto")
	v.SetDefault("defaults.allow_weekends", false)

	v.SetDefault("holidays.province", "ON")

	v.SetDefault("daemon.http_port", 8787)
	v.SetDefault("daemon.pid_file", "/tmp/scrapegated.pid")
	v.SetDefault("daemon.journal_path", "")
	v.SetDefault("daemon.journal_retention", 7*24*time.Hour)
	v.SetDefault("daemon.log_level", "info")
	v.SetDefault("daemon.enable_http", true)
}

func bindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix("SCRAPEGATE")
	v.AutomaticEnv()

	envMappings := map[string]string{
		"SCRAPEGATE_GLOBAL_RPM":    "global.requests_per_minute",
		"SCRAPEGATE_GLOBAL_RPH":    "global.requests_per_hour",
		"SCRAPEGATE_GLOBAL_RPD":    "global.requests_per_day",
		"SCRAPEGATE_SWEEP":         "global.sweep_interval",
		"SCRAPEGATE_HTTP_PORT":     "daemon.http_port",
		"SCRAPEGATE_PID_FILE":      "daemon.pid_file",
		"SCRAPEGATE_JOURNAL_PATH":  "daemon.journal_path",
		"SCRAPEGATE_LOG_LEVEL":     "daemon.log_level",
		"SCRAPEGATE_HOLIDAY_DATES": "holidays.dates",
	}
	for envVar, configKey := range envMappings {
		v.BindEnv(configKey, envVar)
	}
}

// Validate validates the configuration and returns combined error messages.
func (c *Config) Validate() error {
	var errors []ValidationError

	if c.Global.RequestsPerMinute <= 0 || c.Global.RequestsPerHour <= 0 || c.Global.RequestsPerDay <= 0 {
		errors = append(errors, ValidationError{
			Field:   "global",
			Value:   fmt.Sprintf("%d/%d/%d", c.Global.RequestsPerMinute, c.Global.RequestsPerHour, c.Global.RequestsPerDay),
			Message: "global rate limits must be positive",
		})
	}
	if c.Global.BackoffMultiplier < 1.0 {
		errors = append(errors, ValidationError{
			Field:   "global.backoff_multiplier",
			Value:   c.Global.BackoffMultiplier,
			Message: "must be 1.0 or greater",
		})
	}
	switch c.Global.BackoffStrategy {
	case "", gate.StrategyExponential, gate.StrategyFixed, gate.StrategyJitter:
	default:
		errors = append(errors, ValidationError{
			Field:   "global.backoff_strategy",
			Value:   c.Global.BackoffStrategy,
			Message: "must be exponential, fixed or jitter",
		})
	}
	if c.Global.BackoffCap <= 0 {
		errors = append(errors, ValidationError{
			Field:   "global.backoff_cap",
			Value:   c.Global.BackoffCap,
			Message: "must be positive",
		})
	}
	if c.Global.EscalationCooldown <= 0 {
		errors = append(errors, ValidationError{
			Field:   "global.escalation_cooldown",
			Value:   c.Global.EscalationCooldown,
			Message: "must be positive",
		})
	}
	if c.Global.SweepInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "global.sweep_interval",
			Value:   c.Global.SweepInterval,
			Message: "must be positive",
		})
	}

	if len(c.Sources) == 0 {
		errors = append(errors, ValidationError{
			Field:   "sources",
			Value:   0,
			Message: "at least one source must be configured",
		})
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, sc := range c.Sources {
		if sc.ID == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sources[%d].id", i),
				Value:   "",
				Message: "source id is required",
			})
			continue
		}
		if seen[sc.ID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sources[%d].id", i),
				Value:   sc.ID,
				Message: "duplicate source id",
			})
		}
		seen[sc.ID] = true
	}

	for _, d := range c.Holidays.Dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			errors = append(errors, ValidationError{
				Field:   "holidays.dates",
				Value:   d,
				Message: "must be in YYYY-MM-DD form",
			})
		}
	}
	if p := c.Holidays.Province; p != "" && !strings.EqualFold(p, "ON") {
		errors = append(errors, ValidationError{
			Field:   "holidays.province",
			Value:   p,
			Message: "only ON has a computed calendar; use holidays.dates for other provinces",
		})
	}

	if c.Daemon.HTTPPort < 0 || c.Daemon.HTTPPort > 65535 {
		errors = append(errors, ValidationError{
			Field:   "daemon.http_port",
			Value:   c.Daemon.HTTPPort,
			Message: "must be a valid TCP port",
		})
	}

	if len(errors) > 0 {
		var messages []string
		for _, err := range errors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}

// Profiles materializes the source profiles with defaults applied. Profile
// validation (timezone, hours, limits) happens in the source registry.
func (c *Config) Profiles() []source.Profile {
	profiles := make([]source.Profile, 0, len(c.Sources))
	for _, sc := range c.Sources {
		p := source.Profile{
			ID:                sc.ID,
			RequestsPerMinute: orInt(sc.RequestsPerMinute, c.Defaults.RequestsPerMinute),
			RequestsPerHour:   orInt(sc.RequestsPerHour, c.Defaults.RequestsPerHour),
			RequestsPerDay:    orInt(sc.RequestsPerDay, c.Defaults.RequestsPerDay),
			MinDelay:          orDuration(sc.MinDelay, c.Defaults.MinDelay),
			MaxConcurrent:     orInt(sc.MaxConcurrent, c.Defaults.MaxConcurrent),
			MaxRetries:        orInt(sc.MaxRetries, c.Defaults.MaxRetries),
			BackoffBase:       orDuration(sc.BackoffBase, c.Defaults.BackoffBase),
			StartHour:         orInt(sc.StartHour, c.Defaults.StartHour),
			EndHour:           orInt(sc.EndHour, c.Defaults.EndHour),
			Timezone:          orString(sc.Timezone, c.Defaults.Timezone),
			AllowWeekends:     c.Defaults.AllowWeekends,
		}
		if sc.AllowWeekends != nil {
			p.AllowWeekends = *sc.AllowWeekends
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// EngineConfig maps the global section onto the engine's settings.
func (c *Config) EngineConfig() gate.Config {
	return gate.Config{
		GlobalRequestsPerMinute: c.Global.RequestsPerMinute,
		GlobalRequestsPerHour:   c.Global.RequestsPerHour,
		GlobalRequestsPerDay:    c.Global.RequestsPerDay,
		BackoffMultiplier:       c.Global.BackoffMultiplier,
		BackoffCap:              c.Global.BackoffCap,
		BackoffStrategy:         c.Global.BackoffStrategy,
		EscalationCooldown:      c.Global.EscalationCooldown,
		StaleAge:                c.Global.StaleAge,
	}
}

// HolidayProvider builds the configured holiday providers.
func (c *Config) HolidayProvider() calendar.HolidayProvider {
	var providers calendar.MultiProvider
	if strings.EqualFold(c.Holidays.Province, "ON") {
		providers = append(providers, calendar.OntarioProvider{})
	}
	if len(c.Holidays.Dates) > 0 {
		providers = append(providers, calendar.NewStaticProvider(c.Holidays.Dates))
	}
	if len(providers) == 0 {
		return calendar.None{}
	}
	return providers
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
