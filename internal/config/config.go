// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	Schedule ScheduleConfig `toml:"schedule"`
	LLM      LLMConfig      `toml:"llm"`
	Calendar CalendarConfig `toml:"calendar"`
	Storage  StorageConfig  `toml:"storage"`
}

// ScheduleConfig holds business-hour scheduling settings.
type ScheduleConfig struct {
	Workdays   []string `toml:"workdays"`    // e.g., ["monday", "tuesday", ...]
	DayStart   string   `toml:"day_start"`   // e.g., "09:00"
	DayEnd     string   `toml:"day_end"`     // e.g., "17:00"
	LunchStart string   `toml:"lunch_start"` // e.g., "12:30"
	LunchEnd   string   `toml:"lunch_end"`   // e.g., "13:30"
}

// LLMConfig holds LLM provider settings for duration estimation.
type LLMConfig struct {
	Provider string `toml:"provider"` // "ollama", "openai", or "" to disable
	Model    string `toml:"model"`    // e.g., "llama3.2"
	BaseURL  string `toml:"base_url"` // e.g., "http://localhost:11434"
}

// CalendarConfig holds external calendar settings.
type CalendarConfig struct {
	BaseURL    string `toml:"base_url"`    // calendar API endpoint, empty to disable
	CalendarID string `toml:"calendar_id"` // e.g., "primary"
	Token      string `toml:"token"`       // bearer token for the calendar API
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Workdays:   []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			DayStart:   "09:00",
			DayEnd:     "17:00",
			LunchStart: "12:30",
			LunchEnd:   "13:30",
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Calendar: CalendarConfig{
			CalendarID: "primary",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agendo.db"
	}
	return filepath.Join(home, ".local", "share", "agendo", "agendo.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "agendo", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENDO_DAY_START"); v != "" {
		cfg.Schedule.DayStart = v
	}
	if v := os.Getenv("AGENDO_DAY_END"); v != "" {
		cfg.Schedule.DayEnd = v
	}
	if v := os.Getenv("AGENDO_LUNCH_START"); v != "" {
		cfg.Schedule.LunchStart = v
	}
	if v := os.Getenv("AGENDO_LUNCH_END"); v != "" {
		cfg.Schedule.LunchEnd = v
	}
	if v := os.Getenv("AGENDO_WORKDAYS"); v != "" {
		cfg.Schedule.Workdays = strings.Split(v, ",")
	}

	if v := os.Getenv("AGENDO_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("AGENDO_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AGENDO_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("AGENDO_CALENDAR_URL"); v != "" {
		cfg.Calendar.BaseURL = v
	}
	if v := os.Getenv("AGENDO_CALENDAR_ID"); v != "" {
		cfg.Calendar.CalendarID = v
	}
	if v := os.Getenv("AGENDO_CALENDAR_TOKEN"); v != "" {
		cfg.Calendar.Token = v
	}

	if v := os.Getenv("AGENDO_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validateTime(c.Schedule.DayStart, "day_start"); err != nil {
		return err
	}
	if err := validateTime(c.Schedule.DayEnd, "day_end"); err != nil {
		return err
	}
	if c.Schedule.DayStart >= c.Schedule.DayEnd {
		return errors.New("day_start must be before day_end")
	}

	// Lunch must be configured as a pair and sit inside the workday.
	hasStart := c.Schedule.LunchStart != ""
	hasEnd := c.Schedule.LunchEnd != ""
	if hasStart != hasEnd {
		return errors.New("both lunch_start and lunch_end must be set, or neither")
	}
	if hasStart && hasEnd {
		if err := validateTime(c.Schedule.LunchStart, "lunch_start"); err != nil {
			return err
		}
		if err := validateTime(c.Schedule.LunchEnd, "lunch_end"); err != nil {
			return err
		}
		if c.Schedule.LunchStart >= c.Schedule.LunchEnd {
			return errors.New("lunch_start must be before lunch_end")
		}
		if c.Schedule.LunchStart < c.Schedule.DayStart || c.Schedule.LunchEnd > c.Schedule.DayEnd {
			return errors.New("lunch block must be within the workday")
		}
	}

	if len(c.Schedule.Workdays) == 0 {
		return errors.New("at least one workday must be configured")
	}
	for _, day := range c.Schedule.Workdays {
		if !isValidWeekday(day) {
			return fmt.Errorf("invalid workday: %s", day)
		}
	}
	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}
	return nil
}

// validateTime checks if a time string is in HH:MM format.
func validateTime(t, field string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	hour := t[0:2]
	min := t[3:5]
	if !isDigits(hour) || !isDigits(min) {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var validWeekdays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

func isValidWeekday(day string) bool {
	return validWeekdays[strings.ToLower(day)]
}

// HasLunch returns true if a lunch block is configured.
func (c *Config) HasLunch() bool {
	return c.Schedule.LunchStart != "" && c.Schedule.LunchEnd != ""
}

// HasCalendar returns true if an external calendar is configured.
func (c *Config) HasCalendar() bool {
	return c.Calendar.BaseURL != ""
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
