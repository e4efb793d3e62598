package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"garagedesk/internal/engine/policy"
)

// Config models garagedesk.yml.
type Config struct {
	Garage struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"garage"`
	Surfaces struct {
		Intake        string `yaml:"intake"`
		InProgress    string `yaml:"in_progress"`
		Completed     string `yaml:"completed"`
		Disputed      string `yaml:"disputed"`
		Announcements string `yaml:"announcements"`
	} `yaml:"surfaces"`
	// Roles maps external role identifiers (as delivered by the chat
	// platform) to canonical rank names. Resolved once at config load,
	// never matched by display-name text at decision time.
	Roles   map[string]string `yaml:"roles"`
	Reports struct {
		Daily   ReportSchedule `yaml:"daily"`
		Weekly  ReportSchedule `yaml:"weekly"`
		Monthly ReportSchedule `yaml:"monthly"`
	} `yaml:"reports"`
	Moderation struct {
		BannedWords   []string `yaml:"banned_words"`
		MaxMessages   int      `yaml:"max_messages"`
		WindowSeconds int      `yaml:"window_seconds"`
	} `yaml:"moderation"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type ReportSchedule struct {
	Enabled bool `yaml:"enabled"`
	Hour    int  `yaml:"hour"`
	Minute  int  `yaml:"minute"`
	// DayOfWeek picks the weekday for the weekly report: 0 is Sunday,
	// matching time.Weekday. Ignored by the daily and monthly schedules.
	DayOfWeek int `yaml:"day_of_week"`
	// DayOfMonth picks the day for the monthly report, 1 through 28 so
	// every month qualifies. Zero means the 1st.
	DayOfMonth int    `yaml:"day_of_month"`
	Surface    string `yaml:"surface"`
}

func (s ReportSchedule) validate(period string) error {
	if !s.Enabled {
		return nil
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("reports.%s.hour %d out of range", period, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("reports.%s.minute %d out of range", period, s.Minute)
	}
	if period == "weekly" && (s.DayOfWeek < 0 || s.DayOfWeek > 6) {
		return fmt.Errorf("reports.weekly.day_of_week %d out of range", s.DayOfWeek)
	}
	if period == "monthly" && (s.DayOfMonth < 0 || s.DayOfMonth > 28) {
		return fmt.Errorf("reports.monthly.day_of_month %d out of range", s.DayOfMonth)
	}
	return nil
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run gd init or copy a garagedesk.yml", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Garage.ID == "" {
		return fmt.Errorf("config.garage.id is required")
	}
	for roleID, rankName := range c.Roles {
		if roleID == "" {
			return fmt.Errorf("config.roles contains empty role id")
		}
		if policy.ParseRank(rankName) == policy.RankNone {
			return fmt.Errorf("role %s maps to unknown rank %s", roleID, rankName)
		}
	}
	if err := c.Reports.Daily.validate("daily"); err != nil {
		return err
	}
	if err := c.Reports.Weekly.validate("weekly"); err != nil {
		return err
	}
	if err := c.Reports.Monthly.validate("monthly"); err != nil {
		return err
	}
	if c.Moderation.MaxMessages < 0 || c.Moderation.WindowSeconds < 0 {
		return fmt.Errorf("moderation limits must be non-negative")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// RanksFor resolves an actor's external role identifiers to ranks using the
// config role map. Unknown role ids are skipped.
func (c *Config) RanksFor(roleIDs []string) []policy.Rank {
	var ranks []policy.Rank
	for _, id := range roleIDs {
		name, ok := c.Roles[id]
		if !ok {
			continue
		}
		if r := policy.ParseRank(name); r != policy.RankNone {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

// Surface returns the configured name for a canonical surface, falling back
// to the canonical name itself.
func (c *Config) Surface(canonical string) string {
	switch canonical {
	case "intake":
		if c.Surfaces.Intake != "" {
			return c.Surfaces.Intake
		}
	case "in_progress":
		if c.Surfaces.InProgress != "" {
			return c.Surfaces.InProgress
		}
	case "completed":
		if c.Surfaces.Completed != "" {
			return c.Surfaces.Completed
		}
	case "disputed":
		if c.Surfaces.Disputed != "" {
			return c.Surfaces.Disputed
		}
	case "announcements":
		if c.Surfaces.Announcements != "" {
			return c.Surfaces.Announcements
		}
	}
	return canonical
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "garagedesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(garageID string) string {
	return fmt.Sprintf(defaultTemplate, garageID)
}

// Default returns the default Config struct for a garage.
func Default(garageID string) *Config {
	var cfg Config
	cfg.Garage.ID = garageID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, garageID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `garage:
  id: %s
  name: Auto Exotic

surfaces:
  intake: repair-requests
  in_progress: workshop-floor
  completed: finished-jobs
  disputed: disputes
  announcements: announcements

roles:
  role-trainee: trainee
  role-junior-mechanic: junior
  role-mechanic: mechanic
  role-senior-mechanic: senior
  role-head-mechanic: head
  role-owner: owner

reports:
  daily:
    enabled: false
    hour: 23
    minute: 0
    surface: completed
  weekly:
    enabled: false
    hour: 23
    minute: 0
    day_of_week: 0
    surface: completed
  monthly:
    enabled: false
    hour: 23
    minute: 0
    day_of_month: 1
    surface: completed

moderation:
  banned_words: []
  max_messages: 5
  window_seconds: 10
`
