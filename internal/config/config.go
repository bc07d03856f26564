package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`
	Timezone     string `yaml:"timezone"`

	// Break reminder policy, all in minutes.
	ShortBreakInterval int `yaml:"short_break_interval"`
	ShortBreakDuration int `yaml:"short_break_duration"`
	LongBreakInterval  int `yaml:"long_break_interval"`
	LongBreakDuration  int `yaml:"long_break_duration"`

	NotificationsEnabled bool   `yaml:"notifications_enabled"`
	SoundEnabled         bool   `yaml:"sound_enabled"`
	WebhookURL           string `yaml:"webhook_url"`
	ProxyURL             string `yaml:"proxy_url"`

	AutoStartTracking bool `yaml:"auto_start_tracking"`
	StartMinimized    bool `yaml:"start_minimized"`

	IdleDetectionEnabled bool `yaml:"idle_detection_enabled"`
	IdleTimeout          int  `yaml:"idle_timeout"` // seconds

	ProductiveApps  []string `yaml:"productive_apps"`
	DistractingApps []string `yaml:"distracting_apps"`

	ReportSchedule string `yaml:"report_schedule"` // cron expression for the daily report
}

// Load reads the config file at path. A missing file yields the defaults; a
// malformed file is a warning and also yields the defaults. Unknown keys are
// ignored, missing keys fall back to defaults, and invalid break settings are
// clamped back to their defaults rather than rejected.
func Load(path string) *Config {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read config, using defaults", "path", path, "error", err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("malformed config, using defaults", "path", path, "error", err)
		return defaultConfig()
	}

	cfg.validate()
	return cfg
}

// Save writes the config back to path, creating it if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureFile writes the config to path only when no file exists yet, so a
// first run leaves an editable config behind. An existing file is never
// overwritten.
func (c *Config) EnsureFile(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return err
	}
	return c.Save(path)
}

func defaultConfig() *Config {
	return &Config{
		ListenAddr:           ":3041",
		DatabasePath:         "chronometer.db",
		Timezone:             "Local",
		ShortBreakInterval:   25,
		ShortBreakDuration:   5,
		LongBreakInterval:    100,
		LongBreakDuration:    15,
		NotificationsEnabled: true,
		SoundEnabled:         true,
		IdleDetectionEnabled: true,
		IdleTimeout:          300,
		ProductiveApps: []string{
			"code", "pycharm", "webstorm", "idea", "visual studio",
			"sublime", "atom", "vim", "nvim", "emacs",
			"word", "excel", "powerpoint", "outlook",
			"terminal", "cmd", "powershell", "iterm",
			"figma", "photoshop", "illustrator", "notion",
		},
		DistractingApps: []string{
			"youtube", "netflix", "twitch", "discord",
			"telegram", "whatsapp", "facebook", "twitter",
			"instagram", "tiktok", "reddit", "vk",
		},
		ReportSchedule: "5 0 * * *",
	}
}

// validate clamps invalid values back to defaults. Break intervals and
// durations must be positive integers; a zero or negative value never crashes
// the scheduler, it just falls back.
func (c *Config) validate() {
	def := defaultConfig()

	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.ReportSchedule == "" {
		c.ReportSchedule = def.ReportSchedule
	}
	if c.ShortBreakInterval <= 0 {
		slog.Warn("invalid short_break_interval, using default", "value", c.ShortBreakInterval)
		c.ShortBreakInterval = def.ShortBreakInterval
	}
	if c.ShortBreakDuration <= 0 {
		c.ShortBreakDuration = def.ShortBreakDuration
	}
	if c.LongBreakInterval <= 0 {
		slog.Warn("invalid long_break_interval, using default", "value", c.LongBreakInterval)
		c.LongBreakInterval = def.LongBreakInterval
	}
	if c.LongBreakDuration <= 0 {
		c.LongBreakDuration = def.LongBreakDuration
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.ProductiveApps == nil {
		c.ProductiveApps = def.ProductiveApps
	}
	if c.DistractingApps == nil {
		c.DistractingApps = def.DistractingApps
	}
}

// GetTimezone resolves the configured timezone, falling back to local time.
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
