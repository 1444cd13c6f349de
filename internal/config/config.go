package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Sendgrid   SendgridConfig   `yaml:"sendgrid"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Timetable  TimetableConfig  `yaml:"timetable"`
	Backup     BackupConfig     `yaml:"backup"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled     bool               `yaml:"enabled"`
	Port        int                `yaml:"port"`
	AdminSecret string             `yaml:"admin_secret"`
	Auth        APIAuthConfig      `yaml:"auth"`
	RateLimit   APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	MessagingSID string `yaml:"messaging_sid"`
	APIKey       string `yaml:"api_key"`
}

type SendgridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
}

type SchedulerConfig struct {
	Enabled        bool
	Interval       time.Duration
	ReminderWindow time.Duration
	GatewayTimeout time.Duration
	LockTTL        time.Duration
}

// UnmarshalYAML parses duration fields from their "5m" string form.
func (s *SchedulerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled        bool   `yaml:"enabled"`
		Interval       string `yaml:"interval"`
		ReminderWindow string `yaml:"reminder_window"`
		GatewayTimeout string `yaml:"gateway_timeout"`
		LockTTL        string `yaml:"lock_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.Enabled = raw.Enabled
	for _, field := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"interval", raw.Interval, &s.Interval},
		{"reminder_window", raw.ReminderWindow, &s.ReminderWindow},
		{"gateway_timeout", raw.GatewayTimeout, &s.GatewayTimeout},
		{"lock_ttl", raw.LockTTL, &s.LockTTL},
	} {
		if field.src == "" {
			continue
		}
		d, err := time.ParseDuration(field.src)
		if err != nil {
			return fmt.Errorf("scheduler.%s: %w", field.name, err)
		}
		*field.dst = d
	}
	return nil
}

type TimetableConfig struct {
	Timezone string `yaml:"timezone"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment may already be populated.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Substitute ${VAR} references before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler interval %s is below the 1m minimum", c.Scheduler.Interval)
	}
	if c.Scheduler.ReminderWindow <= 0 {
		return errors.New("scheduler reminder window must be positive")
	}

	if c.API.Enabled && c.API.AdminSecret == "" {
		return errors.New("api.admin_secret is required when the API is enabled")
	}

	if c.Timetable.Timezone != "" {
		if _, err := time.LoadLocation(c.Timetable.Timezone); err != nil {
			return fmt.Errorf("invalid timetable timezone %q: %w", c.Timetable.Timezone, err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "lessonbook"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 5 * time.Minute
	}
	if c.Scheduler.ReminderWindow == 0 {
		c.Scheduler.ReminderWindow = 20 * time.Minute
	}
	if c.Scheduler.GatewayTimeout == 0 {
		c.Scheduler.GatewayTimeout = 10 * time.Second
	}
	if c.Scheduler.LockTTL == 0 {
		c.Scheduler.LockTTL = 4 * time.Minute
	}
	if c.Timetable.Timezone == "" {
		c.Timetable.Timezone = "America/Chicago"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// Location resolves the configured timetable timezone. Validate has already
// rejected unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timetable.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
