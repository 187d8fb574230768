package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"courtbook/internal/slots"
)

type Config struct {
	Server struct {
		Address             string `yaml:"address"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
		ManagerAPIKey       string `yaml:"manager_api_key"`
	} `yaml:"server"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		Debug    bool    `yaml:"debug"`
		Managers []int64 `yaml:"managers"`
		Digest   struct {
			Enabled  bool   `yaml:"enabled"`
			Timezone string `yaml:"timezone"`
			Time     string `yaml:"time"` // "20:00"
		} `yaml:"digest"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		MinDurationMinutes      int `yaml:"min_duration_minutes"`
		MaxSubscriptionDays     int `yaml:"max_subscription_days"`
		DefaultSubscriptionDays int `yaml:"default_subscription_days"`
	} `yaml:"booking"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	CatalogPath          string `yaml:"catalog_path"`
	CatalogReloadSeconds int    `yaml:"catalog_reload_seconds"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/courtbook.db"
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = "configs/courts.yaml"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadCatalog loads the court catalog referenced by the config.
func (c *Config) LoadCatalog() (*Catalog, error) {
	return LoadCatalog(c.CatalogPath)
}

func (c *Config) BookingMinDuration() time.Duration {
	if c.Booking.MinDurationMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.Booking.MinDurationMinutes) * time.Minute
}

// MaxSubscriptionDays caps the length of a subscription date range.
func (c *Config) MaxSubscriptionDays() int {
	if c.Booking.MaxSubscriptionDays <= 0 {
		return 180
	}
	return c.Booking.MaxSubscriptionDays
}

// DefaultSubscriptionDays is how far the end date lands after the start when
// a subscription request omits it.
func (c *Config) DefaultSubscriptionDays() int {
	if c.Booking.DefaultSubscriptionDays <= 0 {
		return 30
	}
	return c.Booking.DefaultSubscriptionDays
}

// DigestClock returns the hour and minute of the daily manager digest.
func (c *Config) DigestClock() (hour, minute int, err error) {
	raw := c.Telegram.Digest.Time
	if raw == "" {
		return 20, 0, nil
	}
	m, err := slots.ParseClock(raw)
	if err != nil || m >= slots.MinutesPerDay {
		return 0, 0, fmt.Errorf("telegram.digest.time: invalid clock %q", raw)
	}
	return m / 60, m % 60, nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) CatalogReloadInterval() time.Duration {
	if c.CatalogReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CatalogReloadSeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}
