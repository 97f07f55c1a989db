package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"grider-status-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// FeedConfig covers the dashboard status feed.
type FeedConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	StatusPath     string        `mapstructure:"status_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// NotifyConfig defines message dispatch and toast behaviour.
type NotifyConfig struct {
	Webhook        WebhookConfig `mapstructure:"webhook"`
	ToastLifetime  time.Duration `mapstructure:"toast_lifetime"`
	ScheduleEvery  int           `mapstructure:"schedule_every"`
	IncomePerPoint int64         `mapstructure:"income_per_point"`
}

// WebhookConfig describes the chat webhook endpoint.
type WebhookConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Channel        string        `mapstructure:"channel"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SettingsConfig selects where notification settings persist.
type SettingsConfig struct {
	Source        string        `mapstructure:"source"`
	Path          string        `mapstructure:"path"`
	AutosaveDelay time.Duration `mapstructure:"autosave_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Settings source values.
const (
	SettingsSourceFile     = "file"
	SettingsSourceDatabase = "database"
)

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRIDERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "griderwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("feed.status_path", "api/latest-data.json")
	v.SetDefault("feed.request_timeout", "10s")
	v.SetDefault("feed.user_agent", "griderwatch/1.0")

	v.SetDefault("notify.toast_lifetime", "3s")
	v.SetDefault("notify.schedule_every", 120)
	v.SetDefault("notify.income_per_point", 120)
	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.webhook.request_timeout", "10s")

	v.SetDefault("settings.source", SettingsSourceFile)
	v.SetDefault("settings.path", "settings/grider-message-settings.json")
	v.SetDefault("settings.autosave_delay", "2s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Notify.ToastLifetime <= 0 {
		return fmt.Errorf("notify.toast_lifetime must be greater than zero")
	}
	if c.Notify.ScheduleEvery < 0 {
		return fmt.Errorf("notify.schedule_every cannot be negative")
	}
	if c.Notify.IncomePerPoint < 0 {
		return fmt.Errorf("notify.income_per_point cannot be negative")
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return fmt.Errorf("notify.webhook.url must be set when the webhook is enabled")
	}
	switch c.Settings.Source {
	case SettingsSourceFile:
		if c.Settings.Path == "" {
			return fmt.Errorf("settings.path must be set for file source")
		}
	case SettingsSourceDatabase:
		if c.Database.DSN == "" {
			return fmt.Errorf("settings.source=database requires database.dsn")
		}
	default:
		return fmt.Errorf("settings.source must be %q or %q", SettingsSourceFile, SettingsSourceDatabase)
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
