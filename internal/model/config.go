package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment override,
// e.g. CAREERPLANNER_LIMITS_MAX_TASKS.
const envPrefix = "CAREERPLANNER"

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// ShutdownTimeout returns the graceful shutdown window.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// LimitsConfig holds the free-tier ceilings. A value <= 0 disables the limit.
type LimitsConfig struct {
	MaxActiveGoals int `mapstructure:"max_active_goals" yaml:"max_active_goals"`
	MaxMilestones  int `mapstructure:"max_milestones" yaml:"max_milestones"`
	MaxTasks       int `mapstructure:"max_tasks" yaml:"max_tasks"`
}

// SummaryConfig controls summary caching. CacheTTLSec of 0 disables the cache.
type SummaryConfig struct {
	CacheTTLSec int `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
}

// CacheTTL returns the summary cache lifetime.
func (c SummaryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// NotifyConfig describes where parent-system notices are delivered.
type NotifyConfig struct {
	AppKey                 string `mapstructure:"app_key" yaml:"app_key"`
	ParentAppURL           string `mapstructure:"parent_app_url" yaml:"parent_app_url"`
	NotificationWebhookURL string `mapstructure:"notification_webhook_url" yaml:"notification_webhook_url"`
	ActivityWebhookURL     string `mapstructure:"activity_webhook_url" yaml:"activity_webhook_url"`
	QueueSize              int    `mapstructure:"queue_size" yaml:"queue_size"`
	TimeoutSec             int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the per-delivery timeout.
func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LogConfig selects log verbosity and encoding ("text" or "json").
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Summary  SummaryConfig  `mapstructure:"summary" yaml:"summary"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/careerplanner, or the working directory
// when the home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "careerplanner")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/careerplanner/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns the built-in configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "careerplanner.db"),
		},
		Server: ServerConfig{
			Addr:               ":8080",
			ShutdownTimeoutSec: 10,
		},
		Limits: LimitsConfig{
			MaxActiveGoals: 3,
			MaxMilestones:  30,
			MaxTasks:       150,
		},
		Notify: NotifyConfig{
			AppKey:     SummaryAppID,
			QueueSize:  64,
			TimeoutSec: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults mirrors DefaultAppConfig into v so that env overrides and
// partially filled files resolve every key.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout_sec", d.Server.ShutdownTimeoutSec)
	v.SetDefault("limits.max_active_goals", d.Limits.MaxActiveGoals)
	v.SetDefault("limits.max_milestones", d.Limits.MaxMilestones)
	v.SetDefault("limits.max_tasks", d.Limits.MaxTasks)
	v.SetDefault("summary.cache_ttl_sec", d.Summary.CacheTTLSec)
	v.SetDefault("notify.app_key", d.Notify.AppKey)
	v.SetDefault("notify.parent_app_url", "")
	v.SetDefault("notify.notification_webhook_url", "")
	v.SetDefault("notify.activity_webhook_url", "")
	v.SetDefault("notify.queue_size", d.Notify.QueueSize)
	v.SetDefault("notify.timeout_sec", d.Notify.TimeoutSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// applying CAREERPLANNER_* environment overrides. A missing file yields the
// defaults (still subject to environment overrides).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = DefaultAppConfig().Notify.QueueSize
	}
	if cfg.Notify.AppKey == "" {
		cfg.Notify.AppKey = SummaryAppID
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("server", cfg.Server)
	v.Set("limits", cfg.Limits)
	v.Set("summary", cfg.Summary)
	v.Set("notify", cfg.Notify)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
