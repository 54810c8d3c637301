// Package config loads and validates bot configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Reddit     RedditConfig     `mapstructure:"reddit"`
	Airtable   AirtableConfig   `mapstructure:"airtable"`
	Store      StoreConfig      `mapstructure:"store"`
	Publish    PublishConfig    `mapstructure:"publish"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RedditConfig holds feed credentials and stream tunables.
type RedditConfig struct {
	UserAgent    string `mapstructure:"user_agent"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Subreddit    string `mapstructure:"subreddit"`
	PollSeconds  int    `mapstructure:"poll_seconds"`
	PageLimit    int    `mapstructure:"page_limit"`
}

// AirtableConfig identifies the rule table.
type AirtableConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseID         string `mapstructure:"base_id"`
	Table          string `mapstructure:"table"`
	APIVersion     int    `mapstructure:"api_version"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StoreConfig selects and configures the dedupe ledger backend.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// PublishConfig governs retry behavior around posting replies.
type PublishConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	WaitSeconds int `mapstructure:"wait_seconds"`
}

// SupervisorConfig controls the restart cycle.
type SupervisorConfig struct {
	RestartWaitSeconds int `mapstructure:"restart_wait_seconds"`
}

// NotifyConfig holds metadata for reply-posted notifications.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the operational HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reddit.user_agent", "inkbot/1.0 (by /u/inkbot)")
	v.SetDefault("reddit.subreddit", "fountainpens")
	v.SetDefault("reddit.poll_seconds", 15)
	v.SetDefault("reddit.page_limit", 100)
	v.SetDefault("airtable.api_version", 4)
	v.SetDefault("airtable.timeout_seconds", 30)
	v.SetDefault("store.provider", "sqlite")
	v.SetDefault("store.table", "replies")
	v.SetDefault("publish.max_attempts", 20)
	v.SetDefault("publish.wait_seconds", 60)
	v.SetDefault("supervisor.restart_wait_seconds", 60)
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Reddit.Username == "" || c.Reddit.Password == "" {
		return fmt.Errorf("reddit.username and reddit.password are required")
	}
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return fmt.Errorf("reddit.client_id and reddit.client_secret are required")
	}
	if c.Reddit.Subreddit == "" {
		return fmt.Errorf("reddit.subreddit is required")
	}
	if c.Airtable.APIKey == "" || c.Airtable.BaseID == "" || c.Airtable.Table == "" {
		return fmt.Errorf("airtable.api_key, airtable.base_id, and airtable.table are required")
	}
	switch c.Store.Provider {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	switch c.Notify.Provider {
	case "noop":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicName == "" {
			return fmt.Errorf("notify.project_id and notify.topic_name are required when notify.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}
	if c.Publish.MaxAttempts <= 0 {
		return fmt.Errorf("publish.max_attempts must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// PublishWait is the fixed interval between posting attempts.
func (c Config) PublishWait() time.Duration {
	return time.Duration(c.Publish.WaitSeconds) * time.Second
}

// RestartWait is the pause before a supervisor restart.
func (c Config) RestartWait() time.Duration {
	return time.Duration(c.Supervisor.RestartWaitSeconds) * time.Second
}

// PollInterval is the comment stream's idle polling interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Reddit.PollSeconds) * time.Second
}

// AirtableTimeout bounds one rule-source HTTP request.
func (c Config) AirtableTimeout() time.Duration {
	return time.Duration(c.Airtable.TimeoutSeconds) * time.Second
}

// StorePath resolves the sqlite ledger path, defaulting to the bot's data
// directory under the user's home.
func (c Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "inkbot", "replies.db"), nil
}
