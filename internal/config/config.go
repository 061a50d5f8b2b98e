// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Retry    RetryConfig    `mapstructure:"retry"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Services ServicesConfig `mapstructure:"services"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures the URL resolver's outbound HTTP behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// RetryConfig governs the retrier's backoff schedule and worker pool.
type RetryConfig struct {
	InitialBackoffMs int     `mapstructure:"initial_backoff_ms"`
	BackoffBase      float64 `mapstructure:"backoff_base"`
	MaxFailures      int     `mapstructure:"max_failures"`
	PoolSize         int     `mapstructure:"pool_size"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScrapeConfig selects the page metadata scraper. With no endpoint the
// in-process scraper is used.
type ScrapeConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ServicesConfig holds the auxiliary service base URLs. With no cleaner URL
// the in-process readability cleaner is used.
type ServicesConfig struct {
	CleanerBaseURL     string `mapstructure:"cleaner_base_url"`
	TranscriptsBaseURL string `mapstructure:"transcripts_base_url"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
}

// PubSubConfig holds metadata for convergence event publishing. An empty
// project ID selects the in-memory publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("READR")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "readr/1.0")
	v.SetDefault("retry.initial_backoff_ms", 100)
	v.SetDefault("retry.backoff_base", 2.5)
	v.SetDefault("retry.max_failures", 5)
	v.SetDefault("retry.pool_size", 16)
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("scrape.timeout_seconds", 60)
	v.SetDefault("services.timeout_seconds", 60)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("pubsub.topic_name", "content-events")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Retry.MaxFailures <= 0 {
		return fmt.Errorf("retry.max_failures must be > 0")
	}
	if c.Retry.BackoffBase < 1 {
		return fmt.Errorf("retry.backoff_base must be >= 1")
	}
	if c.Retry.PoolSize <= 0 {
		return fmt.Errorf("retry.pool_size must be > 0")
	}
	if c.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint must be set")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	return nil
}

// HTTPTimeout returns the resolver's request timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the retrier's first backoff delay as a duration.
func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMs) * time.Millisecond
}
