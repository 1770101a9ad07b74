// Package config loads process configuration from defaults, an optional YAML
// file and TASKROOM_* environment variables, in increasing precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvProduction is the env value that turns on production checks.
const EnvProduction = "production"

// Config is the full process configuration.
type Config struct {
	Env                string        `mapstructure:"env"`
	Addr               string        `mapstructure:"addr"`
	PublicURL          string        `mapstructure:"public_url"`
	DBPath             string        `mapstructure:"db_path"`
	LogLevel           string        `mapstructure:"log_level"`
	SecretKey          string        `mapstructure:"secret_key"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	Backend            BackendConfig `mapstructure:"backend"`
	Email              EmailConfig   `mapstructure:"email"`
	Tracing            TracingConfig `mapstructure:"tracing"`
	Outbox             OutboxConfig  `mapstructure:"outbox"`

	secret []byte
}

// BackendConfig points at the hosted auth + data backend.
type BackendConfig struct {
	URL            string        `mapstructure:"url"`
	AnonKey        string        `mapstructure:"anon_key"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// EmailConfig selects the outbound email sender.
type EmailConfig struct {
	ResendKey string `mapstructure:"resend_key"`
	From      string `mapstructure:"from"`
	ReplyTo   string `mapstructure:"reply_to"`
}

// TracingConfig configures the OTLP trace exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	Insecure   bool    `mapstructure:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// OutboxConfig tunes the background outbox worker.
type OutboxConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration. path may be empty, in which case TASKROOM_CONFIG
// names the file, and with neither set only defaults and env apply.
// PRE: none
// POST: Returns a validated Config with a usable secret key, or an error
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.loadSecret(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "")
	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")
	v.SetDefault("public_url", "")
	v.SetDefault("db_path", "taskroom.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("secret_key", "")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("rate_limit_per_minute", 600)

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.anon_key", "")
	v.SetDefault("backend.service_role_key", "")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.from", "Taskroom <noreply@taskroom.local>")
	v.SetDefault("email.reply_to", "")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("outbox.interval", "1m")
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("config: backend.url is required (TASKROOM_BACKEND_URL)")
	}
	if c.Backend.AnonKey == "" {
		return errors.New("config: backend.anon_key is required (TASKROOM_BACKEND_ANON_KEY)")
	}
	if c.IsProduction() && c.SecretKey == "" {
		return errors.New("config: secret_key is required in production (TASKROOM_SECRET_KEY)")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: session_ttl must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("config: rate_limit_per_minute must be positive")
	}
	if c.Outbox.Interval <= 0 {
		return errors.New("config: outbox.interval must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.New("config: tracing.sample_rate must be between 0 and 1")
	}
	return nil
}

// loadSecret decodes secret_key, or generates a random one outside production.
func (c *Config) loadSecret() error {
	if c.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("config: generate secret key: %w", err)
		}
		c.secret = key
		return nil
	}
	key, err := hex.DecodeString(c.SecretKey)
	if err != nil || len(key) != 32 {
		return errors.New("config: secret_key must be 64 hex characters (32 bytes)")
	}
	c.secret = key
	return nil
}

// Secret returns the 32-byte application secret.
func (c *Config) Secret() []byte {
	return c.secret
}

// SecretGenerated reports whether the secret was generated for this run
// and so will not survive a restart.
func (c *Config) SecretGenerated() bool {
	return c.SecretKey == ""
}

// LoginURL is the absolute login page address used in emails, or "" when
// public_url is unset.
func (c *Config) LoginURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicURL, "/") + "/login"
}

// IsProduction reports whether env is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
