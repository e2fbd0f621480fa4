// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// OIDCOptions configures single sign-on. SSO is enabled when an issuer is set.
type OIDCOptions struct {
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Enabled reports whether SSO is configured.
func (o OIDCOptions) Enabled() bool {
	return o.Issuer != ""
}

// LLMOptions configures the assistant's completion backend. The assistant is
// disabled without an API key.
type LLMOptions struct {
	APIKey      string  `env:"API_KEY"`
	BaseURL     string  `env:"BASE_URL" envDefault:"https://api.deepseek.com"`
	Model       string  `env:"MODEL" envDefault:"deepseek-chat"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int64   `env:"MAX_TOKENS" envDefault:"2048"`
}

// Config holds every setting read at startup.
type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	WebDir         string        `env:"WEB_DIR" envDefault:"web"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	Store          string        `env:"STORE" envDefault:"postgres"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	ForwardAuth    bool          `env:"FORWARD_AUTH" envDefault:"true"`
	ImportMaxBytes int64         `env:"IMPORT_MAX_BYTES" envDefault:"10485760"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`

	OIDC OIDCOptions `envPrefix:"OIDC_"`
	LLM  LLMOptions  `envPrefix:"LLM_"`
}

// LoadEnv loads the given .env files that exist and reports how many were
// read. Variables already set in the process environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads .env and .env.local when present, then parses and validates the
// process environment.
func Load() (*Config, error) {
	if _, err := LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return Parse(env.Options{})
}

// Parse builds a Config with opts, which tests use to supply a fixed
// environment.
func Parse(opts env.Options) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE is 'postgres'"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be 'postgres' or 'memory', got '%s'", c.Store))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got '%s'", c.LogFormat))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.ImportMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_MAX_BYTES must be positive, got %d", c.ImportMaxBytes))
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		errs = append(errs, errors.New("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER is set"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	return errors.Join(errs...)
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
