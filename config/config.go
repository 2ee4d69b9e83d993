// Package config handles reading interviewagent.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIKey       = "INTERVIEWAGENT_API_KEY"
	EnvCookieSecret = "INTERVIEWAGENT_COOKIE_SECRET"
)

// Config is the top-level structure for interviewagent.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Questions QuestionsConfig `yaml:"questions"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	CookieSecret      string        `yaml:"cookie_secret"`
	SecureCookies     bool          `yaml:"secure_cookies"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// LLMConfig selects and configures the text generation backend.
type LLMConfig struct {
	Provider      string        `yaml:"provider"` // "eino" | "openai"
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	JSONMode      bool          `yaml:"json_mode"`
	TranscriptDir string        `yaml:"transcript_dir"`
	// Language is used when a session has no locale of its own.
	Language string `yaml:"language"`
}

type QuestionsConfig struct {
	SQLitePath         string        `yaml:"sqlite_path"`
	Timeout            time.Duration `yaml:"timeout"`
	AllowPartialGroups bool          `yaml:"allow_partial_groups"`
	DefaultLanguage    string        `yaml:"default_language"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	HistoryWindow int           `yaml:"history_window"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "eino",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  20 * time.Second,
			JSONMode: true,
			Language: "English",
		},
		Questions: QuestionsConfig{
			SQLitePath:         "questions.db",
			Timeout:            5 * time.Second,
			AllowPartialGroups: true,
			DefaultLanguage:    "en",
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
			HistoryWindow: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ReadConfig reads a config file on top of the defaults. An empty path
// yields the defaults. Environment overrides are applied last.
func ReadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// WriteConfig writes cfg to path.
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvCookieSecret); v != "" {
		c.Server.CookieSecret = v
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "eino", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be eino or openai, got %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if c.Questions.SQLitePath == "" {
		errs = append(errs, errors.New("questions.sqlite_path is required"))
	}
	if c.Session.TTL < 0 || c.Session.SweepInterval < 0 {
		errs = append(errs, errors.New("session.ttl and session.sweep_interval must not be negative"))
	}
	if c.Session.HistoryWindow < 0 {
		errs = append(errs, errors.New("session.history_window must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateServer checks the extra settings needed to serve HTTP.
func (c *Config) ValidateServer() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if n := len(c.Server.CookieSecret); n < 32 {
		return fmt.Errorf("server.cookie_secret must be at least 32 bytes, got %d (or set %s)", n, EnvCookieSecret)
	}
	return nil
}
