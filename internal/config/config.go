// Package config provides application configuration.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds all front-end configuration. The same struct serves every
// variant; each main supplies its own Defaults for the fields the variants
// disagree on.
type Config struct {
	Port         string `env:"PORT"`
	AppURL       string `env:"APP_URL" envDefault:"http://0.0.0.0:8000"`
	AgentVersion string `env:"AGENT_VERSION" envDefault:"0.1.0"`
	A2APort      string `env:"A2A_PORT" envDefault:"8100"`
	ModelName    string `env:"MODEL_NAME" envDefault:"gpt-4o-mini"`
	FrontendDir  string `env:"FRONTEND_DIR" envDefault:"frontend"`
	DBPath       string `env:"DB_PATH" envDefault:"data/courseforge.db"`
	Env          string `env:"APP_ENV" envDefault:"development"`

	TraceConsole bool `env:"TRACE_CONSOLE" envDefault:"false"`

	Retention       RetentionConfig
	ConversationLog ConversationLogConfig
}

// RetentionConfig controls pruning of recorded chat turns.
type RetentionConfig struct {
	Days     int    `env:"TURN_RETENTION_DAYS" envDefault:"30"`
	Schedule string `env:"TURN_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
}

// ConversationLogConfig controls NDJSON conversation transcripts.
type ConversationLogConfig struct {
	Enabled       bool   `env:"CONVERSATION_LOG_ENABLED" envDefault:"false"`
	Dir           string `env:"CONVERSATION_LOG_DIR" envDefault:"logs/conversations"`
	GlobalEnabled bool   `env:"CONVERSATION_LOG_GLOBAL" envDefault:"false"`
	GlobalPath    string `env:"CONVERSATION_LOG_GLOBAL_PATH" envDefault:"logs/conversations/all.ndjson"`
	QueueSize     int    `env:"CONVERSATION_LOG_QUEUE" envDefault:"256"`
}

// Defaults carries the per-variant fallbacks applied when the corresponding
// environment variable is unset.
type Defaults struct {
	Port string
}

// Load reads configuration from environment variables.
func Load(d Defaults) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = d.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("MODEL_NAME cannot be empty")
	}
	if c.ConversationLog.Enabled {
		if c.ConversationLog.Dir == "" {
			return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
		}
		if c.ConversationLog.QueueSize <= 0 {
			return fmt.Errorf("CONVERSATION_LOG_QUEUE must be > 0")
		}
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}
