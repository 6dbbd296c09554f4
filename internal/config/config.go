// Package config loads and validates the Aetheria service configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LM      LMConfig      `yaml:"lm"`
	Agent   AgentConfig   `yaml:"agent"`
	Storage StorageConfig `yaml:"storage"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	// Addr is the bind address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// AuthSecret is the HMAC secret for bearer JWT validation. When empty,
	// tokens are treated as opaque user ids (development mode).
	AuthSecret string `yaml:"auth_secret"`
}

// LMConfig configures the language-model client.
type LMConfig struct {
	// Provider selects the adapter: "gemini" (default) or "openai".
	Provider string `yaml:"provider"`

	// APIKey is the provider credential.
	APIKey string `yaml:"api_key"`

	// ModelFast is the tier used for interactive dialogue.
	ModelFast string `yaml:"model_fast"`

	// ModelStrong is the tier used for long synthesis (summaries).
	ModelStrong string `yaml:"model_strong"`

	// AttemptTimeout bounds a single generate attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxRetries bounds retries on transient failures.
	MaxRetries int `yaml:"max_retries"`
}

// AgentConfig configures the orchestration loop.
type AgentConfig struct {
	// MaxToolIterations caps the tool-use loop per turn.
	MaxToolIterations int `yaml:"max_tool_iterations"`

	// HistoryLimit is the number of session messages loaded per turn.
	HistoryLimit int `yaml:"history_limit"`

	// WindowThreshold triggers the auto-summariser when the episodic
	// window exceeds it.
	WindowThreshold int `yaml:"window_threshold"`

	// WindowKeep is the episodic tail retained after summarisation.
	WindowKeep int `yaml:"window_keep"`

	// TurnTimeout is the hard cap on a whole turn.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// ToolTimeout bounds a single tool handler call.
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// TargetLanguage governs the stream sanitiser allow-set. Only
	// "zh-Hant" is currently recognised.
	TargetLanguage string `yaml:"target_language"`
}

// StorageConfig configures the repository.
type StorageConfig struct {
	// Driver selects the implementation: "sqlite" (default) or "memory".
	Driver string `yaml:"driver"`

	// DSN is the sqlite database path or URI.
	DSN string `yaml:"dsn"`
}

// ToolsConfig carries per-tool overrides.
type ToolsConfig struct {
	// Disabled lists tool names removed from the catalogue.
	Disabled []string `yaml:"disabled"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults applied before file values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		LM: LMConfig{
			Provider:       "gemini",
			ModelFast:      "gemini-2.0-flash",
			ModelStrong:    "gemini-1.5-pro",
			AttemptTimeout: 60 * time.Second,
			MaxRetries:     3,
		},
		Agent: AgentConfig{
			MaxToolIterations: 5,
			HistoryLimit:      12,
			WindowThreshold:   30,
			WindowKeep:        20,
			TurnTimeout:       180 * time.Second,
			ToolTimeout:       15 * time.Second,
			TargetLanguage:    "zh-Hant",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "aetheria.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks invariants that cannot be expressed in types.
func (c *Config) Validate() error {
	if c.LM.Provider != "gemini" && c.LM.Provider != "openai" {
		return fmt.Errorf("lm.provider must be gemini or openai, got %q", c.LM.Provider)
	}
	if c.LM.APIKey == "" {
		return fmt.Errorf("lm.api_key is required")
	}
	if c.Agent.MaxToolIterations <= 0 {
		return fmt.Errorf("agent.max_tool_iterations must be positive")
	}
	if c.Agent.WindowKeep >= c.Agent.WindowThreshold {
		return fmt.Errorf("agent.window_keep must be below agent.window_threshold")
	}
	if c.Agent.TargetLanguage != "zh-Hant" {
		return fmt.Errorf("agent.target_language: only zh-Hant is supported, got %q", c.Agent.TargetLanguage)
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "memory" {
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}
	return nil
}
