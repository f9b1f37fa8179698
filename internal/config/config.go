// Package config loads and validates the Parley configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the root configuration for Parley.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Context   ContextConfig   `yaml:"context,omitempty"`
	Generator GeneratorConfig `yaml:"generator,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "all"
}

// StorageConfig controls the durable store.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"` // defaults to <data dir>/parley.db
}

// ContextConfig controls the session context cache.
type ContextConfig struct {
	MaxTurns   int `yaml:"maxTurns,omitempty"`   // turns kept per session
	TTLMinutes int `yaml:"ttlMinutes,omitempty"` // sliding idle expiry
}

// GeneratorConfig selects and configures the reply generator.
type GeneratorConfig struct {
	Provider string `yaml:"provider,omitempty"` // "openai" | "mock"
	APIKey   string `yaml:"apiKey,omitempty"`   // supports ${ENV_VAR}
	BaseURL  string `yaml:"baseUrl,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8410,
			Bind: "loopback",
		},
		Context: ContextConfig{
			MaxTurns:   10,
			TTLMinutes: 120,
		},
		Generator: GeneratorConfig{
			Provider: "mock",
			Model:    "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports problems that make the config unusable.
func (c *Config) Validate() error {
	if c.Context.MaxTurns < 1 {
		return &ConfigError{Message: "context.maxTurns must be at least 1"}
	}
	if c.Context.TTLMinutes < 1 {
		return &ConfigError{Message: "context.ttlMinutes must be at least 1"}
	}
	switch c.Generator.Provider {
	case "openai":
		if c.Generator.APIKey == "" {
			return &ConfigError{Message: "generator.apiKey is required for the openai provider"}
		}
	case "mock":
	default:
		return &ConfigError{Message: "unknown generator.provider: " + c.Generator.Provider}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Message: "server.port out of range"}
	}
	return nil
}
