// Package config loads and validates the application configuration from
// YAML, with environment overrides for deployment settings and ${VAR}
// expansion for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	LLM    LLMConfig    `yaml:"llm"`
	Memory MemoryConfig `yaml:"memory"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// AgentConfig holds engine-level settings.
type AgentConfig struct {
	// Collection is the key-store collection existing keys are read from
	// and new keys are written to.
	Collection string `yaml:"collection"`
	// DefaultLevel is the abstraction level used when none is requested (0-3).
	DefaultLevel int `yaml:"default_level"`
}

// LLMConfig holds completion backend settings.
type LLMConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	// Backends maps a capability name ("json-completion") or a task domain
	// ("qntm-generation", "query-expansion", "consolidation") to the name
	// of a registered backend. Task entries take precedence over
	// capability entries; unknown names fall through to registration order.
	Backends       map[string]string    `yaml:"backends,omitempty"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for backends.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// ProviderConfig holds settings for a single completion backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "claude-cli", "ollama", "anthropic"
	BaseURL     string        `yaml:"base_url,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"` // supports ${ENV_VAR} expansion
	Model       string        `yaml:"model,omitempty"`
	Binary      string        `yaml:"binary,omitempty"` // claude-cli only
	ConnTimeout time.Duration `yaml:"conn_timeout,omitempty"`
	RespTimeout time.Duration `yaml:"resp_timeout,omitempty"`
	// RequestsPerSecond enables a client-side rate limiter when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// MemoryConfig holds key-store settings.
type MemoryConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under $HOME/.atlas/data.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".atlas", "data")
}

// Defaults returns a Config with sensible defaults: the CLI and local
// Ollama backends registered unconditionally, and the Anthropic backend
// gated on its API key environment variable.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Collection:   "default",
			DefaultLevel: 0,
		},
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Name: "claude-cli", Type: "claude-cli"},
				{Name: "ollama:llama3.1", Type: "ollama", Model: "llama3.1"},
				{
					Name:   "anthropic:claude-sonnet-4-5",
					Type:   "anthropic",
					Model:  "claude-sonnet-4-5",
					APIKey: "${ANTHROPIC_API_KEY}",
				},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Memory: MemoryConfig{
			DataDir: defaultDataDir(),
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the config file at path, merging it over Defaults. A missing
// file is not an error: defaults plus environment overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			expandSecrets(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	expandSecrets(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides maps ATLAS_* env vars to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATLAS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("ATLAS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("ATLAS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("ATLAS_MEMORY_DATA_DIR"); v != "" {
		cfg.Memory.DataDir = v
	}
	if v := os.Getenv("ATLAS_COLLECTION"); v != "" {
		cfg.Agent.Collection = v
	}
}

// expandSecrets expands ${VAR} references in provider API keys. An
// unresolved reference expands to "" and the backend's probe will report
// it unavailable; that is the graceful-degradation path, not an error.
func expandSecrets(cfg *Config) {
	for i := range cfg.LLM.Providers {
		cfg.LLM.Providers[i].APIKey = os.ExpandEnv(cfg.LLM.Providers[i].APIKey)
	}
}
