package config

import "fmt"

// knownProviderTypes are the backend adapter types the engine can build.
var knownProviderTypes = map[string]bool{
	"claude-cli": true,
	"ollama":     true,
	"anthropic":  true,
}

// Validate checks structural invariants of the configuration.
func Validate(cfg *Config) error {
	if len(cfg.LLM.Providers) == 0 {
		return fmt.Errorf("config: at least one llm provider is required")
	}

	seen := make(map[string]bool, len(cfg.LLM.Providers))
	for _, pc := range cfg.LLM.Providers {
		if pc.Name == "" {
			return fmt.Errorf("config: provider with empty name")
		}
		if seen[pc.Name] {
			return fmt.Errorf("config: duplicate provider name %q", pc.Name)
		}
		seen[pc.Name] = true
		if !knownProviderTypes[pc.Type] {
			return fmt.Errorf("config: provider %q has unknown type %q", pc.Name, pc.Type)
		}
	}

	if cfg.Agent.DefaultLevel < 0 || cfg.Agent.DefaultLevel > 3 {
		return fmt.Errorf("config: default_level must be 0-3, got %d", cfg.Agent.DefaultLevel)
	}

	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logger format %q", cfg.Logger.Format)
	}

	return nil
}
