package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "default", cfg.Agent.Collection)
	assert.Len(t, cfg.LLM.Providers, 3)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Tracer.Enabled)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Agent.Collection)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
agent:
  collection: project-notes
  default_level: 2
llm:
  backends:
    qntm-generation: "ollama:llama3.1"
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "project-notes", cfg.Agent.Collection)
	assert.Equal(t, 2, cfg.Agent.DefaultLevel)
	assert.Equal(t, "ollama:llama3.1", cfg.LLM.Backends["qntm-generation"])
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Untouched sections keep their defaults.
	assert.Len(t, cfg.LLM.Providers, 3)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ATLAS_LOGGER_LEVEL", "warn")
	t.Setenv("ATLAS_COLLECTION", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "from-env", cfg.Agent.Collection)
}

func TestLoadExpandsAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	var found bool
	for _, pc := range cfg.LLM.Providers {
		if pc.Type == "anthropic" {
			found = true
			assert.Equal(t, "sk-from-env", pc.APIKey)
		}
	}
	require.True(t, found)
}

func TestLoadUnsetAPIKeyExpandsEmpty(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	for _, pc := range cfg.LLM.Providers {
		if pc.Type == "anthropic" {
			assert.Empty(t, pc.APIKey)
		}
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no providers", func(c *Config) { c.LLM.Providers = nil }},
		{"empty provider name", func(c *Config) { c.LLM.Providers[0].Name = "" }},
		{"duplicate provider name", func(c *Config) {
			c.LLM.Providers[1].Name = c.LLM.Providers[0].Name
		}},
		{"unknown provider type", func(c *Config) { c.LLM.Providers[0].Type = "mystery" }},
		{"level out of range", func(c *Config) { c.Agent.DefaultLevel = 4 }},
		{"bad logger format", func(c *Config) { c.Logger.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
