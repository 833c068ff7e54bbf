package main

import (
	"fmt"
	"log/slog"

	"atlas/internal/adapter/llm"
	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

// initLLM builds the backend registry and selector from configuration.
// Backends with a failed availability probe are skipped with a debug log,
// never a fatal error; at least one backend must remain registered.
func initLLM(cfg *config.Config, log *slog.Logger) (domain.BackendResolver, error) {
	registry := llm.NewRegistry()
	cbCfg := cfg.LLM.CircuitBreaker

	for _, pc := range cfg.LLM.Providers {
		backend, err := createBackend(pc, log)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", pc.Name, err)
		}

		if prober, ok := backend.(llm.Prober); ok {
			if avail := prober.Probe(); !avail.Available {
				log.Debug("skipping unavailable backend",
					"backend", pc.Name, "reason", avail.Reason)
				continue
			}
		}

		if cbCfg.Enabled {
			backend = llm.NewCircuitBreakerBackend(backend, cbCfg, log)
		}

		registry.Register(backend)
		log.Info("backend registered",
			"backend", backend.Name(), "capabilities", backend.Capabilities())
	}

	if len(registry.All()) == 0 {
		return nil, fmt.Errorf("no backends available after probing")
	}

	if cbCfg.Enabled {
		log.Info("circuit breaker enabled",
			"max_failures", cbCfg.MaxFailures,
			"timeout", cbCfg.Timeout,
			"interval", cbCfg.Interval,
		)
	}

	return llm.NewSelector(registry, cfg.LLM.Backends, log), nil
}

// createBackend constructs the adapter for a provider entry.
func createBackend(pc config.ProviderConfig, log *slog.Logger) (domain.Backend, error) {
	switch pc.Type {
	case "claude-cli":
		return llm.NewClaudeCLIBackend(pc, log), nil
	case "ollama":
		return llm.NewOllamaBackend(pc, log), nil
	case "anthropic":
		return llm.NewAnthropicBackend(pc, log), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
}
