package llm

import (
	"log/slog"

	"atlas/internal/domain"
)

// Compile-time interface assertion.
var _ domain.BackendResolver = (*Selector)(nil)

// Selector resolves a capability (optionally biased by a task domain) to a
// concrete backend. Precedence: task override → capability override →
// registry registration order. A configured override naming an unregistered
// backend is logged and skipped, never fatal.
type Selector struct {
	registry  *Registry
	overrides map[string]string // task domain or capability → backend name
	logger    *slog.Logger
}

// NewSelector creates a Selector over the registry. overrides maps either a
// capability name ("json-completion") or a task domain ("qntm-generation")
// to a backend name.
func NewSelector(registry *Registry, overrides map[string]string, logger *slog.Logger) *Selector {
	return &Selector{
		registry:  registry,
		overrides: overrides,
		logger:    logger,
	}
}

// Resolve implements domain.BackendResolver. task may be empty.
func (s *Selector) Resolve(capability, task string) (domain.Backend, error) {
	if task != "" {
		if name, ok := s.overrides[task]; ok {
			if backend := s.registry.Get(name); backend != nil {
				s.logger.Debug("resolved backend via task override",
					"task", task, "backend", name)
				return backend, nil
			}
			s.logger.Warn("task override names unregistered backend, falling through",
				"task", task, "backend", name)
		}
	}

	if name, ok := s.overrides[capability]; ok {
		if backend := s.registry.Get(name); backend != nil {
			s.logger.Debug("resolved backend via capability override",
				"capability", capability, "backend", name)
			return backend, nil
		}
		s.logger.Warn("capability override names unregistered backend, falling through",
			"capability", capability, "backend", name)
	}

	if backend := s.registry.GetFor(capability); backend != nil {
		return backend, nil
	}

	return nil, domain.NewDomainError("Selector.Resolve",
		domain.ErrNoBackendForCapability, capability)
}
