package llm

import (
	"sync"

	"atlas/internal/domain"
)

// Registry holds named completion backends and a derived capability index.
//
// The capability index preserves registration order: GetFor returns the
// earliest-registered backend for a capability, a deliberate insertion-order
// tie-break rather than any scoring model. The RWMutex makes individual
// operations safe; consistency across a Clear/re-register cycle and
// concurrent in-flight lookups is an explicit non-goal — configuration
// reload should build a fresh Registry and swap the reference instead of
// mutating a shared instance.
type Registry struct {
	mu           sync.RWMutex
	backends     map[string]domain.Backend
	order        []string                    // registration order of names
	capabilities map[string][]domain.Backend // capability → backends, registration order
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:     make(map[string]domain.Backend),
		capabilities: make(map[string][]domain.Backend),
	}
}

// Register adds a backend, replacing any prior backend with the same name
// in both the name map and every capability list it was indexed under.
func (r *Registry) Register(backend domain.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := backend.Name()
	if _, exists := r.backends[name]; exists {
		r.removeLocked(name)
	}

	r.backends[name] = backend
	r.order = append(r.order, name)
	for _, cap := range backend.Capabilities() {
		r.capabilities[cap] = append(r.capabilities[cap], backend)
	}
}

// removeLocked drops name from the order list and every capability list.
// Caller must hold the write lock.
func (r *Registry) removeLocked(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for cap, list := range r.capabilities {
		for i, b := range list {
			if b.Name() == name {
				r.capabilities[cap] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	delete(r.backends, name)
}

// Get retrieves a backend by name, or nil if not registered.
func (r *Registry) Get(name string) domain.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[name]
}

// All returns every registered backend in registration order.
func (r *Registry) All() []domain.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Backend, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.backends[name])
	}
	return out
}

// GetFor returns the first-registered backend supporting the capability,
// or nil if none does.
func (r *Registry) GetFor(capability string) domain.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.capabilities[capability]
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// Clear empties the registry. Intended only at controlled reinitialization
// points; callers may re-register afterwards.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = make(map[string]domain.Backend)
	r.order = nil
	r.capabilities = make(map[string][]domain.Backend)
}
