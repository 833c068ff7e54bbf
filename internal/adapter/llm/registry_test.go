package llm

import (
	"context"
	"testing"

	"atlas/internal/domain"
)

// stubBackend is a minimal backend for registry and selector tests.
type stubBackend struct {
	name string
	caps []string
}

func (s *stubBackend) Name() string            { return s.name }
func (s *stubBackend) Capabilities() []string  { return s.caps }
func (s *stubBackend) Complete(_ context.Context, _ string) (*domain.CompletionResult, error) {
	return &domain.CompletionResult{Text: "ok from " + s.name}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	b := &stubBackend{name: "ollama:llama3.1", caps: []string{domain.CapTextCompletion}}
	reg.Register(b)

	if got := reg.Get("ollama:llama3.1"); got != domain.Backend(b) {
		t.Errorf("Get returned %v, want the registered backend", got)
	}
	if got := reg.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestRegistryReRegisterReplacesEverywhere(t *testing.T) {
	reg := NewRegistry()
	first := &stubBackend{name: "dup", caps: []string{domain.CapJSONCompletion}}
	second := &stubBackend{name: "dup", caps: []string{domain.CapJSONCompletion}}
	other := &stubBackend{name: "other", caps: []string{domain.CapJSONCompletion}}

	reg.Register(first)
	reg.Register(other)
	reg.Register(second)

	if got := reg.Get("dup"); got != domain.Backend(second) {
		t.Error("name map still holds the first registration")
	}

	// The stale entry must be gone from the capability index: "other" is
	// now the earliest registration for json-completion.
	if got := reg.GetFor(domain.CapJSONCompletion); got != domain.Backend(other) {
		t.Errorf("GetFor = %v, want other (first remaining registration)", got)
	}

	if n := len(reg.All()); n != 2 {
		t.Errorf("All() len = %d, want 2", n)
	}
}

func TestRegistryGetForRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	early := &stubBackend{name: "early", caps: []string{domain.CapTextCompletion, domain.CapJSONCompletion}}
	late := &stubBackend{name: "late", caps: []string{domain.CapJSONCompletion}}

	reg.Register(early)
	reg.Register(late)

	if got := reg.GetFor(domain.CapJSONCompletion); got != domain.Backend(early) {
		t.Errorf("GetFor = %v, want earliest-registered backend", got)
	}
}

func TestRegistryGetForUnknownCapability(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubBackend{name: "b", caps: []string{domain.CapTextCompletion}})

	if got := reg.GetFor("nonexistent-capability"); got != nil {
		t.Errorf("GetFor(nonexistent) = %v, want nil", got)
	}
}

func TestRegistryClear(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubBackend{name: "b", caps: []string{domain.CapTextCompletion}})
	reg.Clear()

	if got := reg.Get("b"); got != nil {
		t.Error("Get after Clear should return nil")
	}
	if got := reg.GetFor(domain.CapTextCompletion); got != nil {
		t.Error("GetFor after Clear should return nil")
	}
	if n := len(reg.All()); n != 0 {
		t.Errorf("All() after Clear len = %d, want 0", n)
	}

	// Re-registration after Clear is a supported lifecycle.
	reg.Register(&stubBackend{name: "b2", caps: []string{domain.CapTextCompletion}})
	if got := reg.GetFor(domain.CapTextCompletion); got == nil {
		t.Error("GetFor after re-register should find the backend")
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		reg.Register(&stubBackend{name: n, caps: []string{domain.CapTextCompletion}})
	}

	all := reg.All()
	if len(all) != len(names) {
		t.Fatalf("All() len = %d, want %d", len(all), len(names))
	}
	for i, want := range names {
		if all[i].Name() != want {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Name(), want)
		}
	}
}
