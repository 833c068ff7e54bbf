package llm

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"atlas/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectorTaskOverrideWins(t *testing.T) {
	reg := NewRegistry()
	x := &stubBackend{name: "X", caps: []string{domain.CapJSONCompletion}}
	y := &stubBackend{name: "Y", caps: []string{domain.CapJSONCompletion}}
	reg.Register(y)
	reg.Register(x)

	sel := NewSelector(reg, map[string]string{
		domain.TaskQNTMGeneration: "X",
		domain.CapJSONCompletion:  "Y",
	}, discardLogger())

	got, err := sel.Resolve(domain.CapJSONCompletion, domain.TaskQNTMGeneration)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name() != "X" {
		t.Errorf("Resolve = %q, want X (task override)", got.Name())
	}
}

func TestSelectorFallsThroughToCapabilityOverride(t *testing.T) {
	reg := NewRegistry()
	y := &stubBackend{name: "Y", caps: []string{domain.CapJSONCompletion}}
	z := &stubBackend{name: "Z", caps: []string{domain.CapJSONCompletion}}
	reg.Register(z)
	reg.Register(y)

	// Task override names an unregistered backend: must fall through, not fail.
	sel := NewSelector(reg, map[string]string{
		domain.TaskQNTMGeneration: "X",
		domain.CapJSONCompletion:  "Y",
	}, discardLogger())

	got, err := sel.Resolve(domain.CapJSONCompletion, domain.TaskQNTMGeneration)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name() != "Y" {
		t.Errorf("Resolve = %q, want Y (capability override)", got.Name())
	}
}

func TestSelectorFallsThroughToRegistryOrder(t *testing.T) {
	reg := NewRegistry()
	z := &stubBackend{name: "Z", caps: []string{domain.CapJSONCompletion}}
	w := &stubBackend{name: "W", caps: []string{domain.CapJSONCompletion}}
	reg.Register(z)
	reg.Register(w)

	// Neither override resolves.
	sel := NewSelector(reg, map[string]string{
		domain.TaskQNTMGeneration: "X",
		domain.CapJSONCompletion:  "Y",
	}, discardLogger())

	got, err := sel.Resolve(domain.CapJSONCompletion, domain.TaskQNTMGeneration)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name() != "Z" {
		t.Errorf("Resolve = %q, want Z (first-registered)", got.Name())
	}
}

func TestSelectorNoTask(t *testing.T) {
	reg := NewRegistry()
	y := &stubBackend{name: "Y", caps: []string{domain.CapJSONCompletion}}
	reg.Register(y)

	sel := NewSelector(reg, map[string]string{domain.CapJSONCompletion: "Y"}, discardLogger())

	got, err := sel.Resolve(domain.CapJSONCompletion, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name() != "Y" {
		t.Errorf("Resolve = %q, want Y", got.Name())
	}
}

func TestSelectorNoBackendForCapability(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubBackend{name: "text-only", caps: []string{domain.CapTextCompletion}})

	sel := NewSelector(reg, nil, discardLogger())

	_, err := sel.Resolve("nonexistent-capability", "")
	if err == nil {
		t.Fatal("expected error for unresolvable capability")
	}
	if !errors.Is(err, domain.ErrNoBackendForCapability) {
		t.Errorf("error = %v, want ErrNoBackendForCapability", err)
	}
}
