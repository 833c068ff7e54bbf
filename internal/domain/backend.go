package domain

import (
	"context"
	"encoding/json"
)

// Capability names a feature a backend may support. Capabilities are
// free-form, case-sensitive strings; these constants cover the two the
// engine itself routes on.
const (
	CapTextCompletion = "text-completion"
	CapJSONCompletion = "json-completion"
)

// Task domains that configuration may pin to a specific backend. A task
// override takes precedence over a capability override, which takes
// precedence over registration order.
const (
	TaskQNTMGeneration = "qntm-generation"
	TaskQueryExpansion = "query-expansion"
	TaskConsolidation  = "consolidation"
	TaskCompaction     = "compaction"
)

// Backend is the interface for any completion backend (SDK, HTTP, or CLI).
type Backend interface {
	// Name returns the backend's registry identifier (e.g. "ollama:llama3.1").
	Name() string
	// Capabilities returns the capability names this backend supports.
	Capabilities() []string
	// Complete sends a prompt and returns the raw text completion.
	Complete(ctx context.Context, prompt string) (*CompletionResult, error)
}

// JSONCompleter extends Backend with schema-constrained completion.
// A backend declaring CapJSONCompletion must implement this interface;
// the generation pipeline checks and fails with ErrCapabilityMismatch
// when it does not.
type JSONCompleter interface {
	Backend
	// CompleteJSON sends a prompt and returns the completion as a raw
	// JSON document, with any markdown fencing already stripped.
	CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// BackendResolver selects a concrete backend for a capability, optionally
// biased by a task domain. Implemented by the llm adapter's Selector.
type BackendResolver interface {
	Resolve(capability, task string) (Backend, error)
}

// CompletionResult is the outcome of a single completion exchange.
type CompletionResult struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	Usage Usage  `json:"usage"`
}

// Usage tracks token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// KeyStore is the storage collaborator behind FetchExistingKeys. The
// multi-tier storage system itself (cache, metadata DB, vector DB) is out
// of scope; the engine only consumes this contract.
type KeyStore interface {
	// AllKeys returns every key in the collection, oldest first.
	AllKeys(ctx context.Context, collection string) ([]string, error)
	// SaveKeys appends keys to the collection at the given level.
	SaveKeys(ctx context.Context, collection string, keys []string, level AbstractionLevel) error
	// Close releases the underlying storage handle.
	Close() error
}
