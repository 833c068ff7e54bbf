package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOllamaBackend(config.ProviderConfig{
		Name:    "ollama:test",
		Type:    "ollama",
		Model:   "llama3.1",
		BaseURL: srv.URL,
	}, discardLogger())
}

func TestOllamaComplete(t *testing.T) {
	backend := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "llama3.1" || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:           "llama3.1",
			Response:        "hello back",
			PromptEvalCount: 12,
			EvalCount:       3,
		})
	})

	result, err := backend.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Text != "hello back" {
		t.Errorf("Text = %q, want %q", result.Text, "hello back")
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", result.Usage.TotalTokens)
	}
}

func TestOllamaCompleteJSONSetsFormat(t *testing.T) {
	backend := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" {
			t.Errorf("format = %q, want json", req.Format)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Response: `{"keys": ["a ~ b ~ c"]}`,
		})
	})

	raw, err := backend.CompleteJSON(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}

	var result domain.GenerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Keys) != 1 || result.Keys[0] != "a ~ b ~ c" {
		t.Errorf("Keys = %v", result.Keys)
	}
}

func TestOllamaCompleteJSONInvalidPayload(t *testing.T) {
	backend := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "not json at all"})
	})

	_, err := backend.CompleteJSON(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestOllamaServerError(t *testing.T) {
	backend := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	_, err := backend.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestOllamaIsHealthy(t *testing.T) {
	backend := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if !backend.IsHealthy(context.Background()) {
		t.Error("IsHealthy = false, want true")
	}
}
