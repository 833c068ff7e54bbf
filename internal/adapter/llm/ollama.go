package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

// Compile-time interface assertions.
var (
	_ domain.Backend       = (*OllamaBackend)(nil)
	_ domain.JSONCompleter = (*OllamaBackend)(nil)
)

// Default Ollama timeouts: short connect (local), long response (model loading).
const (
	ollamaDefaultConnTimeout = 5 * time.Second
	ollamaDefaultRespTimeout = 300 * time.Second
)

// OllamaBackend talks to a local Ollama server over its native API.
// It is a local HTTP backend with no credential requirements, so it is
// registered unconditionally.
type OllamaBackend struct {
	name    string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOllamaBackend creates an Ollama backend from provider config.
func NewOllamaBackend(cfg config.ProviderConfig, logger *slog.Logger) *OllamaBackend {
	ollamaCfg := cfg
	if ollamaCfg.ConnTimeout == 0 {
		ollamaCfg.ConnTimeout = ollamaDefaultConnTimeout
	}
	if ollamaCfg.RespTimeout == 0 {
		ollamaCfg.RespTimeout = ollamaDefaultRespTimeout
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaBackend{
		name:    cfg.Name,
		model:   cfg.Model,
		baseURL: baseURL,
		client:  NewHTTPClient(ollamaCfg),
		logger:  logger,
	}
}

// Name implements domain.Backend.
func (b *OllamaBackend) Name() string { return b.name }

// Capabilities implements domain.Backend.
func (b *OllamaBackend) Capabilities() []string {
	return []string{domain.CapTextCompletion, domain.CapJSONCompletion}
}

// --- Ollama API wire types ---

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete implements domain.Backend via /api/generate.
func (b *OllamaBackend) Complete(ctx context.Context, prompt string) (*domain.CompletionResult, error) {
	resp, err := b.generate(ctx, prompt, "")
	if err != nil {
		return nil, err
	}

	return &domain.CompletionResult{
		Text:  resp.Response,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// CompleteJSON implements domain.JSONCompleter. Ollama's structured output
// mode ("format": "json") constrains generation to valid JSON; fences are
// stripped anyway in case the model wraps its output.
func (b *OllamaBackend) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	resp, err := b.generate(ctx, prompt, "json")
	if err != nil {
		return nil, err
	}

	raw := stripCodeFences(resp.Response)
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJSON, truncate(raw, 500))
	}
	return json.RawMessage(raw), nil
}

func (b *OllamaBackend) generate(ctx context.Context, prompt, format string) (*ollamaGenerateResponse, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  b.model,
		Prompt: prompt,
		Stream: false,
		Format: format,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := doJSONRequest(ctx, b.client, b.baseURL+"/api/generate", body, nil)
	if err != nil {
		return nil, err
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	b.logger.Debug("ollama completion finished",
		"backend", b.name,
		"model", resp.Model,
		"tokens", resp.PromptEvalCount+resp.EvalCount,
	)
	return &resp, nil
}

// IsHealthy checks if the Ollama server is reachable.
func (b *OllamaBackend) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/", nil)
	if err != nil {
		return false
	}

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()

	return httpResp.StatusCode == http.StatusOK
}
