package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

// Compile-time interface assertions.
var (
	_ domain.Backend       = (*AnthropicBackend)(nil)
	_ domain.JSONCompleter = (*AnthropicBackend)(nil)
	_ Prober               = (*AnthropicBackend)(nil)
)

const (
	defaultAnthropicVersion   = "2023-06-01"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicBackend talks to the Anthropic Messages API. It is an optional
// backend: Probe reports it unavailable when no API key is configured, and
// registration is skipped without error.
type AnthropicBackend struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	version string
	client  *http.Client
	limiter *rate.Limiter // nil when rate limiting is disabled
	logger  *slog.Logger
}

// NewAnthropicBackend creates a backend for the Anthropic Messages API.
func NewAnthropicBackend(cfg config.ProviderConfig, logger *slog.Logger) *AnthropicBackend {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &AnthropicBackend{
		name:    cfg.Name,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		version: defaultAnthropicVersion,
		client:  NewHTTPClient(cfg),
		limiter: limiter,
		logger:  logger,
	}
}

// Probe implements Prober: the backend is available only when an API key
// is present.
func (b *AnthropicBackend) Probe() Availability {
	if b.apiKey == "" {
		return Availability{Reason: "ANTHROPIC_API_KEY not set"}
	}
	return Availability{Available: true}
}

// Name implements domain.Backend.
func (b *AnthropicBackend) Name() string { return b.name }

// Capabilities implements domain.Backend.
func (b *AnthropicBackend) Capabilities() []string {
	return []string{domain.CapTextCompletion, domain.CapJSONCompletion}
}

// --- Anthropic API wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements domain.Backend.
func (b *AnthropicBackend) Complete(ctx context.Context, prompt string) (*domain.CompletionResult, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     b.model,
		Messages:  []anthropicMessage{{Role: domain.RoleUser, Content: prompt}},
		MaxTokens: defaultAnthropicMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         b.apiKey,
		"anthropic-version": b.version,
	}

	respBody, err := doJSONRequest(ctx, b.client, b.baseURL+"/v1/messages", body, headers)
	if err != nil {
		return nil, err
	}

	var antResp anthropicResponse
	if err := json.Unmarshal(respBody, &antResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var text string
	for _, block := range antResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	usage := domain.Usage{
		PromptTokens:     antResp.Usage.InputTokens,
		CompletionTokens: antResp.Usage.OutputTokens,
		TotalTokens:      antResp.Usage.InputTokens + antResp.Usage.OutputTokens,
	}
	b.logger.Debug("anthropic completion finished",
		"backend", b.name,
		"model", antResp.Model,
		"tokens", usage.TotalTokens,
	)

	return &domain.CompletionResult{
		Text:  text,
		Model: antResp.Model,
		Usage: usage,
	}, nil
}

// CompleteJSON implements domain.JSONCompleter.
func (b *AnthropicBackend) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	result, err := b.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw := stripCodeFences(result.Text)
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJSON, truncate(raw, 500))
	}
	return json.RawMessage(raw), nil
}
