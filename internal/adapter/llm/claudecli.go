package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

// Compile-time interface assertions.
var (
	_ domain.Backend       = (*ClaudeCLIBackend)(nil)
	_ domain.JSONCompleter = (*ClaudeCLIBackend)(nil)
)

const defaultClaudeBinary = "claude"

// ClaudeCLIBackend drives a locally installed claude CLI. It has no
// external dependency requirements beyond the binary itself, so it is
// registered unconditionally; a missing binary surfaces at call time.
type ClaudeCLIBackend struct {
	name   string
	binary string
	model  string
	logger *slog.Logger
}

// NewClaudeCLIBackend creates a CLI-driven backend.
func NewClaudeCLIBackend(cfg config.ProviderConfig, logger *slog.Logger) *ClaudeCLIBackend {
	binary := cfg.Binary
	if binary == "" {
		binary = defaultClaudeBinary
	}
	return &ClaudeCLIBackend{
		name:   cfg.Name,
		binary: binary,
		model:  cfg.Model,
		logger: logger,
	}
}

// Name implements domain.Backend.
func (b *ClaudeCLIBackend) Name() string { return b.name }

// Capabilities implements domain.Backend.
func (b *ClaudeCLIBackend) Capabilities() []string {
	return []string{domain.CapTextCompletion, domain.CapJSONCompletion}
}

// Complete implements domain.Backend by invoking the CLI in print mode
// with the prompt on stdin.
func (b *ClaudeCLIBackend) Complete(ctx context.Context, prompt string) (*domain.CompletionResult, error) {
	args := []string{"--print"}
	if b.model != "" {
		args = append(args, "--model", b.model)
	}

	out, err := b.run(ctx, prompt, args)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("cli completion finished", "backend", b.name, "bytes", len(out))
	return &domain.CompletionResult{
		Text:  strings.TrimSpace(out),
		Model: b.model,
	}, nil
}

// CompleteJSON implements domain.JSONCompleter.
func (b *ClaudeCLIBackend) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
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

// run executes the CLI with the prompt on stdin and returns stdout.
func (b *ClaudeCLIBackend) run(ctx context.Context, prompt string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v (stderr: %s)",
			domain.ErrBackendUnavailable, b.binary, err, truncate(stderr.String(), 500))
	}
	return stdout.String(), nil
}
