package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"atlas/internal/domain"
	"atlas/internal/infra/config"
)

// Compile-time interface assertions.
var (
	_ domain.Backend       = (*CircuitBreakerBackend)(nil)
	_ domain.JSONCompleter = (*CircuitBreakerBackend)(nil)
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerBackend wraps a backend with circuit breaker protection.
// When the wrapped backend fails repeatedly, the circuit opens and
// subsequent calls fail fast without reaching the backend, preventing
// retry storms.
type CircuitBreakerBackend struct {
	inner   domain.Backend
	breaker *gobreaker.CircuitBreaker[*domain.CompletionResult]
	logger  *slog.Logger
}

// NewCircuitBreakerBackend wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to defaults.
func NewCircuitBreakerBackend(inner domain.Backend, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerBackend {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	name := inner.Name()
	cb := gobreaker.NewCircuitBreaker[*domain.CompletionResult](gobreaker.Settings{
		Name:        "backend:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &CircuitBreakerBackend{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Name implements domain.Backend.
func (b *CircuitBreakerBackend) Name() string { return b.inner.Name() }

// Capabilities implements domain.Backend.
func (b *CircuitBreakerBackend) Capabilities() []string { return b.inner.Capabilities() }

// Complete implements domain.Backend. Calls are routed through the breaker.
func (b *CircuitBreakerBackend) Complete(ctx context.Context, prompt string) (*domain.CompletionResult, error) {
	result, err := b.breaker.Execute(func() (*domain.CompletionResult, error) {
		return b.inner.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, b.wrapBreakerErr(err)
	}
	return result, nil
}

// CompleteJSON implements domain.JSONCompleter when the inner backend does.
// The invariant that a json-completion backend implements JSONCompleter is
// preserved through wrapping: a mismatch surfaces as ErrCapabilityMismatch
// just as it would unwrapped.
func (b *CircuitBreakerBackend) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	jc, ok := b.inner.(domain.JSONCompleter)
	if !ok {
		return nil, domain.NewDomainError("CircuitBreakerBackend.CompleteJSON",
			domain.ErrCapabilityMismatch, b.inner.Name())
	}

	var raw json.RawMessage
	_, err := b.breaker.Execute(func() (*domain.CompletionResult, error) {
		var execErr error
		raw, execErr = jc.CompleteJSON(ctx, prompt)
		return nil, execErr
	})
	if err != nil {
		return nil, b.wrapBreakerErr(err)
	}
	return raw, nil
}

// wrapBreakerErr adds backend context to open-circuit errors.
func (b *CircuitBreakerBackend) wrapBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("backend %q circuit open: %w: %v",
			b.inner.Name(), domain.ErrBackendUnavailable, err)
	}
	return err
}

// Unwrap exposes the wrapped backend, mainly for probing at init time.
func (b *CircuitBreakerBackend) Unwrap() domain.Backend { return b.inner }
