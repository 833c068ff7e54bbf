package qntm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kaptinlin/jsonschema"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"atlas/internal/domain"
	"atlas/internal/infra/tracer"
)

// generationSchema constrains backend output before it is trusted.
const generationSchema = `{
	"type": "object",
	"properties": {
		"keys": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"reasoning": {"type": "string"}
	},
	"required": ["keys"]
}`

// Generator produces semantic keys for memory chunks through whichever
// backend the resolver picks for json-completion.
type Generator struct {
	resolver   domain.BackendResolver
	store      domain.KeyStore
	logger     *slog.Logger
	policy     RetryPolicy
	sleep      sleepFunc
	collection string
	schema     *jsonschema.Schema
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) GeneratorOption {
	return func(g *Generator) { g.policy = p }
}

// withSleep injects the backoff sleeper; used by tests to avoid
// wall-clock delays.
func withSleep(s sleepFunc) GeneratorOption {
	return func(g *Generator) { g.sleep = s }
}

// NewGenerator creates a key generator. store may be nil when no key
// persistence is configured; FetchExistingKeys then returns no keys.
func NewGenerator(resolver domain.BackendResolver, store domain.KeyStore, collection string, logger *slog.Logger, opts ...GeneratorOption) (*Generator, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(generationSchema))
	if err != nil {
		return nil, fmt.Errorf("compile generation schema: %w", err)
	}

	g := &Generator{
		resolver:   resolver,
		store:      store,
		logger:     logger,
		policy:     DefaultRetryPolicy(),
		sleep:      defaultSleep,
		collection: collection,
		schema:     schema,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateKeys produces keys for a chunk at the given abstraction level.
// Resolution failures and capability mismatches fail fast; completion
// failures are retried per the policy and the last error is returned
// unchanged after exhaustion.
func (g *Generator) GenerateKeys(ctx context.Context, chunk string, existingKeys []string, level domain.AbstractionLevel, fctx *FileContext) (*domain.GenerationResult, error) {
	if !level.Valid() {
		return nil, domain.NewDomainError("Generator.GenerateKeys", domain.ErrInvalidInput,
			fmt.Sprintf("abstraction level %d out of range", level))
	}

	prompt := BuildKeyPrompt(chunk, existingKeys, level, fctx)
	return g.generate(ctx, "qntm.generate_keys", prompt, domain.TaskQNTMGeneration)
}

// GenerateQueryKeys expands a search query into candidate keys.
func (g *Generator) GenerateQueryKeys(ctx context.Context, query string, existingKeys []string) (*domain.GenerationResult, error) {
	prompt := BuildQueryExpansionPrompt(query, existingKeys)
	return g.generate(ctx, "qntm.expand_query", prompt, domain.TaskQueryExpansion)
}

func (g *Generator) generate(ctx context.Context, spanName, prompt, task string) (*domain.GenerationResult, error) {
	requestID := newRequestID()
	ctx, span := tracer.StartSpan(ctx, spanName, trace.WithAttributes(
		tracer.StringAttr("request.id", requestID),
		tracer.StringAttr("task", task),
		tracer.IntAttr("prompt.tokens_estimate", estimateTokens(prompt)),
	))
	defer span.End()

	backend, err := g.resolver.Resolve(domain.CapJSONCompletion, task)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(tracer.StringAttr("backend", backend.Name()))

	jc, ok := backend.(domain.JSONCompleter)
	if !ok {
		err := domain.NewDomainError("Generator.generate", domain.ErrCapabilityMismatch, backend.Name())
		tracer.RecordError(span, err)
		return nil, err
	}

	g.logger.Debug("generation started",
		"request_id", requestID,
		"task", task,
		"backend", backend.Name(),
		"prompt_tokens_estimate", estimateTokens(prompt),
	)

	result, err := withRetry(ctx, g.policy, g.sleep, g.logger, task,
		func(ctx context.Context) (*domain.GenerationResult, error) {
			raw, err := jc.CompleteJSON(ctx, prompt)
			if err != nil {
				return nil, err
			}
			return g.decode(raw)
		})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	span.SetAttributes(tracer.IntAttr("keys.count", len(result.Keys)))
	g.logger.Info("generation finished",
		"request_id", requestID,
		"task", task,
		"backend", backend.Name(),
		"keys", len(result.Keys),
	)
	return result, nil
}

// decode schema-checks raw backend output and unmarshals it. Violations
// count as transient failures so the retry loop gets another attempt.
func (g *Generator) decode(raw json.RawMessage) (*domain.GenerationResult, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	validation := g.schema.Validate(payload)
	if !validation.IsValid() {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, validation.Error())
	}

	var result domain.GenerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	return &result, nil
}

// FetchExistingKeys loads the current key vocabulary. Store failures
// degrade to an empty list so generation proceeds without context.
func (g *Generator) FetchExistingKeys(ctx context.Context) []string {
	if g.store == nil {
		return nil
	}
	keys, err := g.store.AllKeys(ctx, g.collection)
	if err != nil {
		g.logger.Warn("existing keys unavailable, proceeding without",
			"collection", g.collection, "error", err)
		return nil
	}
	return keys
}

// SaveKeys persists generated keys when a store is configured.
func (g *Generator) SaveKeys(ctx context.Context, keys []string, level domain.AbstractionLevel) error {
	if g.store == nil || len(keys) == 0 {
		return nil
	}
	if err := g.store.SaveKeys(ctx, g.collection, keys, level); err != nil {
		return domain.WrapOp("Generator.SaveKeys", err)
	}
	return nil
}

func newRequestID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
