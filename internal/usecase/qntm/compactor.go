package qntm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"atlas/internal/domain"
	"atlas/internal/infra/tracer"
)

// CompactionResult is the structured working-memory record produced by
// compacting a conversation.
type CompactionResult struct {
	Summary        string            `json:"summary"`
	Completed      []string          `json:"completed"`
	InProgress     []string          `json:"in_progress"`
	NextSteps      []string          `json:"next_steps"`
	Decisions      []string          `json:"decisions"`
	Context        map[string]string `json:"context"`
	VerbatimQuotes []string          `json:"verbatim_quotes"`
}

// Compactor compresses conversations into working-memory records.
type Compactor struct {
	resolver domain.BackendResolver
	logger   *slog.Logger
	policy   RetryPolicy
	sleep    sleepFunc
}

// NewCompactor creates a conversation compactor.
func NewCompactor(resolver domain.BackendResolver, logger *slog.Logger) *Compactor {
	return &Compactor{
		resolver: resolver,
		logger:   logger,
		policy:   DefaultRetryPolicy(),
		sleep:    defaultSleep,
	}
}

// Compact summarizes a conversation into a structured record.
func (c *Compactor) Compact(ctx context.Context, conversation []domain.Message) (*CompactionResult, error) {
	if len(conversation) == 0 {
		return nil, domain.NewDomainError("Compactor.Compact", domain.ErrInvalidInput, "empty conversation")
	}

	ctx, span := tracer.StartSpan(ctx, "qntm.compact")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("conversation.turns", len(conversation)))

	jc, err := resolveJSON(c.resolver, domain.TaskCompaction, "Compactor.Compact")
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	prompt := BuildCompactionPrompt(conversation)
	result, err := withRetry(ctx, c.policy, c.sleep, c.logger, domain.TaskCompaction,
		func(ctx context.Context) (*CompactionResult, error) {
			raw, err := jc.CompleteJSON(ctx, prompt)
			if err != nil {
				return nil, err
			}
			var out CompactionResult
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
			}
			return &out, nil
		})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	c.logger.Info("conversation compacted",
		"turns", len(conversation),
		"backend", jc.Name(),
		"decisions", len(result.Decisions),
	)
	return result, nil
}

// Relationship types a consolidation verdict may carry.
const (
	RelDuplicateWork         = "duplicate_work"
	RelSequentialIteration   = "sequential_iteration"
	RelContextualConvergence = "contextual_convergence"
)

// ConsolidationVerdict classifies how two memory chunks relate.
type ConsolidationVerdict struct {
	Type          string `json:"type"`
	Direction     string `json:"direction"`
	Reasoning     string `json:"reasoning"`
	Keep          string `json:"keep"`
	MergedSummary string `json:"merged_summary,omitempty"`
}

// Consolidator classifies pairs of memory chunks for merging.
type Consolidator struct {
	resolver domain.BackendResolver
	logger   *slog.Logger
	policy   RetryPolicy
	sleep    sleepFunc
}

// NewConsolidator creates a chunk-pair classifier.
func NewConsolidator(resolver domain.BackendResolver, logger *slog.Logger) *Consolidator {
	return &Consolidator{
		resolver: resolver,
		logger:   logger,
		policy:   DefaultRetryPolicy(),
		sleep:    defaultSleep,
	}
}

// Classify decides the relationship between two chunks.
func (c *Consolidator) Classify(ctx context.Context, a, b ConsolidationInput) (*ConsolidationVerdict, error) {
	ctx, span := tracer.StartSpan(ctx, "qntm.consolidate")
	defer span.End()

	jc, err := resolveJSON(c.resolver, domain.TaskConsolidation, "Consolidator.Classify")
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	prompt := BuildConsolidationPrompt(a, b)
	verdict, err := withRetry(ctx, c.policy, c.sleep, c.logger, domain.TaskConsolidation,
		func(ctx context.Context) (*ConsolidationVerdict, error) {
			raw, err := jc.CompleteJSON(ctx, prompt)
			if err != nil {
				return nil, err
			}
			var out ConsolidationVerdict
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
			}
			switch out.Type {
			case RelDuplicateWork, RelSequentialIteration, RelContextualConvergence:
			default:
				return nil, fmt.Errorf("%w: unknown relationship type %q", domain.ErrInvalidJSON, out.Type)
			}
			return &out, nil
		})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	span.SetAttributes(tracer.StringAttr("verdict.type", verdict.Type))
	c.logger.Info("chunks classified",
		"backend", jc.Name(),
		"type", verdict.Type,
		"keep", verdict.Keep,
	)
	return verdict, nil
}

// resolveJSON resolves a json-completion backend for a task and checks
// the structured-completion contract. Both failure modes are permanent.
func resolveJSON(resolver domain.BackendResolver, task, op string) (domain.JSONCompleter, error) {
	backend, err := resolver.Resolve(domain.CapJSONCompletion, task)
	if err != nil {
		return nil, err
	}
	jc, ok := backend.(domain.JSONCompleter)
	if !ok {
		return nil, domain.NewDomainError(op, domain.ErrCapabilityMismatch, backend.Name())
	}
	return jc, nil
}
