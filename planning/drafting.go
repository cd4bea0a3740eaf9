/*
drafting.go - Strategy drafting service and generator contract

PURPOSE:
  Produces a bounded list of candidate strategies for a priority by
  delegating to a pluggable generator. This file fixes the generator's
  output shape and the caller contract; the generator's internal
  reasoning is an external collaborator concern.

TIMEOUT CONTRACT:
  Generation is the only potentially slow dependency in the engine. The
  call is bounded by the caller-supplied context deadline; a deadline
  expiry surfaces as a typed GenerationTimeoutError, caller cancellation
  propagates as context.Canceled, any other generator failure as
  ErrGeneratorUnavailable. No poll loops: generation is a single bounded
  synchronous call.

VALIDATION:
  Each returned proposal is validated (non-empty title, probability in
  [0,1], recognized cost bucket). Invalid proposals are dropped; if the
  generator returns nothing usable the call fails rather than persisting
  an empty batch.

SEE ALSO:
  - generator/: template and HTTP generator implementations
  - approval.go: the review lifecycle the persisted drafts enter
*/
package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxGeneratedStrategies caps how many drafts one generation call may request.
const MaxGeneratedStrategies = 10

// =============================================================================
// GENERATOR CONTRACT
// =============================================================================

// GenerationContext is an opaque bag of free-text hints passed through to
// the generator. The engine does not interpret any of these fields.
type GenerationContext struct {
	Objective   string
	Constraints string
	Resources   string
	Timeframe   string
}

// GenerationInput is everything a generator receives.
type GenerationInput struct {
	PriorityTitle       string
	PriorityDescription string
	Context             GenerationContext
	Count               int
}

// StrategyProposal is the generator's output shape: one candidate strategy
// before persistence.
type StrategyProposal struct {
	Title              string
	Description        string
	Rationale          string
	Steps              []string
	SuccessProbability float64 // 0.0 - 1.0
	EstimatedCost      CostEstimate
	Timeframe          string
	Risks              []string
	RequiredResources  []string
	SuccessMetrics     []string
	SupportingEvidence []string
}

// StrategyGenerator produces candidate strategies for a priority.
// Implementations must honor ctx cancellation and deadlines.
type StrategyGenerator interface {
	Generate(ctx context.Context, in GenerationInput) ([]StrategyProposal, error)
}

// =============================================================================
// DRAFTING SERVICE
// =============================================================================

type DraftingService struct {
	Store     Store
	Generator StrategyGenerator
}

// GenerateStrategies asks the generator for count candidate strategies under
// a priority and persists the valid ones as drafts in status "draft".
func (ds *DraftingService) GenerateStrategies(ctx context.Context, priorityID PriorityID, genCtx GenerationContext, count int) ([]DraftStrategy, error) {
	if count < 1 || count > MaxGeneratedStrategies {
		return nil, &ValidationError{
			Field:  "count",
			Reason: fmt.Sprintf("must be between 1 and %d", MaxGeneratedStrategies),
		}
	}

	priority, err := ds.Store.GetPriority(ctx, priorityID)
	if err != nil {
		return nil, err
	}
	if priority == nil {
		return nil, ErrPriorityNotFound
	}

	started := time.Now()
	proposals, err := ds.Generator.Generate(ctx, GenerationInput{
		PriorityTitle:       priority.Title,
		PriorityDescription: priority.Description,
		Context:             genCtx,
		Count:               count,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, &GenerationTimeoutError{Elapsed: time.Since(started)}
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			// Caller abandoned the request; not a collaborator failure.
			return nil, fmt.Errorf("strategy generation aborted: %w", context.Canceled)
		default:
			return nil, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
		}
	}

	now := time.Now().UTC()
	var strategies []DraftStrategy
	for _, p := range proposals {
		if len(strategies) == count {
			break
		}
		if !validProposal(p) {
			continue
		}
		strategies = append(strategies, DraftStrategy{
			ID:                 NewStrategyID(),
			PriorityID:         priorityID,
			Title:              strings.TrimSpace(p.Title),
			Description:        p.Description,
			Rationale:          p.Rationale,
			Steps:              p.Steps,
			SuccessProbability: p.SuccessProbability,
			EstimatedCost:      p.EstimatedCost,
			Timeframe:          p.Timeframe,
			Risks:              p.Risks,
			RequiredResources:  p.RequiredResources,
			SuccessMetrics:     p.SuccessMetrics,
			SupportingEvidence: p.SupportingEvidence,
			Status:             StrategyDraft,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: no usable proposals returned", ErrGeneratorUnavailable)
	}

	if err := ds.Store.CreateStrategies(ctx, strategies); err != nil {
		return nil, fmt.Errorf("failed to persist generated strategies: %w", err)
	}
	return strategies, nil
}

func validProposal(p StrategyProposal) bool {
	if strings.TrimSpace(p.Title) == "" {
		return false
	}
	if p.SuccessProbability < 0 || p.SuccessProbability > 1 {
		return false
	}
	return ValidCostEstimate(p.EstimatedCost)
}
