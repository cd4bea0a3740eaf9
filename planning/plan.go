/*
plan.go - Fiscal-year plan lifecycle and priority management

PURPOSE:
  Handles the plan side of the pipeline:
  1. Creation: unique fiscal-year label, created in draft
  2. Activation: explicit transition, deactivating any other active plan
  3. Priorities: wholesale replacement of the 1-3 leadership priorities
  4. Summary: the read-only dashboard rollup

AT-MOST-ONE-ACTIVE INVARIANT:
  ActivatePlan demotes the currently active plan (back to completed) and
  promotes the target inside one transaction, so no observer ever sees
  two active plans.

SEE ALSO:
  - drafting.go: generates draft strategies under a priority
  - conversion.go: promotes approved drafts into the hierarchy
*/
package planning

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PLAN SERVICE
// =============================================================================

type PlanService struct {
	Store TxStore
}

// PrioritySpec is the caller-facing shape for SetPriorities.
type PrioritySpec struct {
	Number      int
	Title       string
	Description string
}

// CreatePlan creates a new plan in draft status.
// Fails with DuplicateFiscalYearError if the label already exists.
func (ps *PlanService) CreatePlan(ctx context.Context, fiscalYear string, start, end time.Time) (*FiscalYearPlan, error) {
	fiscalYear = strings.TrimSpace(fiscalYear)
	if fiscalYear == "" {
		return nil, &ValidationError{Field: "fiscal_year", Reason: "must not be empty"}
	}
	if !end.After(start) {
		return nil, &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}

	now := time.Now().UTC()
	plan := &FiscalYearPlan{
		ID:         NewPlanID(),
		FiscalYear: fiscalYear,
		StartDate:  start,
		EndDate:    end,
		Status:     PlanDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := ps.Store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ActivatePlan transitions a draft plan to active. Any other currently
// active plan is marked completed in the same transaction, preserving the
// at-most-one-active invariant.
func (ps *PlanService) ActivatePlan(ctx context.Context, id PlanID) (*FiscalYearPlan, error) {
	plan, err := ps.Store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if plan.Status != PlanDraft {
		return nil, &PlanNotDraftError{PlanID: id, Status: plan.Status}
	}

	err = ps.Store.WithTx(ctx, func(s Store) error {
		current, err := s.ActivePlan(ctx)
		if err != nil {
			return err
		}
		if current != nil && current.ID != id {
			if err := s.UpdatePlanStatus(ctx, current.ID, PlanCompleted); err != nil {
				return fmt.Errorf("failed to deactivate plan %s: %w", current.ID, err)
			}
		}
		return s.UpdatePlanStatus(ctx, id, PlanActive)
	})
	if err != nil {
		return nil, err
	}

	return ps.Store.GetPlan(ctx, id)
}

// SetPriorities replaces the plan's priorities wholesale. Numbers must form
// a gap-free prefix 1..N with N <= MaxPrioritiesPerPlan and no duplicates;
// the whole batch is rejected on any violation. Once strategies exist under
// the current priorities the replace fails with PrioritiesInUseError.
func (ps *PlanService) SetPriorities(ctx context.Context, planID PlanID, specs []PrioritySpec) ([]CorePriority, error) {
	plan, err := ps.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	if len(specs) == 0 {
		return nil, &ValidationError{Field: "priorities", Reason: "must not be empty"}
	}
	if len(specs) > MaxPrioritiesPerPlan {
		return nil, &ValidationError{
			Field:  "priorities",
			Reason: fmt.Sprintf("at most %d priorities per plan", MaxPrioritiesPerPlan),
		}
	}

	seen := make(map[int]bool, len(specs))
	for _, spec := range specs {
		if spec.Number < 1 || spec.Number > MaxPrioritiesPerPlan {
			return nil, &ValidationError{
				Field:  "number",
				Reason: fmt.Sprintf("priority number %d outside 1-%d", spec.Number, MaxPrioritiesPerPlan),
			}
		}
		if seen[spec.Number] {
			return nil, &ValidationError{
				Field:  "number",
				Reason: fmt.Sprintf("priority number %d duplicated", spec.Number),
			}
		}
		seen[spec.Number] = true
		if strings.TrimSpace(spec.Title) == "" {
			return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
	}
	// Gap-free prefix from 1: with uniqueness established, numbers 1..N
	// must all be present.
	for n := 1; n <= len(specs); n++ {
		if !seen[n] {
			return nil, &ValidationError{
				Field:  "number",
				Reason: fmt.Sprintf("priority numbers must be gap-free from 1; missing %d", n),
			}
		}
	}

	now := time.Now().UTC()
	priorities := make([]CorePriority, len(specs))
	for i, spec := range specs {
		priorities[i] = CorePriority{
			ID:          NewPriorityID(),
			PlanID:      planID,
			Number:      spec.Number,
			Title:       strings.TrimSpace(spec.Title),
			Description: spec.Description,
			CreatedAt:   now,
		}
	}

	if err := ps.Store.ReplacePriorities(ctx, planID, priorities); err != nil {
		return nil, err
	}
	return ps.Store.ListPriorities(ctx, planID)
}

// GetPlanSummary returns the read-only dashboard aggregate for a plan.
func (ps *PlanService) GetPlanSummary(ctx context.Context, planID PlanID) (*PlanSummary, error) {
	plan, err := ps.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	priorities, err := ps.Store.ListPriorities(ctx, planID)
	if err != nil {
		return nil, err
	}

	summary := &PlanSummary{
		Plan: *plan,
		DraftCountsByStatus: map[StrategyStatus]int{
			StrategyDraft:       0,
			StrategyUnderReview: 0,
			StrategyApproved:    0,
			StrategyRejected:    0,
		},
	}

	for _, p := range priorities {
		strategies, err := ps.Store.ListStrategies(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		summary.Priorities = append(summary.Priorities, PrioritySummary{
			Priority:      p,
			StrategyCount: len(strategies),
		})
		for _, s := range strategies {
			summary.DraftCountsByStatus[s.Status]++
			if s.Converted() {
				summary.ConvertedCount++
			}
		}
	}

	kpiCount, err := ps.Store.CountKPIsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	summary.KPIsCreatedCount = kpiCount

	return summary, nil
}
