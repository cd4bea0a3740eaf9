/*
conversion.go - Promotion of approved drafts into the OGSM hierarchy

PURPOSE:
  Converts approved, not-yet-converted draft strategies into permanent
  strategy-hierarchy nodes and records the one-way link back to the
  source draft.

PARENT RESOLUTION:
  Each new strategy node is parented under the goal node representing its
  owning priority. If that goal doesn't exist yet, it is created under the
  plan's top-level objective node (itself created on first need). Both are
  memoized per call and looked up by their source plan/priority before
  creating, so repeat calls and repeat items reuse them.

PARTIAL SUCCESS:
  Per-item, not whole-batch: an unapproved or already-converted item is an
  expected, benign outcome reported in the result, never a fault that
  rolls back valid conversions.

ATOMICITY:
  Node creation and the MarkConverted link write happen inside one
  transaction per item. MarkConverted is conditional (succeeds only while
  the link is null), so a concurrent conversion of the same strategy rolls
  this item back and reports AlreadyConvertedError instead of leaving an
  orphan node or a double-convert.

SEE ALSO:
  - store.go: MarkConverted contract
  - kpi.go: derives KPIs from converted strategies
*/
package planning

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// CONVERSION ENGINE
// =============================================================================

type ConversionEngine struct {
	Store TxStore
}

// ConversionFailure reports one strategy that could not be converted and why.
type ConversionFailure struct {
	StrategyID StrategyID
	Reason     error
}

// ConversionResult reports the outcome of a ConvertStrategies call.
// Failures are benign per-item outcomes, not batch faults.
type ConversionResult struct {
	ConvertedCount int
	ComponentIDs   []ComponentID
	Failures       []ConversionFailure
}

// ConvertStrategies promotes each approved, unconverted strategy in
// strategyIDs into a new hierarchy node of type strategy.
func (ce *ConversionEngine) ConvertStrategies(ctx context.Context, planID PlanID, strategyIDs []StrategyID) (*ConversionResult, error) {
	if len(strategyIDs) == 0 {
		return nil, &ValidationError{Field: "strategy_ids", Reason: "must not be empty"}
	}

	plan, err := ce.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	result := &ConversionResult{}

	// Parent nodes resolved once per call. Populated only after a commit so
	// a rolled-back creation is never reused.
	goalByPriority := make(map[PriorityID]ComponentID)
	var objectiveID *ComponentID

	for _, id := range strategyIDs {
		strategy, err := ce.Store.GetStrategy(ctx, id)
		if err != nil {
			return nil, err
		}
		if strategy == nil {
			result.Failures = append(result.Failures, ConversionFailure{StrategyID: id, Reason: ErrStrategyNotFound})
			continue
		}
		if strategy.Converted() {
			result.Failures = append(result.Failures, ConversionFailure{
				StrategyID: id,
				Reason:     &AlreadyConvertedError{StrategyID: id, ComponentID: *strategy.ConvertedComponentID},
			})
			continue
		}
		if strategy.Status != StrategyApproved {
			result.Failures = append(result.Failures, ConversionFailure{
				StrategyID: id,
				Reason:     &NotApprovedError{StrategyID: id, Status: strategy.Status},
			})
			continue
		}

		priority, err := ce.Store.GetPriority(ctx, strategy.PriorityID)
		if err != nil {
			return nil, err
		}
		if priority == nil || priority.PlanID != planID {
			result.Failures = append(result.Failures, ConversionFailure{
				StrategyID: id,
				Reason:     fmt.Errorf("strategy %s does not belong to plan %s: %w", id, planID, ErrPriorityNotFound),
			})
			continue
		}

		nodeID := NewComponentID()
		txErr := ce.Store.WithTx(ctx, func(s Store) error {
			goalID, err := ce.resolveParent(ctx, s, plan, priority, goalByPriority, &objectiveID)
			if err != nil {
				return err
			}

			node := &HierarchyComponent{
				ID:          nodeID,
				Type:        ComponentStrategy,
				Title:       strategy.Title,
				Description: strategy.Description,
				ParentID:    &goalID,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.CreateComponent(ctx, node); err != nil {
				return fmt.Errorf("failed to create hierarchy node: %w", err)
			}

			// Conditional write: loses to a concurrent conversion, which
			// rolls back the node created above.
			return s.MarkConverted(ctx, id, nodeID)
		})
		if txErr != nil {
			// A rollback discards any parent created inside this tx; drop the
			// memo so the next item re-resolves instead of reusing a ghost.
			objectiveID = nil
			if errors.Is(txErr, ErrAlreadyConverted) {
				result.Failures = append(result.Failures, ConversionFailure{StrategyID: id, Reason: txErr})
				continue
			}
			return nil, txErr
		}

		// Commit succeeded: the parents created in this tx are durable and
		// safe to reuse for the remaining items.
		if goal, err := ce.Store.FindPriorityGoal(ctx, priority.ID); err == nil && goal != nil {
			goalByPriority[priority.ID] = goal.ID
		}

		result.ConvertedCount++
		result.ComponentIDs = append(result.ComponentIDs, nodeID)
	}

	return result, nil
}

// resolveParent returns the goal node for the priority, creating the plan
// objective and the priority goal as needed.
func (ce *ConversionEngine) resolveParent(
	ctx context.Context,
	s Store,
	plan *FiscalYearPlan,
	priority *CorePriority,
	goalByPriority map[PriorityID]ComponentID,
	objectiveID **ComponentID,
) (ComponentID, error) {
	if goalID, ok := goalByPriority[priority.ID]; ok {
		return goalID, nil
	}

	goal, err := s.FindPriorityGoal(ctx, priority.ID)
	if err != nil {
		return "", err
	}
	if goal != nil {
		return goal.ID, nil
	}

	// Goal missing: anchor it under the plan's objective node.
	if *objectiveID == nil {
		objective, err := s.FindPlanObjective(ctx, plan.ID)
		if err != nil {
			return "", err
		}
		if objective == nil {
			objective = &HierarchyComponent{
				ID:           NewComponentID(),
				Type:         ComponentObjective,
				Title:        plan.FiscalYear + " Strategic Plan",
				Description:  fmt.Sprintf("Top-level objective for fiscal year %s", plan.FiscalYear),
				SourcePlanID: &plan.ID,
				CreatedAt:    time.Now().UTC(),
			}
			if err := s.CreateComponent(ctx, objective); err != nil {
				return "", fmt.Errorf("failed to create objective node: %w", err)
			}
		}
		id := objective.ID
		*objectiveID = &id
	}

	goal = &HierarchyComponent{
		ID:               NewComponentID(),
		Type:             ComponentGoal,
		Title:            priority.Title,
		Description:      priority.Description,
		ParentID:         *objectiveID,
		SourcePriorityID: &priority.ID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.CreateComponent(ctx, goal); err != nil {
		return "", fmt.Errorf("failed to create goal node: %w", err)
	}
	return goal.ID, nil
}
