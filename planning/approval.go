/*
approval.go - Draft-strategy review state machine

PURPOSE:
  Governs the lifecycle of each draft strategy independently of raw
  persistence.

STATE MACHINE:
  draft ──▶ under_review ──▶ approved
                       └───▶ rejected

  approved and rejected are re-enterable from each other: a previously
  rejected strategy may later be approved, and vice versa. Once the
  strategy is converted, ALL transitions are rejected with
  StrategyLockedError - conversion is a one-way promotion.

SIDE EFFECTS:
  None beyond persistence. This component never cascades to KPIs or
  hierarchy nodes.

SEE ALSO:
  - conversion.go: the only writer of the converted lock
*/
package planning

import "context"

// =============================================================================
// APPROVAL SERVICE
// =============================================================================

type ApprovalService struct {
	Store Store
}

// SetStatus transitions a draft strategy to newStatus and returns the
// updated record. Fails with StrategyLockedError on a converted strategy
// and with a validation error on an unknown status value.
func (as *ApprovalService) SetStatus(ctx context.Context, id StrategyID, newStatus StrategyStatus) (*DraftStrategy, error) {
	if !ValidStrategyStatus(newStatus) {
		return nil, &ValidationError{Field: "status", Reason: "must be one of draft, under_review, approved, rejected"}
	}

	strategy, err := as.Store.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, ErrStrategyNotFound
	}
	if strategy.Converted() {
		return nil, &StrategyLockedError{
			StrategyID:  id,
			ComponentID: *strategy.ConvertedComponentID,
		}
	}

	if err := as.Store.UpdateStrategyStatus(ctx, id, newStatus); err != nil {
		return nil, err
	}
	return as.Store.GetStrategy(ctx, id)
}
