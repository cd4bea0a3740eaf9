package planning_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/strategy-engine/planning"
	"github.com/warp/strategy-engine/planning/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// seedStrategy creates a plan, one priority, and one draft strategy, and
// returns the strategy with the stores wired.
func seedStrategy(t *testing.T) (*store.Memory, *planning.DraftStrategy) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	ps := &planning.PlanService{Store: mem}

	start, end := fy(2027)
	plan, err := ps.CreatePlan(ctx, "FY27", start, end)
	require.NoError(t, err)

	priorities, err := ps.SetPriorities(ctx, plan.ID, []planning.PrioritySpec{
		{Number: 1, Title: "Reduce churn"},
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	strategy := planning.DraftStrategy{
		ID:            planning.NewStrategyID(),
		PriorityID:    priorities[0].ID,
		Title:         "Customer success outreach",
		EstimatedCost: planning.CostLow,
		Status:        planning.StrategyDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, mem.CreateStrategies(ctx, []planning.DraftStrategy{strategy}))
	return mem, &strategy
}

// =============================================================================
// REVIEW TRANSITION TESTS
// =============================================================================

func TestSetStatus_AnyTransitionAllowed(t *testing.T) {
	// GIVEN: A draft strategy
	// WHEN: Walking it through every review state, including backwards
	// THEN: Each transition succeeds

	mem, strategy := seedStrategy(t)
	as := &planning.ApprovalService{Store: mem}
	ctx := context.Background()

	path := []planning.StrategyStatus{
		planning.StrategyUnderReview,
		planning.StrategyApproved,
		planning.StrategyRejected,
		planning.StrategyDraft,
		planning.StrategyApproved,
	}
	for _, status := range path {
		got, err := as.SetStatus(ctx, strategy.ID, status)
		require.NoError(t, err, "transition to %s", status)
		assert.Equal(t, status, got.Status)
	}
}

func TestSetStatus_UnknownStatus_Rejected(t *testing.T) {
	mem, strategy := seedStrategy(t)
	as := &planning.ApprovalService{Store: mem}

	_, err := as.SetStatus(context.Background(), strategy.ID, "shipped")

	assert.True(t, planning.IsValidation(err))
}

func TestSetStatus_NotFound(t *testing.T) {
	mem, _ := seedStrategy(t)
	as := &planning.ApprovalService{Store: mem}

	_, err := as.SetStatus(context.Background(), "strat_missing", planning.StrategyApproved)

	assert.ErrorIs(t, err, planning.ErrStrategyNotFound)
}

func TestSetStatus_ConvertedStrategy_Locked(t *testing.T) {
	// GIVEN: A strategy already promoted into the hierarchy
	// WHEN: Trying any further review transition
	// THEN: StrategyLockedError, the review lifecycle is over

	mem, strategy := seedStrategy(t)
	as := &planning.ApprovalService{Store: mem}
	ctx := context.Background()

	_, err := as.SetStatus(ctx, strategy.ID, planning.StrategyApproved)
	require.NoError(t, err)

	node := &planning.HierarchyComponent{
		ID:        planning.NewComponentID(),
		Type:      planning.ComponentStrategy,
		Title:     strategy.Title,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mem.CreateComponent(ctx, node))
	require.NoError(t, mem.MarkConverted(ctx, strategy.ID, node.ID))

	_, err = as.SetStatus(ctx, strategy.ID, planning.StrategyRejected)

	var lockedErr *planning.StrategyLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, strategy.ID, lockedErr.StrategyID)
	assert.True(t, planning.IsStateConflict(err))
}
