package planning_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// stubGenerator returns canned proposals or a canned error.
type stubGenerator struct {
	proposals []planning.StrategyProposal
	err       error
}

func (g *stubGenerator) Generate(ctx context.Context, in planning.GenerationInput) ([]planning.StrategyProposal, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.proposals, nil
}

func proposal(title string) planning.StrategyProposal {
	return planning.StrategyProposal{
		Title:              title,
		SuccessProbability: 0.6,
		EstimatedCost:      planning.CostMedium,
		SuccessMetrics:     []string{"Adoption rate"},
	}
}

func newDrafting(t *testing.T, gen planning.StrategyGenerator) (*planning.DraftingService, *pipeline) {
	t.Helper()
	p := newPipeline(t)
	return &planning.DraftingService{Store: p.mem, Generator: gen}, p
}

// =============================================================================
// DRAFTING TESTS
// =============================================================================

func TestGenerateStrategies_PersistsDrafts(t *testing.T) {
	// GIVEN: A generator yielding two valid proposals
	// WHEN: Generating for a priority
	// THEN: Both persist in status draft under that priority

	gen := &stubGenerator{proposals: []planning.StrategyProposal{
		proposal("Partner channel"), proposal("Direct sales push"),
	}}
	ds, p := newDrafting(t, gen)
	ctx := context.Background()

	drafts, err := ds.GenerateStrategies(ctx, p.priorities[0].ID, planning.GenerationContext{}, 2)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	for _, d := range drafts {
		assert.Equal(t, planning.StrategyDraft, d.Status)
		assert.Equal(t, p.priorities[0].ID, d.PriorityID)
		assert.NotEmpty(t, d.ID)
	}

	stored, err := p.mem.ListStrategies(ctx, p.priorities[0].ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGenerateStrategies_DropsInvalidProposals(t *testing.T) {
	// GIVEN: A mix of invalid and valid proposals
	// WHEN: Generating
	// THEN: Blank titles and out-of-range probabilities are dropped silently

	bad := proposal("   ")
	outOfRange := proposal("Too confident")
	outOfRange.SuccessProbability = 1.5
	gen := &stubGenerator{proposals: []planning.StrategyProposal{
		bad, outOfRange, proposal("The keeper"),
	}}
	ds, p := newDrafting(t, gen)

	drafts, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, 3)

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "The keeper", drafts[0].Title)
}

func TestGenerateStrategies_CapsAtRequestedCount(t *testing.T) {
	gen := &stubGenerator{proposals: []planning.StrategyProposal{
		proposal("One"), proposal("Two"), proposal("Three"),
	}}
	ds, p := newDrafting(t, gen)

	drafts, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, 2)

	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestGenerateStrategies_NothingUsable_Unavailable(t *testing.T) {
	gen := &stubGenerator{proposals: []planning.StrategyProposal{proposal("  ")}}
	ds, p := newDrafting(t, gen)

	_, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, 1)

	assert.ErrorIs(t, err, planning.ErrGeneratorUnavailable)
}

func TestGenerateStrategies_GeneratorFailure_Unavailable(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	ds, p := newDrafting(t, gen)

	_, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, 1)

	assert.ErrorIs(t, err, planning.ErrGeneratorUnavailable)
}

func TestGenerateStrategies_DeadlineExpiry_Timeout(t *testing.T) {
	// GIVEN: A generator that fails after the context deadline passed
	// WHEN: Generating
	// THEN: The failure surfaces as a typed timeout, not unavailability

	gen := &stubGenerator{err: context.DeadlineExceeded}
	ds, p := newDrafting(t, gen)

	_, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, 1)

	var timeout *planning.GenerationTimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestGenerateStrategies_CallerCancellation_NotATimeout(t *testing.T) {
	// GIVEN: A caller that cancels mid-generation
	// WHEN: The generator surfaces the cancellation
	// THEN: context.Canceled propagates; the collaborator is not blamed

	gen := &stubGenerator{err: context.Canceled}
	ds, p := newDrafting(t, gen)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.GenerateStrategies(ctx, p.priorities[0].ID, planning.GenerationContext{}, 1)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, planning.ErrGenerationTimeout)
	assert.NotErrorIs(t, err, planning.ErrGeneratorUnavailable)
}

func TestGenerateStrategies_CountBounds(t *testing.T) {
	ds, p := newDrafting(t, &stubGenerator{proposals: []planning.StrategyProposal{proposal("x")}})

	for _, count := range []int{0, -1, planning.MaxGeneratedStrategies + 1} {
		_, err := ds.GenerateStrategies(context.Background(), p.priorities[0].ID, planning.GenerationContext{}, count)
		assert.True(t, planning.IsValidation(err), "count %d must be rejected", count)
	}
}

func TestGenerateStrategies_PriorityNotFound(t *testing.T) {
	ds, _ := newDrafting(t, &stubGenerator{proposals: []planning.StrategyProposal{proposal("x")}})

	_, err := ds.GenerateStrategies(context.Background(), "prio_missing", planning.GenerationContext{}, 1)

	assert.ErrorIs(t, err, planning.ErrPriorityNotFound)
}
