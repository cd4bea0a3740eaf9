package planning_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// convertedStrategy runs a strategy through approval and conversion and
// returns the pipeline plus the strategy id.
func convertedStrategy(t *testing.T) (*pipeline, planning.StrategyID) {
	t.Helper()
	p := newPipeline(t)
	ctx := context.Background()

	id := p.addStrategy(t, 1, "Partnership push", planning.StrategyApproved)
	result, err := p.conversion.ConvertStrategies(ctx, p.plan.ID, []planning.StrategyID{id})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConvertedCount)
	return p, id
}

func monthlySpec(name string, target string) planning.KPISpec {
	spec := planning.KPISpec{
		Name:      name,
		Frequency: planning.FreqMonthly,
	}
	if target != "" {
		d := decimal.RequireFromString(target)
		spec.TargetValue = &d
	}
	return spec
}

// =============================================================================
// KPI DERIVATION TESTS
// =============================================================================

func TestCreateKPIs_LinkedToConvertedComponent(t *testing.T) {
	// GIVEN: A converted strategy
	// WHEN: Deriving one KPI
	// THEN: The KPI links to the strategy's hierarchy node and starts
	//       without a current value, classified on_track

	p, id := convertedStrategy(t)
	ctx := context.Background()

	result, err := p.kpis.CreateKPIsFromStrategy(ctx, id, []planning.KPISpec{
		monthlySpec("Signed partnerships", "12"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CreatedCount)
	assert.Empty(t, result.Failures)
	require.Len(t, result.KPIIDs, 1)

	kpi, err := p.mem.GetKPI(ctx, result.KPIIDs[0])
	require.NoError(t, err)
	require.NotNil(t, kpi)

	strategy, err := p.mem.GetStrategy(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, kpi.ComponentID)
	assert.Equal(t, *strategy.ConvertedComponentID, *kpi.ComponentID)
	assert.Nil(t, kpi.CurrentValue)
	assert.Equal(t, planning.HealthOnTrack, kpi.Status)
}

func TestCreateKPIs_UnconvertedStrategy_Rejected(t *testing.T) {
	p := newPipeline(t)
	id := p.addStrategy(t, 1, "Not yet", planning.StrategyApproved)

	_, err := p.kpis.CreateKPIsFromStrategy(context.Background(), id, []planning.KPISpec{
		monthlySpec("Too early", ""),
	})

	var notConv *planning.StrategyNotConvertedError
	require.ErrorAs(t, err, &notConv)
	assert.True(t, planning.IsStateConflict(err))
}

func TestCreateKPIs_PerSpecFailures(t *testing.T) {
	// GIVEN: A batch with a blank name, a bad frequency, and a valid spec
	// WHEN: Deriving
	// THEN: The valid spec succeeds; the others fail individually by index

	p, id := convertedStrategy(t)

	result, err := p.kpis.CreateKPIsFromStrategy(context.Background(), id, []planning.KPISpec{
		{Name: "   ", Frequency: planning.FreqMonthly},
		{Name: "Bad cadence", Frequency: "fortnightly"},
		monthlySpec("Valid one", "10"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CreatedCount)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 0, result.Failures[0].Index)
	assert.Equal(t, 1, result.Failures[1].Index)
	assert.ErrorIs(t, result.Failures[1].Reason, planning.ErrInvalidKPISpec)
}

func TestSeedSpecsFromMetrics(t *testing.T) {
	// GIVEN: A strategy with two success metrics
	// WHEN: Seeding specs
	// THEN: One monthly spec per metric, editable by the caller

	p, id := convertedStrategy(t)
	strategy, err := p.mem.GetStrategy(context.Background(), id)
	require.NoError(t, err)

	specs := planning.SeedSpecsFromMetrics(strategy)

	require.Len(t, specs, 2)
	assert.Equal(t, "Signed partnerships", specs[0].Name)
	assert.Equal(t, "Channel revenue", specs[1].Name)
	assert.Equal(t, planning.FreqMonthly, specs[0].Frequency)
	assert.Nil(t, specs[0].TargetValue)
}

// =============================================================================
// HISTORY APPEND TESTS
// =============================================================================

func TestAppendHistory_UpdatesCurrentValueAndStatus(t *testing.T) {
	// GIVEN: A KPI with target 100
	// WHEN: Recording 65 and then 91
	// THEN: off_track after the first, on_track after the second

	p, id := convertedStrategy(t)
	ctx := context.Background()

	result, err := p.kpis.CreateKPIsFromStrategy(ctx, id, []planning.KPISpec{
		monthlySpec("Satisfaction score", "100"),
	})
	require.NoError(t, err)
	kpiID := result.KPIIDs[0]

	jan := time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC)
	kpi, err := p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(65), jan, "january survey")
	require.NoError(t, err)
	require.NotNil(t, kpi.CurrentValue)
	assert.True(t, kpi.CurrentValue.Equal(decimal.NewFromInt(65)))
	assert.Equal(t, planning.HealthOffTrack, kpi.Status)

	feb := jan.AddDate(0, 1, 0)
	kpi, err = p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(91), feb, "february survey")
	require.NoError(t, err)
	assert.True(t, kpi.CurrentValue.Equal(decimal.NewFromInt(91)))
	assert.Equal(t, planning.HealthOnTrack, kpi.Status)

	history, err := p.mem.ListHistory(ctx, kpiID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAppendHistory_BackdatedEntry_DoesNotBecomeCurrent(t *testing.T) {
	// GIVEN: An observation recorded for February
	// WHEN: A backdated January value arrives afterwards
	// THEN: The current value stays at the chronologically latest entry

	p, id := convertedStrategy(t)
	ctx := context.Background()

	result, err := p.kpis.CreateKPIsFromStrategy(ctx, id, []planning.KPISpec{
		monthlySpec("Score", "100"),
	})
	require.NoError(t, err)
	kpiID := result.KPIIDs[0]

	feb := time.Date(2027, time.February, 28, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC)

	_, err = p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(95), feb, "")
	require.NoError(t, err)
	kpi, err := p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(40), jan, "backfilled")
	require.NoError(t, err)

	assert.True(t, kpi.CurrentValue.Equal(decimal.NewFromInt(95)),
		"backdated entry must not override the latest value")
	assert.Equal(t, planning.HealthOnTrack, kpi.Status)

	// History reads back in chronological order regardless of insert order.
	history, err := p.mem.ListHistory(ctx, kpiID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].RecordedAt.Before(history[1].RecordedAt))
}

func TestAppendHistory_SameDate_LatestInsertWins(t *testing.T) {
	// GIVEN: Two observations for the same date
	// WHEN: Recomputing the current value
	// THEN: The most recently inserted one wins the tie

	p, id := convertedStrategy(t)
	ctx := context.Background()

	result, err := p.kpis.CreateKPIsFromStrategy(ctx, id, []planning.KPISpec{
		monthlySpec("Score", "100"),
	})
	require.NoError(t, err)
	kpiID := result.KPIIDs[0]

	day := time.Date(2027, time.March, 31, 0, 0, 0, 0, time.UTC)
	_, err = p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(80), day, "first reading")
	require.NoError(t, err)
	kpi, err := p.kpis.AppendHistory(ctx, kpiID, decimal.NewFromInt(85), day, "corrected reading")
	require.NoError(t, err)

	assert.True(t, kpi.CurrentValue.Equal(decimal.NewFromInt(85)))
}

func TestAppendHistory_KPINotFound(t *testing.T) {
	p, _ := convertedStrategy(t)

	_, err := p.kpis.AppendHistory(context.Background(), "kpi_missing",
		decimal.NewFromInt(1), time.Now(), "")

	assert.ErrorIs(t, err, planning.ErrKPINotFound)
}
