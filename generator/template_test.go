package generator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/strategy-engine/generator"
	"github.com/warp/strategy-engine/planning"
)

func TestTemplateGenerator_Deterministic(t *testing.T) {
	// GIVEN: The same input twice
	// WHEN: Generating
	// THEN: Identical proposals come back

	g := generator.NewTemplateGenerator()
	in := planning.GenerationInput{
		PriorityTitle: "Reduce churn",
		Count:         3,
	}

	first, err := g.Generate(context.Background(), in)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTemplateGenerator_SeedsFromPriorityTitle(t *testing.T) {
	g := generator.NewTemplateGenerator()

	proposals, err := g.Generate(context.Background(), planning.GenerationInput{
		PriorityTitle: "Reduce churn",
		Count:         4,
	})
	require.NoError(t, err)
	require.Len(t, proposals, 4)

	for _, p := range proposals {
		assert.Contains(t, p.Title, "Reduce churn")
		assert.NotEmpty(t, p.SuccessMetrics)
		assert.True(t, planning.ValidCostEstimate(p.EstimatedCost))
		assert.GreaterOrEqual(t, p.SuccessProbability, 0.0)
		assert.LessOrEqual(t, p.SuccessProbability, 1.0)
	}
}

func TestTemplateGenerator_CapsAtTemplateCount(t *testing.T) {
	g := generator.NewTemplateGenerator()

	proposals, err := g.Generate(context.Background(), planning.GenerationInput{
		PriorityTitle: "Anything",
		Count:         10,
	})
	require.NoError(t, err)

	assert.Len(t, proposals, 4, "only as many proposals as templates exist")
}

func TestTemplateGenerator_ContextHintsApplied(t *testing.T) {
	// GIVEN: A timeframe and objective in the generation context
	// WHEN: Generating
	// THEN: The timeframe overrides the template default and the rationale
	//       references the objective

	g := generator.NewTemplateGenerator()

	proposals, err := g.Generate(context.Background(), planning.GenerationInput{
		PriorityTitle: "Expand EMEA",
		Count:         1,
		Context: planning.GenerationContext{
			Timeframe: "FY27 H1",
			Objective: "Double international revenue",
		},
	})
	require.NoError(t, err)
	require.Len(t, proposals, 1)

	assert.Equal(t, "FY27 H1", proposals[0].Timeframe)
	assert.True(t, strings.Contains(proposals[0].Rationale, "Double international revenue"))
}

func TestTemplateGenerator_CancelledContext(t *testing.T) {
	g := generator.NewTemplateGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, planning.GenerationInput{PriorityTitle: "x", Count: 1})

	assert.ErrorIs(t, err, context.Canceled)
}
