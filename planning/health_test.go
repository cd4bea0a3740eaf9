package planning_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/strategy-engine/planning"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// HEALTH CLASSIFICATION TESTS
// =============================================================================

func TestClassify_NoTarget_OnTrack(t *testing.T) {
	// GIVEN: A KPI without a target
	// WHEN: Classifying any current value
	// THEN: Health is on_track, there is nothing to miss

	assert.Equal(t, planning.HealthOnTrack, planning.Classify(dec("42"), nil))
	assert.Equal(t, planning.HealthOnTrack, planning.Classify(nil, nil))
}

func TestClassify_ZeroTarget_OnTrack(t *testing.T) {
	// GIVEN: A target of exactly zero
	// WHEN: Classifying
	// THEN: on_track, a zero target yields no meaningful ratio

	assert.Equal(t, planning.HealthOnTrack, planning.Classify(dec("0"), dec("0")))
	assert.Equal(t, planning.HealthOnTrack, planning.Classify(dec("100"), dec("0")))
}

func TestClassify_NoCurrentValue_OnTrack(t *testing.T) {
	// GIVEN: A KPI with a target but no observations yet
	// WHEN: Classifying nil against 100
	// THEN: on_track by convention, no data should not alarm

	assert.Equal(t, planning.HealthOnTrack, planning.Classify(nil, dec("100")))
}

func TestClassify_RatioThresholds(t *testing.T) {
	target := dec("100")

	cases := []struct {
		current string
		want    planning.Health
	}{
		{"100", planning.HealthOnTrack},
		{"95", planning.HealthOnTrack},
		{"90", planning.HealthOnTrack}, // boundary: >= 0.90
		{"89.99", planning.HealthAtRisk},
		{"75", planning.HealthAtRisk},
		{"70", planning.HealthAtRisk}, // boundary: >= 0.70
		{"69.99", planning.HealthOffTrack},
		{"50", planning.HealthOffTrack},
		{"0", planning.HealthOffTrack},
	}

	for _, tc := range cases {
		got := planning.Classify(dec(tc.current), target)
		assert.Equal(t, tc.want, got, "current=%s", tc.current)
	}
}

func TestClassify_SatisfactionWalkthrough(t *testing.T) {
	// GIVEN: Target 100
	// WHEN: The score moves 65 -> 91
	// THEN: off_track first, on_track after

	target := dec("100")
	assert.Equal(t, planning.HealthOffTrack, planning.Classify(dec("65"), target))
	assert.Equal(t, planning.HealthOnTrack, planning.Classify(dec("91"), target))
}

func TestClassify_ExceedingTarget_OnTrack(t *testing.T) {
	assert.Equal(t, planning.HealthOnTrack, planning.Classify(dec("120"), dec("100")))
}
