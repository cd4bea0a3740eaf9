/*
health.go - KPI health classification

PURPOSE:
  Maps a (current, target) pair onto the tri-state health label used by
  dashboards and plan-level rollups. Classify is deterministic, total, and
  side-effect-free; every write path that changes current_value or
  target_value must re-invoke it.

THRESHOLDS:
  ratio = current / target
  ratio >= 0.90          -> on_track
  0.70 <= ratio < 0.90   -> at_risk
  ratio <  0.70          -> off_track

EDGE CASES:
  - nil or zero target: on_track (no target defined => no alarm)
  - nil current: on_track (no data yet should not alarm)
*/
package planning

import "github.com/shopspring/decimal"

var (
	onTrackRatio = decimal.RequireFromString("0.90")
	atRiskRatio  = decimal.RequireFromString("0.70")
)

// Classify maps current/target onto a health label. Total: every input pair,
// including nil current and nil/zero target, yields exactly one label.
func Classify(current, target *decimal.Decimal) Health {
	if target == nil || target.IsZero() {
		return HealthOnTrack
	}

	if current == nil {
		return HealthOnTrack
	}

	ratio := current.Div(*target)
	switch {
	case ratio.GreaterThanOrEqual(onTrackRatio):
		return HealthOnTrack
	case ratio.GreaterThanOrEqual(atRiskRatio):
		return HealthAtRisk
	default:
		return HealthOffTrack
	}
}
