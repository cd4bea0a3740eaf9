/*
forecast.go - KPI trend projection from observation history

PURPOSE:
  Computes a forward-looking trend, confidence classification, and
  on-track determination from a KPI's history. The forecast is derived on
  demand and never persisted.

METHOD (reference linear-trend estimator):
  1. Sort history ascending by (date, insertion seq); treat the date axis
     as a periodic index 0..n-1 matching the KPI's frequency.
  2. Least-squares fit over index vs. value. Trend is increasing when the
     slope exceeds a small threshold relative to the observed value range,
     decreasing below the symmetric negative threshold, else stable.
  3. Project the requested number of future points along the fitted line.
  4. Interval half-width = residual stddev x 1.96 x sqrt(periods-ahead),
     so uncertainty widens monotonically with projection distance.
  5. Confidence: high when residual spread is small relative to the value
     range and history length >= 6; medium for moderate spread or shorter
     history; low otherwise.
  6. On-track compares the FINAL projected point to the target,
     direction-aware: the improvement direction is inferred from whether
     the target sits above or below the earliest observation. When no
     direction can be inferred, on-track is nil.

INSUFFICIENT DATA:
  Fewer than 2 observations yields a valid result with empty projections
  and a human-relevant message - a condition for dashboards to render,
  not an error.

FLOAT PRECISION:
  Values are stored as decimals but the regression runs on float64;
  statistical estimates do not need exact decimal arithmetic.

SEE ALSO:
  - kpi.go: appends the history this engine reads
*/
package planning

import (
	"context"
	"fmt"
	"math"
	"time"
)

// =============================================================================
// FORECAST TYPES
// =============================================================================

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ForecastPoint is one projected future observation with its interval.
type ForecastPoint struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// ForecastResult is the derived, non-persisted projection of a KPI's
// trajectory. OnTrack is nil when indeterminate.
type ForecastResult struct {
	KPIID            KPIID
	Trend            Trend
	Confidence       Confidence
	Points           []ForecastPoint
	OnTrack          *bool
	InsufficientData bool
	Message          string
}

// =============================================================================
// TUNING CONSTANTS
// =============================================================================

const (
	// trendThresholdFraction scales the slope threshold: a per-period slope
	// within +/- 2% of the observed value range classifies as stable.
	trendThresholdFraction = 0.02

	// intervalZ is the normal z-score for a ~95% interval.
	intervalZ = 1.96

	// Residual stddev relative to value range, by confidence bucket.
	highSpreadFraction   = 0.10
	mediumSpreadFraction = 0.25

	// History lengths gating confidence.
	highConfidenceMinHistory   = 6
	mediumConfidenceMinHistory = 4

	// MinForecastHistory is the fewest observations a projection needs.
	MinForecastHistory = 2
)

// =============================================================================
// FORECAST ENGINE
// =============================================================================

type ForecastEngine struct {
	Store Store
}

// Forecast projects the KPI's trajectory `periods` steps past the last
// observation. With fewer than MinForecastHistory entries it returns a
// valid insufficient-data result, not an error.
func (fe *ForecastEngine) Forecast(ctx context.Context, kpiID KPIID, periods int) (*ForecastResult, error) {
	if periods < 1 {
		return nil, &ValidationError{Field: "periods", Reason: "must be at least 1"}
	}

	kpi, err := fe.Store.GetKPI(ctx, kpiID)
	if err != nil {
		return nil, err
	}
	if kpi == nil {
		return nil, ErrKPINotFound
	}

	history, err := fe.Store.ListHistory(ctx, kpiID)
	if err != nil {
		return nil, err
	}

	if len(history) < MinForecastHistory {
		return &ForecastResult{
			KPIID:            kpiID,
			Trend:            TrendStable,
			Confidence:       ConfidenceLow,
			InsufficientData: true,
			Message: fmt.Sprintf("need at least %d observations to forecast; have %d",
				MinForecastHistory, len(history)),
		}, nil
	}

	n := len(history)
	values := make([]float64, n)
	for i, e := range history {
		values[i], _ = e.Value.Float64()
	}

	slope, intercept := leastSquares(values)
	residStd := residualStddev(values, slope, intercept)
	valueRange := rangeOf(values)

	result := &ForecastResult{
		KPIID:      kpiID,
		Trend:      classifyTrend(slope, valueRange),
		Confidence: classifyConfidence(residStd, valueRange, n),
	}

	last := history[n-1].RecordedAt
	for k := 1; k <= periods; k++ {
		predicted := intercept + slope*float64(n-1+k)
		half := intervalZ * residStd * math.Sqrt(float64(k))
		result.Points = append(result.Points, ForecastPoint{
			Date:      advance(last, kpi.Frequency, k),
			Predicted: predicted,
			Lower:     predicted - half,
			Upper:     predicted + half,
		})
	}

	result.OnTrack = onTrack(kpi, values, result.Points[len(result.Points)-1].Predicted)
	return result, nil
}

// =============================================================================
// REGRESSION PRIMITIVES
// =============================================================================

// leastSquares fits value = intercept + slope*index over index 0..n-1.
func leastSquares(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// residualStddev estimates the spread around the fitted line. With exactly
// two points the fit is exact and the spread is zero.
func residualStddev(values []float64, slope, intercept float64) float64 {
	n := len(values)
	if n <= 2 {
		return 0
	}
	var sumSq float64
	for i, y := range values {
		r := y - (intercept + slope*float64(i))
		sumSq += r * r
	}
	return math.Sqrt(sumSq / float64(n-2))
}

func rangeOf(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}

func classifyTrend(slope, valueRange float64) Trend {
	threshold := trendThresholdFraction * valueRange
	if threshold < 1e-9 {
		// Flat or near-flat series: any measurable slope counts.
		threshold = 1e-9
	}
	switch {
	case slope > threshold:
		return TrendIncreasing
	case slope < -threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func classifyConfidence(residStd, valueRange float64, n int) Confidence {
	// A flat series fits itself exactly; judge by history length alone.
	var rel float64
	switch {
	case residStd == 0:
		rel = 0
	case valueRange == 0:
		rel = math.Inf(1)
	default:
		rel = residStd / valueRange
	}

	if rel <= highSpreadFraction && n >= highConfidenceMinHistory {
		return ConfidenceHigh
	}
	if rel <= mediumSpreadFraction || n >= mediumConfidenceMinHistory {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// onTrack compares the final projected point to the target, direction-aware.
// Returns nil when the KPI has no target or the improvement direction
// cannot be inferred (target equals the earliest observation).
func onTrack(kpi *KPI, values []float64, finalPredicted float64) *bool {
	if kpi.TargetValue == nil {
		return nil
	}
	target, _ := kpi.TargetValue.Float64()
	earliest := values[0]

	var ok bool
	switch {
	case target > earliest: // increasing-is-good
		ok = finalPredicted >= target
	case target < earliest: // decreasing-is-good
		ok = finalPredicted <= target
	default:
		return nil
	}
	return &ok
}

// advance steps a date k periods forward at the KPI's tracking frequency.
func advance(t time.Time, f Frequency, k int) time.Time {
	switch f {
	case FreqDaily:
		return t.AddDate(0, 0, k)
	case FreqWeekly:
		return t.AddDate(0, 0, 7*k)
	case FreqMonthly:
		return t.AddDate(0, k, 0)
	case FreqQuarterly:
		return t.AddDate(0, 3*k, 0)
	case FreqAnnual:
		return t.AddDate(k, 0, 0)
	default:
		return t.AddDate(0, k, 0)
	}
}
