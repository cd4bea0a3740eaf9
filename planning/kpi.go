/*
kpi.go - KPI derivation and history appends

PURPOSE:
  Turns a converted strategy's success metrics into first-class KPI
  records, and appends time-stamped observations that drive the cached
  current value and health status.

DERIVATION RULES:
  - KPIs derive only from promoted strategies (StrategyNotConvertedError
    otherwise); the KPI links to the strategy's hierarchy node.
  - Each spec validates independently: non-empty trimmed name, recognized
    frequency. Failures are reported per spec, never silently dropped.
  - A fresh KPI has no current value; Classify(nil, target) is on_track
    by convention, since "no data yet" should not alarm.

APPEND + RECOMPUTE:
  AppendHistory writes the observation and recomputes current_value from
  the chronologically latest entry (store-assigned Seq breaks date ties
  toward the most recent insert), then recomputes status via Classify.
  Both writes share one transaction: a crash between them leaves the
  pre-append state intact.

SEE ALSO:
  - health.go: the classifier invoked on every value change
  - forecast.go: reads the history this file appends
*/
package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KPI SERVICE
// =============================================================================

type KPIService struct {
	Store TxStore
}

// KPISpec is the caller-facing shape for CreateKPIsFromStrategy. Callers
// typically seed one spec per success-metric string but may add, edit, or
// omit any.
type KPISpec struct {
	Name        string
	Description string
	TargetValue *decimal.Decimal
	Frequency   Frequency
	Unit        string
	Owner       string
}

// KPISpecFailure reports one rejected spec and why.
type KPISpecFailure struct {
	Index  int
	Reason error
}

// KPICreationResult reports the outcome of a derivation call.
type KPICreationResult struct {
	CreatedCount int
	KPIIDs       []KPIID
	Failures     []KPISpecFailure
}

// SeedSpecsFromMetrics produces one default spec per success-metric string
// on the strategy. Callers may edit the result before derivation.
func SeedSpecsFromMetrics(s *DraftStrategy) []KPISpec {
	specs := make([]KPISpec, 0, len(s.SuccessMetrics))
	for _, metric := range s.SuccessMetrics {
		specs = append(specs, KPISpec{
			Name:        metric,
			Description: fmt.Sprintf("Derived from strategy %q", s.Title),
			Frequency:   FreqMonthly,
		})
	}
	return specs
}

// CreateKPIsFromStrategy creates one KPI per valid spec, linked to the
// strategy's converted hierarchy node. Per-spec failures are isolated and
// reported; valid specs still succeed.
func (ks *KPIService) CreateKPIsFromStrategy(ctx context.Context, strategyID StrategyID, specs []KPISpec) (*KPICreationResult, error) {
	strategy, err := ks.Store.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, ErrStrategyNotFound
	}
	if !strategy.Converted() {
		return nil, &StrategyNotConvertedError{StrategyID: strategyID}
	}

	result := &KPICreationResult{}
	now := time.Now().UTC()

	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			result.Failures = append(result.Failures, KPISpecFailure{
				Index:  i,
				Reason: &InvalidKPISpecError{Index: i, Reason: "name must not be empty"},
			})
			continue
		}
		if !ValidFrequency(spec.Frequency) {
			result.Failures = append(result.Failures, KPISpecFailure{
				Index:  i,
				Reason: &InvalidKPISpecError{Index: i, Reason: fmt.Sprintf("unrecognized frequency %q", spec.Frequency)},
			})
			continue
		}

		kpi := &KPI{
			ID:          NewKPIID(),
			ComponentID: strategy.ConvertedComponentID,
			Name:        name,
			Description: spec.Description,
			TargetValue: spec.TargetValue,
			Unit:        spec.Unit,
			Frequency:   spec.Frequency,
			Status:      Classify(nil, spec.TargetValue),
			Owner:       spec.Owner,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := ks.Store.CreateKPI(ctx, kpi); err != nil {
			return nil, fmt.Errorf("failed to create kpi %q: %w", name, err)
		}

		result.CreatedCount++
		result.KPIIDs = append(result.KPIIDs, kpi.ID)
	}

	return result, nil
}

// AppendHistory appends an immutable observation and recomputes the KPI's
// cached current value and status inside one transaction. Returns the
// updated KPI.
func (ks *KPIService) AppendHistory(ctx context.Context, kpiID KPIID, value decimal.Decimal, date time.Time, note string) (*KPI, error) {
	kpi, err := ks.Store.GetKPI(ctx, kpiID)
	if err != nil {
		return nil, err
	}
	if kpi == nil {
		return nil, ErrKPINotFound
	}

	entry := &KPIHistoryEntry{
		ID:         NewEntryID(),
		KPIID:      kpiID,
		Value:      value,
		RecordedAt: date.UTC(),
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}

	err = ks.Store.WithTx(ctx, func(s Store) error {
		if err := s.AppendHistory(ctx, entry); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		history, err := s.ListHistory(ctx, kpiID)
		if err != nil {
			return err
		}
		// Ascending (RecordedAt, Seq): the last entry is the chronologically
		// latest, with ties broken toward the most recent insert.
		latest := history[len(history)-1]
		return s.UpdateKPIValue(ctx, kpiID, &latest.Value, Classify(&latest.Value, kpi.TargetValue))
	})
	if err != nil {
		return nil, err
	}

	return ks.Store.GetKPI(ctx, kpiID)
}
