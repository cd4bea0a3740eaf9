/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these categories onto status codes.

ERROR CATEGORIES:
  1. Validation errors - bad enum value, missing field, out-of-range number
  2. State-conflict errors - illegal transition given current record state
  3. Data-sufficiency conditions - valid-but-empty results (see forecast.go)
  4. Collaborator failures - generator timeout or unavailability

USAGE:
  Callers branch on categories, not concrete types:

    if planning.IsStateConflict(err) {
        // safe to retry after inspecting current state
    }

SEE ALSO:
  - approval.go, conversion.go: raise the state-conflict errors
  - drafting.go: raises the collaborator errors
  - api/handlers.go: maps categories to HTTP status codes
*/
package planning

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPlanNotFound is returned when a referenced plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPriorityNotFound is returned when a referenced priority doesn't exist.
	ErrPriorityNotFound = errors.New("priority not found")

	// ErrStrategyNotFound is returned when a referenced draft strategy doesn't exist.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrComponentNotFound is returned when a referenced hierarchy node doesn't exist.
	ErrComponentNotFound = errors.New("hierarchy component not found")

	// ErrKPINotFound is returned when a referenced KPI doesn't exist.
	ErrKPINotFound = errors.New("kpi not found")

	// ErrDuplicateFiscalYear is returned when a plan's fiscal-year label
	// already exists.
	ErrDuplicateFiscalYear = errors.New("duplicate fiscal year")

	// ErrPlanNotDraft is returned when activating a plan that is not in draft.
	ErrPlanNotDraft = errors.New("plan is not in draft status")

	// ErrStrategyLocked is returned when changing the status of a strategy
	// that has already been converted. Conversion is a one-way promotion.
	ErrStrategyLocked = errors.New("strategy is converted and locked")

	// ErrNotApproved is returned when converting a strategy that is not approved.
	ErrNotApproved = errors.New("strategy is not approved")

	// ErrAlreadyConverted is returned when converting a strategy that already
	// has a hierarchy node. This is expected behavior for retries.
	ErrAlreadyConverted = errors.New("strategy already converted")

	// ErrStrategyNotConverted is returned when deriving KPIs from a strategy
	// that has not been promoted yet.
	ErrStrategyNotConverted = errors.New("strategy has no converted component")

	// ErrPrioritiesInUse is returned when replacing a plan's priorities while
	// draft strategies still reference them.
	ErrPrioritiesInUse = errors.New("priorities have strategies attached")

	// ErrInvalidKPISpec is returned for a KPI specification that fails validation.
	ErrInvalidKPISpec = errors.New("invalid kpi spec")

	// ErrInsufficientData marks a forecast computed from too little history.
	// It is a caller-visible condition, not a hard failure; Forecast returns
	// a valid empty result alongside it. See ForecastResult.InsufficientData.
	ErrInsufficientData = errors.New("insufficient history for forecast")

	// ErrGenerationTimeout is returned when the strategy generator does not
	// respond within the caller-supplied deadline.
	ErrGenerationTimeout = errors.New("strategy generation timed out")

	// ErrGeneratorUnavailable is returned when the strategy generator fails
	// for any reason other than a timeout.
	ErrGeneratorUnavailable = errors.New("strategy generator unavailable")

	// ErrValidation is the root of all synchronous input-validation failures.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field. Validation errors are
// never partially applied: the whole operation is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateFiscalYearError reports a fiscal-year label collision.
type DuplicateFiscalYearError struct {
	FiscalYear string
}

func (e *DuplicateFiscalYearError) Error() string {
	return fmt.Sprintf("fiscal year %q already exists", e.FiscalYear)
}

func (e *DuplicateFiscalYearError) Unwrap() error { return ErrDuplicateFiscalYear }

// PlanNotDraftError reports an activation attempt on a non-draft plan.
type PlanNotDraftError struct {
	PlanID PlanID
	Status PlanStatus
}

func (e *PlanNotDraftError) Error() string {
	return fmt.Sprintf("plan %s cannot be activated: status is %s, not draft", e.PlanID, e.Status)
}

func (e *PlanNotDraftError) Unwrap() error { return ErrPlanNotDraft }

// StrategyLockedError reports a status change on a converted strategy.
type StrategyLockedError struct {
	StrategyID  StrategyID
	ComponentID ComponentID
}

func (e *StrategyLockedError) Error() string {
	return fmt.Sprintf("strategy %s is locked: converted to component %s", e.StrategyID, e.ComponentID)
}

func (e *StrategyLockedError) Unwrap() error { return ErrStrategyLocked }

// NotApprovedError reports a conversion attempt on a non-approved strategy.
type NotApprovedError struct {
	StrategyID StrategyID
	Status     StrategyStatus
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("strategy %s cannot be converted: status is %s, not approved", e.StrategyID, e.Status)
}

func (e *NotApprovedError) Unwrap() error { return ErrNotApproved }

// AlreadyConvertedError reports a conversion attempt on an already-converted
// strategy. Benign: the existing component id is included so callers can
// treat the retry as an idempotent no-op.
type AlreadyConvertedError struct {
	StrategyID  StrategyID
	ComponentID ComponentID
}

func (e *AlreadyConvertedError) Error() string {
	return fmt.Sprintf("strategy %s already converted to component %s", e.StrategyID, e.ComponentID)
}

func (e *AlreadyConvertedError) Unwrap() error { return ErrAlreadyConverted }

// StrategyNotConvertedError reports KPI derivation from an unpromoted strategy.
type StrategyNotConvertedError struct {
	StrategyID StrategyID
}

func (e *StrategyNotConvertedError) Error() string {
	return fmt.Sprintf("strategy %s has not been converted; KPIs derive only from promoted strategies", e.StrategyID)
}

func (e *StrategyNotConvertedError) Unwrap() error { return ErrStrategyNotConverted }

// PrioritiesInUseError reports a priority replacement blocked by existing
// strategies. Callers must delete or convert the strategies first; the
// engine never orphans drafts.
type PrioritiesInUseError struct {
	PlanID        PlanID
	StrategyCount int
}

func (e *PrioritiesInUseError) Error() string {
	return fmt.Sprintf("plan %s priorities cannot be replaced: %d strategies still attached", e.PlanID, e.StrategyCount)
}

func (e *PrioritiesInUseError) Unwrap() error { return ErrPrioritiesInUse }

// InvalidKPISpecError reports a single rejected KPI specification within a
// batch. Specs are rejected individually, never silently dropped.
type InvalidKPISpecError struct {
	Index  int
	Reason string
}

func (e *InvalidKPISpecError) Error() string {
	return fmt.Sprintf("kpi spec %d invalid: %s", e.Index, e.Reason)
}

func (e *InvalidKPISpecError) Unwrap() error { return ErrInvalidKPISpec }

// GenerationTimeoutError reports that the drafting collaborator exceeded
// the caller-supplied deadline.
type GenerationTimeoutError struct {
	Elapsed time.Duration
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("strategy generation timed out after %s", e.Elapsed)
}

func (e *GenerationTimeoutError) Unwrap() error { return ErrGenerationTimeout }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is a synchronous input rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidKPISpec)
}

// IsStateConflict returns true if the requested transition is illegal given
// current state. Safe to retry after inspecting current state.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrStrategyLocked) ||
		errors.Is(err, ErrAlreadyConverted) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrPlanNotDraft) ||
		errors.Is(err, ErrStrategyNotConverted) ||
		errors.Is(err, ErrPrioritiesInUse) ||
		errors.Is(err, ErrDuplicateFiscalYear)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrPriorityNotFound) ||
		errors.Is(err, ErrStrategyNotFound) ||
		errors.Is(err, ErrComponentNotFound) ||
		errors.Is(err, ErrKPINotFound)
}

// IsCollaboratorFailure returns true if the error came from the external
// drafting generator rather than this engine.
func IsCollaboratorFailure(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrGeneratorUnavailable)
}
