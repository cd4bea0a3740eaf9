/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and domain services, not in DTOs. DTOs
  are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - planning/types.go: The domain records these map from
*/
package api

import (
	"time"

	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// PLAN TYPES
// =============================================================================

// PlanDTO represents a fiscal-year plan in API responses.
type PlanDTO struct {
	ID         string `json:"id"`
	FiscalYear string `json:"fiscal_year"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreatePlanRequest is the request to create a plan.
type CreatePlanRequest struct {
	FiscalYear string `json:"fiscal_year"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
}

// PriorityDTO represents a leadership priority in API responses.
type PriorityDTO struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PriorityItem is one priority in a SetPriorities request.
type PriorityItem struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SetPrioritiesRequest replaces a plan's priorities wholesale.
type SetPrioritiesRequest struct {
	Priorities []PriorityItem `json:"priorities"`
}

// PrioritySummaryDTO is a priority plus its strategy count.
type PrioritySummaryDTO struct {
	Priority      PriorityDTO `json:"priority"`
	StrategyCount int         `json:"strategy_count"`
}

// PlanSummaryDTO is the dashboard rollup for a plan.
type PlanSummaryDTO struct {
	Plan                PlanDTO              `json:"plan"`
	Priorities          []PrioritySummaryDTO `json:"priorities"`
	DraftCountsByStatus map[string]int       `json:"draft_counts_by_status"`
	ConvertedCount      int                  `json:"converted_count"`
	KPIsCreatedCount    int                  `json:"kpis_created_count"`
}

// =============================================================================
// STRATEGY TYPES
// =============================================================================

// StrategyDTO represents a draft strategy in API responses.
type StrategyDTO struct {
	ID                 string   `json:"id"`
	PriorityID         string   `json:"priority_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Rationale          string   `json:"rationale,omitempty"`
	Steps              []string `json:"steps,omitempty"`
	SuccessProbability float64  `json:"success_probability"`
	EstimatedCost      string   `json:"estimated_cost"`
	Timeframe          string   `json:"timeframe,omitempty"`
	Risks              []string `json:"risks,omitempty"`
	RequiredResources  []string `json:"required_resources,omitempty"`
	SuccessMetrics     []string `json:"success_metrics,omitempty"`
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`
	Status             string   `json:"status"`
	ConvertedComponent *string  `json:"converted_component_id,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
}

// GenerateStrategiesRequest asks the drafting service for candidates.
type GenerateStrategiesRequest struct {
	Count       int    `json:"count"`
	Objective   string `json:"objective,omitempty"`
	Constraints string `json:"constraints,omitempty"`
	Resources   string `json:"resources,omitempty"`
	Timeframe   string `json:"timeframe,omitempty"`
}

// SetStrategyStatusRequest moves a strategy through the review lifecycle.
type SetStrategyStatusRequest struct {
	Status string `json:"status"`
}

// ConvertRequest selects the strategies to promote into the hierarchy.
type ConvertRequest struct {
	StrategyIDs []string `json:"strategy_ids"`
}

// ConversionFailureDTO reports one strategy that was not converted.
type ConversionFailureDTO struct {
	StrategyID string `json:"strategy_id"`
	Reason     string `json:"reason"`
}

// ConversionResultDTO reports the outcome of a conversion call.
type ConversionResultDTO struct {
	ConvertedCount int                    `json:"converted_count"`
	ComponentIDs   []string               `json:"component_ids"`
	Failures       []ConversionFailureDTO `json:"failures"`
}

// =============================================================================
// HIERARCHY TYPES
// =============================================================================

// ComponentDTO is one hierarchy node, with children nested for tree views.
type ComponentDTO struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	OrderIndex  int            `json:"order_index"`
	KPIs        []KPIDTO       `json:"kpis,omitempty"`
	Children    []ComponentDTO `json:"children,omitempty"`
}

// =============================================================================
// KPI TYPES
// =============================================================================

// KPIDTO represents a tracked metric in API responses.
type KPIDTO struct {
	ID           string  `json:"id"`
	ComponentID  *string `json:"component_id,omitempty"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	TargetValue  *string `json:"target_value,omitempty"`
	CurrentValue *string `json:"current_value,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	Frequency    string  `json:"frequency"`
	Status       string  `json:"status"`
	Owner        string  `json:"owner,omitempty"`
}

// KPISpecItem is one KPI definition in a creation request.
type KPISpecItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetValue string `json:"target_value,omitempty"` // decimal string
	Frequency   string `json:"frequency"`
	Unit        string `json:"unit,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// CreateKPIsRequest derives KPIs from a converted strategy. When
// SeedFromMetrics is true and Specs is empty, one monthly spec per
// success metric is used.
type CreateKPIsRequest struct {
	Specs           []KPISpecItem `json:"specs"`
	SeedFromMetrics bool          `json:"seed_from_metrics"`
}

// KPISpecFailureDTO reports one rejected spec.
type KPISpecFailureDTO struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// KPICreationResultDTO reports the outcome of a derivation call.
type KPICreationResultDTO struct {
	CreatedCount int                 `json:"created_count"`
	KPIIDs       []string            `json:"kpi_ids"`
	Failures     []KPISpecFailureDTO `json:"failures"`
}

// AppendHistoryRequest records one observation.
type AppendHistoryRequest struct {
	Value string `json:"value"`          // decimal string
	Date  string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Note  string `json:"note,omitempty"`
}

// HistoryEntryDTO is one observation in API responses.
type HistoryEntryDTO struct {
	ID         string `json:"id"`
	Value      string `json:"value"`
	RecordedAt string `json:"recorded_at"`
	Note       string `json:"note,omitempty"`
}

// =============================================================================
// FORECAST TYPES
// =============================================================================

// ForecastPointDTO is one projected observation with its interval.
type ForecastPointDTO struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// ForecastDTO is the derived projection of a KPI's trajectory.
type ForecastDTO struct {
	KPIID            string             `json:"kpi_id"`
	Trend            string             `json:"trend"`
	Confidence       string             `json:"confidence"`
	Points           []ForecastPointDTO `json:"points"`
	OnTrack          *bool              `json:"on_track,omitempty"`
	InsufficientData bool               `json:"insufficient_data"`
	Message          string             `json:"message,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Loaded      bool   `json:"loaded"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO MAPPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toPlanDTO(p *planning.FiscalYearPlan) PlanDTO {
	return PlanDTO{
		ID:         string(p.ID),
		FiscalYear: p.FiscalYear,
		StartDate:  p.StartDate.Format(dateLayout),
		EndDate:    p.EndDate.Format(dateLayout),
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

func toPriorityDTO(p *planning.CorePriority) PriorityDTO {
	return PriorityDTO{
		ID:          string(p.ID),
		PlanID:      string(p.PlanID),
		Number:      p.Number,
		Title:       p.Title,
		Description: p.Description,
	}
}

func toStrategyDTO(s *planning.DraftStrategy) StrategyDTO {
	dto := StrategyDTO{
		ID:                 string(s.ID),
		PriorityID:         string(s.PriorityID),
		Title:              s.Title,
		Description:        s.Description,
		Rationale:          s.Rationale,
		Steps:              s.Steps,
		SuccessProbability: s.SuccessProbability,
		EstimatedCost:      string(s.EstimatedCost),
		Timeframe:          s.Timeframe,
		Risks:              s.Risks,
		RequiredResources:  s.RequiredResources,
		SuccessMetrics:     s.SuccessMetrics,
		SupportingEvidence: s.SupportingEvidence,
		Status:             string(s.Status),
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
	}
	if s.ConvertedComponentID != nil {
		id := string(*s.ConvertedComponentID)
		dto.ConvertedComponent = &id
	}
	return dto
}

func toKPIDTO(k *planning.KPI) KPIDTO {
	dto := KPIDTO{
		ID:          string(k.ID),
		Name:        k.Name,
		Description: k.Description,
		Unit:        k.Unit,
		Frequency:   string(k.Frequency),
		Status:      string(k.Status),
		Owner:       k.Owner,
	}
	if k.ComponentID != nil {
		id := string(*k.ComponentID)
		dto.ComponentID = &id
	}
	if k.TargetValue != nil {
		v := k.TargetValue.String()
		dto.TargetValue = &v
	}
	if k.CurrentValue != nil {
		v := k.CurrentValue.String()
		dto.CurrentValue = &v
	}
	return dto
}

func toHistoryEntryDTO(e *planning.KPIHistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:         string(e.ID),
		Value:      e.Value.String(),
		RecordedAt: e.RecordedAt.Format(dateLayout),
		Note:       e.Note,
	}
}

func toForecastDTO(f *planning.ForecastResult) ForecastDTO {
	dto := ForecastDTO{
		KPIID:            string(f.KPIID),
		Trend:            string(f.Trend),
		Confidence:       string(f.Confidence),
		OnTrack:          f.OnTrack,
		InsufficientData: f.InsufficientData,
		Message:          f.Message,
	}
	for _, p := range f.Points {
		dto.Points = append(dto.Points, ForecastPointDTO{
			Date:      p.Date.Format(dateLayout),
			Predicted: p.Predicted,
			Lower:     p.Lower,
			Upper:     p.Upper,
		})
	}
	return dto
}
