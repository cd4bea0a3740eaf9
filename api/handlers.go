/*
handlers.go - HTTP API handlers for the strategic planning pipeline

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain services.

ENDPOINTS:
  Plans:
    POST   /api/plans                    Create plan
    GET    /api/plans                    List plans
    GET    /api/plans/{id}               Get plan
    POST   /api/plans/{id}/activate      Activate plan
    PUT    /api/plans/{id}/priorities    Replace priorities
    GET    /api/plans/{id}/summary       Dashboard rollup
    POST   /api/plans/{id}/convert       Convert approved strategies
    GET    /api/plans/{id}/hierarchy     OGSM tree rooted at the plan

  Priorities:
    POST   /api/priorities/{id}/strategies/generate  Draft strategies
    GET    /api/priorities/{id}/strategies           List strategies

  Strategies:
    GET    /api/strategies/{id}          Get strategy
    POST   /api/strategies/{id}/status   Review transition
    POST   /api/strategies/{id}/kpis     Derive KPIs

  KPIs:
    GET    /api/kpis/{id}                Get KPI
    POST   /api/kpis/{id}/history        Append observation
    GET    /api/kpis/{id}/history        List observations
    GET    /api/kpis/{id}/forecast       Trend projection (?periods=N)

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ERROR HANDLING:
  Domain errors map to HTTP status by category:
  - 400: validation errors
  - 404: not found
  - 409: state conflicts (duplicate year, locked strategy, not draft)
  - 502: drafting backend unavailable
  - 504: drafting timed out
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      planning.TxStore
	Plans      *planning.PlanService
	Approvals  *planning.ApprovalService
	Drafting   *planning.DraftingService
	Conversion *planning.ConversionEngine
	KPIs       *planning.KPIService
	Forecasts  *planning.ForecastEngine

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler wiring every service to the given store.
func NewHandler(store planning.TxStore, generator planning.StrategyGenerator) *Handler {
	return &Handler{
		Store:      store,
		Plans:      &planning.PlanService{Store: store},
		Approvals:  &planning.ApprovalService{Store: store},
		Drafting:   &planning.DraftingService{Store: store, Generator: generator},
		Conversion: &planning.ConversionEngine{Store: store},
		KPIs:       &planning.KPIService{Store: store},
		Forecasts:  &planning.ForecastEngine{Store: store},
	}
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// CreatePlan creates a fiscal-year plan in draft status.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
		return
	}

	plan, err := h.Plans.CreatePlan(r.Context(), req.FiscalYear, start, end)
	if err != nil {
		h.writeDomainError(w, "Failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

// ListPlans returns all plans, newest fiscal year first.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i := range plans {
		dtos[i] = toPlanDTO(&plans[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns one plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Store.GetPlan(r.Context(), planning.PlanID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// ActivatePlan transitions a draft plan to active.
func (h *Handler) ActivatePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.ActivatePlan(r.Context(), planning.PlanID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to activate plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// SetPriorities replaces the plan's leadership priorities wholesale.
func (h *Handler) SetPriorities(w http.ResponseWriter, r *http.Request) {
	var req SetPrioritiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	specs := make([]planning.PrioritySpec, len(req.Priorities))
	for i, p := range req.Priorities {
		specs[i] = planning.PrioritySpec{
			Number:      p.Number,
			Title:       p.Title,
			Description: p.Description,
		}
	}

	priorities, err := h.Plans.SetPriorities(r.Context(), planning.PlanID(chi.URLParam(r, "id")), specs)
	if err != nil {
		h.writeDomainError(w, "Failed to set priorities", err)
		return
	}

	dtos := make([]PriorityDTO, len(priorities))
	for i := range priorities {
		dtos[i] = toPriorityDTO(&priorities[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlanSummary returns the dashboard rollup for one plan.
func (h *Handler) GetPlanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Plans.GetPlanSummary(r.Context(), planning.PlanID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to build summary", err)
		return
	}

	dto := PlanSummaryDTO{
		Plan:                toPlanDTO(&summary.Plan),
		DraftCountsByStatus: make(map[string]int, len(summary.DraftCountsByStatus)),
		ConvertedCount:      summary.ConvertedCount,
		KPIsCreatedCount:    summary.KPIsCreatedCount,
	}
	for status, n := range summary.DraftCountsByStatus {
		dto.DraftCountsByStatus[string(status)] = n
	}
	for _, ps := range summary.Priorities {
		dto.Priorities = append(dto.Priorities, PrioritySummaryDTO{
			Priority:      toPriorityDTO(&ps.Priority),
			StrategyCount: ps.StrategyCount,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ConvertStrategies promotes approved strategies into the hierarchy.
func (h *Handler) ConvertStrategies(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ids := make([]planning.StrategyID, len(req.StrategyIDs))
	for i, id := range req.StrategyIDs {
		ids[i] = planning.StrategyID(id)
	}

	result, err := h.Conversion.ConvertStrategies(r.Context(), planning.PlanID(chi.URLParam(r, "id")), ids)
	if err != nil {
		h.writeDomainError(w, "Failed to convert strategies", err)
		return
	}

	dto := ConversionResultDTO{
		ConvertedCount: result.ConvertedCount,
		ComponentIDs:   make([]string, len(result.ComponentIDs)),
		Failures:       make([]ConversionFailureDTO, len(result.Failures)),
	}
	for i, id := range result.ComponentIDs {
		dto.ComponentIDs[i] = string(id)
	}
	for i, f := range result.Failures {
		dto.Failures[i] = ConversionFailureDTO{
			StrategyID: string(f.StrategyID),
			Reason:     f.Reason.Error(),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetPlanHierarchy returns the OGSM tree rooted at the plan's objective,
// with KPIs attached to each node.
func (h *Handler) GetPlanHierarchy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID := planning.PlanID(chi.URLParam(r, "id"))

	plan, err := h.Store.GetPlan(ctx, planID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}

	objective, err := h.Store.FindPlanObjective(ctx, planID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve objective", err)
		return
	}
	if objective == nil {
		// No conversions yet: the tree is empty.
		writeJSON(w, http.StatusOK, []ComponentDTO{})
		return
	}

	root, err := h.buildTree(ctx, objective)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build hierarchy", err)
		return
	}
	writeJSON(w, http.StatusOK, []ComponentDTO{*root})
}

func (h *Handler) buildTree(ctx context.Context, c *planning.HierarchyComponent) (*ComponentDTO, error) {
	dto := &ComponentDTO{
		ID:          string(c.ID),
		Type:        string(c.Type),
		Title:       c.Title,
		Description: c.Description,
		OrderIndex:  c.OrderIndex,
	}

	kpis, err := h.Store.ListKPIsByComponent(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for i := range kpis {
		dto.KPIs = append(dto.KPIs, toKPIDTO(&kpis[i]))
	}

	children, err := h.Store.ListChildren(ctx, &c.ID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		child, err := h.buildTree(ctx, &children[i])
		if err != nil {
			return nil, err
		}
		dto.Children = append(dto.Children, *child)
	}
	return dto, nil
}

// =============================================================================
// STRATEGY HANDLERS
// =============================================================================

// GenerateStrategies drafts candidate strategies under a priority.
func (h *Handler) GenerateStrategies(w http.ResponseWriter, r *http.Request) {
	var req GenerateStrategiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	strategies, err := h.Drafting.GenerateStrategies(
		r.Context(),
		planning.PriorityID(chi.URLParam(r, "id")),
		planning.GenerationContext{
			Objective:   req.Objective,
			Constraints: req.Constraints,
			Resources:   req.Resources,
			Timeframe:   req.Timeframe,
		},
		req.Count,
	)
	if err != nil {
		h.writeDomainError(w, "Failed to generate strategies", err)
		return
	}

	dtos := make([]StrategyDTO, len(strategies))
	for i := range strategies {
		dtos[i] = toStrategyDTO(&strategies[i])
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// ListStrategies returns all strategies under a priority.
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.Store.ListStrategies(r.Context(), planning.PriorityID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list strategies", err)
		return
	}

	dtos := make([]StrategyDTO, len(strategies))
	for i := range strategies {
		dtos[i] = toStrategyDTO(&strategies[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStrategy returns one strategy.
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.Store.GetStrategy(r.Context(), planning.StrategyID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get strategy", err)
		return
	}
	if strategy == nil {
		writeError(w, http.StatusNotFound, "Strategy not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStrategyDTO(strategy))
}

// SetStrategyStatus moves a strategy through the review lifecycle.
func (h *Handler) SetStrategyStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStrategyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	strategy, err := h.Approvals.SetStatus(
		r.Context(),
		planning.StrategyID(chi.URLParam(r, "id")),
		planning.StrategyStatus(req.Status),
	)
	if err != nil {
		h.writeDomainError(w, "Failed to update strategy status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStrategyDTO(strategy))
}

// CreateKPIs derives KPIs from a converted strategy.
func (h *Handler) CreateKPIs(w http.ResponseWriter, r *http.Request) {
	strategyID := planning.StrategyID(chi.URLParam(r, "id"))

	var req CreateKPIsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var specs []planning.KPISpec
	if len(req.Specs) == 0 && req.SeedFromMetrics {
		strategy, err := h.Store.GetStrategy(r.Context(), strategyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get strategy", err)
			return
		}
		if strategy == nil {
			writeError(w, http.StatusNotFound, "Strategy not found", nil)
			return
		}
		specs = planning.SeedSpecsFromMetrics(strategy)
	} else {
		for _, item := range req.Specs {
			spec := planning.KPISpec{
				Name:        item.Name,
				Description: item.Description,
				Frequency:   planning.Frequency(item.Frequency),
				Unit:        item.Unit,
				Owner:       item.Owner,
			}
			if item.TargetValue != "" {
				target, err := decimal.NewFromString(item.TargetValue)
				if err != nil {
					writeError(w, http.StatusBadRequest, "Invalid target_value", err)
					return
				}
				spec.TargetValue = &target
			}
			specs = append(specs, spec)
		}
	}

	result, err := h.KPIs.CreateKPIsFromStrategy(r.Context(), strategyID, specs)
	if err != nil {
		h.writeDomainError(w, "Failed to create KPIs", err)
		return
	}

	dto := KPICreationResultDTO{
		CreatedCount: result.CreatedCount,
		KPIIDs:       make([]string, len(result.KPIIDs)),
		Failures:     make([]KPISpecFailureDTO, len(result.Failures)),
	}
	for i, id := range result.KPIIDs {
		dto.KPIIDs[i] = string(id)
	}
	for i, f := range result.Failures {
		dto.Failures[i] = KPISpecFailureDTO{Index: f.Index, Reason: f.Reason.Error()}
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// KPI HANDLERS
// =============================================================================

// GetKPI returns one KPI.
func (h *Handler) GetKPI(w http.ResponseWriter, r *http.Request) {
	kpi, err := h.Store.GetKPI(r.Context(), planning.KPIID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get KPI", err)
		return
	}
	if kpi == nil {
		writeError(w, http.StatusNotFound, "KPI not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toKPIDTO(kpi))
}

// AppendHistory records one observation and returns the updated KPI.
func (h *Handler) AppendHistory(w http.ResponseWriter, r *http.Request) {
	var req AppendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value, expected a decimal string", err)
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
	}

	kpi, err := h.KPIs.AppendHistory(r.Context(), planning.KPIID(chi.URLParam(r, "id")), value, date, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to append history", err)
		return
	}
	writeJSON(w, http.StatusCreated, toKPIDTO(kpi))
}

// ListHistory returns a KPI's observations in chronological order.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	kpiID := planning.KPIID(chi.URLParam(r, "id"))

	kpi, err := h.Store.GetKPI(r.Context(), kpiID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get KPI", err)
		return
	}
	if kpi == nil {
		writeError(w, http.StatusNotFound, "KPI not found", nil)
		return
	}

	history, err := h.Store.ListHistory(r.Context(), kpiID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history", err)
		return
	}

	dtos := make([]HistoryEntryDTO, len(history))
	for i := range history {
		dtos[i] = toHistoryEntryDTO(&history[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Forecast returns the KPI's trend projection. Defaults to 3 periods.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	periods := 3
	if raw := r.URL.Query().Get("periods"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid periods parameter", err)
			return
		}
		periods = n
	}

	result, err := h.Forecasts.Forecast(r.Context(), planning.KPIID(chi.URLParam(r, "id")), periods)
	if err != nil {
		h.writeDomainError(w, "Failed to forecast", err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastDTO(result))
}

// =============================================================================
// ERROR MAPPING AND JSON HELPERS
// =============================================================================

// writeDomainError maps a domain error to an HTTP status by category.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case planning.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case planning.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case planning.IsStateConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, planning.ErrGenerationTimeout):
		writeError(w, http.StatusGatewayTimeout, message, err)
	case errors.Is(err, planning.ErrGeneratorUnavailable):
		writeError(w, http.StatusBadGateway, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
