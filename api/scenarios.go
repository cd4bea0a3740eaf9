/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	planning data for testing and demos. Each scenario walks the full
	pipeline: plan, priorities, drafted strategies, review, conversion,
	KPIs, and history.

AVAILABLE SCENARIOS:

	fy27-pipeline:  Full FY27 plan with three priorities, drafted and
	                reviewed strategies, conversions, and seeded KPIs
	kpi-health:     Single KPI walked through the health thresholds
	                (off_track -> on_track) with a forecastable history

HOW SCENARIOS WORK:
 1. Create a plan with a scenario-specific fiscal year
 2. Set priorities
 3. Draft strategies through the drafting service
 4. Approve a subset and convert them
 5. Derive KPIs and append observations

Each scenario owns its fiscal-year label. Reloading a scenario without
clearing the database fails with a duplicate-year conflict.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "fy27-pipeline"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: Shared handler context and error helpers
  - generator/template.go: The deterministic drafting used here
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fy27-pipeline",
		Name:        "FY27 Planning Pipeline",
		Description: "Full pipeline: plan, priorities, drafted strategies, review, conversion, KPIs",
	},
	{
		ID:          "kpi-health",
		Name:        "KPI Health Walkthrough",
		Description: "One KPI moved through off_track, at_risk, and on_track with forecastable history",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s
		dtos[i].Loaded = s.ID == h.currentScenario
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario populates the database with the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fy27-pipeline":
		err = h.loadPipelineScenario(r.Context())
	case "kpi-health":
		err = h.loadHealthScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadPipelineScenario walks the whole pipeline for FY27.
func (h *Handler) loadPipelineScenario(ctx context.Context) error {
	plan, err := h.Plans.CreatePlan(ctx, "FY27",
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return err
	}
	if _, err := h.Plans.ActivatePlan(ctx, plan.ID); err != nil {
		return err
	}

	priorities, err := h.Plans.SetPriorities(ctx, plan.ID, []planning.PrioritySpec{
		{Number: 1, Title: "Expand into the EMEA market", Description: "Establish a sales presence in three EMEA countries"},
		{Number: 2, Title: "Reduce customer churn", Description: "Bring annual churn below 8%"},
		{Number: 3, Title: "Launch the analytics product line", Description: "Ship the first two analytics SKUs"},
	})
	if err != nil {
		return err
	}

	// Draft strategies for the first two priorities, approve some, convert.
	for i, p := range priorities[:2] {
		strategies, err := h.Drafting.GenerateStrategies(ctx, p.ID, planning.GenerationContext{
			Timeframe: "FY27",
		}, 3)
		if err != nil {
			return err
		}

		// Approve the first two, reject the third.
		var approved []planning.StrategyID
		for j, s := range strategies {
			status := planning.StrategyApproved
			if j == 2 {
				status = planning.StrategyRejected
			}
			if _, err := h.Approvals.SetStatus(ctx, s.ID, status); err != nil {
				return err
			}
			if status == planning.StrategyApproved {
				approved = append(approved, s.ID)
			}
		}

		result, err := h.Conversion.ConvertStrategies(ctx, plan.ID, approved)
		if err != nil {
			return err
		}
		if len(result.Failures) > 0 {
			return fmt.Errorf("scenario conversion failed: %s", result.Failures[0].Reason)
		}

		// Derive KPIs from the first converted strategy of the first priority.
		if i == 0 {
			strategy, err := h.Store.GetStrategy(ctx, approved[0])
			if err != nil {
				return err
			}
			specs := planning.SeedSpecsFromMetrics(strategy)
			target := decimal.NewFromInt(12)
			if len(specs) > 0 {
				specs[0].TargetValue = &target
				specs[0].Unit = "count"
				specs[0].Frequency = planning.FreqQuarterly
			}
			created, err := h.KPIs.CreateKPIsFromStrategy(ctx, strategy.ID, specs)
			if err != nil {
				return err
			}
			if created.CreatedCount > 0 {
				base := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
				for q, v := range []int64{3, 6, 8} {
					_, err := h.KPIs.AppendHistory(ctx, created.KPIIDs[0],
						decimal.NewFromInt(v), base.AddDate(0, 3*q, 0), "quarterly checkpoint")
					if err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// loadHealthScenario walks one KPI through the health thresholds.
func (h *Handler) loadHealthScenario(ctx context.Context) error {
	plan, err := h.Plans.CreatePlan(ctx, "FY26-demo",
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return err
	}

	priorities, err := h.Plans.SetPriorities(ctx, plan.ID, []planning.PrioritySpec{
		{Number: 1, Title: "Improve customer satisfaction", Description: "Raise the NPS-linked satisfaction score"},
	})
	if err != nil {
		return err
	}

	strategies, err := h.Drafting.GenerateStrategies(ctx, priorities[0].ID, planning.GenerationContext{}, 1)
	if err != nil {
		return err
	}
	if _, err := h.Approvals.SetStatus(ctx, strategies[0].ID, planning.StrategyApproved); err != nil {
		return err
	}
	if _, err := h.Conversion.ConvertStrategies(ctx, plan.ID, []planning.StrategyID{strategies[0].ID}); err != nil {
		return err
	}

	target := decimal.NewFromInt(100)
	created, err := h.KPIs.CreateKPIsFromStrategy(ctx, strategies[0].ID, []planning.KPISpec{{
		Name:        "Customer satisfaction score",
		Description: "Monthly satisfaction survey score",
		TargetValue: &target,
		Frequency:   planning.FreqMonthly,
		Unit:        "points",
	}})
	if err != nil {
		return err
	}

	// 50 -> off_track, 65 -> off_track, 75 -> at_risk, 91 -> on_track.
	base := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	for m, v := range []int64{50, 65, 75, 91} {
		_, err := h.KPIs.AppendHistory(ctx, created.KPIIDs[0],
			decimal.NewFromInt(v), base.AddDate(0, m, 0), "monthly survey")
		if err != nil {
			return err
		}
	}
	return nil
}
