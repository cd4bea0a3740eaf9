/*
handlers_test.go - HTTP-level tests for the planning API

Runs the full pipeline through the router with an in-memory store and the
deterministic template generator: plan creation, priorities, drafting,
review, conversion, KPI derivation, observations, and forecasting.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/strategy-engine/api"
	"github.com/warp/strategy-engine/generator"
	"github.com/warp/strategy-engine/planning/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := api.NewHandler(store.NewMemory(), generator.NewTemplateGenerator())
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request with a JSON body and decodes the JSON response
// into out (skipped when out is nil).
func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createPlan(t *testing.T, srv *httptest.Server, fiscalYear string) api.PlanDTO {
	t.Helper()
	var plan api.PlanDTO
	code := doJSON(t, srv, http.MethodPost, "/api/plans", api.CreatePlanRequest{
		FiscalYear: fiscalYear,
		StartDate:  "2026-07-01",
		EndDate:    "2027-06-30",
	}, &plan)
	require.Equal(t, http.StatusCreated, code)
	return plan
}

func setPriorities(t *testing.T, srv *httptest.Server, planID string, titles ...string) []api.PriorityDTO {
	t.Helper()
	items := make([]api.PriorityItem, len(titles))
	for i, title := range titles {
		items[i] = api.PriorityItem{Number: i + 1, Title: title}
	}
	var priorities []api.PriorityDTO
	code := doJSON(t, srv, http.MethodPut, "/api/plans/"+planID+"/priorities",
		api.SetPrioritiesRequest{Priorities: items}, &priorities)
	require.Equal(t, http.StatusOK, code)
	return priorities
}

// =============================================================================
// PLAN ENDPOINT TESTS
// =============================================================================

func TestAPI_CreatePlan(t *testing.T) {
	srv := newTestServer(t)

	plan := createPlan(t, srv, "FY27")

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "FY27", plan.FiscalYear)
	assert.Equal(t, "draft", plan.Status)
	assert.Equal(t, "2026-07-01", plan.StartDate)
}

func TestAPI_CreatePlan_DuplicateYear_Conflict(t *testing.T) {
	srv := newTestServer(t)
	createPlan(t, srv, "FY27")

	code := doJSON(t, srv, http.MethodPost, "/api/plans", api.CreatePlanRequest{
		FiscalYear: "FY27",
		StartDate:  "2026-07-01",
		EndDate:    "2027-06-30",
	}, nil)

	assert.Equal(t, http.StatusConflict, code)
}

func TestAPI_CreatePlan_BadDate_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, srv, http.MethodPost, "/api/plans", api.CreatePlanRequest{
		FiscalYear: "FY27",
		StartDate:  "July 1st",
		EndDate:    "2027-06-30",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_GetPlan_Missing_NotFound(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, srv, http.MethodGet, "/api/plans/plan_missing", nil, nil)

	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_ActivatePlan(t *testing.T) {
	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")

	var activated api.PlanDTO
	code := doJSON(t, srv, http.MethodPost, "/api/plans/"+plan.ID+"/activate", nil, &activated)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", activated.Status)
}

func TestAPI_SetPriorities_Validation(t *testing.T) {
	// GIVEN: A plan
	// WHEN: Submitting priorities with a numbering gap
	// THEN: 400 with an error payload

	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")

	var errResp api.ErrorResponse
	code := doJSON(t, srv, http.MethodPut, "/api/plans/"+plan.ID+"/priorities",
		api.SetPrioritiesRequest{Priorities: []api.PriorityItem{
			{Number: 1, Title: "First"},
			{Number: 3, Title: "Skipped two"},
		}}, &errResp)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, errResp.Error)
}

// =============================================================================
// FULL PIPELINE TEST
// =============================================================================

func TestAPI_FullPipeline(t *testing.T) {
	// GIVEN: An active FY27 plan with one priority
	// WHEN: Drafting, approving, converting, deriving KPIs, and recording
	//       observations over HTTP
	// THEN: Every stage responds with the expected payloads

	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")
	doJSON(t, srv, http.MethodPost, "/api/plans/"+plan.ID+"/activate", nil, nil)
	priorities := setPriorities(t, srv, plan.ID, "Expand EMEA")
	require.Len(t, priorities, 1)

	// Draft three candidate strategies.
	var drafts []api.StrategyDTO
	code := doJSON(t, srv, http.MethodPost,
		"/api/priorities/"+priorities[0].ID+"/strategies/generate",
		api.GenerateStrategiesRequest{Count: 3, Objective: "Double EMEA revenue"}, &drafts)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, drafts, 3)
	assert.Equal(t, "draft", drafts[0].Status)
	assert.NotEmpty(t, drafts[0].SuccessMetrics)

	// Approve the first one.
	var approved api.StrategyDTO
	code = doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/status",
		api.SetStrategyStatusRequest{Status: "approved"}, &approved)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", approved.Status)

	// Convert it into the hierarchy.
	var conversion api.ConversionResultDTO
	code = doJSON(t, srv, http.MethodPost, "/api/plans/"+plan.ID+"/convert",
		api.ConvertRequest{StrategyIDs: []string{drafts[0].ID}}, &conversion)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, conversion.ConvertedCount)
	assert.Empty(t, conversion.Failures)
	require.Len(t, conversion.ComponentIDs, 1)

	// The hierarchy now has objective -> goal -> strategy.
	var tree []api.ComponentDTO
	code = doJSON(t, srv, http.MethodGet, "/api/plans/"+plan.ID+"/hierarchy", nil, &tree)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, tree, 1)
	assert.Equal(t, "objective", tree[0].Type)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "goal", tree[0].Children[0].Type)
	assert.Equal(t, "Expand EMEA", tree[0].Children[0].Title)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "strategy", tree[0].Children[0].Children[0].Type)

	// Derive KPIs from the strategy's success metrics.
	var kpiResult api.KPICreationResultDTO
	code = doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/kpis",
		api.CreateKPIsRequest{SeedFromMetrics: true}, &kpiResult)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, kpiResult.KPIIDs)
	kpiID := kpiResult.KPIIDs[0]

	// Record an observation.
	var kpi api.KPIDTO
	code = doJSON(t, srv, http.MethodPost, "/api/kpis/"+kpiID+"/history",
		api.AppendHistoryRequest{Value: "42", Date: "2027-01-31"}, &kpi)
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, kpi.CurrentValue)
	assert.Equal(t, "42", *kpi.CurrentValue)

	var history []api.HistoryEntryDTO
	code = doJSON(t, srv, http.MethodGet, "/api/kpis/"+kpiID+"/history", nil, &history)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history, 1)
	assert.Equal(t, "2027-01-31", history[0].RecordedAt)

	// The plan summary reflects the whole pipeline.
	var summary api.PlanSummaryDTO
	code = doJSON(t, srv, http.MethodGet, "/api/plans/"+plan.ID+"/summary", nil, &summary)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, summary.ConvertedCount)
	assert.GreaterOrEqual(t, summary.KPIsCreatedCount, 1)
	require.Len(t, summary.Priorities, 1)
	assert.Equal(t, 3, summary.Priorities[0].StrategyCount)
}

// =============================================================================
// STRATEGY ENDPOINT TESTS
// =============================================================================

func TestAPI_SetStrategyStatus_Invalid_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")
	priorities := setPriorities(t, srv, plan.ID, "Expand EMEA")

	var drafts []api.StrategyDTO
	doJSON(t, srv, http.MethodPost,
		"/api/priorities/"+priorities[0].ID+"/strategies/generate",
		api.GenerateStrategiesRequest{Count: 1}, &drafts)
	require.Len(t, drafts, 1)

	code := doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/status",
		api.SetStrategyStatusRequest{Status: "shipped"}, nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_CreateKPIs_UnconvertedStrategy_Conflict(t *testing.T) {
	// GIVEN: An approved but unconverted strategy
	// WHEN: Deriving KPIs
	// THEN: 409, only hierarchy nodes can carry KPIs

	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")
	priorities := setPriorities(t, srv, plan.ID, "Expand EMEA")

	var drafts []api.StrategyDTO
	doJSON(t, srv, http.MethodPost,
		"/api/priorities/"+priorities[0].ID+"/strategies/generate",
		api.GenerateStrategiesRequest{Count: 1}, &drafts)
	doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/status",
		api.SetStrategyStatusRequest{Status: "approved"}, nil)

	code := doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/kpis",
		api.CreateKPIsRequest{SeedFromMetrics: true}, nil)

	assert.Equal(t, http.StatusConflict, code)
}

func TestAPI_Convert_DraftStrategy_PartialResult(t *testing.T) {
	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")
	priorities := setPriorities(t, srv, plan.ID, "Expand EMEA")

	var drafts []api.StrategyDTO
	doJSON(t, srv, http.MethodPost,
		"/api/priorities/"+priorities[0].ID+"/strategies/generate",
		api.GenerateStrategiesRequest{Count: 2}, &drafts)
	doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/status",
		api.SetStrategyStatusRequest{Status: "approved"}, nil)

	var result api.ConversionResultDTO
	code := doJSON(t, srv, http.MethodPost, "/api/plans/"+plan.ID+"/convert",
		api.ConvertRequest{StrategyIDs: []string{drafts[0].ID, drafts[1].ID}}, &result)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, result.ConvertedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, drafts[1].ID, result.Failures[0].StrategyID)
}

// =============================================================================
// KPI AND FORECAST ENDPOINT TESTS
// =============================================================================

func TestAPI_Forecast(t *testing.T) {
	// GIVEN: A KPI with four monthly observations climbing toward its target
	// WHEN: Requesting a 2-period forecast
	// THEN: Increasing trend with projected points

	srv := newTestServer(t)
	plan := createPlan(t, srv, "FY27")
	priorities := setPriorities(t, srv, plan.ID, "Expand EMEA")

	var drafts []api.StrategyDTO
	doJSON(t, srv, http.MethodPost,
		"/api/priorities/"+priorities[0].ID+"/strategies/generate",
		api.GenerateStrategiesRequest{Count: 1}, &drafts)
	doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/status",
		api.SetStrategyStatusRequest{Status: "approved"}, nil)
	doJSON(t, srv, http.MethodPost, "/api/plans/"+plan.ID+"/convert",
		api.ConvertRequest{StrategyIDs: []string{drafts[0].ID}}, nil)

	var kpiResult api.KPICreationResultDTO
	doJSON(t, srv, http.MethodPost, "/api/strategies/"+drafts[0].ID+"/kpis",
		api.CreateKPIsRequest{
			Specs: []api.KPISpecItem{{Name: "Signed partnerships", TargetValue: "20", Frequency: "monthly"}},
		}, &kpiResult)
	require.Len(t, kpiResult.KPIIDs, 1)
	kpiID := kpiResult.KPIIDs[0]

	for i, v := range []string{"4", "8", "12", "16"} {
		date := fmt.Sprintf("2027-0%d-28", i+1)
		code := doJSON(t, srv, http.MethodPost, "/api/kpis/"+kpiID+"/history",
			api.AppendHistoryRequest{Value: v, Date: date}, nil)
		require.Equal(t, http.StatusCreated, code)
	}

	var forecast api.ForecastDTO
	code := doJSON(t, srv, http.MethodGet, "/api/kpis/"+kpiID+"/forecast?periods=2", nil, &forecast)

	require.Equal(t, http.StatusOK, code)
	assert.False(t, forecast.InsufficientData)
	assert.Equal(t, "increasing", forecast.Trend)
	require.Len(t, forecast.Points, 2)
	require.NotNil(t, forecast.OnTrack)
	assert.True(t, *forecast.OnTrack)
}

func TestAPI_AppendHistory_BadValue_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, srv, http.MethodPost, "/api/kpis/kpi_x/history",
		api.AppendHistoryRequest{Value: "not-a-number"}, nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_GetKPI_Missing_NotFound(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, srv, http.MethodGet, "/api/kpis/kpi_missing", nil, nil)

	assert.Equal(t, http.StatusNotFound, code)
}

// =============================================================================
// SCENARIO ENDPOINT TESTS
// =============================================================================

func TestAPI_Scenarios_ListAndLoad(t *testing.T) {
	srv := newTestServer(t)

	var list []api.ScenarioDTO
	code := doJSON(t, srv, http.MethodGet, "/api/scenarios", nil, &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 2)
	for _, s := range list {
		assert.False(t, s.Loaded)
	}

	code = doJSON(t, srv, http.MethodPost, "/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "kpi-health"}, nil)
	require.Equal(t, http.StatusOK, code)

	code = doJSON(t, srv, http.MethodGet, "/api/scenarios", nil, &list)
	require.Equal(t, http.StatusOK, code)
	loaded := 0
	for _, s := range list {
		if s.Loaded {
			loaded++
			assert.Equal(t, "kpi-health", s.ID)
		}
	}
	assert.Equal(t, 1, loaded)
}

func TestAPI_LoadScenario_Unknown_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, srv, http.MethodPost, "/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "nope"}, nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := newTestServer(t)

	var payload map[string]string
	code := doJSON(t, srv, http.MethodGet, "/api/health", nil, &payload)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", payload["status"])
}
