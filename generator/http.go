/*
http.go - Remote drafting service client

PURPOSE:
  Delegates strategy generation to an external drafting backend over a
  JSON POST. The request is bounded by the caller's context deadline;
  context.DeadlineExceeded propagates unchanged so the drafting service
  can surface it as a typed GenerationTimeoutError.

WIRE CONTRACT:
  POST {baseURL}/generate
  -> {"priority_title", "priority_description", "objective",
      "constraints", "resources", "timeframe", "count"}
  <- {"strategies": [proposal...]}

SEE ALSO:
  - template.go: the offline fallback generator
*/
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// HTTP GENERATOR
// =============================================================================

type HTTPGenerator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPGenerator creates a generator for the drafting backend at baseURL.
// The client timeout is a backstop; per-call deadlines come from ctx.
func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	PriorityTitle       string `json:"priority_title"`
	PriorityDescription string `json:"priority_description"`
	Objective           string `json:"objective,omitempty"`
	Constraints         string `json:"constraints,omitempty"`
	Resources           string `json:"resources,omitempty"`
	Timeframe           string `json:"timeframe,omitempty"`
	Count               int    `json:"count"`
}

type proposalJSON struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Rationale          string   `json:"rationale"`
	Steps              []string `json:"steps"`
	SuccessProbability float64  `json:"success_probability"`
	EstimatedCost      string   `json:"estimated_cost"`
	Timeframe          string   `json:"timeframe"`
	Risks              []string `json:"risks"`
	RequiredResources  []string `json:"required_resources"`
	SuccessMetrics     []string `json:"success_metrics"`
	SupportingEvidence []string `json:"supporting_evidence"`
}

type generateResponse struct {
	Strategies []proposalJSON `json:"strategies"`
}

// Generate posts the input to the drafting backend and decodes proposals.
func (g *HTTPGenerator) Generate(ctx context.Context, in planning.GenerationInput) ([]planning.StrategyProposal, error) {
	body, err := json.Marshal(generateRequest{
		PriorityTitle:       in.PriorityTitle,
		PriorityDescription: in.PriorityDescription,
		Objective:           in.Context.Objective,
		Constraints:         in.Context.Constraints,
		Resources:           in.Context.Resources,
		Timeframe:           in.Context.Timeframe,
		Count:               in.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		// ctx deadline errors propagate wrapped in *url.Error; the caller
		// checks ctx.Err() as well, so return as-is.
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drafting backend returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	proposals := make([]planning.StrategyProposal, 0, len(decoded.Strategies))
	for _, p := range decoded.Strategies {
		proposals = append(proposals, planning.StrategyProposal{
			Title:              p.Title,
			Description:        p.Description,
			Rationale:          p.Rationale,
			Steps:              p.Steps,
			SuccessProbability: p.SuccessProbability,
			EstimatedCost:      planning.CostEstimate(p.EstimatedCost),
			Timeframe:          p.Timeframe,
			Risks:              p.Risks,
			RequiredResources:  p.RequiredResources,
			SuccessMetrics:     p.SuccessMetrics,
			SupportingEvidence: p.SupportingEvidence,
		})
	}
	return proposals, nil
}
