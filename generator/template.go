/*
Package generator provides StrategyGenerator implementations.

PURPOSE:
  The planning engine treats strategy drafting as a pluggable collaborator.
  This package ships two generators:
  - TemplateGenerator: deterministic, offline, derived from the priority
    text. Used for demos, tests, and environments without a drafting
    backend.
  - HTTPGenerator: delegates to a remote drafting service over JSON,
    bounded by the caller's context deadline.

SEE ALSO:
  - planning/drafting.go: the caller contract both generators satisfy
*/
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// TEMPLATE GENERATOR - Deterministic offline drafting
// =============================================================================

// TemplateGenerator produces plausible candidate strategies from fixed
// templates seeded with the priority text. Deterministic: the same input
// always yields the same proposals.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

type strategyTemplate struct {
	titleFormat   string
	description   string
	rationale     string
	steps         []string
	probability   float64
	cost          planning.CostEstimate
	timeframe     string
	risks         []string
	resources     []string
	metricFormats []string
}

var templates = []strategyTemplate{
	{
		titleFormat: "Expand %s through targeted partnerships",
		description: "Identify and close partnership agreements that directly advance this priority.",
		rationale:   "Partnerships compound existing capabilities without proportional headcount growth.",
		steps: []string{
			"Map candidate partners against priority fit",
			"Negotiate pilot agreements with the top three candidates",
			"Review pilot outcomes and scale the best performer",
		},
		probability: 0.72,
		cost:        planning.CostMedium,
		timeframe:   "2-3 quarters",
		risks:       []string{"Partner misalignment", "Longer-than-expected negotiation cycles"},
		resources:   []string{"Business development lead", "Legal review capacity"},
		metricFormats: []string{
			"Signed partnerships supporting %s",
			"Revenue attributed to partnership channel",
		},
	},
	{
		titleFormat: "Build internal capability for %s",
		description: "Stand up a dedicated cross-functional team owning this priority end to end.",
		rationale:   "A single accountable team removes coordination overhead across departments.",
		steps: []string{
			"Define the team charter and success criteria",
			"Staff the team from existing departments plus two hires",
			"Establish a monthly operating review against the charter",
		},
		probability: 0.65,
		cost:        planning.CostHigh,
		timeframe:   "1-2 quarters to staff, ongoing",
		risks:       []string{"Key-role hiring delays", "Capability gaps in year one"},
		resources:   []string{"Two new headcount", "Executive sponsor"},
		metricFormats: []string{
			"Milestones delivered against the %s charter",
			"Cycle time from initiative start to delivery",
		},
	},
	{
		titleFormat: "Optimize existing operations for %s",
		description: "Audit current processes touching this priority and remove the top friction points.",
		rationale:   "Lowest-risk path: improvements land inside processes the organization already runs.",
		steps: []string{
			"Run a two-week audit of the processes involved",
			"Rank friction points by impact on the priority",
			"Fix the top five and measure before/after",
		},
		probability: 0.81,
		cost:        planning.CostLow,
		timeframe:   "1 quarter",
		risks:       []string{"Improvements plateau below the target"},
		resources:   []string{"Operations analyst", "Process owners' time"},
		metricFormats: []string{
			"Efficiency gain in processes supporting %s",
		},
	},
	{
		titleFormat: "Launch a focused initiative portfolio for %s",
		description: "Fund three small competing initiatives and double down on whichever moves the metric.",
		rationale:   "Parallel small bets surface what works faster than one large committed program.",
		steps: []string{
			"Solicit initiative proposals from department heads",
			"Fund the three strongest for one quarter",
			"Reallocate the full budget to the winner",
		},
		probability: 0.58,
		cost:        planning.CostMedium,
		timeframe:   "2 quarters",
		risks:       []string{"Diluted attention across bets", "No clear winner after the pilot"},
		resources:   []string{"Discretionary initiative budget", "Quarterly review board"},
		metricFormats: []string{
			"Leading-indicator movement for %s",
			"Initiative budget utilization",
		},
	},
}

// Generate returns up to in.Count proposals. Honors ctx cancellation.
func (g *TemplateGenerator) Generate(ctx context.Context, in planning.GenerationInput) ([]planning.StrategyProposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(in.PriorityTitle)
	if subject == "" {
		subject = "the priority"
	}

	count := in.Count
	if count > len(templates) {
		count = len(templates)
	}

	proposals := make([]planning.StrategyProposal, 0, count)
	for i := 0; i < count; i++ {
		t := templates[i]
		metrics := make([]string, len(t.metricFormats))
		for j, mf := range t.metricFormats {
			if strings.Contains(mf, "%s") {
				metrics[j] = fmt.Sprintf(mf, subject)
			} else {
				metrics[j] = mf
			}
		}
		p := planning.StrategyProposal{
			Title:              fmt.Sprintf(t.titleFormat, subject),
			Description:        t.description,
			Rationale:          t.rationale,
			Steps:              append([]string(nil), t.steps...),
			SuccessProbability: t.probability,
			EstimatedCost:      t.cost,
			Timeframe:          t.timeframe,
			Risks:              append([]string(nil), t.risks...),
			RequiredResources:  append([]string(nil), t.resources...),
			SuccessMetrics:     metrics,
		}
		if tf := strings.TrimSpace(in.Context.Timeframe); tf != "" {
			p.Timeframe = tf
		}
		if obj := strings.TrimSpace(in.Context.Objective); obj != "" {
			p.Rationale = p.Rationale + " Aligned to: " + obj
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}
