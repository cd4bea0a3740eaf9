/*
Package planning provides the core fiscal-year strategic planning engine.

PURPOSE:
  This package contains the domain types and workflow logic that turn a
  small set of leadership priorities into reviewed, approved strategies,
  promote those strategies into the permanent OGSM hierarchy, and track
  the KPIs derived from them against their targets.

KEY CONCEPTS IN THIS FILE (types.go):
  - FiscalYearPlan: One strategic cycle (at most one active at a time)
  - CorePriority: A leadership priority within a plan (numbered 1-3)
  - DraftStrategy: An AI-proposed strategy awaiting review and promotion
  - HierarchyComponent: A permanent OGSM node (objective/goal/strategy/measure)
  - KPI / KPIHistoryEntry: A tracked metric and its append-only observations

DESIGN PRINCIPLES:
  1. One-way promotion: a converted strategy is locked forever
  2. Precision: decimal.Decimal for all metric values, no float drift in storage
  3. Type Safety: strong typing for IDs prevents mixing plan/strategy/KPI IDs
  4. Derived health: KPI status is always recomputed, never set by hand

USAGE:
  plan := planning.FiscalYearPlan{FiscalYear: "FY27", Status: planning.PlanDraft}
  svc := planning.PlanService{Store: store}
  created, err := svc.CreatePlan(ctx, "FY27", start, end)

SEE ALSO:
  - plan.go: Plan lifecycle and priority management
  - approval.go: Draft-strategy review state machine
  - conversion.go: Promotion of approved drafts into hierarchy nodes
  - kpi.go: KPI derivation and history appends
  - forecast.go: Trend projection from KPI history
*/
package planning

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PlanID string
type PriorityID string
type StrategyID string
type ComponentID string
type KPIID string
type EntryID string

// =============================================================================
// FISCAL YEAR PLAN - One strategic cycle
// =============================================================================

type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanArchived  PlanStatus = "archived"
)

// FiscalYearPlan is one strategic cycle. The fiscal-year label is unique
// across all plans, and at most one plan is active at any time.
type FiscalYearPlan struct {
	ID         PlanID
	FiscalYear string // e.g. "FY27", unique
	StartDate  time.Time
	EndDate    time.Time
	Status     PlanStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CORE PRIORITY - Leadership priority within a plan
// =============================================================================

// MaxPrioritiesPerPlan caps how many leadership priorities a plan may hold.
const MaxPrioritiesPerPlan = 3

// CorePriority is a leadership priority within a plan. Numbers form a
// gap-free prefix starting at 1, unique per plan.
type CorePriority struct {
	ID          PriorityID
	PlanID      PlanID
	Number      int // 1..MaxPrioritiesPerPlan
	Title       string
	Description string

	CreatedAt time.Time
}

// =============================================================================
// DRAFT STRATEGY - Candidate strategy awaiting review
// =============================================================================

type StrategyStatus string

const (
	StrategyDraft       StrategyStatus = "draft"
	StrategyUnderReview StrategyStatus = "under_review"
	StrategyApproved    StrategyStatus = "approved"
	StrategyRejected    StrategyStatus = "rejected"
)

// ValidStrategyStatus reports whether s is one of the four lifecycle states.
func ValidStrategyStatus(s StrategyStatus) bool {
	switch s {
	case StrategyDraft, StrategyUnderReview, StrategyApproved, StrategyRejected:
		return true
	}
	return false
}

type CostEstimate string

const (
	CostLow    CostEstimate = "low"
	CostMedium CostEstimate = "medium"
	CostHigh   CostEstimate = "high"
)

// ValidCostEstimate reports whether c is a recognized cost bucket.
func ValidCostEstimate(c CostEstimate) bool {
	return c == CostLow || c == CostMedium || c == CostHigh
}

// DraftStrategy is a candidate strategy attached to a priority.
//
// ConvertedComponentID is nil until the strategy is promoted into the
// hierarchy. It may be set only while the status is approved, and once set
// it never changes: conversion is a one-way promotion.
type DraftStrategy struct {
	ID         StrategyID
	PriorityID PriorityID

	Title       string
	Description string
	Rationale   string
	Steps       []string // ordered implementation steps

	SuccessProbability float64 // 0.0 - 1.0
	EstimatedCost      CostEstimate
	Timeframe          string

	Risks              []string
	RequiredResources  []string
	SuccessMetrics     []string
	SupportingEvidence []string

	Status               StrategyStatus
	ConvertedComponentID *ComponentID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Converted reports whether the strategy has been promoted into the hierarchy.
func (s *DraftStrategy) Converted() bool {
	return s.ConvertedComponentID != nil
}

// =============================================================================
// HIERARCHY COMPONENT - Permanent OGSM node
// =============================================================================

type ComponentType string

const (
	ComponentObjective ComponentType = "objective"
	ComponentGoal      ComponentType = "goal"
	ComponentStrategy  ComponentType = "strategy"
	ComponentMeasure   ComponentType = "measure"
)

// HierarchyComponent is a permanent node of the OGSM strategy hierarchy.
// OrderIndex is unique among siblings of the same parent; the parent chain
// never cycles.
//
// SourcePlanID / SourcePriorityID record which plan or priority an
// auto-created objective/goal node represents, so the conversion engine
// can find an existing parent instead of creating duplicates.
type HierarchyComponent struct {
	ID          ComponentID
	Type        ComponentType
	Title       string
	Description string
	ParentID    *ComponentID
	OrderIndex  int

	SourcePlanID     *PlanID
	SourcePriorityID *PriorityID

	CreatedAt time.Time
}

// =============================================================================
// KPI - Tracked metric with target and health
// =============================================================================

type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnual    Frequency = "annual"
)

// ValidFrequency reports whether f is a recognized tracking frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqQuarterly, FreqAnnual:
		return true
	}
	return false
}

type Health string

const (
	HealthOnTrack  Health = "on_track"
	HealthAtRisk   Health = "at_risk"
	HealthOffTrack Health = "off_track"
)

// KPI is a tracked metric. Status is a cached projection of
// Classify(CurrentValue, TargetValue); every write path that changes
// either value must recompute it.
type KPI struct {
	ID          KPIID
	ComponentID *ComponentID // owning hierarchy component, if any
	CategoryID  *string

	Name         string
	Description  string
	TargetValue  *decimal.Decimal
	CurrentValue *decimal.Decimal
	Unit         string
	Frequency    Frequency
	Status       Health

	Owner           string
	SecondaryOwners []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// KPIHistoryEntry is an immutable observation. Entries are always consumed
// in ascending (RecordedAt, Seq) order; Seq is a per-KPI insertion sequence
// assigned by the store so equal dates resolve to the most recent insert.
type KPIHistoryEntry struct {
	ID         EntryID
	KPIID      KPIID
	Value      decimal.Decimal
	RecordedAt time.Time
	Note       string
	Seq        int64

	CreatedAt time.Time
}

// =============================================================================
// PLAN SUMMARY - Read-only aggregate for dashboards
// =============================================================================

// PrioritySummary is a priority plus its strategy count.
type PrioritySummary struct {
	Priority      CorePriority
	StrategyCount int
}

// PlanSummary is the dashboard rollup for a single plan.
type PlanSummary struct {
	Plan                FiscalYearPlan
	Priorities          []PrioritySummary
	DraftCountsByStatus map[StrategyStatus]int
	ConvertedCount      int
	KPIsCreatedCount    int
}
