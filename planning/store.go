/*
store.go - Persistence interfaces for the planning engine

PURPOSE:
  Defines the interface between the workflow logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  PlanStore:      Plans, priorities, and draft strategies
  HierarchyStore: OGSM components and the one-way conversion link
  KPIStore:       KPIs plus their append-only observation history
  Store:          All of the above
  TxStore:        Store with WithTx for atomic multi-step mutations

CONVERSION LINK CONTRACT:
  MarkConverted is a CONDITIONAL write: it succeeds only while the
  strategy's converted-component link is currently null. Concurrent
  conversions of the same strategy therefore surface as a benign
  AlreadyConvertedError instead of a silent double-convert.

HISTORY CONTRACT:
  KPI history is append-only. The store assigns a monotonically
  increasing per-KPI sequence number on append so that entries with
  equal recorded dates resolve to the most recent insert. ListHistory
  always returns ascending (RecordedAt, Seq) order.

ATOMIC UNITS:
  Two mutations must be transactional (wrap in WithTx):
  1. Creating a hierarchy node together with MarkConverted
  2. Appending a history entry together with the current-value/status
     recompute
  A crash between the steps must leave the pre-mutation state intact.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - planning/store/memory.go: In-memory for testing

SEE ALSO:
  - conversion.go, kpi.go: The two WithTx call sites
*/
package planning

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PLAN STORE - Plans, priorities, draft strategies
// =============================================================================

type PlanStore interface {
	// CreatePlan persists a new plan. Returns DuplicateFiscalYearError if
	// the fiscal-year label already exists.
	CreatePlan(ctx context.Context, plan *FiscalYearPlan) error

	// GetPlan returns the plan, or (nil, nil) if it doesn't exist.
	GetPlan(ctx context.Context, id PlanID) (*FiscalYearPlan, error)

	// ListPlans returns all plans ordered by start date descending.
	ListPlans(ctx context.Context) ([]FiscalYearPlan, error)

	// ActivePlan returns the currently active plan, or (nil, nil) if none.
	ActivePlan(ctx context.Context) (*FiscalYearPlan, error)

	// UpdatePlanStatus sets the plan's status.
	UpdatePlanStatus(ctx context.Context, id PlanID, status PlanStatus) error

	// ReplacePriorities replaces the plan's priorities wholesale. Fails with
	// PrioritiesInUseError when any strategy still references an outgoing
	// priority; the store never orphans drafts.
	ReplacePriorities(ctx context.Context, planID PlanID, priorities []CorePriority) error

	// ListPriorities returns the plan's priorities ordered by number.
	ListPriorities(ctx context.Context, planID PlanID) ([]CorePriority, error)

	// GetPriority returns the priority, or (nil, nil) if it doesn't exist.
	GetPriority(ctx context.Context, id PriorityID) (*CorePriority, error)

	// CreateStrategies persists a batch of new draft strategies atomically.
	CreateStrategies(ctx context.Context, strategies []DraftStrategy) error

	// GetStrategy returns the strategy, or (nil, nil) if it doesn't exist.
	GetStrategy(ctx context.Context, id StrategyID) (*DraftStrategy, error)

	// ListStrategies returns all strategies under a priority, oldest first.
	ListStrategies(ctx context.Context, priorityID PriorityID) ([]DraftStrategy, error)

	// ListStrategiesByPlan returns all strategies under all of a plan's
	// priorities, oldest first.
	ListStrategiesByPlan(ctx context.Context, planID PlanID) ([]DraftStrategy, error)

	// UpdateStrategyStatus sets the strategy's lifecycle status. It does NOT
	// guard the converted lock; that check belongs to the approval service.
	UpdateStrategyStatus(ctx context.Context, id StrategyID, status StrategyStatus) error
}

// =============================================================================
// HIERARCHY STORE - OGSM components and the conversion link
// =============================================================================

type HierarchyStore interface {
	// CreateComponent persists a new hierarchy node. The store assigns
	// OrderIndex as the next index among siblings of the same parent.
	CreateComponent(ctx context.Context, c *HierarchyComponent) error

	// GetComponent returns the node, or (nil, nil) if it doesn't exist.
	GetComponent(ctx context.Context, id ComponentID) (*HierarchyComponent, error)

	// ListChildren returns the node's children ordered by OrderIndex.
	// A nil parent lists root nodes.
	ListChildren(ctx context.Context, parentID *ComponentID) ([]HierarchyComponent, error)

	// FindPlanObjective returns the objective node created for a plan,
	// or (nil, nil) if none exists yet.
	FindPlanObjective(ctx context.Context, planID PlanID) (*HierarchyComponent, error)

	// FindPriorityGoal returns the goal node created for a priority,
	// or (nil, nil) if none exists yet.
	FindPriorityGoal(ctx context.Context, priorityID PriorityID) (*HierarchyComponent, error)

	// MarkConverted sets the strategy's converted-component link.
	// CONDITIONAL: fails with AlreadyConvertedError if the link is already
	// set, making concurrent double-conversion a benign no-op.
	MarkConverted(ctx context.Context, strategyID StrategyID, componentID ComponentID) error
}

// =============================================================================
// KPI STORE - KPIs and their append-only history
// =============================================================================

type KPIStore interface {
	// CreateKPI persists a new KPI.
	CreateKPI(ctx context.Context, k *KPI) error

	// GetKPI returns the KPI, or (nil, nil) if it doesn't exist.
	GetKPI(ctx context.Context, id KPIID) (*KPI, error)

	// ListKPIsByComponent returns all KPIs owned by a hierarchy node.
	ListKPIsByComponent(ctx context.Context, componentID ComponentID) ([]KPI, error)

	// UpdateKPIValue sets the KPI's cached current value and health status.
	// Only the history engine calls this, and only inside the same
	// transaction as the history append that triggered the recompute.
	UpdateKPIValue(ctx context.Context, id KPIID, current *decimal.Decimal, status Health) error

	// AppendHistory persists an observation. Append-only: no update, no
	// delete. The store assigns the per-KPI Seq.
	AppendHistory(ctx context.Context, e *KPIHistoryEntry) error

	// ListHistory returns the KPI's observations in ascending
	// (RecordedAt, Seq) order.
	ListHistory(ctx context.Context, kpiID KPIID) ([]KPIHistoryEntry, error)

	// CountKPIsByPlan counts KPIs attached to components converted from the
	// plan's strategies. Used by the dashboard summary.
	CountKPIsByPlan(ctx context.Context, planID PlanID) (int, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

type Store interface {
	PlanStore
	HierarchyStore
	KPIStore
}

// TxStore wraps Store with transaction support.
// Use this for the two atomic mutations (conversion, history append).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
