package planning

import "github.com/google/uuid"

// =============================================================================
// ID GENERATION - Prefixed UUIDs so an id's kind is readable in logs
// =============================================================================

func NewPlanID() PlanID           { return PlanID("plan_" + uuid.New().String()) }
func NewPriorityID() PriorityID   { return PriorityID("prio_" + uuid.New().String()) }
func NewStrategyID() StrategyID   { return StrategyID("strat_" + uuid.New().String()) }
func NewComponentID() ComponentID { return ComponentID("ogsm_" + uuid.New().String()) }
func NewKPIID() KPIID             { return KPIID("kpi_" + uuid.New().String()) }
func NewEntryID() EntryID         { return EntryID("obs_" + uuid.New().String()) }
