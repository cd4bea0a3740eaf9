// Package store provides planning.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/strategy-engine/planning"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements planning.TxStore with mutex-guarded maps.
//
// WithTx serializes callers and restores a pre-callback snapshot on error,
// so a failed transaction leaves no partial writes behind.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	plans       map[planning.PlanID]planning.FiscalYearPlan
	plansByYear map[string]planning.PlanID

	priorities       map[planning.PriorityID]planning.CorePriority
	prioritiesByPlan map[planning.PlanID][]planning.PriorityID

	strategies           map[planning.StrategyID]planning.DraftStrategy
	strategiesByPriority map[planning.PriorityID][]planning.StrategyID

	components map[planning.ComponentID]planning.HierarchyComponent

	kpis    map[planning.KPIID]planning.KPI
	history map[planning.KPIID][]planning.KPIHistoryEntry
	seq     map[planning.KPIID]int64
}

func NewMemory() *Memory {
	return &Memory{
		plans:                make(map[planning.PlanID]planning.FiscalYearPlan),
		plansByYear:          make(map[string]planning.PlanID),
		priorities:           make(map[planning.PriorityID]planning.CorePriority),
		prioritiesByPlan:     make(map[planning.PlanID][]planning.PriorityID),
		strategies:           make(map[planning.StrategyID]planning.DraftStrategy),
		strategiesByPriority: make(map[planning.PriorityID][]planning.StrategyID),
		components:           make(map[planning.ComponentID]planning.HierarchyComponent),
		kpis:                 make(map[planning.KPIID]planning.KPI),
		history:              make(map[planning.KPIID][]planning.KPIHistoryEntry),
		seq:                  make(map[planning.KPIID]int64),
	}
}

// =============================================================================
// PLAN STORE
// =============================================================================

func (m *Memory) CreatePlan(_ context.Context, plan *planning.FiscalYearPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plansByYear[plan.FiscalYear]; exists {
		return &planning.DuplicateFiscalYearError{FiscalYear: plan.FiscalYear}
	}
	m.plans[plan.ID] = *plan
	m.plansByYear[plan.FiscalYear] = plan.ID
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id planning.PlanID) (*planning.FiscalYearPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]planning.FiscalYearPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plans := make([]planning.FiscalYearPlan, 0, len(m.plans))
	for _, p := range m.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].StartDate.After(plans[j].StartDate) })
	return plans, nil
}

func (m *Memory) ActivePlan(_ context.Context) (*planning.FiscalYearPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plans {
		if p.Status == planning.PlanActive {
			plan := p
			return &plan, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdatePlanStatus(_ context.Context, id planning.PlanID, status planning.PlanStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, ok := m.plans[id]
	if !ok {
		return planning.ErrPlanNotFound
	}
	plan.Status = status
	m.plans[id] = plan
	return nil
}

func (m *Memory) ReplacePriorities(_ context.Context, planID planning.PlanID, priorities []planning.CorePriority) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Refuse to orphan strategies under the outgoing priorities.
	attached := 0
	for _, id := range m.prioritiesByPlan[planID] {
		attached += len(m.strategiesByPriority[id])
	}
	if attached > 0 {
		return &planning.PrioritiesInUseError{PlanID: planID, StrategyCount: attached}
	}

	for _, id := range m.prioritiesByPlan[planID] {
		delete(m.priorities, id)
	}
	ids := make([]planning.PriorityID, 0, len(priorities))
	for _, p := range priorities {
		m.priorities[p.ID] = p
		ids = append(ids, p.ID)
	}
	m.prioritiesByPlan[planID] = ids
	return nil
}

func (m *Memory) ListPriorities(_ context.Context, planID planning.PlanID) ([]planning.CorePriority, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.CorePriority
	for _, id := range m.prioritiesByPlan[planID] {
		result = append(result, m.priorities[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *Memory) GetPriority(_ context.Context, id planning.PriorityID) (*planning.CorePriority, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.priorities[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) CreateStrategies(_ context.Context, strategies []planning.DraftStrategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range strategies {
		m.strategies[s.ID] = s
		m.strategiesByPriority[s.PriorityID] = append(m.strategiesByPriority[s.PriorityID], s.ID)
	}
	return nil
}

func (m *Memory) GetStrategy(_ context.Context, id planning.StrategyID) (*planning.DraftStrategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.strategies[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListStrategies(_ context.Context, priorityID planning.PriorityID) ([]planning.DraftStrategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.DraftStrategy
	for _, id := range m.strategiesByPriority[priorityID] {
		result = append(result, m.strategies[id])
	}
	return result, nil
}

func (m *Memory) ListStrategiesByPlan(ctx context.Context, planID planning.PlanID) ([]planning.DraftStrategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.DraftStrategy
	for _, prioID := range m.prioritiesByPlan[planID] {
		for _, id := range m.strategiesByPriority[prioID] {
			result = append(result, m.strategies[id])
		}
	}
	return result, nil
}

func (m *Memory) UpdateStrategyStatus(_ context.Context, id planning.StrategyID, status planning.StrategyStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strategies[id]
	if !ok {
		return planning.ErrStrategyNotFound
	}
	s.Status = status
	m.strategies[id] = s
	return nil
}

// =============================================================================
// HIERARCHY STORE
// =============================================================================

func (m *Memory) CreateComponent(_ context.Context, c *planning.HierarchyComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Next order index among siblings of the same parent.
	idx := 0
	for _, existing := range m.components {
		if sameParent(existing.ParentID, c.ParentID) {
			idx++
		}
	}
	c.OrderIndex = idx
	m.components[c.ID] = *c
	return nil
}

func sameParent(a, b *planning.ComponentID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *Memory) GetComponent(_ context.Context, id planning.ComponentID) (*planning.HierarchyComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.components[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListChildren(_ context.Context, parentID *planning.ComponentID) ([]planning.HierarchyComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.HierarchyComponent
	for _, c := range m.components {
		if sameParent(c.ParentID, parentID) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderIndex < result[j].OrderIndex })
	return result, nil
}

func (m *Memory) FindPlanObjective(_ context.Context, planID planning.PlanID) (*planning.HierarchyComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.components {
		if c.Type == planning.ComponentObjective && c.SourcePlanID != nil && *c.SourcePlanID == planID {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindPriorityGoal(_ context.Context, priorityID planning.PriorityID) (*planning.HierarchyComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.components {
		if c.Type == planning.ComponentGoal && c.SourcePriorityID != nil && *c.SourcePriorityID == priorityID {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) MarkConverted(_ context.Context, strategyID planning.StrategyID, componentID planning.ComponentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strategies[strategyID]
	if !ok {
		return planning.ErrStrategyNotFound
	}
	if s.ConvertedComponentID != nil {
		return &planning.AlreadyConvertedError{StrategyID: strategyID, ComponentID: *s.ConvertedComponentID}
	}
	s.ConvertedComponentID = &componentID
	m.strategies[strategyID] = s
	return nil
}

// =============================================================================
// KPI STORE
// =============================================================================

func (m *Memory) CreateKPI(_ context.Context, k *planning.KPI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.kpis[k.ID] = *k
	return nil
}

func (m *Memory) GetKPI(_ context.Context, id planning.KPIID) (*planning.KPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.kpis[id]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (m *Memory) ListKPIsByComponent(_ context.Context, componentID planning.ComponentID) ([]planning.KPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []planning.KPI
	for _, k := range m.kpis {
		if k.ComponentID != nil && *k.ComponentID == componentID {
			result = append(result, k)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) UpdateKPIValue(_ context.Context, id planning.KPIID, current *decimal.Decimal, status planning.Health) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.kpis[id]
	if !ok {
		return planning.ErrKPINotFound
	}
	k.CurrentValue = current
	k.Status = status
	m.kpis[id] = k
	return nil
}

func (m *Memory) AppendHistory(_ context.Context, e *planning.KPIHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[e.KPIID]++
	e.Seq = m.seq[e.KPIID]

	entries := append(m.history[e.KPIID], *e)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].Seq < entries[j].Seq
		}
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	m.history[e.KPIID] = entries
	return nil
}

func (m *Memory) ListHistory(_ context.Context, kpiID planning.KPIID) ([]planning.KPIHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]planning.KPIHistoryEntry, len(m.history[kpiID]))
	copy(result, m.history[kpiID])
	return result, nil
}

func (m *Memory) CountKPIsByPlan(ctx context.Context, planID planning.PlanID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, prioID := range m.prioritiesByPlan[planID] {
		for _, sid := range m.strategiesByPriority[prioID] {
			s := m.strategies[sid]
			if s.ConvertedComponentID == nil {
				continue
			}
			for _, k := range m.kpis {
				if k.ComponentID != nil && *k.ComponentID == *s.ConvertedComponentID {
					count++
				}
			}
		}
	}
	return count, nil
}

// =============================================================================
// TX STORE
// =============================================================================

// WithTx serializes the callback against other WithTx callers and rolls
// back by restoring a snapshot when the callback fails, matching the SQLite
// store's transactional guarantee.
func (m *Memory) WithTx(_ context.Context, fn func(planning.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// memorySnapshot is a full copy of the store's state. Slices are copied
// because AppendHistory and the index maps mutate them in place.
type memorySnapshot struct {
	plans       map[planning.PlanID]planning.FiscalYearPlan
	plansByYear map[string]planning.PlanID

	priorities       map[planning.PriorityID]planning.CorePriority
	prioritiesByPlan map[planning.PlanID][]planning.PriorityID

	strategies           map[planning.StrategyID]planning.DraftStrategy
	strategiesByPriority map[planning.PriorityID][]planning.StrategyID

	components map[planning.ComponentID]planning.HierarchyComponent

	kpis    map[planning.KPIID]planning.KPI
	history map[planning.KPIID][]planning.KPIHistoryEntry
	seq     map[planning.KPIID]int64
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copySliceMap[K comparable, V any](src map[K][]V) map[K][]V {
	dst := make(map[K][]V, len(src))
	for k, v := range src {
		s := make([]V, len(v))
		copy(s, v)
		dst[k] = s
	}
	return dst
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return memorySnapshot{
		plans:                copyMap(m.plans),
		plansByYear:          copyMap(m.plansByYear),
		priorities:           copyMap(m.priorities),
		prioritiesByPlan:     copySliceMap(m.prioritiesByPlan),
		strategies:           copyMap(m.strategies),
		strategiesByPriority: copySliceMap(m.strategiesByPriority),
		components:           copyMap(m.components),
		kpis:                 copyMap(m.kpis),
		history:              copySliceMap(m.history),
		seq:                  copyMap(m.seq),
	}
}

func (m *Memory) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans = snap.plans
	m.plansByYear = snap.plansByYear
	m.priorities = snap.priorities
	m.prioritiesByPlan = snap.prioritiesByPlan
	m.strategies = snap.strategies
	m.strategiesByPriority = snap.strategiesByPriority
	m.components = snap.components
	m.kpis = snap.kpis
	m.history = snap.history
	m.seq = snap.seq
}
