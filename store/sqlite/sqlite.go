/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements planning.TxStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  plans:       Fiscal-year plans (unique fiscal_year label)
  priorities:  Leadership priorities (unique number per plan)
  strategies:  Draft strategies with the one-way converted link
  components:  Permanent OGSM hierarchy nodes
  kpis:        Tracked metrics with cached current value and health
  kpi_history: Append-only observation log (per-KPI sequence column)

ONE-WAY CONVERSION:
  MarkConverted is a conditional UPDATE that only matches rows whose
  converted_component_id is still NULL. A concurrent conversion of the
  same strategy affects zero rows and surfaces as AlreadyConvertedError,
  never as a silent double-convert.

APPEND-ONLY HISTORY:
  kpi_history has INSERT and SELECT paths only. The seq column is
  assigned on append (MAX(seq)+1 per KPI) so equal recorded dates
  resolve to the most recent insert.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex at the public-method boundary. Methods running inside
  WithTx bypass the lock (WithTx already holds it) by calling the
  unexported helpers against the open transaction.

USAGE:
  store, err := sqlite.New("./data/strategy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - planning/store.go: Interface definitions and contracts
  - planning/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/strategy-engine/planning"
)

// Store implements planning.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Fiscal-year plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		fiscal_year TEXT NOT NULL UNIQUE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_status ON plans(status);

	-- Leadership priorities (1-3 per plan, gap-free)
	CREATE TABLE IF NOT EXISTS priorities (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES plans(id),
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(plan_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_priorities_plan ON priorities(plan_id);

	-- Draft strategies with the one-way conversion link
	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		priority_id TEXT NOT NULL REFERENCES priorities(id),
		title TEXT NOT NULL,
		description TEXT,
		rationale TEXT,
		steps_json TEXT,
		success_probability REAL NOT NULL DEFAULT 0,
		estimated_cost TEXT NOT NULL DEFAULT 'medium',
		timeframe TEXT,
		risks_json TEXT,
		resources_json TEXT,
		metrics_json TEXT,
		evidence_json TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		converted_component_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_strategies_priority ON strategies(priority_id);
	CREATE INDEX IF NOT EXISTS idx_strategies_status ON strategies(status);
	CREATE INDEX IF NOT EXISTS idx_strategies_converted
		ON strategies(converted_component_id) WHERE converted_component_id IS NOT NULL;

	-- Permanent OGSM hierarchy nodes
	CREATE TABLE IF NOT EXISTS components (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		parent_id TEXT REFERENCES components(id),
		order_index INTEGER NOT NULL DEFAULT 0,
		source_plan_id TEXT,
		source_priority_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_components_parent ON components(parent_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_components_source_plan
		ON components(source_plan_id) WHERE source_plan_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_components_source_priority
		ON components(source_priority_id) WHERE source_priority_id IS NOT NULL;

	-- KPIs (current_value/status are cached projections, recomputed on write)
	CREATE TABLE IF NOT EXISTS kpis (
		id TEXT PRIMARY KEY,
		component_id TEXT REFERENCES components(id),
		category_id TEXT,
		name TEXT NOT NULL,
		description TEXT,
		target_value TEXT,
		current_value TEXT,
		unit TEXT,
		frequency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'on_track',
		owner TEXT,
		secondary_owners_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kpis_component ON kpis(component_id);

	-- KPI observations (append-only; seq breaks equal-date ties)
	CREATE TABLE IF NOT EXISTS kpi_history (
		id TEXT PRIMARY KEY,
		kpi_id TEXT NOT NULL REFERENCES kpis(id),
		value TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		note TEXT,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(kpi_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_kpi_history_kpi_date
		ON kpi_history(kpi_id, recorded_at, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PLAN STORE (planning.PlanStore interface)
// =============================================================================

func (s *Store) CreatePlan(ctx context.Context, plan *planning.FiscalYearPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPlan(ctx, s.db, plan)
}

func createPlan(ctx context.Context, db dbtx, plan *planning.FiscalYearPlan) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO plans (id, fiscal_year, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.FiscalYear,
		plan.StartDate.UTC().Format(time.RFC3339),
		plan.EndDate.UTC().Format(time.RFC3339),
		plan.Status,
		plan.CreatedAt.Format(time.RFC3339),
		plan.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return &planning.DuplicateFiscalYearError{FiscalYear: plan.FiscalYear}
		}
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

const planColumns = "id, fiscal_year, start_date, end_date, status, created_at, updated_at"

func (s *Store) GetPlan(ctx context.Context, id planning.PlanID) (*planning.FiscalYearPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPlan(ctx, s.db, id)
}

func getPlan(ctx context.Context, db dbtx, id planning.PlanID) (*planning.FiscalYearPlan, error) {
	return queryOnePlan(ctx, db, "SELECT "+planColumns+" FROM plans WHERE id = ?", id)
}

func (s *Store) ListPlans(ctx context.Context) ([]planning.FiscalYearPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlans(ctx, s.db)
}

func listPlans(ctx context.Context, db dbtx) ([]planning.FiscalYearPlan, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+planColumns+" FROM plans ORDER BY start_date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []planning.FiscalYearPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (s *Store) ActivePlan(ctx context.Context) (*planning.FiscalYearPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activePlan(ctx, s.db)
}

func activePlan(ctx context.Context, db dbtx) (*planning.FiscalYearPlan, error) {
	return queryOnePlan(ctx, db, "SELECT "+planColumns+" FROM plans WHERE status = 'active'")
}

func queryOnePlan(ctx context.Context, db dbtx, query string, args ...any) (*planning.FiscalYearPlan, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPlan(rows)
}

func scanPlan(rows *sql.Rows) (*planning.FiscalYearPlan, error) {
	var (
		p         planning.FiscalYearPlan
		start     string
		end       string
		createdAt string
		updatedAt string
	)
	if err := rows.Scan(&p.ID, &p.FiscalYear, &start, &end, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	p.StartDate = parseTime(start)
	p.EndDate = parseTime(end)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (s *Store) UpdatePlanStatus(ctx context.Context, id planning.PlanID, status planning.PlanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePlanStatus(ctx, s.db, id, status)
}

func updatePlanStatus(ctx context.Context, db dbtx, id planning.PlanID, status planning.PlanStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE plans SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return planning.ErrPlanNotFound
	}
	return nil
}

func (s *Store) ReplacePriorities(ctx context.Context, planID planning.PlanID, priorities []planning.CorePriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replacePriorities(ctx, tx, planID, priorities); err != nil {
		return err
	}
	return tx.Commit()
}

func replacePriorities(ctx context.Context, db dbtx, planID planning.PlanID, priorities []planning.CorePriority) error {
	// Refuse to orphan strategies under the outgoing priorities.
	var attached int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM strategies st
		JOIN priorities p ON p.id = st.priority_id
		WHERE p.plan_id = ?`, planID).Scan(&attached)
	if err != nil {
		return fmt.Errorf("failed to count attached strategies: %w", err)
	}
	if attached > 0 {
		return &planning.PrioritiesInUseError{PlanID: planID, StrategyCount: attached}
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM priorities WHERE plan_id = ?", planID); err != nil {
		return fmt.Errorf("failed to clear priorities: %w", err)
	}
	for _, p := range priorities {
		_, err := db.ExecContext(ctx, `
			INSERT INTO priorities (id, plan_id, number, title, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.PlanID, p.Number, p.Title, p.Description,
			p.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert priority %d: %w", p.Number, err)
		}
	}
	return nil
}

func (s *Store) ListPriorities(ctx context.Context, planID planning.PlanID) ([]planning.CorePriority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPriorities(ctx, s.db, planID)
}

func listPriorities(ctx context.Context, db dbtx, planID planning.PlanID) ([]planning.CorePriority, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, plan_id, number, title, description, created_at
		FROM priorities WHERE plan_id = ? ORDER BY number ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query priorities: %w", err)
	}
	defer rows.Close()

	var priorities []planning.CorePriority
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, err
		}
		priorities = append(priorities, *p)
	}
	return priorities, rows.Err()
}

func (s *Store) GetPriority(ctx context.Context, id planning.PriorityID) (*planning.CorePriority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPriority(ctx, s.db, id)
}

func getPriority(ctx context.Context, db dbtx, id planning.PriorityID) (*planning.CorePriority, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, plan_id, number, title, description, created_at
		FROM priorities WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query priority: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPriority(rows)
}

func scanPriority(rows *sql.Rows) (*planning.CorePriority, error) {
	var (
		p           planning.CorePriority
		description sql.NullString
		createdAt   string
	)
	if err := rows.Scan(&p.ID, &p.PlanID, &p.Number, &p.Title, &description, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan priority: %w", err)
	}
	p.Description = description.String
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// =============================================================================
// STRATEGIES
// =============================================================================

const strategyColumns = `id, priority_id, title, description, rationale, steps_json,
	success_probability, estimated_cost, timeframe, risks_json,
	resources_json, metrics_json, evidence_json, status,
	converted_component_id, created_at, updated_at`

func (s *Store) CreateStrategies(ctx context.Context, strategies []planning.DraftStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createStrategies(ctx, tx, strategies); err != nil {
		return err
	}
	return tx.Commit()
}

func createStrategies(ctx context.Context, db dbtx, strategies []planning.DraftStrategy) error {
	for _, st := range strategies {
		_, err := db.ExecContext(ctx, `
			INSERT INTO strategies
			(id, priority_id, title, description, rationale, steps_json,
			 success_probability, estimated_cost, timeframe, risks_json,
			 resources_json, metrics_json, evidence_json, status,
			 converted_component_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.ID, st.PriorityID, st.Title, st.Description, st.Rationale,
			marshalStrings(st.Steps),
			st.SuccessProbability, st.EstimatedCost, st.Timeframe,
			marshalStrings(st.Risks),
			marshalStrings(st.RequiredResources),
			marshalStrings(st.SuccessMetrics),
			marshalStrings(st.SupportingEvidence),
			st.Status,
			nullComponentID(st.ConvertedComponentID),
			st.CreatedAt.Format(time.RFC3339),
			st.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert strategy: %w", err)
		}
	}
	return nil
}

func (s *Store) GetStrategy(ctx context.Context, id planning.StrategyID) (*planning.DraftStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStrategy(ctx, s.db, id)
}

func getStrategy(ctx context.Context, db dbtx, id planning.StrategyID) (*planning.DraftStrategy, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+strategyColumns+" FROM strategies WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanStrategy(rows)
}

func (s *Store) ListStrategies(ctx context.Context, priorityID planning.PriorityID) ([]planning.DraftStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStrategies(ctx, s.db, priorityID)
}

func listStrategies(ctx context.Context, db dbtx, priorityID planning.PriorityID) ([]planning.DraftStrategy, error) {
	return queryStrategies(ctx, db,
		"SELECT "+strategyColumns+" FROM strategies WHERE priority_id = ? ORDER BY created_at ASC, id ASC",
		priorityID)
}

func (s *Store) ListStrategiesByPlan(ctx context.Context, planID planning.PlanID) ([]planning.DraftStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStrategiesByPlan(ctx, s.db, planID)
}

func listStrategiesByPlan(ctx context.Context, db dbtx, planID planning.PlanID) ([]planning.DraftStrategy, error) {
	return queryStrategies(ctx, db, `
		SELECT `+strategyColumns+` FROM strategies
		WHERE priority_id IN (SELECT id FROM priorities WHERE plan_id = ?)
		ORDER BY created_at ASC, id ASC`, planID)
}

func queryStrategies(ctx context.Context, db dbtx, query string, args ...any) ([]planning.DraftStrategy, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []planning.DraftStrategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *st)
	}
	return strategies, rows.Err()
}

func scanStrategy(rows *sql.Rows) (*planning.DraftStrategy, error) {
	var (
		st          planning.DraftStrategy
		description sql.NullString
		rationale   sql.NullString
		stepsJSON   sql.NullString
		timeframe   sql.NullString
		risksJSON   sql.NullString
		resJSON     sql.NullString
		metricsJSON sql.NullString
		evJSON      sql.NullString
		converted   sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := rows.Scan(
		&st.ID, &st.PriorityID, &st.Title, &description, &rationale, &stepsJSON,
		&st.SuccessProbability, &st.EstimatedCost, &timeframe, &risksJSON,
		&resJSON, &metricsJSON, &evJSON, &st.Status,
		&converted, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan strategy: %w", err)
	}

	st.Description = description.String
	st.Rationale = rationale.String
	st.Timeframe = timeframe.String
	st.Steps = unmarshalStrings(stepsJSON)
	st.Risks = unmarshalStrings(risksJSON)
	st.RequiredResources = unmarshalStrings(resJSON)
	st.SuccessMetrics = unmarshalStrings(metricsJSON)
	st.SupportingEvidence = unmarshalStrings(evJSON)
	if converted.Valid {
		id := planning.ComponentID(converted.String)
		st.ConvertedComponentID = &id
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

func (s *Store) UpdateStrategyStatus(ctx context.Context, id planning.StrategyID, status planning.StrategyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStrategyStatus(ctx, s.db, id, status)
}

func updateStrategyStatus(ctx context.Context, db dbtx, id planning.StrategyID, status planning.StrategyStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE strategies SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update strategy status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return planning.ErrStrategyNotFound
	}
	return nil
}

// =============================================================================
// HIERARCHY STORE (planning.HierarchyStore interface)
// =============================================================================

const componentColumns = `id, type, title, description, parent_id, order_index,
	source_plan_id, source_priority_id, created_at`

func (s *Store) CreateComponent(ctx context.Context, c *planning.HierarchyComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createComponent(ctx, s.db, c)
}

func createComponent(ctx context.Context, db dbtx, c *planning.HierarchyComponent) error {
	// Next order index among siblings of the same parent.
	var (
		count int
		err   error
	)
	if c.ParentID == nil {
		err = db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM components WHERE parent_id IS NULL").Scan(&count)
	} else {
		err = db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM components WHERE parent_id = ?", *c.ParentID).Scan(&count)
	}
	if err != nil {
		return fmt.Errorf("failed to count siblings: %w", err)
	}
	c.OrderIndex = count

	_, err = db.ExecContext(ctx, `
		INSERT INTO components
		(id, type, title, description, parent_id, order_index,
		 source_plan_id, source_priority_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Type, c.Title, c.Description,
		nullComponentID(c.ParentID), c.OrderIndex,
		nullPlanID(c.SourcePlanID), nullPriorityID(c.SourcePriorityID),
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert component: %w", err)
	}
	return nil
}

func (s *Store) GetComponent(ctx context.Context, id planning.ComponentID) (*planning.HierarchyComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getComponent(ctx, s.db, id)
}

func getComponent(ctx context.Context, db dbtx, id planning.ComponentID) (*planning.HierarchyComponent, error) {
	return queryOneComponent(ctx, db, "id = ?", id)
}

func (s *Store) ListChildren(ctx context.Context, parentID *planning.ComponentID) ([]planning.HierarchyComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listChildren(ctx, s.db, parentID)
}

func listChildren(ctx context.Context, db dbtx, parentID *planning.ComponentID) ([]planning.HierarchyComponent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		rows, err = db.QueryContext(ctx,
			"SELECT "+componentColumns+" FROM components WHERE parent_id IS NULL ORDER BY order_index ASC")
	} else {
		rows, err = db.QueryContext(ctx,
			"SELECT "+componentColumns+" FROM components WHERE parent_id = ? ORDER BY order_index ASC", *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []planning.HierarchyComponent
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *Store) FindPlanObjective(ctx context.Context, planID planning.PlanID) (*planning.HierarchyComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOneComponent(ctx, s.db, "source_plan_id = ?", planID)
}

func (s *Store) FindPriorityGoal(ctx context.Context, priorityID planning.PriorityID) (*planning.HierarchyComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOneComponent(ctx, s.db, "source_priority_id = ?", priorityID)
}

func queryOneComponent(ctx context.Context, db dbtx, where string, arg any) (*planning.HierarchyComponent, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+componentColumns+" FROM components WHERE "+where, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query component: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanComponent(rows)
}

func scanComponent(rows *sql.Rows) (*planning.HierarchyComponent, error) {
	var (
		c           planning.HierarchyComponent
		description sql.NullString
		parentID    sql.NullString
		srcPlan     sql.NullString
		srcPriority sql.NullString
		createdAt   string
	)
	err := rows.Scan(&c.ID, &c.Type, &c.Title, &description, &parentID,
		&c.OrderIndex, &srcPlan, &srcPriority, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan component: %w", err)
	}

	c.Description = description.String
	if parentID.Valid {
		id := planning.ComponentID(parentID.String)
		c.ParentID = &id
	}
	if srcPlan.Valid {
		id := planning.PlanID(srcPlan.String)
		c.SourcePlanID = &id
	}
	if srcPriority.Valid {
		id := planning.PriorityID(srcPriority.String)
		c.SourcePriorityID = &id
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) MarkConverted(ctx context.Context, strategyID planning.StrategyID, componentID planning.ComponentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markConverted(ctx, s.db, strategyID, componentID)
}

func markConverted(ctx context.Context, db dbtx, strategyID planning.StrategyID, componentID planning.ComponentID) error {
	// Conditional write: only matches while the link is still null.
	res, err := db.ExecContext(ctx, `
		UPDATE strategies SET converted_component_id = ?, updated_at = ?
		WHERE id = ? AND converted_component_id IS NULL`,
		componentID, time.Now().UTC().Format(time.RFC3339), strategyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark converted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var existing sql.NullString
	err = db.QueryRowContext(ctx,
		"SELECT converted_component_id FROM strategies WHERE id = ?", strategyID,
	).Scan(&existing)
	if err == sql.ErrNoRows {
		return planning.ErrStrategyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect strategy: %w", err)
	}
	return &planning.AlreadyConvertedError{
		StrategyID:  strategyID,
		ComponentID: planning.ComponentID(existing.String),
	}
}

// =============================================================================
// KPI STORE (planning.KPIStore interface)
// =============================================================================

const kpiColumns = `id, component_id, category_id, name, description, target_value,
	current_value, unit, frequency, status, owner, secondary_owners_json,
	created_at, updated_at`

func (s *Store) CreateKPI(ctx context.Context, k *planning.KPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createKPI(ctx, s.db, k)
}

func createKPI(ctx context.Context, db dbtx, k *planning.KPI) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kpis
		(id, component_id, category_id, name, description, target_value,
		 current_value, unit, frequency, status, owner, secondary_owners_json,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, nullComponentID(k.ComponentID), nullString(k.CategoryID),
		k.Name, k.Description,
		nullDecimal(k.TargetValue), nullDecimal(k.CurrentValue),
		k.Unit, k.Frequency, k.Status, k.Owner,
		marshalStrings(k.SecondaryOwners),
		k.CreatedAt.Format(time.RFC3339),
		k.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert kpi: %w", err)
	}
	return nil
}

func (s *Store) GetKPI(ctx context.Context, id planning.KPIID) (*planning.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getKPI(ctx, s.db, id)
}

func getKPI(ctx context.Context, db dbtx, id planning.KPIID) (*planning.KPI, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+kpiColumns+" FROM kpis WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query kpi: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanKPI(rows)
}

func (s *Store) ListKPIsByComponent(ctx context.Context, componentID planning.ComponentID) ([]planning.KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listKPIsByComponent(ctx, s.db, componentID)
}

func listKPIsByComponent(ctx context.Context, db dbtx, componentID planning.ComponentID) ([]planning.KPI, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+kpiColumns+" FROM kpis WHERE component_id = ? ORDER BY name ASC", componentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kpis: %w", err)
	}
	defer rows.Close()

	var kpis []planning.KPI
	for rows.Next() {
		k, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		kpis = append(kpis, *k)
	}
	return kpis, rows.Err()
}

func scanKPI(rows *sql.Rows) (*planning.KPI, error) {
	var (
		k            planning.KPI
		componentID  sql.NullString
		categoryID   sql.NullString
		description  sql.NullString
		targetValue  sql.NullString
		currentValue sql.NullString
		unit         sql.NullString
		owner        sql.NullString
		ownersJSON   sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := rows.Scan(&k.ID, &componentID, &categoryID, &k.Name, &description,
		&targetValue, &currentValue, &unit, &k.Frequency, &k.Status,
		&owner, &ownersJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan kpi: %w", err)
	}

	if componentID.Valid {
		id := planning.ComponentID(componentID.String)
		k.ComponentID = &id
	}
	if categoryID.Valid {
		v := categoryID.String
		k.CategoryID = &v
	}
	k.SecondaryOwners = unmarshalStrings(ownersJSON)
	k.Description = description.String
	k.TargetValue = parseNullDecimal(targetValue)
	k.CurrentValue = parseNullDecimal(currentValue)
	k.Unit = unit.String
	k.Owner = owner.String
	k.CreatedAt = parseTime(createdAt)
	k.UpdatedAt = parseTime(updatedAt)
	return &k, nil
}

func (s *Store) UpdateKPIValue(ctx context.Context, id planning.KPIID, current *decimal.Decimal, status planning.Health) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateKPIValue(ctx, s.db, id, current, status)
}

func updateKPIValue(ctx context.Context, db dbtx, id planning.KPIID, current *decimal.Decimal, status planning.Health) error {
	res, err := db.ExecContext(ctx,
		"UPDATE kpis SET current_value = ?, status = ?, updated_at = ? WHERE id = ?",
		nullDecimal(current), status, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update kpi value: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return planning.ErrKPINotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, e *planning.KPIHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendHistory(ctx, s.db, e)
}

func appendHistory(ctx context.Context, db dbtx, e *planning.KPIHistoryEntry) error {
	var maxSeq sql.NullInt64
	err := db.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM kpi_history WHERE kpi_id = ?", e.KPIID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("failed to read history sequence: %w", err)
	}
	e.Seq = maxSeq.Int64 + 1

	_, err = db.ExecContext(ctx, `
		INSERT INTO kpi_history (id, kpi_id, value, recorded_at, note, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.KPIID, e.Value.String(),
		e.RecordedAt.UTC().Format(time.RFC3339),
		e.Note, e.Seq,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, kpiID planning.KPIID) ([]planning.KPIHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHistory(ctx, s.db, kpiID)
}

func listHistory(ctx context.Context, db dbtx, kpiID planning.KPIID) ([]planning.KPIHistoryEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, kpi_id, value, recorded_at, note, seq, created_at
		FROM kpi_history WHERE kpi_id = ?
		ORDER BY recorded_at ASC, seq ASC`, kpiID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []planning.KPIHistoryEntry
	for rows.Next() {
		var (
			e          planning.KPIHistoryEntry
			value      string
			recordedAt string
			note       sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.KPIID, &value, &recordedAt, &note, &e.Seq, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse history value: %w", err)
		}
		e.RecordedAt = parseTime(recordedAt)
		e.Note = note.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CountKPIsByPlan(ctx context.Context, planID planning.PlanID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countKPIsByPlan(ctx, s.db, planID)
}

func countKPIsByPlan(ctx context.Context, db dbtx, planID planning.PlanID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM kpis k
		JOIN strategies st ON st.converted_component_id = k.component_id
		JOIN priorities p ON p.id = st.priority_id
		WHERE p.plan_id = ?`, planID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count kpis: %w", err)
	}
	return count, nil
}

// =============================================================================
// TRANSACTIONAL STORE (planning.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The callback's
// store routes every call through the open transaction; any error rolls
// the whole unit back.
func (s *Store) WithTx(ctx context.Context, fn func(store planning.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through the open transaction. It calls the
// unexported helpers directly: WithTx already holds the lock.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreatePlan(ctx context.Context, plan *planning.FiscalYearPlan) error {
	return createPlan(ctx, ts.tx, plan)
}

func (ts *txStore) GetPlan(ctx context.Context, id planning.PlanID) (*planning.FiscalYearPlan, error) {
	return getPlan(ctx, ts.tx, id)
}

func (ts *txStore) ListPlans(ctx context.Context) ([]planning.FiscalYearPlan, error) {
	return listPlans(ctx, ts.tx)
}

func (ts *txStore) ActivePlan(ctx context.Context) (*planning.FiscalYearPlan, error) {
	return activePlan(ctx, ts.tx)
}

func (ts *txStore) UpdatePlanStatus(ctx context.Context, id planning.PlanID, status planning.PlanStatus) error {
	return updatePlanStatus(ctx, ts.tx, id, status)
}

func (ts *txStore) ReplacePriorities(ctx context.Context, planID planning.PlanID, priorities []planning.CorePriority) error {
	return replacePriorities(ctx, ts.tx, planID, priorities)
}

func (ts *txStore) ListPriorities(ctx context.Context, planID planning.PlanID) ([]planning.CorePriority, error) {
	return listPriorities(ctx, ts.tx, planID)
}

func (ts *txStore) GetPriority(ctx context.Context, id planning.PriorityID) (*planning.CorePriority, error) {
	return getPriority(ctx, ts.tx, id)
}

func (ts *txStore) CreateStrategies(ctx context.Context, strategies []planning.DraftStrategy) error {
	return createStrategies(ctx, ts.tx, strategies)
}

func (ts *txStore) GetStrategy(ctx context.Context, id planning.StrategyID) (*planning.DraftStrategy, error) {
	return getStrategy(ctx, ts.tx, id)
}

func (ts *txStore) ListStrategies(ctx context.Context, priorityID planning.PriorityID) ([]planning.DraftStrategy, error) {
	return listStrategies(ctx, ts.tx, priorityID)
}

func (ts *txStore) ListStrategiesByPlan(ctx context.Context, planID planning.PlanID) ([]planning.DraftStrategy, error) {
	return listStrategiesByPlan(ctx, ts.tx, planID)
}

func (ts *txStore) UpdateStrategyStatus(ctx context.Context, id planning.StrategyID, status planning.StrategyStatus) error {
	return updateStrategyStatus(ctx, ts.tx, id, status)
}

func (ts *txStore) CreateComponent(ctx context.Context, c *planning.HierarchyComponent) error {
	return createComponent(ctx, ts.tx, c)
}

func (ts *txStore) GetComponent(ctx context.Context, id planning.ComponentID) (*planning.HierarchyComponent, error) {
	return getComponent(ctx, ts.tx, id)
}

func (ts *txStore) ListChildren(ctx context.Context, parentID *planning.ComponentID) ([]planning.HierarchyComponent, error) {
	return listChildren(ctx, ts.tx, parentID)
}

func (ts *txStore) FindPlanObjective(ctx context.Context, planID planning.PlanID) (*planning.HierarchyComponent, error) {
	return queryOneComponent(ctx, ts.tx, "source_plan_id = ?", planID)
}

func (ts *txStore) FindPriorityGoal(ctx context.Context, priorityID planning.PriorityID) (*planning.HierarchyComponent, error) {
	return queryOneComponent(ctx, ts.tx, "source_priority_id = ?", priorityID)
}

func (ts *txStore) MarkConverted(ctx context.Context, strategyID planning.StrategyID, componentID planning.ComponentID) error {
	return markConverted(ctx, ts.tx, strategyID, componentID)
}

func (ts *txStore) CreateKPI(ctx context.Context, k *planning.KPI) error {
	return createKPI(ctx, ts.tx, k)
}

func (ts *txStore) GetKPI(ctx context.Context, id planning.KPIID) (*planning.KPI, error) {
	return getKPI(ctx, ts.tx, id)
}

func (ts *txStore) ListKPIsByComponent(ctx context.Context, componentID planning.ComponentID) ([]planning.KPI, error) {
	return listKPIsByComponent(ctx, ts.tx, componentID)
}

func (ts *txStore) UpdateKPIValue(ctx context.Context, id planning.KPIID, current *decimal.Decimal, status planning.Health) error {
	return updateKPIValue(ctx, ts.tx, id, current, status)
}

func (ts *txStore) AppendHistory(ctx context.Context, e *planning.KPIHistoryEntry) error {
	return appendHistory(ctx, ts.tx, e)
}

func (ts *txStore) ListHistory(ctx context.Context, kpiID planning.KPIID) ([]planning.KPIHistoryEntry, error) {
	return listHistory(ctx, ts.tx, kpiID)
}

func (ts *txStore) CountKPIsByPlan(ctx context.Context, planID planning.PlanID) (int, error) {
	return countKPIsByPlan(ctx, ts.tx, planID)
}

// =============================================================================
// NULL / PARSE HELPERS
// =============================================================================

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" || ns.String == "[]" {
		return nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(ns.String), &ss); err != nil {
		return nil
	}
	return ss
}

func nullComponentID(id *planning.ComponentID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func nullPlanID(id *planning.PlanID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func nullPriorityID(id *planning.PriorityID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}
