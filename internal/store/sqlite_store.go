package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed data store.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines the plan table with temporal versioning.
const schema = `
-- Plans (Temporal versioning pattern)
-- Composite primary key (id, version) enables full version history
CREATE TABLE IF NOT EXISTS plans (
    id TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    title TEXT NOT NULL,
    description TEXT,
    nodes TEXT NOT NULL,
    connections TEXT NOT NULL,
    node_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    is_current INTEGER DEFAULT 1,
    change_reason TEXT,
    PRIMARY KEY (id, version)
);

-- Partial index for current versions (fast queries)
CREATE INDEX IF NOT EXISTS idx_plans_current ON plans(id) WHERE is_current = 1;
-- Index for history queries
CREATE INDEX IF NOT EXISTS idx_plans_history ON plans(id, valid_from);
`

const planColumns = `id, version, title, description, nodes, connections,
	created_at, updated_at, valid_from, valid_to, is_current, change_reason`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Plan CRUD
// =============================================================================

// CreatePlan creates a new plan with version 1.
func (s *SQLiteStore) CreatePlan(plan *PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampCreate(plan)
	return insertPlan(s.db, plan)
}

// UpdatePlan creates a new version of an existing plan, or version 1 when
// the plan does not exist yet.
func (s *SQLiteStore) UpdatePlan(plan *PlanRecord, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Get current version info
	var currentVersion int
	var createdAt int64
	err = tx.QueryRow(`
		SELECT version, created_at FROM plans
		WHERE id = ? AND is_current = 1
	`, plan.ID).Scan(&currentVersion, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		stampCreate(plan)
		if err := insertPlan(tx, plan); err != nil {
			return err
		}
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	if plan.UpdatedAt == 0 {
		plan.UpdatedAt = nowMillis()
	}

	// Close old current version
	if _, err := tx.Exec(`
		UPDATE plans SET valid_to = ?, is_current = 0
		WHERE id = ? AND is_current = 1
	`, plan.UpdatedAt, plan.ID); err != nil {
		return err
	}

	plan.Version = currentVersion + 1
	plan.CreatedAt = createdAt // Preserve original creation time
	plan.ValidFrom = plan.UpdatedAt
	plan.ValidTo = nil
	plan.IsCurrent = true
	plan.ChangeReason = reason

	if err := insertPlan(tx, plan); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertPlan is a convenience method that creates or updates.
func (s *SQLiteStore) UpsertPlan(plan *PlanRecord) error {
	s.mu.RLock()
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM plans WHERE id = ? AND is_current = 1 LIMIT 1`, plan.ID).Scan(&exists)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return s.CreatePlan(plan)
	}
	if err != nil {
		return err
	}
	return s.UpdatePlan(plan, "upsert")
}

// GetPlan retrieves the current version of a plan by ID.
func (s *SQLiteStore) GetPlan(id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ? AND is_current = 1`, id)
	return scanOne(row)
}

// GetPlanVersion retrieves a specific version of a plan.
func (s *SQLiteStore) GetPlanVersion(id string, version int) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ? AND version = ?`, id, version)
	return scanOne(row)
}

// ListPlanVersions returns all versions of a plan, newest first.
func (s *SQLiteStore) ListPlanVersions(id string) ([]*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+planColumns+` FROM plans WHERE id = ? ORDER BY version DESC`, id)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// GetPlanAtTime retrieves the version of a plan that was current at a given timestamp.
func (s *SQLiteStore) GetPlanAtTime(id string, timestamp int64) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT `+planColumns+` FROM plans
		WHERE id = ? AND valid_from <= ? AND (valid_to IS NULL OR valid_to > ?)
		ORDER BY version DESC LIMIT 1
	`, id, timestamp, timestamp)
	return scanOne(row)
}

// RestorePlanVersion restores a previous version by creating a new version with the old content.
func (s *SQLiteStore) RestorePlanVersion(id string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanOne(tx.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ? AND version = ?`, id, version))
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("plan %s has no version %d", id, version)
	}

	var maxVersion int
	if err := tx.QueryRow(`SELECT MAX(version) FROM plans WHERE id = ?`, id).Scan(&maxVersion); err != nil {
		return err
	}

	now := nowMillis()
	if _, err := tx.Exec(`
		UPDATE plans SET valid_to = ?, is_current = 0
		WHERE id = ? AND is_current = 1
	`, now, id); err != nil {
		return err
	}

	old.Version = maxVersion + 1
	old.UpdatedAt = now
	old.ValidFrom = now
	old.ValidTo = nil
	old.IsCurrent = true
	old.ChangeReason = "restore"
	if err := insertPlan(tx, old); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePlan removes all versions of a plan.
func (s *SQLiteStore) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM plans WHERE id = ?", id)
	return err
}

// ListPlans returns current versions of all plans, most recently updated first.
func (s *SQLiteStore) ListPlans() ([]*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + planColumns + ` FROM plans WHERE is_current = 1 ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// CountPlans returns the total number of plans (current versions only).
func (s *SQLiteStore) CountPlans() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM plans WHERE is_current = 1").Scan(&count)
	return count, err
}

// =============================================================================
// Helpers
// =============================================================================

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPlan(db execer, p *PlanRecord) error {
	nodesJSON, err := json.Marshal(p.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}
	connsJSON, err := json.Marshal(p.Connections)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO plans (id, version, title, description, nodes, connections, node_count,
			created_at, updated_at, valid_from, valid_to, is_current, change_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Version, p.Title, p.Description, string(nodesJSON), string(connsJSON), len(p.Nodes),
		p.CreatedAt, p.UpdatedAt, p.ValidFrom, p.ValidTo, boolToInt(p.IsCurrent), p.ChangeReason)
	if err != nil {
		return fmt.Errorf("failed to insert plan %s v%d: %w", p.ID, p.Version, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*PlanRecord, error) {
	var p PlanRecord
	var description, changeReason sql.NullString
	var nodesJSON, connsJSON string
	var validTo sql.NullInt64
	var isCurrent int

	if err := row.Scan(
		&p.ID, &p.Version, &p.Title, &description, &nodesJSON, &connsJSON,
		&p.CreatedAt, &p.UpdatedAt, &p.ValidFrom, &validTo, &isCurrent, &changeReason,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(nodesJSON), &p.Nodes); err != nil {
		return nil, fmt.Errorf("failed to parse nodes of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(connsJSON), &p.Connections); err != nil {
		return nil, fmt.Errorf("failed to parse connections of plan %s: %w", p.ID, err)
	}

	p.Description = description.String
	p.ChangeReason = changeReason.String
	p.IsCurrent = isCurrent != 0
	if validTo.Valid {
		p.ValidTo = &validTo.Int64
	}
	return &p, nil
}

func scanOne(row *sql.Row) (*PlanRecord, error) {
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanAll(rows *sql.Rows) ([]*PlanRecord, error) {
	defer rows.Close()

	var plans []*PlanRecord
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
