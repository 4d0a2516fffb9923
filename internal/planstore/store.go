package planstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/publicmapping/planwatch/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a plan id does not exist.
var ErrNotFound = errors.New("planstore: plan not found")

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	owner TEXT NOT NULL,
	processing_state TEXT NOT NULL DEFAULT 'Ready',
	is_shared INTEGER NOT NULL DEFAULT 0,
	is_template INTEGER NOT NULL DEFAULT 0,
	edited TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plans_owner ON plans(owner);
CREATE INDEX IF NOT EXISTS idx_plans_state ON plans(processing_state);
`

// Store keeps plan records in a SQLite database. An empty path opens an
// in-memory database, used by tests and the development server default.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a plan store at path.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	} else {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("planstore: open: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// table-lock errors under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("planstore: create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreatePlan inserts a plan and returns its assigned id.
func (s *Store) CreatePlan(p model.Plan) (model.PlanID, error) {
	state := p.State
	if state == "" {
		state = model.StateReady
	}
	edited := p.Edited
	if edited.IsZero() {
		edited = time.Now().UTC()
	}

	res, err := s.db.Exec(
		`INSERT INTO plans (name, owner, processing_state, is_shared, is_template, edited) VALUES (?, ?, ?, 0, 0, ?)`,
		p.Name, p.Owner, string(state), edited,
	)
	if err != nil {
		return 0, fmt.Errorf("planstore: insert plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("planstore: last insert id: %w", err)
	}
	return model.PlanID(id), nil
}

// SetShared marks a plan as shared with other users.
func (s *Store) SetShared(id model.PlanID, shared bool) error {
	return s.execForPlan(`UPDATE plans SET is_shared = ? WHERE id = ?`, boolInt(shared), int64(id))
}

// SetTemplate marks a plan as a template.
func (s *Store) SetTemplate(id model.PlanID, template bool) error {
	return s.execForPlan(`UPDATE plans SET is_template = ? WHERE id = ?`, boolInt(template), int64(id))
}

// Plan fetches one plan by id.
func (s *Store) Plan(id model.PlanID) (model.Plan, error) {
	row := s.db.QueryRow(
		`SELECT id, name, owner, processing_state, edited FROM plans WHERE id = ?`, int64(id))

	var p model.Plan
	var state string
	if err := row.Scan(&p.ID, &p.Name, &p.Owner, &state, &p.Edited); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("planstore: scan plan: %w", err)
	}
	p.State = model.ProcessingState(state)
	return p, nil
}

// ListPlans returns the plan rows matching the filter. The owner argument is
// the current user: FilterMine selects their own plans, FilterShared selects
// other users' shared plans, FilterTemplate selects templates.
func (s *Store) ListPlans(filter model.FilterID, owner string) ([]model.Plan, error) {
	var where string
	var args []interface{}
	switch filter {
	case model.FilterMine:
		where = `owner = ? AND is_template = 0`
		args = append(args, owner)
	case model.FilterShared:
		where = `is_shared = 1 AND owner != ?`
		args = append(args, owner)
	case model.FilterTemplate:
		where = `is_template = 1`
	default:
		return nil, fmt.Errorf("planstore: unknown filter %q", filter)
	}

	rows, err := s.db.Query(
		`SELECT id, name, owner, processing_state, edited FROM plans WHERE `+where+` ORDER BY edited DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("planstore: list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		var state string
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner, &state, &p.Edited); err != nil {
			return nil, fmt.Errorf("planstore: scan plan row: %w", err)
		}
		p.State = model.ProcessingState(state)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Statuses returns the processing state of each requested plan. Unknown ids
// are reported as StateUnknown rather than omitted, so a polling client can
// distinguish "no answer" from "no such plan".
func (s *Store) Statuses(ids []model.PlanID) (model.StatusSnapshot, error) {
	snap := make(model.StatusSnapshot, len(ids))
	if len(ids) == 0 {
		return snap, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = int64(id)
		snap[id] = model.StateUnknown
	}

	rows, err := s.db.Query(
		`SELECT id, processing_state FROM plans WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("planstore: query statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("planstore: scan status row: %w", err)
		}
		snap[model.PlanID(id)] = model.ProcessingState(state)
	}
	return snap, rows.Err()
}

// SetState transitions one plan's processing state.
func (s *Store) SetState(id model.PlanID, state model.ProcessingState) error {
	return s.execForPlan(`UPDATE plans SET processing_state = ? WHERE id = ?`, string(state), int64(id))
}

// MarkAllNeedsReaggregation flags every plan as stale. The server does this
// after edits to the underlying geographic units invalidate all computed
// district statistics.
func (s *Store) MarkAllNeedsReaggregation() (int64, error) {
	res, err := s.db.Exec(
		`UPDATE plans SET processing_state = ?`, string(model.StateNeedsReagg))
	if err != nil {
		return 0, fmt.Errorf("planstore: mark all: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("planstore: rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) execForPlan(query string, args ...interface{}) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("planstore: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("planstore: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
