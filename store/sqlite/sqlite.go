/*
Package sqlite provides a SQLite-backed implementation of the storage ports.

PURPOSE:
  Implements every persistence port of the scheduling engine (rota.TxStores)
  and of reconciliation (reconcile.Store) using SQLite. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  patterns:            Rotation pattern catalog (config stored as JSON)
  crew_time_windows:   Effective-dated shift start/duration per crew
  schedule_periods:    Period lifecycle state and version
  slots:               One row per (period, date, electrician)
  shift_records:       Actual field shifts (read-only to the engine)
  findings:            Absence/deviation/overtime rows
  reconciliation_runs: Audit trail of reconciliation passes

IDEMPOTENCE AT THE SCHEMA LEVEL:
  idx_findings_natural_key uniquely constrains (electrician, date, kind).
  SaveFinding translates the resulting constraint violation into
  reconcile.ErrAlreadyReconciled, which callers treat as benign. The
  uniqueness guarantee lives in the database, not in an application-level
  existence check, so concurrent passes stay safe.

TRANSACTIONS:
  WithTx hands callers a Store view bound to a sql.Tx. ReplaceGeneratedSlots
  opens its own transaction when called outside one, so the delete-then-insert
  of a regeneration is never partially visible.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/rota.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - rota/store.go: Port definitions
  - rota/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/rota-engine/factory"
	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
)

// queryer abstracts *sql.DB and *sql.Tx so the same query methods serve both
// the plain store and its transactional view.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements rota.TxStores and reconcile.Store using SQLite.
type Store struct {
	db   *sql.DB
	q    queryer
	inTx bool

	patterns *factory.PatternFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// from fragmenting across pool connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db, patterns: factory.NewPatternFactory()}
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
	-- Rotation pattern catalog
	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Effective-dated crew shift times; superseded, never deleted
	CREATE TABLE IF NOT EXISTS crew_time_windows (
		id TEXT PRIMARY KEY,
		crew_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		duration_hours TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		retired INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_windows_crew
		ON crew_time_windows(crew_id, valid_from);

	-- Schedule periods
	CREATE TABLE IF NOT EXISTS schedule_periods (
		id TEXT PRIMARY KEY,
		crew_id TEXT NOT NULL,
		pattern_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_periods_crew
		ON schedule_periods(crew_id);
	CREATE INDEX IF NOT EXISTS idx_periods_range
		ON schedule_periods(period_start, period_end);

	-- Slots: one row per (period, date, electrician)
	CREATE TABLE IF NOT EXISTS slots (
		period_id TEXT NOT NULL,
		date TEXT NOT NULL,
		electrician_id TEXT NOT NULL,
		state TEXT NOT NULL,
		origin TEXT NOT NULL,
		predicted_start TEXT,
		predicted_duration TEXT,
		day_note TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (period_id, date, electrician_id)
	);

	CREATE INDEX IF NOT EXISTS idx_slots_date
		ON slots(date);

	-- Actual field shifts (written by the surrounding app, read here)
	CREATE TABLE IF NOT EXISTS shift_records (
		id TEXT PRIMARY KEY,
		crew_id TEXT NOT NULL,
		electricians_json TEXT NOT NULL,
		opened_at TEXT NOT NULL,
		closed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_shift_records_opened
		ON shift_records(opened_at);

	-- Reconciliation findings
	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		electrician_id TEXT NOT NULL,
		date TEXT NOT NULL,
		crew_id TEXT NOT NULL,
		actual_crew TEXT NOT NULL DEFAULT '',
		expected_start TEXT,
		opened_at TEXT,
		status TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one finding per (electrician, date, kind). Reconciliation
	-- relies on this constraint for idempotence under concurrent passes.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_findings_natural_key
		ON findings(electrician_id, date, kind);
	CREATE INDEX IF NOT EXISTS idx_findings_date
		ON findings(date);

	-- Reconciliation run audit trail
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		trigger_kind TEXT NOT NULL,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		crew_id TEXT,
		absences INTEGER NOT NULL DEFAULT 0,
		deviations INTEGER NOT NULL DEFAULT 0,
		overtimes INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		created_by TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transactional view of the store.
func (s *Store) WithTx(ctx context.Context, fn func(rota.Stores) error) error {
	if s.inTx {
		return fn(s) // already transactional; nest flatly
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	view := &Store{db: s.db, q: tx, inTx: true, patterns: s.patterns}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// PATTERNS
// =============================================================================

func (s *Store) SavePattern(ctx context.Context, p *rota.PatternDefinition) error {
	cfg, err := json.Marshal(s.patterns.ToJSON(p))
	if err != nil {
		return err
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO patterns (id, name, config_json, active, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			active = excluded.active`,
		string(p.ID), p.Name, string(cfg), boolToInt(p.Active), p.CreatedBy, formatTime(createdAt))
	return err
}

func (s *Store) GetPattern(ctx context.Context, id rota.PatternID) (*rota.PatternDefinition, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT config_json, created_by, created_at FROM patterns WHERE id = ?`, string(id))

	var cfg, createdBy, createdAt string
	if err := row.Scan(&cfg, &createdBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rota.ErrPatternNotFound
		}
		return nil, err
	}
	p, err := s.patterns.ParsePattern(cfg)
	if err != nil {
		return nil, fmt.Errorf("stored pattern %s is invalid: %w", id, err)
	}
	p.CreatedBy = createdBy
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (s *Store) ListPatterns(ctx context.Context) ([]*rota.PatternDefinition, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT config_json, created_by, created_at FROM patterns ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*rota.PatternDefinition
	for rows.Next() {
		var cfg, createdBy, createdAt string
		if err := rows.Scan(&cfg, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		p, err := s.patterns.ParsePattern(cfg)
		if err != nil {
			continue // skip rows that fail config validation instead of failing the listing
		}
		p.CreatedBy = createdBy
		p.CreatedAt = parseTime(createdAt)
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// TIME WINDOWS
// =============================================================================

func (s *Store) SaveTimeWindow(ctx context.Context, w rota.CrewTimeWindow) error {
	var validTo any
	if w.ValidTo != nil {
		validTo = w.ValidTo.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO crew_time_windows
			(id, crew_id, start_time, duration_hours, valid_from, valid_to, retired,
			 created_by, created_at, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			duration_hours = excluded.duration_hours,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			retired = excluded.retired,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		w.ID, string(w.CrewID), w.Start.String(), w.Duration.String(),
		w.ValidFrom.String(), validTo, boolToInt(w.Retired),
		w.CreatedBy, formatTime(w.CreatedAt), w.UpdatedBy, formatTime(w.UpdatedAt))
	return err
}

func (s *Store) TimeWindowsForCrew(ctx context.Context, crewID rota.CrewID) ([]rota.CrewTimeWindow, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, crew_id, start_time, duration_hours, valid_from, valid_to, retired,
		       created_by, created_at, updated_by, updated_at
		FROM crew_time_windows
		WHERE crew_id = ?
		ORDER BY valid_from`, string(crewID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rota.CrewTimeWindow
	for rows.Next() {
		var w rota.CrewTimeWindow
		var crew, start, duration, validFrom, createdAt, updatedAt string
		var validTo sql.NullString
		var retired int
		if err := rows.Scan(&w.ID, &crew, &start, &duration, &validFrom, &validTo, &retired,
			&w.CreatedBy, &createdAt, &w.UpdatedBy, &updatedAt); err != nil {
			return nil, err
		}
		w.CrewID = rota.CrewID(crew)
		if w.Start, err = rota.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if w.Duration, err = rota.ParseHours(duration); err != nil {
			return nil, err
		}
		if w.ValidFrom, err = rota.ParseDate(validFrom); err != nil {
			return nil, err
		}
		if validTo.Valid {
			d, err := rota.ParseDate(validTo.String)
			if err != nil {
				return nil, err
			}
			w.ValidTo = &d
		}
		w.Retired = retired != 0
		w.CreatedAt = parseTime(createdAt)
		w.UpdatedAt = parseTime(updatedAt)
		result = append(result, w)
	}
	return result, rows.Err()
}

// =============================================================================
// PERIODS
// =============================================================================

func (s *Store) SavePeriod(ctx context.Context, p *rota.SchedulePeriod) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO schedule_periods
			(id, crew_id, pattern_id, period_start, period_end, status, version,
			 created_by, created_at, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			version = excluded.version,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		string(p.ID), string(p.CrewID), string(p.Pattern),
		p.Range.Start.String(), p.Range.End.String(), string(p.Status), p.Version,
		p.CreatedBy, formatTime(p.CreatedAt), p.UpdatedBy, formatTime(p.UpdatedAt))
	return err
}

const periodColumns = `id, crew_id, pattern_id, period_start, period_end, status, version,
	created_by, created_at, updated_by, updated_at`

func scanPeriod(scan func(...any) error) (*rota.SchedulePeriod, error) {
	var p rota.SchedulePeriod
	var id, crew, pattern, start, end, status, createdAt, updatedAt string
	if err := scan(&id, &crew, &pattern, &start, &end, &status, &p.Version,
		&p.CreatedBy, &createdAt, &p.UpdatedBy, &updatedAt); err != nil {
		return nil, err
	}
	p.ID = rota.PeriodID(id)
	p.CrewID = rota.CrewID(crew)
	p.Pattern = rota.PatternID(pattern)
	var err error
	if p.Range.Start, err = rota.ParseDate(start); err != nil {
		return nil, err
	}
	if p.Range.End, err = rota.ParseDate(end); err != nil {
		return nil, err
	}
	p.Status = rota.PeriodStatus(status)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (s *Store) GetPeriod(ctx context.Context, id rota.PeriodID) (*rota.SchedulePeriod, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM schedule_periods WHERE id = ?`, string(id))
	p, err := scanPeriod(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rota.ErrPeriodNotFound
	}
	return p, err
}

func (s *Store) ListPeriods(ctx context.Context) ([]*rota.SchedulePeriod, error) {
	return s.queryPeriods(ctx,
		`SELECT `+periodColumns+` FROM schedule_periods ORDER BY period_start, id`)
}

func (s *Store) PeriodsCovering(ctx context.Context, date rota.Date, crew *rota.CrewID) ([]*rota.SchedulePeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM schedule_periods
		WHERE period_start <= ? AND period_end >= ?`
	args := []any{date.String(), date.String()}
	if crew != nil {
		query += ` AND crew_id = ?`
		args = append(args, string(*crew))
	}
	query += ` ORDER BY id`
	return s.queryPeriods(ctx, query, args...)
}

func (s *Store) queryPeriods(ctx context.Context, query string, args ...any) ([]*rota.SchedulePeriod, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*rota.SchedulePeriod
	for rows.Next() {
		p, err := scanPeriod(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// SLOTS
// =============================================================================

const slotColumns = `period_id, date, electrician_id, state, origin,
	predicted_start, predicted_duration, day_note,
	created_by, created_at, updated_by, updated_at`

func scanSlot(scan func(...any) error) (rota.Slot, error) {
	var slot rota.Slot
	var periodID, date, electrician, state, origin, createdAt, updatedAt string
	var predStart, predDuration sql.NullString
	if err := scan(&periodID, &date, &electrician, &state, &origin,
		&predStart, &predDuration, &slot.DayNote,
		&slot.CreatedBy, &createdAt, &slot.UpdatedBy, &updatedAt); err != nil {
		return rota.Slot{}, err
	}
	slot.PeriodID = rota.PeriodID(periodID)
	var err error
	if slot.Date, err = rota.ParseDate(date); err != nil {
		return rota.Slot{}, err
	}
	slot.Electrician = rota.ElectricianID(electrician)
	slot.State = rota.SlotState(state)
	slot.Origin = rota.SlotOrigin(origin)
	if predStart.Valid {
		t, err := rota.ParseTimeOfDay(predStart.String)
		if err != nil {
			return rota.Slot{}, err
		}
		slot.PredictedStart = &t
	}
	if predDuration.Valid {
		h, err := rota.ParseHours(predDuration.String)
		if err != nil {
			return rota.Slot{}, err
		}
		slot.PredictedDuration = &h
	}
	slot.CreatedAt = parseTime(createdAt)
	slot.UpdatedAt = parseTime(updatedAt)
	return slot, nil
}

func (s *Store) SlotsForPeriod(ctx context.Context, periodID rota.PeriodID) ([]rota.Slot, error) {
	return s.querySlots(ctx, `SELECT `+slotColumns+` FROM slots
		WHERE period_id = ? ORDER BY date, electrician_id`, string(periodID))
}

func (s *Store) SlotsForPeriodDate(ctx context.Context, periodID rota.PeriodID, date rota.Date) ([]rota.Slot, error) {
	return s.querySlots(ctx, `SELECT `+slotColumns+` FROM slots
		WHERE period_id = ? AND date = ? ORDER BY electrician_id`,
		string(periodID), date.String())
}

func (s *Store) querySlots(ctx context.Context, query string, args ...any) ([]rota.Slot, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rota.Slot
	for rows.Next() {
		slot, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, slot)
	}
	return result, rows.Err()
}

func (s *Store) SaveSlot(ctx context.Context, slot rota.Slot) error {
	var predStart, predDuration any
	if slot.PredictedStart != nil {
		predStart = slot.PredictedStart.String()
	}
	if slot.PredictedDuration != nil {
		predDuration = slot.PredictedDuration.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO slots
			(period_id, date, electrician_id, state, origin,
			 predicted_start, predicted_duration, day_note,
			 created_by, created_at, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_id, date, electrician_id) DO UPDATE SET
			state = excluded.state,
			origin = excluded.origin,
			predicted_start = excluded.predicted_start,
			predicted_duration = excluded.predicted_duration,
			day_note = excluded.day_note,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		string(slot.PeriodID), slot.Date.String(), string(slot.Electrician),
		string(slot.State), string(slot.Origin), predStart, predDuration, slot.DayNote,
		slot.CreatedBy, formatTime(slot.CreatedAt), slot.UpdatedBy, formatTime(slot.UpdatedAt))
	return err
}

// ReplaceGeneratedSlots deletes every generated slot of the period and
// inserts the new set in one transaction. Manual and rebalanced slots
// survive untouched.
func (s *Store) ReplaceGeneratedSlots(ctx context.Context, periodID rota.PeriodID, slots []rota.Slot) error {
	replace := func(view rota.Stores) error {
		st := view.(*Store)
		if _, err := st.q.ExecContext(ctx,
			`DELETE FROM slots WHERE period_id = ? AND origin = ?`,
			string(periodID), string(rota.OriginGenerated)); err != nil {
			return err
		}
		for _, slot := range slots {
			if err := st.SaveSlot(ctx, slot); err != nil {
				return err
			}
		}
		return nil
	}
	if s.inTx {
		return replace(s)
	}
	return s.WithTx(ctx, replace)
}

// =============================================================================
// ACTUAL SHIFT RECORDS
// =============================================================================

// RecordShift stores an actual field shift. The scheduling engine never
// writes these; the surrounding app layer does.
func (s *Store) RecordShift(ctx context.Context, r rota.ActualShiftRecord) error {
	electricians, err := json.Marshal(r.Electricians)
	if err != nil {
		return err
	}
	var closedAt any
	if r.ClosedAt != nil {
		closedAt = formatTime(*r.ClosedAt)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO shift_records (id, crew_id, electricians_json, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET closed_at = excluded.closed_at`,
		r.ID, string(r.CrewID), string(electricians), formatTime(r.OpenedAt), closedAt)
	return err
}

func (s *Store) ShiftRecordsForDate(ctx context.Context, date rota.Date) ([]rota.ActualShiftRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, crew_id, electricians_json, opened_at, closed_at
		FROM shift_records
		WHERE DATE(opened_at) = ?
		ORDER BY opened_at`, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rota.ActualShiftRecord
	for rows.Next() {
		var r rota.ActualShiftRecord
		var crew, electricians, openedAt string
		var closedAt sql.NullString
		if err := rows.Scan(&r.ID, &crew, &electricians, &openedAt, &closedAt); err != nil {
			return nil, err
		}
		r.CrewID = rota.CrewID(crew)
		if err := json.Unmarshal([]byte(electricians), &r.Electricians); err != nil {
			return nil, err
		}
		r.OpenedAt = parseTime(openedAt)
		if closedAt.Valid {
			t := parseTime(closedAt.String)
			r.ClosedAt = &t
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// FINDINGS
// =============================================================================

func (s *Store) SaveFinding(ctx context.Context, f reconcile.Finding) error {
	var expectedStart, openedAt any
	if f.ExpectedStart != nil {
		expectedStart = f.ExpectedStart.String()
	}
	if f.OpenedAt != nil {
		openedAt = formatTime(*f.OpenedAt)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO findings
			(id, kind, electrician_id, date, crew_id, actual_crew,
			 expected_start, opened_at, status, note,
			 created_by, created_at, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, string(f.Kind), string(f.Electrician), f.Date.String(),
		string(f.CrewID), string(f.ActualCrew), expectedStart, openedAt,
		string(f.Status), f.Note,
		f.CreatedBy, formatTime(f.CreatedAt), f.UpdatedBy, formatTime(f.UpdatedAt))

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return reconcile.ErrAlreadyReconciled
	}
	return err
}

func (s *Store) UpdateFinding(ctx context.Context, f reconcile.Finding) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE findings SET status = ?, note = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		string(f.Status), f.Note, f.UpdatedBy, formatTime(f.UpdatedAt), f.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reconcile.ErrFindingNotFound
	}
	return nil
}

const findingColumns = `id, kind, electrician_id, date, crew_id, actual_crew,
	expected_start, opened_at, status, note,
	created_by, created_at, updated_by, updated_at`

func scanFinding(scan func(...any) error) (reconcile.Finding, error) {
	var f reconcile.Finding
	var kind, electrician, date, crew, actualCrew, status, createdAt, updatedAt string
	var expectedStart, openedAt sql.NullString
	if err := scan(&f.ID, &kind, &electrician, &date, &crew, &actualCrew,
		&expectedStart, &openedAt, &status, &f.Note,
		&f.CreatedBy, &createdAt, &f.UpdatedBy, &updatedAt); err != nil {
		return reconcile.Finding{}, err
	}
	f.Kind = reconcile.Kind(kind)
	f.Electrician = rota.ElectricianID(electrician)
	var err error
	if f.Date, err = rota.ParseDate(date); err != nil {
		return reconcile.Finding{}, err
	}
	f.CrewID = rota.CrewID(crew)
	f.ActualCrew = rota.CrewID(actualCrew)
	if expectedStart.Valid {
		t, err := rota.ParseTimeOfDay(expectedStart.String)
		if err != nil {
			return reconcile.Finding{}, err
		}
		f.ExpectedStart = &t
	}
	if openedAt.Valid {
		t := parseTime(openedAt.String)
		f.OpenedAt = &t
	}
	f.Status = reconcile.AbsenceStatus(status)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}

func (s *Store) GetFinding(ctx context.Context, id string) (*reconcile.Finding, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE id = ?`, id)
	f, err := scanFinding(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reconcile.ErrFindingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) FindingsInRange(ctx context.Context, from, to rota.Date) ([]reconcile.Finding, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+findingColumns+` FROM findings
		WHERE date >= ? AND date <= ?
		ORDER BY date, electrician_id, kind`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.Finding
	for rows.Next() {
		f, err := scanFinding(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, r reconcile.Run) error {
	var crew, completedAt any
	if r.Crew != nil {
		crew = string(*r.Crew)
	}
	if r.CompletedAt != nil {
		completedAt = formatTime(*r.CompletedAt)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO reconciliation_runs
			(id, trigger_kind, date_from, date_to, crew_id,
			 absences, deviations, overtimes, failures,
			 started_at, completed_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Trigger), r.From.String(), r.To.String(), crew,
		r.Absences, r.Deviations, r.Overtimes, r.Failures,
		formatTime(r.StartedAt), completedAt, r.CreatedBy)
	return err
}

func (s *Store) ListRuns(ctx context.Context) ([]reconcile.Run, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, trigger_kind, date_from, date_to, crew_id,
		       absences, deviations, overtimes, failures,
		       started_at, completed_at, created_by
		FROM reconciliation_runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.Run
	for rows.Next() {
		var r reconcile.Run
		var trigger, from, to, startedAt string
		var crew, completedAt sql.NullString
		if err := rows.Scan(&r.ID, &trigger, &from, &to, &crew,
			&r.Absences, &r.Deviations, &r.Overtimes, &r.Failures,
			&startedAt, &completedAt, &r.CreatedBy); err != nil {
			return nil, err
		}
		r.Trigger = reconcile.Trigger(trigger)
		if r.From, err = rota.ParseDate(from); err != nil {
			return nil, err
		}
		if r.To, err = rota.ParseDate(to); err != nil {
			return nil, err
		}
		if crew.Valid {
			c := rota.CrewID(crew.String)
			r.Crew = &c
		}
		r.StartedAt = parseTime(startedAt)
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			r.CompletedAt = &t
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
