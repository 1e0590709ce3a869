/*
store.go - Persistence ports for the scheduling engine

PURPOSE:
  Defines the interface between the engine and the database. The engine has
  no wire protocol of its own; the surrounding application supplies a store,
  a clock, and an acting-user identity for audit fields.

KEY INTERFACES:
  PatternStore:     Rotation pattern catalog
  TimeWindowStore:  Effective-dated crew shift times
  PeriodStore:      Schedule periods and their lifecycle status
  SlotStore:        Bulk slot reads and the atomic generated-slot replace
  ShiftRecordStore: Actual field shift records (read-only to this engine)
  TxStores:         Transactional view over all of the above

ATOMIC REPLACE:
  ReplaceGeneratedSlots ensures regeneration is all-or-nothing: delete of the
  old generated slots and insert of the new set happen in one transaction.
  Partial generation looks complete to callers and is worse than none.

GUARD RE-CHECKS:
  Period status is the guard condition for every slot mutation. Mutators must
  re-read the period inside WithTx immediately before writing, because time
  elapses between "read status" and "write" in request-handling code.

IMPLEMENTATIONS:
  - rota/store/memory.go: In-memory for tests
  - store/sqlite/sqlite.go: Production SQLite

SEE ALSO:
  - slots.go: SlotGenerator drives ReplaceGeneratedSlots
  - period.go: Lifecycle transitions run inside WithTx
*/
package rota

import (
	"context"
	"time"
)

// =============================================================================
// PATTERN / TIME WINDOW / PERIOD PORTS
// =============================================================================

type PatternStore interface {
	// SavePattern inserts or updates a pattern definition.
	SavePattern(ctx context.Context, p *PatternDefinition) error

	// GetPattern returns ErrPatternNotFound when the id is unknown.
	GetPattern(ctx context.Context, id PatternID) (*PatternDefinition, error)

	ListPatterns(ctx context.Context) ([]*PatternDefinition, error)
}

type TimeWindowStore interface {
	// SaveTimeWindow inserts or updates a window (supersede edits included).
	SaveTimeWindow(ctx context.Context, w CrewTimeWindow) error

	// TimeWindowsForCrew returns all windows for a crew, retired included,
	// ordered by ValidFrom.
	TimeWindowsForCrew(ctx context.Context, crewID CrewID) ([]CrewTimeWindow, error)
}

type PeriodStore interface {
	SavePeriod(ctx context.Context, p *SchedulePeriod) error

	// GetPeriod returns ErrPeriodNotFound when the id is unknown.
	GetPeriod(ctx context.Context, id PeriodID) (*SchedulePeriod, error)

	ListPeriods(ctx context.Context) ([]*SchedulePeriod, error)

	// PeriodsCovering returns periods whose range contains the date,
	// optionally restricted to one crew (nil = all crews).
	PeriodsCovering(ctx context.Context, date Date, crew *CrewID) ([]*SchedulePeriod, error)
}

// =============================================================================
// SLOT PORT
// =============================================================================

type SlotStore interface {
	// SlotsForPeriod returns every slot of a period ordered by date.
	SlotsForPeriod(ctx context.Context, periodID PeriodID) ([]Slot, error)

	// SlotsForPeriodDate returns the slots of a period on one date.
	SlotsForPeriodDate(ctx context.Context, periodID PeriodID, date Date) ([]Slot, error)

	// SaveSlot inserts or updates one slot by its composite identity
	// (period, date, electrician).
	SaveSlot(ctx context.Context, s Slot) error

	// ReplaceGeneratedSlots atomically deletes all origin=generated slots of
	// the period and inserts the new set. Manual slots are untouched.
	ReplaceGeneratedSlots(ctx context.Context, periodID PeriodID, slots []Slot) error
}

// =============================================================================
// ACTUAL SHIFT RECORDS - Read-only reconciliation input
// =============================================================================

// ActualShiftRecord is what happened in the field: a shift opened for a crew
// with the electricians present. ClosedAt nil means still open. This engine
// never writes these rows.
type ActualShiftRecord struct {
	ID           string
	CrewID       CrewID
	Electricians []ElectricianID
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

type ShiftRecordStore interface {
	// ShiftRecordsForDate returns all shift records opened on the date.
	ShiftRecordsForDate(ctx context.Context, date Date) ([]ActualShiftRecord, error)
}

// =============================================================================
// TRANSACTIONAL BUNDLE
// =============================================================================

// Stores bundles the scheduling ports a mutation may need atomically.
type Stores interface {
	PatternStore
	TimeWindowStore
	PeriodStore
	SlotStore
	ShiftRecordStore
}

// TxStores adds transaction support. WithTx executes fn against a
// transactional view; an error rolls everything back.
type TxStores interface {
	Stores

	WithTx(ctx context.Context, fn func(Stores) error) error
}
