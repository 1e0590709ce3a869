/*
Package reconcile compares planned slots against actual field shifts.

PURPOSE:
  Field activity produces actual shift records (opened/closed in the field).
  This package reads those alongside the published slots of the rota engine
  and emits findings: absences (planned work, nobody showed), deviations
  (worked, but under a different crew) and overtimes (worked on a day off or
  with no slot at all).

IDEMPOTENCE:
  A finding is keyed by (electrician, date, kind) and never duplicated. The
  store enforces this with a natural-key uniqueness guarantee; the engine
  treats the resulting conflict as "already reconciled", not an error.
  Running any pass twice over the same window yields the same rows as once.

SEE ALSO:
  - engine.go: The tolerant and forced passes
  - rota/store.go: The planned-side and actual-side read ports
*/
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// FINDINGS
// =============================================================================

type Kind string

const (
	KindAbsence   Kind = "absence"
	KindDeviation Kind = "deviation"
	KindOvertime  Kind = "overtime"
)

// AbsenceStatus is the review state of an absence finding. Deviation and
// overtime findings carry no review workflow.
type AbsenceStatus string

const (
	AbsencePending   AbsenceStatus = "pending"
	AbsenceJustified AbsenceStatus = "justified"
	AbsenceRejected  AbsenceStatus = "rejected"
)

// Finding is one reconciliation outcome for one electrician on one date.
// Natural key: (Electrician, Date, Kind).
type Finding struct {
	ID          string
	Kind        Kind
	Electrician rota.ElectricianID
	Date        rota.Date

	// CrewID is the crew the finding is about: the expected crew for
	// absences and deviations, the crew actually worked for overtimes.
	CrewID rota.CrewID

	// ActualCrew is set on deviations: where the electrician actually
	// opened a shift.
	ActualCrew rota.CrewID

	// ExpectedStart is the slot's predicted start, when one existed.
	ExpectedStart *rota.TimeOfDay

	// OpenedAt is the actual shift open time, when one existed.
	OpenedAt *time.Time

	// Status applies to absences only.
	Status AbsenceStatus

	Note string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// =============================================================================
// RUNS - Audit trail of reconciliation passes
// =============================================================================

type Trigger string

const (
	TriggerNightly Trigger = "nightly"
	TriggerManual  Trigger = "manual"
	TriggerForced  Trigger = "forced"
)

// Run records one reconciliation pass for audit and UI display.
type Run struct {
	ID      string
	Trigger Trigger
	From    rota.Date
	To      rota.Date
	Crew    *rota.CrewID

	Absences   int
	Deviations int
	Overtimes  int
	Failures   int

	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedBy   string
}

// =============================================================================
// SUMMARY - Per-pass outcome report
// =============================================================================

// Summary reports what a pass did: per-kind created counts and per-date
// failures. One failing date never aborts the window.
type Summary struct {
	Dates           int
	Absences        int
	Deviations      int
	Overtimes       int
	AlreadyRecorded int
	Failures        []DateFailure
}

// DateFailure is one date (optionally one crew) that could not be processed.
type DateFailure struct {
	Date rota.Date
	Crew rota.CrewID
	Err  string
}

func (s *Summary) Created() int { return s.Absences + s.Deviations + s.Overtimes }

// =============================================================================
// STORE PORT
// =============================================================================

// ErrAlreadyReconciled is returned by SaveFinding when a finding with the
// same (electrician, date, kind) already exists. Expected and benign.
var ErrAlreadyReconciled = errors.New("already reconciled")

// ErrFindingNotFound is returned when a finding id is unknown.
var ErrFindingNotFound = errors.New("finding not found")

// Store persists findings and run records.
type Store interface {
	// SaveFinding inserts a finding. Returns ErrAlreadyReconciled when the
	// natural key already exists - idempotent upsert, not insert-always.
	SaveFinding(ctx context.Context, f Finding) error

	// UpdateFinding rewrites an existing finding (absence review).
	UpdateFinding(ctx context.Context, f Finding) error

	// GetFinding returns ErrFindingNotFound when the id is unknown.
	GetFinding(ctx context.Context, id string) (*Finding, error)

	// FindingsInRange returns findings with Date in [from, to].
	FindingsInRange(ctx context.Context, from, to rota.Date) ([]Finding, error)

	SaveRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context) ([]Run, error)
}
