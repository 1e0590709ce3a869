/*
shifttime.go - Effective-dated crew shift times

PURPOSE:
  Each crew has a history of time windows declaring when shifts start and how
  long they run. Windows are effective-dated and never physically deleted:
  editing a crew's hours closes the open-ended window and opens a new one.

INVARIANTS:
  - Windows for the same crew must not overlap
  - At most one window per crew may be open-ended (ValidTo = nil)
  - Resolution failures surface as NoActiveTimeWindowError, never a silent
    default, because predicted times feed payroll/overtime math

SEE ALSO:
  - slots.go: Stamps predicted start/duration during generation
  - store.go: TimeWindowStore port
*/
package rota

import (
	"context"
	"time"
)

// =============================================================================
// CREW TIME WINDOW
// =============================================================================

// CrewTimeWindow declares the shift start and duration for a crew over an
// inclusive validity window. ValidTo nil means open-ended.
type CrewTimeWindow struct {
	ID        string
	CrewID    CrewID
	Start     TimeOfDay
	Duration  Hours
	ValidFrom Date
	ValidTo   *Date
	Retired   bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// Covers returns true if the window is in force on the date.
func (w CrewTimeWindow) Covers(d Date) bool {
	if w.Retired {
		return false
	}
	if d.Before(w.ValidFrom) {
		return false
	}
	if w.ValidTo != nil && d.After(*w.ValidTo) {
		return false
	}
	return true
}

// Overlaps returns true if two windows share at least one day.
func (w CrewTimeWindow) Overlaps(o CrewTimeWindow) bool {
	// w starts after o ends
	if o.ValidTo != nil && w.ValidFrom.After(*o.ValidTo) {
		return false
	}
	// o starts after w ends
	if w.ValidTo != nil && o.ValidFrom.After(*w.ValidTo) {
		return false
	}
	return true
}

// =============================================================================
// SHIFT TIME RESOLVER
// =============================================================================

// ShiftTimeResolver selects the time window in force for a crew on a date.
type ShiftTimeResolver struct {
	Windows TimeWindowStore
}

func NewShiftTimeResolver(windows TimeWindowStore) *ShiftTimeResolver {
	return &ShiftTimeResolver{Windows: windows}
}

// Resolve returns the effective start time and duration for (crew, date).
// Fails with NoActiveTimeWindowError when no live window covers the date.
func (r *ShiftTimeResolver) Resolve(ctx context.Context, crewID CrewID, date Date) (TimeOfDay, Hours, error) {
	windows, err := r.Windows.TimeWindowsForCrew(ctx, crewID)
	if err != nil {
		return TimeOfDay{}, Hours{}, err
	}
	for _, w := range windows {
		if w.Covers(date) {
			return w.Start, w.Duration, nil
		}
	}
	return TimeOfDay{}, Hours{}, &NoActiveTimeWindowError{CrewID: crewID, Date: date}
}

// =============================================================================
// WINDOW EDITS - Supersede rather than delete
// =============================================================================

// PlanWindowInsert validates a new window against a crew's existing history
// and returns the updates required to keep the invariants: when the new
// window is open-ended and the current open-ended window precedes it, the
// current one is closed at ValidFrom-1. Any other overlap is rejected.
func PlanWindowInsert(existing []CrewTimeWindow, w CrewTimeWindow) (closed []CrewTimeWindow, err error) {
	for _, e := range existing {
		if e.Retired || e.ID == w.ID {
			continue
		}
		if !e.Overlaps(w) {
			continue
		}
		// The one tolerated overlap: superseding the current open-ended window.
		if e.ValidTo == nil && e.ValidFrom.Before(w.ValidFrom) {
			cut := w.ValidFrom.AddDays(-1)
			e.ValidTo = &cut
			closed = append(closed, e)
			continue
		}
		return nil, &WindowOverlapError{CrewID: w.CrewID, ExistingID: e.ID}
	}
	return closed, nil
}
