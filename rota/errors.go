/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  The api layer maps these onto HTTP statuses; nothing here knows about HTTP.

ERROR CATEGORIES:
  1. Definitional errors - incomplete pattern / missing time window; generation
     must abort with no partial writes
  2. Allocation errors - anchors cannot satisfy the pattern's daily headcount
  3. Lifecycle errors - out-of-order period state changes
  4. Store errors - missing rows, overlapping windows

USAGE:
  Callers match with errors.Is / errors.As:

    var hm *rota.HeadcountMismatchError
    if errors.As(err, &hm) {
        log.Printf("first failing date: %s", hm.Date)
    }

SEE ALSO:
  - pattern.go: Returns IncompletePatternError
  - shifttime.go: Returns NoActiveTimeWindowError
  - period.go: Returns InvalidTransitionError
*/
package rota

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIncompletePattern is returned when a pattern has an undefined
	// position or week cell inside its declared range. Generation must fail,
	// never silently default a day status.
	ErrIncompletePattern = errors.New("incomplete pattern")

	// ErrNoActiveTimeWindow is returned when no crew time window covers a
	// date. Propagates as a generation error because predicted times feed
	// payroll/overtime math downstream.
	ErrNoActiveTimeWindow = errors.New("no active time window")

	// ErrHeadcountMismatch is returned when the supplied anchors cannot
	// satisfy the pattern's required headcount on at least one date.
	ErrHeadcountMismatch = errors.New("headcount mismatch")

	// ErrInvalidTransition is returned for an out-of-order period state change.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPeriodFrozen is returned when slots are mutated on a period whose
	// status no longer permits it.
	ErrPeriodFrozen = errors.New("period does not accept slot changes")

	// ErrNoDayOff is returned when a pattern has no off position matching an
	// electrician's declared next day off.
	ErrNoDayOff = errors.New("pattern has no matching day off")

	// ErrAnchorOutOfRange is returned when a declared next-day-off falls
	// outside the schedule period.
	ErrAnchorOutOfRange = errors.New("next day off outside period range")

	// ErrWindowOverlap is returned when a new crew time window overlaps an
	// existing one for the same crew.
	ErrWindowOverlap = errors.New("overlapping time window")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// Not-found errors for the persistence ports.
	ErrPatternNotFound = errors.New("pattern not found")
	ErrPeriodNotFound  = errors.New("period not found")
	ErrSlotNotFound    = errors.New("slot not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the exact offending date/position/crew
// =============================================================================

// IncompletePatternError identifies the undefined position or week cell.
type IncompletePatternError struct {
	PatternID PatternID
	Position  int // cycle-days mode: undefined position
	WeekIndex int // week-dependent mode
	Weekday   string
	Mode      PatternMode
}

func (e *IncompletePatternError) Error() string {
	if e.Mode == ModeWeekDependent {
		return fmt.Sprintf("pattern %s: no status defined for week %d %s", e.PatternID, e.WeekIndex, e.Weekday)
	}
	return fmt.Sprintf("pattern %s: no status defined for position %d", e.PatternID, e.Position)
}

func (e *IncompletePatternError) Unwrap() error { return ErrIncompletePattern }

// NoActiveTimeWindowError identifies the crew and date lacking coverage.
type NoActiveTimeWindowError struct {
	CrewID CrewID
	Date   Date
}

func (e *NoActiveTimeWindowError) Error() string {
	return fmt.Sprintf("crew %s: no time window covers %s", e.CrewID, e.Date)
}

func (e *NoActiveTimeWindowError) Unwrap() error { return ErrNoActiveTimeWindow }

// HeadcountMismatchError reports the first failing date with actual vs expected.
type HeadcountMismatchError struct {
	Date Date
	Got  int
	Want int
}

func (e *HeadcountMismatchError) Error() string {
	return fmt.Sprintf("headcount mismatch on %s: %d working, pattern requires %d", e.Date, e.Got, e.Want)
}

func (e *HeadcountMismatchError) Unwrap() error { return ErrHeadcountMismatch }

// InvalidTransitionError names the current and requested states.
type InvalidTransitionError struct {
	PeriodID PeriodID
	From     PeriodStatus
	To       PeriodStatus
	Reason   string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("period %s: cannot transition %s -> %s", e.PeriodID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// WindowOverlapError identifies the conflicting windows.
type WindowOverlapError struct {
	CrewID     CrewID
	ExistingID string
}

func (e *WindowOverlapError) Error() string {
	return fmt.Sprintf("crew %s: window overlaps existing window %s", e.CrewID, e.ExistingID)
}

func (e *WindowOverlapError) Unwrap() error { return ErrWindowOverlap }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input or
// configuration, as opposed to a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrIncompletePattern) ||
		errors.Is(err, ErrNoActiveTimeWindow) ||
		errors.Is(err, ErrHeadcountMismatch) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPeriodFrozen) ||
		errors.Is(err, ErrNoDayOff) ||
		errors.Is(err, ErrAnchorOutOfRange) ||
		errors.Is(err, ErrWindowOverlap) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPatternNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrSlotNotFound)
}
