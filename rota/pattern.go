/*
pattern.go - Rotation pattern definitions and day-status resolution

PURPOSE:
  A pattern is a reusable work/off rotation. Two modes exist:

  CycleDays:      A fixed-length day cycle. Position 0..N-1 maps to work/off.
                  "4 on / 2 off" is cycle length 6: [W,W,W,W,O,O].
  WeekDependent:  A week-indexed weekday mask. (week-in-cycle, weekday) maps
                  to work/off. The "Spanish schedule" alternates weekend duty
                  across a multi-week cycle.

  Patterns are plain data evaluated by one pure function per mode, not a
  strategy class hierarchy. ResolveDayStatus is deterministic for a given
  (pattern, date, anchor), which is what makes regeneration and testing
  tractable.

COMPLETENESS INVARIANT:
  Every position / week cell in the declared range must be defined before the
  pattern can feed slot generation. An undefined cell fails with
  IncompletePatternError rather than silently defaulting.

SEE ALSO:
  - allocation.go: Chooses per-electrician anchors against a pattern
  - slots.go: Consumes ResolveDayStatus during generation
*/
package rota

import (
	"fmt"
	"time"
)

// =============================================================================
// PATTERN DEFINITION
// =============================================================================

type PatternMode string

const (
	ModeCycleDays     PatternMode = "cycle_days"
	ModeWeekDependent PatternMode = "week_dependent"
)

// WeekCell addresses one weekday within one week of a week-dependent cycle.
type WeekCell struct {
	Week    int // 0..WeeksInCycle-1
	Weekday time.Weekday
}

// PatternDefinition is a reusable rotation pattern.
type PatternDefinition struct {
	ID     PatternID
	Name   string
	Mode   PatternMode
	Active bool

	// CycleDays mode
	CycleLength int
	CycleStatus map[int]DayStatus

	// WeekDependent mode
	WeeksInCycle int
	WeekStatus   map[WeekCell]DayStatus

	// RequiredHeadcount is how many electricians must be working on every
	// day the pattern is in force.
	RequiredHeadcount int

	CreatedBy string
	CreatedAt time.Time
}

// Validate checks structural soundness and the completeness invariant: every
// position/cell in the declared range must carry a status.
func (p *PatternDefinition) Validate() error {
	if p.RequiredHeadcount < 1 {
		return fmt.Errorf("pattern %s: required headcount must be >= 1", p.ID)
	}

	switch p.Mode {
	case ModeCycleDays:
		if p.CycleLength < 1 {
			return fmt.Errorf("pattern %s: cycle length must be >= 1", p.ID)
		}
		for pos := 0; pos < p.CycleLength; pos++ {
			if _, ok := p.CycleStatus[pos]; !ok {
				return &IncompletePatternError{PatternID: p.ID, Mode: p.Mode, Position: pos}
			}
		}
	case ModeWeekDependent:
		if p.WeeksInCycle < 1 {
			return fmt.Errorf("pattern %s: weeks in cycle must be >= 1", p.ID)
		}
		for week := 0; week < p.WeeksInCycle; week++ {
			for wd := time.Sunday; wd <= time.Saturday; wd++ {
				if _, ok := p.WeekStatus[WeekCell{Week: week, Weekday: wd}]; !ok {
					return &IncompletePatternError{
						PatternID: p.ID, Mode: p.Mode, WeekIndex: week, Weekday: wd.String(),
					}
				}
			}
		}
	default:
		return fmt.Errorf("pattern %s: unknown mode %q", p.ID, p.Mode)
	}

	return nil
}

// HasDayOff reports whether the pattern contains at least one off slot.
// Allocation anchoring is impossible without one.
func (p *PatternDefinition) HasDayOff() bool {
	switch p.Mode {
	case ModeCycleDays:
		for _, st := range p.CycleStatus {
			if st == StatusOff {
				return true
			}
		}
	case ModeWeekDependent:
		for _, st := range p.WeekStatus {
			if st == StatusOff {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// DAY STATUS RESOLUTION - The pure function at the heart of the engine
// =============================================================================

// ResolveDayStatus evaluates the pattern for a date relative to an anchor.
// Pure and deterministic: identical inputs always produce identical results.
//
// CycleDays:     position = (date - anchor) mod cycleLength
// WeekDependent: weekIndex = floor((date - anchor) / 7) mod weeksInCycle,
//                cell = (weekIndex, weekday(date))
//
// Floored arithmetic keeps positions stable for dates before the anchor,
// which happens whenever an electrician's phase anchor sits mid-period.
func (p *PatternDefinition) ResolveDayStatus(date, anchor Date) (DayStatus, error) {
	switch p.Mode {
	case ModeCycleDays:
		if p.CycleLength < 1 {
			return "", fmt.Errorf("pattern %s: cycle length must be >= 1", p.ID)
		}
		pos := floorMod(DaysBetween(anchor, date), p.CycleLength)
		status, ok := p.CycleStatus[pos]
		if !ok {
			return "", &IncompletePatternError{PatternID: p.ID, Mode: p.Mode, Position: pos}
		}
		return status, nil

	case ModeWeekDependent:
		if p.WeeksInCycle < 1 {
			return "", fmt.Errorf("pattern %s: weeks in cycle must be >= 1", p.ID)
		}
		week := floorMod(WeeksBetween(anchor, date), p.WeeksInCycle)
		cell := WeekCell{Week: week, Weekday: date.Weekday()}
		status, ok := p.WeekStatus[cell]
		if !ok {
			return "", &IncompletePatternError{
				PatternID: p.ID, Mode: p.Mode, WeekIndex: week, Weekday: date.Weekday().String(),
			}
		}
		return status, nil

	default:
		return "", fmt.Errorf("pattern %s: unknown mode %q", p.ID, p.Mode)
	}
}

// =============================================================================
// HELPERS FOR COMMON PATTERN SHAPES
// =============================================================================

// NewCyclePattern builds a cycle-days pattern from an ordered status slice.
func NewCyclePattern(id PatternID, name string, statuses []DayStatus, headcount int) *PatternDefinition {
	cycle := make(map[int]DayStatus, len(statuses))
	for i, st := range statuses {
		cycle[i] = st
	}
	return &PatternDefinition{
		ID:                id,
		Name:              name,
		Mode:              ModeCycleDays,
		Active:            true,
		CycleLength:       len(statuses),
		CycleStatus:       cycle,
		RequiredHeadcount: headcount,
	}
}

// NewWeekPattern builds a week-dependent pattern from per-week weekday masks.
// weeks[i][weekday] = status; every weekday of every week must be present.
func NewWeekPattern(id PatternID, name string, weeks []map[time.Weekday]DayStatus, headcount int) *PatternDefinition {
	cells := make(map[WeekCell]DayStatus)
	for i, week := range weeks {
		for wd, st := range week {
			cells[WeekCell{Week: i, Weekday: wd}] = st
		}
	}
	return &PatternDefinition{
		ID:                id,
		Name:              name,
		Mode:              ModeWeekDependent,
		Active:            true,
		WeeksInCycle:      len(weeks),
		WeekStatus:        cells,
		RequiredHeadcount: headcount,
	}
}
