/*
allocation.go - Phase-offset allocation of electricians into a pattern

PURPOSE:
  An allocation assigns each electrician a phase anchor into the pattern so
  that the crew's chosen size yields the intended daily headcount. The
  operator declares each electrician's "next day off" inside the period; the
  planner derives the anchor that makes the pattern resolve OFF on that day.

VALIDATION:
  The headcount check runs over EVERY day of the period, not just the first
  cycle. Week-dependent patterns can desynchronize across week boundaries
  when offsets are chosen carelessly, so checking one cycle is not enough.
  For cycle patterns with evenly spaced anchors the check passes by
  construction; it exists to catch operator error, e.g. two electricians
  given the same anchor when the pattern needs distinct phases.

SEE ALSO:
  - pattern.go: ResolveDayStatus, the function anchors are solved against
  - slots.go: Consumes the allocation during generation
*/
package rota

import (
	"fmt"
	"sort"
)

// =============================================================================
// ALLOCATION INPUT / OUTPUT
// =============================================================================

// CrewMember is one electrician with their declared next day off.
type CrewMember struct {
	Electrician ElectricianID
	NextDayOff  Date
}

// Allocation maps each electrician to the phase anchor that realizes their
// declared day off under the pattern.
type Allocation struct {
	Pattern *PatternDefinition
	Anchors map[ElectricianID]Date
}

// Electricians returns the allocated electricians in stable order.
func (a *Allocation) Electricians() []ElectricianID {
	ids := make([]ElectricianID, 0, len(a.Anchors))
	for id := range a.Anchors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StatusOn resolves the electrician's day status for a date.
func (a *Allocation) StatusOn(id ElectricianID, date Date) (DayStatus, error) {
	anchor, ok := a.Anchors[id]
	if !ok {
		return "", fmt.Errorf("electrician %s not in allocation", id)
	}
	return a.Pattern.ResolveDayStatus(date, anchor)
}

// =============================================================================
// ALLOCATION PLANNER
// =============================================================================

// PlanAllocation derives anchors from declared next-day-off dates and
// verifies the headcount invariant across the whole range.
//
// Fails with:
//   - ErrAnchorOutOfRange when a declared day off is outside the period
//   - ErrNoDayOff when the pattern can never be off on the declared day
//   - HeadcountMismatchError on the first date whose working count differs
//     from the pattern's required headcount
func PlanAllocation(pattern *PatternDefinition, rng DateRange, members []CrewMember) (*Allocation, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if !pattern.HasDayOff() {
		return nil, fmt.Errorf("pattern %s: %w", pattern.ID, ErrNoDayOff)
	}

	alloc := &Allocation{
		Pattern: pattern,
		Anchors: make(map[ElectricianID]Date, len(members)),
	}

	for _, m := range members {
		if !rng.Contains(m.NextDayOff) {
			return nil, fmt.Errorf("electrician %s: day off %s: %w", m.Electrician, m.NextDayOff, ErrAnchorOutOfRange)
		}
		anchor, err := solveAnchor(pattern, m)
		if err != nil {
			return nil, err
		}
		alloc.Anchors[m.Electrician] = anchor
	}

	if err := verifyHeadcount(alloc, rng); err != nil {
		return nil, err
	}

	return alloc, nil
}

// solveAnchor finds the smallest phase shift whose pattern position is OFF on
// the member's declared day. Smallest-shift keeps the derivation
// deterministic for a given (pattern, day off) input.
func solveAnchor(pattern *PatternDefinition, m CrewMember) (Date, error) {
	switch pattern.Mode {
	case ModeCycleDays:
		// anchor = dayOff - o puts dayOff at cycle position o.
		for o := 0; o < pattern.CycleLength; o++ {
			if pattern.CycleStatus[o] == StatusOff {
				return m.NextDayOff.AddDays(-o), nil
			}
		}

	case ModeWeekDependent:
		// Shifting the anchor by whole weeks moves the week index while the
		// weekday stays fixed: anchor = dayOff - 7w puts dayOff in week w.
		wd := m.NextDayOff.Weekday()
		for w := 0; w < pattern.WeeksInCycle; w++ {
			if pattern.WeekStatus[WeekCell{Week: w, Weekday: wd}] == StatusOff {
				return m.NextDayOff.AddDays(-7 * w), nil
			}
		}
	}

	return Date{}, fmt.Errorf("electrician %s: day off %s (%s): %w",
		m.Electrician, m.NextDayOff, m.NextDayOff.Weekday(), ErrNoDayOff)
}

// verifyHeadcount checks every date of the range against the pattern's
// required headcount and reports the first failing date.
func verifyHeadcount(alloc *Allocation, rng DateRange) error {
	want := alloc.Pattern.RequiredHeadcount
	ids := alloc.Electricians()

	for _, day := range rng.Days() {
		working := 0
		for _, id := range ids {
			status, err := alloc.StatusOn(id, day)
			if err != nil {
				return err
			}
			if status == StatusWork {
				working++
			}
		}
		if working != want {
			return &HeadcountMismatchError{Date: day, Got: working, Want: want}
		}
	}
	return nil
}
