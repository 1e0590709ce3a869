/*
slots.go - Slot model and generation

PURPOSE:
  A slot is the planned state of one electrician on one date within a
  schedule period. The generator materializes one slot per allocated
  electrician per date, resolving each electrician's day status through
  their phase anchor and stamping predicted start/duration for work days.

WRITE SEMANTICS:
  Regeneration replaces all generated-origin slots of the period in one
  transaction but preserves manual-origin slots untouched: regeneration is
  not allowed to silently discard hand overrides. Generation is atomic -
  either the full new set is written or the old set survives intact.

  Definitional failures (incomplete pattern, missing time window) abort
  before any write. All slots are computed in memory first; the store is
  only touched once the whole set resolved cleanly.

SEE ALSO:
  - allocation.go: The phase anchors generation evaluates
  - shifttime.go: Predicted start/duration source
  - period.go: Status guard shared with lifecycle transitions
*/
package rota

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SLOT
// =============================================================================

// Slot is identified by (period, date, electrician). Predicted start and
// duration are populated only for work slots, at generation time.
type Slot struct {
	PeriodID    PeriodID
	Date        Date
	Electrician ElectricianID

	State  SlotState
	Origin SlotOrigin

	PredictedStart    *TimeOfDay
	PredictedDuration *Hours

	DayNote string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// =============================================================================
// SLOT GENERATOR
// =============================================================================

// SlotGenerator materializes slots for a period from a validated allocation.
type SlotGenerator struct {
	Store TxStores
	Clock Clock
}

func NewSlotGenerator(store TxStores, clock Clock) *SlotGenerator {
	return &SlotGenerator{Store: store, Clock: clock}
}

// Generate builds and persists the slot set for the period.
//
// Precondition (re-checked inside the transaction): period status is draft
// or under_review. Returns the generated slots on success.
func (g *SlotGenerator) Generate(ctx context.Context, periodID PeriodID, alloc *Allocation, actor string) ([]Slot, error) {
	var generated []Slot

	err := g.Store.WithTx(ctx, func(s Stores) error {
		period, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if !period.AcceptsSlotChanges() {
			return fmt.Errorf("period %s is %s: %w", period.ID, period.Status, ErrPeriodFrozen)
		}
		if err := alloc.Pattern.Validate(); err != nil {
			return err
		}

		// Manual overrides survive regeneration; skip their keys entirely so
		// a generated slot never shadows a hand edit.
		existing, err := s.SlotsForPeriod(ctx, period.ID)
		if err != nil {
			return err
		}
		manual := make(map[string]bool)
		for _, slot := range existing {
			if slot.Origin != OriginGenerated {
				manual[slotKey(slot.Date, slot.Electrician)] = true
			}
		}

		resolver := NewShiftTimeResolver(s)
		now := g.Clock.Now()

		// Compute the entire set before writing anything. A definitional
		// error on day 12 must not leave days 1-11 behind.
		generated = generated[:0]
		for _, day := range period.Range.Days() {
			for _, id := range alloc.Electricians() {
				if manual[slotKey(day, id)] {
					continue
				}
				status, err := alloc.StatusOn(id, day)
				if err != nil {
					return err
				}
				slot := Slot{
					PeriodID:    period.ID,
					Date:        day,
					Electrician: id,
					Origin:      OriginGenerated,
					CreatedBy:   actor,
					CreatedAt:   now,
					UpdatedBy:   actor,
					UpdatedAt:   now,
				}
				if status == StatusWork {
					start, duration, err := resolver.Resolve(ctx, period.CrewID, day)
					if err != nil {
						return err
					}
					slot.State = SlotWork
					slot.PredictedStart = &start
					slot.PredictedDuration = &duration
				} else {
					slot.State = SlotOff
				}
				generated = append(generated, slot)
			}
		}

		if err := s.ReplaceGeneratedSlots(ctx, period.ID, generated); err != nil {
			return err
		}

		period.Version++
		period.UpdatedBy = actor
		period.UpdatedAt = now
		return s.SavePeriod(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}

func slotKey(d Date, id ElectricianID) string {
	return d.String() + "|" + string(id)
}

// =============================================================================
// MANUAL EDITS - Pre-publish hand overrides
// =============================================================================

// SlotEdit is a hand override of one slot before publishing.
type SlotEdit struct {
	Date        Date
	Electrician ElectricianID
	State       SlotState
	DayNote     string
}

// EditSlot applies a manual override. Only allowed while the period still
// accepts slot changes; the edited slot becomes origin=manual so later
// regeneration leaves it alone. Predicted times are dropped unless the slot
// stays a work slot, in which case they are re-resolved.
func (g *SlotGenerator) EditSlot(ctx context.Context, periodID PeriodID, edit SlotEdit, actor string) (*Slot, error) {
	var result *Slot

	err := g.Store.WithTx(ctx, func(s Stores) error {
		period, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if !period.AcceptsSlotChanges() {
			return fmt.Errorf("period %s is %s: %w", period.ID, period.Status, ErrPeriodFrozen)
		}
		if !period.Range.Contains(edit.Date) {
			return fmt.Errorf("date %s outside period range %s", edit.Date, period.Range)
		}

		now := g.Clock.Now()
		slot := Slot{
			PeriodID:    period.ID,
			Date:        edit.Date,
			Electrician: edit.Electrician,
			State:       edit.State,
			Origin:      OriginManual,
			DayNote:     edit.DayNote,
			CreatedBy:   actor,
			CreatedAt:   now,
			UpdatedBy:   actor,
			UpdatedAt:   now,
		}
		if edit.State == SlotWork {
			resolver := NewShiftTimeResolver(s)
			start, duration, err := resolver.Resolve(ctx, period.CrewID, edit.Date)
			if err != nil {
				return err
			}
			slot.PredictedStart = &start
			slot.PredictedDuration = &duration
		}

		if err := s.SaveSlot(ctx, slot); err != nil {
			return err
		}

		period.Version++
		period.UpdatedBy = actor
		period.UpdatedAt = now
		if err := s.SavePeriod(ctx, period); err != nil {
			return err
		}
		result = &slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// REBALANCE - The one audited way to touch a published period
// =============================================================================

// Rebalance swaps a work day between two electricians of a published period:
// From's work slot becomes off, To's slot becomes work with freshly resolved
// predicted times. Both slots become origin=rebalanced and carry the acting
// user. Headcount for the date is preserved by construction.
func (g *SlotGenerator) Rebalance(ctx context.Context, periodID PeriodID, date Date, from, to ElectricianID, note string, actor string) error {
	return g.Store.WithTx(ctx, func(s Stores) error {
		period, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Status != StatusPublished {
			return &InvalidTransitionError{
				PeriodID: period.ID, From: period.Status, To: period.Status,
				Reason: "rebalance applies only to published periods",
			}
		}

		slots, err := s.SlotsForPeriodDate(ctx, period.ID, date)
		if err != nil {
			return err
		}
		var fromSlot, toSlot *Slot
		for i := range slots {
			switch slots[i].Electrician {
			case from:
				fromSlot = &slots[i]
			case to:
				toSlot = &slots[i]
			}
		}
		if fromSlot == nil || toSlot == nil {
			return fmt.Errorf("rebalance %s on %s: %w", period.ID, date, ErrSlotNotFound)
		}
		if fromSlot.State != SlotWork {
			return fmt.Errorf("electrician %s is not working on %s", from, date)
		}
		if toSlot.State == SlotWork {
			return fmt.Errorf("electrician %s is already working on %s", to, date)
		}

		resolver := NewShiftTimeResolver(s)
		start, duration, err := resolver.Resolve(ctx, period.CrewID, date)
		if err != nil {
			return err
		}

		now := g.Clock.Now()

		fromSlot.State = SlotOff
		fromSlot.Origin = OriginRebalanced
		fromSlot.PredictedStart = nil
		fromSlot.PredictedDuration = nil
		fromSlot.DayNote = note
		fromSlot.UpdatedBy = actor
		fromSlot.UpdatedAt = now

		toSlot.State = SlotWork
		toSlot.Origin = OriginRebalanced
		toSlot.PredictedStart = &start
		toSlot.PredictedDuration = &duration
		toSlot.DayNote = note
		toSlot.UpdatedBy = actor
		toSlot.UpdatedAt = now

		if err := s.SaveSlot(ctx, *fromSlot); err != nil {
			return err
		}
		if err := s.SaveSlot(ctx, *toSlot); err != nil {
			return err
		}

		period.Version++
		period.UpdatedBy = actor
		period.UpdatedAt = now
		return s.SavePeriod(ctx, period)
	})
}
