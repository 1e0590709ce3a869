/*
period.go - Schedule period lifecycle (state machine)

PURPOSE:
  A SchedulePeriod binds one crew to one pattern over a concrete date range
  and owns that range's slots. Its lifecycle gates every slot mutation:

    draft -> under_review -> published -> archived
              |_____________^
              (send back for edits)

  - Slots may be (re)generated and hand-edited only in draft/under_review
  - Publishing freezes slots; only the audited rebalance operation may touch
    a published period
  - Archiving is terminal and only allowed after the period has ended

GUARDS ARE RE-CHECKED AT MUTATION TIME:
  Every transition re-reads the period inside the store transaction and
  re-validates its precondition there, not earlier in the call chain.
  Publish re-counts headcount from the live slots rather than trusting
  generation-time state, because manual edits may have happened since.

SEE ALSO:
  - slots.go: Generation checks the same status guard
  - store.go: TxStores supplies the transactional view
*/
package rota

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SCHEDULE PERIOD
// =============================================================================

type PeriodStatus string

const (
	StatusDraft       PeriodStatus = "draft"
	StatusUnderReview PeriodStatus = "under_review"
	StatusPublished   PeriodStatus = "published"
	StatusArchived    PeriodStatus = "archived"
)

// SchedulePeriod binds a crew to a pattern for a date range.
type SchedulePeriod struct {
	ID      PeriodID
	CrewID  CrewID
	Pattern PatternID
	Range   DateRange
	Status  PeriodStatus
	Version int

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

// allowedTransitions is the full transition table. Nothing else is permitted.
var allowedTransitions = map[PeriodStatus][]PeriodStatus{
	StatusDraft:       {StatusUnderReview},
	StatusUnderReview: {StatusDraft, StatusPublished},
	StatusPublished:   {StatusArchived},
	StatusArchived:    {},
}

func transitionAllowed(from, to PeriodStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AcceptsSlotChanges reports whether generation and manual edits are allowed.
func (p *SchedulePeriod) AcceptsSlotChanges() bool {
	return p.Status == StatusDraft || p.Status == StatusUnderReview
}

// =============================================================================
// LIFECYCLE OPERATIONS
// =============================================================================

// Lifecycle performs guarded period transitions. All state checks run inside
// the store transaction, immediately before the write.
type Lifecycle struct {
	Store TxStores
	Clock Clock
}

func NewLifecycle(store TxStores, clock Clock) *Lifecycle {
	return &Lifecycle{Store: store, Clock: clock}
}

// SubmitForReview moves draft -> under_review. Requires slots to exist for
// every date of the range: an empty or partially generated period cannot be
// reviewed.
func (l *Lifecycle) SubmitForReview(ctx context.Context, id PeriodID, actor string) (*SchedulePeriod, error) {
	return l.transition(ctx, id, StatusUnderReview, actor, func(s Stores, p *SchedulePeriod) error {
		slots, err := s.SlotsForPeriod(ctx, p.ID)
		if err != nil {
			return err
		}
		covered := make(map[string]bool)
		for _, slot := range slots {
			covered[slot.Date.String()] = true
		}
		for _, day := range p.Range.Days() {
			if !covered[day.String()] {
				return &InvalidTransitionError{
					PeriodID: p.ID, From: p.Status, To: StatusUnderReview,
					Reason: fmt.Sprintf("no slots on %s", day),
				}
			}
		}
		return nil
	})
}

// SendBack moves under_review -> draft for edits.
func (l *Lifecycle) SendBack(ctx context.Context, id PeriodID, actor string) (*SchedulePeriod, error) {
	return l.transition(ctx, id, StatusDraft, actor, nil)
}

// Publish moves under_review -> published. Headcount is re-validated from
// the live slots at publish time: every date must have exactly the
// pattern-required number of work slots.
func (l *Lifecycle) Publish(ctx context.Context, id PeriodID, actor string) (*SchedulePeriod, error) {
	return l.transition(ctx, id, StatusPublished, actor, func(s Stores, p *SchedulePeriod) error {
		pattern, err := s.GetPattern(ctx, p.Pattern)
		if err != nil {
			return err
		}
		slots, err := s.SlotsForPeriod(ctx, p.ID)
		if err != nil {
			return err
		}
		working := make(map[string]int)
		for _, slot := range slots {
			if slot.State == SlotWork {
				working[slot.Date.String()]++
			}
		}
		for _, day := range p.Range.Days() {
			if got := working[day.String()]; got != pattern.RequiredHeadcount {
				return &InvalidTransitionError{
					PeriodID: p.ID, From: p.Status, To: StatusPublished,
					Reason: (&HeadcountMismatchError{Date: day, Got: got, Want: pattern.RequiredHeadcount}).Error(),
				}
			}
		}
		return nil
	})
}

// Archive moves published -> archived. Terminal, and only after the period
// has ended.
func (l *Lifecycle) Archive(ctx context.Context, id PeriodID, actor string) (*SchedulePeriod, error) {
	return l.transition(ctx, id, StatusArchived, actor, func(s Stores, p *SchedulePeriod) error {
		if !l.Clock.Today().After(p.Range.End) {
			return &InvalidTransitionError{
				PeriodID: p.ID, From: p.Status, To: StatusArchived,
				Reason: fmt.Sprintf("period ends %s, not yet passed", p.Range.End),
			}
		}
		return nil
	})
}

// transition re-reads the period inside the transaction, checks the
// transition table plus the extra guard, then writes the new status.
func (l *Lifecycle) transition(
	ctx context.Context,
	id PeriodID,
	to PeriodStatus,
	actor string,
	guard func(Stores, *SchedulePeriod) error,
) (*SchedulePeriod, error) {
	var result *SchedulePeriod
	err := l.Store.WithTx(ctx, func(s Stores) error {
		p, err := s.GetPeriod(ctx, id)
		if err != nil {
			return err
		}
		if !transitionAllowed(p.Status, to) {
			return &InvalidTransitionError{PeriodID: p.ID, From: p.Status, To: to}
		}
		if guard != nil {
			if err := guard(s, p); err != nil {
				return err
			}
		}
		p.Status = to
		p.Version++
		p.UpdatedBy = actor
		p.UpdatedAt = l.Clock.Now()
		if err := s.SavePeriod(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
