/*
engine.go - Plan-vs-actual reconciliation passes

PURPOSE:
  Two entry points share one comparison core:

  Reconcile (tolerant):  One date, optionally one crew. Applies a grace
                         margin (default 30 minutes) after a slot's predicted
                         start before deciding the slot was missed.
  ReconcileForced:       A date window. Ignores the grace margin, re-scans
                         every date regardless of earlier passes. Used for
                         backfill and debugging. Cancellable: dates already
                         committed stay committed when the caller times out.

COMPARISON OUTCOMES (per electrician and date):
  1. Work slot, no actual shift anywhere               -> absence (pending)
  2. Work slot, actual shift under a different crew    -> deviation
  3. Off/no slot, shift on a crew with a published
     schedule covering the date                        -> overtime
  4. Work slot, actual shift for the same crew         -> nothing

  Only slots of published periods are considered; draft and under-review
  periods are invisible here. A crew filter narrows the planned side only —
  actual shift records from every crew still count, so outcome 2 fires the
  same way filtered or not. Forced re-evaluation of an already-resolved
  date is a no-op by idempotence; previously emitted findings are never
  revoked.

FAILURE ISOLATION:
  Each date is processed and reported independently. The summary carries
  per-kind created counts and the dates that failed; one bad date never
  aborts the window.
*/
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/rota-engine/rota"
)

// DefaultGraceMargin is the tolerance around a predicted start within which
// a slot is not yet considered missed.
const DefaultGraceMargin = 30 * time.Minute

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Periods  rota.PeriodStore
	Slots    rota.SlotStore
	Shifts   rota.ShiftRecordStore
	Findings Store
	Clock    rota.Clock

	// GraceMargin applies to the tolerant pass only.
	GraceMargin time.Duration

	Logger *slog.Logger
}

func NewEngine(periods rota.PeriodStore, slots rota.SlotStore, shifts rota.ShiftRecordStore, findings Store, clock rota.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Periods:     periods,
		Slots:       slots,
		Shifts:      shifts,
		Findings:    findings,
		Clock:       clock,
		GraceMargin: DefaultGraceMargin,
		Logger:      logger,
	}
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Reconcile runs the tolerant pass for one date, optionally restricted to
// one crew (nil = all crews with a published schedule covering the date).
func (e *Engine) Reconcile(ctx context.Context, date rota.Date, crew *rota.CrewID, actor string) (*Summary, error) {
	return e.ReconcileAs(ctx, date, crew, TriggerManual, actor)
}

// ReconcileAs is Reconcile with an explicit trigger for the run record; the
// nightly scheduler uses it to distinguish its passes from manual ones.
func (e *Engine) ReconcileAs(ctx context.Context, date rota.Date, crew *rota.CrewID, trigger Trigger, actor string) (*Summary, error) {
	sum := &Summary{}
	e.reconcileDate(ctx, date, crew, false, actor, sum)
	sum.Dates = 1
	e.recordRun(ctx, trigger, date, date, crew, actor, sum)
	return sum, nil
}

// ReconcileForced re-scans every date in [from, to], ignoring the grace
// margin. Each date is its own atomic unit: when the context is cancelled
// mid-window, dates already processed keep their findings and the error is
// returned alongside the partial summary.
func (e *Engine) ReconcileForced(ctx context.Context, from, to rota.Date, actor string) (*Summary, error) {
	rng := rota.DateRange{Start: from, End: to}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	sum := &Summary{}
	for _, day := range rng.Days() {
		if err := ctx.Err(); err != nil {
			e.recordRun(ctx, TriggerForced, from, to, nil, actor, sum)
			return sum, err
		}
		e.reconcileDate(ctx, day, nil, true, actor, sum)
		sum.Dates++
	}
	e.recordRun(ctx, TriggerForced, from, to, nil, actor, sum)
	return sum, nil
}

// =============================================================================
// COMPARISON CORE
// =============================================================================

// plannedSlot pairs a slot with the crew that planned it.
type plannedSlot struct {
	slot rota.Slot
	crew rota.CrewID
}

func (e *Engine) reconcileDate(ctx context.Context, date rota.Date, crew *rota.CrewID, forced bool, actor string, sum *Summary) {
	fail := func(c rota.CrewID, err error) {
		sum.Failures = append(sum.Failures, DateFailure{Date: date, Crew: c, Err: err.Error()})
		e.Logger.Error("reconciliation failed", "date", date.String(), "error", err)
	}

	periods, err := e.Periods.PeriodsCovering(ctx, date, crew)
	if err != nil {
		fail("", err)
		return
	}

	// Only published periods participate; the considered crews are exactly
	// those with a published schedule covering the date.
	planned := make(map[rota.ElectricianID]plannedSlot)
	consideredCrews := make(map[rota.CrewID]bool)
	for _, p := range periods {
		if p.Status != rota.StatusPublished {
			continue
		}
		consideredCrews[p.CrewID] = true
		slots, err := e.Slots.SlotsForPeriodDate(ctx, p.ID, date)
		if err != nil {
			fail(p.CrewID, err)
			return
		}
		// One planned slot per electrician and date; when two published
		// periods cover the same electrician, a work slot always wins over a
		// non-work one so the duty obligation is what gets compared.
		for _, s := range slots {
			if prev, ok := planned[s.Electrician]; ok {
				if prev.slot.State == rota.SlotWork || s.State != rota.SlotWork {
					continue
				}
			}
			planned[s.Electrician] = plannedSlot{slot: s, crew: p.CrewID}
		}
	}

	records, err := e.Shifts.ShiftRecordsForDate(ctx, date)
	if err != nil {
		fail("", err)
		return
	}

	// Index actual shifts per electrician across ALL crews. A crew filter
	// narrows the planned side only: an electrician planned here who opened a
	// shift under any other crew is a deviation, never an absence.
	type actual struct {
		crew     rota.CrewID
		openedAt time.Time
	}
	actuals := make(map[rota.ElectricianID][]actual)
	for _, r := range records {
		for _, id := range r.Electricians {
			actuals[id] = append(actuals[id], actual{crew: r.CrewID, openedAt: r.OpenedAt})
		}
	}

	now := e.Clock.Now()

	// Planned side: absences and deviations.
	for id, ps := range planned {
		if ps.slot.State != rota.SlotWork {
			continue
		}
		worked := actuals[id]

		if len(worked) == 0 {
			// Tolerant pass holds off while the predicted start plus grace
			// margin has not yet elapsed; the shift may simply be late.
			if !forced && ps.slot.PredictedStart != nil {
				deadline := date.At(*ps.slot.PredictedStart).Add(e.GraceMargin)
				if now.Before(deadline) {
					continue
				}
			}
			e.emit(ctx, sum, Finding{
				Kind:          KindAbsence,
				Electrician:   id,
				Date:          date,
				CrewID:        ps.crew,
				ExpectedStart: ps.slot.PredictedStart,
				Status:        AbsencePending,
			}, actor)
			continue
		}

		sameCrew := false
		for _, a := range worked {
			if a.crew == ps.crew {
				sameCrew = true
				break
			}
		}
		if sameCrew {
			continue // happy path
		}

		e.emit(ctx, sum, Finding{
			Kind:          KindDeviation,
			Electrician:   id,
			Date:          date,
			CrewID:        ps.crew,
			ActualCrew:    worked[0].crew,
			ExpectedStart: ps.slot.PredictedStart,
			OpenedAt:      &worked[0].openedAt,
		}, actor)
	}

	// Actual side: overtime for anyone who worked a considered crew without a
	// work slot. Shifts under crews outside this pass's scope are left for
	// that crew's own pass.
	for id, worked := range actuals {
		if ps, ok := planned[id]; ok && ps.slot.State == rota.SlotWork {
			continue
		}
		for _, a := range worked {
			if !consideredCrews[a.crew] {
				continue
			}
			openedAt := a.openedAt
			e.emit(ctx, sum, Finding{
				Kind:        KindOvertime,
				Electrician: id,
				Date:        date,
				CrewID:      a.crew,
				OpenedAt:    &openedAt,
			}, actor)
			break
		}
	}
}

// emit persists one finding, treating a natural-key conflict as benign.
func (e *Engine) emit(ctx context.Context, sum *Summary, f Finding, actor string) {
	now := e.Clock.Now()
	f.ID = uuid.NewString()
	f.CreatedBy = actor
	f.CreatedAt = now
	f.UpdatedBy = actor
	f.UpdatedAt = now

	err := e.Findings.SaveFinding(ctx, f)
	switch {
	case err == nil:
		switch f.Kind {
		case KindAbsence:
			sum.Absences++
		case KindDeviation:
			sum.Deviations++
		case KindOvertime:
			sum.Overtimes++
		}
	case errors.Is(err, ErrAlreadyReconciled):
		sum.AlreadyRecorded++
		e.Logger.Debug("already reconciled",
			"electrician", string(f.Electrician), "date", f.Date.String(), "kind", string(f.Kind))
	default:
		sum.Failures = append(sum.Failures, DateFailure{Date: f.Date, Crew: f.CrewID, Err: err.Error()})
		e.Logger.Error("failed to persist finding",
			"electrician", string(f.Electrician), "date", f.Date.String(), "error", err)
	}
}

func (e *Engine) recordRun(ctx context.Context, trigger Trigger, from, to rota.Date, crew *rota.CrewID, actor string, sum *Summary) {
	completed := e.Clock.Now()
	run := Run{
		ID:          uuid.NewString(),
		Trigger:     trigger,
		From:        from,
		To:          to,
		Crew:        crew,
		Absences:    sum.Absences,
		Deviations:  sum.Deviations,
		Overtimes:   sum.Overtimes,
		Failures:    len(sum.Failures),
		StartedAt:   completed,
		CompletedAt: &completed,
		CreatedBy:   actor,
	}
	if err := e.Findings.SaveRun(ctx, run); err != nil {
		e.Logger.Error("failed to record reconciliation run", "error", err)
	}
}

// =============================================================================
// ABSENCE REVIEW
// =============================================================================

// ReviewAbsence moves an absence finding from pending to justified or
// rejected, stamping the reviewer.
func (e *Engine) ReviewAbsence(ctx context.Context, findingID string, status AbsenceStatus, note string, actor string) (*Finding, error) {
	f, err := e.Findings.GetFinding(ctx, findingID)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindAbsence {
		return nil, errors.New("only absence findings carry a review status")
	}
	if f.Status != AbsencePending {
		return nil, errors.New("absence already reviewed")
	}
	if status != AbsenceJustified && status != AbsenceRejected {
		return nil, errors.New("review status must be justified or rejected")
	}

	f.Status = status
	if note != "" {
		f.Note = note
	}
	f.UpdatedBy = actor
	f.UpdatedAt = e.Clock.Now()

	if err := e.Findings.UpdateFinding(ctx, *f); err != nil {
		return nil, err
	}
	return f, nil
}
