package rota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/rota/store"
)

// =============================================================================
// FIXTURE - A crew of three on 4 on / 2 off over a 14-day period
// =============================================================================

type fixture struct {
	ctx     context.Context
	mem     *store.Memory
	clock   rota.FrozenClock
	gen     *rota.SlotGenerator
	life    *rota.Lifecycle
	pattern *rota.PatternDefinition
	period  *rota.SchedulePeriod
	alloc   *rota.Allocation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	clock := rota.FrozenClock{Current: time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)}

	pattern := fourOnTwoOff()
	if err := mem.SavePattern(ctx, pattern); err != nil {
		t.Fatal(err)
	}
	if err := mem.SaveTimeWindow(ctx, window("w1", "crew-1", "08:00", "8", date(2025, time.January, 1), nil)); err != nil {
		t.Fatal(err)
	}

	period := &rota.SchedulePeriod{
		ID:      "period-1",
		CrewID:  "crew-1",
		Pattern: pattern.ID,
		Range:   rota.DateRange{Start: date(2025, time.June, 2), End: date(2025, time.June, 15)},
		Status:  rota.StatusDraft,
		Version: 1,
	}
	if err := mem.SavePeriod(ctx, period); err != nil {
		t.Fatal(err)
	}

	alloc, err := rota.PlanAllocation(pattern, period.Range, []rota.CrewMember{
		{Electrician: "ana", NextDayOff: date(2025, time.June, 6)},
		{Electrician: "bruno", NextDayOff: date(2025, time.June, 8)},
		{Electrician: "carla", NextDayOff: date(2025, time.June, 10)},
	})
	if err != nil {
		t.Fatalf("PlanAllocation failed: %v", err)
	}

	return &fixture{
		ctx:     ctx,
		mem:     mem,
		clock:   clock,
		gen:     rota.NewSlotGenerator(mem, clock),
		life:    rota.NewLifecycle(mem, clock),
		pattern: pattern,
		period:  period,
		alloc:   alloc,
	}
}

func (f *fixture) slots(t *testing.T) []rota.Slot {
	t.Helper()
	slots, err := f.mem.SlotsForPeriod(f.ctx, f.period.ID)
	if err != nil {
		t.Fatal(err)
	}
	return slots
}

func (f *fixture) slotAt(t *testing.T, d rota.Date, id rota.ElectricianID) rota.Slot {
	t.Helper()
	for _, s := range f.slots(t) {
		if s.Date.Equal(d) && s.Electrician == id {
			return s
		}
	}
	t.Fatalf("no slot for %s on %s", id, d)
	return rota.Slot{}
}

// =============================================================================
// GENERATION
// =============================================================================

func TestGenerate_MaterializesFullPeriod(t *testing.T) {
	// GIVEN: A 14-day draft period with a 3-electrician allocation
	// THEN:  One slot per electrician per day, work slots carrying predicted
	//        times, exactly 2 working per date
	f := newFixture(t)

	slots, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(slots) != 14*3 {
		t.Fatalf("generated %d slots, want 42", len(slots))
	}

	workPerDay := make(map[string]int)
	for _, s := range slots {
		if s.Origin != rota.OriginGenerated {
			t.Errorf("slot %s/%s: origin %s, want generated", s.Date, s.Electrician, s.Origin)
		}
		switch s.State {
		case rota.SlotWork:
			workPerDay[s.Date.String()]++
			if s.PredictedStart == nil || s.PredictedStart.String() != "08:00" {
				t.Errorf("work slot %s/%s: predicted start %v, want 08:00", s.Date, s.Electrician, s.PredictedStart)
			}
			if s.PredictedDuration == nil || s.PredictedDuration.String() != "8" {
				t.Errorf("work slot %s/%s: predicted duration %v, want 8", s.Date, s.Electrician, s.PredictedDuration)
			}
		case rota.SlotOff:
			if s.PredictedStart != nil || s.PredictedDuration != nil {
				t.Errorf("off slot %s/%s carries predicted times", s.Date, s.Electrician)
			}
		default:
			t.Errorf("unexpected generated state %s", s.State)
		}
	}
	for _, day := range f.period.Range.Days() {
		if got := workPerDay[day.String()]; got != 2 {
			t.Errorf("%s: %d working, want 2", day, got)
		}
	}

	// Generation bumps the period version.
	period, err := f.mem.GetPeriod(f.ctx, f.period.ID)
	if err != nil {
		t.Fatal(err)
	}
	if period.Version != 2 {
		t.Errorf("period version %d, want 2", period.Version)
	}
}

func TestGenerate_PreservesManualSlots(t *testing.T) {
	// GIVEN: A generated period with one hand-edited slot
	// WHEN:  Slots are regenerated
	// THEN:  The manual slot survives untouched; everything else is replaced
	f := newFixture(t)
	if _, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner"); err != nil {
		t.Fatal(err)
	}

	edited, err := f.gen.EditSlot(f.ctx, f.period.ID, rota.SlotEdit{
		Date:        date(2025, time.June, 3),
		Electrician: "ana",
		State:       rota.SlotOff,
		DayNote:     "medical appointment",
	}, "supervisor")
	if err != nil {
		t.Fatalf("EditSlot failed: %v", err)
	}
	if edited.Origin != rota.OriginManual {
		t.Fatalf("edited slot origin %s, want manual", edited.Origin)
	}

	if _, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner"); err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}

	kept := f.slotAt(t, date(2025, time.June, 3), "ana")
	if kept.Origin != rota.OriginManual || kept.State != rota.SlotOff {
		t.Errorf("manual slot was overwritten: origin=%s state=%s", kept.Origin, kept.State)
	}
	if kept.DayNote != "medical appointment" {
		t.Errorf("manual slot note lost: %q", kept.DayNote)
	}
	if got := len(f.slots(t)); got != 14*3 {
		t.Errorf("slot count after regeneration %d, want 42", got)
	}
}

func TestGenerate_AtomicOnWriteFailure(t *testing.T) {
	// GIVEN: A store that fails mid-way through the slot write
	// THEN:  No partial slot set is visible and the period is untouched
	f := newFixture(t)
	f.mem.FailAfterSlotWrites = 5

	_, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner")
	if !errors.Is(err, store.ErrWriteFailureInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if got := len(f.slots(t)); got != 0 {
		t.Fatalf("%d slots visible after failed generation, want 0", got)
	}
	period, err := f.mem.GetPeriod(f.ctx, f.period.ID)
	if err != nil {
		t.Fatal(err)
	}
	if period.Version != 1 {
		t.Errorf("period version %d after failed generation, want 1", period.Version)
	}
}

func TestGenerate_AbortsOnMissingTimeWindow(t *testing.T) {
	// A definitional failure must leave nothing behind.
	f := newFixture(t)

	// A second crew period with no time window coverage.
	orphan := &rota.SchedulePeriod{
		ID:      "period-2",
		CrewID:  "crew-uncovered",
		Pattern: f.pattern.ID,
		Range:   f.period.Range,
		Status:  rota.StatusDraft,
		Version: 1,
	}
	if err := f.mem.SavePeriod(f.ctx, orphan); err != nil {
		t.Fatal(err)
	}

	_, err := f.gen.Generate(f.ctx, orphan.ID, f.alloc, "planner")
	if !errors.Is(err, rota.ErrNoActiveTimeWindow) {
		t.Fatalf("expected ErrNoActiveTimeWindow, got %v", err)
	}

	slots, err := f.mem.SlotsForPeriod(f.ctx, orphan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Fatalf("%d slots written despite definitional failure", len(slots))
	}
}

func TestGenerate_RejectsFrozenPeriod(t *testing.T) {
	f := newFixture(t)
	f.period.Status = rota.StatusPublished
	if err := f.mem.SavePeriod(f.ctx, f.period); err != nil {
		t.Fatal(err)
	}

	_, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner")
	if !errors.Is(err, rota.ErrPeriodFrozen) {
		t.Fatalf("expected ErrPeriodFrozen, got %v", err)
	}
}

// =============================================================================
// MANUAL EDITS
// =============================================================================

func TestEditSlot_RejectsPublishedPeriod(t *testing.T) {
	f := newFixture(t)
	f.period.Status = rota.StatusPublished
	if err := f.mem.SavePeriod(f.ctx, f.period); err != nil {
		t.Fatal(err)
	}

	_, err := f.gen.EditSlot(f.ctx, f.period.ID, rota.SlotEdit{
		Date:        date(2025, time.June, 3),
		Electrician: "ana",
		State:       rota.SlotOff,
	}, "supervisor")
	if !errors.Is(err, rota.ErrPeriodFrozen) {
		t.Fatalf("expected ErrPeriodFrozen, got %v", err)
	}
}

func TestEditSlot_RejectsDateOutsideRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.gen.EditSlot(f.ctx, f.period.ID, rota.SlotEdit{
		Date:        date(2025, time.July, 1),
		Electrician: "ana",
		State:       rota.SlotOff,
	}, "supervisor")
	if err == nil {
		t.Fatal("expected error for date outside period range")
	}
}

func TestEditSlot_ResolvesTimesForWorkState(t *testing.T) {
	f := newFixture(t)
	if _, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner"); err != nil {
		t.Fatal(err)
	}

	// Turning bruno's off day into a work day re-resolves predicted times.
	slot, err := f.gen.EditSlot(f.ctx, f.period.ID, rota.SlotEdit{
		Date:        date(2025, time.June, 2),
		Electrician: "bruno",
		State:       rota.SlotWork,
	}, "supervisor")
	if err != nil {
		t.Fatalf("EditSlot failed: %v", err)
	}
	if slot.PredictedStart == nil || slot.PredictedStart.String() != "08:00" {
		t.Errorf("predicted start %v, want 08:00", slot.PredictedStart)
	}
}

// =============================================================================
// REBALANCE
// =============================================================================

func publishFixture(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.life.SubmitForReview(f.ctx, f.period.ID, "planner"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.life.Publish(f.ctx, f.period.ID, "supervisor"); err != nil {
		t.Fatal(err)
	}
}

func TestRebalance_SwapsWorkDay(t *testing.T) {
	// GIVEN: A published period where ana works 2025-06-02 and bruno is off
	// WHEN:  The day is rebalanced from ana to bruno
	// THEN:  ana goes off, bruno goes on with freshly resolved times, both
	//        slots audited as rebalanced
	f := newFixture(t)
	publishFixture(t, f)

	day := date(2025, time.June, 2)
	if err := f.gen.Rebalance(f.ctx, f.period.ID, day, "ana", "bruno", "sick cover", "supervisor"); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}

	ana := f.slotAt(t, day, "ana")
	if ana.State != rota.SlotOff || ana.Origin != rota.OriginRebalanced {
		t.Errorf("ana: state=%s origin=%s, want off/rebalanced", ana.State, ana.Origin)
	}
	if ana.PredictedStart != nil {
		t.Error("ana keeps predicted times after going off")
	}

	bruno := f.slotAt(t, day, "bruno")
	if bruno.State != rota.SlotWork || bruno.Origin != rota.OriginRebalanced {
		t.Errorf("bruno: state=%s origin=%s, want work/rebalanced", bruno.State, bruno.Origin)
	}
	if bruno.PredictedStart == nil || bruno.PredictedStart.String() != "08:00" {
		t.Errorf("bruno predicted start %v, want 08:00", bruno.PredictedStart)
	}
	if bruno.UpdatedBy != "supervisor" {
		t.Errorf("bruno updated by %q, want supervisor", bruno.UpdatedBy)
	}

	// Headcount for the date is preserved by construction.
	working := 0
	for _, s := range f.slots(t) {
		if s.Date.Equal(day) && s.State == rota.SlotWork {
			working++
		}
	}
	if working != 2 {
		t.Errorf("%d working after rebalance, want 2", working)
	}
}

func TestRebalance_RejectsDraftPeriod(t *testing.T) {
	f := newFixture(t)
	if _, err := f.gen.Generate(f.ctx, f.period.ID, f.alloc, "planner"); err != nil {
		t.Fatal(err)
	}

	err := f.gen.Rebalance(f.ctx, f.period.ID, date(2025, time.June, 2), "ana", "bruno", "", "supervisor")
	if !errors.Is(err, rota.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRebalance_RejectsBadStates(t *testing.T) {
	f := newFixture(t)
	publishFixture(t, f)
	day := date(2025, time.June, 2)

	// bruno is off that day; he cannot be the source.
	if err := f.gen.Rebalance(f.ctx, f.period.ID, day, "bruno", "ana", "", "supervisor"); err == nil {
		t.Error("expected error when source is not working")
	}
	// carla already works that day; she cannot be the target.
	if err := f.gen.Rebalance(f.ctx, f.period.ID, day, "ana", "carla", "", "supervisor"); err == nil {
		t.Error("expected error when target is already working")
	}
}
