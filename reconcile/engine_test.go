package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/rota/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) rota.Date {
	return rota.NewDate(year, month, day)
}

func fourOnTwoOff() *rota.PatternDefinition {
	return rota.NewCyclePattern("four-two", "4 on / 2 off", []rota.DayStatus{
		rota.StatusWork, rota.StatusWork, rota.StatusWork, rota.StatusWork,
		rota.StatusOff, rota.StatusOff,
	}, 2)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// publishCrew seeds a published 2025-06-02..2025-06-15 period for the crew
// with three members whose day offs are two days apart. On 2025-06-02 the
// first and third members work, the second is off.
func publishCrew(t *testing.T, ctx context.Context, mem *store.Memory, crew rota.CrewID, periodID rota.PeriodID, members [3]rota.ElectricianID) {
	t.Helper()
	pattern := fourOnTwoOff()
	if err := mem.SavePattern(ctx, pattern); err != nil {
		t.Fatal(err)
	}
	start, _ := rota.ParseTimeOfDay("08:00")
	hours, _ := rota.ParseHours("8")
	if err := mem.SaveTimeWindow(ctx, rota.CrewTimeWindow{
		ID: string(crew) + "-w1", CrewID: crew, Start: start, Duration: hours,
		ValidFrom: date(2025, time.January, 1),
	}); err != nil {
		t.Fatal(err)
	}

	period := &rota.SchedulePeriod{
		ID:      periodID,
		CrewID:  crew,
		Pattern: pattern.ID,
		Range:   rota.DateRange{Start: date(2025, time.June, 2), End: date(2025, time.June, 15)},
		Status:  rota.StatusDraft,
		Version: 1,
	}
	if err := mem.SavePeriod(ctx, period); err != nil {
		t.Fatal(err)
	}

	alloc, err := rota.PlanAllocation(pattern, period.Range, []rota.CrewMember{
		{Electrician: members[0], NextDayOff: date(2025, time.June, 6)},
		{Electrician: members[1], NextDayOff: date(2025, time.June, 8)},
		{Electrician: members[2], NextDayOff: date(2025, time.June, 10)},
	})
	if err != nil {
		t.Fatal(err)
	}

	clock := rota.FrozenClock{Current: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	gen := rota.NewSlotGenerator(mem, clock)
	life := rota.NewLifecycle(mem, clock)
	if _, err := gen.Generate(ctx, period.ID, alloc, "planner"); err != nil {
		t.Fatal(err)
	}
	if _, err := life.SubmitForReview(ctx, period.ID, "planner"); err != nil {
		t.Fatal(err)
	}
	if _, err := life.Publish(ctx, period.ID, "supervisor"); err != nil {
		t.Fatal(err)
	}
}

func newEngine(mem *store.Memory, at time.Time) *reconcile.Engine {
	return reconcile.NewEngine(mem, mem, mem, mem, rota.FrozenClock{Current: at}, quietLogger())
}

func record(t *testing.T, ctx context.Context, mem *store.Memory, id string, crew rota.CrewID, opened time.Time, who ...rota.ElectricianID) {
	t.Helper()
	if err := mem.RecordShift(ctx, rota.ActualShiftRecord{
		ID: id, CrewID: crew, Electricians: who, OpenedAt: opened,
	}); err != nil {
		t.Fatal(err)
	}
}

func findingsOn(t *testing.T, ctx context.Context, mem *store.Memory, d rota.Date) []reconcile.Finding {
	t.Helper()
	fs, err := mem.FindingsInRange(ctx, d, d)
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

// =============================================================================
// TOLERANT PASS
// =============================================================================

func TestReconcile_EmitsAbsence(t *testing.T) {
	// GIVEN: carla is planned to work 2025-06-02 but only ana opened a shift,
	//        and the grace margin has long elapsed
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	record(t, ctx, mem, "sr-1", "crew-1", time.Date(2025, time.June, 2, 8, 5, 0, 0, time.UTC), "ana")

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if sum.Absences != 1 || sum.Deviations != 0 || sum.Overtimes != 0 {
		t.Fatalf("summary %+v, want exactly 1 absence", sum)
	}
	if sum.Dates != 1 {
		t.Errorf("dates %d, want 1", sum.Dates)
	}

	fs := findingsOn(t, ctx, mem, date(2025, time.June, 2))
	if len(fs) != 1 {
		t.Fatalf("%d findings, want 1", len(fs))
	}
	f := fs[0]
	if f.Kind != reconcile.KindAbsence || f.Electrician != "carla" {
		t.Errorf("finding %s/%s, want absence/carla", f.Kind, f.Electrician)
	}
	if f.Status != reconcile.AbsencePending {
		t.Errorf("status %s, want pending", f.Status)
	}
	if f.CrewID != "crew-1" {
		t.Errorf("crew %s, want crew-1", f.CrewID)
	}
	if f.ExpectedStart == nil || f.ExpectedStart.String() != "08:00" {
		t.Errorf("expected start %v, want 08:00", f.ExpectedStart)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	// Running the same pass twice creates nothing new.
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	first, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if first.Absences != 2 {
		t.Fatalf("first pass: %d absences, want 2 (ana and carla)", first.Absences)
	}

	second, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if second.Created() != 0 {
		t.Errorf("second pass created %d findings, want 0", second.Created())
	}
	if second.AlreadyRecorded != 2 {
		t.Errorf("already recorded %d, want 2", second.AlreadyRecorded)
	}
	if got := len(findingsOn(t, ctx, mem, date(2025, time.June, 2))); got != 2 {
		t.Errorf("%d findings after two passes, want 2", got)
	}
}

func TestReconcile_GraceMarginHoldsOff(t *testing.T) {
	// GIVEN: Nobody has shown up but the 08:00 start is only 10 minutes past
	// THEN:  The tolerant pass stays quiet; past the margin it fires
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})

	early := newEngine(mem, time.Date(2025, time.June, 2, 8, 10, 0, 0, time.UTC))
	sum, err := early.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Absences != 0 {
		t.Fatalf("%d absences within the grace margin, want 0", sum.Absences)
	}

	late := newEngine(mem, time.Date(2025, time.June, 2, 8, 40, 0, 0, time.UTC))
	sum, err = late.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Absences != 2 {
		t.Fatalf("%d absences past the grace margin, want 2", sum.Absences)
	}
}

func TestReconcile_EmitsDeviation(t *testing.T) {
	// GIVEN: carla is planned on crew-1 but opened her shift under crew-2
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	publishCrew(t, ctx, mem, "crew-2", "period-2", [3]rota.ElectricianID{"diego", "elena", "frank"})

	opened := time.Date(2025, time.June, 2, 8, 2, 0, 0, time.UTC)
	record(t, ctx, mem, "sr-1", "crew-1", time.Date(2025, time.June, 2, 8, 5, 0, 0, time.UTC), "ana")
	record(t, ctx, mem, "sr-2", "crew-2", opened, "diego", "frank", "carla")

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Deviations != 1 {
		t.Fatalf("summary %+v, want 1 deviation", sum)
	}

	var dev *reconcile.Finding
	for _, f := range findingsOn(t, ctx, mem, date(2025, time.June, 2)) {
		if f.Kind == reconcile.KindDeviation {
			f := f
			dev = &f
		}
	}
	if dev == nil {
		t.Fatal("no deviation finding persisted")
	}
	if dev.Electrician != "carla" {
		t.Errorf("deviation for %s, want carla", dev.Electrician)
	}
	if dev.CrewID != "crew-1" || dev.ActualCrew != "crew-2" {
		t.Errorf("expected crew-1 planned / crew-2 actual, got %s/%s", dev.CrewID, dev.ActualCrew)
	}
	if dev.OpenedAt == nil || !dev.OpenedAt.Equal(opened) {
		t.Errorf("opened at %v, want %v", dev.OpenedAt, opened)
	}
}

func TestReconcile_EmitsOvertime(t *testing.T) {
	// GIVEN: bruno is off on 2025-06-02 yet appears in the crew's shift record
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	opened := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	record(t, ctx, mem, "sr-1", "crew-1", opened, "ana", "carla", "bruno")

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Overtimes != 1 || sum.Absences != 0 || sum.Deviations != 0 {
		t.Fatalf("summary %+v, want exactly 1 overtime", sum)
	}

	fs := findingsOn(t, ctx, mem, date(2025, time.June, 2))
	if len(fs) != 1 {
		t.Fatalf("%d findings, want 1", len(fs))
	}
	f := fs[0]
	if f.Kind != reconcile.KindOvertime || f.Electrician != "bruno" {
		t.Errorf("finding %s/%s, want overtime/bruno", f.Kind, f.Electrician)
	}
	if f.OpenedAt == nil || !f.OpenedAt.Equal(opened) {
		t.Errorf("opened at %v, want %v", f.OpenedAt, opened)
	}
}

func TestReconcile_IgnoresUnpublishedPeriods(t *testing.T) {
	// Draft periods are invisible to reconciliation.
	ctx := context.Background()
	mem := store.NewMemory()
	pattern := fourOnTwoOff()
	if err := mem.SavePattern(ctx, pattern); err != nil {
		t.Fatal(err)
	}
	period := &rota.SchedulePeriod{
		ID: "period-1", CrewID: "crew-1", Pattern: pattern.ID,
		Range:  rota.DateRange{Start: date(2025, time.June, 2), End: date(2025, time.June, 15)},
		Status: rota.StatusDraft, Version: 1,
	}
	if err := mem.SavePeriod(ctx, period); err != nil {
		t.Fatal(err)
	}

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created() != 0 || len(sum.Failures) != 0 {
		t.Errorf("summary %+v, want nothing for a draft period", sum)
	}
}

func TestReconcile_CrewFilter(t *testing.T) {
	// Restricting to one crew leaves the other crew's dates untouched.
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	publishCrew(t, ctx, mem, "crew-2", "period-2", [3]rota.ElectricianID{"diego", "elena", "frank"})

	crew := rota.CrewID("crew-1")
	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), &crew, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Absences != 2 {
		t.Fatalf("%d absences, want 2 (crew-1 only)", sum.Absences)
	}
	for _, f := range findingsOn(t, ctx, mem, date(2025, time.June, 2)) {
		if f.CrewID != crew {
			t.Errorf("finding for crew %s leaked through the filter", f.CrewID)
		}
	}
}

func TestReconcile_CrewFilterStillSeesOtherCrewShifts(t *testing.T) {
	// GIVEN: carla is planned on crew-1 but opened her shift under crew-2
	// WHEN:  The pass is restricted to crew-1
	// THEN:  She is a deviation, not an absence; a later unfiltered pass adds
	//        nothing on top
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	publishCrew(t, ctx, mem, "crew-2", "period-2", [3]rota.ElectricianID{"diego", "elena", "frank"})
	record(t, ctx, mem, "sr-1", "crew-1", time.Date(2025, time.June, 2, 8, 5, 0, 0, time.UTC), "ana")
	record(t, ctx, mem, "sr-2", "crew-2", time.Date(2025, time.June, 2, 8, 2, 0, 0, time.UTC), "diego", "frank", "carla")

	crew := rota.CrewID("crew-1")
	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), &crew, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Absences != 0 || sum.Deviations != 1 {
		t.Fatalf("summary %+v, want 0 absences and 1 deviation", sum)
	}

	var carla []reconcile.Finding
	for _, f := range findingsOn(t, ctx, mem, date(2025, time.June, 2)) {
		if f.Electrician == "carla" {
			carla = append(carla, f)
		}
	}
	if len(carla) != 1 || carla[0].Kind != reconcile.KindDeviation {
		t.Fatalf("carla findings %+v, want a single deviation", carla)
	}
	if carla[0].CrewID != "crew-1" || carla[0].ActualCrew != "crew-2" {
		t.Errorf("deviation crews %s/%s, want crew-1 planned / crew-2 actual",
			carla[0].CrewID, carla[0].ActualCrew)
	}

	// The unfiltered pass agrees with the filtered one.
	sum, err = engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Created() != 0 {
		t.Errorf("unfiltered follow-up created %d findings, want 0", sum.Created())
	}
	carla = carla[:0]
	for _, f := range findingsOn(t, ctx, mem, date(2025, time.June, 2)) {
		if f.Electrician == "carla" {
			carla = append(carla, f)
		}
	}
	if len(carla) != 1 {
		t.Errorf("carla has %d findings after both passes, want still 1", len(carla))
	}
}

func TestReconcile_WorkSlotWinsAcrossPeriods(t *testing.T) {
	// GIVEN: carla has a work slot on crew-1 and an off slot on crew-2 for the
	//        same date, and nobody opened a shift
	// THEN:  Her duty obligation on crew-1 is what gets compared, regardless of
	//        which period the stores return first
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	publishCrew(t, ctx, mem, "crew-2", "period-2", [3]rota.ElectricianID{"diego", "carla", "elena"})

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	sum, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops")
	if err != nil {
		t.Fatal(err)
	}
	// ana and carla on crew-1, diego and elena on crew-2.
	if sum.Absences != 4 {
		t.Fatalf("%d absences, want 4", sum.Absences)
	}

	var carla []reconcile.Finding
	for _, f := range findingsOn(t, ctx, mem, date(2025, time.June, 2)) {
		if f.Electrician == "carla" {
			carla = append(carla, f)
		}
	}
	if len(carla) != 1 || carla[0].Kind != reconcile.KindAbsence {
		t.Fatalf("carla findings %+v, want a single absence", carla)
	}
	if carla[0].CrewID != "crew-1" {
		t.Errorf("absence attributed to %s, want crew-1 where she was on duty", carla[0].CrewID)
	}
}

// =============================================================================
// FORCED PASS
// =============================================================================

func TestReconcileForced_ScansWindow(t *testing.T) {
	// GIVEN: Three days of a published schedule with no actuals at all
	// WHEN:  A forced pass runs at 08:00, inside what the tolerant pass would
	//        treat as the grace margin
	// THEN:  Every missed work slot becomes an absence anyway
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})

	engine := newEngine(mem, time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC))
	sum, err := engine.ReconcileForced(ctx, date(2025, time.June, 2), date(2025, time.June, 4), "ops")
	if err != nil {
		t.Fatalf("ReconcileForced failed: %v", err)
	}
	if sum.Dates != 3 {
		t.Errorf("dates %d, want 3", sum.Dates)
	}
	// Two of three electricians work each day.
	if sum.Absences != 6 {
		t.Errorf("%d absences, want 6", sum.Absences)
	}

	runs, err := mem.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("%d runs recorded, want 1", len(runs))
	}
	run := runs[0]
	if run.Trigger != reconcile.TriggerForced {
		t.Errorf("trigger %s, want forced", run.Trigger)
	}
	if !run.From.Equal(date(2025, time.June, 2)) || !run.To.Equal(date(2025, time.June, 4)) {
		t.Errorf("run window %s..%s, want 2025-06-02..2025-06-04", run.From, run.To)
	}
	if run.Absences != 6 {
		t.Errorf("run absences %d, want 6", run.Absences)
	}
}

func TestReconcileForced_RejectsInvalidWindow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := newEngine(mem, time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC))

	_, err := engine.ReconcileForced(ctx, date(2025, time.June, 4), date(2025, time.June, 2), "ops")
	if !errors.Is(err, rota.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestReconcileForced_Cancellable(t *testing.T) {
	// A cancelled context stops the scan; the partial summary survives.
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	engine := newEngine(mem, time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC))
	sum, err := engine.ReconcileForced(cancelled, date(2025, time.June, 2), date(2025, time.June, 4), "ops")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sum == nil {
		t.Fatal("expected a partial summary alongside the error")
	}
	if sum.Dates != 0 {
		t.Errorf("dates %d on an immediately cancelled pass, want 0", sum.Dates)
	}
}

// =============================================================================
// ABSENCE REVIEW
// =============================================================================

func TestReviewAbsence(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	record(t, ctx, mem, "sr-1", "crew-1", time.Date(2025, time.June, 2, 8, 5, 0, 0, time.UTC), "ana")

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	if _, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops"); err != nil {
		t.Fatal(err)
	}
	fs := findingsOn(t, ctx, mem, date(2025, time.June, 2))
	if len(fs) != 1 {
		t.Fatalf("%d findings, want 1", len(fs))
	}

	reviewed, err := engine.ReviewAbsence(ctx, fs[0].ID, reconcile.AbsenceJustified, "called in sick", "supervisor")
	if err != nil {
		t.Fatalf("ReviewAbsence failed: %v", err)
	}
	if reviewed.Status != reconcile.AbsenceJustified {
		t.Errorf("status %s, want justified", reviewed.Status)
	}
	if reviewed.Note != "called in sick" {
		t.Errorf("note %q, want the review note", reviewed.Note)
	}
	if reviewed.UpdatedBy != "supervisor" {
		t.Errorf("updated by %q, want supervisor", reviewed.UpdatedBy)
	}

	stored, err := mem.GetFinding(ctx, fs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != reconcile.AbsenceJustified {
		t.Errorf("persisted status %s, want justified", stored.Status)
	}

	// A reviewed absence cannot be re-reviewed.
	if _, err := engine.ReviewAbsence(ctx, fs[0].ID, reconcile.AbsenceRejected, "", "supervisor"); err == nil {
		t.Error("expected error re-reviewing a justified absence")
	}
}

func TestReviewAbsence_RejectsNonAbsence(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})
	record(t, ctx, mem, "sr-1", "crew-1", time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC), "ana", "carla", "bruno")

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	if _, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops"); err != nil {
		t.Fatal(err)
	}
	fs := findingsOn(t, ctx, mem, date(2025, time.June, 2))
	if len(fs) != 1 || fs[0].Kind != reconcile.KindOvertime {
		t.Fatalf("expected a single overtime finding, got %+v", fs)
	}

	if _, err := engine.ReviewAbsence(ctx, fs[0].ID, reconcile.AbsenceJustified, "", "supervisor"); err == nil {
		t.Error("expected error reviewing an overtime finding")
	}
}

func TestReviewAbsence_UnknownFinding(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))

	_, err := engine.ReviewAbsence(ctx, "nope", reconcile.AbsenceJustified, "", "supervisor")
	if !errors.Is(err, reconcile.ErrFindingNotFound) {
		t.Fatalf("expected ErrFindingNotFound, got %v", err)
	}
}

// =============================================================================
// RUN RECORDS
// =============================================================================

func TestReconcile_RecordsRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	publishCrew(t, ctx, mem, "crew-1", "period-1", [3]rota.ElectricianID{"ana", "bruno", "carla"})

	engine := newEngine(mem, time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	if _, err := engine.Reconcile(ctx, date(2025, time.June, 2), nil, "ops"); err != nil {
		t.Fatal(err)
	}

	runs, err := mem.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("%d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Trigger != reconcile.TriggerManual {
		t.Errorf("trigger %s, want manual", run.Trigger)
	}
	if !run.From.Equal(date(2025, time.June, 2)) || !run.To.Equal(date(2025, time.June, 2)) {
		t.Errorf("run window %s..%s, want the single reconciled date", run.From, run.To)
	}
	if run.Absences != 2 {
		t.Errorf("run absences %d, want 2", run.Absences)
	}
	if run.CreatedBy != "ops" {
		t.Errorf("created by %q, want ops", run.CreatedBy)
	}
}
