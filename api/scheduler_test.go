/*
scheduler_test.go - Tests for the nightly reconciliation scheduler

The scheduler is a thin loop over Engine.ReconcileAs; these tests exercise
one pass directly and the enabled/disabled wiring rather than real timers.
*/
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/rota/store"
)

func TestNightlyScheduler_ReconcilesYesterday(t *testing.T) {
	// GIVEN: A published schedule covering yesterday with no field activity
	// WHEN:  One scheduler pass runs
	// THEN:  Yesterday's missed work slots become absences under the system
	//        identity, recorded as a nightly run
	mem := store.NewMemory()
	clock := rota.FrozenClock{Current: time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(mem, clock, logger)
	router := NewRouter(h, []string{"*"})
	seedPublishedPeriod(t, router)

	scheduler := NewNightlyScheduler(h.Engine, clock, logger)
	scheduler.RunNow()

	yesterday := rota.NewDate(2025, time.June, 2)
	findings, err := mem.FindingsInRange(context.Background(), yesterday, yesterday)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 2 {
		t.Fatalf("%d findings after the pass, want 2 absences", len(findings))
	}
	for _, f := range findings {
		if f.CreatedBy != rota.SystemActor {
			t.Errorf("finding created by %q, want the system identity", f.CreatedBy)
		}
	}

	runs, err := mem.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || string(runs[0].Trigger) != "nightly" {
		t.Fatalf("runs %+v, want one nightly run", runs)
	}

	// A second pass over the same date creates nothing new.
	scheduler.RunNow()
	findings, err = mem.FindingsInRange(context.Background(), yesterday, yesterday)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 2 {
		t.Errorf("%d findings after a repeat pass, want still 2", len(findings))
	}
}

func TestNightlyScheduler_DisabledDoesNotStart(t *testing.T) {
	mem := store.NewMemory()
	clock := rota.FrozenClock{Current: time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(mem, clock, logger)

	scheduler := NewNightlyScheduler(h.Engine, clock, logger)
	scheduler.Enabled = false
	scheduler.Start()
	scheduler.Stop() // must not block or panic without a running loop

	runs, err := mem.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("%d runs from a disabled scheduler, want 0", len(runs))
	}
}

func TestNightlyScheduler_StopIsIdempotent(t *testing.T) {
	// Shutdown paths can race a deferred Stop with an explicit one; both must
	// return cleanly.
	mem := store.NewMemory()
	clock := rota.FrozenClock{Current: time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(mem, clock, logger)

	scheduler := NewNightlyScheduler(h.Engine, clock, logger)
	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop() // second call is a no-op
}

// Guard against route drift: the handlers the scheduler depends on stay
// reachable for manual triggering too.
func TestNightlyScheduler_ManualTriggerStaysAvailable(t *testing.T) {
	_, router := setupTestRouter(t)
	seedPublishedPeriod(t, router)

	var sum SummaryDTO
	rec := request(t, router, "POST", "/api/reconciliation/run", ReconcileRequest{Date: "2025-06-02"}, &sum)
	if rec.Code != http.StatusOK {
		t.Fatalf("manual trigger: %d %s", rec.Code, rec.Body.String())
	}
}
