/*
scheduler.go - Nightly reconciliation scheduler

PURPOSE:
  Runs the tolerant reconciliation pass for yesterday on a fixed interval so
  findings appear without an operator triggering them. Each tick processes
  yesterday only; idempotence makes repeated ticks over the same date benign.

DESIGN:
  - Background goroutine with configurable check interval
  - First pass runs immediately on Start
  - A tick that finds the date already reconciled creates no new findings;
    the run record still notes the pass for the audit trail

USAGE:
  scheduler := NewNightlyScheduler(engine, clock, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReconcile endpoint (manual pass)
  - reconcile/engine.go: The pass itself
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
)

// NightlyScheduler handles automated reconciliation of yesterday's schedules.
type NightlyScheduler struct {
	Engine        *reconcile.Engine
	Clock         rota.Clock
	CheckInterval time.Duration
	Enabled       bool

	Logger *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewNightlyScheduler creates a new scheduler.
func NewNightlyScheduler(engine *reconcile.Engine, clock rota.Clock, logger *slog.Logger) *NightlyScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NightlyScheduler{
		Engine:        engine,
		Clock:         clock,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ns *NightlyScheduler) Start() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if !ns.Enabled {
		ns.Logger.Info("nightly scheduler disabled, not starting")
		return
	}

	ns.ticker = time.NewTicker(ns.CheckInterval)
	ns.wg.Add(1)

	go ns.run(ns.ticker.C)

	ns.Logger.Info("nightly scheduler started", "interval", ns.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (ns *NightlyScheduler) Stop() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.ticker != nil {
		ns.ticker.Stop()
		ns.ticker = nil
		close(ns.stop)
		ns.wg.Wait()
		ns.Logger.Info("nightly scheduler stopped")
	}
}

func (ns *NightlyScheduler) run(tick <-chan time.Time) {
	defer ns.wg.Done()

	// Run immediately on start
	ns.reconcileYesterday()

	for {
		select {
		case <-tick:
			ns.reconcileYesterday()
		case <-ns.stop:
			return
		}
	}
}

func (ns *NightlyScheduler) reconcileYesterday() {
	ctx := context.Background()
	yesterday := ns.Clock.Today().AddDays(-1)

	sum, err := ns.Engine.ReconcileAs(ctx, yesterday, nil, reconcile.TriggerNightly, rota.SystemActor)
	if err != nil {
		ns.Logger.Error("nightly reconciliation failed", "date", yesterday.String(), "error", err)
		return
	}

	if sum.Created() > 0 || len(sum.Failures) > 0 {
		ns.Logger.Info("nightly reconciliation completed",
			"date", yesterday.String(),
			"absences", sum.Absences,
			"deviations", sum.Deviations,
			"overtimes", sum.Overtimes,
			"already_recorded", sum.AlreadyRecorded,
			"failures", len(sum.Failures))
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (ns *NightlyScheduler) RunNow() {
	ns.reconcileYesterday()
}
