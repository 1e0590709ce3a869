/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a pattern, a crew time
	window, a schedule period, generates its slots, and publishes it.

AVAILABLE SCENARIOS:

	four-on-two-off:  6-day cycle (4 work, 2 off), crew of 3, headcount 2.
	                  Also records one understaffed field shift on the first
	                  day so a reconciliation pass produces an absence.
	spanish-schedule: Two complementary week templates, crew of 2, exactly
	                  one electrician on duty every day.

HOW SCENARIOS WORK:
 1. Create the rotation pattern via factory
 2. Declare the crew's shift hours (open-ended time window)
 3. Create a draft period anchored at yesterday
 4. Generate slots from declared next-day-off anchors
 5. Submit and publish

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "four-on-two-off"}

NOTE:

	Scenarios seed on top of existing data with fixed pattern IDs; loading
	one twice upserts the pattern and creates a fresh period. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/pattern.go: Pattern JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "four-on-two-off",
		Name:        "4 on / 2 off",
		Description: "6-day cycle, crew of 3, 2 on duty every day, one absence to reconcile",
	},
	{
		ID:          "spanish-schedule",
		Name:        "Spanish schedule",
		Description: "Two complementary week templates, crew of 2, 1 on duty every day",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario seeds the selected demo scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var err error
	switch req.ScenarioID {
	case "four-on-two-off":
		err = h.loadFourOnTwoOffScenario(r.Context())
	case "spanish-schedule":
		err = h.loadSpanishScheduleScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": req.ScenarioID, "status": "loaded"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadFourOnTwoOffScenario seeds a 6-day cycle crew of 3 and records one
// understaffed field shift so a reconciliation pass over the first period day
// yields an absence finding.
func (h *Handler) loadFourOnTwoOffScenario(ctx context.Context) error {
	pattern, err := h.createPatternFromJSON(ctx, `{
		"id": "four-on-two-off",
		"name": "4 on / 2 off",
		"mode": "cycle_days",
		"cycle": ["work", "work", "work", "work", "off", "off"],
		"required_headcount": 2
	}`)
	if err != nil {
		return err
	}

	crew := rota.CrewID("crew-north")
	start := h.Clock.Today().AddDays(-1)
	rng := rota.DateRange{Start: start, End: start.AddDays(11)}

	if err := h.seedTimeWindow(ctx, crew, "08:00", "8", start); err != nil {
		return err
	}

	period, err := h.seedPeriod(ctx, crew, pattern.ID, rng)
	if err != nil {
		return err
	}

	// Anchors spaced two days apart keep exactly 2 of 3 on duty.
	members := []rota.CrewMember{
		{Electrician: "elec-ana", NextDayOff: start.AddDays(4)},
		{Electrician: "elec-bruno", NextDayOff: start.AddDays(6)},
		{Electrician: "elec-carla", NextDayOff: start.AddDays(8)},
	}
	if err := h.seedPublishedSlots(ctx, period, pattern, members); err != nil {
		return err
	}

	// On the first day ana and carla are on duty, but only ana showed up:
	// reconciling that date records an absence for carla.
	return h.Store.RecordShift(ctx, rota.ActualShiftRecord{
		ID:           uuid.NewString(),
		CrewID:       crew,
		Electricians: []rota.ElectricianID{"elec-ana"},
		OpenedAt:     start.At(rota.NewTimeOfDay(8, 5)),
	})
}

// loadSpanishScheduleScenario seeds a two-week alternating pattern where one
// electrician covers weekdays and the other covers weekends, swapping weekly.
func (h *Handler) loadSpanishScheduleScenario(ctx context.Context) error {
	pattern, err := h.createPatternFromJSON(ctx, `{
		"id": "spanish-schedule",
		"name": "Spanish schedule",
		"mode": "week_dependent",
		"weeks": [
			{"mon": "work", "tue": "work", "wed": "work", "thu": "work", "fri": "work", "sat": "off", "sun": "off"},
			{"mon": "off", "tue": "off", "wed": "off", "thu": "off", "fri": "off", "sat": "work", "sun": "work"}
		],
		"required_headcount": 1
	}`)
	if err != nil {
		return err
	}

	crew := rota.CrewID("crew-south")
	start := h.Clock.Today().AddDays(-1)
	rng := rota.DateRange{Start: start, End: start.AddDays(13)}

	if err := h.seedTimeWindow(ctx, crew, "09:00", "7.5", start); err != nil {
		return err
	}

	period, err := h.seedPeriod(ctx, crew, pattern.ID, rng)
	if err != nil {
		return err
	}

	// Saturday day offs one week apart align the two phase windows, so the
	// complementary week templates cover every day exactly once.
	sat := firstWeekdayOnOrAfter(start, time.Saturday)
	members := []rota.CrewMember{
		{Electrician: "elec-diego", NextDayOff: sat},
		{Electrician: "elec-elena", NextDayOff: sat.AddDays(7)},
	}
	return h.seedPublishedSlots(ctx, period, pattern, members)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) createPatternFromJSON(ctx context.Context, jsonStr string) (*rota.PatternDefinition, error) {
	pattern, err := h.PatternFactory.ParsePattern(jsonStr)
	if err != nil {
		return nil, err
	}
	pattern.CreatedBy = rota.SystemActor
	pattern.CreatedAt = h.Clock.Now()
	if err := h.Store.SavePattern(ctx, pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

func (h *Handler) seedTimeWindow(ctx context.Context, crew rota.CrewID, start, hours string, validFrom rota.Date) error {
	startTime, err := rota.ParseTimeOfDay(start)
	if err != nil {
		return err
	}
	duration, err := rota.ParseHours(hours)
	if err != nil {
		return err
	}
	now := h.Clock.Now()
	win := rota.CrewTimeWindow{
		ID:        uuid.NewString(),
		CrewID:    crew,
		Start:     startTime,
		Duration:  duration,
		ValidFrom: validFrom,
		CreatedBy: rota.SystemActor,
		CreatedAt: now,
		UpdatedBy: rota.SystemActor,
		UpdatedAt: now,
	}
	return h.Store.WithTx(ctx, func(s rota.Stores) error {
		existing, err := s.TimeWindowsForCrew(ctx, crew)
		if err != nil {
			return err
		}
		closed, err := rota.PlanWindowInsert(existing, win)
		if err != nil {
			return err
		}
		for _, c := range closed {
			if err := s.SaveTimeWindow(ctx, c); err != nil {
				return err
			}
		}
		return s.SaveTimeWindow(ctx, win)
	})
}

func (h *Handler) seedPeriod(ctx context.Context, crew rota.CrewID, pattern rota.PatternID, rng rota.DateRange) (*rota.SchedulePeriod, error) {
	now := h.Clock.Now()
	period := &rota.SchedulePeriod{
		ID:        rota.PeriodID(uuid.NewString()),
		CrewID:    crew,
		Pattern:   pattern,
		Range:     rng,
		Status:    rota.StatusDraft,
		Version:   1,
		CreatedBy: rota.SystemActor,
		CreatedAt: now,
		UpdatedBy: rota.SystemActor,
		UpdatedAt: now,
	}
	if err := h.Store.SavePeriod(ctx, period); err != nil {
		return nil, err
	}
	return period, nil
}

// seedPublishedSlots runs the full planning flow: allocate, generate, submit,
// publish.
func (h *Handler) seedPublishedSlots(ctx context.Context, period *rota.SchedulePeriod, pattern *rota.PatternDefinition, members []rota.CrewMember) error {
	alloc, err := rota.PlanAllocation(pattern, period.Range, members)
	if err != nil {
		return err
	}
	if _, err := h.Generator.Generate(ctx, period.ID, alloc, rota.SystemActor); err != nil {
		return err
	}
	if _, err := h.Lifecycle.SubmitForReview(ctx, period.ID, rota.SystemActor); err != nil {
		return err
	}
	if _, err := h.Lifecycle.Publish(ctx, period.ID, rota.SystemActor); err != nil {
		return err
	}
	return nil
}

func firstWeekdayOnOrAfter(d rota.Date, wd time.Weekday) rota.Date {
	for i := 0; i < 7; i++ {
		if c := d.AddDays(i); c.Weekday() == wd {
			return c
		}
	}
	return d
}
