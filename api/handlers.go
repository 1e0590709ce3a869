/*
handlers.go - HTTP API handlers for the rotation scheduling engine

PURPOSE:
  Exposes the scheduling and reconciliation engines via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Patterns:
    GET    /api/patterns                     List rotation patterns
    POST   /api/patterns                     Create pattern from JSON
    GET    /api/patterns/{id}                Get one pattern

  Crew time windows:
    GET    /api/crews/{crewID}/time-windows  Window history for a crew
    POST   /api/crews/{crewID}/time-windows  Declare new shift hours

  Periods:
    GET    /api/periods                      List schedule periods
    POST   /api/periods                      Create draft period
    GET    /api/periods/{id}                 Get one period
    GET    /api/periods/{id}/slots           Slots of a period
    POST   /api/periods/{id}/generate        Generate slots from anchors
    POST   /api/periods/{id}/slots           Manual slot edit (pre-publish)
    POST   /api/periods/{id}/submit          draft -> under_review
    POST   /api/periods/{id}/send-back       under_review -> draft
    POST   /api/periods/{id}/publish         under_review -> published
    POST   /api/periods/{id}/archive         published -> archived
    POST   /api/periods/{id}/rebalance       Swap a work day (published)

  Shift records:
    GET    /api/shift-records?date=          Actual shifts for a date
    POST   /api/shift-records                Record an actual shift

  Reconciliation:
    POST   /api/reconciliation/run           Tolerant pass for one date
    POST   /api/reconciliation/run-forced    Forced pass over a window
    GET    /api/reconciliation/findings      Findings in a date range
    POST   /api/reconciliation/findings/{id}/review  Review an absence
    GET    /api/reconciliation/runs          Run audit trail

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario

ACTOR IDENTITY:
  Every mutation stamps the acting user from the X-Actor header, falling back
  to the system identity. There is no authentication; the header is trusted.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, domain rule violations
  - 404: Missing pattern/period/finding
  - 409: Window overlap, frozen period, idempotency conflicts
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/rota-engine/factory"
	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API needs from persistence: the scheduling ports,
// the reconciliation ports, and the shift-record write used to simulate field
// activity.
type Store interface {
	rota.TxStores
	reconcile.Store

	RecordShift(ctx context.Context, r rota.ActualShiftRecord) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          Store
	PatternFactory *factory.PatternFactory
	Lifecycle      *rota.Lifecycle
	Generator      *rota.SlotGenerator
	Engine         *reconcile.Engine
	Clock          rota.Clock
	Logger         *slog.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the engines over the given store.
func NewHandler(store Store, clock rota.Clock, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:          store,
		PatternFactory: factory.NewPatternFactory(),
		Lifecycle:      rota.NewLifecycle(store, clock),
		Generator:      rota.NewSlotGenerator(store, clock),
		Engine:         reconcile.NewEngine(store, store, store, store, clock, logger),
		Clock:          clock,
		Logger:         logger,
		validate:       validator.New(),
	}
}

// actor returns the acting-user identity for audit fields.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return rota.SystemActor
}

// decodeAndValidate parses the JSON body and runs struct validation.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// PATTERN HANDLERS
// =============================================================================

// ListPatterns returns all rotation patterns.
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.Store.ListPatterns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list patterns", err)
		return
	}

	dtos := make([]PatternDTO, len(patterns))
	for i, p := range patterns {
		dtos[i] = h.toPatternDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePattern creates a pattern from its JSON config.
func (h *Handler) CreatePattern(w http.ResponseWriter, r *http.Request) {
	var req CreatePatternRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	pattern, err := h.PatternFactory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pattern config", err)
		return
	}
	pattern.CreatedBy = actor(r)
	pattern.CreatedAt = h.Clock.Now()

	if err := h.Store.SavePattern(r.Context(), pattern); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pattern", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toPatternDTO(pattern))
}

// GetPattern returns a single pattern.
func (h *Handler) GetPattern(w http.ResponseWriter, r *http.Request) {
	id := rota.PatternID(chi.URLParam(r, "id"))

	pattern, err := h.Store.GetPattern(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get pattern", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPatternDTO(pattern))
}

func (h *Handler) toPatternDTO(p *rota.PatternDefinition) PatternDTO {
	return PatternDTO{
		ID:        string(p.ID),
		Name:      p.Name,
		Config:    h.PatternFactory.ToJSON(p),
		CreatedBy: p.CreatedBy,
		CreatedAt: formatRFC3339(p.CreatedAt),
	}
}

// =============================================================================
// CREW TIME WINDOW HANDLERS
// =============================================================================

// ListTimeWindows returns the full window history for a crew.
func (h *Handler) ListTimeWindows(w http.ResponseWriter, r *http.Request) {
	crewID := rota.CrewID(chi.URLParam(r, "crewID"))

	windows, err := h.Store.TimeWindowsForCrew(r.Context(), crewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time windows", err)
		return
	}

	dtos := make([]TimeWindowDTO, len(windows))
	for i, win := range windows {
		dtos[i] = toTimeWindowDTO(win)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTimeWindow declares new shift hours for a crew. The current
// open-ended window, if any, is closed the day before the new ValidFrom.
func (h *Handler) CreateTimeWindow(w http.ResponseWriter, r *http.Request) {
	crewID := rota.CrewID(chi.URLParam(r, "crewID"))

	var req CreateTimeWindowRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.CrewID != string(crewID) {
		writeError(w, http.StatusBadRequest, "Body crew_id does not match URL", nil)
		return
	}

	start, err := rota.ParseTimeOfDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	duration, err := rota.ParseHours(req.DurationHours)
	if err != nil || !duration.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid duration", err)
		return
	}
	validFrom, err := rota.ParseDate(req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid valid_from date", err)
		return
	}

	now := h.Clock.Now()
	who := actor(r)
	win := rota.CrewTimeWindow{
		ID:        uuid.NewString(),
		CrewID:    crewID,
		Start:     start,
		Duration:  duration,
		ValidFrom: validFrom,
		CreatedBy: who,
		CreatedAt: now,
		UpdatedBy: who,
		UpdatedAt: now,
	}
	if req.ValidTo != nil {
		to, err := rota.ParseDate(*req.ValidTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid valid_to date", err)
			return
		}
		if to.Before(validFrom) {
			writeError(w, http.StatusBadRequest, "valid_to before valid_from", nil)
			return
		}
		win.ValidTo = &to
	}

	err = h.Store.WithTx(r.Context(), func(s rota.Stores) error {
		existing, err := s.TimeWindowsForCrew(r.Context(), crewID)
		if err != nil {
			return err
		}
		closed, err := rota.PlanWindowInsert(existing, win)
		if err != nil {
			return err
		}
		for _, c := range closed {
			c.UpdatedBy = who
			c.UpdatedAt = now
			if err := s.SaveTimeWindow(r.Context(), c); err != nil {
				return err
			}
		}
		return s.SaveTimeWindow(r.Context(), win)
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save time window", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeWindowDTO(win))
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all schedule periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePeriod creates a draft period binding a crew to a pattern.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	start, err := rota.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := rota.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}
	rng := rota.DateRange{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period range", err)
		return
	}

	// The pattern must exist before a period can reference it.
	if _, err := h.Store.GetPattern(r.Context(), rota.PatternID(req.PatternID)); err != nil {
		h.writeDomainError(w, "Failed to resolve pattern", err)
		return
	}

	now := h.Clock.Now()
	who := actor(r)
	period := &rota.SchedulePeriod{
		ID:        rota.PeriodID(uuid.NewString()),
		CrewID:    rota.CrewID(req.CrewID),
		Pattern:   rota.PatternID(req.PatternID),
		Range:     rng,
		Status:    rota.StatusDraft,
		Version:   1,
		CreatedBy: who,
		CreatedAt: now,
		UpdatedBy: who,
		UpdatedAt: now,
	}
	if err := h.Store.SavePeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(period))
}

// GetPeriod returns a single period.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id := rota.PeriodID(chi.URLParam(r, "id"))

	period, err := h.Store.GetPeriod(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(period))
}

// GetPeriodSlots returns every slot of a period.
func (h *Handler) GetPeriodSlots(w http.ResponseWriter, r *http.Request) {
	id := rota.PeriodID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetPeriod(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	slots, err := h.Store.SlotsForPeriod(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list slots", err)
		return
	}
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateSlots plans an allocation from declared next-day-off anchors and
// materializes the period's slots.
func (h *Handler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	id := rota.PeriodID(chi.URLParam(r, "id"))

	var req GenerateSlotsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	period, err := h.Store.GetPeriod(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	pattern, err := h.Store.GetPattern(r.Context(), period.Pattern)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve pattern", err)
		return
	}

	members := make([]rota.CrewMember, len(req.Members))
	for i, m := range req.Members {
		dayOff, err := rota.ParseDate(m.NextDayOff)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid next_day_off date", err)
			return
		}
		members[i] = rota.CrewMember{
			Electrician: rota.ElectricianID(m.ElectricianID),
			NextDayOff:  dayOff,
		}
	}

	alloc, err := rota.PlanAllocation(pattern, period.Range, members)
	if err != nil {
		h.writeDomainError(w, "Allocation failed", err)
		return
	}

	slots, err := h.Generator.Generate(r.Context(), id, alloc, actor(r))
	if err != nil {
		h.writeDomainError(w, "Generation failed", err)
		return
	}

	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EditSlot applies a manual pre-publish override of one slot.
func (h *Handler) EditSlot(w http.ResponseWriter, r *http.Request) {
	id := rota.PeriodID(chi.URLParam(r, "id"))

	var req EditSlotRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := rota.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	slot, err := h.Generator.EditSlot(r.Context(), id, rota.SlotEdit{
		Date:        date,
		Electrician: rota.ElectricianID(req.ElectricianID),
		State:       rota.SlotState(req.State),
		DayNote:     req.DayNote,
	}, actor(r))
	if err != nil {
		h.writeDomainError(w, "Slot edit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTO(*slot))
}

// SubmitPeriod moves draft -> under_review.
func (h *Handler) SubmitPeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.SubmitForReview)
}

// SendBackPeriod moves under_review -> draft.
func (h *Handler) SendBackPeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.SendBack)
}

// PublishPeriod moves under_review -> published.
func (h *Handler) PublishPeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Publish)
}

// ArchivePeriod moves published -> archived.
func (h *Handler) ArchivePeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Archive)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, rota.PeriodID, string) (*rota.SchedulePeriod, error),
) {
	id := rota.PeriodID(chi.URLParam(r, "id"))
	period, err := op(r.Context(), id, actor(r))
	if err != nil {
		h.writeDomainError(w, "Transition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(period))
}

// RebalancePeriod swaps a work day between two electricians of a published
// period.
func (h *Handler) RebalancePeriod(w http.ResponseWriter, r *http.Request) {
	id := rota.PeriodID(chi.URLParam(r, "id"))

	var req RebalanceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := rota.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	err = h.Generator.Rebalance(r.Context(), id, date,
		rota.ElectricianID(req.From), rota.ElectricianID(req.To), req.Note, actor(r))
	if err != nil {
		h.writeDomainError(w, "Rebalance failed", err)
		return
	}

	slots, err := h.Store.SlotsForPeriodDate(r.Context(), id, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload slots", err)
		return
	}
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHIFT RECORD HANDLERS
// =============================================================================

// CreateShiftRecord stores an actual field shift (reconciliation input).
func (h *Handler) CreateShiftRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRecordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	openedAt, err := time.Parse(time.RFC3339, req.OpenedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opened_at timestamp", err)
		return
	}
	record := rota.ActualShiftRecord{
		ID:       uuid.NewString(),
		CrewID:   rota.CrewID(req.CrewID),
		OpenedAt: openedAt,
	}
	for _, e := range req.Electricians {
		record.Electricians = append(record.Electricians, rota.ElectricianID(e))
	}
	if req.ClosedAt != nil {
		closedAt, err := time.Parse(time.RFC3339, *req.ClosedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid closed_at timestamp", err)
			return
		}
		record.ClosedAt = &closedAt
	}

	if err := h.Store.RecordShift(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftRecordDTO(record))
}

// ListShiftRecords returns the actual shifts opened on a date.
func (h *Handler) ListShiftRecords(w http.ResponseWriter, r *http.Request) {
	date, err := rota.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing date parameter", err)
		return
	}
	records, err := h.Store.ShiftRecordsForDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shift records", err)
		return
	}
	dtos := make([]ShiftRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toShiftRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toShiftRecordDTO(r rota.ActualShiftRecord) ShiftRecordDTO {
	dto := ShiftRecordDTO{
		ID:       r.ID,
		CrewID:   string(r.CrewID),
		OpenedAt: formatRFC3339(r.OpenedAt),
	}
	for _, e := range r.Electricians {
		dto.Electricians = append(dto.Electricians, string(e))
	}
	if r.ClosedAt != nil {
		v := formatRFC3339(*r.ClosedAt)
		dto.ClosedAt = &v
	}
	return dto
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// TriggerReconcile runs the tolerant pass for one date.
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := rota.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	var crew *rota.CrewID
	if req.CrewID != nil {
		c := rota.CrewID(*req.CrewID)
		crew = &c
	}

	sum, err := h.Engine.Reconcile(r.Context(), date, crew, actor(r))
	if err != nil {
		h.writeDomainError(w, "Reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// TriggerForcedReconcile re-scans a date window, ignoring the grace margin.
func (h *Handler) TriggerForcedReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileForcedRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	from, err := rota.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := rota.ParseDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	sum, err := h.Engine.ReconcileForced(r.Context(), from, to, actor(r))
	if err != nil {
		// A cancelled window still processed some dates; report what we have.
		if sum != nil && errors.Is(err, context.Canceled) {
			writeJSON(w, http.StatusOK, toSummaryDTO(sum))
			return
		}
		h.writeDomainError(w, "Forced reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// ListFindings returns findings in an inclusive date range.
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	from, err := rota.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing from parameter", err)
		return
	}
	to, err := rota.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing to parameter", err)
		return
	}

	findings, err := h.Store.FindingsInRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list findings", err)
		return
	}
	dtos := make([]FindingDTO, len(findings))
	for i, f := range findings {
		dtos[i] = toFindingDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReviewAbsence resolves a pending absence as justified or rejected.
func (h *Handler) ReviewAbsence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReviewAbsenceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	finding, err := h.Engine.ReviewAbsence(r.Context(), id,
		reconcile.AbsenceStatus(req.Status), req.Note, actor(r))
	if err != nil {
		h.writeDomainError(w, "Review failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingDTO(*finding))
}

// ListReconciliationRuns returns the run audit trail, newest first.
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ERROR MAPPING / JSON HELPERS
// =============================================================================

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case rota.IsNotFound(err) || errors.Is(err, reconcile.ErrFindingNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, rota.ErrWindowOverlap) || errors.Is(err, rota.ErrPeriodFrozen):
		writeError(w, http.StatusConflict, message, err)
	case rota.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func formatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
