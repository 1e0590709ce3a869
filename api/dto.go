/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run the
  shared validator before touching domain logic. Domain invariants (pattern
  completeness, headcount, lifecycle guards) stay in the engine - the tags
  only reject structurally broken payloads early.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/pattern.go: PatternJSON type
*/
package api

import (
	"github.com/warp/rota-engine/factory"
	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// PATTERNS
// =============================================================================

// PatternDTO represents a rotation pattern in API responses.
type PatternDTO struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Config    factory.PatternJSON `json:"config"`
	CreatedBy string              `json:"created_by,omitempty"`
	CreatedAt string              `json:"created_at,omitempty"`
}

// CreatePatternRequest is the request to create a pattern.
type CreatePatternRequest struct {
	Config factory.PatternJSON `json:"config" validate:"required"`
}

// =============================================================================
// CREW TIME WINDOWS
// =============================================================================

// TimeWindowDTO represents one effective-dated shift time window.
type TimeWindowDTO struct {
	ID            string  `json:"id"`
	CrewID        string  `json:"crew_id"`
	Start         string  `json:"start"`
	DurationHours string  `json:"duration_hours"`
	ValidFrom     string  `json:"valid_from"`
	ValidTo       *string `json:"valid_to,omitempty"`
	Retired       bool    `json:"retired"`
}

// CreateTimeWindowRequest declares new shift hours for a crew. An existing
// open-ended window is superseded automatically; any other overlap is a 409.
type CreateTimeWindowRequest struct {
	CrewID        string  `json:"crew_id" validate:"required"`
	Start         string  `json:"start" validate:"required"`          // HH:MM
	DurationHours string  `json:"duration_hours" validate:"required"` // e.g. "8" or "7.5"
	ValidFrom     string  `json:"valid_from" validate:"required"`     // YYYY-MM-DD
	ValidTo       *string `json:"valid_to,omitempty"`
}

// =============================================================================
// SCHEDULE PERIODS
// =============================================================================

// PeriodDTO represents a schedule period.
type PeriodDTO struct {
	ID        string `json:"id"`
	CrewID    string `json:"crew_id"`
	PatternID string `json:"pattern_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	Version   int    `json:"version"`
	UpdatedBy string `json:"updated_by,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreatePeriodRequest creates a draft period binding a crew to a pattern.
type CreatePeriodRequest struct {
	CrewID    string `json:"crew_id" validate:"required"`
	PatternID string `json:"pattern_id" validate:"required"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// MemberAnchorDTO is one electrician with their declared next day off.
type MemberAnchorDTO struct {
	ElectricianID string `json:"electrician_id" validate:"required"`
	NextDayOff    string `json:"next_day_off" validate:"required"`
}

// GenerateSlotsRequest drives slot generation for a period.
type GenerateSlotsRequest struct {
	Members []MemberAnchorDTO `json:"members" validate:"required,min=1,dive"`
}

// =============================================================================
// SLOTS
// =============================================================================

// SlotDTO represents one planned day for one electrician.
type SlotDTO struct {
	PeriodID          string  `json:"period_id"`
	Date              string  `json:"date"`
	ElectricianID     string  `json:"electrician_id"`
	State             string  `json:"state"`
	Origin            string  `json:"origin"`
	PredictedStart    *string `json:"predicted_start,omitempty"`
	PredictedDuration *string `json:"predicted_duration,omitempty"`
	DayNote           string  `json:"day_note,omitempty"`
	UpdatedBy         string  `json:"updated_by,omitempty"`
}

// EditSlotRequest is a pre-publish hand override of one slot.
type EditSlotRequest struct {
	Date          string `json:"date" validate:"required"`
	ElectricianID string `json:"electrician_id" validate:"required"`
	State         string `json:"state" validate:"required,oneof=work off absent exception"`
	DayNote       string `json:"day_note,omitempty"`
}

// RebalanceRequest swaps a work day between two electricians of a published
// period.
type RebalanceRequest struct {
	Date string `json:"date" validate:"required"`
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required,nefield=From"`
	Note string `json:"note,omitempty"`
}

// =============================================================================
// ACTUAL SHIFT RECORDS
// =============================================================================

// ShiftRecordDTO represents an actual field shift.
type ShiftRecordDTO struct {
	ID           string   `json:"id"`
	CrewID       string   `json:"crew_id"`
	Electricians []string `json:"electricians"`
	OpenedAt     string   `json:"opened_at"`
	ClosedAt     *string  `json:"closed_at,omitempty"`
}

// CreateShiftRecordRequest records what actually happened in the field.
type CreateShiftRecordRequest struct {
	CrewID       string   `json:"crew_id" validate:"required"`
	Electricians []string `json:"electricians" validate:"required,min=1"`
	OpenedAt     string   `json:"opened_at" validate:"required"` // RFC3339
	ClosedAt     *string  `json:"closed_at,omitempty"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileRequest triggers a tolerant pass for one date.
type ReconcileRequest struct {
	Date   string  `json:"date" validate:"required"`
	CrewID *string `json:"crew_id,omitempty"`
}

// ReconcileForcedRequest triggers a forced pass over a date window.
type ReconcileForcedRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// SummaryDTO reports what a reconciliation pass did.
type SummaryDTO struct {
	Dates           int              `json:"dates"`
	Absences        int              `json:"absences"`
	Deviations      int              `json:"deviations"`
	Overtimes       int              `json:"overtimes"`
	AlreadyRecorded int              `json:"already_recorded"`
	Failures        []DateFailureDTO `json:"failures,omitempty"`
}

// DateFailureDTO is one date that could not be processed.
type DateFailureDTO struct {
	Date   string `json:"date"`
	CrewID string `json:"crew_id,omitempty"`
	Error  string `json:"error"`
}

// FindingDTO represents one reconciliation finding.
type FindingDTO struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	ElectricianID string  `json:"electrician_id"`
	Date          string  `json:"date"`
	CrewID        string  `json:"crew_id"`
	ActualCrew    string  `json:"actual_crew,omitempty"`
	ExpectedStart *string `json:"expected_start,omitempty"`
	OpenedAt      *string `json:"opened_at,omitempty"`
	Status        string  `json:"status,omitempty"`
	Note          string  `json:"note,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// ReviewAbsenceRequest resolves a pending absence.
type ReviewAbsenceRequest struct {
	Status string `json:"status" validate:"required,oneof=justified rejected"`
	Note   string `json:"note,omitempty"`
}

// RunDTO represents one reconciliation run record.
type RunDTO struct {
	ID          string  `json:"id"`
	Trigger     string  `json:"trigger"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	CrewID      *string `json:"crew_id,omitempty"`
	Absences    int     `json:"absences"`
	Deviations  int     `json:"deviations"`
	Overtimes   int     `json:"overtimes"`
	Failures    int     `json:"failures"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DTO CONVERTERS
// =============================================================================

func toPeriodDTO(p *rota.SchedulePeriod) PeriodDTO {
	return PeriodDTO{
		ID:        string(p.ID),
		CrewID:    string(p.CrewID),
		PatternID: string(p.Pattern),
		Start:     p.Range.Start.String(),
		End:       p.Range.End.String(),
		Status:    string(p.Status),
		Version:   p.Version,
		UpdatedBy: p.UpdatedBy,
		UpdatedAt: formatRFC3339(p.UpdatedAt),
	}
}

func toSlotDTO(s rota.Slot) SlotDTO {
	dto := SlotDTO{
		PeriodID:      string(s.PeriodID),
		Date:          s.Date.String(),
		ElectricianID: string(s.Electrician),
		State:         string(s.State),
		Origin:        string(s.Origin),
		DayNote:       s.DayNote,
		UpdatedBy:     s.UpdatedBy,
	}
	if s.PredictedStart != nil {
		v := s.PredictedStart.String()
		dto.PredictedStart = &v
	}
	if s.PredictedDuration != nil {
		v := s.PredictedDuration.String()
		dto.PredictedDuration = &v
	}
	return dto
}

func toTimeWindowDTO(w rota.CrewTimeWindow) TimeWindowDTO {
	dto := TimeWindowDTO{
		ID:            w.ID,
		CrewID:        string(w.CrewID),
		Start:         w.Start.String(),
		DurationHours: w.Duration.String(),
		ValidFrom:     w.ValidFrom.String(),
		Retired:       w.Retired,
	}
	if w.ValidTo != nil {
		v := w.ValidTo.String()
		dto.ValidTo = &v
	}
	return dto
}

func toFindingDTO(f reconcile.Finding) FindingDTO {
	dto := FindingDTO{
		ID:            f.ID,
		Kind:          string(f.Kind),
		ElectricianID: string(f.Electrician),
		Date:          f.Date.String(),
		CrewID:        string(f.CrewID),
		ActualCrew:    string(f.ActualCrew),
		Status:        string(f.Status),
		Note:          f.Note,
		CreatedAt:     formatRFC3339(f.CreatedAt),
	}
	if f.ExpectedStart != nil {
		v := f.ExpectedStart.String()
		dto.ExpectedStart = &v
	}
	if f.OpenedAt != nil {
		v := formatRFC3339(*f.OpenedAt)
		dto.OpenedAt = &v
	}
	return dto
}

func toSummaryDTO(s *reconcile.Summary) SummaryDTO {
	dto := SummaryDTO{
		Dates:           s.Dates,
		Absences:        s.Absences,
		Deviations:      s.Deviations,
		Overtimes:       s.Overtimes,
		AlreadyRecorded: s.AlreadyRecorded,
	}
	for _, f := range s.Failures {
		dto.Failures = append(dto.Failures, DateFailureDTO{
			Date:   f.Date.String(),
			CrewID: string(f.Crew),
			Error:  f.Err,
		})
	}
	return dto
}

func toRunDTO(r reconcile.Run) RunDTO {
	dto := RunDTO{
		ID:         r.ID,
		Trigger:    string(r.Trigger),
		From:       r.From.String(),
		To:         r.To.String(),
		Absences:   r.Absences,
		Deviations: r.Deviations,
		Overtimes:  r.Overtimes,
		Failures:   r.Failures,
		StartedAt:  formatRFC3339(r.StartedAt),
		CreatedBy:  r.CreatedBy,
	}
	if r.Crew != nil {
		v := string(*r.Crew)
		dto.CrewID = &v
	}
	if r.CompletedAt != nil {
		v := formatRFC3339(*r.CompletedAt)
		dto.CompletedAt = &v
	}
	return dto
}
