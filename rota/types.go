/*
Package rota provides the core crew-rotation scheduling engine.

PURPOSE:
  This package contains the domain types and algorithms for planning which
  electricians work on which calendar days. A reusable rotation pattern
  ("4 on / 2 off", "Spanish schedule") is bound to a crew for a date range,
  materialized into per-day slots, and later compared against what actually
  happened in the field (see the reconcile package).

KEY CONCEPTS IN THIS FILE (types.go):
  - DayStatus:  What a pattern says about a day (work/off)
  - SlotState:  The planned state of one electrician on one date
  - SlotOrigin: How a slot came to be (generated, manual, rebalanced)
  - Hours:      A decimal quantity of hours (supports fractional durations)
  - TimeOfDay:  A wall-clock start time without a date

DESIGN PRINCIPLES:
  1. Determinism: Pattern resolution is a pure function of its inputs
  2. Precision: Uses decimal.Decimal for duration arithmetic
  3. Type Safety: Strong typing for IDs prevents mixing crew/electrician IDs
  4. Auditability: Every mutation carries an acting-user identity

SEE ALSO:
  - pattern.go: Rotation pattern definitions and day-status resolution
  - slots.go: Slot model and generation
  - period.go: Schedule period lifecycle
*/
package rota

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CrewID string
type ElectricianID string
type PatternID string
type PeriodID string

// SystemActor is the audit identity used when no human user is in context
// (scheduled jobs, seed loaders).
const SystemActor = "system"

// =============================================================================
// DAY STATUS - What a pattern prescribes for a day
// =============================================================================

type DayStatus string

const (
	StatusWork DayStatus = "work"
	StatusOff  DayStatus = "off"
)

// =============================================================================
// SLOT STATE / ORIGIN
// =============================================================================

// SlotState is the planned state of one electrician on one date.
type SlotState string

const (
	SlotWork      SlotState = "work"
	SlotOff       SlotState = "off"
	SlotAbsent    SlotState = "absent"
	SlotException SlotState = "exception"
)

// SlotOrigin records how a slot came to exist. Regeneration replaces
// generated slots but must never touch manual ones.
type SlotOrigin string

const (
	OriginGenerated  SlotOrigin = "generated"
	OriginManual     SlotOrigin = "manual"
	OriginRebalanced SlotOrigin = "rebalanced"
)

// =============================================================================
// HOURS - Decimal quantity of hours
// =============================================================================

// Hours is a duration expressed in hours. Decimal so that shift lengths
// like 7.5h survive arithmetic without floating-point drift.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(value float64) Hours {
	return Hours{Value: decimal.NewFromFloat(value)}
}

func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, fmt.Errorf("invalid hours %q: %w", s, err)
	}
	return Hours{Value: d}, nil
}

func (h Hours) Add(o Hours) Hours      { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours      { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) IsZero() bool           { return h.Value.IsZero() }
func (h Hours) IsPositive() bool       { return h.Value.IsPositive() }
func (h Hours) Equal(o Hours) bool     { return h.Value.Equal(o.Value) }
func (h Hours) Float64() float64       { f, _ := h.Value.Float64(); return f }
func (h Hours) String() string         { return h.Value.String() }

// Minutes returns the duration as whole minutes, truncating sub-minute parts.
func (h Hours) Minutes() int {
	return int(h.Value.Mul(decimal.NewFromInt(60)).IntPart())
}

// =============================================================================
// TIME OF DAY - Wall-clock start time without a date
// =============================================================================

// TimeOfDay is a start time within a day, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (use HH:MM)", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MinutesSinceMidnight() int {
	return t.Hour*60 + t.Minute
}
