/*
Package factory provides JSON to Go pattern conversion.

PURPOSE:
  Converts JSON rotation-pattern definitions into rota.PatternDefinition
  values. This enables pattern configuration without code changes - planners
  can define rotations in JSON, and the factory creates the proper Go structs.

JSON SCHEMA (cycle mode):
  {
    "id": "four-on-two-off",
    "name": "4 on / 2 off",
    "mode": "cycle_days",
    "cycle": ["work", "work", "work", "work", "off", "off"],
    "required_headcount": 2
  }

JSON SCHEMA (week-dependent mode):
  {
    "id": "spanish",
    "name": "Spanish schedule",
    "mode": "week_dependent",
    "weeks": [
      {"mon": "work", "tue": "work", ..., "sun": "off"},
      {"mon": "work", ..., "sat": "work", "sun": "work"}
    ],
    "required_headcount": 3
  }

  Every position / weekday cell must be present: the engine refuses
  incomplete patterns rather than defaulting a day status.

USAGE:
  factory := NewPatternFactory()
  pattern, err := factory.ParsePattern(jsonString)

SEE ALSO:
  - rota/pattern.go: PatternDefinition and the completeness invariant
  - api/handlers.go: Pattern creation endpoint
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PatternJSON is the JSON representation of a rotation pattern.
type PatternJSON struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Mode              string              `json:"mode"` // cycle_days, week_dependent
	Cycle             []string            `json:"cycle,omitempty"`
	Weeks             []map[string]string `json:"weeks,omitempty"`
	RequiredHeadcount int                 `json:"required_headcount"`
	Active            *bool               `json:"active,omitempty"` // default true
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// =============================================================================
// PATTERN FACTORY
// =============================================================================

// PatternFactory converts JSON patterns to Go structs.
type PatternFactory struct{}

func NewPatternFactory() *PatternFactory {
	return &PatternFactory{}
}

// ParsePattern parses a JSON string into a validated PatternDefinition.
func (f *PatternFactory) ParsePattern(jsonStr string) (*rota.PatternDefinition, error) {
	var pj PatternJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse pattern JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PatternJSON to a validated PatternDefinition.
func (f *PatternFactory) FromJSON(pj PatternJSON) (*rota.PatternDefinition, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("pattern id is required")
	}

	p := &rota.PatternDefinition{
		ID:                rota.PatternID(pj.ID),
		Name:              pj.Name,
		RequiredHeadcount: pj.RequiredHeadcount,
		Active:            true,
	}
	if pj.Active != nil {
		p.Active = *pj.Active
	}

	switch pj.Mode {
	case string(rota.ModeCycleDays):
		p.Mode = rota.ModeCycleDays
		p.CycleLength = len(pj.Cycle)
		p.CycleStatus = make(map[int]rota.DayStatus, len(pj.Cycle))
		for i, s := range pj.Cycle {
			status, err := parseStatus(s)
			if err != nil {
				return nil, fmt.Errorf("cycle position %d: %w", i, err)
			}
			p.CycleStatus[i] = status
		}

	case string(rota.ModeWeekDependent):
		p.Mode = rota.ModeWeekDependent
		p.WeeksInCycle = len(pj.Weeks)
		p.WeekStatus = make(map[rota.WeekCell]rota.DayStatus)
		for i, week := range pj.Weeks {
			for name, s := range week {
				wd, ok := weekdayNames[name]
				if !ok {
					return nil, fmt.Errorf("week %d: unknown weekday %q", i, name)
				}
				status, err := parseStatus(s)
				if err != nil {
					return nil, fmt.Errorf("week %d %s: %w", i, name, err)
				}
				p.WeekStatus[rota.WeekCell{Week: i, Weekday: wd}] = status
			}
		}

	default:
		return nil, fmt.Errorf("unknown pattern mode %q", pj.Mode)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ToJSON converts a PatternDefinition back to its JSON representation.
func (f *PatternFactory) ToJSON(p *rota.PatternDefinition) PatternJSON {
	pj := PatternJSON{
		ID:                string(p.ID),
		Name:              p.Name,
		Mode:              string(p.Mode),
		RequiredHeadcount: p.RequiredHeadcount,
	}
	active := p.Active
	pj.Active = &active

	switch p.Mode {
	case rota.ModeCycleDays:
		pj.Cycle = make([]string, p.CycleLength)
		for i := 0; i < p.CycleLength; i++ {
			pj.Cycle[i] = string(p.CycleStatus[i])
		}
	case rota.ModeWeekDependent:
		names := map[time.Weekday]string{}
		for name, wd := range weekdayNames {
			names[wd] = name
		}
		pj.Weeks = make([]map[string]string, p.WeeksInCycle)
		for w := 0; w < p.WeeksInCycle; w++ {
			week := make(map[string]string, 7)
			for wd := time.Sunday; wd <= time.Saturday; wd++ {
				if st, ok := p.WeekStatus[rota.WeekCell{Week: w, Weekday: wd}]; ok {
					week[names[wd]] = string(st)
				}
			}
			pj.Weeks[w] = week
		}
	}
	return pj
}

func parseStatus(s string) (rota.DayStatus, error) {
	switch s {
	case string(rota.StatusWork):
		return rota.StatusWork, nil
	case string(rota.StatusOff):
		return rota.StatusOff, nil
	default:
		return "", fmt.Errorf("unknown day status %q", s)
	}
}
