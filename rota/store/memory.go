// Package store provides in-memory implementations of the persistence ports.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/warp/rota-engine/reconcile"
	"github.com/warp/rota-engine/rota"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// ErrWriteFailureInjected is returned by the fault-injection hook below.
var ErrWriteFailureInjected = errors.New("injected write failure")

// Memory implements rota.TxStores and reconcile.Store.
type Memory struct {
	mu sync.RWMutex

	patterns map[rota.PatternID]*rota.PatternDefinition
	windows  map[rota.CrewID][]rota.CrewTimeWindow
	periods  map[rota.PeriodID]*rota.SchedulePeriod
	slots    map[rota.PeriodID][]rota.Slot
	shifts   map[string][]rota.ActualShiftRecord // keyed by date string

	findings    map[string]reconcile.Finding // by id
	findingKeys map[string]string            // natural key -> id
	runs        []reconcile.Run

	// FailAfterSlotWrites simulates a mid-write failure: ReplaceGeneratedSlots
	// errors after inserting this many slots. Negative disables. Used by
	// atomicity tests.
	FailAfterSlotWrites int
}

func NewMemory() *Memory {
	return &Memory{
		patterns:            make(map[rota.PatternID]*rota.PatternDefinition),
		windows:             make(map[rota.CrewID][]rota.CrewTimeWindow),
		periods:             make(map[rota.PeriodID]*rota.SchedulePeriod),
		slots:               make(map[rota.PeriodID][]rota.Slot),
		shifts:              make(map[string][]rota.ActualShiftRecord),
		findings:            make(map[string]reconcile.Finding),
		findingKeys:         make(map[string]string),
		FailAfterSlotWrites: -1,
	}
}

// =============================================================================
// PATTERNS
// =============================================================================

func (m *Memory) SavePattern(_ context.Context, p *rota.PatternDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.patterns[p.ID] = &cp
	return nil
}

func (m *Memory) GetPattern(_ context.Context, id rota.PatternID) (*rota.PatternDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patterns[id]
	if !ok {
		return nil, rota.ErrPatternNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPatterns(_ context.Context) ([]*rota.PatternDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*rota.PatternDefinition, 0, len(m.patterns))
	for _, p := range m.patterns {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// TIME WINDOWS
// =============================================================================

func (m *Memory) SaveTimeWindow(_ context.Context, w rota.CrewTimeWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	windows := m.windows[w.CrewID]
	for i, e := range windows {
		if e.ID == w.ID {
			windows[i] = w
			return nil
		}
	}
	m.windows[w.CrewID] = append(windows, w)
	return nil
}

func (m *Memory) TimeWindowsForCrew(_ context.Context, crewID rota.CrewID) ([]rota.CrewTimeWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]rota.CrewTimeWindow{}, m.windows[crewID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].ValidFrom.Before(result[j].ValidFrom) })
	return result, nil
}

// =============================================================================
// PERIODS
// =============================================================================

func (m *Memory) SavePeriod(_ context.Context, p *rota.SchedulePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.periods[p.ID] = &cp
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, id rota.PeriodID) (*rota.SchedulePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, rota.ErrPeriodNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPeriods(_ context.Context) ([]*rota.SchedulePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*rota.SchedulePeriod, 0, len(m.periods))
	for _, p := range m.periods {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PeriodsCovering(_ context.Context, date rota.Date, crew *rota.CrewID) ([]*rota.SchedulePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*rota.SchedulePeriod
	for _, p := range m.periods {
		if !p.Range.Contains(date) {
			continue
		}
		if crew != nil && p.CrewID != *crew {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// SLOTS
// =============================================================================

func (m *Memory) SlotsForPeriod(_ context.Context, periodID rota.PeriodID) ([]rota.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]rota.Slot{}, m.slots[periodID]...)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Electrician < result[j].Electrician
	})
	return result, nil
}

func (m *Memory) SlotsForPeriodDate(_ context.Context, periodID rota.PeriodID, date rota.Date) ([]rota.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []rota.Slot
	for _, s := range m.slots[periodID] {
		if s.Date.Equal(date) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) SaveSlot(_ context.Context, slot rota.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := m.slots[slot.PeriodID]
	for i, s := range slots {
		if s.Date.Equal(slot.Date) && s.Electrician == slot.Electrician {
			slots[i] = slot
			return nil
		}
	}
	m.slots[slot.PeriodID] = append(slots, slot)
	return nil
}

func (m *Memory) ReplaceGeneratedSlots(_ context.Context, periodID rota.PeriodID, slots []rota.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []rota.Slot
	for _, s := range m.slots[periodID] {
		if s.Origin != rota.OriginGenerated {
			kept = append(kept, s)
		}
	}
	for i, s := range slots {
		if m.FailAfterSlotWrites >= 0 && i >= m.FailAfterSlotWrites {
			return ErrWriteFailureInjected
		}
		kept = append(kept, s)
	}
	m.slots[periodID] = kept
	return nil
}

// =============================================================================
// ACTUAL SHIFT RECORDS
// =============================================================================

// RecordShift stores an actual shift record (the engine itself never writes
// these; tests and the surrounding app layer do).
func (m *Memory) RecordShift(_ context.Context, r rota.ActualShiftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := rota.DateOf(r.OpenedAt).String()
	m.shifts[day] = append(m.shifts[day], r)
	return nil
}

func (m *Memory) ShiftRecordsForDate(_ context.Context, date rota.Date) ([]rota.ActualShiftRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]rota.ActualShiftRecord{}, m.shifts[date.String()]...), nil
}

// =============================================================================
// FINDINGS / RUNS (reconcile.Store)
// =============================================================================

func findingKey(f reconcile.Finding) string {
	return string(f.Electrician) + "|" + f.Date.String() + "|" + string(f.Kind)
}

func (m *Memory) SaveFinding(_ context.Context, f reconcile.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := findingKey(f)
	if _, exists := m.findingKeys[key]; exists {
		return reconcile.ErrAlreadyReconciled
	}
	m.findings[f.ID] = f
	m.findingKeys[key] = f.ID
	return nil
}

func (m *Memory) UpdateFinding(_ context.Context, f reconcile.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findings[f.ID]; !ok {
		return reconcile.ErrFindingNotFound
	}
	m.findings[f.ID] = f
	return nil
}

func (m *Memory) GetFinding(_ context.Context, id string) (*reconcile.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.findings[id]
	if !ok {
		return nil, reconcile.ErrFindingNotFound
	}
	return &f, nil
}

func (m *Memory) FindingsInRange(_ context.Context, from, to rota.Date) ([]reconcile.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []reconcile.Finding
	for _, f := range m.findings {
		if f.Date.AfterOrEqual(from) && f.Date.BeforeOrEqual(to) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Electrician < result[j].Electrician
	})
	return result, nil
}

func (m *Memory) SaveRun(_ context.Context, r reconcile.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) ListRuns(_ context.Context) ([]reconcile.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]reconcile.Run{}, m.runs...), nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on error
// =============================================================================

// WithTx executes fn against the store. For the memory implementation this
// is simulated with a deep snapshot restored when fn fails, which is exactly
// the all-or-nothing behavior the generation atomicity tests rely on.
func (m *Memory) WithTx(ctx context.Context, fn func(rota.Stores) error) error {
	snapshot := m.snapshot()
	if err := fn((*txView)(m)); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	patterns map[rota.PatternID]*rota.PatternDefinition
	windows  map[rota.CrewID][]rota.CrewTimeWindow
	periods  map[rota.PeriodID]*rota.SchedulePeriod
	slots    map[rota.PeriodID][]rota.Slot
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := memorySnapshot{
		patterns: make(map[rota.PatternID]*rota.PatternDefinition, len(m.patterns)),
		windows:  make(map[rota.CrewID][]rota.CrewTimeWindow, len(m.windows)),
		periods:  make(map[rota.PeriodID]*rota.SchedulePeriod, len(m.periods)),
		slots:    make(map[rota.PeriodID][]rota.Slot, len(m.slots)),
	}
	for k, v := range m.patterns {
		cp := *v
		s.patterns[k] = &cp
	}
	for k, v := range m.windows {
		s.windows[k] = append([]rota.CrewTimeWindow{}, v...)
	}
	for k, v := range m.periods {
		cp := *v
		s.periods[k] = &cp
	}
	for k, v := range m.slots {
		s.slots[k] = append([]rota.Slot{}, v...)
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = s.patterns
	m.windows = s.windows
	m.periods = s.periods
	m.slots = s.slots
}

// txView is the transactional face of Memory handed to WithTx callbacks.
// Writes go straight through; rollback happens via snapshot restore.
type txView Memory

func (tv *txView) SavePattern(ctx context.Context, p *rota.PatternDefinition) error {
	return (*Memory)(tv).SavePattern(ctx, p)
}
func (tv *txView) GetPattern(ctx context.Context, id rota.PatternID) (*rota.PatternDefinition, error) {
	return (*Memory)(tv).GetPattern(ctx, id)
}
func (tv *txView) ListPatterns(ctx context.Context) ([]*rota.PatternDefinition, error) {
	return (*Memory)(tv).ListPatterns(ctx)
}
func (tv *txView) SaveTimeWindow(ctx context.Context, w rota.CrewTimeWindow) error {
	return (*Memory)(tv).SaveTimeWindow(ctx, w)
}
func (tv *txView) TimeWindowsForCrew(ctx context.Context, crewID rota.CrewID) ([]rota.CrewTimeWindow, error) {
	return (*Memory)(tv).TimeWindowsForCrew(ctx, crewID)
}
func (tv *txView) SavePeriod(ctx context.Context, p *rota.SchedulePeriod) error {
	return (*Memory)(tv).SavePeriod(ctx, p)
}
func (tv *txView) GetPeriod(ctx context.Context, id rota.PeriodID) (*rota.SchedulePeriod, error) {
	return (*Memory)(tv).GetPeriod(ctx, id)
}
func (tv *txView) ListPeriods(ctx context.Context) ([]*rota.SchedulePeriod, error) {
	return (*Memory)(tv).ListPeriods(ctx)
}
func (tv *txView) PeriodsCovering(ctx context.Context, date rota.Date, crew *rota.CrewID) ([]*rota.SchedulePeriod, error) {
	return (*Memory)(tv).PeriodsCovering(ctx, date, crew)
}
func (tv *txView) SlotsForPeriod(ctx context.Context, periodID rota.PeriodID) ([]rota.Slot, error) {
	return (*Memory)(tv).SlotsForPeriod(ctx, periodID)
}
func (tv *txView) SlotsForPeriodDate(ctx context.Context, periodID rota.PeriodID, date rota.Date) ([]rota.Slot, error) {
	return (*Memory)(tv).SlotsForPeriodDate(ctx, periodID, date)
}
func (tv *txView) SaveSlot(ctx context.Context, s rota.Slot) error {
	return (*Memory)(tv).SaveSlot(ctx, s)
}
func (tv *txView) ReplaceGeneratedSlots(ctx context.Context, periodID rota.PeriodID, slots []rota.Slot) error {
	return (*Memory)(tv).ReplaceGeneratedSlots(ctx, periodID, slots)
}
func (tv *txView) ShiftRecordsForDate(ctx context.Context, date rota.Date) ([]rota.ActualShiftRecord, error) {
	return (*Memory)(tv).ShiftRecordsForDate(ctx, date)
}
