package combat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	successRateWeight  = 0.1
	initialSuccessRate = 0.5

	maxEncounterEntries = 1000
	maxStrategyEntries  = 50
)

// Memory is an NPC's long-lived combat history. All methods are safe for
// concurrent use.
type Memory struct {
	mu               sync.RWMutex
	encounters       map[uuid.UUID]int
	strategies       map[string]Decision
	lastModelDecided time.Time
	totalEncounters  int
	successRate      float64
}

// NewMemory returns an empty Memory with a neutral success rate.
func NewMemory() *Memory {
	return &Memory{
		encounters:  make(map[uuid.UUID]int),
		strategies:  make(map[string]Decision),
		successRate: initialSuccessRate,
	}
}

// RecordEncounter counts one encounter with enemy.
//
// Postcondition: EncounterCount(enemy) and TotalEncounters() each grow by one.
func (m *Memory) RecordEncounter(enemy uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encounters[enemy]++
	m.totalEncounters++
}

// EncounterCount returns how many times enemy has been met.
func (m *Memory) EncounterCount(enemy uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.encounters[enemy]
}

// TotalEncounters returns the number of encounters ever recorded.
func (m *Memory) TotalEncounters() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalEncounters
}

// LearnStrategy files d under category, replacing any previous entry.
func (m *Memory) LearnStrategy(category string, d Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[category] = d
}

// LearnedStrategy returns the decision filed under category.
func (m *Memory) LearnedStrategy(category string) (Decision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.strategies[category]
	return d, ok
}

// MarkModelDecision records when the model last produced a decision.
func (m *Memory) MarkModelDecision(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastModelDecided = at
}

// LastModelDecision returns the time of the last model decision, or the zero time.
func (m *Memory) LastModelDecision() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastModelDecided
}

// RecordOutcome folds a combat outcome into the exponential moving average
// success rate.
//
// Postcondition: 0 <= SuccessRate() <= 1.
func (m *Memory) RecordOutcome(success bool) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successRate = (1-successRateWeight)*m.successRate + successRateWeight*outcome
}

// SuccessRate returns the moving-average success rate.
func (m *Memory) SuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successRate
}

// Cleanup drops the encounter table once it exceeds 1000 enemies and the
// strategy table once it exceeds 50 categories.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.encounters) > maxEncounterEntries {
		m.encounters = make(map[uuid.UUID]int)
	}
	if len(m.strategies) > maxStrategyEntries {
		m.strategies = make(map[string]Decision)
	}
}

// MemorySnapshot is a point-in-time copy of a Memory for persistence.
type MemorySnapshot struct {
	Encounters        map[uuid.UUID]int
	Strategies        map[string]Record
	LastModelDecision time.Time
	TotalEncounters   int
	SuccessRate       float64
}

// Snapshot copies the current memory.
func (m *Memory) Snapshot() MemorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := MemorySnapshot{
		Encounters:        make(map[uuid.UUID]int, len(m.encounters)),
		Strategies:        make(map[string]Record, len(m.strategies)),
		LastModelDecision: m.lastModelDecided,
		TotalEncounters:   m.totalEncounters,
		SuccessRate:       m.successRate,
	}
	for k, v := range m.encounters {
		s.Encounters[k] = v
	}
	for k, v := range m.strategies {
		s.Strategies[k] = v.Record()
	}
	return s
}

// RestoreMemory rebuilds a Memory from a snapshot. The total encounter count
// is never lower than the sum of per-enemy counts, and the success rate is
// clamped to [0, 1].
func RestoreMemory(s MemorySnapshot) *Memory {
	m := NewMemory()
	sum := 0
	for k, v := range s.Encounters {
		if v <= 0 {
			continue
		}
		m.encounters[k] = v
		sum += v
	}
	for k, r := range s.Strategies {
		m.strategies[k] = FromRecord(r)
	}
	m.lastModelDecided = s.LastModelDecision
	m.totalEncounters = max(s.TotalEncounters, sum, 0)
	m.successRate = min(1, max(0, s.SuccessRate))
	return m
}
