package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/npcbrain/internal/game/combat"
)

// ErrMemoryNotFound is returned when no memory is stored for an NPC.
var ErrMemoryNotFound = errors.New("npc memory not found")

// MemoryRepository stores combat memory snapshots keyed by NPC ID.
type MemoryRepository struct {
	db *pgxpool.Pool
}

// NewMemoryRepository creates a MemoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMemoryRepository(db *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Save upserts the current contents of m for npcID.
//
// Precondition: m must be non-nil.
// Postcondition: A later Load(npcID) restores an equivalent memory.
func (r *MemoryRepository) Save(ctx context.Context, npcID uuid.UUID, m *combat.Memory) error {
	s := m.Snapshot()
	var last *time.Time
	if !s.LastModelDecision.IsZero() {
		t := s.LastModelDecision.UTC()
		last = &t
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO npc_memories
			(npc_id, total_encounters, success_rate, last_model_decision, encounters, strategies, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (npc_id) DO UPDATE SET
			total_encounters    = EXCLUDED.total_encounters,
			success_rate        = EXCLUDED.success_rate,
			last_model_decision = EXCLUDED.last_model_decision,
			encounters          = EXCLUDED.encounters,
			strategies          = EXCLUDED.strategies,
			updated_at          = NOW()`,
		npcID, s.TotalEncounters, s.SuccessRate, last, s.Encounters, s.Strategies,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("saving memory for %s: out-of-range value: %w", npcID, err)
		}
		return fmt.Errorf("saving memory for %s: %w", npcID, err)
	}
	return nil
}

// Load restores the memory stored for npcID.
//
// Postcondition: Returns the memory or ErrMemoryNotFound.
func (r *MemoryRepository) Load(ctx context.Context, npcID uuid.UUID) (*combat.Memory, error) {
	var (
		s    combat.MemorySnapshot
		last *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT total_encounters, success_rate, last_model_decision, encounters, strategies
		FROM npc_memories WHERE npc_id = $1`,
		npcID,
	).Scan(&s.TotalEncounters, &s.SuccessRate, &last, &s.Encounters, &s.Strategies)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("loading memory for %s: %w", npcID, err)
	}
	if last != nil {
		s.LastModelDecision = *last
	}
	return combat.RestoreMemory(s), nil
}

// Delete removes the memory stored for npcID. Deleting a missing row is not an error.
func (r *MemoryRepository) Delete(ctx context.Context, npcID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM npc_memories WHERE npc_id = $1`, npcID); err != nil {
		return fmt.Errorf("deleting memory for %s: %w", npcID, err)
	}
	return nil
}
