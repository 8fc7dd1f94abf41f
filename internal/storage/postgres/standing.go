package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
)

// ErrStandingNotFound is returned when a trader has never dealt with a customer.
var ErrStandingNotFound = errors.New("trader standing not found")

// Standing is a trader's persisted view of one customer.
type Standing struct {
	Reputation float64
	Trust      float64
	Friendship float64
	// Trades counts settled negotiations.
	Trades int
}

// Apply copies the standing into live records. Nil records are skipped.
func (s Standing) Apply(rep *actor.Reputation, rel *actor.Relationship) {
	if rep != nil {
		rep.Adjust(s.Reputation - rep.Value())
	}
	if rel != nil {
		rel.SetTrust(s.Trust)
		rel.SetFriendship(s.Friendship)
	}
}

// StandingOf captures live records as a Standing. Nil records read as zero.
func StandingOf(rep *actor.Reputation, rel *actor.Relationship, trades int) Standing {
	s := Standing{Reputation: rep.Value(), Trades: trades}
	if rel != nil {
		s.Trust = rel.Trust()
		s.Friendship = rel.Friendship()
	}
	return s
}

// StandingRepository stores standings keyed by (trader, customer).
type StandingRepository struct {
	db *pgxpool.Pool
}

// NewStandingRepository creates a StandingRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewStandingRepository(db *pgxpool.Pool) *StandingRepository {
	return &StandingRepository{db: db}
}

// Save upserts the standing of trader toward customer.
//
// Postcondition: Returns an error wrapping the constraint failure when a
// value is outside [-1, 1].
func (r *StandingRepository) Save(ctx context.Context, trader, customer uuid.UUID, s Standing) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trader_standings
			(trader_id, customer_id, reputation, trust, friendship, trades, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (trader_id, customer_id) DO UPDATE SET
			reputation = EXCLUDED.reputation,
			trust      = EXCLUDED.trust,
			friendship = EXCLUDED.friendship,
			trades     = EXCLUDED.trades,
			updated_at = NOW()`,
		trader, customer, s.Reputation, s.Trust, s.Friendship, s.Trades,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("saving standing %s->%s: out-of-range value: %w", trader, customer, err)
		}
		return fmt.Errorf("saving standing %s->%s: %w", trader, customer, err)
	}
	return nil
}

// Load returns the standing of trader toward customer.
//
// Postcondition: Returns the standing or ErrStandingNotFound.
func (r *StandingRepository) Load(ctx context.Context, trader, customer uuid.UUID) (Standing, error) {
	var s Standing
	err := r.db.QueryRow(ctx, `
		SELECT reputation, trust, friendship, trades
		FROM trader_standings WHERE trader_id = $1 AND customer_id = $2`,
		trader, customer,
	).Scan(&s.Reputation, &s.Trust, &s.Friendship, &s.Trades)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Standing{}, ErrStandingNotFound
		}
		return Standing{}, fmt.Errorf("loading standing %s->%s: %w", trader, customer, err)
	}
	return s, nil
}

// ListByTrader returns every customer standing held by trader.
//
// Postcondition: Returns a non-nil map (may be empty) or a non-nil error.
func (r *StandingRepository) ListByTrader(ctx context.Context, trader uuid.UUID) (map[uuid.UUID]Standing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT customer_id, reputation, trust, friendship, trades
		FROM trader_standings WHERE trader_id = $1`,
		trader,
	)
	if err != nil {
		return nil, fmt.Errorf("listing standings for %s: %w", trader, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Standing)
	for rows.Next() {
		var (
			customer uuid.UUID
			s        Standing
		)
		if err := rows.Scan(&customer, &s.Reputation, &s.Trust, &s.Friendship, &s.Trades); err != nil {
			return nil, fmt.Errorf("scanning standing row: %w", err)
		}
		out[customer] = s
	}
	return out, rows.Err()
}
