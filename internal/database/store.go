// Package database implements the Postgres-backed store for player
// profiles, coin balances and match summaries.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// startingCoins seeds a freshly created profile.
const startingCoins = 1000

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies the connection.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			coins BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS matches (
			session_id UUID PRIMARY KEY,
			bet BIGINT NOT NULL,
			draw BOOLEAN NOT NULL,
			winners JSONB NOT NULL,
			loser UUID,
			deltas JSONB NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetOrCreateUser fetches the profile, creating it with the starting
// balance on first sight. The stored name follows the token's name so a
// rename sticks.
func (s *Store) GetOrCreateUser(ctx context.Context, id uuid.UUID, name string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, coins) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, coins
	`, id, name, startingCoins).Scan(&user.ID, &user.Name, &user.Coins)
	if err != nil {
		return models.User{}, fmt.Errorf("get or create user %s: %w", id, err)
	}
	return user, nil
}

// ApplyMatchResult applies every coin delta in one transaction. Balances
// never go below zero; a short stack pays what it has.
func (s *Store) ApplyMatchResult(ctx context.Context, res models.MatchResult) error {
	if len(res.Deltas) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin balance tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for playerID, delta := range res.Deltas {
		if _, err := tx.Exec(ctx, `
			UPDATE users SET coins = GREATEST(coins + $2, 0) WHERE id = $1
		`, playerID, delta); err != nil {
			return fmt.Errorf("apply delta for %s: %w", playerID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit balance tx: %w", err)
	}
	return nil
}

// SaveMatchSummary inserts the write-only archive row.
func (s *Store) SaveMatchSummary(ctx context.Context, res models.MatchResult) error {
	winners, err := json.Marshal(res.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	deltas, err := json.Marshal(res.Deltas)
	if err != nil {
		return fmt.Errorf("marshal deltas: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO matches (session_id, bet, draw, winners, loser, deltas)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING
	`, res.SessionID, res.Bet, res.Draw, winners, res.Loser, deltas)
	if err != nil {
		return fmt.Errorf("insert match summary: %w", err)
	}
	return nil
}
