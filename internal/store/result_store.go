package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcheon/KCU/internal/matchmaking"
)

// ResultStore writes finalized match outcomes to Postgres. It is the
// production matchmaking.ScoreStore: one transaction inserts the
// match_results row and bumps both players' win/loss counters.
type ResultStore struct {
	db *pgxpool.Pool
}

func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Persist(ctx context.Context, o matchmaking.Outcome) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO match_results (match_id, winner_id, loser_id, recorded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, o.MatchID, o.Winner, o.Loser, o.RecordedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO player_stats (user_id, wins, losses)
		VALUES ($1, 1, 0)
		ON CONFLICT (user_id)
		DO UPDATE SET wins = player_stats.wins + 1, updated_at = now()
	`, o.Winner)
	if err != nil {
		return 0, fmt.Errorf("update winner stats: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO player_stats (user_id, wins, losses)
		VALUES ($1, 0, 1)
		ON CONFLICT (user_id)
		DO UPDATE SET losses = player_stats.losses + 1, updated_at = now()
	`, o.Loser)
	if err != nil {
		return 0, fmt.Errorf("update loser stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Recent returns the latest recorded outcomes, newest first.
func (s *ResultStore) Recent(ctx context.Context, limit int) ([]matchmaking.Outcome, error) {
	rows, err := s.db.Query(ctx, `
		SELECT match_id, winner_id, loser_id, recorded_at
		FROM match_results
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matchmaking.Outcome
	for rows.Next() {
		var o matchmaking.Outcome
		if err := rows.Scan(&o.MatchID, &o.Winner, &o.Loser, &o.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
