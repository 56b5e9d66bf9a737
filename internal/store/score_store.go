package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Score is one shape-drawing attempt: the classifier confidence a user
// earned on a given day.
type Score struct {
	ID        int64
	UserID    string
	Date      string // "YYYY-MM-DD"
	Score     float64
	ImagePath string
	CreatedAt time.Time
}

// RankItem is one row of the top-N ranking.
type RankItem struct {
	Rank   int
	UserID string
	Score  float64
	Date   string
}

type ScoreStore struct {
	db *pgxpool.Pool
}

func NewScoreStore(db *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{db: db}
}

func (s *ScoreStore) Save(ctx context.Context, sc Score) (Score, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO scores (user_id, date, score, image_path)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at
	`, sc.UserID, sc.Date, sc.Score, sc.ImagePath).Scan(&sc.ID, &sc.CreatedAt)
	if err != nil {
		return Score{}, err
	}
	return sc, nil
}

// Top returns the best scores overall: score descending, earlier
// submissions winning ties. An empty table yields an empty slice, not
// an error.
func (s *ScoreStore) Top(ctx context.Context, limit int) ([]RankItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, score, date
		FROM scores
		ORDER BY score DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []RankItem{}
	for rows.Next() {
		var it RankItem
		if err := rows.Scan(&it.UserID, &it.Score, &it.Date); err != nil {
			return nil, err
		}
		it.Rank = len(items) + 1
		items = append(items, it)
	}
	return items, rows.Err()
}
