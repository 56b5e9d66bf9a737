package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Leaderboard caches each user's best score of the day in a Redis
// sorted set, one set per date. It is a cache over the scores table:
// losing it costs nothing but a slower ranking read.
type Leaderboard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLeaderboard(rdb *redis.Client, ttl time.Duration) *Leaderboard {
	return &Leaderboard{rdb: rdb, ttl: ttl}
}

func (l *Leaderboard) key(date string) string {
	return fmt.Sprintf("rank:daily:%s", date)
}

// Submit records a score for the given day, keeping only the user's
// best (ZADD GT never lowers an existing member's score).
func (l *Leaderboard) Submit(ctx context.Context, date, userID string, score float64) error {
	key := l.key(date)

	if err := l.rdb.ZAddGT(ctx, key, redis.Z{
		Score:  score,
		Member: userID,
	}).Err(); err != nil {
		return fmt.Errorf("leaderboard zadd: %w", err)
	}

	if l.ttl > 0 {
		if err := l.rdb.Expire(ctx, key, l.ttl).Err(); err != nil {
			return fmt.Errorf("leaderboard expire: %w", err)
		}
	}
	return nil
}

// Top returns the day's best scores, highest first.
func (l *Leaderboard) Top(ctx context.Context, date string, limit int64) ([]RankItem, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, l.key(date), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard zrevrange: %w", err)
	}

	items := make([]RankItem, 0, len(zs))
	for i, z := range zs {
		user, _ := z.Member.(string)
		items = append(items, RankItem{
			Rank:   i + 1,
			UserID: user,
			Score:  z.Score,
			Date:   date,
		})
	}
	return items, nil
}
