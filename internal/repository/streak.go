package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"magic-rpg-bot/internal/model"
)

// StreakRepository handles daily claim streak persistence.
type StreakRepository struct {
	pool *pgxpool.Pool
}

// NewStreakRepository creates a new StreakRepository instance.
func NewStreakRepository(pool *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{pool: pool}
}

// Get retrieves a player's streak, or a zero-valued streak when they have
// never claimed.
func (r *StreakRepository) Get(ctx context.Context, playerID int64) (*model.DailyStreak, error) {
	const query = `
		SELECT player_id, last_claim, streak_count, total_rewards
		FROM daily_streaks
		WHERE player_id = $1
	`

	var streak model.DailyStreak
	err := r.pool.QueryRow(ctx, query, playerID).Scan(
		&streak.PlayerID, &streak.LastClaim, &streak.StreakCount, &streak.TotalRewards)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.DailyStreak{PlayerID: playerID}, nil
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return &streak, nil
}

// RecordClaim upserts a claim at the given time with the new streak count.
func (r *StreakRepository) RecordClaim(ctx context.Context, playerID int64, at time.Time, streakCount int) (*model.DailyStreak, error) {
	const query = `
		INSERT INTO daily_streaks (player_id, last_claim, streak_count, total_rewards)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (player_id)
		DO UPDATE SET last_claim = $2, streak_count = $3,
			total_rewards = daily_streaks.total_rewards + 1
		RETURNING player_id, last_claim, streak_count, total_rewards
	`

	var streak model.DailyStreak
	err := r.pool.QueryRow(ctx, query, playerID, at, streakCount).Scan(
		&streak.PlayerID, &streak.LastClaim, &streak.StreakCount, &streak.TotalRewards)
	if err != nil {
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}
	return &streak, nil
}
