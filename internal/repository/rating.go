package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"magic-rpg-bot/internal/model"
)

// RatingRepository handles competitive rating persistence.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository creates a new RatingRepository instance.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// GetOrCreate retrieves a player's rating row, creating it at the initial
// rating if absent.
func (r *RatingRepository) GetOrCreate(ctx context.Context, playerID int64) (*model.Rating, error) {
	const query = `
		INSERT INTO ratings (player_id, rating, wins, losses)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (player_id) DO UPDATE SET player_id = ratings.player_id
		RETURNING player_id, rating, wins, losses
	`

	var rating model.Rating
	err := r.pool.QueryRow(ctx, query, playerID, model.InitialRating).Scan(
		&rating.PlayerID, &rating.Rating, &rating.Wins, &rating.Losses)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &rating, nil
}

// ApplyResult moves delta points from loser to winner and bumps the win and
// loss counters, in one transaction. The loser's rating may go negative.
func (r *RatingRepository) ApplyResult(ctx context.Context, winnerID, loserID int64, delta int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rating tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const winQuery = `
		INSERT INTO ratings (player_id, rating, wins, losses)
		VALUES ($1, $2 + $3, 1, 0)
		ON CONFLICT (player_id)
		DO UPDATE SET rating = ratings.rating + $3, wins = ratings.wins + 1
	`
	if _, err := tx.Exec(ctx, winQuery, winnerID, model.InitialRating, delta); err != nil {
		return fmt.Errorf("failed to apply winner rating: %w", err)
	}

	const loseQuery = `
		INSERT INTO ratings (player_id, rating, wins, losses)
		VALUES ($1, $2 - $3, 0, 1)
		ON CONFLICT (player_id)
		DO UPDATE SET rating = ratings.rating - $3, losses = ratings.losses + 1
	`
	if _, err := tx.Exec(ctx, loseQuery, loserID, model.InitialRating, delta); err != nil {
		return fmt.Errorf("failed to apply loser rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rating tx: %w", err)
	}
	return nil
}

// FindNearest returns the opponent whose rating sits closest to the given
// rating within the window, excluding the player themselves. Returns nil
// when nobody qualifies.
func (r *RatingRepository) FindNearest(ctx context.Context, playerID int64, ratingValue, window int) (*model.Rating, error) {
	const query = `
		SELECT player_id, rating, wins, losses
		FROM ratings
		WHERE player_id <> $1 AND rating BETWEEN $2 - $3 AND $2 + $3
		ORDER BY ABS(rating - $2) ASC, player_id ASC
		LIMIT 1
	`

	var rating model.Rating
	err := r.pool.QueryRow(ctx, query, playerID, ratingValue, window).Scan(
		&rating.PlayerID, &rating.Rating, &rating.Wins, &rating.Losses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find nearest rating: %w", err)
	}
	return &rating, nil
}

// GetTop retrieves the top N rated players.
func (r *RatingRepository) GetTop(ctx context.Context, limit int) ([]*model.Rating, error) {
	const query = `
		SELECT player_id, rating, wins, losses
		FROM ratings
		ORDER BY rating DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.Rating
	for rows.Next() {
		var rating model.Rating
		if err := rows.Scan(&rating.PlayerID, &rating.Rating, &rating.Wins, &rating.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, &rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return ratings, nil
}
