package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"magic-rpg-bot/internal/model"
)

// PointsRepository handles the skill-point ledger.
type PointsRepository struct {
	pool *pgxpool.Pool
}

// NewPointsRepository creates a new PointsRepository instance.
func NewPointsRepository(pool *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{pool: pool}
}

// GetOrCreate retrieves a player's point ledger, creating an empty one if
// absent.
func (r *PointsRepository) GetOrCreate(ctx context.Context, playerID int64) (*model.UpgradePoints, error) {
	const query = `
		INSERT INTO upgrade_points (player_id, strength, intellect, agility, stamina, available)
		VALUES ($1, 0, 0, 0, 0, 0)
		ON CONFLICT (player_id) DO UPDATE SET player_id = upgrade_points.player_id
		RETURNING player_id, strength, intellect, agility, stamina, available
	`

	var points model.UpgradePoints
	err := r.pool.QueryRow(ctx, query, playerID).Scan(
		&points.PlayerID, &points.Strength, &points.Intellect,
		&points.Agility, &points.Stamina, &points.Available)
	if err != nil {
		return nil, fmt.Errorf("failed to get upgrade points: %w", err)
	}
	return &points, nil
}

// Grant adds available points, creating the ledger if needed.
func (r *PointsRepository) Grant(ctx context.Context, playerID int64, amount int) error {
	const query = `
		INSERT INTO upgrade_points (player_id, strength, intellect, agility, stamina, available)
		VALUES ($1, 0, 0, 0, 0, $2)
		ON CONFLICT (player_id)
		DO UPDATE SET available = upgrade_points.available + $2
	`

	if _, err := r.pool.Exec(ctx, query, playerID, amount); err != nil {
		return fmt.Errorf("failed to grant points: %w", err)
	}
	return nil
}

// Spend moves one available point into the named stat column. Returns false
// when no point was available; the conditional update means two concurrent
// spends of the last point cannot both succeed.
func (r *PointsRepository) Spend(ctx context.Context, playerID int64, stat string) (bool, error) {
	// Column name comes from a fixed whitelist, never from user input.
	var query string
	switch stat {
	case "strength":
		query = `UPDATE upgrade_points SET strength = strength + 1, available = available - 1
			WHERE player_id = $1 AND available > 0`
	case "intellect":
		query = `UPDATE upgrade_points SET intellect = intellect + 1, available = available - 1
			WHERE player_id = $1 AND available > 0`
	case "agility":
		query = `UPDATE upgrade_points SET agility = agility + 1, available = available - 1
			WHERE player_id = $1 AND available > 0`
	case "stamina":
		query = `UPDATE upgrade_points SET stamina = stamina + 1, available = available - 1
			WHERE player_id = $1 AND available > 0`
	default:
		return false, fmt.Errorf("unknown stat %q", stat)
	}

	result, err := r.pool.Exec(ctx, query, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to spend point: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
