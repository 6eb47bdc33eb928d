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

const mineColumns = `owner_id, level, income_per_hour, last_collected, storage, capacity, guard_level`

// MineRepository handles per-player mine persistence.
type MineRepository struct {
	pool *pgxpool.Pool
}

// NewMineRepository creates a new MineRepository instance.
func NewMineRepository(pool *pgxpool.Pool) *MineRepository {
	return &MineRepository{pool: pool}
}

func scanMine(row pgx.Row) (*model.Mine, error) {
	var m model.Mine
	err := row.Scan(&m.OwnerID, &m.Level, &m.IncomePerHour, &m.LastCollected, &m.Storage, &m.Capacity, &m.GuardLevel)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create seeds a level-1 mine for a new character.
func (r *MineRepository) Create(ctx context.Context, ownerID int64, incomePerHour, capacity int64) (*model.Mine, error) {
	const query = `
		INSERT INTO mines (owner_id, level, income_per_hour, last_collected, storage, capacity, guard_level)
		VALUES ($1, 1, $2, NOW(), 0, $3, 0)
		ON CONFLICT (owner_id) DO NOTHING
		RETURNING ` + mineColumns

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID, incomePerHour, capacity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row already existed; return it.
			return r.GetByOwner(ctx, ownerID)
		}
		return nil, fmt.Errorf("failed to create mine: %w", err)
	}
	return mine, nil
}

// GetByOwner retrieves a player's mine.
// Returns ErrMineNotFound if the player has no mine.
func (r *MineRepository) GetByOwner(ctx context.Context, ownerID int64) (*model.Mine, error) {
	const query = `SELECT ` + mineColumns + ` FROM mines WHERE owner_id = $1`

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMineNotFound
		}
		return nil, fmt.Errorf("failed to get mine: %w", err)
	}
	return mine, nil
}

// SetAccrued persists the storage value and the accrual checkpoint computed
// by the income engine.
func (r *MineRepository) SetAccrued(ctx context.Context, ownerID int64, storage int64, checkpoint time.Time) (*model.Mine, error) {
	const query = `
		UPDATE mines
		SET storage = LEAST($2, capacity), last_collected = $3
		WHERE owner_id = $1
		RETURNING ` + mineColumns

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID, storage, checkpoint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMineNotFound
		}
		return nil, fmt.Errorf("failed to set accrued storage: %w", err)
	}
	return mine, nil
}

// Drain empties the storage, returning the drained amount, and moves the
// checkpoint. Used when the owner collects.
func (r *MineRepository) Drain(ctx context.Context, ownerID int64, checkpoint time.Time) (int64, error) {
	const query = `
		WITH old AS (
			SELECT storage FROM mines WHERE owner_id = $1
		)
		UPDATE mines
		SET storage = 0, last_collected = $2
		WHERE owner_id = $1
		RETURNING (SELECT storage FROM old)
	`

	var drained int64
	err := r.pool.QueryRow(ctx, query, ownerID, checkpoint).Scan(&drained)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMineNotFound
		}
		return 0, fmt.Errorf("failed to drain mine: %w", err)
	}
	return drained, nil
}

// Upgrade applies a new level, income rate and capacity.
func (r *MineRepository) Upgrade(ctx context.Context, ownerID int64, level int, incomePerHour, capacity int64) (*model.Mine, error) {
	const query = `
		UPDATE mines
		SET level = $2, income_per_hour = $3, capacity = $4
		WHERE owner_id = $1
		RETURNING ` + mineColumns

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID, level, incomePerHour, capacity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMineNotFound
		}
		return nil, fmt.Errorf("failed to upgrade mine: %w", err)
	}
	return mine, nil
}

// SetGuardLevel writes the guard level, clamped at zero.
func (r *MineRepository) SetGuardLevel(ctx context.Context, ownerID int64, guardLevel int) (*model.Mine, error) {
	const query = `
		UPDATE mines
		SET guard_level = GREATEST(0, $2)
		WHERE owner_id = $1
		RETURNING ` + mineColumns

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID, guardLevel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMineNotFound
		}
		return nil, fmt.Errorf("failed to set guard level: %w", err)
	}
	return mine, nil
}

// Steal removes stolen gold from the victim's storage, clamped at zero.
func (r *MineRepository) Steal(ctx context.Context, ownerID, stolen int64) (*model.Mine, error) {
	const query = `
		UPDATE mines
		SET storage = GREATEST(0, storage - $2)
		WHERE owner_id = $1
		RETURNING ` + mineColumns

	mine, err := scanMine(r.pool.QueryRow(ctx, query, ownerID, stolen))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMineNotFound
		}
		return nil, fmt.Errorf("failed to steal from mine: %w", err)
	}
	return mine, nil
}

// ListOwners returns every mine owner id, for the periodic income sweep.
func (r *MineRepository) ListOwners(ctx context.Context) ([]int64, error) {
	const query = `SELECT owner_id FROM mines WHERE storage < capacity`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mine owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owner ids: %w", err)
	}
	return ids, nil
}

// RecordRaid appends a raid attempt to the raid log.
func (r *MineRepository) RecordRaid(ctx context.Context, attackerID, targetID int64, success bool, stolen int64, guardDamage int) error {
	const query = `
		INSERT INTO mine_raids (attacker_id, target_id, success, stolen, guard_damage, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, attackerID, targetID, success, stolen, guardDamage); err != nil {
		return fmt.Errorf("failed to record raid: %w", err)
	}
	return nil
}

// LastRaidAt returns the time of the attacker's most recent raid attempt,
// or the zero time if they never raided.
func (r *MineRepository) LastRaidAt(ctx context.Context, attackerID int64) (time.Time, error) {
	const query = `
		SELECT created_at FROM mine_raids
		WHERE attacker_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.pool.QueryRow(ctx, query, attackerID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get last raid: %w", err)
	}
	return at, nil
}
