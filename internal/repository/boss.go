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

// ErrBossNotFound is returned when no boss row exists for a date.
var ErrBossNotFound = errors.New("boss not found")

const bossColumns = `boss_day, current_health, total_damage, alive, reset_date`

// BossRepository handles the contested daily boss pool.
type BossRepository struct {
	pool *pgxpool.Pool
}

// NewBossRepository creates a new BossRepository instance.
func NewBossRepository(pool *pgxpool.Pool) *BossRepository {
	return &BossRepository{pool: pool}
}

func scanBoss(row pgx.Row) (*model.BossStatus, error) {
	var s model.BossStatus
	err := row.Scan(&s.BossDay, &s.CurrentHealth, &s.TotalDamage, &s.Alive, &s.ResetDate)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EnsureForDate creates the day's boss row if it does not exist yet.
// Concurrent callers race on the insert; ON CONFLICT makes the loser a
// no-op so the pool is seeded exactly once per day.
func (r *BossRepository) EnsureForDate(ctx context.Context, date time.Time, bossDay int, health int64) error {
	const query = `
		INSERT INTO boss_status (boss_day, current_health, total_damage, alive, reset_date)
		VALUES ($1, $2, 0, TRUE, $3)
		ON CONFLICT (reset_date) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, bossDay, health, date); err != nil {
		return fmt.Errorf("failed to seed boss: %w", err)
	}
	return nil
}

// GetForDate retrieves the boss state for a date.
// Returns ErrBossNotFound when the day has not been seeded.
func (r *BossRepository) GetForDate(ctx context.Context, date time.Time) (*model.BossStatus, error) {
	const query = `SELECT ` + bossColumns + ` FROM boss_status WHERE reset_date = $1`

	status, err := scanBoss(r.pool.QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossNotFound
		}
		return nil, fmt.Errorf("failed to get boss: %w", err)
	}
	return status, nil
}

// ApplyDamage subtracts damage from a living boss's pool, clamped at zero,
// and returns the resulting state. Returns ErrBossNotFound if the boss is
// already dead or the day is not seeded.
func (r *BossRepository) ApplyDamage(ctx context.Context, date time.Time, damage int64) (*model.BossStatus, error) {
	const query = `
		UPDATE boss_status
		SET current_health = GREATEST(0, current_health - $2),
		    total_damage = total_damage + $2
		WHERE reset_date = $1 AND alive
		RETURNING ` + bossColumns

	status, err := scanBoss(r.pool.QueryRow(ctx, query, date, damage))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBossNotFound
		}
		return nil, fmt.Errorf("failed to apply boss damage: %w", err)
	}
	return status, nil
}

// MarkDefeated flips the boss to dead. Returns true for exactly one caller;
// the conditional update makes the kill settlement single-shot.
func (r *BossRepository) MarkDefeated(ctx context.Context, date time.Time) (bool, error) {
	const query = `
		UPDATE boss_status
		SET alive = FALSE
		WHERE reset_date = $1 AND alive AND current_health = 0
	`

	result, err := r.pool.Exec(ctx, query, date)
	if err != nil {
		return false, fmt.Errorf("failed to mark boss defeated: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// AddContribution records a player's strike for the day. Returns false when
// the player already struck today; the primary key enforces once-per-day
// even if the in-process guard was bypassed.
func (r *BossRepository) AddContribution(ctx context.Context, playerID int64, date time.Time, damage int64) (bool, error) {
	const query = `
		INSERT INTO boss_contributions (player_id, reset_date, damage, contributed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (player_id, reset_date) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, playerID, date, damage)
	if err != nil {
		return false, fmt.Errorf("failed to add contribution: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// HasContributed reports whether a player already struck on the given date.
func (r *BossRepository) HasContributed(ctx context.Context, playerID int64, date time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM boss_contributions WHERE player_id = $1 AND reset_date = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, playerID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check contribution: %w", err)
	}
	return exists, nil
}

// TopContributors returns the day's heaviest hitters, best first.
func (r *BossRepository) TopContributors(ctx context.Context, date time.Time, limit int) ([]*model.BossContribution, error) {
	const query = `
		SELECT player_id, reset_date, damage, contributed_at
		FROM boss_contributions
		WHERE reset_date = $1
		ORDER BY damage DESC, contributed_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top contributors: %w", err)
	}
	defer rows.Close()

	var contribs []*model.BossContribution
	for rows.Next() {
		var c model.BossContribution
		if err := rows.Scan(&c.PlayerID, &c.ResetDate, &c.Damage, &c.ContributedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contribs = append(contribs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}
	return contribs, nil
}
