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

const duelColumns = `id, player1_id, player2_id, player1_health, player2_health,
	player1_mana, player2_mana, bot_level, battle_log, created_at`

// DuelRepository handles persisted battle state.
type DuelRepository struct {
	pool *pgxpool.Pool
}

// NewDuelRepository creates a new DuelRepository instance.
func NewDuelRepository(pool *pgxpool.Pool) *DuelRepository {
	return &DuelRepository{pool: pool}
}

func scanDuel(row pgx.Row) (*model.DuelBattle, error) {
	var b model.DuelBattle
	err := row.Scan(
		&b.ID,
		&b.Player1ID,
		&b.Player2ID,
		&b.Player1Health,
		&b.Player2Health,
		&b.Player1Mana,
		&b.Player2Mana,
		&b.BotLevel,
		&b.BattleLog,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a new battle row. For training battles player2ID is
// model.BotOpponentID and botLevel carries the synthetic opponent's level.
func (r *DuelRepository) Create(ctx context.Context, player1ID, player2ID int64, p1Health, p2Health, p1Mana, p2Mana, botLevel int) (*model.DuelBattle, error) {
	const query = `
		INSERT INTO duel_battles (player1_id, player2_id, player1_health, player2_health,
			player1_mana, player2_mana, bot_level, battle_log, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', NOW())
		RETURNING ` + duelColumns

	battle, err := scanDuel(r.pool.QueryRow(ctx, query,
		player1ID, player2ID, p1Health, p2Health, p1Mana, p2Mana, botLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}
	return battle, nil
}

// GetByParticipant retrieves the battle a player is part of, on either side.
// Returns ErrBattleNotFound when the player has no active battle.
func (r *DuelRepository) GetByParticipant(ctx context.Context, playerID int64) (*model.DuelBattle, error) {
	const query = `
		SELECT ` + duelColumns + `
		FROM duel_battles
		WHERE player1_id = $1 OR player2_id = $1
	`

	battle, err := scanDuel(r.pool.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("failed to get battle: %w", err)
	}
	return battle, nil
}

// HasActive reports whether a player is part of any battle.
func (r *DuelRepository) HasActive(ctx context.Context, playerID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM duel_battles WHERE player1_id = $1 OR player2_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, playerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active battle: %w", err)
	}
	return exists, nil
}

// UpdateState writes both sides' vitals and appends a line to the battle log.
func (r *DuelRepository) UpdateState(ctx context.Context, battleID int64, p1Health, p2Health, p1Mana, p2Mana int, logLine string) (*model.DuelBattle, error) {
	const query = `
		UPDATE duel_battles
		SET player1_health = $2, player2_health = $3,
		    player1_mana = $4, player2_mana = $5,
		    battle_log = battle_log || $6 || E'\n'
		WHERE id = $1
		RETURNING ` + duelColumns

	battle, err := scanDuel(r.pool.QueryRow(ctx, query, battleID, p1Health, p2Health, p1Mana, p2Mana, logLine))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("failed to update battle: %w", err)
	}
	return battle, nil
}

// Delete removes a concluded battle. Exactly one caller wins the removal;
// everyone else gets ErrBattleNotFound, which is how conclusion side
// effects are applied once.
func (r *DuelRepository) Delete(ctx context.Context, battleID int64) error {
	const query = `DELETE FROM duel_battles WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, battleID)
	if err != nil {
		return fmt.Errorf("failed to delete battle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// DeleteStale removes battles created before the cutoff and returns the
// participant pairs so the reaper can notify both sides.
func (r *DuelRepository) DeleteStale(ctx context.Context, cutoff time.Time) ([]*model.DuelBattle, error) {
	const query = `
		DELETE FROM duel_battles
		WHERE created_at < $1
		RETURNING ` + duelColumns

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale battles: %w", err)
	}
	defer rows.Close()

	var battles []*model.DuelBattle
	for rows.Next() {
		battle, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battles = append(battles, battle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battles: %w", err)
	}
	return battles, nil
}
