// Package repository provides data access layer implementations.
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

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrBattleNotFound = errors.New("battle not found")
	ErrMineNotFound   = errors.New("mine not found")
)

const playerColumns = `telegram_id, username, character_name, class, level, experience,
	gold, sapphires, health, max_health, mana, max_mana, energy, last_energy_at,
	damage, defense, intellect, agility, created_at, updated_at`

// PlayerRepository handles character persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.TelegramID,
		&p.Username,
		&p.CharacterName,
		&p.Class,
		&p.Level,
		&p.Experience,
		&p.Gold,
		&p.Sapphires,
		&p.Health,
		&p.MaxHealth,
		&p.Mana,
		&p.MaxMana,
		&p.Energy,
		&p.LastEnergyAt,
		&p.Damage,
		&p.Defense,
		&p.Intellect,
		&p.Agility,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new character for the given Telegram ID using the base
// stats of the chosen class. The character starts with the default gold and
// sapphire balances, full vitals and full energy.
func (r *PlayerRepository) Create(ctx context.Context, telegramID int64, username, characterName string, class *model.Class) (*model.Player, error) {
	const query = `
		INSERT INTO players (telegram_id, username, character_name, class, level, experience,
			gold, sapphires, health, max_health, mana, max_mana, energy, last_energy_at,
			damage, defense, intellect, agility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, 0, $5, $6, $7, $7, $8, $8, $9, NOW(), $10, $11, $12, $13, NOW(), NOW())
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query,
		telegramID, username, characterName, class.Key,
		int64(model.StartGold), int64(model.StartSapphires),
		class.Health, class.Mana, model.MaxEnergy,
		class.Damage, class.Defense, class.Intellect, class.Agility,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// GetByID retrieves a character by Telegram ID.
// Returns ErrPlayerNotFound if no character exists.
func (r *PlayerRepository) GetByID(ctx context.Context, telegramID int64) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE telegram_id = $1`

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetByName retrieves a character by its character name.
// Returns ErrPlayerNotFound if no character exists.
func (r *PlayerRepository) GetByName(ctx context.Context, characterName string) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE character_name = $1`

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, characterName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by name: %w", err)
	}
	return player, nil
}

// Exists checks if a character with the given Telegram ID exists.
func (r *PlayerRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM players WHERE telegram_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, telegramID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}
	return exists, nil
}

// UpdateCurrency applies gold and sapphire deltas atomically. Either delta
// may be negative; the update is rejected if it would drive a balance below
// zero so a lost race never overdraws.
func (r *PlayerRepository) UpdateCurrency(ctx context.Context, telegramID, goldDelta, sapphireDelta int64) (*model.Player, error) {
	const query = `
		UPDATE players
		SET gold = gold + $2, sapphires = sapphires + $3, updated_at = NOW()
		WHERE telegram_id = $1 AND gold + $2 >= 0 AND sapphires + $3 >= 0
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, goldDelta, sapphireDelta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update currency: %w", err)
	}
	return player, nil
}

// SetVitals sets current health and mana, clamped to [0, max] in SQL so a
// stale caller can never write an out-of-range value.
func (r *PlayerRepository) SetVitals(ctx context.Context, telegramID int64, health, mana int) (*model.Player, error) {
	const query = `
		UPDATE players
		SET health = GREATEST(0, LEAST($2, max_health)),
		    mana = GREATEST(0, LEAST($3, max_mana)),
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, health, mana))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to set vitals: %w", err)
	}
	return player, nil
}

// SetEnergy persists an energy value together with its accrual checkpoint.
// The value is clamped to [0, MaxEnergy] in SQL.
func (r *PlayerRepository) SetEnergy(ctx context.Context, telegramID int64, energy int, checkpoint time.Time) (*model.Player, error) {
	const query = `
		UPDATE players
		SET energy = GREATEST(0, LEAST($2, $3)), last_energy_at = $4, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, energy, model.MaxEnergy, checkpoint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to set energy: %w", err)
	}
	return player, nil
}

// SpendEnergy subtracts energy if enough is available. Returns false when
// the conditional update matched no row because energy was insufficient.
func (r *PlayerRepository) SpendEnergy(ctx context.Context, telegramID int64, amount int) (bool, error) {
	const query = `
		UPDATE players
		SET energy = energy - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND energy >= $2
	`

	result, err := r.pool.Exec(ctx, query, telegramID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to spend energy: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DrainEnergy subtracts energy unconditionally, clamped at zero. Used for
// penalty taxes that apply even when the balance cannot cover them.
func (r *PlayerRepository) DrainEnergy(ctx context.Context, telegramID int64, amount int) error {
	const query = `
		UPDATE players
		SET energy = GREATEST(0, energy - $2), updated_at = NOW()
		WHERE telegram_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, telegramID, amount); err != nil {
		return fmt.Errorf("failed to drain energy: %w", err)
	}
	return nil
}

// AddExperience adds experience and returns the updated character. Level-up
// evaluation happens in the progress engine, not here.
func (r *PlayerRepository) AddExperience(ctx context.Context, telegramID int64, exp int64) (*model.Player, error) {
	const query = `
		UPDATE players
		SET experience = experience + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, exp))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to add experience: %w", err)
	}
	return player, nil
}

// ApplyLevelUp advances one level, resetting experience to zero and
// refilling vitals and energy, in a single statement. The WHERE clause
// re-checks the threshold so concurrent level-up attempts cannot both
// succeed.
func (r *PlayerRepository) ApplyLevelUp(ctx context.Context, telegramID int64, expCost int64, maxHealth, maxMana int) (*model.Player, error) {
	const query = `
		UPDATE players
		SET level = level + 1,
		    experience = 0,
		    max_health = $3, health = $3,
		    max_mana = $4, mana = $4,
		    energy = $5, last_energy_at = NOW(),
		    updated_at = NOW()
		WHERE telegram_id = $1 AND experience >= $2 AND level < $6
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, expCost, maxHealth, maxMana, model.MaxEnergy, model.MaxLevel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to apply level up: %w", err)
	}
	return player, nil
}

// ApplyStatIncrease adds permanent deltas to the combat stats. Current
// vitals grow with their maxima, clamped so they never exceed the new max.
func (r *PlayerRepository) ApplyStatIncrease(ctx context.Context, telegramID int64, damage, defense, intellect, agility, maxHealth, maxMana int) (*model.Player, error) {
	const query = `
		UPDATE players
		SET damage = damage + $2, defense = defense + $3,
		    intellect = intellect + $4, agility = agility + $5,
		    max_health = max_health + $6, max_mana = max_mana + $7,
		    health = LEAST(health + $6, max_health + $6),
		    mana = LEAST(mana + $7, max_mana + $7),
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, damage, defense, intellect, agility, maxHealth, maxMana))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to apply stat increase: %w", err)
	}
	return player, nil
}

// UpdateUsername refreshes the stored Telegram username.
func (r *PlayerRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE players
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GetTopByLevel retrieves the top N characters ordered by level, then
// experience.
func (r *PlayerRepository) GetTopByLevel(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT ` + playerColumns + `
		FROM players
		ORDER BY level DESC, experience DESC
		LIMIT $1
	`
	return r.queryPlayers(ctx, query, limit)
}

// GetTopByGold retrieves the top N characters ordered by gold.
func (r *PlayerRepository) GetTopByGold(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT ` + playerColumns + `
		FROM players
		ORDER BY gold DESC
		LIMIT $1
	`
	return r.queryPlayers(ctx, query, limit)
}

// ListEnergyDeficit returns the ids of characters whose energy is below the
// cap, for the periodic accrual sweep.
func (r *PlayerRepository) ListEnergyDeficit(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM players WHERE energy < $1`

	rows, err := r.pool.Query(ctx, query, model.MaxEnergy)
	if err != nil {
		return nil, fmt.Errorf("failed to list energy deficit: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player ids: %w", err)
	}
	return ids, nil
}

// Stats aggregates server-wide totals over the player base.
func (r *PlayerRepository) Stats(ctx context.Context) (*model.ServerStats, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(gold), 0),
		       COALESCE(SUM(sapphires), 0),
		       COALESCE(MAX(level), 0)
		FROM players
	`

	var stats model.ServerStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Players, &stats.TotalGold, &stats.TotalSapphires, &stats.MaxLevel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query server stats: %w", err)
	}
	return &stats, nil
}

func (r *PlayerRepository) queryPlayers(ctx context.Context, query string, args ...any) ([]*model.Player, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}
