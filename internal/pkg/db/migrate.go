package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations is the full schema, applied idempotently at startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS players (
		telegram_id BIGINT PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		character_name VARCHAR(64) NOT NULL UNIQUE,
		class VARCHAR(32) NOT NULL,
		level INT NOT NULL DEFAULT 1,
		experience BIGINT NOT NULL DEFAULT 0,
		gold BIGINT NOT NULL DEFAULT 0,
		sapphires BIGINT NOT NULL DEFAULT 0,
		health INT NOT NULL,
		max_health INT NOT NULL,
		mana INT NOT NULL,
		max_mana INT NOT NULL,
		energy INT NOT NULL DEFAULT 100,
		last_energy_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		damage INT NOT NULL,
		defense INT NOT NULL,
		intellect INT NOT NULL,
		agility INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS duel_battles (
		id BIGSERIAL PRIMARY KEY,
		player1_id BIGINT NOT NULL,
		player2_id BIGINT NOT NULL,
		player1_health INT NOT NULL,
		player2_health INT NOT NULL,
		player1_mana INT NOT NULL,
		player2_mana INT NOT NULL,
		bot_level INT NOT NULL DEFAULT 0,
		battle_log TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS boss_status (
		reset_date DATE PRIMARY KEY,
		boss_day INT NOT NULL,
		current_health BIGINT NOT NULL,
		total_damage BIGINT NOT NULL DEFAULT 0,
		alive BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS boss_contributions (
		player_id BIGINT NOT NULL,
		reset_date DATE NOT NULL,
		damage BIGINT NOT NULL,
		contributed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (player_id, reset_date)
	)`,
	`CREATE TABLE IF NOT EXISTS mines (
		owner_id BIGINT PRIMARY KEY,
		level INT NOT NULL DEFAULT 1,
		income_per_hour BIGINT NOT NULL,
		last_collected TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		storage BIGINT NOT NULL DEFAULT 0,
		capacity BIGINT NOT NULL,
		guard_level INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS mine_raids (
		id BIGSERIAL PRIMARY KEY,
		attacker_id BIGINT NOT NULL,
		target_id BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		stolen BIGINT NOT NULL DEFAULT 0,
		guard_damage INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		player_id BIGINT PRIMARY KEY,
		rating INT NOT NULL,
		wins INT NOT NULL DEFAULT 0,
		losses INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS upgrade_points (
		player_id BIGINT PRIMARY KEY,
		strength INT NOT NULL DEFAULT 0,
		intellect INT NOT NULL DEFAULT 0,
		agility INT NOT NULL DEFAULT 0,
		stamina INT NOT NULL DEFAULT 0,
		available INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		player_id BIGINT NOT NULL,
		item_name VARCHAR(64) NOT NULL,
		item_type VARCHAR(32) NOT NULL,
		rarity VARCHAR(32) NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		PRIMARY KEY (player_id, item_name)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_streaks (
		player_id BIGINT PRIMARY KEY,
		last_claim TIMESTAMPTZ,
		streak_count INT NOT NULL DEFAULT 0,
		total_rewards INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		player_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
		gold BIGINT NOT NULL DEFAULT 0,
		sapphires BIGINT NOT NULL DEFAULT 0,
		type VARCHAR(50) NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_duel_battles_player1 ON duel_battles(player1_id)`,
	`CREATE INDEX IF NOT EXISTS idx_duel_battles_player2 ON duel_battles(player2_id)`,
	`CREATE INDEX IF NOT EXISTS idx_boss_contributions_date ON boss_contributions(reset_date, damage DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_mine_raids_attacker ON mine_raids(attacker_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player_id, created_at DESC)`,
}

// Migrate applies the schema to the database. Safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("Database schema up to date")
	return nil
}
