// Package model defines the data models for the Magic RPG bot.
package model

import "time"

// Game-wide limits and starting values.
const (
	MaxLevel       = 100
	StartGold      = 1000
	StartSapphires = 5
	MaxEnergy      = 100
	EnergyRegen    = 1 // per minute
)

// Player represents a character record owned by the player store.
// Health, mana and energy are clamped to [0, max] both on write and,
// defensively, on read.
type Player struct {
	TelegramID    int64     `db:"telegram_id"`
	Username      string    `db:"username"`
	CharacterName string    `db:"character_name"`
	Class         string    `db:"class"`
	Level         int       `db:"level"`
	Experience    int64     `db:"experience"`
	Gold          int64     `db:"gold"`
	Sapphires     int64     `db:"sapphires"`
	Health        int       `db:"health"`
	MaxHealth     int       `db:"max_health"`
	Mana          int       `db:"mana"`
	MaxMana       int       `db:"max_mana"`
	Energy        int       `db:"energy"`
	LastEnergyAt  time.Time `db:"last_energy_at"`
	Damage        int       `db:"damage"`
	Defense       int       `db:"defense"`
	Intellect     int       `db:"intellect"`
	Agility       int       `db:"agility"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ExpToNextLevel returns the experience required to reach the next level.
func (p *Player) ExpToNextLevel() int64 {
	return int64(p.Level) * 100
}

// Monster is an immutable catalog entry for Hunt encounters.
type Monster struct {
	Key     string
	Name    string
	Level   int
	Health  int
	Damage  int
	GoldMin int64
	GoldMax int64
}

// Class is an immutable character archetype with its base stat block.
type Class struct {
	Key       string
	Name      string
	Health    int
	Mana      int
	Damage    int
	Defense   int
	Intellect int
	Agility   int
}

// DuelBattle is a persisted two-sided battle. Player2ID == BotOpponentID
// marks a training battle against a synthetic opponent whose stats derive
// from BotLevel.
type DuelBattle struct {
	ID            int64     `db:"id"`
	Player1ID     int64     `db:"player1_id"`
	Player2ID     int64     `db:"player2_id"`
	Player1Health int       `db:"player1_health"`
	Player2Health int       `db:"player2_health"`
	Player1Mana   int       `db:"player1_mana"`
	Player2Mana   int       `db:"player2_mana"`
	BotLevel      int       `db:"bot_level"`
	BattleLog     string    `db:"battle_log"`
	CreatedAt     time.Time `db:"created_at"`
}

// BotOpponentID is the sentinel participant id for training duels.
const BotOpponentID int64 = 0

// BossTemplate is an immutable daily boss catalog entry. SpawnDay follows
// time.Weekday numbering (Sunday = 0).
type BossTemplate struct {
	Name           string
	Type           string
	Health         int64
	Damage         int
	GoldReward     int64
	SapphireChance int
	SpawnDay       time.Weekday
}

// BossStatus is the live, contested state of the current day's boss.
// CurrentHealth only ever decreases between resets.
type BossStatus struct {
	BossDay       int       `db:"boss_day"`
	CurrentHealth int64     `db:"current_health"`
	TotalDamage   int64     `db:"total_damage"`
	Alive         bool      `db:"alive"`
	ResetDate     time.Time `db:"reset_date"`
}

// BossContribution records a single player's once-per-day strike.
type BossContribution struct {
	PlayerID      int64     `db:"player_id"`
	ResetDate     time.Time `db:"reset_date"`
	Damage        int64     `db:"damage"`
	ContributedAt time.Time `db:"contributed_at"`
}

// Mine is a per-player passive income generator. Storage accrues from
// LastCollected lazily; it is never ticked and never double-applied.
type Mine struct {
	OwnerID       int64     `db:"owner_id"`
	Level         int       `db:"level"`
	IncomePerHour int64     `db:"income_per_hour"`
	LastCollected time.Time `db:"last_collected"`
	Storage       int64     `db:"storage"`
	Capacity      int64     `db:"capacity"`
	GuardLevel    int       `db:"guard_level"`
}

// MineRaid records one raid attempt against another player's mine.
type MineRaid struct {
	ID          int64     `db:"id"`
	AttackerID  int64     `db:"attacker_id"`
	TargetID    int64     `db:"target_id"`
	Success     bool      `db:"success"`
	Stolen      int64     `db:"stolen"`
	GuardDamage int       `db:"guard_damage"`
	CreatedAt   time.Time `db:"created_at"`
}

// Rating is a player's competitive standing. Wins and losses only grow;
// the rating itself moves both ways and has no floor.
type Rating struct {
	PlayerID int64 `db:"player_id"`
	Rating   int   `db:"rating"`
	Wins     int   `db:"wins"`
	Losses   int   `db:"losses"`
}

// InitialRating is assigned when a rating row is first created.
const InitialRating = 1000

// UpgradePoints is the companion skill-point ledger for a player.
type UpgradePoints struct {
	PlayerID  int64 `db:"player_id"`
	Strength  int   `db:"strength"`
	Intellect int   `db:"intellect"`
	Agility   int   `db:"agility"`
	Stamina   int   `db:"stamina"`
	Available int   `db:"available"`
}

// InventoryItem is a stacked dropped item owned by a player.
type InventoryItem struct {
	PlayerID int64  `db:"player_id"`
	Name     string `db:"item_name"`
	Type     string `db:"item_type"`
	Rarity   string `db:"rarity"`
	Quantity int    `db:"quantity"`
}

// DailyStreak tracks a player's consecutive daily reward claims.
type DailyStreak struct {
	PlayerID     int64      `db:"player_id"`
	LastClaim    *time.Time `db:"last_claim"`
	StreakCount  int        `db:"streak_count"`
	TotalRewards int        `db:"total_rewards"`
}

// ServerStats is an aggregate snapshot of the player base.
type ServerStats struct {
	Players        int64
	TotalGold      int64
	TotalSapphires int64
	MaxLevel       int
}

// Transaction represents a currency movement record.
type Transaction struct {
	ID          int64     `db:"id"`
	PlayerID    int64     `db:"player_id"`
	Gold        int64     `db:"gold"`
	Sapphires   int64     `db:"sapphires"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing currency changes.
const (
	TxTypeInitial       = "initial"        // Starting balance on character creation
	TxTypeHuntReward    = "hunt_reward"    // Gold from a won hunt
	TxTypeHuntPenalty   = "hunt_penalty"   // Gold lost on hunt defeat
	TxTypeDuelReward    = "duel_reward"    // Gold from a won duel
	TxTypeBossReward    = "boss_reward"    // Per-strike boss reward
	TxTypeBossTopBonus  = "boss_top_bonus" // Top-3 bonus on boss defeat
	TxTypeMineCollect   = "mine_collect"   // Collected mine storage
	TxTypeMineUpgrade   = "mine_upgrade"   // Mine or guard upgrade cost
	TxTypeMineRaid      = "mine_raid"      // Raider gains stolen gold
	TxTypeMineRaided    = "mine_raided"    // Victim loses stolen gold
	TxTypeLevelUp       = "level_up"       // Level-up stipend
	TxTypeEnergyRestore = "energy_restore" // Sapphire spent on energy
	TxTypeDailyStreak   = "daily_streak"   // Daily streak reward
	TxTypeAdminGrant    = "admin_grant"    // Admin granted currency
)
