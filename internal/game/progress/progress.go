// Package progress handles level-ups and upgrade-point spending.
package progress

import (
	"context"
	"errors"
	"fmt"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

// Level-up stipend parameters.
const (
	GoldPerLevel   = 50
	SapphireEvery  = 5
	PointsPerLevel = 2
)

// Stat increment per upgrade point.
const (
	StrengthDamageBonus = 2
	IntellectManaBonus  = 10
	StaminaHealthBonus  = 15
	AgilityBonus        = 1
)

// LevelUpReward is the stipend granted on reaching a level.
type LevelUpReward struct {
	Level     int
	Gold      int64
	Sapphires int64
	Points    int
}

// RewardFor computes the stipend for reaching the given level.
func RewardFor(level int) LevelUpReward {
	r := LevelUpReward{
		Level:  level,
		Gold:   int64(level) * GoldPerLevel,
		Points: PointsPerLevel,
	}
	if level%SapphireEvery == 0 {
		r.Sapphires = 1
	}
	return r
}

// Tracker applies experience thresholds and stat upgrades.
type Tracker struct {
	players *repository.PlayerRepository
	points  *repository.PointsRepository
	txs     *repository.TransactionRepository
	locks   *lock.EntityLock

	onLevelUp func(ctx context.Context, playerID int64, reward LevelUpReward)
}

// NewTracker creates a progression tracker.
func NewTracker(
	players *repository.PlayerRepository,
	points *repository.PointsRepository,
	txs *repository.TransactionRepository,
	locks *lock.EntityLock,
) *Tracker {
	return &Tracker{
		players: players,
		points:  points,
		txs:     txs,
		locks:   locks,
	}
}

// OnLevelUp registers the notification hook fired after each level gained.
func (t *Tracker) OnLevelUp(fn func(ctx context.Context, playerID int64, reward LevelUpReward)) {
	t.onLevelUp = fn
}

// GrantExperience adds experience and settles any level-ups it unlocks.
// Returns the rewards granted, one per level gained, oldest first.
func (t *Tracker) GrantExperience(ctx context.Context, playerID int64, exp int64) ([]LevelUpReward, error) {
	if _, err := t.players.AddExperience(ctx, playerID, exp); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	return t.Settle(ctx, playerID)
}

// Settle consumes every pending level-up threshold. Experience added by a
// concurrent path is picked up too; the conditional update inside
// ApplyLevelUp makes double-settling impossible.
func (t *Tracker) Settle(ctx context.Context, playerID int64) ([]LevelUpReward, error) {
	var rewards []LevelUpReward
	err := t.locks.WithLock(lock.KindPlayer, playerID, func() error {
		for {
			player, err := t.players.GetByID(ctx, playerID)
			if err != nil {
				if errors.Is(err, repository.ErrPlayerNotFound) {
					return game.ErrNotFound
				}
				return err
			}
			if player.Level >= model.MaxLevel || player.Experience < player.ExpToNextLevel() {
				return nil
			}

			leveled, err := t.players.ApplyLevelUp(ctx, playerID, player.ExpToNextLevel(), player.MaxHealth, player.MaxMana)
			if err != nil {
				if errors.Is(err, repository.ErrPlayerNotFound) {
					// Lost the threshold race; nothing left to settle.
					return nil
				}
				return err
			}

			reward := RewardFor(leveled.Level)
			if _, err := t.players.UpdateCurrency(ctx, playerID, reward.Gold, reward.Sapphires); err != nil {
				return fmt.Errorf("failed to grant level-up stipend: %w", err)
			}
			if err := t.points.Grant(ctx, playerID, reward.Points); err != nil {
				return err
			}
			desc := fmt.Sprintf("reached level %d", reward.Level)
			if _, err := t.txs.Create(ctx, playerID, reward.Gold, reward.Sapphires, model.TxTypeLevelUp, &desc); err != nil {
				return err
			}

			rewards = append(rewards, reward)
			if t.onLevelUp != nil {
				t.onLevelUp(ctx, playerID, reward)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

// Points returns the player's upgrade-point sheet.
func (t *Tracker) Points(ctx context.Context, playerID int64) (*model.UpgradePoints, error) {
	return t.points.GetOrCreate(ctx, playerID)
}

// SpendPoint spends one upgrade point on the named stat and applies the
// permanent bonus to the player record.
func (t *Tracker) SpendPoint(ctx context.Context, playerID int64, stat string) (*model.Player, error) {
	var damage, agility, maxHealth, maxMana int
	switch stat {
	case "strength":
		damage = StrengthDamageBonus
	case "intellect":
		maxMana = IntellectManaBonus
	case "stamina":
		maxHealth = StaminaHealthBonus
	case "agility":
		agility = AgilityBonus
	default:
		return nil, game.ErrInvalidState
	}

	var player *model.Player
	err := t.locks.WithLock(lock.KindPlayer, playerID, func() error {
		if _, err := t.points.GetOrCreate(ctx, playerID); err != nil {
			return err
		}
		spent, err := t.points.Spend(ctx, playerID, stat)
		if err != nil {
			return err
		}
		if !spent {
			return game.ErrInsufficientResource
		}
		player, err = t.players.ApplyStatIncrease(ctx, playerID, damage, 0, 0, agility, maxHealth, maxMana)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}
