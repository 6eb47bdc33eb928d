// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/accrual"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

// Common errors for player operations.
var (
	ErrCharacterExists     = errors.New("character already exists")
	ErrCharacterNameTaken  = errors.New("character name already taken")
	ErrInvalidCharacter    = errors.New("invalid character name or class")
	ErrDailyAlreadyClaimed = errors.New("daily reward already claimed")
)

// Character name length bounds.
const (
	MinNameLen = 2
	MaxNameLen = 30
)

// Daily streak reward parameters.
const (
	DailyBaseGold       = 100
	DailyBaseSapphires  = 1
	DailyStreakGoldStep = 20
	DailyStreakGoldCap  = 200
	DailySapphireEvery  = 7
)

// DailyReward is the payout of one streak claim.
type DailyReward struct {
	Streak    int
	Gold      int64
	Sapphires int64
}

// DailyRewardFor computes the payout for a streak length.
func DailyRewardFor(streak int) DailyReward {
	bonus := int64(streak) * DailyStreakGoldStep
	if bonus > DailyStreakGoldCap {
		bonus = DailyStreakGoldCap
	}
	return DailyReward{
		Streak:    streak,
		Gold:      DailyBaseGold + bonus,
		Sapphires: DailyBaseSapphires + int64(streak/DailySapphireEvery),
	}
}

// PlayerService handles character lifecycle, energy and daily rewards.
type PlayerService struct {
	players *repository.PlayerRepository
	streaks *repository.StreakRepository
	txs     *repository.TransactionRepository
	locks   *lock.EntityLock

	onEnergyFull func(playerID int64)
}

// OnEnergyFull registers a hook fired when the background sweep tops a
// player's energy off. Set during wiring, before the scheduler starts.
func (s *PlayerService) OnEnergyFull(fn func(playerID int64)) {
	s.onEnergyFull = fn
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(
	players *repository.PlayerRepository,
	streaks *repository.StreakRepository,
	txs *repository.TransactionRepository,
	locks *lock.EntityLock,
) *PlayerService {
	return &PlayerService{
		players: players,
		streaks: streaks,
		txs:     txs,
		locks:   locks,
	}
}

// ValidName reports whether a character name is acceptable.
func ValidName(name string) bool {
	n := len([]rune(name))
	return n >= MinNameLen && n <= MaxNameLen
}

// CreateCharacter creates the player's character. One character per
// Telegram account; names are globally unique.
func (s *PlayerService) CreateCharacter(ctx context.Context, telegramID int64, username, characterName, className string) (*model.Player, error) {
	if !ValidName(characterName) {
		return nil, ErrInvalidCharacter
	}
	class, ok := model.Classes[className]
	if !ok {
		return nil, ErrInvalidCharacter
	}

	exists, err := s.players.Exists(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCharacterExists
	}
	if _, err := s.players.GetByName(ctx, characterName); err == nil {
		return nil, ErrCharacterNameTaken
	} else if !errors.Is(err, repository.ErrPlayerNotFound) {
		return nil, err
	}

	player, err := s.players.Create(ctx, telegramID, username, characterName, &class)
	if err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}

	desc := "starting balance"
	if _, err := s.txs.Create(ctx, telegramID, model.StartGold, model.StartSapphires, model.TxTypeInitial, &desc); err != nil {
		log.Warn().Err(err).Int64("player_id", telegramID).Msg("failed to record initial transaction")
	}
	return player, nil
}

// Profile returns the player with energy accrued to now. Username drift
// from Telegram is folded in opportunistically.
func (s *PlayerService) Profile(ctx context.Context, telegramID int64, username string, now time.Time) (*model.Player, error) {
	player, err := s.accrueEnergy(ctx, telegramID, now)
	if err != nil {
		return nil, err
	}
	if username != "" && player.Username != username {
		if err := s.players.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("player_id", telegramID).Msg("failed to update username")
		}
		player.Username = username
	}
	return player, nil
}

// accrueEnergy folds elapsed regen time into the energy balance under the
// player lock, so concurrent reads settle the same minutes exactly once.
func (s *PlayerService) accrueEnergy(ctx context.Context, telegramID int64, now time.Time) (*model.Player, error) {
	var player *model.Player
	err := s.locks.WithLock(lock.KindPlayer, telegramID, func() error {
		var err error
		player, err = s.players.GetByID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		res := accrual.Accrue(int64(player.Energy), model.MaxEnergy, model.EnergyRegen, time.Minute, player.LastEnergyAt, now)
		if res.Accrued == 0 && res.Checkpoint.Equal(player.LastEnergyAt) {
			return nil
		}
		player, err = s.players.SetEnergy(ctx, telegramID, int(res.Value), res.Checkpoint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// RestoreEnergy trades one sapphire for a full energy bar.
func (s *PlayerService) RestoreEnergy(ctx context.Context, telegramID int64, now time.Time) (*model.Player, error) {
	var player *model.Player
	err := s.locks.WithLock(lock.KindPlayer, telegramID, func() error {
		var err error
		player, err = s.players.GetByID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		if player.Energy >= model.MaxEnergy {
			return game.ErrInvalidState
		}
		if _, err := s.players.UpdateCurrency(ctx, telegramID, 0, -1); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrInsufficientResource
			}
			return err
		}
		player, err = s.players.SetEnergy(ctx, telegramID, model.MaxEnergy, now)
		if err != nil {
			return err
		}
		desc := "energy restored with sapphire"
		_, err = s.txs.Create(ctx, telegramID, 0, -1, model.TxTypeEnergyRestore, &desc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// ClaimDaily claims the daily streak reward. Consecutive calendar days
// extend the streak; a missed day resets it to one.
func (s *PlayerService) ClaimDaily(ctx context.Context, telegramID int64, now time.Time) (*DailyReward, error) {
	var reward *DailyReward
	err := s.locks.WithLock(lock.KindPlayer, telegramID, func() error {
		streak, err := s.streaks.Get(ctx, telegramID)
		if err != nil {
			return err
		}

		today := calendarDay(now)
		count := 1
		if streak.LastClaim != nil {
			last := calendarDay(*streak.LastClaim)
			switch {
			case last.Equal(today):
				return ErrDailyAlreadyClaimed
			case today.Sub(last) == 24*time.Hour:
				count = streak.StreakCount + 1
			}
		}

		r := DailyRewardFor(count)
		if _, err := s.players.UpdateCurrency(ctx, telegramID, r.Gold, r.Sapphires); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		if _, err := s.streaks.RecordClaim(ctx, telegramID, now, count); err != nil {
			return err
		}
		desc := fmt.Sprintf("daily streak day %d", count)
		if _, err := s.txs.Create(ctx, telegramID, r.Gold, r.Sapphires, model.TxTypeDailyStreak, &desc); err != nil {
			return err
		}
		reward = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// History returns the player's most recent currency movements.
func (s *PlayerService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	return s.txs.GetByPlayerID(ctx, telegramID, limit)
}

// Grant credits currency to a player on an administrator's behalf.
func (s *PlayerService) Grant(ctx context.Context, telegramID, gold, sapphires int64, reason string) (*model.Player, error) {
	player, err := s.players.UpdateCurrency(ctx, telegramID, gold, sapphires)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	_, err = s.txs.Create(ctx, telegramID, gold, sapphires, model.TxTypeAdminGrant, &reason)
	if err != nil {
		log.Warn().Err(err).Int64("player_id", telegramID).Msg("failed to record admin grant")
	}
	return player, nil
}

// EnergySweep accrues energy for every player below the cap. Used by the
// scheduler so idle players regenerate without opening their profile.
func (s *PlayerService) EnergySweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.players.ListEnergyDeficit(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, id := range ids {
		player, err := s.accrueEnergy(ctx, id, now)
		if err != nil {
			log.Warn().Err(err).Int64("player_id", id).Msg("energy sweep failed for player")
			continue
		}
		updated++
		// ListEnergyDeficit only returns players below the cap, so
		// hitting it now is a transition worth announcing.
		if player.Energy >= model.MaxEnergy && s.onEnergyFull != nil {
			s.onEnergyFull(id)
		}
	}
	return updated, nil
}
