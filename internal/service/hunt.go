package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/combat"
	"magic-rpg-bot/internal/game/item"
	"magic-rpg-bot/internal/game/progress"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

// Energy taxed on a hunt lost or abandoned mid-fight.
const DefeatEnergyTax = 5

// HuntOutcome is a resolved hunt turn plus the persisted consequences.
type HuntOutcome struct {
	Turn *combat.TurnResult

	// Set on terminal turns.
	GoldDelta int64
	ExpReward int64
	Drop      *item.Item
	LevelUps  []progress.LevelUpReward
}

// HuntService runs hunt encounters and settles their outcomes.
type HuntService struct {
	players  *repository.PlayerRepository
	inv      *repository.InventoryRepository
	txs      *repository.TransactionRepository
	engine   *combat.Engine
	progress *progress.Tracker
	locks    *lock.EntityLock
	rng      *game.Rand

	energyCost int
}

// NewHuntService creates a new HuntService instance.
func NewHuntService(
	players *repository.PlayerRepository,
	inv *repository.InventoryRepository,
	txs *repository.TransactionRepository,
	engine *combat.Engine,
	tracker *progress.Tracker,
	locks *lock.EntityLock,
	rng *game.Rand,
	energyCost int,
) *HuntService {
	return &HuntService{
		players:    players,
		inv:        inv,
		txs:        txs,
		engine:     engine,
		progress:   tracker,
		locks:      locks,
		rng:        rng,
		energyCost: energyCost,
	}
}

// Start opens a hunt session. Requires a full energy cost worth of energy
// up front; the cost is only taken when the hunt ends in victory.
func (s *HuntService) Start(ctx context.Context, playerID int64, now time.Time) (*combat.Session, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if player.Energy < s.energyCost {
		return nil, game.ErrInsufficientResource
	}
	return s.engine.Start(player)
}

// Session returns the live hunt session, if any.
func (s *HuntService) Session(playerID int64) (*combat.Session, bool) {
	return s.engine.Get(playerID)
}

// Act resolves one hunt action and, when it ends the fight, applies the
// rewards or penalties to the player record.
func (s *HuntService) Act(ctx context.Context, playerID int64, action game.Action) (*HuntOutcome, error) {
	turn, err := s.engine.Act(playerID, action)
	if err != nil {
		return nil, err
	}

	out := &HuntOutcome{Turn: turn}
	if !turn.State.Terminal() {
		return out, nil
	}

	err = s.locks.WithLock(lock.KindPlayer, playerID, func() error {
		switch turn.State {
		case game.StateVictory:
			return s.settleVictory(ctx, playerID, out)
		case game.StateDefeat:
			return s.settleDefeat(ctx, playerID, out)
		case game.StateFled:
			// Tax applies even on an empty bar, clamped at zero.
			return s.players.DrainEnergy(ctx, playerID, combat.FleeEnergyTax)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HuntService) settleVictory(ctx context.Context, playerID int64, out *HuntOutcome) error {
	turn := out.Turn
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return err
	}

	if _, err := s.players.SpendEnergy(ctx, playerID, s.energyCost); err != nil {
		return err
	}
	if _, err := s.players.SetVitals(ctx, playerID, player.MaxHealth, player.MaxMana); err != nil {
		return err
	}
	if _, err := s.players.UpdateCurrency(ctx, playerID, turn.GoldReward, 0); err != nil {
		return fmt.Errorf("failed to credit hunt reward: %w", err)
	}
	out.GoldDelta = turn.GoldReward
	out.ExpReward = turn.ExpReward

	desc := fmt.Sprintf("defeated %s", turn.Monster.Name)
	if _, err := s.txs.Create(ctx, playerID, turn.GoldReward, 0, model.TxTypeHuntReward, &desc); err != nil {
		return err
	}

	if turn.Dropped {
		dropped := item.Roll(turn.Monster.Level, s.rng)
		if err := s.inv.AddItem(ctx, playerID, dropped.Name, dropped.Type, dropped.Rarity); err != nil {
			log.Warn().Err(err).Int64("player_id", playerID).Str("item", dropped.Name).Msg("failed to store drop")
		} else {
			out.Drop = &dropped
		}
	}

	levelUps, err := s.progress.GrantExperience(ctx, playerID, turn.ExpReward)
	if err != nil {
		return err
	}
	out.LevelUps = levelUps
	return nil
}

func (s *HuntService) settleDefeat(ctx context.Context, playerID int64, out *HuntOutcome) error {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return err
	}

	penalty := combat.DefeatPenalty(player.Gold)
	if penalty > 0 {
		if _, err := s.players.UpdateCurrency(ctx, playerID, -penalty, 0); err != nil {
			return fmt.Errorf("failed to apply defeat penalty: %w", err)
		}
		desc := fmt.Sprintf("defeated by %s", out.Turn.Monster.Name)
		if _, err := s.txs.Create(ctx, playerID, -penalty, 0, model.TxTypeHuntPenalty, &desc); err != nil {
			return err
		}
	}
	out.GoldDelta = -penalty

	if err := s.players.DrainEnergy(ctx, playerID, DefeatEnergyTax); err != nil {
		return err
	}
	_, err = s.players.SetVitals(ctx, playerID, player.MaxHealth/2, player.MaxMana/2)
	return err
}

// UsePotion consumes one health potion from the inventory.
func (s *HuntService) UsePotion(ctx context.Context, playerID int64) (*model.Player, error) {
	var player *model.Player
	err := s.locks.WithLock(lock.KindPlayer, playerID, func() error {
		var err error
		player, err = s.players.GetByID(ctx, playerID)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		if player.Health >= player.MaxHealth {
			return game.ErrInvalidState
		}
		consumed, err := s.inv.Consume(ctx, playerID, item.HealthPotionName)
		if err != nil {
			return err
		}
		if !consumed {
			return game.ErrInsufficientResource
		}
		player, err = s.players.SetVitals(ctx, playerID, player.Health+item.HealPotionAmount, player.Mana)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Inventory lists the player's stacked drops.
func (s *HuntService) Inventory(ctx context.Context, playerID int64) ([]*model.InventoryItem, error) {
	return s.inv.List(ctx, playerID)
}

// Reap abandons sessions idle past the timeout and taxes their owners'
// energy as if they had fled.
func (s *HuntService) Reap(ctx context.Context, maxAge time.Duration) int {
	reaped := s.engine.Reap(maxAge)
	for _, playerID := range reaped {
		if err := s.players.DrainEnergy(ctx, playerID, combat.FleeEnergyTax); err != nil {
			log.Warn().Err(err).Int64("player_id", playerID).Msg("failed to tax reaped hunt")
		}
	}
	return len(reaped)
}
