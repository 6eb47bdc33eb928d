// Package mine implements per-player passive gold generation and the
// contested raid economy on top of it.
//
// Storage is accrued lazily from the persisted checkpoint, so a mine that
// is never looked at costs nothing; the scheduler sweep only exists to
// keep displayed balances fresh.
package mine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/accrual"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

// Starting mine and upgrade parameters.
const (
	BaseIncomePerHour = 100
	BaseCapacity      = 1000
	MaxLevel          = 5
	MaxGuardLevel     = 10

	UpgradeIncomeStep   = 50
	UpgradeCapacityStep = 500
	UpgradeCostPerLevel = 2000
	GuardCostStep       = 1500
)

// Raid tuning.
const (
	RaidMinLevel       = 5
	RaidMinStorage     = 100
	RaidMaxSteal       = 500
	RaidBaseChance     = 70
	RaidChancePerGuard = 10
	RaidMinChance      = 10
)

// UpgradeCost is the gold price of raising a mine from the given level.
func UpgradeCost(level int) int64 {
	return int64(level) * UpgradeCostPerLevel
}

// GuardUpgradeCost is the gold price of the next guard level.
func GuardUpgradeCost(guardLevel int) int64 {
	return int64(guardLevel+1) * GuardCostStep
}

// RaidSuccessChance is the raider's percent chance against a guard level.
func RaidSuccessChance(guardLevel int) int {
	chance := RaidBaseChance - guardLevel*RaidChancePerGuard
	if chance < RaidMinChance {
		chance = RaidMinChance
	}
	return chance
}

// StealAmount is how much a successful raid takes: a third of storage,
// capped.
func StealAmount(storage int64) int64 {
	stolen := storage / 3
	if stolen > RaidMaxSteal {
		stolen = RaidMaxSteal
	}
	return stolen
}

// RaidResult describes one resolved raid attempt.
type RaidResult struct {
	Success     bool
	Chance      int
	Stolen      int64
	GuardDamage int
}

// Engine owns mine accrual, upgrades and raids.
type Engine struct {
	players *repository.PlayerRepository
	mines   *repository.MineRepository
	txs     *repository.TransactionRepository
	locks   *lock.EntityLock
	rng     *game.Rand

	raidCooldown time.Duration
}

// NewEngine creates a mine engine.
func NewEngine(
	players *repository.PlayerRepository,
	mines *repository.MineRepository,
	txs *repository.TransactionRepository,
	locks *lock.EntityLock,
	rng *game.Rand,
	raidCooldown time.Duration,
) *Engine {
	return &Engine{
		players:      players,
		mines:        mines,
		txs:          txs,
		locks:        locks,
		rng:          rng,
		raidCooldown: raidCooldown,
	}
}

// Get returns the player's mine with storage accrued to now, creating the
// starting mine on first visit.
func (e *Engine) Get(ctx context.Context, ownerID int64, now time.Time) (*model.Mine, error) {
	if _, err := e.mines.Create(ctx, ownerID, BaseIncomePerHour, BaseCapacity); err != nil {
		return nil, err
	}
	var mine *model.Mine
	err := e.locks.WithLock(lock.KindMine, ownerID, func() error {
		var err error
		mine, err = e.accrue(ctx, ownerID, now)
		return err
	})
	return mine, err
}

// accrue folds elapsed time into storage and persists the new checkpoint.
// Callers must hold the mine lock.
func (e *Engine) accrue(ctx context.Context, ownerID int64, now time.Time) (*model.Mine, error) {
	mine, err := e.mines.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrMineNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	res := accrual.Accrue(mine.Storage, mine.Capacity, mine.IncomePerHour, time.Hour, mine.LastCollected, now)
	if res.Accrued == 0 && res.Checkpoint.Equal(mine.LastCollected) {
		return mine, nil
	}
	return e.mines.SetAccrued(ctx, ownerID, res.Value, res.Checkpoint)
}

// Collect moves accrued storage into the owner's gold balance.
func (e *Engine) Collect(ctx context.Context, ownerID int64, now time.Time) (int64, error) {
	var collected int64
	err := e.locks.WithLock(lock.KindMine, ownerID, func() error {
		if _, err := e.accrue(ctx, ownerID, now); err != nil {
			return err
		}
		drained, err := e.mines.Drain(ctx, ownerID, now)
		if err != nil {
			return err
		}
		if drained == 0 {
			return game.ErrInsufficientResource
		}
		if _, err := e.players.UpdateCurrency(ctx, ownerID, drained, 0); err != nil {
			return fmt.Errorf("failed to credit collected gold: %w", err)
		}
		collected = drained
		desc := fmt.Sprintf("collected %d gold", drained)
		_, err = e.txs.Create(ctx, ownerID, drained, 0, model.TxTypeMineCollect, &desc)
		return err
	})
	return collected, err
}

// Upgrade raises the mine level, buying more income and capacity.
func (e *Engine) Upgrade(ctx context.Context, ownerID int64, now time.Time) (*model.Mine, error) {
	var upgraded *model.Mine
	err := e.locks.WithLock(lock.KindMine, ownerID, func() error {
		mine, err := e.accrue(ctx, ownerID, now)
		if err != nil {
			return err
		}
		if mine.Level >= MaxLevel {
			return game.ErrInvalidState
		}
		cost := UpgradeCost(mine.Level)
		if _, err := e.players.UpdateCurrency(ctx, ownerID, -cost, 0); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrInsufficientResource
			}
			return err
		}
		upgraded, err = e.mines.Upgrade(ctx, ownerID, mine.Level+1,
			mine.IncomePerHour+UpgradeIncomeStep, mine.Capacity+UpgradeCapacityStep)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("mine upgraded to level %d", upgraded.Level)
		_, err = e.txs.Create(ctx, ownerID, -cost, 0, model.TxTypeMineUpgrade, &desc)
		return err
	})
	return upgraded, err
}

// UpgradeGuard raises the guard level that defends against raids.
func (e *Engine) UpgradeGuard(ctx context.Context, ownerID int64, now time.Time) (*model.Mine, error) {
	var upgraded *model.Mine
	err := e.locks.WithLock(lock.KindMine, ownerID, func() error {
		mine, err := e.accrue(ctx, ownerID, now)
		if err != nil {
			return err
		}
		if mine.GuardLevel >= MaxGuardLevel {
			return game.ErrInvalidState
		}
		cost := GuardUpgradeCost(mine.GuardLevel)
		if _, err := e.players.UpdateCurrency(ctx, ownerID, -cost, 0); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return game.ErrInsufficientResource
			}
			return err
		}
		upgraded, err = e.mines.SetGuardLevel(ctx, ownerID, mine.GuardLevel+1)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("guard upgraded to level %d", upgraded.GuardLevel)
		_, err = e.txs.Create(ctx, ownerID, -cost, 0, model.TxTypeMineUpgrade, &desc)
		return err
	})
	return upgraded, err
}

// Raid attempts to steal from another player's mine. The attacker's player
// lock and the target's mine lock are taken in a fixed kind order, and
// contention fails fast rather than queueing raiders up.
func (e *Engine) Raid(ctx context.Context, attackerID, targetID int64, now time.Time) (*RaidResult, error) {
	if attackerID == targetID {
		return nil, game.ErrInvalidState
	}
	attacker, err := e.players.GetByID(ctx, attackerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if attacker.Level < RaidMinLevel {
		return nil, game.ErrInvalidState
	}
	last, err := e.mines.LastRaidAt(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	if !last.IsZero() && now.Sub(last) < e.raidCooldown {
		return nil, game.ErrInvalidState
	}

	if !e.locks.TryLock(lock.KindPlayer, attackerID) {
		return nil, game.ErrConcurrencyConflict
	}
	defer e.locks.Unlock(lock.KindPlayer, attackerID)
	if !e.locks.TryLock(lock.KindMine, targetID) {
		return nil, game.ErrConcurrencyConflict
	}
	defer e.locks.Unlock(lock.KindMine, targetID)

	target, err := e.accrue(ctx, targetID, now)
	if err != nil {
		return nil, err
	}
	if target.Storage <= RaidMinStorage {
		return nil, game.ErrInsufficientResource
	}

	res := &RaidResult{Chance: RaidSuccessChance(target.GuardLevel)}
	if e.rng.Between(1, 100) <= res.Chance {
		res.Success = true
		res.Stolen = StealAmount(target.Storage)
		res.GuardDamage = e.rng.Between(1, 3)

		if _, err := e.mines.Steal(ctx, targetID, res.Stolen); err != nil {
			return nil, err
		}
		if _, err := e.mines.SetGuardLevel(ctx, targetID, target.GuardLevel-res.GuardDamage); err != nil {
			return nil, err
		}
		if _, err := e.players.UpdateCurrency(ctx, attackerID, res.Stolen, 0); err != nil {
			return nil, fmt.Errorf("failed to credit stolen gold: %w", err)
		}
		desc := fmt.Sprintf("raided mine of %d", targetID)
		if _, err := e.txs.Create(ctx, attackerID, res.Stolen, 0, model.TxTypeMineRaid, &desc); err != nil {
			return nil, err
		}
		victimDesc := fmt.Sprintf("mine raided, lost %d storage", res.Stolen)
		if _, err := e.txs.Create(ctx, targetID, 0, 0, model.TxTypeMineRaided, &victimDesc); err != nil {
			return nil, err
		}
	}

	if err := e.mines.RecordRaid(ctx, attackerID, targetID, res.Success, res.Stolen, res.GuardDamage); err != nil {
		return nil, err
	}
	return res, nil
}

// Sweep accrues every non-full mine, keeping displayed storage close to
// real time. Errors are counted, not fatal: one broken row must not stall
// the scheduler.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (updated int, err error) {
	owners, err := e.mines.ListOwners(ctx)
	if err != nil {
		return 0, err
	}
	for _, ownerID := range owners {
		lockErr := e.locks.WithLock(lock.KindMine, ownerID, func() error {
			_, err := e.accrue(ctx, ownerID, now)
			return err
		})
		if lockErr == nil {
			updated++
		}
	}
	return updated, nil
}
