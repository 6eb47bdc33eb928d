// Package boss implements the daily raid boss: a shared damage pool every
// player may strike once per day, with proportional rewards and a top-3
// bonus settled exactly once when the pool is emptied.
package boss

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

const (
	// TopBonusRanks is how many contributors share the defeat bonus.
	TopBonusRanks = 3

	// lockWait bounds how long a strike queues behind the day lock before
	// the caller is told to retry.
	lockWait = 5 * time.Second
)

// Damage computes a player's strike against a boss of the given type.
// Each archetype is strong against a matching boss.
func Damage(p *model.Player, bossType string, rng *game.Rand) int {
	var bonus float64
	switch bossType {
	case "mage":
		bonus = float64(p.Intellect) * 0.5
	case "warrior":
		bonus = float64(p.Damage) * 0.3
	case "archer":
		bonus = float64(p.Agility) * 0.4
	case "priest":
		bonus = float64(p.Intellect+p.Damage) * 0.2
	case "dark_mage":
		bonus = float64(p.Intellect) * 0.6
	case "dragon":
		bonus = float64(p.Damage+p.Agility) * 0.25
	case "random":
		bonus = float64(rng.Between(10, 30))
	}
	return int(float64(p.Damage)+bonus) + rng.Between(5, 15)
}

// SelfLoss is the health a player pays for striking the boss.
func SelfLoss(health int) int {
	loss := health / 10
	if loss < 1 {
		loss = 1
	}
	return loss
}

// Rewards computes the per-strike payout. Gold is proportional to the share
// of the boss's total health dealt, floored at 100, and doubled on the
// killing blow; experience is tripled on it.
func Rewards(tpl model.BossTemplate, damage int64, kill bool, rng *game.Rand) (gold, exp, sapphires int64) {
	gold = damage * tpl.GoldReward / tpl.Health
	if gold < 100 {
		gold = 100
	}
	exp = damage * 2
	if kill {
		gold *= 2
		exp *= 3
	}
	if rng.Between(1, 100) <= tpl.SapphireChance {
		sapphires = 1
		if kill {
			sapphires++
		}
	}
	return gold, exp, sapphires
}

// TopBonus returns the defeat bonus for a 1-based contribution rank.
func TopBonus(rank int) (gold, sapphires int64) {
	gold = 1000 / int64(rank)
	sapphires = int64(TopBonusRanks - rank)
	if sapphires < 1 {
		sapphires = 1
	}
	return gold, sapphires
}

// AttackResult describes one resolved boss strike.
type AttackResult struct {
	Template   model.BossTemplate
	Damage     int64
	SelfLoss   int
	BossHealth int64

	Gold      int64
	Exp       int64
	Sapphires int64

	KillingBlow bool
	Defeated    bool
}

// DefeatEvent is published once per boss, when the killing blow lands.
type DefeatEvent struct {
	Template model.BossTemplate
	Date     time.Time
	Top      []*model.BossContribution
}

// playerStore is the slice of the player repository the engine touches.
type playerStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.Player, error)
	SetVitals(ctx context.Context, telegramID int64, health, mana int) (*model.Player, error)
	UpdateCurrency(ctx context.Context, telegramID, goldDelta, sapphireDelta int64) (*model.Player, error)
	AddExperience(ctx context.Context, telegramID int64, exp int64) (*model.Player, error)
}

// bossStore is the boss pool persistence the engine drives.
type bossStore interface {
	EnsureForDate(ctx context.Context, date time.Time, bossDay int, health int64) error
	GetForDate(ctx context.Context, date time.Time) (*model.BossStatus, error)
	ApplyDamage(ctx context.Context, date time.Time, damage int64) (*model.BossStatus, error)
	MarkDefeated(ctx context.Context, date time.Time) (bool, error)
	AddContribution(ctx context.Context, playerID int64, date time.Time, damage int64) (bool, error)
	HasContributed(ctx context.Context, playerID int64, date time.Time) (bool, error)
	TopContributors(ctx context.Context, date time.Time, limit int) ([]*model.BossContribution, error)
}

type txStore interface {
	Create(ctx context.Context, playerID, gold, sapphires int64, txType string, description *string) (*model.Transaction, error)
}

// Engine serializes strikes against the shared daily pool.
type Engine struct {
	players playerStore
	bosses  bossStore
	txs     txStore
	locks   *lock.EntityLock
	rng     *game.Rand

	onDefeat func(ctx context.Context, ev DefeatEvent)
}

// NewEngine creates a boss engine.
func NewEngine(
	players playerStore,
	bosses bossStore,
	txs txStore,
	locks *lock.EntityLock,
	rng *game.Rand,
) *Engine {
	return &Engine{
		players: players,
		bosses:  bosses,
		txs:     txs,
		locks:   locks,
		rng:     rng,
	}
}

// OnDefeat registers the hook fired when the boss goes down. Called while
// the boss lock is held, so it should hand off instead of blocking.
func (e *Engine) OnDefeat(fn func(ctx context.Context, ev DefeatEvent)) {
	e.onDefeat = fn
}

// Day normalizes a point in time to its UTC calendar day, the key every
// boss row and contribution is filed under.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(date time.Time) int64 {
	return date.Unix() / 86400
}

// Status returns today's boss template and its live pool, seeding the pool
// row if this is the first look of the day.
func (e *Engine) Status(ctx context.Context, now time.Time) (model.BossTemplate, *model.BossStatus, error) {
	date := Day(now)
	tpl := TemplateFor(date)
	if err := e.bosses.EnsureForDate(ctx, date, int(tpl.SpawnDay), tpl.Health); err != nil {
		return tpl, nil, err
	}
	status, err := e.bosses.GetForDate(ctx, date)
	if err != nil {
		return tpl, nil, err
	}
	return tpl, status, nil
}

// HasAttacked reports whether the player already struck today's boss.
func (e *Engine) HasAttacked(ctx context.Context, playerID int64, now time.Time) (bool, error) {
	return e.bosses.HasContributed(ctx, playerID, Day(now))
}

// Attack resolves one strike. The once-per-day check, the pool subtraction
// and the contribution record all happen under the same day lock, so two
// concurrent strikes can never double-count a player or lose damage.
func (e *Engine) Attack(ctx context.Context, playerID int64, now time.Time) (*AttackResult, error) {
	player, err := e.players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if player.Health <= 0 {
		return nil, game.ErrInsufficientResource
	}

	date := Day(now)
	tpl := TemplateFor(date)
	res := &AttackResult{Template: tpl}

	err = e.locks.WithLockContext(ctx, lock.KindBoss, dayKey(date), lockWait, func() error {
		if err := e.bosses.EnsureForDate(ctx, date, int(tpl.SpawnDay), tpl.Health); err != nil {
			return err
		}
		attacked, err := e.bosses.HasContributed(ctx, playerID, date)
		if err != nil {
			return err
		}
		if attacked {
			return game.ErrInvalidState
		}

		damage := int64(Damage(player, tpl.Type, e.rng))
		status, err := e.bosses.ApplyDamage(ctx, date, damage)
		if err != nil {
			if errors.Is(err, repository.ErrBossNotFound) {
				// Already dead.
				return game.ErrInvalidState
			}
			return err
		}
		recorded, err := e.bosses.AddContribution(ctx, playerID, date, damage)
		if err != nil {
			return err
		}
		if !recorded {
			return game.ErrConcurrencyConflict
		}

		res.Damage = damage
		res.BossHealth = status.CurrentHealth
		res.SelfLoss = SelfLoss(player.Health)
		if _, err := e.players.SetVitals(ctx, playerID, player.Health-res.SelfLoss, player.Mana); err != nil {
			return err
		}

		if status.CurrentHealth == 0 {
			settled, err := e.bosses.MarkDefeated(ctx, date)
			if err != nil {
				return err
			}
			res.KillingBlow = settled
			res.Defeated = true
		}

		res.Gold, res.Exp, res.Sapphires = Rewards(tpl, damage, res.KillingBlow, e.rng)
		if err := e.grantStrikeReward(ctx, playerID, res); err != nil {
			return err
		}

		if res.KillingBlow {
			return e.settleDefeat(ctx, date, tpl)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, game.ErrConcurrencyConflict
		}
		return nil, err
	}
	return res, nil
}

func (e *Engine) grantStrikeReward(ctx context.Context, playerID int64, res *AttackResult) error {
	if _, err := e.players.UpdateCurrency(ctx, playerID, res.Gold, res.Sapphires); err != nil {
		return fmt.Errorf("failed to grant boss reward: %w", err)
	}
	if _, err := e.players.AddExperience(ctx, playerID, res.Exp); err != nil {
		return err
	}
	desc := fmt.Sprintf("%s: %d damage", res.Template.Name, res.Damage)
	_, err := e.txs.Create(ctx, playerID, res.Gold, res.Sapphires, model.TxTypeBossReward, &desc)
	return err
}

// settleDefeat grants the top-3 contribution bonuses. Runs at most once per
// boss: only the strike that won the MarkDefeated race reaches here.
func (e *Engine) settleDefeat(ctx context.Context, date time.Time, tpl model.BossTemplate) error {
	top, err := e.bosses.TopContributors(ctx, date, TopBonusRanks)
	if err != nil {
		return err
	}
	for i, contrib := range top {
		gold, sapphires := TopBonus(i + 1)
		if _, err := e.players.UpdateCurrency(ctx, contrib.PlayerID, gold, sapphires); err != nil {
			return fmt.Errorf("failed to grant top-%d bonus: %w", i+1, err)
		}
		desc := fmt.Sprintf("%s defeated, rank %d", tpl.Name, i+1)
		if _, err := e.txs.Create(ctx, contrib.PlayerID, gold, sapphires, model.TxTypeBossTopBonus, &desc); err != nil {
			return err
		}
	}
	if e.onDefeat != nil {
		e.onDefeat(ctx, DefeatEvent{Template: tpl, Date: date, Top: top})
	}
	return nil
}

// TopToday lists today's contribution ranking for the leaderboard view.
func (e *Engine) TopToday(ctx context.Context, now time.Time, limit int) ([]*model.BossContribution, error) {
	return e.bosses.TopContributors(ctx, Day(now), limit)
}
