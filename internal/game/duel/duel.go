// Package duel implements persisted player-versus-player battles and
// training battles against a synthesized opponent.
//
// Duels are deliberately turn-unenforced: either side may act at any time,
// and the engine only serializes actions on the same battle row. Health
// floors and the delete-once conclusion guard keep the record consistent
// regardless of interleaving.
package duel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/combat"
	"magic-rpg-bot/internal/game/rating"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

// Duel reward and matchmaking constants.
const (
	VictoryExp         = 50
	GoldPerRatingPoint = 2
	MatchmakingWindow  = 100

	// lockWait bounds how long an action queues behind its battle lock
	// before the caller is told to retry.
	lockWait = 5 * time.Second
)

// BotStats synthesizes the training opponent's stat block from a level.
func BotStats(level int) (health, mana, damage, defense, intellect int) {
	return 80 + 5*level, 60 + 3*level, 10 + 2*level, 5 + level, 8 + level
}

// TurnResult describes one resolved duel action.
type TurnResult struct {
	BattleID int64
	Action   game.Action
	State    game.State

	DamageDealt int
	DamageTaken int // training opponent's retaliation
	ManaSpent   int

	MyHealth  int
	OppHealth int

	// Conclusion payload, set once when the battle ends.
	WinnerID    int64
	LoserID     int64
	RatingDelta int
	GoldReward  int64
	ExpReward   int64
	Surrendered bool
}

// playerStore is the slice of the player repository the engine touches.
type playerStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.Player, error)
	GetByName(ctx context.Context, characterName string) (*model.Player, error)
	SetVitals(ctx context.Context, telegramID int64, health, mana int) (*model.Player, error)
	UpdateCurrency(ctx context.Context, telegramID, goldDelta, sapphireDelta int64) (*model.Player, error)
	AddExperience(ctx context.Context, telegramID int64, exp int64) (*model.Player, error)
}

// battleStore persists the live battle rows.
type battleStore interface {
	Create(ctx context.Context, player1ID, player2ID int64, p1Health, p2Health, p1Mana, p2Mana, botLevel int) (*model.DuelBattle, error)
	GetByParticipant(ctx context.Context, playerID int64) (*model.DuelBattle, error)
	HasActive(ctx context.Context, playerID int64) (bool, error)
	UpdateState(ctx context.Context, battleID int64, p1Health, p2Health, p1Mana, p2Mana int, logLine string) (*model.DuelBattle, error)
	Delete(ctx context.Context, battleID int64) error
}

type ratingStore interface {
	GetOrCreate(ctx context.Context, playerID int64) (*model.Rating, error)
	ApplyResult(ctx context.Context, winnerID, loserID int64, delta int) error
	FindNearest(ctx context.Context, playerID int64, ratingValue, window int) (*model.Rating, error)
}

type txStore interface {
	Create(ctx context.Context, playerID, gold, sapphires int64, txType string, description *string) (*model.Transaction, error)
}

// Engine coordinates battle rows, ratings and rewards.
type Engine struct {
	players playerStore
	battles battleStore
	ratings ratingStore
	txs     txStore
	locks   *lock.EntityLock
	rng     *game.Rand
}

// NewEngine creates a duel engine.
func NewEngine(
	players playerStore,
	battles battleStore,
	ratings ratingStore,
	txs txStore,
	locks *lock.EntityLock,
	rng *game.Rand,
) *Engine {
	return &Engine{
		players: players,
		battles: battles,
		ratings: ratings,
		txs:     txs,
		locks:   locks,
		rng:     rng,
	}
}

// checkEntry validates that a player may enter a battle: alive enough and
// not already fighting.
func (e *Engine) checkEntry(ctx context.Context, player *model.Player) error {
	if player.Health < player.MaxHealth/2 {
		return game.ErrInsufficientResource
	}
	active, err := e.battles.HasActive(ctx, player.TelegramID)
	if err != nil {
		return err
	}
	if active {
		return game.ErrInvalidState
	}
	return nil
}

// Challenge opens a battle between the challenger and the named character.
// Both must be at half health or better and free of other battles.
func (e *Engine) Challenge(ctx context.Context, challengerID int64, opponentName string) (*model.DuelBattle, error) {
	challenger, err := e.players.GetByID(ctx, challengerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if err := e.checkEntry(ctx, challenger); err != nil {
		return nil, err
	}

	opponent, err := e.players.GetByName(ctx, opponentName)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if opponent.TelegramID == challengerID {
		return nil, game.ErrInvalidState
	}
	if err := e.checkEntry(ctx, opponent); err != nil {
		return nil, err
	}

	return e.battles.Create(ctx,
		challengerID, opponent.TelegramID,
		challenger.Health, opponent.Health,
		challenger.Mana, opponent.Mana, 0)
}

// TrainingChallenge opens a battle against the synthetic opponent, scaled
// to the player's level.
func (e *Engine) TrainingChallenge(ctx context.Context, playerID int64) (*model.DuelBattle, error) {
	player, err := e.players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	if err := e.checkEntry(ctx, player); err != nil {
		return nil, err
	}

	botHealth, botMana, _, _, _ := BotStats(player.Level)
	return e.battles.Create(ctx,
		playerID, model.BotOpponentID,
		player.Health, botHealth,
		player.Mana, botMana, player.Level)
}

// Matchmake suggests the opponent with the nearest rating within the
// matchmaking window. Returns game.ErrNotFound when nobody qualifies.
func (e *Engine) Matchmake(ctx context.Context, playerID int64) (*model.Player, error) {
	own, err := e.ratings.GetOrCreate(ctx, playerID)
	if err != nil {
		return nil, err
	}
	nearest, err := e.ratings.FindNearest(ctx, playerID, own.Rating, MatchmakingWindow)
	if err != nil {
		return nil, err
	}
	if nearest == nil {
		return nil, game.ErrNotFound
	}
	opponent, err := e.players.GetByID(ctx, nearest.PlayerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	return opponent, nil
}

// side is one participant's view of a battle row.
type side struct {
	id        int64
	health    int
	mana      int
	damage    int
	defense   int
	intellect int
	isBot     bool
}

// loadSides resolves the acting player's and opponent's stats. Stats come
// from the character record; health and mana come from the battle row.
func (e *Engine) loadSides(ctx context.Context, battle *model.DuelBattle, actorID int64) (me, opp side, actorIsP1 bool, err error) {
	actorIsP1 = battle.Player1ID == actorID

	build := func(id int64, health, mana, botLevel int) (side, error) {
		if id == model.BotOpponentID {
			_, _, dmg, def, intel := BotStats(botLevel)
			return side{id: id, health: health, mana: mana, damage: dmg, defense: def, intellect: intel, isBot: true}, nil
		}
		p, err := e.players.GetByID(ctx, id)
		if err != nil {
			return side{}, err
		}
		return side{id: id, health: health, mana: mana, damage: p.Damage, defense: p.Defense, intellect: p.Intellect}, nil
	}

	if actorIsP1 {
		me, err = build(battle.Player1ID, battle.Player1Health, battle.Player1Mana, battle.BotLevel)
		if err != nil {
			return
		}
		opp, err = build(battle.Player2ID, battle.Player2Health, battle.Player2Mana, battle.BotLevel)
		return
	}
	me, err = build(battle.Player2ID, battle.Player2Health, battle.Player2Mana, battle.BotLevel)
	if err != nil {
		return
	}
	opp, err = build(battle.Player1ID, battle.Player1Health, battle.Player1Mana, battle.BotLevel)
	return
}

// Act resolves one action by the given player in their battle. Against the
// training opponent the bot retaliates within the same call.
func (e *Engine) Act(ctx context.Context, playerID int64, action game.Action) (*TurnResult, error) {
	battle, err := e.battles.GetByParticipant(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrBattleNotFound) {
			return nil, game.ErrInvalidState
		}
		return nil, err
	}

	var res *TurnResult
	err = e.locks.WithLockContext(ctx, lock.KindDuel, battle.ID, lockWait, func() error {
		// Reload under the lock; a concurrent act may have concluded it.
		battle, err = e.battles.GetByParticipant(ctx, playerID)
		if err != nil {
			if errors.Is(err, repository.ErrBattleNotFound) {
				return game.ErrConcurrencyConflict
			}
			return err
		}
		res, err = e.resolve(ctx, battle, playerID, action)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, game.ErrConcurrencyConflict
		}
		return nil, err
	}
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, battle *model.DuelBattle, playerID int64, action game.Action) (*TurnResult, error) {
	me, opp, actorIsP1, err := e.loadSides(ctx, battle, playerID)
	if err != nil {
		return nil, err
	}

	res := &TurnResult{BattleID: battle.ID, Action: action, State: game.StateEngaged}
	logLine := ""

	switch action {
	case game.ActionAttack:
		res.DamageDealt = combat.DuelStrike(me.damage, opp.defense, e.rng)
		opp.health -= res.DamageDealt
		logLine = fmt.Sprintf("%d hits for %d", playerID, res.DamageDealt)

	case game.ActionMagic:
		if me.mana < combat.SpellManaCost {
			return nil, game.ErrInsufficientResource
		}
		me.mana -= combat.SpellManaCost
		res.ManaSpent = combat.SpellManaCost
		res.DamageDealt = combat.DuelSpell(me.intellect, opp.defense, e.rng)
		opp.health -= res.DamageDealt
		logLine = fmt.Sprintf("%d casts for %d", playerID, res.DamageDealt)

	case game.ActionFlee:
		// Surrender: the opponent wins on the spot.
		res.Surrendered = true
		return e.conclude(ctx, battle, res, playerID, opp.id, me.id)

	default:
		return nil, game.ErrInvalidState
	}

	if opp.health <= 0 {
		res.MyHealth = me.health
		res.OppHealth = 0
		return e.conclude(ctx, battle, res, playerID, me.id, opp.id)
	}

	// The training opponent answers every action.
	if opp.isBot {
		res.DamageTaken = combat.DuelStrike(opp.damage, me.defense, e.rng)
		me.health -= res.DamageTaken
		logLine += fmt.Sprintf("; bot hits for %d", res.DamageTaken)
		if me.health <= 0 {
			res.MyHealth = 0
			res.OppHealth = opp.health
			return e.conclude(ctx, battle, res, playerID, opp.id, me.id)
		}
	}

	var p1Health, p2Health, p1Mana, p2Mana int
	if actorIsP1 {
		p1Health, p1Mana = me.health, me.mana
		p2Health, p2Mana = opp.health, opp.mana
	} else {
		p1Health, p1Mana = opp.health, opp.mana
		p2Health, p2Mana = me.health, me.mana
	}

	if _, err := e.battles.UpdateState(ctx, battle.ID, p1Health, p2Health, p1Mana, p2Mana, logLine); err != nil {
		return nil, err
	}

	res.MyHealth = me.health
	res.OppHealth = opp.health
	return res, nil
}

// conclude settles a finished battle: the row is deleted exactly once, then
// ratings, rewards and vitals are applied. A lost delete race means someone
// else already settled.
func (e *Engine) conclude(ctx context.Context, battle *model.DuelBattle, res *TurnResult, actorID, winnerID, loserID int64) (*TurnResult, error) {
	if err := e.battles.Delete(ctx, battle.ID); err != nil {
		if errors.Is(err, repository.ErrBattleNotFound) {
			return nil, game.ErrConcurrencyConflict
		}
		return nil, err
	}

	res.WinnerID = winnerID
	res.LoserID = loserID
	if winnerID != model.BotOpponentID {
		res.ExpReward = VictoryExp
	}

	training := winnerID == model.BotOpponentID || loserID == model.BotOpponentID

	if !training {
		winRating, err := e.ratings.GetOrCreate(ctx, winnerID)
		if err != nil {
			return nil, err
		}
		loseRating, err := e.ratings.GetOrCreate(ctx, loserID)
		if err != nil {
			return nil, err
		}
		res.RatingDelta = rating.Delta(winRating.Rating, loseRating.Rating)
		if err := e.ratings.ApplyResult(ctx, winnerID, loserID, res.RatingDelta); err != nil {
			return nil, err
		}
		res.GoldReward = int64(res.RatingDelta) * GoldPerRatingPoint
	}

	// Winner walks away fully restored; a human loser is patched up to
	// half health. The battle row is already gone, so a failed grant here
	// cannot be replayed: log every miss instead of dropping it silently.
	if winnerID != model.BotOpponentID {
		if winner, err := e.players.GetByID(ctx, winnerID); err != nil {
			log.Warn().Err(err).Int64("player_id", winnerID).Msg("failed to load duel winner for settlement")
		} else if _, err := e.players.SetVitals(ctx, winnerID, winner.MaxHealth, winner.MaxMana); err != nil {
			log.Warn().Err(err).Int64("player_id", winnerID).Msg("failed to restore duel winner")
		}
		if res.GoldReward > 0 {
			desc := fmt.Sprintf("duel victory over %d", loserID)
			if _, err := e.players.UpdateCurrency(ctx, winnerID, res.GoldReward, 0); err != nil {
				log.Warn().Err(err).Int64("player_id", winnerID).Int64("gold", res.GoldReward).Msg("failed to grant duel gold")
			} else if _, err := e.txs.Create(ctx, winnerID, res.GoldReward, 0, model.TxTypeDuelReward, &desc); err != nil {
				log.Warn().Err(err).Int64("player_id", winnerID).Msg("failed to record duel reward")
			}
		}
		if _, err := e.players.AddExperience(ctx, winnerID, res.ExpReward); err != nil {
			log.Warn().Err(err).Int64("player_id", winnerID).Int64("exp", res.ExpReward).Msg("failed to grant duel experience")
		}
	}
	if loserID != model.BotOpponentID {
		if loser, err := e.players.GetByID(ctx, loserID); err != nil {
			log.Warn().Err(err).Int64("player_id", loserID).Msg("failed to load duel loser for settlement")
		} else if _, err := e.players.SetVitals(ctx, loserID, loser.MaxHealth/2, loser.Mana); err != nil {
			log.Warn().Err(err).Int64("player_id", loserID).Msg("failed to patch up duel loser")
		}
	}

	if actorID == winnerID {
		res.State = game.StateVictory
	} else {
		res.State = game.StateDefeat
	}
	return res, nil
}
