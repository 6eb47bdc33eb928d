package combat

import (
	"sync"
	"time"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
)

// DropChance is the probability of an item drop on a hunt victory.
const DropChance = 0.2

// Session is a live hunt encounter. Sessions are in-memory only; a restart
// abandons them and the player simply starts a new hunt.
type Session struct {
	PlayerID      int64
	Monster       model.Monster
	MonsterHealth int

	// Combat snapshot taken at start. The persisted character is only
	// touched again when the encounter reaches a terminal state.
	PlayerHealth int
	PlayerMana   int
	Damage       int
	Defense      int
	Intellect    int

	State     game.State
	StartedAt time.Time
	UpdatedAt time.Time
}

// TurnResult describes one resolved action.
type TurnResult struct {
	Action game.Action
	State  game.State

	DamageDealt int
	DamageTaken int
	ManaSpent   int

	PlayerHealth  int
	PlayerMana    int
	MonsterHealth int
	Monster       model.Monster

	// Victory payload, rolled when the killing blow lands.
	GoldReward int64
	ExpReward  int64
	Dropped    bool
}

// Engine owns all live hunt sessions. One session per player; actions on a
// session are serialized by the engine mutex.
type Engine struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	rng      *game.Rand
	now      func() time.Time
}

// NewEngine creates a hunt engine.
func NewEngine(rng *game.Rand) *Engine {
	return &Engine{
		sessions: make(map[int64]*Session),
		rng:      rng,
		now:      time.Now,
	}
}

// Start opens an encounter for the player against a monster picked for
// their level. Returns game.ErrInvalidState if the player is already
// engaged and game.ErrInsufficientResource if they are at zero health.
// Energy is the caller's concern.
func (e *Engine) Start(player *model.Player) (*Session, error) {
	if player.Health <= 0 {
		return nil, game.ErrInsufficientResource
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, engaged := e.sessions[player.TelegramID]; engaged {
		return nil, game.ErrInvalidState
	}

	monster := PickMonster(player.Level, e.rng)
	now := e.now()
	s := &Session{
		PlayerID:      player.TelegramID,
		Monster:       monster,
		MonsterHealth: monster.Health,
		PlayerHealth:  player.Health,
		PlayerMana:    player.Mana,
		Damage:        player.Damage,
		Defense:       player.Defense,
		Intellect:     player.Intellect,
		State:         game.StateEngaged,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	e.sessions[player.TelegramID] = s

	snapshot := *s
	return &snapshot, nil
}

// Get returns a copy of the player's live session, if any.
func (e *Engine) Get(playerID int64) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[playerID]
	if !ok {
		return nil, false
	}
	snapshot := *s
	return &snapshot, true
}

// Act resolves one action for the player's session. A terminal result
// removes the session; the caller applies its side effects exactly once.
// Returns game.ErrInvalidState when the player has no session and
// game.ErrInsufficientResource when casting without mana.
func (e *Engine) Act(playerID int64, action game.Action) (*TurnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[playerID]
	if !ok {
		return nil, game.ErrInvalidState
	}

	res := &TurnResult{Action: action, Monster: s.Monster}

	switch action {
	case game.ActionAttack:
		res.DamageDealt = PhysicalDamage(s.Damage, e.rng)
		s.MonsterHealth -= res.DamageDealt
		if s.MonsterHealth > 0 {
			res.DamageTaken = MonsterStrike(s.Monster.Damage, s.Defense, 3, e.rng)
			s.PlayerHealth -= res.DamageTaken
		}

	case game.ActionMagic:
		if s.PlayerMana < SpellManaCost {
			return nil, game.ErrInsufficientResource
		}
		s.PlayerMana -= SpellManaCost
		res.ManaSpent = SpellManaCost
		res.DamageDealt = SpellDamage(s.Intellect, e.rng)
		s.MonsterHealth -= res.DamageDealt
		if s.MonsterHealth > 0 {
			res.DamageTaken = MonsterStrike(s.Monster.Damage, s.Defense, 4, e.rng)
			s.PlayerHealth -= res.DamageTaken
		}

	case game.ActionDefend:
		res.DamageTaken = BlockedStrike(s.Monster.Damage, e.rng)
		s.PlayerHealth -= res.DamageTaken

	case game.ActionFlee:
		if e.rng.Chance(FleeChance) {
			s.State = game.StateFled
		} else {
			res.DamageTaken = FleeStrike(s.Monster.Damage, e.rng)
			s.PlayerHealth -= res.DamageTaken
		}

	default:
		return nil, game.ErrInvalidState
	}

	if s.MonsterHealth <= 0 {
		s.MonsterHealth = 0
		s.State = game.StateVictory
		res.GoldReward = e.rng.Int64Between(s.Monster.GoldMin, s.Monster.GoldMax)
		res.ExpReward = int64(s.Monster.Level) * 10
		res.Dropped = e.rng.Chance(DropChance)
	} else if s.PlayerHealth <= 0 {
		s.PlayerHealth = 0
		s.State = game.StateDefeat
	}

	s.UpdatedAt = e.now()
	res.State = s.State
	res.PlayerHealth = s.PlayerHealth
	res.PlayerMana = s.PlayerMana
	res.MonsterHealth = s.MonsterHealth

	if s.State.Terminal() {
		delete(e.sessions, playerID)
	}

	return res, nil
}

// Abandon drops a player's session without resolving it.
func (e *Engine) Abandon(playerID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[playerID]; !ok {
		return false
	}
	delete(e.sessions, playerID)
	return true
}

// Reap removes sessions idle longer than maxAge and returns the affected
// player ids.
func (e *Engine) Reap(maxAge time.Duration) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-maxAge)
	var reaped []int64
	for id, s := range e.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(e.sessions, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// DefeatPenalty returns the gold lost on a hunt defeat: a tenth of the
// player's gold, capped at 100.
func DefeatPenalty(gold int64) int64 {
	penalty := gold / 10
	if penalty > 100 {
		penalty = 100
	}
	return penalty
}
