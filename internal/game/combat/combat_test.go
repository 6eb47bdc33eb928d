package combat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
)

func testPlayer(id int64, level, health, mana, damage int) *model.Player {
	return &model.Player{
		TelegramID: id,
		Level:      level,
		Health:     health,
		MaxHealth:  health,
		Mana:       mana,
		MaxMana:    mana,
		Damage:     damage,
		Defense:    10,
		Intellect:  12,
	}
}

// ============================================================================
// Formula Tests
// ============================================================================

func TestFormulaBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rng := game.NewRand(rapid.Int64().Draw(t, "seed"))
		damage := rapid.IntRange(1, 200).Draw(t, "damage")
		defense := rapid.IntRange(0, 200).Draw(t, "defense")
		intellect := rapid.IntRange(1, 200).Draw(t, "intellect")
		mdmg := rapid.IntRange(1, 200).Draw(t, "mdmg")

		if d := PhysicalDamage(damage, rng); d < 1 || d > damage {
			t.Fatalf("physical damage %d out of bounds for stat %d", d, damage)
		}
		if d := SpellDamage(intellect, rng); d < intellect+5 || d > intellect+15 {
			t.Fatalf("spell damage %d out of bounds for intellect %d", d, intellect)
		}
		if d := MonsterStrike(mdmg, defense, 3, rng); d < 1 || d > mdmg {
			t.Fatalf("monster strike %d out of bounds for damage %d", d, mdmg)
		}
		if d := BlockedStrike(mdmg, rng); d < 1 || d > mdmg {
			t.Fatalf("blocked strike %d out of bounds for damage %d", d, mdmg)
		}
		if d := FleeStrike(mdmg, rng); d < mdmg || d > mdmg+5 {
			t.Fatalf("flee strike %d out of bounds for damage %d", d, mdmg)
		}
		if d := DuelStrike(damage, defense, rng); d < 1 || d > damage {
			t.Fatalf("duel strike %d out of bounds for damage %d", d, damage)
		}
		if d := DuelSpell(intellect, defense, rng); d < 1 || d > intellect+15 {
			t.Fatalf("duel spell %d out of bounds for intellect %d", d, intellect)
		}
	})
}

func TestDuelStrikeMitigationRange(t *testing.T) {
	rng := game.NewRand(7)

	// Mitigation is rolled, not flat: damage 18 against defense 14 must
	// cover the whole [18-7, 18] band, including the unmitigated hit.
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		d := DuelStrike(18, 14, rng)
		require.GreaterOrEqual(t, d, 11)
		require.LessOrEqual(t, d, 18)
		seen[d] = true
	}
	for want := 11; want <= 18; want++ {
		assert.True(t, seen[want], "duel strike never rolled %d", want)
	}
}

func TestDuelSpellMitigationRange(t *testing.T) {
	rng := game.NewRand(7)

	// Intellect 20 against defense 10: base roll 25..35 minus 0..5.
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		d := DuelSpell(20, 10, rng)
		require.GreaterOrEqual(t, d, 20)
		require.LessOrEqual(t, d, 35)
		seen[d] = true
	}
	assert.True(t, seen[20], "fully mitigated low roll never produced")
	assert.True(t, seen[35], "unmitigated high roll never produced")
}

func TestPickMonster(t *testing.T) {
	rng := game.NewRand(1)

	// A fresh character always meets the goblin.
	for i := 0; i < 50; i++ {
		m := PickMonster(1, rng)
		assert.Equal(t, "goblin", m.Key)
	}

	// Higher levels never meet something above their level.
	for i := 0; i < 200; i++ {
		m := PickMonster(5, rng)
		assert.LessOrEqual(t, m.Level, 5)
	}

	// At level 10 every catalog entry is reachable.
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		seen[PickMonster(10, rng).Key] = true
	}
	assert.Len(t, seen, len(Monsters))
}

func TestDefeatPenalty(t *testing.T) {
	tests := []struct {
		gold int64
		want int64
	}{
		{0, 0},
		{50, 5},
		{1000, 100},
		{5000, 100}, // capped
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefeatPenalty(tt.gold))
	}
}

// ============================================================================
// Hunt Engine Tests
// ============================================================================

func TestEngine_StartRules(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	player := testPlayer(1, 1, 100, 50, 15)
	s, err := e.Start(player)
	require.NoError(t, err)
	assert.Equal(t, game.StateEngaged, s.State)
	assert.Equal(t, "goblin", s.Monster.Key)
	assert.Equal(t, s.Monster.Health, s.MonsterHealth)

	// One session per player.
	_, err = e.Start(player)
	assert.ErrorIs(t, err, game.ErrInvalidState)

	// Dead characters cannot hunt.
	dead := testPlayer(2, 1, 0, 50, 15)
	_, err = e.Start(dead)
	assert.ErrorIs(t, err, game.ErrInsufficientResource)
}

func TestEngine_ActWithoutSession(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	_, err := e.Act(999, game.ActionAttack)
	assert.ErrorIs(t, err, game.ErrInvalidState)
}

func TestEngine_VictoryPayload(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	// Overwhelming damage ends any fight on the first swing.
	player := testPlayer(1, 1, 100, 50, 1000)
	_, err := e.Start(player)
	require.NoError(t, err)

	res, err := e.Act(1, game.ActionAttack)
	require.NoError(t, err)
	assert.Equal(t, game.StateVictory, res.State)
	assert.Equal(t, 0, res.MonsterHealth)
	// The killing blow draws no retaliation.
	assert.Equal(t, 0, res.DamageTaken)
	assert.GreaterOrEqual(t, res.GoldReward, res.Monster.GoldMin)
	assert.LessOrEqual(t, res.GoldReward, res.Monster.GoldMax)
	assert.Equal(t, int64(res.Monster.Level)*10, res.ExpReward)

	// Terminal result removed the session.
	_, ok := e.Get(1)
	assert.False(t, ok)
}

func TestEngine_MagicNeedsMana(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	player := testPlayer(1, 1, 100, SpellManaCost-1, 15)
	_, err := e.Start(player)
	require.NoError(t, err)

	_, err = e.Act(1, game.ActionMagic)
	assert.ErrorIs(t, err, game.ErrInsufficientResource)

	// The failed cast changed nothing.
	s, ok := e.Get(1)
	require.True(t, ok)
	assert.Equal(t, SpellManaCost-1, s.PlayerMana)
	assert.Equal(t, game.StateEngaged, s.State)
}

func TestEngine_MagicSpendsMana(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	player := testPlayer(1, 1, 500, 50, 15)
	_, err := e.Start(player)
	require.NoError(t, err)

	res, err := e.Act(1, game.ActionMagic)
	require.NoError(t, err)
	assert.Equal(t, SpellManaCost, res.ManaSpent)
	assert.Equal(t, 50-SpellManaCost, res.PlayerMana)
	assert.Greater(t, res.DamageDealt, 0)
}

func TestEngine_DefendTrades(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	player := testPlayer(1, 1, 100, 50, 15)
	_, err := e.Start(player)
	require.NoError(t, err)

	res, err := e.Act(1, game.ActionDefend)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DamageDealt)
	assert.GreaterOrEqual(t, res.DamageTaken, 1)
	assert.Equal(t, game.StateEngaged, res.State)
}

func TestEngine_DefeatEndsSession(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	player := testPlayer(1, 1, 1, 50, 1)
	_, err := e.Start(player)
	require.NoError(t, err)

	res, err := e.Act(1, game.ActionDefend)
	require.NoError(t, err)
	assert.Equal(t, game.StateDefeat, res.State)
	assert.Equal(t, 0, res.PlayerHealth)

	_, ok := e.Get(1)
	assert.False(t, ok)
}

func TestEngine_FleeEventuallySucceeds(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	// Enough health that failed escapes can't kill within the loop bound.
	player := testPlayer(1, 1, 10000, 50, 15)
	_, err := e.Start(player)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		res, err := e.Act(1, game.ActionFlee)
		require.NoError(t, err)
		if res.State == game.StateFled {
			_, ok := e.Get(1)
			assert.False(t, ok)
			return
		}
		assert.GreaterOrEqual(t, res.DamageTaken, res.Monster.Damage)
	}
	t.Fatal("flee never succeeded in 100 attempts")
}

func TestEngine_FightToCompletionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewEngine(game.NewRand(rapid.Int64().Draw(t, "seed")))
		level := rapid.IntRange(1, 20).Draw(t, "level")
		health := rapid.IntRange(1, 300).Draw(t, "health")
		damage := rapid.IntRange(1, 60).Draw(t, "damage")

		player := testPlayer(1, level, health, 200, damage)
		_, err := e.Start(player)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		// Attacking forever must terminate in victory or defeat.
		for i := 0; i < 10000; i++ {
			res, err := e.Act(1, game.ActionAttack)
			if err != nil {
				t.Fatalf("act failed: %v", err)
			}
			if res.State.Terminal() {
				if res.State != game.StateVictory && res.State != game.StateDefeat {
					t.Fatalf("attack-only fight ended in %v", res.State)
				}
				if res.State == game.StateVictory && res.MonsterHealth != 0 {
					t.Fatalf("victory with monster health %d", res.MonsterHealth)
				}
				if res.State == game.StateDefeat && res.PlayerHealth != 0 {
					t.Fatalf("defeat with player health %d", res.PlayerHealth)
				}
				return
			}
		}
		t.Fatal("fight did not terminate")
	})
}

func TestEngine_Reap(t *testing.T) {
	e := NewEngine(game.NewRand(42))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	_, err := e.Start(testPlayer(1, 1, 100, 50, 15))
	require.NoError(t, err)

	e.now = func() time.Time { return base.Add(5 * time.Minute) }
	_, err = e.Start(testPlayer(2, 1, 100, 50, 15))
	require.NoError(t, err)

	e.now = func() time.Time { return base.Add(12 * time.Minute) }
	reaped := e.Reap(10 * time.Minute)
	assert.Equal(t, []int64{1}, reaped)

	_, ok := e.Get(1)
	assert.False(t, ok)
	_, ok = e.Get(2)
	assert.True(t, ok)
}

func TestEngine_Abandon(t *testing.T) {
	e := NewEngine(game.NewRand(42))

	_, err := e.Start(testPlayer(1, 1, 100, 50, 15))
	require.NoError(t, err)

	assert.True(t, e.Abandon(1))
	assert.False(t, e.Abandon(1))
}
