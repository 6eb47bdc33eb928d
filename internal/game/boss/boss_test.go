package boss

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
)

func testPlayer() *model.Player {
	return &model.Player{
		TelegramID: 1,
		Level:      10,
		Health:     150,
		MaxHealth:  150,
		Mana:       100,
		MaxMana:    100,
		Damage:     40,
		Defense:    20,
		Intellect:  30,
		Agility:    25,
	}
}

func TestCatalogCoversEveryWeekday(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		tpl, ok := Bosses[d]
		assert.True(t, ok, "weekday %v has no boss", d)
		assert.Equal(t, d, tpl.SpawnDay)
		assert.Positive(t, tpl.Health)
		assert.Positive(t, tpl.GoldReward)
	}
}

func TestDamageTypeBonuses(t *testing.T) {
	p := testPlayer()

	tests := []struct {
		bossType string
		bonus    int
	}{
		{"mage", 15},      // int 30 × 0.5
		{"warrior", 12},   // dmg 40 × 0.3
		{"archer", 10},    // agi 25 × 0.4
		{"priest", 14},    // (30+40) × 0.2
		{"dark_mage", 18}, // int 30 × 0.6
		{"dragon", 16},    // (40+25) × 0.25
	}

	for _, tt := range tests {
		t.Run(tt.bossType, func(t *testing.T) {
			rng := game.NewRand(1)
			dmg := Damage(p, tt.bossType, rng)
			// base + bonus + roll in [5,15]
			assert.GreaterOrEqual(t, dmg, p.Damage+tt.bonus+5)
			assert.LessOrEqual(t, dmg, p.Damage+tt.bonus+15)
		})
	}
}

func TestDamageRandomType(t *testing.T) {
	p := testPlayer()
	rng := game.NewRand(7)
	for i := 0; i < 100; i++ {
		dmg := Damage(p, "random", rng)
		assert.GreaterOrEqual(t, dmg, p.Damage+10+5)
		assert.LessOrEqual(t, dmg, p.Damage+30+15)
	}
}

func TestSelfLoss(t *testing.T) {
	assert.Equal(t, 15, SelfLoss(150))
	assert.Equal(t, 1, SelfLoss(9))
	assert.Equal(t, 1, SelfLoss(1))
}

func TestRewards(t *testing.T) {
	tpl := model.BossTemplate{Name: "x", Health: 5000, GoldReward: 1000, SapphireChance: 0}
	rng := game.NewRand(1)

	gold, exp, sapphires := Rewards(tpl, 1000, false, rng)
	assert.Equal(t, int64(200), gold) // 1000×1000/5000
	assert.Equal(t, int64(2000), exp)
	assert.Equal(t, int64(0), sapphires)

	// tiny strikes still pay the floor
	gold, exp, _ = Rewards(tpl, 10, false, rng)
	assert.Equal(t, int64(100), gold)
	assert.Equal(t, int64(20), exp)

	// killing blow doubles gold, triples exp
	gold, exp, _ = Rewards(tpl, 1000, true, rng)
	assert.Equal(t, int64(400), gold)
	assert.Equal(t, int64(6000), exp)
}

func TestRewardsSapphireGuaranteed(t *testing.T) {
	tpl := model.BossTemplate{Health: 1000, GoldReward: 100, SapphireChance: 100}
	rng := game.NewRand(3)

	_, _, sapphires := Rewards(tpl, 100, false, rng)
	assert.Equal(t, int64(1), sapphires)

	_, _, sapphires = Rewards(tpl, 100, true, rng)
	assert.Equal(t, int64(2), sapphires)
}

func TestTopBonus(t *testing.T) {
	gold, sapphires := TopBonus(1)
	assert.Equal(t, int64(1000), gold)
	assert.Equal(t, int64(2), sapphires)

	gold, sapphires = TopBonus(2)
	assert.Equal(t, int64(500), gold)
	assert.Equal(t, int64(1), sapphires)

	gold, sapphires = TopBonus(3)
	assert.Equal(t, int64(333), gold)
	assert.Equal(t, int64(1), sapphires)
}

func TestDayNormalization(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	a := time.Date(2025, 3, 10, 2, 0, 0, 0, loc)  // 2025-03-09 21:00 UTC
	b := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, Day(b), Day(a))
	assert.Equal(t, dayKey(Day(b)), dayKey(Day(a)))

	next := time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC)
	assert.NotEqual(t, Day(b), Day(next))
}

func TestRewardsBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tpl := model.BossTemplate{
			Health:         rapid.Int64Range(1000, 10000).Draw(t, "health"),
			GoldReward:     rapid.Int64Range(100, 5000).Draw(t, "goldReward"),
			SapphireChance: rapid.IntRange(0, 100).Draw(t, "chance"),
		}
		damage := rapid.Int64Range(1, tpl.Health*2).Draw(t, "damage")
		kill := rapid.Bool().Draw(t, "kill")
		rng := game.NewRand(rapid.Int64().Draw(t, "seed"))

		gold, exp, sapphires := Rewards(tpl, damage, kill, rng)
		assert.GreaterOrEqual(t, gold, int64(100))
		assert.Positive(t, exp)
		assert.GreaterOrEqual(t, sapphires, int64(0))
		assert.LessOrEqual(t, sapphires, int64(2))
		if !kill {
			assert.LessOrEqual(t, sapphires, int64(1))
			assert.Equal(t, damage*2, exp)
		}
	})
}

// ============================================================================
// Engine concurrency
// ============================================================================

type fakePlayerStore struct {
	mu      sync.Mutex
	players map[int64]*model.Player
}

func (f *fakePlayerStore) GetByID(_ context.Context, id int64) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayerStore) SetVitals(_ context.Context, id int64, health, mana int) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.Health, p.Mana = health, mana
	cp := *p
	return &cp, nil
}

func (f *fakePlayerStore) UpdateCurrency(_ context.Context, id, gold, sapphires int64) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.Gold += gold
	p.Sapphires += sapphires
	cp := *p
	return &cp, nil
}

func (f *fakePlayerStore) AddExperience(_ context.Context, id int64, exp int64) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	p.Experience += exp
	cp := *p
	return &cp, nil
}

type fakeBossStore struct {
	mu        sync.Mutex
	status    *model.BossStatus
	contribs  map[int64]int64
	killMarks int
}

func (f *fakeBossStore) EnsureForDate(_ context.Context, date time.Time, bossDay int, health int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		f.status = &model.BossStatus{BossDay: bossDay, CurrentHealth: health, Alive: true, ResetDate: date}
	}
	return nil
}

func (f *fakeBossStore) GetForDate(_ context.Context, _ time.Time) (*model.BossStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		return nil, repository.ErrBossNotFound
	}
	cp := *f.status
	return &cp, nil
}

func (f *fakeBossStore) ApplyDamage(_ context.Context, _ time.Time, damage int64) (*model.BossStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil || !f.status.Alive {
		return nil, repository.ErrBossNotFound
	}
	f.status.CurrentHealth -= damage
	if f.status.CurrentHealth < 0 {
		f.status.CurrentHealth = 0
	}
	f.status.TotalDamage += damage
	cp := *f.status
	return &cp, nil
}

func (f *fakeBossStore) MarkDefeated(_ context.Context, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil || !f.status.Alive || f.status.CurrentHealth != 0 {
		return false, nil
	}
	f.status.Alive = false
	f.killMarks++
	return true, nil
}

func (f *fakeBossStore) AddContribution(_ context.Context, playerID int64, _ time.Time, damage int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contribs[playerID]; ok {
		return false, nil
	}
	f.contribs[playerID] = damage
	return true, nil
}

func (f *fakeBossStore) HasContributed(_ context.Context, playerID int64, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.contribs[playerID]
	return ok, nil
}

func (f *fakeBossStore) TopContributors(_ context.Context, _ time.Time, limit int) ([]*model.BossContribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var top []*model.BossContribution
	for id, dmg := range f.contribs {
		top = append(top, &model.BossContribution{PlayerID: id, Damage: dmg})
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Damage > top[j].Damage })
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

type fakeTxStore struct {
	mu      sync.Mutex
	entries []*model.Transaction
}

func (f *fakeTxStore) Create(_ context.Context, playerID, gold, sapphires int64, txType string, description *string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &model.Transaction{PlayerID: playerID, Gold: gold, Sapphires: sapphires, Type: txType, Description: description}
	f.entries = append(f.entries, tx)
	cp := *tx
	return &cp, nil
}

func (f *fakeTxStore) countByType(txType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tx := range f.entries {
		if tx.Type == txType {
			n++
		}
	}
	return n
}

func newFakeEngine(players ...*model.Player) (*Engine, *fakePlayerStore, *fakeBossStore, *fakeTxStore) {
	ps := &fakePlayerStore{players: make(map[int64]*model.Player)}
	for _, p := range players {
		ps.players[p.TelegramID] = p
	}
	bs := &fakeBossStore{contribs: make(map[int64]int64)}
	txs := &fakeTxStore{}
	return NewEngine(ps, bs, txs, lock.New(), game.NewRand(3)), ps, bs, txs
}

func TestAttackConcurrentSamePlayerKillsOnce(t *testing.T) {
	engine, _, bs, txs := newFakeEngine(testPlayer())
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// One point of health left: any strike is the killing blow.
	require.NoError(t, bs.EnsureForDate(ctx, Day(now), int(now.Weekday()), 1))

	results := make([]*AttackResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Attack(ctx, 1, now)
		}(i)
	}
	wg.Wait()

	var wins, kills int
	for i := 0; i < 2; i++ {
		if errs[i] == nil {
			wins++
			if results[i].KillingBlow {
				kills++
			}
		} else {
			assert.ErrorIs(t, errs[i], game.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent strike may land")
	assert.Equal(t, 1, kills)
	assert.Equal(t, 1, bs.killMarks)
	assert.Len(t, bs.contribs, 1)
	assert.Equal(t, 1, txs.countByType(model.TxTypeBossReward))
	assert.Equal(t, 1, txs.countByType(model.TxTypeBossTopBonus))
}

func TestAttackDeadBossRejected(t *testing.T) {
	striker := testPlayer()
	late := testPlayer()
	late.TelegramID = 2
	engine, _, bs, _ := newFakeEngine(striker, late)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, bs.EnsureForDate(ctx, Day(now), int(now.Weekday()), 1))

	res, err := engine.Attack(ctx, 1, now)
	require.NoError(t, err)
	assert.True(t, res.KillingBlow)

	_, err = engine.Attack(ctx, 2, now)
	assert.ErrorIs(t, err, game.ErrInvalidState)
}
