// Package repository tests use testcontainers-go to spin up a PostgreSQL
// container. They are skipped when Docker is unavailable.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the shared schema used in production.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return db.Migrate(ctx, pool)
}

func mustCreatePlayer(t *testing.T, repo *PlayerRepository, id int64, name string) *model.Player {
	t.Helper()
	class := model.Classes["warrior"]
	player, err := repo.Create(context.Background(), id, "tguser", name, &class)
	require.NoError(t, err)
	return player
}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)

	player := mustCreatePlayer(t, repo, 12345, "Conan")
	assert.Equal(t, int64(12345), player.TelegramID)
	assert.Equal(t, "Conan", player.CharacterName)
	assert.Equal(t, "warrior", player.Class)
	assert.Equal(t, 1, player.Level)
	assert.Equal(t, int64(model.StartGold), player.Gold)
	assert.Equal(t, int64(model.StartSapphires), player.Sapphires)
	assert.Equal(t, player.MaxHealth, player.Health)
	assert.Equal(t, model.MaxEnergy, player.Energy)
	assert.False(t, player.CreatedAt.IsZero())
}

func TestPlayerRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	player, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "Conan", player.CharacterName)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_GetByName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	player, err := repo.GetByName(ctx, "Conan")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), player.TelegramID)

	_, err = repo.GetByName(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_UpdateCurrency(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	player, err := repo.UpdateCurrency(ctx, 12345, 500, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(model.StartGold+500), player.Gold)
	assert.Equal(t, int64(model.StartSapphires+2), player.Sapphires)

	player, err = repo.UpdateCurrency(ctx, 12345, -300, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(model.StartGold+200), player.Gold)

	// Overdraw is rejected, not clamped.
	_, err = repo.UpdateCurrency(ctx, 12345, -1000000, 0)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = repo.UpdateCurrency(ctx, 99999, 100, 0)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_SetVitals(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	created := mustCreatePlayer(t, repo, 12345, "Conan")

	player, err := repo.SetVitals(ctx, 12345, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, player.Health)
	assert.Equal(t, 5, player.Mana)

	// Out-of-range writes are clamped in SQL.
	player, err = repo.SetVitals(ctx, 12345, 99999, -50)
	require.NoError(t, err)
	assert.Equal(t, created.MaxHealth, player.Health)
	assert.Equal(t, 0, player.Mana)
}

func TestPlayerRepository_SpendEnergy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	ok, err := repo.SpendEnergy(ctx, 12345, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	player, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, model.MaxEnergy-10, player.Energy)

	// Not enough left for an oversized spend.
	ok, err = repo.SpendEnergy(ctx, 12345, model.MaxEnergy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlayerRepository_DrainEnergy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	require.NoError(t, repo.DrainEnergy(ctx, 12345, 30))

	player, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, model.MaxEnergy-30, player.Energy)

	// A drain past zero clamps instead of rejecting: the tax always lands.
	require.NoError(t, repo.DrainEnergy(ctx, 12345, model.MaxEnergy))

	player, err = repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, 0, player.Energy)
}

func TestPlayerRepository_ApplyLevelUp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 12345, "Conan")

	// Not enough experience yet.
	_, err := repo.ApplyLevelUp(ctx, 12345, 100, 165, 55)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = repo.AddExperience(ctx, 12345, 120)
	require.NoError(t, err)

	player, err := repo.ApplyLevelUp(ctx, 12345, 100, 165, 55)
	require.NoError(t, err)
	assert.Equal(t, 2, player.Level)
	assert.Equal(t, int64(0), player.Experience)
	assert.Equal(t, 165, player.MaxHealth)
	assert.Equal(t, 165, player.Health)
	assert.Equal(t, model.MaxEnergy, player.Energy)
}

func TestPlayerRepository_Leaderboards(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, repo, 1, "Alpha")
	mustCreatePlayer(t, repo, 2, "Bravo")
	mustCreatePlayer(t, repo, 3, "Carol")

	_, err := repo.UpdateCurrency(ctx, 2, 5000, 0)
	require.NoError(t, err)
	_, err = repo.AddExperience(ctx, 3, 500)
	require.NoError(t, err)
	_, err = repo.ApplyLevelUp(ctx, 3, 100, 165, 55)
	require.NoError(t, err)

	byGold, err := repo.GetTopByGold(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byGold, 3)
	assert.Equal(t, int64(2), byGold[0].TelegramID)

	byLevel, err := repo.GetTopByLevel(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byLevel, 3)
	assert.Equal(t, int64(3), byLevel[0].TelegramID)
}

// ============================================================================
// DuelRepository Tests
// ============================================================================

func TestDuelRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDuelRepository(pool)
	ctx := context.Background()

	battle, err := repo.Create(ctx, 1, 2, 150, 120, 50, 120, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), battle.Player1ID)
	assert.Equal(t, 150, battle.Player1Health)

	// Visible from either side.
	found, err := repo.GetByParticipant(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, battle.ID, found.ID)

	active, err := repo.HasActive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, active)

	updated, err := repo.UpdateState(ctx, battle.ID, 140, 100, 50, 100, "turn 1")
	require.NoError(t, err)
	assert.Equal(t, 140, updated.Player1Health)
	assert.Contains(t, updated.BattleLog, "turn 1")

	require.NoError(t, repo.Delete(ctx, battle.ID))

	// Second delete loses the settle race.
	assert.ErrorIs(t, repo.Delete(ctx, battle.ID), ErrBattleNotFound)

	_, err = repo.GetByParticipant(ctx, 1)
	assert.ErrorIs(t, err, ErrBattleNotFound)
}

func TestDuelRepository_DeleteStale(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDuelRepository(pool)
	ctx := context.Background()

	fresh, err := repo.Create(ctx, 1, 2, 100, 100, 50, 50, 0)
	require.NoError(t, err)

	stale, err := repo.Create(ctx, 3, 4, 100, 100, 50, 50, 0)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE duel_battles SET created_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, stale.ID)
	require.NoError(t, err)

	reaped, err := repo.DeleteStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, stale.ID, reaped[0].ID)

	_, err = repo.GetByParticipant(ctx, 1)
	require.NoError(t, err)
	_ = fresh
}

// ============================================================================
// BossRepository Tests
// ============================================================================

func TestBossRepository_SeedAndDamage(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBossRepository(pool)
	ctx := context.Background()
	today := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday

	require.NoError(t, repo.EnsureForDate(ctx, today, int(today.Weekday()), 5000))
	// Second seed is a no-op, health untouched.
	require.NoError(t, repo.EnsureForDate(ctx, today, int(today.Weekday()), 9999))

	status, err := repo.GetForDate(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), status.CurrentHealth)
	assert.True(t, status.Alive)

	status, err = repo.ApplyDamage(ctx, today, 1200)
	require.NoError(t, err)
	assert.Equal(t, int64(3800), status.CurrentHealth)
	assert.Equal(t, int64(1200), status.TotalDamage)

	// Overkill clamps to zero.
	status, err = repo.ApplyDamage(ctx, today, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.CurrentHealth)

	_, err = repo.GetForDate(ctx, today.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrBossNotFound)
}

func TestBossRepository_MarkDefeatedOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBossRepository(pool)
	ctx := context.Background()
	today := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.EnsureForDate(ctx, today, 1, 1000))

	// Cannot settle while health remains.
	won, err := repo.MarkDefeated(ctx, today)
	require.NoError(t, err)
	assert.False(t, won)

	_, err = repo.ApplyDamage(ctx, today, 1000)
	require.NoError(t, err)

	won, err = repo.MarkDefeated(ctx, today)
	require.NoError(t, err)
	assert.True(t, won)

	// Exactly one settle winner.
	won, err = repo.MarkDefeated(ctx, today)
	require.NoError(t, err)
	assert.False(t, won)

	// Dead boss takes no more damage.
	_, err = repo.ApplyDamage(ctx, today, 10)
	assert.ErrorIs(t, err, ErrBossNotFound)
}

func TestBossRepository_Contributions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBossRepository(pool)
	ctx := context.Background()
	today := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	ok, err := repo.AddContribution(ctx, 1, today, 300)
	require.NoError(t, err)
	assert.True(t, ok)

	// Once per day.
	ok, err = repo.AddContribution(ctx, 1, today, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := repo.HasContributed(ctx, 1, today)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = repo.AddContribution(ctx, 2, today, 500)
	require.NoError(t, err)
	_, err = repo.AddContribution(ctx, 3, today, 100)
	require.NoError(t, err)

	top, err := repo.TopContributors(ctx, today, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].PlayerID)
	assert.Equal(t, int64(1), top[1].PlayerID)
}

// ============================================================================
// MineRepository Tests
// ============================================================================

func TestMineRepository_CreateAndDrain(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMineRepository(pool)
	ctx := context.Background()

	mine, err := repo.Create(ctx, 1, 50, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Level)
	assert.Equal(t, int64(0), mine.Storage)

	// Duplicate create returns the existing row.
	again, err := repo.Create(ctx, 1, 999, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(50), again.IncomePerHour)

	now := time.Now()
	_, err = repo.SetAccrued(ctx, 1, 300, now)
	require.NoError(t, err)

	drained, err := repo.Drain(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(300), drained)

	mine, err = repo.GetByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), mine.Storage)

	_, err = repo.GetByOwner(ctx, 99999)
	assert.ErrorIs(t, err, ErrMineNotFound)
}

func TestMineRepository_AccrualClampedToCapacity(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMineRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 50, 500)
	require.NoError(t, err)

	mine, err := repo.SetAccrued(ctx, 1, 9999, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(500), mine.Storage)
}

func TestMineRepository_Steal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMineRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 50, 500)
	require.NoError(t, err)
	_, err = repo.SetAccrued(ctx, 1, 300, time.Now())
	require.NoError(t, err)

	mine, err := repo.Steal(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(200), mine.Storage)

	// Clamped at zero.
	mine, err = repo.Steal(ctx, 1, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), mine.Storage)
}

func TestMineRepository_RaidLog(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMineRepository(pool)
	ctx := context.Background()

	last, err := repo.LastRaidAt(ctx, 1)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	require.NoError(t, repo.RecordRaid(ctx, 1, 2, true, 150, 2))

	last, err = repo.LastRaidAt(ctx, 1)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

// ============================================================================
// RatingRepository Tests
// ============================================================================

func TestRatingRepository_ApplyResult(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRatingRepository(pool)
	ctx := context.Background()

	// ApplyResult creates both rows on first contact.
	require.NoError(t, repo.ApplyResult(ctx, 1, 2, 16))

	winner, err := repo.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.InitialRating+16, winner.Rating)
	assert.Equal(t, 1, winner.Wins)

	loser, err := repo.GetOrCreate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.InitialRating-16, loser.Rating)
	assert.Equal(t, 1, loser.Losses)

	top, err := repo.GetTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].PlayerID)
}

func TestRatingRepository_NoFloor(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRatingRepository(pool)
	ctx := context.Background()

	// Enough losses to push the loser negative.
	for i := 0; i < 40; i++ {
		require.NoError(t, repo.ApplyResult(ctx, 1, 2, 32))
	}

	loser, err := repo.GetOrCreate(ctx, 2)
	require.NoError(t, err)
	assert.Less(t, loser.Rating, 0)
}

// ============================================================================
// PointsRepository Tests
// ============================================================================

func TestPointsRepository_GrantAndSpend(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPointsRepository(pool)
	ctx := context.Background()

	points, err := repo.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, points.Available)

	// Spending with nothing available fails.
	ok, err := repo.Spend(ctx, 1, "strength")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Grant(ctx, 1, 2))

	ok, err = repo.Spend(ctx, 1, "strength")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Spend(ctx, 1, "stamina")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Spend(ctx, 1, "intellect")
	require.NoError(t, err)
	assert.False(t, ok)

	points, err = repo.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, points.Strength)
	assert.Equal(t, 1, points.Stamina)
	assert.Equal(t, 0, points.Available)

	_, err = repo.Spend(ctx, 1, "luck")
	assert.Error(t, err)
}

// ============================================================================
// InventoryRepository Tests
// ============================================================================

func TestInventoryRepository_StackAndConsume(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInventoryRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 1, "Healing Potion", "consumable", "common"))
	require.NoError(t, repo.AddItem(ctx, 1, "Healing Potion", "consumable", "common"))
	require.NoError(t, repo.AddItem(ctx, 1, "Mana Crystal", "consumable", "rare"))

	items, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Healing Potion", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)

	ok, err := repo.Consume(ctx, 1, "Mana Crystal")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Consume(ctx, 1, "Mana Crystal")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// StreakRepository Tests
// ============================================================================

func TestStreakRepository_RecordClaim(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewStreakRepository(pool)
	ctx := context.Background()

	streak, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, streak.LastClaim)
	assert.Equal(t, 0, streak.StreakCount)

	now := time.Now().UTC().Truncate(time.Second)
	streak, err = repo.RecordClaim(ctx, 1, now, 1)
	require.NoError(t, err)
	require.NotNil(t, streak.LastClaim)
	assert.Equal(t, 1, streak.StreakCount)
	assert.Equal(t, 1, streak.TotalRewards)

	streak, err = repo.RecordClaim(ctx, 1, now.Add(24*time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, streak.StreakCount)
	assert.Equal(t, 2, streak.TotalRewards)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_CreateAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	playerRepo := NewPlayerRepository(pool)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	mustCreatePlayer(t, playerRepo, 12345, "Conan")

	desc := "won a hunt"
	tx, err := txRepo.Create(ctx, 12345, 120, 0, model.TxTypeHuntReward, &desc)
	require.NoError(t, err)
	assert.Equal(t, int64(120), tx.Gold)
	assert.Equal(t, model.TxTypeHuntReward, tx.Type)
	require.NotNil(t, tx.Description)
	assert.Equal(t, "won a hunt", *tx.Description)

	_, err = txRepo.Create(ctx, 12345, -40, 0, model.TxTypeMineRaided, nil)
	require.NoError(t, err)
	_, err = txRepo.Create(ctx, 12345, 0, 1, model.TxTypeBossTopBonus, nil)
	require.NoError(t, err)

	txs, err := txRepo.GetByPlayerID(ctx, 12345, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	flow, err := txRepo.GetDailyGoldFlow(ctx, 12345, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(80), flow)
}
