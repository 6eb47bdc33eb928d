// Package main is the entry point for the magic RPG bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/bot"
	"magic-rpg-bot/internal/config"
	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/boss"
	"magic-rpg-bot/internal/game/combat"
	"magic-rpg-bot/internal/game/duel"
	"magic-rpg-bot/internal/game/mine"
	"magic-rpg-bot/internal/game/progress"
	"magic-rpg-bot/internal/pkg/db"
	"magic-rpg-bot/internal/pkg/lock"
	"magic-rpg-bot/internal/repository"
	"magic-rpg-bot/internal/sched"
	"magic-rpg-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	duelRepo := repository.NewDuelRepository(dbPool.Pool)
	bossRepo := repository.NewBossRepository(dbPool.Pool)
	mineRepo := repository.NewMineRepository(dbPool.Pool)
	ratingRepo := repository.NewRatingRepository(dbPool.Pool)
	pointsRepo := repository.NewPointsRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	streakRepo := repository.NewStreakRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	// Shared entity locks and RNG
	locks := lock.New()
	rng := game.NewTimeRand()

	// Game engines
	huntEngine := combat.NewEngine(rng)
	duelEngine := duel.NewEngine(playerRepo, duelRepo, ratingRepo, txRepo, locks, rng)
	bossEngine := boss.NewEngine(playerRepo, bossRepo, txRepo, locks, rng)
	mineEngine := mine.NewEngine(playerRepo, mineRepo, txRepo, locks, rng, cfg.Game.Mine.RaidCooldown)
	tracker := progress.NewTracker(playerRepo, pointsRepo, txRepo, locks)

	// Services
	playerService := service.NewPlayerService(playerRepo, streakRepo, txRepo, locks)
	huntService := service.NewHuntService(
		playerRepo, inventoryRepo, txRepo,
		huntEngine, tracker, locks, rng,
		int(cfg.Game.Hunt.EnergyCost),
	)
	rankingService := service.NewRankingService(playerRepo, ratingRepo, bossEngine)

	scheduler := sched.New(cfg, playerService, huntService, mineEngine, bossEngine, duelRepo, dbPool)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		PlayerService:  playerService,
		HuntService:    huntService,
		RankingService: rankingService,
		DuelEngine:     duelEngine,
		BossEngine:     bossEngine,
		MineEngine:     mineEngine,
		Tracker:        tracker,
		PlayerRepo:     playerRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Background jobs start after the bot so event hooks are in place.
	scheduler.Start(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	cancel()
	scheduler.Wait()
	log.Info().Msg("Bot stopped gracefully")
}
