package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/config"
	"magic-rpg-bot/internal/game/boss"
	"magic-rpg-bot/internal/game/duel"
	"magic-rpg-bot/internal/game/mine"
	"magic-rpg-bot/internal/game/progress"
	"magic-rpg-bot/internal/handler"
	"magic-rpg-bot/internal/repository"
	"magic-rpg-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	playerHandler  *handler.PlayerHandler
	combatHandler  *handler.CombatHandler
	bossHandler    *handler.BossHandler
	mineHandler    *handler.MineHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config         *config.Config
	PlayerService  *service.PlayerService
	HuntService    *service.HuntService
	RankingService *service.RankingService
	DuelEngine     *duel.Engine
	BossEngine     *boss.Engine
	MineEngine     *mine.Engine
	Tracker        *progress.Tracker
	PlayerRepo     *repository.PlayerRepository
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.playerHandler = handler.NewPlayerHandler(deps.PlayerService, deps.Tracker)
	b.combatHandler = handler.NewCombatHandler(deps.HuntService, deps.DuelEngine, deps.Tracker)
	b.bossHandler = handler.NewBossHandler(deps.BossEngine, deps.Tracker)
	b.mineHandler = handler.NewMineHandler(deps.MineEngine, deps.PlayerRepo)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.adminHandler = handler.NewAdminHandler(deps.PlayerService, deps.PlayerRepo)

	// Boss defeats are broadcast to the whitelisted chats
	notifier := NewNotifier(teleBot, deps.Config.Whitelist.Chats)
	deps.BossEngine.OnDefeat(notifier.NotifyBossDefeat)
	deps.PlayerService.OnEnergyFull(notifier.NotifyEnergyFull)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// Character
	b.bot.Handle("/start", b.playerHandler.HandleStart)
	b.bot.Handle("/create", b.playerHandler.HandleCreate)
	b.bot.Handle("/profile", b.playerHandler.HandleProfile)
	b.bot.Handle("/daily", b.playerHandler.HandleDaily)
	b.bot.Handle("/energy", b.playerHandler.HandleEnergy)
	b.bot.Handle("/upgrade", b.playerHandler.HandleUpgrade)
	b.bot.Handle("/history", b.playerHandler.HandleHistory)

	// Hunts, duels and the shared action commands
	b.bot.Handle("/hunt", b.combatHandler.HandleHunt)
	b.bot.Handle("/attack", b.combatHandler.HandleAttack)
	b.bot.Handle("/magic", b.combatHandler.HandleMagic)
	b.bot.Handle("/defend", b.combatHandler.HandleDefend)
	b.bot.Handle("/flee", b.combatHandler.HandleFlee)
	b.bot.Handle("/duel", b.combatHandler.HandleDuel)
	b.bot.Handle("/training", b.combatHandler.HandleTraining)
	b.bot.Handle("/match", b.combatHandler.HandleMatch)
	b.bot.Handle("/inventory", b.combatHandler.HandleInventory)
	b.bot.Handle("/potion", b.combatHandler.HandlePotion)

	// Daily boss
	b.bot.Handle("/boss", b.bossHandler.HandleBoss)
	b.bot.Handle("/boss_attack", b.bossHandler.HandleBossAttack)

	// Mine economy
	b.bot.Handle("/mine", b.mineHandler.HandleMine)
	b.bot.Handle("/collect", b.mineHandler.HandleCollect)
	b.bot.Handle("/mine_upgrade", b.mineHandler.HandleUpgrade)
	b.bot.Handle("/guard_upgrade", b.mineHandler.HandleGuardUpgrade)
	b.bot.Handle("/raid", b.mineHandler.HandleRaid)

	// Leaderboards
	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/top_level", b.rankingHandler.HandleTopLevel)
	b.bot.Handle("/top_gold", b.rankingHandler.HandleTopGold)
	b.bot.Handle("/boss_top", b.rankingHandler.HandleBossTop)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_grant", b.adminHandler.HandleGrant)
	adminGroup.Handle("/admin_stats", b.adminHandler.HandleStats)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("starting bot")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("stopping bot")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
