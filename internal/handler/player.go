package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game/progress"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/service"
)

// PlayerHandler handles character lifecycle and profile commands.
type PlayerHandler struct {
	players *service.PlayerService
	tracker *progress.Tracker
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(players *service.PlayerService, tracker *progress.Tracker) *PlayerHandler {
	return &PlayerHandler{players: players, tracker: tracker}
}

// HandleStart handles the /start command.
func (h *PlayerHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if _, err := h.players.Profile(context.Background(), sender.ID, sender.Username, time.Now()); err == nil {
		return c.Reply("👋 Welcome back! Use /profile to see your character.")
	}

	var classes strings.Builder
	for key, class := range model.Classes {
		fmt.Fprintf(&classes, "• %s — /create %s <name>\n", class.Name, key)
	}
	return c.Reply(
		"🏰 Welcome to the realm!\n\n" +
			"Pick a class and name your hero:\n" + classes.String() +
			"\nExample: /create warrior Conan",
	)
}

// HandleCreate handles /create <class> <name>.
func (h *PlayerHandler) HandleCreate(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /create <class> <name>")
	}
	className := strings.ToLower(args[0])
	characterName := strings.Join(args[1:], " ")

	player, err := h.players.CreateCharacter(context.Background(), sender.ID, sender.Username, characterName, className)
	if err != nil {
		return replyGameError(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🎉 %s the %s is born!\n\n"+
			"❤️ Health: %d\n🔮 Mana: %d\n⚔️ Damage: %d\n🛡️ Defense: %d\n"+
			"💰 Gold: %d\n💎 Sapphires: %d\n\n"+
			"Try /hunt to fight your first monster.",
		player.CharacterName, player.Class,
		player.MaxHealth, player.MaxMana, player.Damage, player.Defense,
		player.Gold, player.Sapphires,
	))
}

// HandleProfile handles the /profile command.
func (h *PlayerHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	player, err := h.players.Profile(context.Background(), sender.ID, sender.Username, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"👤 %s (%s)\n\n"+
			"🏅 Level %d — %d/%d exp\n"+
			"❤️ %d/%d  🔮 %d/%d  ⚡ %d/%d\n"+
			"⚔️ %d  🛡️ %d  🧠 %d  🎯 %d\n\n"+
			"💰 %d gold  💎 %d sapphires",
		player.CharacterName, player.Class,
		player.Level, player.Experience, player.ExpToNextLevel(),
		player.Health, player.MaxHealth, player.Mana, player.MaxMana, player.Energy, model.MaxEnergy,
		player.Damage, player.Defense, player.Intellect, player.Agility,
		player.Gold, player.Sapphires,
	))
}

// HandleDaily handles the /daily streak claim.
func (h *PlayerHandler) HandleDaily(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	reward, err := h.players.ClaimDaily(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🎁 Daily reward claimed!\n\n"+
			"🔥 Streak: %d days\n💰 +%d gold\n💎 +%d sapphires",
		reward.Streak, reward.Gold, reward.Sapphires,
	))
}

// HandleEnergy handles /energy: trade one sapphire for a full bar.
func (h *PlayerHandler) HandleEnergy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	player, err := h.players.RestoreEnergy(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf("⚡ Energy restored to %d! 💎 -1 sapphire", player.Energy))
}

// HandleUpgrade handles /upgrade [stat].
func (h *PlayerHandler) HandleUpgrade(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()

	args := c.Args()
	if len(args) == 0 {
		points, err := h.tracker.Points(ctx, sender.ID)
		if err != nil {
			return replyGameError(c, err)
		}
		return c.Reply(fmt.Sprintf(
			"🔧 Upgrade points: %d\n\n"+
				"💪 Strength: %d (+2 damage each)\n"+
				"🧠 Intellect: %d (+10 max mana each)\n"+
				"🎯 Agility: %d (+1 agility each)\n"+
				"❤️ Stamina: %d (+15 max health each)\n\n"+
				"Spend with /upgrade <strength|intellect|agility|stamina>",
			points.Available, points.Strength, points.Intellect, points.Agility, points.Stamina,
		))
	}

	stat := strings.ToLower(args[0])
	player, err := h.tracker.SpendPoint(ctx, sender.ID, stat)
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"✅ %s upgraded!\n\n⚔️ %d  🧠 %d max mana  🎯 %d  ❤️ %d max health",
		stat, player.Damage, player.MaxMana, player.Agility, player.MaxHealth,
	))
}

// HandleHistory handles /history: recent currency movements.
func (h *PlayerHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	txs, err := h.players.History(context.Background(), sender.ID, 10)
	if err != nil {
		return replyGameError(c, err)
	}
	if len(txs) == 0 {
		return c.Reply("📜 No transactions yet.")
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent transactions:\n\n")
	for _, tx := range txs {
		fmt.Fprintf(&sb, "%s  %+d💰 %+d💎  [%s]\n",
			tx.CreatedAt.Format("01-02 15:04"), tx.Gold, tx.Sapphires, tx.Type)
	}
	return c.Reply(sb.String())
}
