package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/repository"
	"magic-rpg-bot/internal/service"
)

// AdminHandler handles administrator commands. Permission checks are done
// by the admin middleware, not here.
type AdminHandler struct {
	players *service.PlayerService
	repo    *repository.PlayerRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(players *service.PlayerService, repo *repository.PlayerRepository) *AdminHandler {
	return &AdminHandler{players: players, repo: repo}
}

// HandleGrant handles /admin_grant <character> <gold> [sapphires].
func (h *AdminHandler) HandleGrant(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /admin_grant <character> <gold> [sapphires]")
	}
	ctx := context.Background()

	target, err := h.repo.GetByName(ctx, args[0])
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return c.Reply("❌ No such character.")
		}
		return replyGameError(c, err)
	}

	gold, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Reply("❌ Gold must be a number.")
	}
	var sapphires int64
	if len(args) > 2 {
		if sapphires, err = strconv.ParseInt(args[2], 10, 64); err != nil {
			return c.Reply("❌ Sapphires must be a number.")
		}
	}

	player, err := h.players.Grant(ctx, target.TelegramID, gold, sapphires, fmt.Sprintf("granted by admin %d", c.Sender().ID))
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"✅ Granted to %s.\n\n💰 Balance: %d gold, 💎 %d sapphires",
		player.CharacterName, player.Gold, player.Sapphires,
	))
}

// HandleStats handles /admin_stats.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	stats, err := h.repo.Stats(context.Background())
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"📊 Server stats\n\n"+
			"👥 Characters: %d\n"+
			"💰 Gold in circulation: %d\n"+
			"💎 Sapphires in circulation: %d\n"+
			"⭐ Highest level: %d",
		stats.Players, stats.TotalGold, stats.TotalSapphires, stats.MaxLevel,
	))
}
