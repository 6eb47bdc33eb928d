package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/mine"
	"magic-rpg-bot/internal/repository"
)

// MineHandler handles the mine economy commands.
type MineHandler struct {
	mines   *mine.Engine
	players *repository.PlayerRepository
}

// NewMineHandler creates a new MineHandler.
func NewMineHandler(mines *mine.Engine, players *repository.PlayerRepository) *MineHandler {
	return &MineHandler{mines: mines, players: players}
}

// HandleMine handles /mine: show the mine, creating it on first visit.
func (h *MineHandler) HandleMine(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m, err := h.mines.Get(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	reply := fmt.Sprintf(
		"⛏️ Your mine\n\n"+
			"🆙 Level: %d/%d\n📈 Income: %d gold/hour\n"+
			"📦 Storage: %d/%d\n🛡️ Guard: %d/%d\n\n",
		m.Level, mine.MaxLevel, m.IncomePerHour,
		m.Storage, m.Capacity, m.GuardLevel, mine.MaxGuardLevel,
	)
	if m.Storage > 0 {
		reply += "💎 Collect with /collect\n"
	}
	if m.Level < mine.MaxLevel {
		reply += fmt.Sprintf("🆙 Upgrade: /mine_upgrade (%d gold)\n", mine.UpgradeCost(m.Level))
	}
	if m.GuardLevel < mine.MaxGuardLevel {
		reply += fmt.Sprintf("🛡️ Guard: /guard_upgrade (%d gold)\n", mine.GuardUpgradeCost(m.GuardLevel))
	}
	reply += "⚔️ Raid someone: /raid <character>"
	return c.Reply(reply)
}

// HandleCollect handles /collect.
func (h *MineHandler) HandleCollect(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	collected, err := h.mines.Collect(context.Background(), sender.ID, time.Now())
	if err != nil {
		if errors.Is(err, game.ErrInsufficientResource) {
			return c.Reply("📦 Nothing to collect yet.")
		}
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf("💎 You collected %d gold from your mine!", collected))
}

// HandleUpgrade handles /mine_upgrade.
func (h *MineHandler) HandleUpgrade(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m, err := h.mines.Upgrade(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"🆙 Mine upgraded to level %d!\n\n📈 Income: %d gold/hour\n📦 Capacity: %d",
		m.Level, m.IncomePerHour, m.Capacity,
	))
}

// HandleGuardUpgrade handles /guard_upgrade.
func (h *MineHandler) HandleGuardUpgrade(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	m, err := h.mines.UpgradeGuard(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"🛡️ Guard upgraded to level %d!\n\nRaiders now succeed only %d%% of the time.",
		m.GuardLevel, mine.RaidSuccessChance(m.GuardLevel),
	))
}

// HandleRaid handles /raid <character>.
func (h *MineHandler) HandleRaid(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /raid <character name>")
	}
	ctx := context.Background()

	target, err := h.players.GetByName(ctx, strings.Join(args, " "))
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return c.Reply("❌ No such character.")
		}
		return replyGameError(c, err)
	}

	res, err := h.mines.Raid(ctx, sender.ID, target.TelegramID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	if !res.Success {
		return c.Reply(fmt.Sprintf(
			"❌ Raid repelled! %s's guards were too strong (%d%% chance).",
			target.CharacterName, res.Chance,
		))
	}
	return c.Reply(fmt.Sprintf(
		"🎉 Raid successful!\n\n💰 Stolen: %d gold\n🛡️ Guard damaged: -%d levels",
		res.Stolen, res.GuardDamage,
	))
}
