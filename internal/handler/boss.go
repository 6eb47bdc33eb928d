package handler

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game/boss"
	"magic-rpg-bot/internal/game/progress"
)

// BossHandler handles the daily boss commands.
type BossHandler struct {
	boss    *boss.Engine
	tracker *progress.Tracker
}

// NewBossHandler creates a new BossHandler.
func NewBossHandler(bossEngine *boss.Engine, tracker *progress.Tracker) *BossHandler {
	return &BossHandler{boss: bossEngine, tracker: tracker}
}

// HandleBoss handles /boss: today's boss and pool state.
func (h *BossHandler) HandleBoss(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()
	now := time.Now()

	tpl, status, err := h.boss.Status(ctx, now)
	if err != nil {
		return replyGameError(c, err)
	}

	if !status.Alive {
		return c.Reply(fmt.Sprintf(
			"🎉 %s has already been defeated today!\n\n"+
				"🏆 Total damage dealt: %d\n"+
				"Come back tomorrow for the next boss.",
			tpl.Name, status.TotalDamage,
		))
	}

	attacked, err := h.boss.HasAttacked(ctx, sender.ID, now)
	if err != nil {
		return replyGameError(c, err)
	}

	reply := fmt.Sprintf(
		"🐉 Daily boss: %s\n\n"+
			"❤️ %d/%d HP\n🏆 Total damage: %d\n\n",
		tpl.Name, status.CurrentHealth, tpl.Health, status.TotalDamage,
	)
	if attacked {
		reply += "⚠️ You already fought this boss today."
	} else {
		reply += "⚔️ Strike once a day with /boss_attack!"
	}
	return c.Reply(reply)
}

// HandleBossAttack handles /boss_attack: the once-per-day strike.
func (h *BossHandler) HandleBossAttack(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()

	res, err := h.boss.Attack(ctx, sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	reply := fmt.Sprintf(
		"⚔️ You strike %s!\n\n"+
			"🎯 %d damage dealt\n❤️ -%d health\n🐉 Boss: %d HP left\n\n"+
			"🏆 Rewards:\n💰 +%d gold\n⭐ +%d exp",
		res.Template.Name, res.Damage, res.SelfLoss, res.BossHealth,
		res.Gold, res.Exp,
	)
	if res.Sapphires > 0 {
		reply += fmt.Sprintf("\n💎 +%d sapphires", res.Sapphires)
	}
	if res.Defeated {
		reply += fmt.Sprintf("\n\n🎉 %s is DEFEATED! Top fighters get bonus rewards!", res.Template.Name)
	}

	if ups, err := h.tracker.Settle(ctx, sender.ID); err == nil {
		reply += renderLevelUps(ups)
	}
	return c.Reply(reply)
}
