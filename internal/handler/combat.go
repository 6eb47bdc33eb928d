package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/game/duel"
	"magic-rpg-bot/internal/game/progress"
	"magic-rpg-bot/internal/service"
)

// CombatHandler handles hunts, duels and the shared action commands.
type CombatHandler struct {
	hunts   *service.HuntService
	duels   *duel.Engine
	tracker *progress.Tracker
}

// NewCombatHandler creates a new CombatHandler.
func NewCombatHandler(hunts *service.HuntService, duels *duel.Engine, tracker *progress.Tracker) *CombatHandler {
	return &CombatHandler{hunts: hunts, duels: duels, tracker: tracker}
}

// HandleHunt handles /hunt: starts a monster encounter.
func (h *CombatHandler) HandleHunt(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	session, err := h.hunts.Start(context.Background(), sender.ID, time.Now())
	if err != nil {
		return replyGameError(c, err)
	}

	return c.Reply(fmt.Sprintf(
		"🌲 You encounter %s (level %d)!\n\n"+
			"👹 %d HP\n❤️ You: %d HP, 🔮 %d MP\n\n"+
			"Fight with /attack, /magic, /defend or /flee",
		session.Monster.Name, session.Monster.Level,
		session.MonsterHealth, session.PlayerHealth, session.PlayerMana,
	))
}

// HandleAttack handles /attack for whichever fight the player is in.
func (h *CombatHandler) HandleAttack(c tele.Context) error { return h.act(c, game.ActionAttack) }

// HandleMagic handles /magic.
func (h *CombatHandler) HandleMagic(c tele.Context) error { return h.act(c, game.ActionMagic) }

// HandleDefend handles /defend.
func (h *CombatHandler) HandleDefend(c tele.Context) error { return h.act(c, game.ActionDefend) }

// HandleFlee handles /flee. In a duel this surrenders.
func (h *CombatHandler) HandleFlee(c tele.Context) error { return h.act(c, game.ActionFlee) }

// act routes the shared action commands: a live hunt session wins, then an
// open duel.
func (h *CombatHandler) act(c tele.Context, action game.Action) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()

	if _, ok := h.hunts.Session(sender.ID); ok {
		out, err := h.hunts.Act(ctx, sender.ID, action)
		if err != nil {
			return replyGameError(c, err)
		}
		return c.Reply(renderHuntOutcome(out))
	}

	turn, err := h.duels.Act(ctx, sender.ID, action)
	if err != nil {
		return replyGameError(c, err)
	}
	reply := renderDuelTurn(sender.ID, turn)
	if turn.State.Terminal() {
		if ups, err := h.tracker.Settle(ctx, sender.ID); err == nil {
			reply += renderLevelUps(ups)
		}
	}
	return c.Reply(reply)
}

// HandleDuel handles /duel <character>: challenge a named player.
func (h *CombatHandler) HandleDuel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /duel <character name>")
	}

	battle, err := h.duels.Challenge(context.Background(), sender.ID, strings.Join(args, " "))
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"⚔️ Duel #%d started!\n\nBoth fighters act with /attack, /magic or /flee.",
		battle.ID,
	))
}

// HandleTraining handles /training: a practice duel against the bot.
func (h *CombatHandler) HandleTraining(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	battle, err := h.duels.TrainingChallenge(context.Background(), sender.ID)
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"🤖 Training duel #%d started against a level %d sparring bot.\n\n"+
			"No rating at stake. /attack, /magic or /flee.",
		battle.ID, battle.BotLevel,
	))
}

// HandleMatch handles /match: find a rated opponent near your rating.
func (h *CombatHandler) HandleMatch(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	opponent, err := h.duels.Matchmake(context.Background(), sender.ID)
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"🎯 Found an opponent: %s (level %d)\n\nChallenge with /duel %s",
		opponent.CharacterName, opponent.Level, opponent.CharacterName,
	))
}

// HandleInventory handles /inventory.
func (h *CombatHandler) HandleInventory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	items, err := h.hunts.Inventory(context.Background(), sender.ID)
	if err != nil {
		return replyGameError(c, err)
	}
	if len(items) == 0 {
		return c.Reply("🎒 Your bag is empty. Monsters drop loot sometimes!")
	}

	var sb strings.Builder
	sb.WriteString("🎒 Inventory:\n\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "%s ×%d (%s)\n", it.Name, it.Quantity, it.Rarity)
	}
	return c.Reply(sb.String())
}

// HandlePotion handles /potion: drink a health potion.
func (h *CombatHandler) HandlePotion(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	player, err := h.hunts.UsePotion(context.Background(), sender.ID)
	if err != nil {
		return replyGameError(c, err)
	}
	return c.Reply(fmt.Sprintf("🧪 Glug! ❤️ %d/%d", player.Health, player.MaxHealth))
}

func renderHuntOutcome(out *service.HuntOutcome) string {
	turn := out.Turn
	var sb strings.Builder

	switch turn.State {
	case game.StateVictory:
		fmt.Fprintf(&sb, "🎉 Victory! You defeated %s!\n\n💰 +%d gold\n⭐ +%d exp\n⚡ Energy spent",
			turn.Monster.Name, out.GoldDelta, out.ExpReward)
		if out.Drop != nil {
			fmt.Fprintf(&sb, "\n🎁 Drop: %s", out.Drop.Name)
		}
		sb.WriteString(renderLevelUps(out.LevelUps))
	case game.StateDefeat:
		fmt.Fprintf(&sb, "💀 Defeated by %s...\n\n💰 %d gold\n❤️ Restored to half health",
			turn.Monster.Name, out.GoldDelta)
	case game.StateFled:
		sb.WriteString("🏃 You fled the fight. ⚡ -5 energy")
	default:
		fmt.Fprintf(&sb, "⚔️ You dealt %d damage", turn.DamageDealt)
		if turn.ManaSpent > 0 {
			fmt.Fprintf(&sb, " (🔮 -%d)", turn.ManaSpent)
		}
		if turn.DamageTaken > 0 {
			fmt.Fprintf(&sb, ", took %d", turn.DamageTaken)
		}
		fmt.Fprintf(&sb, "\n\n👹 %s: %d HP\n❤️ You: %d HP, 🔮 %d MP",
			turn.Monster.Name, turn.MonsterHealth, turn.PlayerHealth, turn.PlayerMana)
	}
	return sb.String()
}

func renderDuelTurn(playerID int64, turn *duel.TurnResult) string {
	var sb strings.Builder

	if !turn.State.Terminal() {
		fmt.Fprintf(&sb, "⚔️ You dealt %d damage", turn.DamageDealt)
		if turn.DamageTaken > 0 {
			fmt.Fprintf(&sb, ", took %d back", turn.DamageTaken)
		}
		fmt.Fprintf(&sb, "\n\n❤️ You: %d HP\n💢 Opponent: %d HP", turn.MyHealth, turn.OppHealth)
		return sb.String()
	}

	if turn.WinnerID == playerID {
		sb.WriteString("🏆 You won the duel!")
		if turn.RatingDelta > 0 {
			fmt.Fprintf(&sb, "\n\n📈 +%d rating\n💰 +%d gold", turn.RatingDelta, turn.GoldReward)
		}
		if turn.ExpReward > 0 {
			fmt.Fprintf(&sb, "\n⭐ +%d exp", turn.ExpReward)
		}
	} else {
		if turn.Surrendered {
			sb.WriteString("🏳️ You surrendered.")
		} else {
			sb.WriteString("💀 You lost the duel.")
		}
		if turn.RatingDelta > 0 {
			fmt.Fprintf(&sb, "\n\n📉 -%d rating", turn.RatingDelta)
		}
	}
	return sb.String()
}

func renderLevelUps(ups []progress.LevelUpReward) string {
	var sb strings.Builder
	for _, up := range ups {
		fmt.Fprintf(&sb, "\n\n🎊 Level up! You are now level %d!\n💰 +%d gold", up.Level, up.Gold)
		if up.Sapphires > 0 {
			fmt.Fprintf(&sb, "\n💎 +%d sapphire", up.Sapphires)
		}
		fmt.Fprintf(&sb, "\n🔧 +%d upgrade points", up.Points)
	}
	return sb.String()
}
