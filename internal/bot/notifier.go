package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game/boss"
)

// Notifier pushes unsolicited game events to the configured chats. Sends
// are best-effort; a blocked chat must never fail the action that
// triggered the push.
type Notifier struct {
	bot   *tele.Bot
	chats []int64
}

// NewNotifier creates a notifier that broadcasts to the given chats.
func NewNotifier(b *tele.Bot, chats []int64) *Notifier {
	return &Notifier{bot: b, chats: chats}
}

// NotifyBossDefeat broadcasts the defeat and its top contributors to every
// configured chat.
func (n *Notifier) NotifyBossDefeat(_ context.Context, ev boss.DefeatEvent) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 %s has been DEFEATED!\n\n🏆 Top fighters:\n", ev.Template.Name)
	for i, c := range ev.Top {
		fmt.Fprintf(&sb, "%d. player %d — %d damage\n", i+1, c.PlayerID, c.Damage)
	}
	text := sb.String()

	for _, chatID := range n.chats {
		n.send(&tele.Chat{ID: chatID}, text)
	}
}

// NotifyEnergyFull tells a player their energy bar has refilled. Sent to
// the private chat; players who never opened one simply miss it.
func (n *Notifier) NotifyEnergyFull(playerID int64) {
	n.send(&tele.Chat{ID: playerID}, "⚡ Your energy is fully restored!")
}

func (n *Notifier) send(to tele.Recipient, text string) {
	if _, err := n.bot.Send(to, text); err != nil {
		log.Warn().Err(err).Str("recipient", to.Recipient()).Msg("failed to push notification")
	}
}
