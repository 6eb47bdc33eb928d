// Package handler provides Telegram bot command handlers.
//
// Handlers parse command arguments, call into the services and engines,
// and render results. No game rules live here.
package handler

import (
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/service"
)

// replyGameError turns the engine error taxonomy into user-facing replies.
func replyGameError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return c.Reply("❌ Not found. Create a character with /create first.")
	case errors.Is(err, game.ErrInsufficientResource):
		return c.Reply("❌ Not enough resources for that.")
	case errors.Is(err, game.ErrInvalidState):
		return c.Reply("❌ You can't do that right now.")
	case errors.Is(err, game.ErrConcurrencyConflict):
		return c.Reply("⏳ Busy, try again in a moment.")
	case errors.Is(err, service.ErrCharacterExists):
		return c.Reply("❌ You already have a character.")
	case errors.Is(err, service.ErrCharacterNameTaken):
		return c.Reply("❌ That name is taken.")
	case errors.Is(err, service.ErrInvalidCharacter):
		return c.Reply("❌ Invalid name or class.")
	case errors.Is(err, service.ErrDailyAlreadyClaimed):
		return c.Reply("🎁 Already claimed today, come back tomorrow!")
	}
	log.Error().Err(err).Str("command", c.Text()).Msg("handler failed")
	return c.Reply("❌ Something went wrong, try again later.")
}
