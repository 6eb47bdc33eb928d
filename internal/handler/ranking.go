package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"magic-rpg-bot/internal/service"
)

// RankingHandler handles the leaderboard commands.
type RankingHandler struct {
	ranking *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking *service.RankingService) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

// HandleTop handles /top: the PvP rating ladder.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	entries, err := h.ranking.TopRatings(context.Background(), service.RatingTopSize)
	if err != nil {
		return replyGameError(c, err)
	}
	if len(entries) == 0 {
		return c.Reply("🏆 Nobody has duelled yet.")
	}

	var sb strings.Builder
	sb.WriteString("🏆 PvP ladder:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s — %d (%dW/%dL)\n", medal(e.Rank), e.Name, e.Rating, e.Wins, e.Losses)
	}
	return c.Reply(sb.String())
}

// HandleTopLevel handles /top_level.
func (h *RankingHandler) HandleTopLevel(c tele.Context) error {
	players, err := h.ranking.TopByLevel(context.Background(), service.RatingTopSize)
	if err != nil {
		return replyGameError(c, err)
	}

	var sb strings.Builder
	sb.WriteString("🏅 Strongest heroes:\n\n")
	for i, p := range players {
		fmt.Fprintf(&sb, "%s %s — level %d\n", medal(i+1), p.CharacterName, p.Level)
	}
	return c.Reply(sb.String())
}

// HandleTopGold handles /top_gold.
func (h *RankingHandler) HandleTopGold(c tele.Context) error {
	players, err := h.ranking.TopByGold(context.Background(), service.RatingTopSize)
	if err != nil {
		return replyGameError(c, err)
	}

	var sb strings.Builder
	sb.WriteString("💰 Richest heroes:\n\n")
	for i, p := range players {
		fmt.Fprintf(&sb, "%s %s — %d gold\n", medal(i+1), p.CharacterName, p.Gold)
	}
	return c.Reply(sb.String())
}

// HandleBossTop handles /boss_top: today's boss damage board.
func (h *RankingHandler) HandleBossTop(c tele.Context) error {
	entries, err := h.ranking.BossTop(context.Background(), time.Now(), service.BossTopSize)
	if err != nil {
		return replyGameError(c, err)
	}
	if len(entries) == 0 {
		return c.Reply("🐉 Nobody has struck the boss today.")
	}

	var sb strings.Builder
	sb.WriteString("🐉 Today's boss damage:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s — %d damage\n", medal(e.Rank), e.Name, e.Damage)
	}
	return c.Reply(sb.String())
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
}
