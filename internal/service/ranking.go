package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/game/boss"
	"magic-rpg-bot/internal/model"
	"magic-rpg-bot/internal/repository"
)

// Default leaderboard sizes.
const (
	RatingTopSize = 10
	BossTopSize   = 5
)

// RatingEntry is one rated player on the PvP leaderboard.
type RatingEntry struct {
	Rank   int
	Name   string
	Rating int
	Wins   int
	Losses int
}

// BossEntry is one contributor on today's boss damage board.
type BossEntry struct {
	Rank   int
	Name   string
	Damage int64
}

// RankingService assembles the leaderboard views.
type RankingService struct {
	players *repository.PlayerRepository
	ratings *repository.RatingRepository
	boss    *boss.Engine
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(
	players *repository.PlayerRepository,
	ratings *repository.RatingRepository,
	bossEngine *boss.Engine,
) *RankingService {
	return &RankingService{
		players: players,
		ratings: ratings,
		boss:    bossEngine,
	}
}

// TopRatings returns the PvP ladder with character names resolved.
func (s *RankingService) TopRatings(ctx context.Context, limit int) ([]RatingEntry, error) {
	rows, err := s.ratings.GetTop(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]RatingEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, RatingEntry{
			Rank:   i + 1,
			Name:   s.nameOf(ctx, r.PlayerID),
			Rating: r.Rating,
			Wins:   r.Wins,
			Losses: r.Losses,
		})
	}
	return entries, nil
}

// TopByLevel returns the strongest characters.
func (s *RankingService) TopByLevel(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.players.GetTopByLevel(ctx, limit)
}

// TopByGold returns the richest characters.
func (s *RankingService) TopByGold(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.players.GetTopByGold(ctx, limit)
}

// BossTop returns today's boss damage ranking.
func (s *RankingService) BossTop(ctx context.Context, now time.Time, limit int) ([]BossEntry, error) {
	rows, err := s.boss.TopToday(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]BossEntry, 0, len(rows))
	for i, c := range rows {
		entries = append(entries, BossEntry{
			Rank:   i + 1,
			Name:   s.nameOf(ctx, c.PlayerID),
			Damage: c.Damage,
		})
	}
	return entries, nil
}

func (s *RankingService) nameOf(ctx context.Context, playerID int64) string {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		log.Warn().Err(err).Int64("player_id", playerID).Msg("failed to resolve character name")
		return "???"
	}
	return player.CharacterName
}
