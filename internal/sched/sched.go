// Package sched runs the periodic maintenance jobs: energy and mine
// accrual sweeps, abandoned-battle reaping, daily boss seeding and a
// database health report.
//
// All game state is accrued lazily on access; these jobs only keep idle
// rows fresh and clean up sessions nobody will ever come back for, so a
// missed tick is harmless.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"magic-rpg-bot/internal/config"
	"magic-rpg-bot/internal/game/boss"
	"magic-rpg-bot/internal/game/mine"
	"magic-rpg-bot/internal/pkg/db"
	"magic-rpg-bot/internal/repository"
	"magic-rpg-bot/internal/service"
)

// Scheduler owns the background job loops.
type Scheduler struct {
	cfg     *config.Config
	players *service.PlayerService
	hunts   *service.HuntService
	mines   *mine.Engine
	bosses  *boss.Engine
	battles *repository.DuelRepository
	pool    *db.Pool

	wg sync.WaitGroup
}

// New creates a scheduler.
func New(
	cfg *config.Config,
	players *service.PlayerService,
	hunts *service.HuntService,
	mines *mine.Engine,
	bosses *boss.Engine,
	battles *repository.DuelRepository,
	pool *db.Pool,
) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		players: players,
		hunts:   hunts,
		mines:   mines,
		bosses:  bosses,
		battles: battles,
		pool:    pool,
	}
}

// Start launches the job loops. They stop when ctx is cancelled; Wait
// blocks until they have all drained.
func (s *Scheduler) Start(ctx context.Context) {
	s.spawn(ctx, "energy_sweep", s.cfg.Sched.EnergySweepInterval, s.energySweep)
	s.spawn(ctx, "mine_sweep", s.cfg.Sched.MineSweepInterval, s.mineSweep)
	s.spawn(ctx, "reaper", s.cfg.Sched.ReaperInterval, s.reap)
	s.spawn(ctx, "boss_seed", time.Hour, s.seedBoss)
	s.spawn(ctx, "db_health", s.cfg.Sched.HealthInterval, s.dbHealth)
}

// Wait blocks until every job loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration, job func(ctx context.Context) error) {
	if interval <= 0 {
		log.Warn().Str("job", name).Msg("job disabled, interval not positive")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Str("job", name).Dur("interval", interval).Msg("job started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("job", name).Msg("job stopped")
				return
			case <-ticker.C:
				if err := job(ctx); err != nil {
					log.Error().Err(err).Str("job", name).Msg("job run failed")
				}
			}
		}
	}()
}

func (s *Scheduler) energySweep(ctx context.Context) error {
	updated, err := s.players.EnergySweep(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Debug().Int("updated", updated).Msg("energy sweep done")
	return nil
}

func (s *Scheduler) mineSweep(ctx context.Context) error {
	updated, err := s.mines.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Debug().Int("updated", updated).Msg("mine sweep done")
	return nil
}

// reap drops hunt sessions idle past the timeout and duel rows whose
// participants walked away, releasing both players for new battles.
func (s *Scheduler) reap(ctx context.Context) error {
	reaped := s.hunts.Reap(ctx, s.cfg.Game.Hunt.SessionTimeout)
	if reaped > 0 {
		log.Info().Int("sessions", reaped).Msg("reaped idle hunt sessions")
	}

	stale, err := s.battles.DeleteStale(ctx, time.Now().Add(-s.cfg.Game.Duel.StaleAfter))
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		log.Info().Int("battles", len(stale)).Msg("reaped stale duels")
	}
	return nil
}

// dbHealth pings the database and reports pool pressure, so a dying
// connection pool shows up in the logs before players notice.
func (s *Scheduler) dbHealth(ctx context.Context) error {
	pingCtx, cancel := db.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.pool.HealthCheck(pingCtx); err != nil {
		return err
	}
	stat := s.pool.Stats()
	log.Debug().
		Int32("total_conns", stat.TotalConns()).
		Int32("idle_conns", stat.IdleConns()).
		Int32("acquired_conns", stat.AcquiredConns()).
		Msg("database healthy")
	return nil
}

// seedBoss makes sure today's boss pool row exists so the first strike of
// the day never races the seed.
func (s *Scheduler) seedBoss(ctx context.Context) error {
	tpl, status, err := s.bosses.Status(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Debug().Str("boss", tpl.Name).Int64("health", status.CurrentHealth).Msg("boss seeded")
	return nil
}
