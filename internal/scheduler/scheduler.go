// Package scheduler runs the verifier's background maintenance jobs:
// pruning expired API keys and periodically refreshing cached
// leaderboards, the way the teacher's CronScheduler drives workflow
// triggers on a robfig/cron clock.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mapfarena/verifier/internal/storage"
)

// KeyPruner prunes expired API keys. Satisfied by
// *storage.APIKeyRepository.
type KeyPruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// CacheWarmer re-populates a cached leaderboard entry ahead of a client
// request. Satisfied by *storage.LeaderboardCache.
type CacheWarmer interface {
	Leaderboard(ctx context.Context, mapName, scenarioName string, limit int) ([]storage.LeaderboardRow, error)
}

// WarmTarget names one leaderboard entry to keep warm.
type WarmTarget struct {
	MapName      string
	ScenarioName string
	Limit        int
}

// Scheduler owns a robfig/cron clock and the maintenance jobs
// registered on it.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	pruner  KeyPruner
	cache   CacheWarmer
	targets []WarmTarget
}

// Config bundles Scheduler's construction-time dependencies.
type Config struct {
	Pruner      KeyPruner
	Cache       CacheWarmer
	WarmTargets []WarmTarget
	Logger      zerolog.Logger
}

func New(cfg Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  cfg.Logger,
		pruner:  cfg.Pruner,
		cache:   cfg.Cache,
		targets: cfg.WarmTargets,
	}
}

// Start registers the jobs and starts the cron clock. jobTimeout bounds
// each individual job run, matching the teacher's createJob pattern of
// wrapping context.Background() with a fixed-duration timeout per run.
func (s *Scheduler) Start(pruneSchedule, warmSchedule string, jobTimeout time.Duration) error {
	if _, err := s.cron.AddFunc(pruneSchedule, s.runPruneJob(jobTimeout)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(warmSchedule, s.runWarmJob(jobTimeout)); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron clock and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runPruneJob(timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := s.pruner.PruneExpired(ctx, time.Now())
		if err != nil {
			s.logger.Error().Err(err).Msg("prune expired api keys failed")
			return
		}
		s.logger.Info().Int("revoked", n).Msg("pruned expired api keys")
	}
}

func (s *Scheduler) runWarmJob(timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		for _, target := range s.targets {
			rows, err := s.cache.Leaderboard(ctx, target.MapName, target.ScenarioName, target.Limit)
			if err != nil {
				s.logger.Error().
					Err(err).
					Str("map_name", target.MapName).
					Str("scenario_name", target.ScenarioName).
					Msg("warm leaderboard cache failed")
				continue
			}
			s.logger.Debug().
				Str("map_name", target.MapName).
				Int("rows", len(rows)).
				Msg("warmed leaderboard cache")
		}
	}
}
