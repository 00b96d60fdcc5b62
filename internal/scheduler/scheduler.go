// Package scheduler runs the periodic cache maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const warmTimeout = time.Minute

// Pruner drops expired cache entries and reports how many were removed
type Pruner interface {
	PruneCaches() int
}

// Warmer reloads the catalog ahead of user requests
type Warmer interface {
	Warm(ctx context.Context) error
}

// Scheduler manages the cache jobs
type Scheduler struct {
	scheduler     *gocron.Scheduler
	pruner        Pruner
	warmer        Warmer
	pruneInterval time.Duration
	warmInterval  time.Duration
	logger        *zap.Logger
}

// New creates a scheduler. A zero interval disables that job.
func New(pruner Pruner, warmer Warmer, pruneInterval, warmInterval time.Duration, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:     s,
		pruner:        pruner,
		warmer:        warmer,
		pruneInterval: pruneInterval,
		warmInterval:  warmInterval,
		logger:        logger,
	}
}

// Start registers the jobs and runs them in the background
func (s *Scheduler) Start() error {
	if s.pruneInterval > 0 {
		if _, err := s.scheduler.Every(s.pruneInterval).Do(s.prune); err != nil {
			return fmt.Errorf("failed to schedule cache prune: %w", err)
		}
	}
	if s.warmInterval > 0 {
		if _, err := s.scheduler.Every(s.warmInterval).Do(s.warm); err != nil {
			return fmt.Errorf("failed to schedule catalog warm-up: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started",
		zap.Duration("prune_interval", s.pruneInterval),
		zap.Duration("warm_interval", s.warmInterval))
	return nil
}

// Stop terminates all scheduled jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) prune() {
	removed := s.pruner.PruneCaches()
	s.logger.Debug("Cache prune finished", zap.Int("removed", removed))
}

func (s *Scheduler) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	if err := s.warmer.Warm(ctx); err != nil {
		s.logger.Error("Failed to warm catalog", zap.Error(err))
	}
}
