package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"medterms/internal/cache"
	"medterms/internal/domain"
	"medterms/internal/metrics"
	"medterms/internal/repository"

	"go.uber.org/zap"
)

// ProgressStore is the per-user view of answer history
type ProgressStore interface {
	RecordAnswer(ctx context.Context, wordID int64, isCorrect bool) error
	ListForUser(ctx context.Context) ([]domain.WordProgress, error)
	ResetForUser(ctx context.Context) error
}

// ProgressService persists answers and serves cached progress lists
type ProgressService struct {
	repo   repository.ProgressRepository
	lists  *cache.Cache[[]domain.WordProgress]
	now    func() time.Time
	logger *zap.Logger
}

// NewProgressService creates a new progress service. lists may be nil to disable caching.
func NewProgressService(repo repository.ProgressRepository, lists *cache.Cache[[]domain.WordProgress], logger *zap.Logger) *ProgressService {
	return &ProgressService{
		repo:   repo,
		lists:  lists,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the timestamp source used for last_seen
func (s *ProgressService) SetClock(now func() time.Time) {
	s.now = now
}

// ForUser scopes the store to one user
func (s *ProgressService) ForUser(userID int64) *UserProgress {
	return &UserProgress{svc: s, userID: userID}
}

// PruneCache drops expired progress lists
func (s *ProgressService) PruneCache() int {
	if s.lists == nil {
		return 0
	}
	return s.lists.Prune()
}

func progressKey(userID int64) string {
	return "progress:" + strconv.FormatInt(userID, 10)
}

func (s *ProgressService) invalidate(userID int64) {
	if s.lists != nil {
		s.lists.Invalidate(progressKey(userID))
	}
}

// UserProgress implements ProgressStore for a single user
type UserProgress struct {
	svc    *ProgressService
	userID int64
}

// UserID returns the scoped user
func (p *UserProgress) UserID() int64 {
	return p.userID
}

// RecordAnswer upserts the counters for one word
func (p *UserProgress) RecordAnswer(ctx context.Context, wordID int64, isCorrect bool) error {
	err := p.svc.repo.Upsert(ctx, p.userID, wordID, isCorrect, p.svc.now())
	if err != nil {
		metrics.ProgressWriteFailures.Inc()
		p.svc.logger.Error("Failed to record answer",
			zap.Int64("user_id", p.userID),
			zap.Int64("word_id", wordID),
			zap.Error(err))
		return fmt.Errorf("%w: word %d: %w", domain.ErrProgressWrite, wordID, err)
	}
	p.svc.invalidate(p.userID)
	return nil
}

// ListForUser returns every progress record of the user, ordered by word id
func (p *UserProgress) ListForUser(ctx context.Context) ([]domain.WordProgress, error) {
	load := func(ctx context.Context) ([]domain.WordProgress, error) {
		return p.svc.repo.List(ctx, p.userID)
	}
	if p.svc.lists == nil {
		return load(ctx)
	}
	return p.svc.lists.Get(ctx, progressKey(p.userID), load)
}

// ResetForUser deletes all progress of the user
func (p *UserProgress) ResetForUser(ctx context.Context) error {
	if err := p.svc.repo.DeleteAllForUser(ctx, p.userID); err != nil {
		p.svc.logger.Error("Failed to reset progress",
			zap.Int64("user_id", p.userID),
			zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrProgressReset, err)
	}
	p.svc.invalidate(p.userID)
	p.svc.logger.Info("Progress reset", zap.Int64("user_id", p.userID))
	return nil
}
