package service

import (
	"context"
	"math"

	"medterms/internal/domain"

	"go.uber.org/zap"
)

// CategorySummary is one row of the category overview
type CategorySummary struct {
	Category  domain.Category
	TermCount int
	Mastery   int
}

// StatsService aggregates progress into per-category mastery
type StatsService struct {
	catalog  *CatalogService
	progress *ProgressService
	logger   *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(catalog *CatalogService, progress *ProgressService, logger *zap.Logger) *StatsService {
	return &StatsService{
		catalog:  catalog,
		progress: progress,
		logger:   logger,
	}
}

// ComputeCategoryMastery returns, for every category, the rounded percentage of
// its terms with at least one correct answer. Empty categories map to 0.
func ComputeCategoryMastery(terms []domain.Term, categories []domain.Category, records []domain.WordProgress) map[int64]int {
	mastered := make(map[int64]bool, len(records))
	for _, r := range records {
		if r.Mastered() {
			mastered[r.WordID] = true
		}
	}

	result := make(map[int64]int, len(categories))
	for _, c := range categories {
		total, done := 0, 0
		seen := make(map[int64]struct{})
		for _, t := range terms {
			if !t.InCategory(c.ID) {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			total++
			if mastered[t.ID] {
				done++
			}
		}
		result[c.ID] = percentage(done, total)
	}
	return result
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// CategoryMastery computes the mastery map for one user
func (s *StatsService) CategoryMastery(ctx context.Context, userID int64) (map[int64]int, error) {
	terms, categories, records, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeCategoryMastery(terms, categories, records), nil
}

// Overview returns every category with its term count and the user's mastery
func (s *StatsService) Overview(ctx context.Context, userID int64) ([]CategorySummary, error) {
	terms, categories, records, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	mastery := ComputeCategoryMastery(terms, categories, records)
	summaries := make([]CategorySummary, 0, len(categories))
	for _, c := range categories {
		summaries = append(summaries, CategorySummary{
			Category:  c,
			TermCount: len(domain.FilterByCategory(terms, c.ID)),
			Mastery:   mastery[c.ID],
		})
	}
	return summaries, nil
}

func (s *StatsService) load(ctx context.Context, userID int64) ([]domain.Term, []domain.Category, []domain.WordProgress, error) {
	terms, err := s.catalog.Terms(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	records, err := s.progress.ForUser(userID).ListForUser(ctx)
	if err != nil {
		s.logger.Error("Failed to load progress", zap.Int64("user_id", userID), zap.Error(err))
		return nil, nil, nil, err
	}
	return terms, categories, records, nil
}

// PruneCaches drops expired catalog and progress entries
func (s *StatsService) PruneCaches() int {
	removed := s.catalog.PruneCaches() + s.progress.PruneCache()
	if removed > 0 {
		s.logger.Info("Pruned cache entries", zap.Int("removed", removed))
	}
	return removed
}
