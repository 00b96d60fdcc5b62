package service

import (
	"context"
	"sort"
	"strings"

	"medterms/internal/cache"
	"medterms/internal/domain"
	"medterms/internal/repository"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
)

const (
	termsKey      = "terms"
	categoriesKey = "categories"

	DefaultSearchLimit = 10
)

// CatalogService serves the cached term and category lists
type CatalogService struct {
	termRepo      repository.TermRepository
	categoryRepo  repository.CategoryRepository
	termCache     *cache.Cache[[]domain.Term]
	categoryCache *cache.Cache[[]domain.Category]
	logger        *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	termRepo repository.TermRepository,
	categoryRepo repository.CategoryRepository,
	termCache *cache.Cache[[]domain.Term],
	categoryCache *cache.Cache[[]domain.Category],
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		termRepo:      termRepo,
		categoryRepo:  categoryRepo,
		termCache:     termCache,
		categoryCache: categoryCache,
		logger:        logger,
	}
}

// Terms returns the full term list
func (s *CatalogService) Terms(ctx context.Context) ([]domain.Term, error) {
	return s.termCache.Get(ctx, termsKey, s.termRepo.ListTerms)
}

// Categories returns the full category list
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categoryCache.Get(ctx, categoriesKey, s.categoryRepo.ListCategories)
}

// Category looks up one category by id
func (s *CatalogService) Category(ctx context.Context, id int64) (domain.Category, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, c := range categories {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

// TermsInCategory returns the terms belonging to a category
func (s *CatalogService) TermsInCategory(ctx context.Context, categoryID int64) ([]domain.Term, error) {
	terms, err := s.Terms(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterByCategory(terms, categoryID), nil
}

// Search fuzzy-matches the query against every translation of every term.
// categoryID 0 searches the whole catalog. Results are ordered best match first.
func (s *CatalogService) Search(ctx context.Context, query string, categoryID int64, limit int) ([]domain.Term, error) {
	terms, err := s.Terms(ctx)
	if err != nil {
		return nil, err
	}
	if categoryID != 0 {
		terms = domain.FilterByCategory(terms, categoryID)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(terms) > limit {
			terms = terms[:limit]
		}
		return append([]domain.Term(nil), terms...), nil
	}

	targets := make([]string, 0, len(terms)*3)
	owners := make([]int, 0, len(terms)*3)
	for i, t := range terms {
		for _, text := range []string{t.Translations.Primary, t.Translations.Secondary, t.Translations.Tertiary} {
			if text == "" {
				continue
			}
			targets = append(targets, text)
			owners = append(owners, i)
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	seen := make(map[int64]struct{}, len(ranks))
	result := make([]domain.Term, 0, limit)
	for _, r := range ranks {
		term := terms[owners[r.OriginalIndex]]
		if _, dup := seen[term.ID]; dup {
			continue
		}
		seen[term.ID] = struct{}{}
		result = append(result, term)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// Warm loads both lists so the first user does not wait on the database
func (s *CatalogService) Warm(ctx context.Context) error {
	if _, err := s.Categories(ctx); err != nil {
		return err
	}
	terms, err := s.Terms(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("Catalog warmed", zap.Int("terms", len(terms)))
	return nil
}

// Invalidate forces the next read of both lists to reload
func (s *CatalogService) Invalidate() {
	s.termCache.Invalidate(termsKey)
	s.categoryCache.Invalidate(categoriesKey)
}

// PruneCaches drops entries past retention
func (s *CatalogService) PruneCaches() int {
	return s.termCache.Prune() + s.categoryCache.Prune()
}
