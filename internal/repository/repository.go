package repository

import (
	"context"
	"time"

	"medterms/internal/domain"
)

// UserRepository defines user data operations
type UserRepository interface {
	EnsureUserExists(userID int64) error
	GetLanguage(userID int64) (domain.Lang, error)
	SetLanguage(userID int64, lang domain.Lang) error
}

// TermRepository reads the vocabulary
type TermRepository interface {
	ListTerms(ctx context.Context) ([]domain.Term, error)
}

// CategoryRepository reads term categories
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// CatalogWriter seeds categories and terms
type CatalogWriter interface {
	UpsertCategory(ctx context.Context, category domain.Category) (int64, error)
	UpsertTerm(ctx context.Context, term domain.Term) (int64, error)
}

// ProgressRepository persists per-user per-word counters.
// Upsert must be atomic: concurrent calls for the same word never lose an attempt.
type ProgressRepository interface {
	List(ctx context.Context, userID int64) ([]domain.WordProgress, error)
	Upsert(ctx context.Context, userID, wordID int64, isCorrect bool, at time.Time) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}
