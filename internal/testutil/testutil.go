package testutil

import (
	"medterms/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestTerm creates a term with derived en/ru translations
func NewTestTerm(id int64, he string, categoryIDs ...int64) domain.Term {
	return domain.Term{
		ID: id,
		Translations: domain.Translations{
			Primary:   he,
			Secondary: he + " (en)",
			Tertiary:  he + " (ru)",
		},
		CategoryIDs: categoryIDs,
	}
}

// NewTestCategory creates a category with an English name
func NewTestCategory(id int64, slug string) domain.Category {
	return domain.Category{
		ID:    id,
		Slug:  slug,
		Names: map[domain.Lang]string{domain.LangEnglish: slug},
	}
}
