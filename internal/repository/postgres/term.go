package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medterms/internal/domain"

	"github.com/lib/pq"
)

// TermRepo implements repository.TermRepository, repository.CategoryRepository
// and repository.CatalogWriter
type TermRepo struct {
	db *sql.DB
}

// NewTermRepo creates a new term repository
func NewTermRepo(db *sql.DB) *TermRepo {
	return &TermRepo{db: db}
}

// ListTerms returns every term with its category set.
// Membership comes from both words.category_id and the word_categories table.
func (r *TermRepo) ListTerms(ctx context.Context) ([]domain.Term, error) {
	query := `
		SELECT w.id, w.he, w.en, w.rus, w.category_id,
			COALESCE(array_agg(wc.category_id) FILTER (WHERE wc.category_id IS NOT NULL), '{}') AS extra_categories
		FROM words w
		LEFT JOIN word_categories wc ON wc.word_id = w.id
		GROUP BY w.id
		ORDER BY w.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []domain.Term
	for rows.Next() {
		var (
			t          domain.Term
			categoryID sql.NullInt64
			extra      pq.Int64Array
		)
		if err := rows.Scan(
			&t.ID,
			&t.Translations.Primary,
			&t.Translations.Secondary,
			&t.Translations.Tertiary,
			&categoryID,
			&extra,
		); err != nil {
			return nil, err
		}
		t.CategoryIDs = domain.NormalizeCategoryIDs(categoryID.Int64, extra...)
		terms = append(terms, t)
	}

	return terms, rows.Err()
}

// ListCategories returns all categories ordered by id
func (r *TermRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, slug, name_en, name_he, name_ru
		FROM categories
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var (
			c                      domain.Category
			nameEN, nameHE, nameRU string
		)
		if err := rows.Scan(&c.ID, &c.Slug, &nameEN, &nameHE, &nameRU); err != nil {
			return nil, err
		}
		c.Names = map[domain.Lang]string{
			domain.LangEnglish: nameEN,
			domain.LangHebrew:  nameHE,
			domain.LangRussian: nameRU,
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// UpsertCategory inserts or renames a category by slug and returns its id
func (r *TermRepo) UpsertCategory(ctx context.Context, category domain.Category) (int64, error) {
	query := `
		INSERT INTO categories (slug, name_en, name_he, name_ru)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug)
		DO UPDATE SET name_en = EXCLUDED.name_en, name_he = EXCLUDED.name_he, name_ru = EXCLUDED.name_ru
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		category.Slug,
		category.Names[domain.LangEnglish],
		category.Names[domain.LangHebrew],
		category.Names[domain.LangRussian],
	).Scan(&id)
	return id, err
}

// UpsertTerm inserts or updates a term keyed by its Hebrew and English text.
// The first category is stored on the row, the rest in word_categories.
func (r *TermRepo) UpsertTerm(ctx context.Context, term domain.Term) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var primary sql.NullInt64
	if len(term.CategoryIDs) > 0 {
		primary = sql.NullInt64{Int64: term.CategoryIDs[0], Valid: true}
	}

	query := `
		INSERT INTO words (he, en, rus, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (he, en)
		DO UPDATE SET rus = EXCLUDED.rus, category_id = EXCLUDED.category_id
		RETURNING id
	`

	var id int64
	if err := tx.QueryRowContext(ctx, query,
		term.Translations.Primary,
		term.Translations.Secondary,
		term.Translations.Tertiary,
		primary,
	).Scan(&id); err != nil {
		return 0, err
	}

	for _, categoryID := range term.CategoryIDs[min(1, len(term.CategoryIDs)):] {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO word_categories (word_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, categoryID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit term: %w", err)
	}
	return id, nil
}
