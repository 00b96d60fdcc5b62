package postgres

import (
	"database/sql"

	"medterms/internal/domain"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// EnsureUserExists creates user if not exists
func (r *UserRepo) EnsureUserExists(userID int64) error {
	query := `
		INSERT INTO users (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(query, userID)
	return err
}

// GetLanguage returns the user's prompt language
func (r *UserRepo) GetLanguage(userID int64) (domain.Lang, error) {
	var lang string
	query := `SELECT lang FROM users WHERE user_id = $1`
	err := r.db.QueryRow(query, userID).Scan(&lang)

	if err == sql.ErrNoRows {
		return domain.LangEnglish, nil
	}
	if err != nil {
		return "", err
	}

	return domain.ParseLang(lang), nil
}

// SetLanguage stores the user's prompt language
func (r *UserRepo) SetLanguage(userID int64, lang domain.Lang) error {
	query := `
		INSERT INTO users (user_id, lang)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET lang = EXCLUDED.lang
	`
	_, err := r.db.Exec(query, userID, string(lang))
	return err
}
