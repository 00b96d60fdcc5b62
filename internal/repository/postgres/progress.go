package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medterms/internal/domain"
)

// ProgressRepo implements repository.ProgressRepository
type ProgressRepo struct {
	db *sql.DB
}

// NewProgressRepo creates a new progress repository
func NewProgressRepo(db *sql.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// List returns all progress records of the user
func (r *ProgressRepo) List(ctx context.Context, userID int64) ([]domain.WordProgress, error) {
	query := `
		SELECT word_id, correct, attempts, last_seen
		FROM user_progress
		WHERE user_id = $1
		ORDER BY word_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.WordProgress
	for rows.Next() {
		var p domain.WordProgress
		if err := rows.Scan(&p.WordID, &p.CorrectCount, &p.AttemptCount, &p.LastSeenAt); err != nil {
			return nil, err
		}
		records = append(records, p)
	}

	return records, rows.Err()
}

// Upsert records one attempt in a single statement so concurrent answers
// for the same word are never lost
func (r *ProgressRepo) Upsert(ctx context.Context, userID, wordID int64, isCorrect bool, at time.Time) error {
	query := `
		INSERT INTO user_progress (user_id, word_id, correct, attempts, last_seen)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, word_id)
		DO UPDATE SET
			attempts = user_progress.attempts + 1,
			correct = user_progress.correct + EXCLUDED.correct,
			last_seen = EXCLUDED.last_seen
	`
	_, err := r.db.ExecContext(ctx, query, userID, wordID, correctDelta(isCorrect), at)
	return err
}

// DeleteAllForUser removes every record of the user in one transaction
func (r *ProgressRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func correctDelta(isCorrect bool) int {
	if isCorrect {
		return 1
	}
	return 0
}
