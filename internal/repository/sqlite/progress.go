// Package sqlite stores user progress in a local SQLite file.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"medterms/internal/domain"

	"github.com/jmoiron/sqlx"
)

type progressRow struct {
	WordID   int64     `db:"word_id"`
	Correct  int       `db:"correct"`
	Attempts int       `db:"attempts"`
	LastSeen time.Time `db:"last_seen"`
}

// ProgressRepo implements repository.ProgressRepository on SQLite
type ProgressRepo struct {
	db *sqlx.DB
}

// NewProgressRepo creates a new progress repository
func NewProgressRepo(db *sqlx.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// List returns all progress records of the user
func (r *ProgressRepo) List(ctx context.Context, userID int64) ([]domain.WordProgress, error) {
	var rows []progressRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT word_id, correct, attempts, last_seen
		FROM user_progress
		WHERE user_id = ?
		ORDER BY word_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	records := make([]domain.WordProgress, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.WordProgress{
			WordID:       row.WordID,
			CorrectCount: row.Correct,
			AttemptCount: row.Attempts,
			LastSeenAt:   row.LastSeen,
		})
	}
	return records, nil
}

// Upsert records one attempt atomically
func (r *ProgressRepo) Upsert(ctx context.Context, userID, wordID int64, isCorrect bool, at time.Time) error {
	correct := 0
	if isCorrect {
		correct = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, word_id, correct, attempts, last_seen)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (user_id, word_id)
		DO UPDATE SET
			attempts = attempts + 1,
			correct = correct + excluded.correct,
			last_seen = excluded.last_seen
	`, userID, wordID, correct, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every record of the user in one transaction
func (r *ProgressRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}

	return tx.Commit()
}
