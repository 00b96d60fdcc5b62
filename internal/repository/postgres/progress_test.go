package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestProgressRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewProgressRepo(db)

	seen := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"word_id", "correct", "attempts", "last_seen"}).
		AddRow(10, 1, 2, seen).
		AddRow(11, 0, 1, seen)

	mock.ExpectQuery("SELECT word_id, correct, attempts, last_seen FROM user_progress WHERE user_id = \\$1").
		WithArgs(int64(123)).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), 123)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int64(10), records[0].WordID)
	assert.Equal(t, 1, records[0].CorrectCount)
	assert.Equal(t, 2, records[0].AttemptCount)
	assert.Equal(t, seen, records[0].LastSeenAt)
	assert.False(t, records[1].Mastered())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepo_List_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewProgressRepo(db)

	mock.ExpectQuery("SELECT word_id").
		WithArgs(int64(123)).
		WillReturnError(fmt.Errorf("query error"))

	records, err := repo.List(context.Background(), 123)

	assert.Error(t, err)
	assert.Nil(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepo_Upsert(t *testing.T) {
	tests := []struct {
		name      string
		isCorrect bool
		delta     int
		mockError error
	}{
		{name: "correct answer", isCorrect: true, delta: 1},
		{name: "incorrect answer", isCorrect: false, delta: 0},
		{name: "database error", isCorrect: true, delta: 1, mockError: fmt.Errorf("db error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewProgressRepo(db)
			at := time.Now()

			exp := mock.ExpectExec("INSERT INTO user_progress .* ON CONFLICT \\(user_id, word_id\\)").
				WithArgs(int64(123), int64(10), tt.delta, at)
			if tt.mockError != nil {
				exp.WillReturnError(tt.mockError)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err = repo.Upsert(context.Background(), 123, 10, tt.isCorrect, at)

			if tt.mockError != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProgressRepo_DeleteAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewProgressRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_progress WHERE user_id = \\$1").
		WithArgs(int64(123)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	err = repo.DeleteAllForUser(context.Background(), 123)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepo_DeleteAllForUser_Rollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewProgressRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_progress").
		WithArgs(int64(123)).
		WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	err = repo.DeleteAllForUser(context.Background(), 123)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
