// Package memory provides an in-process ProgressRepository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"medterms/internal/domain"
)

// ProgressRepo implements repository.ProgressRepository in memory
type ProgressRepo struct {
	mu      sync.Mutex
	records map[int64]map[int64]domain.WordProgress
}

// NewProgressRepo creates an empty repository
func NewProgressRepo() *ProgressRepo {
	return &ProgressRepo{records: make(map[int64]map[int64]domain.WordProgress)}
}

// List returns the user's records ordered by word id
func (r *ProgressRepo) List(ctx context.Context, userID int64) ([]domain.WordProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.WordProgress, 0, len(r.records[userID]))
	for _, p := range r.records[userID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WordID < out[j].WordID })
	return out, nil
}

// Upsert records one attempt
func (r *ProgressRepo) Upsert(ctx context.Context, userID, wordID int64, isCorrect bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	words, ok := r.records[userID]
	if !ok {
		words = make(map[int64]domain.WordProgress)
		r.records[userID] = words
	}

	p, ok := words[wordID]
	if !ok {
		p = domain.WordProgress{WordID: wordID}
	}
	words[wordID] = p.Record(isCorrect, at)
	return nil
}

// DeleteAllForUser drops every record of the user
func (r *ProgressRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}
