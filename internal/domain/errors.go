package domain

import "errors"

var (
	// ErrEmptyCategory is returned when a session is started on a category without terms
	ErrEmptyCategory = errors.New("category has no terms")
	// ErrCacheLoad wraps failures of term or category loaders
	ErrCacheLoad = errors.New("cache load failed")
	// ErrProgressWrite wraps failures to persist an answer
	ErrProgressWrite = errors.New("progress write failed")
	// ErrProgressReset wraps failures to delete a user's progress
	ErrProgressReset = errors.New("progress reset failed")

	ErrNotActive       = errors.New("session is not active")
	ErrAlreadyAnswered = errors.New("card already answered")
)

// ErrCategoryNotFound is returned when a category id is not in the catalog
var ErrCategoryNotFound = errors.New("category not found")
