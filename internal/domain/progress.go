package domain

import "time"

// WordProgress holds a user's attempt counters for one word
type WordProgress struct {
	WordID       int64
	CorrectCount int
	AttemptCount int
	LastSeenAt   time.Time
}

// Mastered reports whether the word has been answered correctly at least once
func (p WordProgress) Mastered() bool {
	return p.CorrectCount > 0
}

// Record returns the progress after one more attempt
func (p WordProgress) Record(isCorrect bool, at time.Time) WordProgress {
	p.AttemptCount++
	if isCorrect {
		p.CorrectCount++
	}
	p.LastSeenAt = at
	return p
}
