// Package quiz implements the learning session state machine.
package quiz

import (
	"fmt"
	"math/rand"
	"sync"

	"medterms/internal/domain"
	"medterms/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxDistractors = 3

// AnswerEvent is emitted once per accepted answer
type AnswerEvent struct {
	SessionID string
	UserID    int64
	TermID    int64
	Selected  string
	Correct   bool
}

// Dispatcher receives answer events. It must not block on I/O.
type Dispatcher func(AnswerEvent)

// AnswerResult is returned to the caller for immediate feedback
type AnswerResult struct {
	TermID        int64
	Correct       bool
	CorrectAnswer string
}

// Engine holds the random source and the progress dispatcher shared by all sessions
type Engine struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	dispatch Dispatcher
	logger   *zap.Logger
}

// NewEngine creates an engine. dispatch may be nil.
func NewEngine(src rand.Source, dispatch Dispatcher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rnd:      rand.New(src),
		dispatch: dispatch,
		logger:   logger,
	}
}

// Start builds a shuffled deck from the pool terms in category and activates the session.
// The session is left untouched when the category has no terms.
func (e *Engine) Start(s *Session, category domain.Category, pool []domain.Term) error {
	terms := domain.FilterByCategory(pool, category.ID)
	if len(terms) == 0 {
		return fmt.Errorf("start %q: %w", category.Slug, domain.ErrEmptyCategory)
	}

	e.mu.Lock()
	deck := shuffle(e.rnd, terms)
	first := e.generateOptions(deck[0], pool)
	e.mu.Unlock()

	s.clear()
	s.ID = uuid.NewString()
	s.CategoryID = category.ID
	s.deck = deck
	s.pool = append([]domain.Term(nil), pool...)
	s.options[0] = first
	s.state = StateActive

	e.logger.Debug("Session started",
		zap.String("session_id", s.ID),
		zap.Int64("user_id", s.UserID),
		zap.Int64("category_id", category.ID),
		zap.Int("deck_size", len(deck)),
	)
	return nil
}

// GenerateOptions returns the correct answer plus up to three distinct distractors, shuffled
func (e *Engine) GenerateOptions(card domain.Term, pool []domain.Term) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateOptions(card, pool)
}

func (e *Engine) generateOptions(card domain.Term, pool []domain.Term) []string {
	correct := card.CorrectAnswer()

	seen := map[string]struct{}{correct: {}}
	candidates := make([]string, 0, len(pool))
	for _, t := range pool {
		v := t.CorrectAnswer()
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		candidates = append(candidates, v)
	}

	n := maxDistractors
	if len(candidates) < n {
		n = len(candidates)
	}
	// partial Fisher-Yates: the first n slots become a uniform sample
	for i := 0; i < n; i++ {
		j := i + e.rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	options := make([]string, 0, n+1)
	options = append(options, candidates[:n]...)
	options = append(options, correct)
	return shuffle(e.rnd, options)
}

// Answer records the selection for the current card and dispatches one answer event
func (e *Engine) Answer(s *Session, selected string) (AnswerResult, error) {
	if s.state != StateActive {
		return AnswerResult{}, domain.ErrNotActive
	}
	if _, answered := s.history[s.index]; answered {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}

	card := s.deck[s.index]
	s.history[s.index] = selected
	correct := selected == card.CorrectAnswer()

	metrics.AnswersTotal.WithLabelValues(metrics.AnswerLabel(correct)).Inc()

	if e.dispatch != nil {
		e.dispatch(AnswerEvent{
			SessionID: s.ID,
			UserID:    s.UserID,
			TermID:    card.ID,
			Selected:  selected,
			Correct:   correct,
		})
	}

	return AnswerResult{
		TermID:        card.ID,
		Correct:       correct,
		CorrectAnswer: card.CorrectAnswer(),
	}, nil
}

// Next advances to the following card, or completes the session on the last one
func (e *Engine) Next(s *Session) error {
	if s.state != StateActive {
		return domain.ErrNotActive
	}
	s.pendingExample = 0

	if s.index >= len(s.deck)-1 {
		s.state = StateComplete
		e.logger.Debug("Session complete",
			zap.String("session_id", s.ID),
			zap.Int("score", s.Score()),
			zap.Int("deck_size", len(s.deck)),
		)
		return nil
	}

	s.index++
	e.ensureOptions(s)
	return nil
}

// Back returns to the previous card. No-op on the first card or outside an active session.
func (e *Engine) Back(s *Session) {
	if s.state != StateActive || s.index == 0 {
		return
	}
	s.pendingExample = 0
	s.index--
	e.ensureOptions(s)
}

// Reset returns the session to idle from any state
func (e *Engine) Reset(s *Session) {
	s.clear()
}

// RequestExample marks the current card as waiting for an example sentence
func (e *Engine) RequestExample(s *Session) (domain.Term, error) {
	if s.state != StateActive {
		return domain.Term{}, domain.ErrNotActive
	}
	term := s.deck[s.index]
	s.pendingExample = term.ID
	return term, nil
}

// AcceptExample reports whether an example for termID may still be shown.
// Responses for a card that is no longer current are rejected.
func (e *Engine) AcceptExample(s *Session, termID int64) bool {
	if s.state != StateActive || s.pendingExample == 0 || s.pendingExample != termID {
		return false
	}
	if s.deck[s.index].ID != termID {
		return false
	}
	s.pendingExample = 0
	return true
}

func (e *Engine) ensureOptions(s *Session) {
	if _, ok := s.options[s.index]; ok {
		return
	}
	e.mu.Lock()
	s.options[s.index] = e.generateOptions(s.deck[s.index], s.pool)
	e.mu.Unlock()
}

// shuffle returns a Fisher-Yates permutation of a copy of items
func shuffle[T any](rnd *rand.Rand, items []T) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
