package quiz

import "medterms/internal/domain"

// State of a quiz session
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateComplete State = "complete"
)

// Session is one pass through a category deck. It is owned by the caller;
// Engine methods are the only transitions.
type Session struct {
	ID         string
	UserID     int64
	CategoryID int64
	PromptLang domain.Lang

	state   State
	deck    []domain.Term
	pool    []domain.Term
	index   int
	history map[int]string
	// options are frozen per card index so a revisited card shows the same choices
	options map[int][]string

	pendingExample int64
}

// NewSession creates an idle session for the user
func NewSession(userID int64, lang domain.Lang) *Session {
	return &Session{
		UserID:     userID,
		PromptLang: lang,
		state:      StateIdle,
		history:    make(map[int]string),
		options:    make(map[int][]string),
	}
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Index returns the current card index
func (s *Session) Index() int {
	return s.index
}

// Len returns the deck size
func (s *Session) Len() int {
	return len(s.deck)
}

// Deck returns a copy of the deck in presentation order
func (s *Session) Deck() []domain.Term {
	return append([]domain.Term(nil), s.deck...)
}

// History returns a copy of the recorded answers by card index
func (s *Session) History() map[int]string {
	out := make(map[int]string, len(s.history))
	for i, a := range s.history {
		out[i] = a
	}
	return out
}

// Answered returns how many cards have an answer
func (s *Session) Answered() int {
	return len(s.history)
}

// Score counts correct answers in history
func (s *Session) Score() int {
	score := 0
	for i, selected := range s.history {
		if i < len(s.deck) && selected == s.deck[i].CorrectAnswer() {
			score++
		}
	}
	return score
}

// Card is the presentation view of the current card
type Card struct {
	Index    int
	Total    int
	Term     domain.Term
	Prompt   string
	Options  []string
	Selected string
	Answered bool
	Correct  bool
}

// Current returns the card at the current index. ok is false unless the session is active.
func (s *Session) Current() (card Card, ok bool) {
	if s.state != StateActive || s.index >= len(s.deck) {
		return Card{}, false
	}

	term := s.deck[s.index]
	selected, answered := s.history[s.index]

	return Card{
		Index:    s.index,
		Total:    len(s.deck),
		Term:     term,
		Prompt:   term.Translations.In(s.PromptLang),
		Options:  append([]string(nil), s.options[s.index]...),
		Selected: selected,
		Answered: answered,
		Correct:  answered && selected == term.CorrectAnswer(),
	}, true
}

func (s *Session) clear() {
	s.ID = ""
	s.CategoryID = 0
	s.state = StateIdle
	s.deck = nil
	s.pool = nil
	s.index = 0
	s.history = make(map[int]string)
	s.options = make(map[int][]string)
	s.pendingExample = 0
}
