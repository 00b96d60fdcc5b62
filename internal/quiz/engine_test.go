package quiz

import (
	"math/rand"
	"testing"

	"medterms/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedSource makes Intn(n) return 11 % n, so Fisher-Yates keeps decks of up to
// four cards in their original order.
type orderedSource struct{}

func (orderedSource) Int63() int64 { return 11 << 32 }
func (orderedSource) Seed(int64)   {}

type recordingDispatcher struct {
	events []AnswerEvent
}

func (r *recordingDispatcher) dispatch(ev AnswerEvent) {
	r.events = append(r.events, ev)
}

func newTerm(id int64, he string, categoryIDs ...int64) domain.Term {
	return domain.Term{
		ID:           id,
		Translations: domain.Translations{Primary: he, Secondary: he + "-en", Tertiary: he + "-ru"},
		CategoryIDs:  categoryIDs,
	}
}

func anatomy() domain.Category {
	return domain.Category{ID: 1, Slug: "anatomy"}
}

func scenarioPool() []domain.Term {
	return []domain.Term{
		newTerm(1, "לב", 1),
		newTerm(2, "עורק", 1),
		newTerm(3, "וריד", 1),
		newTerm(4, "עלה", 1),
	}
}

func TestEngine_Scenario(t *testing.T) {
	rec := &recordingDispatcher{}
	engine := NewEngine(orderedSource{}, rec.dispatch, nil)
	s := NewSession(42, domain.LangEnglish)

	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, StateActive, s.State())

	res, err := engine.Answer(s, "לב")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, s.Score())
	assert.Equal(t, map[int]string{0: "לב"}, s.History())

	require.NoError(t, engine.Next(s))
	assert.Equal(t, 1, s.Index())

	res, err = engine.Answer(s, "עלה")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "עורק", res.CorrectAnswer)
	assert.Equal(t, map[int]string{0: "לב", 1: "עלה"}, s.History())

	engine.Back(s)
	card, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, card.Index)
	assert.True(t, card.Answered)
	assert.Equal(t, "לב", card.Selected)
	assert.True(t, card.Correct)

	require.NoError(t, engine.Next(s))
	card, _ = s.Current()
	assert.True(t, card.Answered)
	assert.False(t, card.Correct)
	assert.Equal(t, "עלה", card.Selected)

	require.NoError(t, engine.Next(s))
	_, err = engine.Answer(s, "וריד")
	require.NoError(t, err)
	require.NoError(t, engine.Next(s))
	_, err = engine.Answer(s, "עלה")
	require.NoError(t, err)

	require.NoError(t, engine.Next(s))
	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 3, s.Score())

	require.Len(t, rec.events, 4)
	assert.Equal(t, int64(1), rec.events[0].TermID)
	assert.True(t, rec.events[0].Correct)
	assert.Equal(t, int64(2), rec.events[1].TermID)
	assert.False(t, rec.events[1].Correct)
	assert.Equal(t, int64(42), rec.events[1].UserID)
	assert.Equal(t, s.ID, rec.events[1].SessionID)
}

func TestEngine_StartBuildsPermutation(t *testing.T) {
	pool := []domain.Term{
		newTerm(1, "a", 1),
		newTerm(2, "b", 1),
		newTerm(3, "c", 2),
		newTerm(4, "d", 1, 2),
		newTerm(5, "e", 1),
		newTerm(6, "f", 1),
	}
	expected := domain.FilterByCategory(pool, 1)

	for seed := int64(0); seed < 20; seed++ {
		engine := NewEngine(rand.NewSource(seed), nil, nil)
		s := NewSession(1, domain.LangEnglish)

		require.NoError(t, engine.Start(s, anatomy(), pool))
		assert.Len(t, s.Deck(), len(expected))
		assert.ElementsMatch(t, expected, s.Deck())
	}
}

func TestEngine_StartIsReproducibleWithSeed(t *testing.T) {
	pool := scenarioPool()

	a := NewSession(1, domain.LangEnglish)
	b := NewSession(1, domain.LangEnglish)
	require.NoError(t, NewEngine(rand.NewSource(7), nil, nil).Start(a, anatomy(), pool))
	require.NoError(t, NewEngine(rand.NewSource(7), nil, nil).Start(b, anatomy(), pool))

	assert.Equal(t, a.Deck(), b.Deck())
	cardA, _ := a.Current()
	cardB, _ := b.Current()
	assert.Equal(t, cardA.Options, cardB.Options)
}

func TestEngine_StartEmptyCategory(t *testing.T) {
	engine := NewEngine(rand.NewSource(1), nil, nil)
	s := NewSession(1, domain.LangEnglish)

	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	id := s.ID
	_, err := engine.Answer(s, "לב")
	require.NoError(t, err)

	err = engine.Start(s, domain.Category{ID: 99, Slug: "empty"}, scenarioPool())
	assert.ErrorIs(t, err, domain.ErrEmptyCategory)
	assert.Equal(t, StateActive, s.State(), "failed start leaves the session untouched")
	assert.Equal(t, id, s.ID)
	assert.Equal(t, 1, s.Answered())
}

func TestEngine_StartSnapshotsPool(t *testing.T) {
	engine := NewEngine(rand.NewSource(3), nil, nil)
	s := NewSession(1, domain.LangEnglish)
	pool := scenarioPool()

	require.NoError(t, engine.Start(s, anatomy(), pool))
	deck := s.Deck()

	pool[0].Translations.Primary = "changed"
	assert.Equal(t, deck, s.Deck())
	for _, term := range s.pool {
		assert.NotEqual(t, "changed", term.CorrectAnswer())
	}
}

func TestEngine_GenerateOptions(t *testing.T) {
	card := newTerm(1, "לב", 1)

	tests := []struct {
		name          string
		pool          []domain.Term
		expectedCount int
	}{
		{
			name: "enough distractors",
			pool: []domain.Term{
				card, newTerm(2, "עורק"), newTerm(3, "וריד"), newTerm(4, "עלה"), newTerm(5, "ריאה"), newTerm(6, "כבד"),
			},
			expectedCount: 4,
		},
		{
			name:          "fewer than three alternatives",
			pool:          []domain.Term{card, newTerm(2, "עורק"), newTerm(3, "וריד")},
			expectedCount: 3,
		},
		{
			name:          "duplicate translations collapse",
			pool:          []domain.Term{card, newTerm(2, "עורק"), newTerm(3, "עורק"), newTerm(4, "לב")},
			expectedCount: 2,
		},
		{
			name:          "only the card itself",
			pool:          []domain.Term{card},
			expectedCount: 1,
		},
		{
			name:          "empty translations ignored",
			pool:          []domain.Term{card, newTerm(2, ""), newTerm(3, "וריד")},
			expectedCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(rand.NewSource(5), nil, nil)

			options := engine.GenerateOptions(card, tt.pool)

			assert.Len(t, options, tt.expectedCount)
			assert.Contains(t, options, "לב")

			seen := make(map[string]bool)
			for _, o := range options {
				assert.False(t, seen[o], "duplicate option %q", o)
				seen[o] = true
			}
		})
	}
}

func TestEngine_OptionsFrozenOnRevisit(t *testing.T) {
	pool := append(scenarioPool(), newTerm(5, "ריאה", 2), newTerm(6, "כבד", 2), newTerm(7, "כליה", 2))
	engine := NewEngine(rand.NewSource(11), nil, nil)
	s := NewSession(1, domain.LangEnglish)

	require.NoError(t, engine.Start(s, anatomy(), pool))
	first, _ := s.Current()
	_, err := engine.Answer(s, first.Options[0])
	require.NoError(t, err)

	require.NoError(t, engine.Next(s))
	engine.Back(s)

	again, _ := s.Current()
	assert.Equal(t, first.Options, again.Options)
	assert.Contains(t, again.Options, again.Selected)
}

func TestEngine_AnswerGuards(t *testing.T) {
	rec := &recordingDispatcher{}
	engine := NewEngine(rand.NewSource(1), rec.dispatch, nil)
	s := NewSession(1, domain.LangEnglish)

	_, err := engine.Answer(s, "x")
	assert.ErrorIs(t, err, domain.ErrNotActive)

	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	_, err = engine.Answer(s, "x")
	require.NoError(t, err)

	_, err = engine.Answer(s, "y")
	assert.ErrorIs(t, err, domain.ErrAlreadyAnswered)
	assert.Len(t, rec.events, 1, "exactly one side effect per accepted answer")
	assert.Equal(t, "x", s.History()[0])
}

func TestEngine_NextWithoutAnswerGeneratesFreshCard(t *testing.T) {
	engine := NewEngine(rand.NewSource(2), nil, nil)
	s := NewSession(1, domain.LangRussian)

	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	require.NoError(t, engine.Next(s))

	card, ok := s.Current()
	require.True(t, ok)
	assert.False(t, card.Answered)
	assert.Empty(t, card.Selected)
	assert.NotEmpty(t, card.Options)
	assert.Equal(t, card.Term.Translations.Tertiary, card.Prompt)
}

func TestEngine_BackAtFirstCardIsNoop(t *testing.T) {
	engine := NewEngine(rand.NewSource(2), nil, nil)
	s := NewSession(1, domain.LangEnglish)

	engine.Back(s)
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	engine.Back(s)
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, StateActive, s.State())
}

func TestEngine_NextOutsideActive(t *testing.T) {
	engine := NewEngine(rand.NewSource(2), nil, nil)
	s := NewSession(1, domain.LangEnglish)

	assert.ErrorIs(t, engine.Next(s), domain.ErrNotActive)

	require.NoError(t, engine.Start(s, anatomy(), []domain.Term{newTerm(1, "לב", 1)}))
	require.NoError(t, engine.Next(s))
	assert.Equal(t, StateComplete, s.State())
	assert.ErrorIs(t, engine.Next(s), domain.ErrNotActive)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestEngine_Reset(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(e *Engine, s *Session)
	}{
		{
			name:    "from idle",
			prepare: func(e *Engine, s *Session) {},
		},
		{
			name: "from active with answers",
			prepare: func(e *Engine, s *Session) {
				_ = e.Start(s, anatomy(), scenarioPool())
				_, _ = e.Answer(s, "לב")
				_ = e.Next(s)
			},
		},
		{
			name: "from complete",
			prepare: func(e *Engine, s *Session) {
				_ = e.Start(s, anatomy(), []domain.Term{newTerm(1, "לב", 1)})
				_, _ = e.Answer(s, "לב")
				_ = e.Next(s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(rand.NewSource(9), nil, nil)
			s := NewSession(1, domain.LangEnglish)
			tt.prepare(engine, s)

			engine.Reset(s)

			assert.Equal(t, StateIdle, s.State())
			assert.Empty(t, s.History())
			assert.Equal(t, 0, s.Score())
			assert.Equal(t, 0, s.Len())
			assert.Equal(t, 0, s.Index())
		})
	}
}

func TestEngine_ExampleStaleGuard(t *testing.T) {
	engine := NewEngine(orderedSource{}, nil, nil)
	s := NewSession(1, domain.LangEnglish)
	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))

	term, err := engine.RequestExample(s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), term.ID)
	assert.True(t, engine.AcceptExample(s, term.ID))
	assert.False(t, engine.AcceptExample(s, term.ID), "a response is accepted once")

	term, err = engine.RequestExample(s)
	require.NoError(t, err)
	require.NoError(t, engine.Next(s))
	assert.False(t, engine.AcceptExample(s, term.ID), "card moved on")

	term, err = engine.RequestExample(s)
	require.NoError(t, err)
	require.NoError(t, engine.Start(s, anatomy(), scenarioPool()))
	assert.False(t, engine.AcceptExample(s, term.ID), "new session discards pending request")

	term, err = engine.RequestExample(s)
	require.NoError(t, err)
	engine.Reset(s)
	assert.False(t, engine.AcceptExample(s, term.ID))

	_, err = engine.RequestExample(s)
	assert.ErrorIs(t, err, domain.ErrNotActive)
}
