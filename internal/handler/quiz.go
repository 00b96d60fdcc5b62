package handler

import (
	"context"
	"errors"
	"fmt"

	"medterms/internal/domain"
	"medterms/internal/quiz"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

var errBadOption = errors.New("option out of range")

// categoriesFor renders the category list with the user's mastery
func (h *Handler) categoriesFor(ctx context.Context, userID int64) (view, error) {
	summaries, err := h.stats.Overview(ctx, userID)
	if err != nil {
		return view{}, err
	}
	return categoriesView(summaries, h.language(userID)), nil
}

// startQuiz starts a session on the category. Caller holds the user lock.
func (h *Handler) startQuiz(ctx context.Context, userID, categoryID int64) (view, error) {
	category, err := h.catalog.Category(ctx, categoryID)
	if err != nil {
		return view{}, err
	}
	terms, err := h.catalog.Terms(ctx)
	if err != nil {
		return view{}, err
	}

	s := h.session(userID)
	if err := h.engine.Start(s, category, terms); err != nil {
		return view{}, err
	}

	h.logger.Info("Quiz started",
		zap.Int64("user_id", userID),
		zap.String("session_id", s.ID),
		zap.String("category", category.Slug),
		zap.Int("cards", s.Len()),
	)
	return h.currentView(ctx, s)
}

// currentView renders the current card or the completion screen
func (h *Handler) currentView(ctx context.Context, s *quiz.Session) (view, error) {
	category, err := h.catalog.Category(ctx, s.CategoryID)
	if err != nil {
		return view{}, err
	}

	if s.State() == quiz.StateComplete {
		return completeView(category, s.Score(), s.Len(), s.PromptLang), nil
	}

	card, ok := s.Current()
	if !ok {
		return view{}, domain.ErrNotActive
	}
	return cardView(category, card, s.PromptLang), nil
}

// answer selects option idx on the current card. Caller holds the user lock.
func (h *Handler) answer(ctx context.Context, userID int64, idx int) (view, quiz.AnswerResult, error) {
	s := h.session(userID)
	card, ok := s.Current()
	if !ok {
		return view{}, quiz.AnswerResult{}, domain.ErrNotActive
	}
	if idx < 0 || idx >= len(card.Options) {
		return view{}, quiz.AnswerResult{}, errBadOption
	}

	result, err := h.engine.Answer(s, card.Options[idx])
	if err != nil {
		return view{}, quiz.AnswerResult{}, err
	}

	v, err := h.currentView(ctx, s)
	return v, result, err
}

// NotifyWriteFailure tells the user an answer was not persisted.
// It is registered as an AnswerRecorder failure listener and never touches the session.
func (h *Handler) NotifyWriteFailure(ev quiz.AnswerEvent, err error) {
	if h.notifier == nil {
		return
	}
	if _, sendErr := h.notifier.Send(tele.ChatID(ev.UserID), writeFailedText); sendErr != nil {
		h.logger.Warn("Failed to notify user about unsaved answer",
			zap.Int64("user_id", ev.UserID),
			zap.Int64("word_id", ev.TermID),
			zap.NamedError("write_error", err),
			zap.Error(sendErr),
		)
	}
}

// next advances the session. Caller holds the user lock.
func (h *Handler) next(ctx context.Context, userID int64) (view, error) {
	s := h.session(userID)
	if err := h.engine.Next(s); err != nil {
		return view{}, err
	}
	return h.currentView(ctx, s)
}

// back returns to the previous card. Caller holds the user lock.
func (h *Handler) back(ctx context.Context, userID int64) (view, error) {
	s := h.session(userID)
	h.engine.Back(s)
	return h.currentView(ctx, s)
}

// finish abandons the session and shows the category list
func (h *Handler) finish(ctx context.Context, userID int64) (view, error) {
	h.endSession(userID)
	return h.categoriesFor(ctx, userID)
}

// example fetches a sentence for the current card. The user lock is only held
// around session access, so the user can keep navigating while it loads.
// ok is false when the card changed before the sentence arrived.
func (h *Handler) example(ctx context.Context, userID int64) (text string, ok bool, err error) {
	lock := h.userLock(userID)

	lock.Lock()
	s := h.session(userID)
	term, err := h.engine.RequestExample(s)
	lock.Unlock()
	if err != nil {
		return "", false, err
	}

	sentence := h.examples.Sentence(ctx, term)

	lock.Lock()
	defer lock.Unlock()
	if !h.engine.AcceptExample(s, term.ID) {
		h.logger.Debug("Dropped stale example", zap.Int64("user_id", userID), zap.Int64("term_id", term.ID))
		return "", false, nil
	}
	return fmt.Sprintf("💡 %s\n\n%s", term.Translations.Primary, sentence), true, nil
}

// resetProgress deletes the user's progress and abandons any session
func (h *Handler) resetProgress(ctx context.Context, userID int64) (view, error) {
	if err := h.progress.ForUser(userID).ResetForUser(ctx); err != nil {
		return view{}, err
	}
	h.endSession(userID)
	return h.categoriesFor(ctx, userID)
}

// userMessage maps flow errors to text shown to the user
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCategory):
		return "This category has no terms yet."
	case errors.Is(err, domain.ErrCategoryNotFound):
		return "Category not found."
	case errors.Is(err, domain.ErrNotActive):
		return "No active quiz. Pick a category."
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "Already answered."
	case errors.Is(err, errBadOption):
		return "Unknown option."
	case errors.Is(err, domain.ErrProgressReset):
		return "Could not reset progress. Nothing was changed."
	default:
		return errorText
	}
}

// locked runs fn under the user lock and replies with its view
func (h *Handler) locked(c tele.Context, action string, fn func(ctx context.Context, userID int64) (view, error)) error {
	userID := c.Sender().ID
	lock := h.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := h.requestContext()
	defer cancel()

	v, err := fn(ctx, userID)
	if err != nil {
		h.logger.Warn("Quiz action failed",
			zap.String("action", action),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}
	return h.reply(c, v)
}

// handleCategories shows categories with mastery bars
func (h *Handler) handleCategories(c tele.Context) error {
	return h.locked(c, "categories", h.categoriesFor)
}

// handleCategorySelection starts a quiz on the selected category
func (h *Handler) handleCategorySelection(c tele.Context, categoryID int64) error {
	return h.locked(c, "start", func(ctx context.Context, userID int64) (view, error) {
		return h.startQuiz(ctx, userID, categoryID)
	})
}

// handleAnswer records the selected option
func (h *Handler) handleAnswer(c tele.Context, idx int) error {
	return h.locked(c, "answer", func(ctx context.Context, userID int64) (view, error) {
		v, _, err := h.answer(ctx, userID, idx)
		return v, err
	})
}

// handleNext moves to the next card
func (h *Handler) handleNext(c tele.Context) error {
	return h.locked(c, "next", h.next)
}

// handleBack moves to the previous card
func (h *Handler) handleBack(c tele.Context) error {
	return h.locked(c, "back", h.back)
}

// handleFinish abandons the quiz
func (h *Handler) handleFinish(c tele.Context) error {
	return h.locked(c, "finish", h.finish)
}

// handleExample sends an example sentence for the current card
func (h *Handler) handleExample(c tele.Context) error {
	userID := c.Sender().ID

	if c.Callback() != nil {
		if err := c.Respond(&tele.CallbackResponse{Text: "Loading example..."}); err != nil {
			h.logger.Warn("Failed to acknowledge callback", zap.Error(err))
		}
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	text, ok, err := h.example(ctx, userID)
	if err != nil {
		return c.Send(userMessage(err))
	}
	if !ok {
		return nil
	}
	return c.Send(text)
}

// handleReset asks for confirmation before deleting progress
func (h *Handler) handleReset(c tele.Context) error {
	return h.reply(c, resetConfirmView())
}

// handleResetConfirm deletes all progress of the user
func (h *Handler) handleResetConfirm(c tele.Context) error {
	return h.locked(c, "reset", h.resetProgress)
}
