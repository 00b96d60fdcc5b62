package handler

import (
	"strings"

	"medterms/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const searchLimit = 10

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	return h.reply(c, view{text: mainMenuText, markup: mainMenuMarkup()})
}

// handleSearch handles /search <text>
func (h *Handler) handleSearch(c tele.Context) error {
	query := strings.TrimSpace(c.Message().Payload)
	if query == "" {
		return c.Send("Usage: /search <term in Hebrew, English or Russian>")
	}
	return h.search(c, query)
}

// handleText treats plain messages as search queries
func (h *Handler) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())

	// Ignore commands (starting with /)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}
	return h.search(c, text)
}

func (h *Handler) search(c tele.Context, query string) error {
	ctx, cancel := h.requestContext()
	defer cancel()

	terms, err := h.catalog.Search(ctx, query, 0, searchLimit)
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		return c.Send(errorText)
	}
	return c.Send(searchText(query, terms))
}

// handleLang handles /lang en|ru
func (h *Handler) handleLang(c tele.Context) error {
	userID := c.Sender().ID
	arg := strings.ToLower(strings.TrimSpace(c.Message().Payload))

	if arg != string(domain.LangEnglish) && arg != string(domain.LangRussian) {
		return c.Send("Usage: /lang en or /lang ru")
	}
	lang := domain.ParseLang(arg)

	if err := h.setLanguage(userID, lang); err != nil {
		h.logger.Error("Failed to set language", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send(errorText)
	}
	return c.Send("✅ Prompts will be shown in " + strings.ToUpper(string(lang)))
}

// setLanguage stores the language and applies it to the running session
func (h *Handler) setLanguage(userID int64, lang domain.Lang) error {
	if err := h.users.SetLanguage(userID, lang); err != nil {
		return err
	}

	lock := h.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	h.sessionMux.RLock()
	s, exists := h.sessions[userID]
	h.sessionMux.RUnlock()
	if exists {
		s.PromptLang = lang
	}
	return nil
}
