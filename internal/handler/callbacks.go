package handler

import (
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
// Otherwise, acknowledge callback and return error so caller can send new message
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// Already edited by another callback: acknowledge and don't send a new message
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback, acknowledging",
			zap.Int64("user_id", userID),
			zap.String("callback_id", c.Callback().ID),
		)
		_ = c.Respond()
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("callback_id", c.Callback().ID),
	)
	if ackErr := c.Respond(); ackErr != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(ackErr))
	}
	return err
}

// reply edits the message for callbacks and sends a new one for commands
func (h *Handler) reply(c tele.Context, v view) error {
	if c.Callback() != nil {
		if err := c.Edit(v.text, v.markup); err != nil {
			if handleErr := h.handleEditError(err, c, c.Sender().ID); handleErr == nil {
				return nil
			}
			return c.Send(v.text, v.markup)
		}
		return c.Respond()
	}
	return c.Send(v.text, v.markup)
}

// respondError reports a failed action as a callback alert or a message
func (h *Handler) respondError(c tele.Context, err error) error {
	text := userMessage(err)
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

// parseCallback splits dynamic callback data into prefix and numeric argument
func parseCallback(data string) (prefix string, arg int64, ok bool) {
	for _, p := range []string{prefixCategory, prefixAnswer} {
		if !strings.HasPrefix(data, p) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(data, p), 10, 64)
		if err != nil {
			return "", 0, false
		}
		return p, n, true
	}
	return "", 0, false
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	// Clean data from all non-printable characters
	data := cleanCallbackData(callback.Data)
	h.logger.Debug("handleCallback: Processing callback",
		zap.String("data", data),
		zap.String("id", callback.ID),
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", c.Sender().ID),
	)

	// Static buttons whose Unique didn't come through
	key := callback.Unique
	if key == "" {
		key = data
	}
	switch key {
	case btnCategories.Unique:
		return h.handleCategories(c)
	case btnNext.Unique:
		return h.handleNext(c)
	case btnBack.Unique:
		return h.handleBack(c)
	case btnFinish.Unique:
		return h.handleFinish(c)
	case btnExample.Unique:
		return h.handleExample(c)
	case btnReset.Unique:
		return h.handleReset(c)
	case btnResetConfirm.Unique:
		return h.handleResetConfirm(c)
	case btnMainMenu.Unique:
		return h.handleStart(c)
	}

	// Dynamic buttons
	if prefix, arg, ok := parseCallback(data); ok {
		switch prefix {
		case prefixCategory:
			return h.handleCategorySelection(c, arg)
		case prefixAnswer:
			return h.handleAnswer(c, int(arg))
		}
	}

	h.logger.Warn("Unhandled callback in handleCallback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
	)
	return c.Respond()
}
