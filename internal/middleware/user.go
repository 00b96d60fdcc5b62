package middleware

import (
	"medterms/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// UserCreator stores the user row on first contact
type UserCreator interface {
	EnsureUserExists(userID int64) error
}

var _ UserCreator = (*service.UserService)(nil)

// EnsureUser creates the user record before any handler runs
func EnsureUser(users UserCreator, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}

			if err := users.EnsureUserExists(sender.ID); err != nil {
				logger.Error("Failed to ensure user exists in middleware",
					zap.Int64("user_id", sender.ID),
					zap.Error(err))
				return c.Send("Something went wrong. Please try again later.")
			}

			return next(c)
		}
	}
}
