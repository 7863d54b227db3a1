package telegram

import (
	"log/slog"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/zihangg/kuberan-bot/internal/logger"
)

// Recover catches panics in handlers so a bad update cannot take the
// bot down.
func Recover() tele.MiddlewareFunc {
	log := logger.Component("telegram")
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered",
						slog.Any("err", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			return next(c)
		}
	}
}

// Logging emits one line per update with its correlation id and outcome.
func Logging() tele.MiddlewareFunc {
	log := logger.Component("telegram")
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			upd := c.Update()

			var chatID, userID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}
			if sender := c.Sender(); sender != nil {
				userID = sender.ID
			}
			rid := logger.BuildRID(upd.ID, chatID, userID)
			c.Set("rid", rid)

			kind := "message"
			if upd.Callback != nil {
				kind = "callback"
			}

			err := next(c)

			attrs := []any{
				slog.String("rid", rid),
				slog.String("kind", kind),
				slog.Int64("chat_id", chatID),
				slog.Int64("user_id", userID),
				slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
			}
			if err != nil {
				log.Error("update failed", append(attrs, slog.Any("error", err))...)
			} else {
				log.Debug("update handled", attrs...)
			}
			return err
		}
	}
}
