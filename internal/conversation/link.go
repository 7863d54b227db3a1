package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zihangg/kuberan-bot/internal/choices"
	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/outbound"
	"github.com/zihangg/kuberan-bot/internal/session"
)

// StartLink begins the linking flow with the code from /link <code>.
func (e *Engine) StartLink(ctx context.Context, ev Event, args string) error {
	code := strings.TrimSpace(args)
	if code == "" {
		_, err := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgLinkUsage})
		return err
	}

	user, err := e.gw.Resolve(ctx, ev.UserID)
	switch {
	case err == nil:
		text := fmt.Sprintf("This Telegram account is already linked to %s.\nUnlink it in the web app first if you want to relink.", user.Email)
		_, sendErr := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: text})
		return sendErr
	case errors.Is(err, gateway.ErrNotLinked):
		// expected; proceed
	default:
		e.log.Error("resolve failed", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		_, sendErr := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgBackend})
		return sendErr
	}

	e.store.Begin(&session.Session{
		Key:   ev.Key(),
		Flow:  session.FlowLink,
		State: session.StateLinkCurrencyChoice,
		Link: &session.LinkMemory{
			LinkCode:  code,
			Username:  ev.Username,
			FirstName: ev.FirstName,
		},
	})

	return e.store.Do(ev.Key(), session.FamilyLink, func(sess *session.Session) error {
		fc := &flowCtx{e: e, ctx: ctx, ev: ev, sess: sess}
		return fc.prompt(outbound.Message{
			Text:     linkWelcome(ev.FirstName),
			Keyboard: choices.LinkCurrencyKeyboard(e.linkCurrency),
		})
	})
}

func (e *Engine) onLinkCurrencyButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSLink {
		return nil
	}
	if value == choices.ValueOther {
		fc.sess.State = session.StateLinkCustomCurrency
		return fc.prompt(outbound.Message{Text: msgCurrencyCode, Markdown: true})
	}
	return e.completeLink(fc, value)
}

func (e *Engine) onLinkCurrencyCode(fc *flowCtx, text string) error {
	code, ok := validCurrency(text)
	if !ok {
		return fc.prompt(outbound.Message{Text: msgCurrencyInvalid, Markdown: true})
	}
	return e.completeLink(fc, code)
}

// completeLink finishes linking with the chosen default currency. The
// session ends regardless of outcome; a rejected code needs a fresh one
// anyway, and a backend failure should not trap the user in the flow.
// The outcome replaces the currency prompt so its keyboard retires.
func (e *Engine) completeLink(fc *flowCtx, currency string) error {
	link := fc.sess.Link
	err := e.gw.CompleteLink(fc.ctx, gateway.CompleteLinkRequest{
		LinkCode:          link.LinkCode,
		TelegramUserID:    fc.ev.UserID,
		TelegramUsername:  link.Username,
		TelegramFirstName: link.FirstName,
		DefaultCurrency:   currency,
	})
	fc.sess.End()

	switch {
	case err == nil:
		return fc.prompt(outbound.Message{Text: msgLinkDone})
	case errors.Is(err, gateway.ErrLinkCodeInvalid):
		return fc.prompt(outbound.Message{Text: msgLinkInvalidCode})
	default:
		e.log.Error("complete link failed", slog.Any("error", err))
		return fc.prompt(outbound.Message{Text: msgBackend})
	}
}
