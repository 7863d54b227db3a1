// Package conversation implements the guided-flow state machine behind
// the transaction and linking commands. It is transport-neutral: inbound
// updates arrive as Events, outbound actions go through outbound.Sender.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zihangg/kuberan-bot/internal/choices"
	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/logger"
	"github.com/zihangg/kuberan-bot/internal/outbound"
	"github.com/zihangg/kuberan-bot/internal/session"
)

// Event is one inbound update, already reduced to the fields the engine
// cares about.
type Event struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string

	// Text carries the message text for text events, or the command
	// arguments for command entry points.
	Text string

	// Callback carries the raw button payload for callback events.
	Callback string

	// Origin is the message a callback button was attached to; zero for
	// text events.
	Origin outbound.MessageRef
}

// Key returns the session key of the event.
func (ev Event) Key() session.Key {
	return session.Key{ChatID: ev.ChatID, UserID: ev.UserID}
}

type stateHandlers struct {
	text   func(fc *flowCtx, text string) error
	button func(fc *flowCtx, ns, value string) error
}

// Engine drives all live conversations. It is safe for concurrent use;
// the session store serializes events per (chat, user, family).
type Engine struct {
	gw    gateway.API
	store *session.Store
	send  outbound.Sender
	log   *slog.Logger

	// linkCurrency is the currency suggested during linking.
	linkCurrency string

	table map[session.State]stateHandlers
}

// Options configures an Engine.
type Options struct {
	Gateway gateway.API
	Store   *session.Store
	Sender  outbound.Sender
	// LinkCurrency is the default offered during linking; "MYR" when
	// empty.
	LinkCurrency string
}

// New builds an Engine and validates that the transition table covers
// every conversation state.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		gw:           opts.Gateway,
		store:        opts.Store,
		send:         opts.Sender,
		log:          logger.Component("conversation"),
		linkCurrency: opts.LinkCurrency,
	}
	if e.linkCurrency == "" {
		e.linkCurrency = "MYR"
	}

	e.table = map[session.State]stateHandlers{
		session.StateAwaitingAmount:    {text: e.onAmountText},
		session.StateAwaitingCategory:  {button: e.onCategoryButton},
		session.StateAwaitingAccount:   {button: e.onAccountButton},
		session.StateConfirm:           {button: e.onConfirmButton},
		session.StateNewCategoryName:   {text: e.onNewCategoryName},
		session.StateNewCategoryParent: {button: e.onNewCategoryParent},
		session.StateNewCategoryIcon:   {text: e.onNewCategoryIcon, button: e.onNewCategoryIconButton},
		session.StateNewAccountName:    {text: e.onNewAccountName},
		session.StateCurrencyChoice:    {button: e.onCurrencyButton},
		session.StateNewCurrencyCode:   {text: e.onCurrencyCode},

		session.StateLinkCurrencyChoice: {button: e.onLinkCurrencyButton},
		session.StateLinkCustomCurrency: {text: e.onLinkCurrencyCode},
	}

	for _, st := range allStates {
		h, ok := e.table[st]
		if !ok {
			return nil, fmt.Errorf("conversation: state %q has no handlers", st)
		}
		if h.text == nil && h.button == nil {
			return nil, fmt.Errorf("conversation: state %q handlers are empty", st)
		}
	}
	return e, nil
}

var allStates = []session.State{
	session.StateAwaitingAmount,
	session.StateAwaitingCategory,
	session.StateAwaitingAccount,
	session.StateConfirm,
	session.StateNewCategoryName,
	session.StateNewCategoryParent,
	session.StateNewCategoryIcon,
	session.StateNewAccountName,
	session.StateCurrencyChoice,
	session.StateNewCurrencyCode,
	session.StateLinkCurrencyChoice,
	session.StateLinkCustomCurrency,
}

// familyOf maps a callback namespace to the session family that owns it.
func familyOf(ns string) (session.Family, bool) {
	switch ns {
	case choices.NSCategory, choices.NSAccount, choices.NSCurrency,
		choices.NSParent, choices.NSIcon, choices.NSConfirm:
		return session.FamilyTransaction, true
	case choices.NSLink:
		return session.FamilyLink, true
	}
	return 0, false
}

// flowCtx bundles everything a state handler needs for one event.
type flowCtx struct {
	e    *Engine
	ctx  context.Context
	ev   Event
	sess *session.Session
}

// reply sends a plain standalone message.
func (fc *flowCtx) reply(text string) error {
	_, err := fc.e.send.Send(fc.ctx, fc.ev.ChatID, outbound.Message{Text: text})
	return err
}

// promptRef returns the flow's prompt handle, nil when the session has
// no working memory yet.
func (fc *flowCtx) promptRef() *outbound.MessageRef {
	switch {
	case fc.sess.Txn != nil:
		return &fc.sess.Txn.Prompt
	case fc.sess.Link != nil:
		return &fc.sess.Link.Prompt
	}
	return nil
}

// prompt shows a flow prompt, editing the previous prompt in place when
// one exists, and records the handle for the next edit.
func (fc *flowCtx) prompt(msg outbound.Message) error {
	ref := fc.promptRef()
	if ref != nil && !ref.Zero() {
		if err := fc.e.send.Edit(fc.ctx, *ref, msg); err == nil {
			return nil
		}
		// Editing can fail when the content is unchanged or the message
		// is too old; fall through to a fresh send.
	}
	sent, err := fc.e.send.Send(fc.ctx, fc.ev.ChatID, msg)
	if err != nil {
		return err
	}
	if ref != nil {
		*ref = sent
	}
	return nil
}

// HandleText dispatches free text to the live session of the chat. The
// transaction family wins when both families await text.
func (e *Engine) HandleText(ctx context.Context, ev Event) error {
	key := ev.Key()
	for _, family := range []session.Family{session.FamilyTransaction, session.FamilyLink} {
		handled := false
		err := e.store.Do(key, family, func(sess *session.Session) error {
			fc := &flowCtx{e: e, ctx: ctx, ev: ev, sess: sess}
			h := e.table[sess.State]
			if h.text == nil {
				return nil // this flow is waiting on a button press
			}
			handled = true
			return h.text(fc, strings.TrimSpace(ev.Text))
		})
		if errors.Is(err, session.ErrNotFound) {
			continue
		}
		if err != nil || handled {
			return err
		}
	}
	// Free text outside any flow is not the engine's business.
	return nil
}

// HandleCallback dispatches a button press. A press on a prompt whose
// session is gone gets the expiry notice in place of the stale keyboard.
func (e *Engine) HandleCallback(ctx context.Context, ev Event) error {
	ns, value, ok := strings.Cut(ev.Callback, ":")
	if !ok {
		e.log.Warn("malformed callback payload", slog.String("payload", ev.Callback))
		return nil
	}
	family, known := familyOf(ns)
	if !known {
		e.log.Warn("unknown callback namespace", slog.String("namespace", ns))
		return nil
	}

	err := e.store.Do(ev.Key(), family, func(sess *session.Session) error {
		fc := &flowCtx{e: e, ctx: ctx, ev: ev, sess: sess}
		h := e.table[sess.State]
		if h.button == nil {
			return nil
		}
		return h.button(fc, ns, value)
	})
	if errors.Is(err, session.ErrNotFound) {
		return e.expireMessage(ctx, ev)
	}
	return err
}

// expireMessage replaces a stale prompt with the expiry notice.
func (e *Engine) expireMessage(ctx context.Context, ev Event) error {
	if !ev.Origin.Zero() {
		if err := e.send.Edit(ctx, ev.Origin, outbound.Message{Text: msgExpired}); err == nil {
			return nil
		}
	}
	_, err := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgExpired})
	return err
}

// Cancel ends the chat's live sessions, if any. Idempotent.
func (e *Engine) Cancel(ctx context.Context, ev Event) error {
	key := ev.Key()
	ended := false
	for _, family := range []session.Family{session.FamilyTransaction, session.FamilyLink} {
		if err := e.store.Do(key, family, func(sess *session.Session) error {
			sess.End()
			return nil
		}); err == nil {
			ended = true
		}
	}
	text := "Nothing to cancel."
	if ended {
		text = msgCancelled
	}
	_, err := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: text})
	return err
}

// resolve maps the sender to a backend user and reports link problems
// to the chat. A nil user with a nil error means the reply was already
// sent.
func (e *Engine) resolve(ctx context.Context, ev Event) (*gateway.ResolvedUser, error) {
	user, err := e.gw.Resolve(ctx, ev.UserID)
	if err == nil {
		return user, nil
	}
	msg := msgBackend
	if errors.Is(err, gateway.ErrNotLinked) {
		msg = msgNotLinked
	} else {
		e.log.Error("resolve failed", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
	}
	_, sendErr := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msg})
	return nil, sendErr
}

// recordActivity updates the user's last-seen marker without blocking
// the flow.
func (e *Engine) recordActivity(userID int64) {
	go func() {
		if err := e.gw.RecordActivity(context.Background(), userID); err != nil {
			e.log.Debug("record activity failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}()
}
