package telegram

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/zihangg/kuberan-bot/internal/commands"
	"github.com/zihangg/kuberan-bot/internal/conversation"
	"github.com/zihangg/kuberan-bot/internal/logger"
	"github.com/zihangg/kuberan-bot/internal/outbound"
)

// Handlers wires the conversation engine and report commands into the
// bot's routes.
type Handlers struct {
	Engine  *conversation.Engine
	Reports *commands.Reporter
}

// eventFrom reduces a telebot update to the engine's Event.
func eventFrom(c tele.Context) conversation.Event {
	ev := conversation.Event{}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if sender := c.Sender(); sender != nil {
		ev.UserID = sender.ID
		ev.Username = sender.Username
		ev.FirstName = sender.FirstName
	}
	if cb := c.Callback(); cb != nil {
		// Telebot prefixes unique-handler payloads with \f; our buttons
		// carry raw data, but strip it defensively.
		ev.Callback = strings.TrimPrefix(cb.Data, "\f")
		if cb.Message != nil {
			ev.Origin = outbound.MessageRef{
				ChatID:    cb.Message.Chat.ID,
				MessageID: cb.Message.ID,
			}
		}
	} else {
		ev.Text = c.Text()
	}
	return ev
}

// ctxFrom builds the per-update context carrying the correlation id set
// by the logging middleware.
func ctxFrom(c tele.Context) context.Context {
	ctx := context.Background()
	if rid, ok := c.Get("rid").(string); ok && rid != "" {
		ctx = logger.WithRID(ctx, rid)
	}
	return ctx
}

func payload(c tele.Context) string {
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

func ids(c tele.Context) (chatID, userID int64) {
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if sender := c.Sender(); sender != nil {
		userID = sender.ID
	}
	return chatID, userID
}

// Register binds every route to the registry.
func (h *Handlers) Register(reg *Registry) error {
	type entry struct {
		name string
		cmd  Command
	}
	cmds := []entry{
		{"/start", Command{Description: "Get started", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			firstName := ""
			if sender := c.Sender(); sender != nil {
				firstName = sender.FirstName
			}
			return h.Reports.Start(ctxFrom(c), chatID, userID, firstName)
		}}},
		{"/link", Command{Description: "Link your Kuberan account", Handler: func(c tele.Context) error {
			return h.Engine.StartLink(ctxFrom(c), eventFrom(c), payload(c))
		}}},
		{"/expense", Command{Description: "Record an expense", Handler: func(c tele.Context) error {
			return h.Engine.StartExpense(ctxFrom(c), eventFrom(c), payload(c))
		}}},
		{"/income", Command{Description: "Record income", Handler: func(c tele.Context) error {
			return h.Engine.StartIncome(ctxFrom(c), eventFrom(c), payload(c))
		}}},
		{"/balance", Command{Description: "View account balances", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			return h.Reports.Balance(ctxFrom(c), chatID, userID)
		}}},
		{"/accounts", Command{Description: "List all your accounts", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			return h.Reports.Accounts(ctxFrom(c), chatID, userID)
		}}},
		{"/categories", Command{Description: "Browse your categories", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			return h.Reports.Categories(ctxFrom(c), chatID, userID)
		}}},
		{"/budgets", Command{Description: "View budget status", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			return h.Reports.Budgets(ctxFrom(c), chatID, userID)
		}}},
		{"/summary", Command{Description: "Monthly income/expense summary", Handler: func(c tele.Context) error {
			chatID, userID := ids(c)
			return h.Reports.Summary(ctxFrom(c), chatID, userID, payload(c))
		}}},
		{"/cancel", Command{Description: "Cancel the current operation", Handler: func(c tele.Context) error {
			return h.Engine.Cancel(ctxFrom(c), eventFrom(c))
		}}},
		{"/clear", Command{Description: "Push old messages out of view", Handler: func(c tele.Context) error {
			chatID, _ := ids(c)
			return h.Reports.Clear(ctxFrom(c), chatID)
		}}},
		{"/help", Command{Description: "Show help", Handler: func(c tele.Context) error {
			chatID, _ := ids(c)
			return h.Reports.Help(ctxFrom(c), chatID)
		}}},
	}
	for _, e := range cmds {
		if err := reg.Register(e.name, e.cmd); err != nil {
			return err
		}
	}

	reg.Handle(tele.OnText, func(c tele.Context) error {
		return h.Engine.HandleText(ctxFrom(c), eventFrom(c))
	})
	reg.Handle(tele.OnCallback, func(c tele.Context) error {
		// Acknowledge first so the button stops spinning even when the
		// handler takes a while.
		_ = c.Respond()
		return h.Engine.HandleCallback(ctxFrom(c), eventFrom(c))
	})
	return nil
}
