// Package telegram adapts the transport-neutral bot core to telebot:
// outbound delivery, middleware, command registry and the run loop.
package telegram

import (
	"bytes"
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/zihangg/kuberan-bot/internal/outbound"
)

// Sender delivers outbound actions through a telebot bot.
type Sender struct {
	bot *tele.Bot
}

// NewSender wraps a bot as an outbound.Sender.
func NewSender(bot *tele.Bot) *Sender {
	return &Sender{bot: bot}
}

// markup converts button rows into an inline keyboard. Payloads go on
// the wire verbatim.
func markup(rows [][]outbound.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		keyboard[i] = make([]tele.InlineButton, len(row))
		for j, b := range row {
			keyboard[i][j] = tele.InlineButton{Text: b.Text, Data: b.Data}
		}
	}
	return &tele.ReplyMarkup{InlineKeyboard: keyboard}
}

func sendOptions(msg outbound.Message) []interface{} {
	var opts []interface{}
	if mk := markup(msg.Keyboard); mk != nil {
		opts = append(opts, mk)
	}
	if msg.Markdown {
		opts = append(opts, tele.ModeMarkdown)
	}
	return opts
}

// Send delivers a new message and returns its handle.
func (s *Sender) Send(_ context.Context, chatID int64, msg outbound.Message) (outbound.MessageRef, error) {
	m, err := s.bot.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg)...)
	if err != nil {
		return outbound.MessageRef{}, err
	}
	return outbound.MessageRef{ChatID: chatID, MessageID: m.ID}, nil
}

// Edit replaces the text and keyboard of an existing message. Sending no
// keyboard drops any previous one.
func (s *Sender) Edit(_ context.Context, ref outbound.MessageRef, msg outbound.Message) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
	_, err := s.bot.Edit(stored, msg.Text, sendOptions(msg)...)
	return err
}

// SendPhoto delivers a PNG with an optional caption.
func (s *Sender) SendPhoto(_ context.Context, chatID int64, png []byte, caption string) error {
	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(png)),
		Caption: caption,
	}
	_, err := s.bot.Send(tele.ChatID(chatID), photo)
	return err
}
