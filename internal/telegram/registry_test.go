package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/zihangg/kuberan-bot/internal/outbound"
)

func noop(tele.Context) error { return nil }

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("start", Command{Description: "x", Handler: noop}); err == nil {
		t.Error("missing slash prefix must be rejected")
	}
	if err := reg.Register("/start", Command{Description: "x"}); err == nil {
		t.Error("nil handler must be rejected")
	}
	if err := reg.Register("/start", Command{Description: "x", Handler: noop}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("/start", Command{Description: "y", Handler: noop}); err == nil {
		t.Error("duplicate registration must be rejected")
	}
}

func TestMenuCommandsOrderAndHidden(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"/expense", "/income", "/help"} {
		if err := reg.Register(name, Command{Description: name, Handler: noop}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	if err := reg.Register("/debug", Command{Description: "d", Handler: noop, Hidden: true}); err != nil {
		t.Fatalf("Register hidden: %v", err)
	}

	menu := reg.MenuCommands()
	if len(menu) != 3 {
		t.Fatalf("menu = %d entries, want 3", len(menu))
	}
	want := []string{"expense", "income", "help"}
	for i, cmd := range menu {
		if cmd.Text != want[i] {
			t.Errorf("menu[%d] = %q, want %q", i, cmd.Text, want[i])
		}
	}
}

func TestMarkupPreservesPayloads(t *testing.T) {
	rows := [][]outbound.Button{
		{{Text: "Food", Data: "cat:c1"}, {Text: "Next >", Data: "cat:page:1"}},
		{{Text: "Confirm", Data: "txn:confirm"}},
	}
	mk := markup(rows)
	if mk == nil {
		t.Fatal("markup = nil")
	}
	if len(mk.InlineKeyboard) != 2 || len(mk.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard shape = %v", mk.InlineKeyboard)
	}
	if mk.InlineKeyboard[0][1].Data != "cat:page:1" {
		t.Errorf("payload = %q, want cat:page:1", mk.InlineKeyboard[0][1].Data)
	}
	if markup(nil) != nil {
		t.Error("empty rows must produce nil markup")
	}
}
