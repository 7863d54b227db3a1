package telegram

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command couples a handler with the metadata shown in the Telegram
// command menu.
type Command struct {
	Description string
	Handler     tele.HandlerFunc
	// Hidden commands are handled but stay out of the menu.
	Hidden bool
}

// Registry collects commands and free handlers before they are bound to
// a bot, preserving registration order for the menu.
type Registry struct {
	commands map[string]Command
	order    []string

	handlers map[any]tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		handlers: make(map[any]tele.HandlerFunc),
	}
}

// Register adds a command. Names must carry the slash prefix and be
// unique.
func (r *Registry) Register(name string, cmd Command) error {
	if !strings.HasPrefix(name, "/") {
		return fmt.Errorf("telegram: command %q must start with '/'", name)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("telegram: command %q has no handler", name)
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("telegram: command %q already registered", name)
	}
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

// Handle binds a non-command endpoint such as tele.OnText or
// tele.OnCallback.
func (r *Registry) Handle(endpoint any, handler tele.HandlerFunc) {
	r.handlers[endpoint] = handler
}

// MenuCommands returns the visible commands in registration order.
func (r *Registry) MenuCommands() []tele.Command {
	var menu []tele.Command
	for _, name := range r.order {
		cmd := r.commands[name]
		if cmd.Hidden {
			continue
		}
		menu = append(menu, tele.Command{
			Text:        strings.TrimPrefix(name, "/"),
			Description: cmd.Description,
		})
	}
	return menu
}

// Apply binds everything to the bot and publishes the command menu.
func (r *Registry) Apply(bot *tele.Bot) error {
	for _, name := range r.order {
		bot.Handle(name, r.commands[name].Handler)
	}
	for endpoint, handler := range r.handlers {
		bot.Handle(endpoint, handler)
	}
	if menu := r.MenuCommands(); len(menu) > 0 {
		if err := bot.SetCommands(menu); err != nil {
			return fmt.Errorf("telegram: set commands: %w", err)
		}
	}
	return nil
}
