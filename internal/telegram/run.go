package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/zihangg/kuberan-bot/internal/config"
	"github.com/zihangg/kuberan-bot/internal/logger"
)

// buildPoller selects webhook or long polling per the run mode.
func buildPoller(cfg *config.Config) tele.Poller {
	if cfg.Telegram.RunMode == config.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	timeout := cfg.Telegram.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeout) * time.Second}
}

// NewBot builds the telebot bot from configuration.
func NewBot(cfg *config.Config) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: &http.Client{Timeout: 60 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// Run installs middleware and routes, then polls until the context is
// cancelled.
func Run(ctx context.Context, cfg *config.Config, bot *tele.Bot, reg *Registry) error {
	log := logger.Component("telegram")

	bot.Use(Recover())
	bot.Use(Logging())

	if err := reg.Apply(bot); err != nil {
		return err
	}

	log.Info("bot starting",
		slog.String("mode", cfg.Telegram.RunMode),
		slog.String("username", bot.Me.Username),
	)

	done := make(chan struct{})
	go func() {
		bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		log.Info("bot stopped")
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-done:
		return nil
	}
}
