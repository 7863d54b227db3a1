package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zihangg/kuberan-bot/internal/commands"
	"github.com/zihangg/kuberan-bot/internal/config"
	"github.com/zihangg/kuberan-bot/internal/conversation"
	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/logger"
	"github.com/zihangg/kuberan-bot/internal/session"
	"github.com/zihangg/kuberan-bot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	log := logger.Component("main")

	gw := gateway.New(cfg.API.BaseURL, cfg.API.InternalSecret, gateway.Options{
		RequestTimeout:  time.Duration(cfg.API.RequestTimeoutSeconds) * time.Second,
		ActivityTimeout: time.Duration(cfg.API.ActivityTimeoutSeconds) * time.Second,
	})

	store := session.NewStore(session.StoreOptions{
		TransactionTimeout: time.Duration(cfg.Session.TransactionTimeoutSeconds) * time.Second,
		LinkTimeout:        time.Duration(cfg.Session.LinkTimeoutSeconds) * time.Second,
		SweepInterval:      time.Duration(cfg.Session.SweepIntervalSeconds) * time.Second,
	})
	defer store.Close()

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		return err
	}
	sender := telegram.NewSender(bot)

	engine, err := conversation.New(conversation.Options{
		Gateway: gw,
		Store:   store,
		Sender:  sender,
	})
	if err != nil {
		return err
	}

	handlers := &telegram.Handlers{
		Engine:  engine,
		Reports: commands.NewReporter(gw, sender),
	}
	reg := telegram.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", slog.String("api", cfg.API.BaseURL))
	return telegram.Run(ctx, cfg, bot, reg)
}
