// Package logger configures the process-wide structured logger and the
// helpers used to carry request correlation through context.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// L is the base logger. It defaults to a text handler at INFO so packages
// can log before Init runs (tests, early startup failures).
var (
	L  = slog.New(slog.NewTextHandler(os.Stdout, nil))
	mu sync.Mutex
)

// Init configures the global logger from the logging config values.
// Format is "json" or "text"; level is debug|info|warn|error.
func Init(level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "kv":
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return fmt.Errorf("logger: unsupported format %q", format)
	}

	mu.Lock()
	defer mu.Unlock()
	L = slog.New(handler)
	slog.SetDefault(L)
	return nil
}

// ParseLevel maps a config string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", level)
}

// Component returns a logger scoped to a named component.
func Component(name string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return L.With("component", name)
}

type contextKey string

const ctxRID contextKey = "rid"

// BuildRID derives a correlation id from update, chat and user identifiers.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d-%d-%d", updateID, chatID, userID)
}

// WithRID attaches a correlation id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the correlation id from the context, if present.
func RIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRID).(string); ok {
		return v
	}
	return ""
}
