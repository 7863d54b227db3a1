package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRIDRoundTrip(t *testing.T) {
	ctx := WithRID(context.Background(), "42-7-9")
	if got := RIDFrom(ctx); got != "42-7-9" {
		t.Fatalf("RIDFrom = %q", got)
	}
	if got := RIDFrom(context.Background()); got != "" {
		t.Fatalf("RIDFrom on empty context = %q", got)
	}
}

func TestBuildRID(t *testing.T) {
	if got := BuildRID(42, 7, 9); got != "42-7-9" {
		t.Fatalf("BuildRID = %q", got)
	}
}
