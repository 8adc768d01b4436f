package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ReturnsLogger(t *testing.T) {
	mgr, logger := New(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}
}

func TestManager_SetLevel(t *testing.T) {
	mgr, logger := New(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	mgr.SetLevel("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled after SetLevel")
	}

	mgr.SetLevel("error")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled when level is error")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	mgr, logger := New(Config{Level: "info", Format: "json", FilePath: path})

	logger.Info("hello")
	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain output")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
