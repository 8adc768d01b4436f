package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	changed := make(chan *Config, 1)
	go Watch(ctx, path, logger, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	time.Sleep(200 * time.Millisecond) // let watcher initialize

	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Server.Port != 9090 {
			t.Errorf("reloaded port = %d, want 9090", cfg.Server.Port)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	changed := make(chan *Config, 1)
	go Watch(ctx, path, logger, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	time.Sleep(200 * time.Millisecond)

	other := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(other, []byte("noise"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Error("unrelated file triggered a reload")
	case <-time.After(1 * time.Second):
	}
}
