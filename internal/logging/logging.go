// Package logging builds the application's slog logger with optional
// rolling file output and runtime level adjustment.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string
	Format         string
	FilePath       string
	FileMaxSizeMB  int
	FileMaxFiles   int
	FileMaxAgeDays int
}

// Manager owns the logger's level var and file writer so the level can be
// changed at runtime and the file closed on shutdown.
type Manager struct {
	levelVar *slog.LevelVar
	closer   io.Closer
}

// New creates a Manager and a ready-to-use logger.
func New(cfg Config) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(ParseLevel(cfg.Level))

	writer, closer := buildWriter(cfg)

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Manager{levelVar: lvl, closer: closer}, slog.New(handler)
}

// SetLevel changes the logging level at runtime.
func (m *Manager) SetLevel(level string) {
	m.levelVar.Set(ParseLevel(level))
}

// Close releases the log file writer, if any.
func (m *Manager) Close() error {
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// ParseLevel converts a string to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildWriter creates the log output writer. With a file path configured,
// output goes to both stdout and a size-capped rolling file.
func buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxFiles := cfg.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = 3
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		MaxAge:     maxAge,
	}

	return io.MultiWriter(os.Stdout, lj), lj
}
