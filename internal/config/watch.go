package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 500 * time.Millisecond

// Watch blocks until ctx is canceled, reloading the config file whenever it
// changes and invoking onChange with the new config. Editors replace files
// rather than writing in place, so the parent directory is watched and
// events are debounced. If fsnotify is unavailable, Watch logs and returns.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, config changes require restart", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		logger.Warn("watching config directory", "dir", dir, "error", err)
		return
	}

	base := filepath.Base(path)
	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
			}
			debounce.Reset(debounceDelay)
			pending = true
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("config watcher error", "error", err)
		case <-debounce.C:
			pending = false
			cfg, err := Load(path)
			if err != nil {
				logger.Error("reloading config", "path", path, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		}
	}
}
