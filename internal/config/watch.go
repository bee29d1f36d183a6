package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDelay coalesces the burst of events editors produce for one save.
const ReloadDelay = 150 * time.Millisecond

// Watch calls onChange with the freshly loaded config each time the file at
// path is written or replaced, until ctx is done. The parent directory is
// watched so editors that save by rename are seen. A file that fails to load
// or validate is logged and skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				pending = time.After(ReloadDelay)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config: watcher error", "error", err)
			case <-pending:
				pending = nil
				cfg, err := Load(abs)
				if err != nil {
					slog.Warn("config: ignoring changed settings file", "path", abs, "error", err)
					continue
				}
				slog.Info("config: settings changed", "path", abs)
				onChange(cfg)
			}
		}
	}()
	return nil
}
