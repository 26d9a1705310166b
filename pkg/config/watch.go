package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads filename whenever it changes on disk. Each reload decodes
// into a fresh value from newTarget (so omitted keys keep their defaults)
// and passes it to onChange. Files that fail to load or validate are
// logged and skipped; the previous configuration stays in effect.
//
// The parent directory is watched so that atomic replaces by editors are
// seen. Watch blocks until ctx is cancelled.
func Watch[T any](ctx context.Context, filename string, newTarget func() *T, onChange func(*T)) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", filename, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			target := newTarget()
			if err := Load(abs, target); err != nil {
				slog.Warn("config: reload failed", slog.String("file", abs), slog.String("error", err.Error()))
				continue
			}
			slog.Info("config: reloaded", slog.String("file", abs))
			onChange(target)
		}
	}
}
