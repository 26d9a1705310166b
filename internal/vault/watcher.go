package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/linkdex/internal/checksum"
)

// RenameWindow is how long a Rename of an old path waits for the Create of
// its new path before it is treated as a deletion.
const RenameWindow = 200 * time.Millisecond

type pendingRename struct {
	fingerprint string
	size        int64
	at          time.Time
}

// Watch starts an fsnotify watcher on root, the directory backing store,
// and feeds file changes into the store until ctx is cancelled.
//
// New directories created at runtime are added to the watch list. A
// Rename on a tracked note is held for RenameWindow and paired with a
// following Create of identical content, so the note keeps its identity.
// Unpaired renames become deletions, followed by a reconciliation pass.
func Watch(ctx context.Context, store *Store, root string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := addDirsRecursive(w, store, abs, abs); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", abs))

	pending := make(map[string]pendingRename)

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(RenameWindow)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(RenameWindow)
		}
	}

	rel := func(p string) (string, bool) {
		r, err := filepath.Rel(abs, p)
		if err != nil || r == "." || strings.HasPrefix(r, "..") {
			return "", false
		}
		return filepath.ToSlash(r), true
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			for old := range pending {
				logger.Debug("watcher: unpaired rename", slog.String("path", old))
				store.Remove(old)
				delete(pending, old)
			}
			if err := store.Reconcile(); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path, ok := rel(ev.Name)
			if !ok || store.fs.Ignored(path) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, store, abs, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					// Files may have landed before the watch was added.
					scheduleReconcile()
					continue
				}
			}

			if !store.fs.IsNote(path) {
				// A renamed directory takes its notes with it.
				if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 && filepath.Ext(path) == "" {
					scheduleReconcile()
				}
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				if old, paired := pairRename(store, pending, path); paired {
					delete(pending, old)
					logger.Debug("watcher: renamed", slog.String("from", old), slog.String("to", path))
					if err := store.Rename(old, path); err != nil {
						logger.Warn("watcher: rename failed", slog.String("path", path), slog.String("error", err.Error()))
					}
					continue
				}
				refresh(store, logger, path)

			case ev.Op&fsnotify.Write != 0:
				refresh(store, logger, path)

			case ev.Op&fsnotify.Remove != 0:
				delete(pending, path)
				store.Remove(path)
				logger.Debug("watcher: deleted", slog.String("path", path))

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives
				// as a separate Create if it stays inside the vault.
				f, known := store.File(path)
				if !known {
					continue
				}
				pending[path] = pendingRename{fingerprint: f.Fingerprint(), size: f.Size(), at: time.Now()}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func refresh(store *Store, logger *slog.Logger, path string) {
	if err := store.Refresh(path); err != nil {
		logger.Warn("watcher: refresh failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", path))
}

// pairRename finds the pending rename whose content matches the note just
// created at path. Notes whose content was never read are matched on size.
func pairRename(store *Store, pending map[string]pendingRename, path string) (string, bool) {
	if len(pending) == 0 {
		return "", false
	}
	if _, known := store.File(path); known {
		return "", false
	}
	data, err := store.Read(path)
	if err != nil {
		return "", false
	}
	fp := checksum.FastString(data)
	size := int64(len(data))

	var best string
	var bestAt time.Time
	for old, p := range pending {
		match := p.fingerprint == fp || (p.fingerprint == "" && p.size == size)
		if !match || time.Since(p.at) > 2*RenameWindow {
			continue
		}
		if best == "" || p.at.After(bestAt) {
			best, bestAt = old, p.at
		}
	}
	return best, best != ""
}

// addDirsRecursive adds dir and all its non-ignored subdirectories to the
// watcher. vaultRoot anchors the ignore globs.
func addDirsRecursive(w *fsnotify.Watcher, store *Store, vaultRoot, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if r, relErr := filepath.Rel(vaultRoot, path); relErr == nil && r != "." && store.fs.Ignored(filepath.ToSlash(r)) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
