// Package vault is the host document store of linkdex: it tracks the
// Markdown notes of a directory tree, hands out stable *File handles,
// serves their parsed metadata and notifies subscribers of changes.
package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/checksum"
	"github.com/starford/linkdex/internal/metacache"
	"github.com/starford/linkdex/internal/models"
	"github.com/starford/linkdex/internal/parser"
	"github.com/starford/linkdex/internal/storage"
	"github.com/starford/linkdex/internal/urlindex"
)

// Store implements urlindex.Store over a storage.Provider.
//
// Mutations are serialized and their notifications are delivered in
// order, synchronously, on the mutating goroutine. Handlers may read the
// store but must not mutate it.
type Store struct {
	fs     storage.Provider
	cache  metacache.Cache
	logger *slog.Logger

	ops sync.Mutex

	mu    sync.RWMutex
	files map[string]*File
	memo  map[*File]*memoEntry

	smu    sync.Mutex
	subs   []subscription
	nextID uint64
}

type subscription struct {
	id uint64
	h  urlindex.ChangeHandler
}

type memoEntry struct {
	size  int64
	mod   time.Time
	meta  *urlindex.Metadata
	title string
}

var _ urlindex.Store = (*Store)(nil)

// New returns an empty store. cache may be nil. Call Load to scan the vault.
func New(fs storage.Provider, cache metacache.Cache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fs:     fs,
		cache:  cache,
		logger: logger,
		files:  make(map[string]*File),
		memo:   make(map[*File]*memoEntry),
	}
}

// Load scans the vault and replaces the known file set without notifying
// subscribers. Handles of paths that survive the scan are kept. Cache
// entries of vanished paths are pruned.
func (s *Store) Load() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	infos, err := s.fs.List("")
	if err != nil {
		return fmt.Errorf("vault: load: %w", err)
	}

	s.mu.Lock()
	next := make(map[string]*File, len(infos))
	keep := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		keep[info.Path] = struct{}{}
		if f, ok := s.files[info.Path]; ok {
			f.update(info)
			next[info.Path] = f
			continue
		}
		next[info.Path] = newFile(info)
	}
	for _, f := range s.files {
		if _, ok := keep[f.Path()]; !ok {
			delete(s.memo, f)
		}
	}
	s.files = next
	s.mu.Unlock()

	if s.cache != nil {
		n, err := s.cache.Prune(keep)
		if err != nil {
			s.logger.Warn("vault: cache prune failed", slog.String("error", err.Error()))
		} else if n > 0 {
			s.logger.Debug("vault: cache pruned", slog.Int("entries", n))
		}
	}
	s.logger.Info("vault: loaded", slog.Int("notes", len(infos)))
	return nil
}

// Documents implements urlindex.Store.
func (s *Store) Documents() []urlindex.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]urlindex.Document, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	return out
}

// Len returns the number of tracked notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Resolve implements urlindex.Store.
func (s *Store) Resolve(path string) (urlindex.Document, bool) {
	f, ok := s.File(path)
	if !ok {
		return nil, false
	}
	return f, true
}

// File returns the handle tracked under path.
func (s *Store) File(path string) (*File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	return f, ok
}

// Subscribe implements urlindex.Store. The returned function is idempotent.
func (s *Store) Subscribe(h urlindex.ChangeHandler) func() {
	s.smu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, h: h})
	s.smu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.smu.Lock()
			defer s.smu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(fn func(urlindex.ChangeHandler)) {
	s.smu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.smu.Unlock()
	for _, sub := range subs {
		fn(sub.h)
	}
}

// Metadata implements urlindex.Store. Results are memoized per handle
// until the file's size or modification time changes; the SQLite cache,
// when configured, serves unchanged notes across restarts.
func (s *Store) Metadata(doc urlindex.Document) (*urlindex.Metadata, error) {
	m, err := s.entry(doc)
	if err != nil {
		return nil, err
	}
	return m.meta, nil
}

// Title returns the note's display title: front-matter "title", else the
// first H1 heading.
func (s *Store) Title(doc urlindex.Document) string {
	m, err := s.entry(doc)
	if err != nil {
		return ""
	}
	return m.title
}

func (s *Store) entry(doc urlindex.Document) (*memoEntry, error) {
	f, ok := doc.(*File)
	if !ok {
		return nil, fmt.Errorf("vault: foreign document %T: %w", doc, apperr.ErrInvalidArgument)
	}
	info := f.Info()

	s.mu.RLock()
	m := s.memo[f]
	s.mu.RUnlock()
	if m != nil && m.size == info.Size && m.mod.Equal(info.ModTime) {
		return m, nil
	}

	e, err := s.load(f, info)
	if err != nil {
		return nil, err
	}
	m = &memoEntry{
		size:  info.Size,
		mod:   info.ModTime,
		meta:  &urlindex.Metadata{Frontmatter: e.Frontmatter, Tags: e.Tags},
		title: e.Title,
	}
	s.mu.Lock()
	if cur, live := s.files[f.Path()]; live && cur == f {
		s.memo[f] = m
	}
	s.mu.Unlock()
	return m, nil
}

// load resolves a note's metadata through the cache, parsing only when
// neither the path nor the content fingerprint is known.
func (s *Store) load(f *File, info models.FileInfo) (*metacache.Entry, error) {
	if s.cache != nil {
		e, err := s.cache.Get(info.Path)
		if err != nil {
			s.logger.Warn("vault: cache get failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		} else if e.Fresh(info.Size, info.ModTime) {
			if e.Fingerprint != "" {
				f.setFingerprint(e.Fingerprint)
			}
			return e, nil
		}
	}

	data, err := s.fs.Read(info.Path)
	if err != nil {
		return nil, fmt.Errorf("vault: metadata %s: %w", info.Path, err)
	}
	fp := checksum.FastString(data)
	sum := checksum.Sum(data)
	f.setFingerprint(fp)

	var e *metacache.Entry
	if s.cache != nil {
		if prior, err := s.cache.ByFingerprint(fp); err == nil && prior != nil && prior.Checksum == sum {
			e = prior
		}
	}
	if e == nil {
		res := parser.Parse(data)
		e = &metacache.Entry{Frontmatter: res.Frontmatter, Tags: res.Tags, Title: res.Title}
	}
	e.Path, e.Size, e.ModTime = info.Path, info.Size, info.ModTime
	e.Checksum, e.Fingerprint = sum, fp

	if s.cache != nil {
		if err := s.cache.Put(*e); err != nil {
			s.logger.Warn("vault: cache put failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		}
	}
	return e, nil
}

// Refresh re-stats path and notifies Created, Changed or Deleted as
// appropriate. Unchanged files produce no notification.
func (s *Store) Refresh(path string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.refreshLocked(path)
}

func (s *Store) refreshLocked(path string) error {
	if !s.fs.IsNote(path) {
		return nil
	}
	info, err := s.fs.Stat(path)
	if errors.Is(err, apperr.ErrNotFound) {
		s.removeLocked(path)
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	f, known := s.files[path]
	if !known {
		f = newFile(info)
		s.files[path] = f
	}
	s.mu.Unlock()

	switch {
	case !known:
		s.logger.Debug("vault: created", slog.String("path", path))
		s.notify(func(h urlindex.ChangeHandler) { h.OnCreated(f) })
	case f.update(info):
		s.logger.Debug("vault: changed", slog.String("path", path))
		s.notify(func(h urlindex.ChangeHandler) { h.OnChanged(f) })
	}
	return nil
}

// Remove forgets path and notifies Deleted if it was tracked.
func (s *Store) Remove(path string) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.removeLocked(path)
}

func (s *Store) removeLocked(path string) {
	s.mu.Lock()
	f, ok := s.files[path]
	if ok {
		delete(s.files, path)
		delete(s.memo, f)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if s.cache != nil {
		if err := s.cache.Delete(path); err != nil {
			s.logger.Warn("vault: cache delete failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("vault: deleted", slog.String("path", path))
	s.notify(func(h urlindex.ChangeHandler) { h.OnDeleted(f) })
}

// Rename moves the handle tracked at oldPath to newPath and notifies
// Renamed. A different handle already tracked at newPath is deleted first.
// If oldPath is unknown this is a Refresh of newPath.
func (s *Store) Rename(oldPath, newPath string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.renameLocked(oldPath, newPath)
}

func (s *Store) renameLocked(oldPath, newPath string) error {
	if oldPath == newPath {
		return s.refreshLocked(newPath)
	}
	if !s.fs.IsNote(newPath) {
		s.removeLocked(oldPath)
		return nil
	}

	s.mu.Lock()
	f, ok := s.files[oldPath]
	if !ok {
		s.mu.Unlock()
		return s.refreshLocked(newPath)
	}
	displaced := s.files[newPath]
	if displaced != nil {
		delete(s.memo, displaced)
	}
	delete(s.files, oldPath)
	s.files[newPath] = f
	f.setPath(newPath)
	s.mu.Unlock()

	if displaced != nil {
		s.notify(func(h urlindex.ChangeHandler) { h.OnDeleted(displaced) })
	}
	if s.cache != nil {
		if err := s.cache.Rename(oldPath, newPath); err != nil {
			s.logger.Warn("vault: cache rename failed", slog.String("path", oldPath), slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("vault: renamed", slog.String("from", oldPath), slog.String("to", newPath))
	s.notify(func(h urlindex.ChangeHandler) { h.OnRenamed(f, oldPath) })

	// Content may have changed along with the name.
	return s.refreshLocked(newPath)
}

// Reconcile compares the tracked set with the disk and emits the
// notifications needed to converge: deletions first, then creations and
// changes.
func (s *Store) Reconcile() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	infos, err := s.fs.List("")
	if err != nil {
		return fmt.Errorf("vault: reconcile: %w", err)
	}
	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Path] = struct{}{}
	}

	s.mu.RLock()
	var stale []string
	for p := range s.files {
		if _, ok := disk[p]; !ok {
			stale = append(stale, p)
		}
	}
	s.mu.RUnlock()

	for _, p := range stale {
		s.removeLocked(p)
	}
	for _, info := range infos {
		if err := s.refreshLocked(info.Path); err != nil {
			s.logger.Warn("vault: reconcile refresh failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}

// CreateNote writes a new note and tracks it. It fails with
// apperr.ErrAlreadyExists when path is taken.
func (s *Store) CreateNote(path string, content []byte) (*File, error) {
	if !s.fs.IsNote(path) {
		return nil, fmt.Errorf("vault: %s is not a note path: %w", path, apperr.ErrInvalidArgument)
	}
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.fs.Create(path, content); err != nil {
		return nil, err
	}
	if err := s.refreshLocked(path); err != nil {
		return nil, err
	}
	f, ok := s.File(path)
	if !ok {
		return nil, fmt.Errorf("vault: created note %s vanished: %w", path, apperr.ErrNotFound)
	}
	return f, nil
}

// WriteNote replaces (or creates) a note's content.
func (s *Store) WriteNote(path string, content []byte) error {
	if !s.fs.IsNote(path) {
		return fmt.Errorf("vault: %s is not a note path: %w", path, apperr.ErrInvalidArgument)
	}
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.fs.Write(path, content); err != nil {
		return err
	}
	return s.refreshLocked(path)
}

// DeleteNote removes a note from disk and from the store.
func (s *Store) DeleteNote(path string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.fs.Delete(path); err != nil {
		return err
	}
	s.removeLocked(path)
	return nil
}

// MoveNote renames a note on disk, keeping its handle.
func (s *Store) MoveNote(oldPath, newPath string) error {
	if !s.fs.IsNote(newPath) {
		return fmt.Errorf("vault: %s is not a note path: %w", newPath, apperr.ErrInvalidArgument)
	}
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.fs.Move(oldPath, newPath); err != nil {
		return err
	}
	return s.renameLocked(oldPath, newPath)
}

// Read returns a note's raw content.
func (s *Store) Read(path string) ([]byte, error) {
	return s.fs.Read(path)
}
