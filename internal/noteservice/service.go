// Package noteservice is the application layer shared by the HTTP API and
// the MCP server: note CRUD over the vault plus the URL query facade over
// the index, matcher and explorer.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/checksum"
	"github.com/starford/linkdex/internal/explorer"
	"github.com/starford/linkdex/internal/models"
	"github.com/starford/linkdex/internal/parser"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/urlindex"
	"github.com/starford/linkdex/internal/vault"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.LinkNote
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// Service coordinates the vault and the URL index.
type Service struct {
	vault    *vault.Store
	index    *urlindex.Index
	settings settings.Source
	logger   *slog.Logger
}

// NewService creates a new note service.
func NewService(v *vault.Store, ix *urlindex.Index, src settings.Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{vault: v, index: ix, settings: src, logger: logger}
}

// Settings returns the settings in effect now.
func (s *Service) Settings() settings.Settings {
	return s.settings.Current()
}

// GetNote reads a note with its content and checksum.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	f, ok := s.vault.File(path)
	if !ok {
		return nil, fmt.Errorf("noteservice: get %s: %w", path, apperr.ErrNotFound)
	}
	data, err := s.vault.Read(path)
	if err != nil {
		return nil, err
	}
	return s.detail(f, data), nil
}

// CreateNote writes a new note. The index picks it up through the vault's
// change notification before CreateNote returns.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	f, err := s.vault.CreateNote(path, content)
	if err != nil {
		return nil, err
	}
	return s.detail(f, content), nil
}

// UpdateNote writes updated content with optimistic concurrency: a
// non-empty ifMatch must equal the checksum of the current content.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	if _, ok := s.vault.File(path); !ok {
		return nil, fmt.Errorf("noteservice: update %s: %w", path, apperr.ErrNotFound)
	}
	existing, err := s.vault.Read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.vault.WriteNote(path, content); err != nil {
		return nil, err
	}
	f, ok := s.vault.File(path)
	if !ok {
		return nil, fmt.Errorf("noteservice: update %s: %w", path, apperr.ErrNotFound)
	}
	return s.detail(f, content), nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	return s.vault.DeleteNote(path)
}

// MoveNote renames a note; its index entries follow it.
func (s *Service) MoveNote(ctx context.Context, oldPath, newPath string) (*NoteDetail, error) {
	if err := s.vault.MoveNote(oldPath, newPath); err != nil {
		return nil, err
	}
	return s.GetNote(ctx, newPath)
}

// Describe renders an indexed document for API consumers.
func (s *Service) Describe(doc urlindex.Document) models.LinkNote {
	n := models.LinkNote{
		Path:    doc.Path(),
		URLs:    nonNilSlice(s.index.URLsForPath(doc.Path())),
		Tags:    []string{},
		ModTime: doc.ModTime(),
	}
	if meta, err := s.index.Metadata(doc); err == nil && meta != nil {
		n.Frontmatter = meta.Frontmatter
		n.Tags = nonNilSlice(explorer.TagsOf(meta, s.settings.Current().TagFields))
	}
	n.Title = s.vault.Title(doc)
	return n
}

func (s *Service) describeAll(docs []urlindex.Document) []models.LinkNote {
	out := make([]models.LinkNote, len(docs))
	for i, d := range docs {
		out[i] = s.Describe(d)
	}
	return out
}

func (s *Service) detail(f *vault.File, data []byte) *NoteDetail {
	n := s.Describe(f)
	if n.Frontmatter == nil {
		n.Frontmatter = parser.ParseFrontmatter(data)
	}
	if n.ModTime.IsZero() {
		n.ModTime = time.Now()
	}
	return &NoteDetail{LinkNote: n, Content: string(data), Checksum: checksum.Sum(data)}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
