package api

import (
	"github.com/starford/linkdex/internal/models"
	"github.com/starford/linkdex/internal/noteservice"
)

// CreateLinkNoteRequest is the request body for creating a link note.
type CreateLinkNoteRequest = noteservice.LinkNoteInput

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"---\nsource: https://example.com\n---\n" validate:"required"`
}

// MoveNoteRequest is the request body for renaming a note.
type MoveNoteRequest struct {
	From string `json:"from" example:"inbox/post.md" validate:"required"`
	To   string `json:"to" example:"archive/post.md" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// LinkNote is a note summary (aliased from the domain layer).
type LinkNote = models.LinkNote

// NotesResponse wraps a list of notes.
type NotesResponse struct {
	Notes []LinkNote `json:"notes" validate:"required"`
}

// DomainsResponse lists every indexed domain.
type DomainsResponse struct {
	Domains []string `json:"domains" validate:"required"`
}

// ExplorerResponse wraps the groups of one explorer dimension.
type ExplorerResponse struct {
	Dimension string              `json:"dimension" example:"tags" validate:"required"`
	Groups    []noteservice.Group `json:"groups" validate:"required"`
}
