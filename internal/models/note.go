// Package models defines the domain types shared by the linkdex surfaces.
package models

import "time"

// FileInfo describes a Markdown file in the vault, as listed by storage.
type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// LinkNote is a note rendered for API and MCP consumers.
type LinkNote struct {
	Path        string         `json:"path"`
	Title       string         `json:"title,omitempty"`
	URLs        []string       `json:"urls,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	ModTime     time.Time      `json:"mod_time"`
}

// NoteEvent is a vault change pushed to SSE clients.
type NoteEvent struct {
	Kind    string `json:"kind"` // created, updated, deleted, renamed
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
}
