// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/linkdex/internal/models"

// Provider is the interface for vault file operations. All paths are
// slash separated and relative to the vault root.
type Provider interface {
	// List returns every non-ignored .md file under dir.
	List(dir string) ([]models.FileInfo, error)
	// Stat returns size and modification time of the file at path.
	Stat(path string) (models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create writes a new file, failing if path exists.
	Create(path string, content []byte) error
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// IsNote reports whether path is a Markdown note outside ignored trees.
	IsNote(path string) bool
	// Ignored reports whether path falls under an ignore glob.
	Ignored(path string) bool
}

var _ Provider = (*FS)(nil)
