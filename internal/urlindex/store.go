package urlindex

import "time"

// Document is a handle to a host-managed note. Implementations must be
// comparable and keep the same identity across renames: the index keys
// its forward maps by handle, not by path.
type Document interface {
	Path() string
	ModTime() time.Time
}

// Metadata is the parsed metadata block of a document.
type Metadata struct {
	Frontmatter map[string]any
	// Tags holds inline #tags found in the document body.
	Tags []string
}

// ChangeHandler receives host change notifications.
type ChangeHandler interface {
	OnCreated(doc Document)
	OnChanged(doc Document)
	OnDeleted(doc Document)
	OnRenamed(doc Document, oldPath string)
}

// Store is the host document store the index is built from.
type Store interface {
	// Documents lists every live document.
	Documents() []Document
	// Metadata returns the parsed metadata of doc. An error means the
	// document has no usable metadata.
	Metadata(doc Document) (*Metadata, error)
	// Resolve maps a path back to its live document handle.
	Resolve(path string) (Document, bool)
	// Subscribe registers h for change notifications and returns a
	// function that removes the registration.
	Subscribe(h ChangeHandler) (unsubscribe func())
}
