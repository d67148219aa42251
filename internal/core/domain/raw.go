package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument is a local document before its text is extracted for a
// suggestion provider.
type RawDocument struct {
	// URI is the path the document was read from.
	URI string

	// MIMEType is the detected content type, e.g. "text/html".
	MIMEType string

	// Content is the file as read from disk.
	Content []byte
}

// FallbackTitle derives a readable title from the file name:
// "screening_notes-v2.md" becomes "screening notes v2".
func (r *RawDocument) FallbackTitle() string {
	name := filepath.Base(r.URI)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
