package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// MIMEPDF is the MIME type of PDF documents.
const MIMEPDF = "application/pdf"

// maxDocumentBytes bounds what is sent to a provider.
const maxDocumentBytes = 20 << 20

// mimeByExt maps file extensions to the MIME types normalisers claim.
// Anything else is read as plain text.
var mimeByExt = map[string]string{
	".pdf":      MIMEPDF,
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".xml":      "application/xml",
	".tex":      "text/x-tex",
}

// Document is a local file loaded for analysis.
type Document struct {
	Path string
	Data []byte
	MIME string
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool { return d.MIME == MIMEPDF }

// LoadDocument reads a local document. The MIME type comes from the
// extension; PDFs are also detected by their magic bytes.
func LoadDocument(path string) (Document, error) {
	if path == "" {
		return Document{}, fmt.Errorf("%w: document path is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > maxDocumentBytes {
		return Document{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, maxDocumentBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}

	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = "text/plain"
	}
	if strings.HasPrefix(string(data), "%PDF-") {
		mime = MIMEPDF
	}
	return Document{Path: path, Data: data, MIME: mime}, nil
}

// Text extracts the readable text of a non-PDF document. Without a
// registry the bytes are used as is.
func (d Document) Text(ctx context.Context, reg driven.NormaliserRegistry) (string, error) {
	if d.IsPDF() {
		return "", fmt.Errorf("%w: text extraction is not available for PDF documents", domain.ErrInvalidInput)
	}
	raw := &domain.RawDocument{URI: d.Path, MIMEType: d.MIME, Content: d.Data}
	if reg == nil {
		return "**DOCUMENT:** " + raw.FallbackTitle() + "\n" + string(d.Data), nil
	}
	res, err := reg.Normalise(ctx, raw)
	if err != nil {
		return "", err
	}
	return "**DOCUMENT:** " + res.Title + "\n" + res.Content, nil
}
