package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/logger"
	"github.com/custodia-labs/annotate-cli/internal/normalisers/docx"
	"github.com/custodia-labs/annotate-cli/internal/normalisers/eml"
	"github.com/custodia-labs/annotate-cli/internal/normalisers/html"
	"github.com/custodia-labs/annotate-cli/internal/normalisers/markdown"
	"github.com/custodia-labs/annotate-cli/internal/normalisers/plaintext"
)

// fallbackMIME is used for text types no normaliser claims.
const fallbackMIME = "text/plain"

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to normalisers by MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mime := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mime], n)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority() > list[j].Priority() })
		r.byMIME[mime] = list
	}
}

// SupportedMIMETypes returns the registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		out = append(out, mime)
	}
	sort.Strings(out)
	return out
}

// Normalise extracts text with the best normaliser for raw.MIMEType.
// Unclaimed text/* types go to the plain text normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	n, ok := r.lookup(raw.MIMEType)
	if !ok {
		return nil, fmt.Errorf("%w: no text extraction for %s documents", domain.ErrInvalidInput, raw.MIMEType)
	}
	logger.Debug("extracting text from %s as %s", raw.URI, raw.MIMEType)
	return n.Normalise(ctx, raw)
}

func (r *Registry) lookup(mime string) (driven.Normaliser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if list := r.byMIME[mime]; len(list) > 0 {
		return list[0], true
	}
	if mime == "" || strings.HasPrefix(mime, "text/") {
		if list := r.byMIME[fallbackMIME]; len(list) > 0 {
			return list[0], true
		}
	}
	return nil, false
}
