package driven

import "github.com/custodia-labs/annotate-cli/internal/core/domain"

// Notifier delivers notices to the presentation layer.
// Notify may be called from timer goroutines and must not block.
type Notifier interface {
	Notify(notice domain.Notice)
}

// EngineMetrics receives field engine counters.
type EngineMetrics interface {
	// ValueWritten counts a committed write by provenance kind.
	ValueWritten(kind domain.ProvenanceKind)

	// ValueRetracted counts an autofilled value reset by propagation.
	ValueRetracted()

	// CascadeAborted counts a propagation stopped by the cascade bound.
	CascadeAborted()

	// SuggestionsApplied counts AI suggestions written to fields.
	SuggestionsApplied(n int)
}
