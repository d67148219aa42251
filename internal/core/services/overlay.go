package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// ApplySuggestions overlays AI answers on the open document, one
// transaction per field in template order. For each field it snapshots the
// pre-overlay state (replacing any earlier snapshot), writes the value as
// ai-suggested (cascading like any other change) and fills the context box
// according to the field's summary target.
//
// Manual values are overwritten. Locked fields are overwritten unless
// AIRespectsLock is set. Unknown fields, checklists and values the field
// does not accept are skipped. It returns the ids of the fields written and
// any cascade errors joined.
func (r *Runtime) ApplySuggestions(s domain.Suggestions) ([]string, error) {
	for id := range s {
		if _, ok := r.fieldsByID[id]; !ok {
			logger.Warn("suggestion for unknown field %q ignored", id)
		}
	}

	var (
		applied []string
		errs    []error
	)
	for _, id := range r.order {
		sug, ok := s[id]
		if !ok {
			continue
		}
		wrote, err := r.applySuggestion(id, sug)
		if errors.Is(err, domain.ErrRuntimeClosed) {
			return applied, err
		}
		if wrote {
			applied = append(applied, id)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	r.opts.Metrics.SuggestionsApplied(len(applied))
	return applied, errors.Join(errs...)
}

func (r *Runtime) applySuggestion(id string, sug domain.Suggestion) (bool, error) {
	f := r.fieldsByID[id]
	if f.Type == domain.FieldTypeChecklist {
		logger.Warn("suggestion for checklist field %q ignored", id)
		return false, nil
	}
	value, ok := normalizeFieldValue(f, sug.Value)
	if !ok {
		logger.Warn("suggested value %q is not valid for field %q; skipped", sug.Value, id)
		return false, nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, domain.ErrRuntimeClosed
	}
	st := r.states[id]
	if st.Locked && r.opts.AIRespectsLock {
		r.mu.Unlock()
		logger.Debug("field %q is locked; suggestion skipped", id)
		return false, nil
	}

	snap := domain.AISnapshot{
		Value:            st.Value,
		Provenance:       st.Provenance,
		Context:          st.Context,
		Reasoning:        st.Reasoning,
		ReasoningVisible: st.ReasoningVisible,
	}

	tx := r.begin()
	var err error
	if value != "" {
		_, err = tx.write(id, value, domain.AISuggested(), originAI)
	}

	st.Context = summaryText(f, sug)
	st.Reasoning = sug.Reasoning
	st.ReasoningVisible = false
	st.RevealReasoning = sug.Reasoning != ""
	st.AIActive = true
	st.Snapshot = &snap
	r.mu.Unlock()

	r.commit(tx)
	if err != nil {
		return true, fmt.Errorf("field %q: %w", id, err)
	}
	return true, nil
}

// summaryText picks the context box text: the preferred source per the
// field's summary target, falling back to the other.
func summaryText(f *domain.Field, sug domain.Suggestion) string {
	primary, fallback := sug.Context, sug.Reasoning
	if f.SummaryTargetOrDefault() == domain.SummaryReasoning {
		primary, fallback = sug.Reasoning, sug.Context
	}
	if primary != "" {
		return primary
	}
	return fallback
}

// Revert restores the pre-overlay state of a field verbatim and hides the
// AI affordances. Restoring the value propagates like any other change.
func (r *Runtime) Revert(fieldID string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.ErrRuntimeClosed
	}
	st, ok := r.states[fieldID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, fieldID)
	}
	if st.Snapshot == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrNoSnapshot, fieldID)
	}
	snap := *st.Snapshot

	tx := r.begin()
	_, err := tx.write(fieldID, snap.Value, snap.Provenance, originRevert)

	st.Provenance = snap.Provenance
	st.Context = snap.Context
	st.Reasoning = snap.Reasoning
	st.ReasoningVisible = snap.ReasoningVisible
	st.RevealReasoning = false
	st.AIActive = false
	st.Snapshot = nil
	r.mu.Unlock()

	r.commit(tx)
	return err
}

// ClearSuggestion blanks the AI text of a field and hides the reveal
// affordance. The value and the snapshot are kept.
func (r *Runtime) ClearSuggestion(fieldID string) error {
	return r.withField(fieldID, func(st *domain.FieldState) error {
		st.Context = ""
		st.Reasoning = ""
		st.ReasoningVisible = false
		st.RevealReasoning = false
		return nil
	})
}
