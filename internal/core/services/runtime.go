package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

// Ensure Runtime implements the interface.
var _ driving.FieldRuntime = (*Runtime)(nil)

// Default engine tuning.
const (
	DefaultDebounceWindow  = 300 * time.Millisecond
	DefaultMaxCascadeDepth = 64
)

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// DocumentID identifies the open document. A random id is used when empty.
	DocumentID string

	// DebounceWindow coalesces "fields updated" notices. Zero uses the default,
	// a negative window delivers notices synchronously at commit.
	DebounceWindow time.Duration

	// MaxCascadeDepth bounds the chain of rule writes started by one change.
	MaxCascadeDepth int

	// AIRespectsLock makes AI overlay writes skip locked fields.
	AIRespectsLock bool

	// Notifier receives "fields updated" notices. Optional.
	Notifier driven.Notifier

	// Metrics receives engine counters. Optional.
	Metrics driven.EngineMetrics
}

// RuntimeOptionsFromSettings maps engine settings onto runtime options.
func RuntimeOptionsFromSettings(s domain.EngineSettings) RuntimeOptions {
	return RuntimeOptions{
		DebounceWindow:  s.DebounceWindow,
		MaxCascadeDepth: s.MaxCascadeDepth,
		AIRespectsLock:  s.AIRespectsLock,
	}
}

func (o RuntimeOptions) withDefaults() RuntimeOptions {
	if o.DocumentID == "" {
		o.DocumentID = uuid.NewString()
	}
	if o.DebounceWindow == 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.MaxCascadeDepth <= 0 {
		o.MaxCascadeDepth = DefaultMaxCascadeDepth
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	return o
}

// Runtime is the field value store of one open document. It owns every
// field's value, provenance, lock flag and AI snapshot, and runs rule
// propagation synchronously inside each write.
//
// Every public method runs as one transaction under the runtime mutex, so
// two cascades never interleave. Change notifications are delivered after
// the transaction commits, outside the mutex.
type Runtime struct {
	opts RuntimeOptions
	tmpl *domain.Template

	// fieldsByID indexes the template; order is declaration order.
	fieldsByID map[string]*domain.Field
	order      []string
	rules      map[string][]domain.Rule

	mu      sync.Mutex
	states  map[string]*domain.FieldState
	closed  bool
	seeding bool

	subsMu  sync.Mutex
	subs    map[int]func(domain.Change)
	nextSub int

	notices *debouncer
}

// NewRuntime builds the runtime state for a freshly opened document.
// tmpl should already be normalised; rules that target unknown fields,
// the owner itself or checklist fields are ignored.
func NewRuntime(tmpl *domain.Template, opts RuntimeOptions) (*Runtime, error) {
	if tmpl == nil {
		return nil, domain.ErrNoActiveTemplate
	}
	opts = opts.withDefaults()
	t := tmpl.Clone()

	r := &Runtime{
		opts:       opts,
		tmpl:       t,
		fieldsByID: make(map[string]*domain.Field, len(t.Fields)),
		order:      make([]string, 0, len(t.Fields)),
		rules:      make(map[string][]domain.Rule),
		subs:       make(map[int]func(domain.Change)),
	}
	for i := range t.Fields {
		f := &t.Fields[i]
		if _, dup := r.fieldsByID[f.ID]; dup || f.ID == "" {
			return nil, fmt.Errorf("%w: field id %q is empty or duplicated", domain.ErrInvalidTemplate, f.ID)
		}
		r.fieldsByID[f.ID] = f
		r.order = append(r.order, f.ID)
	}
	for _, id := range r.order {
		owner := r.fieldsByID[id]
		if owner.Type == domain.FieldTypeChecklist {
			continue
		}
		for _, rule := range owner.AutoFillRules {
			target, ok := r.fieldsByID[rule.TargetID]
			if !ok || rule.TargetID == id || target.Type == domain.FieldTypeChecklist {
				continue
			}
			r.rules[id] = append(r.rules[id], rule)
		}
	}
	r.states = r.freshStates()
	r.notices = newDebouncer(opts.DebounceWindow, r.notifyUpdated)
	return r, nil
}

func (r *Runtime) freshStates() map[string]*domain.FieldState {
	states := make(map[string]*domain.FieldState, len(r.order))
	for _, id := range r.order {
		st := &domain.FieldState{Provenance: domain.Manual()}
		if r.fieldsByID[id].Type == domain.FieldTypeChecklist {
			st.Items = make(map[string]string)
		}
		states[id] = st
	}
	return states
}

// DocumentID identifies the open document.
func (r *Runtime) DocumentID() string {
	return r.opts.DocumentID
}

// Template returns a copy of the template the runtime was built from.
func (r *Runtime) Template() *domain.Template {
	return r.tmpl.Clone()
}

// SetValue writes a field value. Rule provenance respects locks, AI
// provenance respects them only with AIRespectsLock, manual input always
// bypasses them. It reports whether the value changed.
//
// Writing the value a field already holds updates its provenance only and
// triggers no propagation. A cascade stopped by the cascade bound returns a
// *domain.CascadeError; the write itself is kept, derived writes are undone.
func (r *Runtime) SetValue(fieldID, value string, p domain.Provenance) (bool, error) {
	if p.Kind == "" {
		p = domain.Manual()
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, domain.ErrRuntimeClosed
	}
	tx := r.begin()
	changed, err := tx.write(fieldID, value, p, originFor(p))
	r.mu.Unlock()

	r.commit(tx)
	return changed, err
}

// Value returns a field's current value.
func (r *Runtime) Value(fieldID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[fieldID]; ok {
		return st.Value
	}
	return ""
}

// State returns a copy of a field's runtime state.
func (r *Runtime) State(fieldID string) (domain.FieldState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[fieldID]
	if !ok {
		return domain.FieldState{}, false
	}
	return st.Clone(), true
}

// States returns a copy of every field's state keyed by field id.
func (r *Runtime) States() map[string]domain.FieldState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.FieldState, len(r.states))
	for id, st := range r.states {
		out[id] = st.Clone()
	}
	return out
}

// SetItem records a checklist selection. value may be a choice value or
// label; the choice value is stored. Empty clears the selection.
func (r *Runtime) SetItem(fieldID, itemID, value string) (bool, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, domain.ErrRuntimeClosed
	}
	tx := r.begin()
	changed, err := tx.setItem(fieldID, itemID, value)
	r.mu.Unlock()

	r.commit(tx)
	return changed, err
}

// SetContext writes the evidence text of a field.
func (r *Runtime) SetContext(fieldID, text string) error {
	return r.withField(fieldID, func(st *domain.FieldState) error {
		st.Context = text
		return nil
	})
}

// ToggleReasoning shows or hides the AI reasoning of a field and returns the
// new visibility. Fields without reasoning stay hidden.
func (r *Runtime) ToggleReasoning(fieldID string) (bool, error) {
	var visible bool
	err := r.withField(fieldID, func(st *domain.FieldState) error {
		if st.Reasoning == "" {
			st.ReasoningVisible = false
		} else {
			st.ReasoningVisible = !st.ReasoningVisible
		}
		visible = st.ReasoningVisible
		return nil
	})
	return visible, err
}

// Lock suppresses rule writes to a field.
func (r *Runtime) Lock(fieldID string) error {
	return r.withField(fieldID, func(st *domain.FieldState) error {
		st.Locked = true
		return nil
	})
}

// Unlock re-enables rule writes to a field.
func (r *Runtime) Unlock(fieldID string) error {
	return r.withField(fieldID, func(st *domain.FieldState) error {
		st.Locked = false
		return nil
	})
}

// Subscribe registers a change listener. Listeners run on the writing
// goroutine after the transaction commits and may call back into the runtime.
func (r *Runtime) Subscribe(fn func(domain.Change)) func() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subs, id)
	}
}

// Export returns the submission payload: every non-checklist value (empty
// included), checklist selections, and non-empty context and reasoning.
func (r *Runtime) Export() domain.Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := domain.NewAnnotation()
	for _, id := range r.order {
		st := r.states[id]
		if r.fieldsByID[id].Type == domain.FieldTypeChecklist {
			if len(st.Items) > 0 {
				items := make(map[string]string, len(st.Items))
				for k, v := range st.Items {
					items[k] = v
				}
				a.Items[id] = items
			}
		} else {
			a.Values[id] = st.Value
		}
		if st.Context != "" {
			a.Contexts[id] = st.Context
		}
		if st.Reasoning != "" {
			a.Reasonings[id] = st.Reasoning
		}
	}
	return a
}

// Reset clears all field state, locks included, and cancels any pending
// notice. Used on skip, submit and navigation.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices.Stop()
	r.states = r.freshStates()
}

// Close tears the runtime down. Further writes return domain.ErrRuntimeClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.notices.Close()

	r.subsMu.Lock()
	r.subs = make(map[int]func(domain.Change))
	r.subsMu.Unlock()
	return nil
}

// seed loads a prior annotation as manual input without propagation.
func (r *Runtime) seed(a *domain.Annotation) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seeding = true
	defer func() { r.seeding = false }()

	var errs []error
	tx := r.begin()
	for _, id := range r.order {
		if v, ok := a.Values[id]; ok && v != "" {
			if _, err := tx.write(id, v, domain.Manual(), originUser); err != nil {
				errs = append(errs, err)
			}
		}
		for item, v := range a.Items[id] {
			if _, err := tx.setItem(id, item, v); err != nil {
				errs = append(errs, err)
			}
		}
		st := r.states[id]
		st.Context = a.Contexts[id]
		st.Reasoning = a.Reasonings[id]
		st.RevealReasoning = st.Reasoning != ""
	}
	return errs
}

func (r *Runtime) withField(fieldID string, fn func(st *domain.FieldState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRuntimeClosed
	}
	st, ok := r.states[fieldID]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, fieldID)
	}
	return fn(st)
}

// commit publishes a finished transaction: metrics, the debounced notice and
// change notifications. Must be called without r.mu held.
func (r *Runtime) commit(tx *txn) {
	m := r.opts.Metrics
	if tx.aborted {
		m.CascadeAborted()
	}
	if len(tx.changes) == 0 {
		return
	}

	var filled []string
	for i, c := range tx.changes {
		m.ValueWritten(c.Provenance.Kind)
		switch tx.kinds[i] {
		case writeRetract:
			m.ValueRetracted()
		case writeRule:
			filled = append(filled, c.FieldID)
		}
	}
	if len(filled) > 0 {
		r.notices.Add(filled)
	}

	r.subsMu.Lock()
	listeners := make([]func(domain.Change), 0, len(r.subs))
	for i := 0; i < r.nextSub; i++ {
		if fn, ok := r.subs[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	r.subsMu.Unlock()

	for _, c := range tx.changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func (r *Runtime) notifyUpdated(fieldIDs []string) {
	if r.opts.Notifier == nil {
		return
	}
	r.opts.Notifier.Notify(domain.Notice{
		Kind:       domain.NoticeFieldsUpdated,
		DocumentID: r.opts.DocumentID,
		FieldIDs:   fieldIDs,
		Message:    fmt.Sprintf("Auto-filled %d field(s): %s", len(fieldIDs), strings.Join(fieldIDs, ", ")),
		At:         time.Now(),
	})
}

// normalizeInput canonicalises a value written to f.
func normalizeInput(f *domain.Field, value string) (string, error) {
	if f.Type == domain.FieldTypeChecklist {
		return "", fmt.Errorf("%w: %q is a checklist, set its items instead", domain.ErrInvalidValue, f.ID)
	}
	v, ok := normalizeFieldValue(f, value)
	if !ok {
		return "", fmt.Errorf("%w: %q for %s field %q", domain.ErrInvalidValue, value, f.Type, f.ID)
	}
	return v, nil
}

// resolveChoice finds the choice matching a selection by value, or by
// label ignoring case.
func resolveChoice(choices []domain.ChecklistChoice, sel string) (domain.ChecklistChoice, bool) {
	for _, c := range choices {
		if c.Value == sel {
			return c, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, sel) {
			return c, true
		}
	}
	return domain.ChecklistChoice{}, false
}

type nopMetrics struct{}

func (nopMetrics) ValueWritten(domain.ProvenanceKind) {}
func (nopMetrics) ValueRetracted()                    {}
func (nopMetrics) CascadeAborted()                    {}
func (nopMetrics) SuggestionsApplied(int)             {}
