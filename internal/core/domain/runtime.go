package domain

// ProvenanceKind is the reason a field currently holds its value.
type ProvenanceKind string

// Available provenance kinds.
const (
	// ProvenanceManual is direct user input (or a restored annotation).
	ProvenanceManual ProvenanceKind = "manual"

	// ProvenanceAutofilled is a write by an auto-fill rule.
	ProvenanceAutofilled ProvenanceKind = "autofilled"

	// ProvenanceAISuggested is a write by the AI suggestion overlay.
	ProvenanceAISuggested ProvenanceKind = "ai-suggested"
)

// Provenance records the most recent setter of a field.
//
// Only one setter is remembered. When two rules can target the same field,
// the trigger of the last write wins; retraction then only follows that trigger.
type Provenance struct {
	Kind ProvenanceKind

	// Source is the trigger field id for autofilled values.
	Source string
}

// Manual returns manual provenance.
func Manual() Provenance { return Provenance{Kind: ProvenanceManual} }

// Autofilled returns provenance for a rule owned by trigger.
func Autofilled(trigger string) Provenance {
	return Provenance{Kind: ProvenanceAutofilled, Source: trigger}
}

// AISuggested returns AI overlay provenance.
func AISuggested() Provenance { return Provenance{Kind: ProvenanceAISuggested} }

// IsAutofilledBy reports whether the value was written by a rule of trigger.
func (p Provenance) IsAutofilledBy(trigger string) bool {
	return p.Kind == ProvenanceAutofilled && p.Source == trigger
}

// String returns "autofilled(<trigger>)" for rule writes and the kind otherwise.
func (p Provenance) String() string {
	if p.Kind == ProvenanceAutofilled {
		return string(p.Kind) + "(" + p.Source + ")"
	}
	if p.Kind == "" {
		return string(ProvenanceManual)
	}
	return string(p.Kind)
}

// AISnapshot is the single level of undo captured before an AI overlay.
type AISnapshot struct {
	Value            string
	Provenance       Provenance
	Context          string
	Reasoning        string
	ReasoningVisible bool
}

// FieldState is the runtime state of one field in one open document.
type FieldState struct {
	Value      string
	Provenance Provenance
	Locked     bool

	// Context is the text shown in the field's evidence box.
	Context string

	// Reasoning is the AI explanation, shown on demand.
	Reasoning        string
	ReasoningVisible bool

	// RevealReasoning is true when a reveal affordance should be shown.
	RevealReasoning bool

	// AIActive is true while AI revert/clear affordances should be shown.
	AIActive bool

	// Items holds checklist selections keyed by item id.
	Items map[string]string

	// Snapshot is the pre-overlay state, nil when no suggestion is applied.
	Snapshot *AISnapshot
}

// Clone returns a copy that shares no maps or pointers with s.
func (s FieldState) Clone() FieldState {
	out := s
	if s.Items != nil {
		out.Items = make(map[string]string, len(s.Items))
		for k, v := range s.Items {
			out.Items[k] = v
		}
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		out.Snapshot = &snap
	}
	return out
}

// Change is a committed field-level change notification.
type Change struct {
	FieldID string

	// ItemID is set for checklist selections.
	ItemID string

	Old        string
	New        string
	Provenance Provenance
}

// Suggestion is one AI answer for a field.
type Suggestion struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Suggestions maps field ids to AI answers.
type Suggestions map[string]Suggestion
