package domain

// Suffixes used by the flat submission row.
const (
	ContextSuffix   = "_context"
	ReasoningSuffix = "_reasoning"
	ItemSeparator   = "__"
)

// Annotation is the submission payload of one document.
type Annotation struct {
	// Values maps field ids to their values.
	Values map[string]string `json:"values"`

	// Items maps checklist field ids to item selections.
	Items map[string]map[string]string `json:"items,omitempty"`

	// Contexts maps field ids to the evidence text.
	Contexts map[string]string `json:"contexts,omitempty"`

	// Reasonings maps field ids to the AI reasoning text.
	Reasonings map[string]string `json:"reasonings,omitempty"`
}

// NewAnnotation returns an annotation with initialised maps.
func NewAnnotation() Annotation {
	return Annotation{
		Values:     make(map[string]string),
		Items:      make(map[string]map[string]string),
		Contexts:   make(map[string]string),
		Reasonings: make(map[string]string),
	}
}

// Flatten returns the single-row form used by spreadsheet-style sinks:
// "<id>", "<id>_context", "<id>_reasoning" and "<id>__<item>".
// Empty context and reasoning entries are omitted.
func (a Annotation) Flatten() map[string]string {
	row := make(map[string]string, len(a.Values)*2)
	for id, v := range a.Values {
		row[id] = v
	}
	for id, items := range a.Items {
		for item, v := range items {
			row[id+ItemSeparator+item] = v
		}
	}
	for id, v := range a.Contexts {
		if v != "" {
			row[id+ContextSuffix] = v
		}
	}
	for id, v := range a.Reasonings {
		if v != "" {
			row[id+ReasoningSuffix] = v
		}
	}
	return row
}

// ParseFlatAnnotation reads a flat row back into an Annotation.
// Keys that do not belong to the template's fields are ignored.
func ParseFlatAnnotation(t *Template, row map[string]string) Annotation {
	a := NewAnnotation()
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Type == FieldTypeChecklist {
			for _, item := range f.ChecklistItems {
				if v, ok := row[f.ID+ItemSeparator+item.ID]; ok && v != "" {
					if a.Items[f.ID] == nil {
						a.Items[f.ID] = make(map[string]string)
					}
					a.Items[f.ID][item.ID] = v
				}
			}
		} else if v, ok := row[f.ID]; ok && v != "" {
			a.Values[f.ID] = v
		}
		if v := row[f.ID+ContextSuffix]; v != "" {
			a.Contexts[f.ID] = v
		}
		if v := row[f.ID+ReasoningSuffix]; v != "" {
			a.Reasonings[f.ID] = v
		}
	}
	return a
}
