package domain

// FieldType identifies how a field is rendered and which values it accepts.
type FieldType string

// Available field types.
const (
	// FieldTypeBoolean holds "true", "false" or nothing.
	FieldTypeBoolean FieldType = "boolean"

	// FieldTypeSelect holds one of the field's options.
	FieldTypeSelect FieldType = "select"

	// FieldTypeChecklist holds one selection per checklist item.
	FieldTypeChecklist FieldType = "checklist"
)

// IsValid returns true if the field type is recognised.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeBoolean, FieldTypeSelect, FieldTypeChecklist:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t FieldType) String() string {
	return string(t)
}

// SummaryTarget selects which AI text is written into a field's context box.
type SummaryTarget string

// Available summary targets.
const (
	// SummaryContext prefers the quoted evidence, falling back to reasoning.
	SummaryContext SummaryTarget = "context"

	// SummaryReasoning prefers the reasoning, falling back to the evidence.
	SummaryReasoning SummaryTarget = "reasoning"
)

// IsValid returns true if the summary target is recognised.
func (s SummaryTarget) IsValid() bool {
	return s == SummaryContext || s == SummaryReasoning
}

// Template is a declarative definition of an annotation form.
type Template struct {
	// Name is the human-readable template name.
	Name string `json:"name" yaml:"name"`

	// Description explains what the template annotates.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Fields is the ordered list of annotatable attributes.
	Fields []Field `json:"fields" yaml:"fields" validate:"min=1,unique=ID,dive"`
}

// Field is one annotatable attribute.
type Field struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type" validate:"required,oneof=boolean select checklist"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`

	// Options are the allowed values of a select field.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Keywords are highlighted in the document viewer.
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	HelperText string   `json:"helperText,omitempty" yaml:"helperText,omitempty"`

	AISummaryTarget SummaryTarget `json:"aiSummaryTarget,omitempty" yaml:"aiSummaryTarget,omitempty" validate:"omitempty,oneof=context reasoning"`

	AutoFillRules []Rule `json:"autoFillRules,omitempty" yaml:"autoFillRules,omitempty"`

	ChecklistItems   []ChecklistItem   `json:"checklistItems,omitempty" yaml:"checklistItems,omitempty"`
	ChecklistChoices []ChecklistChoice `json:"checklistChoices,omitempty" yaml:"checklistChoices,omitempty"`
	ChecklistScoring *ChecklistScoring `json:"checklistScoring,omitempty" yaml:"checklistScoring,omitempty"`
}

// Rule reads "when the owning field's value equals TriggerValue,
// set field TargetID to TargetValue".
type Rule struct {
	TriggerValue string `json:"triggerValue" yaml:"triggerValue"`
	TargetID     string `json:"targetId" yaml:"targetId"`
	TargetValue  string `json:"targetValue" yaml:"targetValue"`
}

// ChecklistItem is one row of a checklist field.
type ChecklistItem struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Choices overrides the field's ChecklistChoices for this item.
	Choices []ChecklistChoice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// ChecklistChoice is a selectable answer. Numeric values are scored,
// anything else is an inert label.
type ChecklistChoice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// DefaultChecklistChoices returns the built-in yes/no/na choice set.
func DefaultChecklistChoices() []ChecklistChoice {
	return []ChecklistChoice{
		{Value: "1", Label: "Yes"},
		{Value: "0", Label: "No"},
		{Value: "na", Label: "N/A"},
	}
}

// FieldByID returns the field with the given id.
func (t *Template) FieldByID(id string) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// FieldIDs returns the field ids in declaration order.
func (t *Template) FieldIDs() []string {
	ids := make([]string, len(t.Fields))
	for i := range t.Fields {
		ids[i] = t.Fields[i].ID
	}
	return ids
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{
		Name:        t.Name,
		Description: t.Description,
		Fields:      make([]Field, len(t.Fields)),
	}
	for i := range t.Fields {
		out.Fields[i] = t.Fields[i].clone()
	}
	return out
}

func (f Field) clone() Field {
	out := f
	out.Options = cloneStrings(f.Options)
	out.Keywords = cloneStrings(f.Keywords)
	if f.AutoFillRules != nil {
		out.AutoFillRules = append([]Rule(nil), f.AutoFillRules...)
	}
	if f.ChecklistItems != nil {
		out.ChecklistItems = make([]ChecklistItem, len(f.ChecklistItems))
		for i, item := range f.ChecklistItems {
			item.Choices = cloneChoices(item.Choices)
			out.ChecklistItems[i] = item
		}
	}
	out.ChecklistChoices = cloneChoices(f.ChecklistChoices)
	if f.ChecklistScoring != nil {
		s := f.ChecklistScoring.clone()
		out.ChecklistScoring = &s
	}
	return out
}

// Item returns the checklist item with the given id.
func (f *Field) Item(id string) (*ChecklistItem, bool) {
	for i := range f.ChecklistItems {
		if f.ChecklistItems[i].ID == id {
			return &f.ChecklistItems[i], true
		}
	}
	return nil, false
}

// ChoicesFor returns the effective choices of an item: its own override,
// else the field's choices.
func (f *Field) ChoicesFor(item *ChecklistItem) []ChecklistChoice {
	if item != nil && len(item.Choices) > 0 {
		return item.Choices
	}
	return f.ChecklistChoices
}

// HasOption reports whether v is one of a select field's options.
func (f *Field) HasOption(v string) bool {
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// SummaryTargetOrDefault returns the configured summary target, defaulting to context.
func (f *Field) SummaryTargetOrDefault() SummaryTarget {
	if f.AISummaryTarget.IsValid() {
		return f.AISummaryTarget
	}
	return SummaryContext
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneChoices(in []ChecklistChoice) []ChecklistChoice {
	if in == nil {
		return nil
	}
	return append([]ChecklistChoice(nil), in...)
}
