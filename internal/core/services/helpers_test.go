package services

import (
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func ptr(f float64) *float64 { return &f }

// retractTemplate has trigger T with rules v1->(A,"x") and v2->(B,"y").
func retractTemplate() *domain.Template {
	return &domain.Template{
		Name: "Retract",
		Fields: []domain.Field{
			{
				ID:      "T",
				Label:   "Trigger",
				Type:    domain.FieldTypeSelect,
				Options: []string{"v1", "v2", "v3"},
				AutoFillRules: []domain.Rule{
					{TriggerValue: "v1", TargetID: "A", TargetValue: "x"},
					{TriggerValue: "v2", TargetID: "B", TargetValue: "y"},
				},
			},
			{ID: "A", Label: "A", Type: domain.FieldTypeSelect, Options: []string{"x", "z"}},
			{ID: "B", Label: "B", Type: domain.FieldTypeSelect, Options: []string{"y", "z"}},
		},
	}
}

// cycleTemplate has two booleans whose rules flip each other forever.
func cycleTemplate() *domain.Template {
	return &domain.Template{
		Name: "Cycle",
		Fields: []domain.Field{
			{
				ID:   "P",
				Type: domain.FieldTypeBoolean,
				AutoFillRules: []domain.Rule{
					{TriggerValue: "true", TargetID: "Q", TargetValue: "true"},
					{TriggerValue: "false", TargetID: "Q", TargetValue: "false"},
				},
			},
			{
				ID:   "Q",
				Type: domain.FieldTypeBoolean,
				AutoFillRules: []domain.Rule{
					{TriggerValue: "true", TargetID: "P", TargetValue: "false"},
					{TriggerValue: "false", TargetID: "P", TargetValue: "true"},
				},
			},
		},
	}
}

// diamondTemplate reaches A from T along three acyclic branches that
// write x, then y, then x again.
func diamondTemplate() *domain.Template {
	on := []string{"on", "off"}
	return &domain.Template{
		Name: "Diamond",
		Fields: []domain.Field{
			{
				ID:      "T",
				Type:    domain.FieldTypeSelect,
				Options: on,
				AutoFillRules: []domain.Rule{
					{TriggerValue: "on", TargetID: "A", TargetValue: "x"},
					{TriggerValue: "on", TargetID: "B", TargetValue: "on"},
					{TriggerValue: "on", TargetID: "D", TargetValue: "on"},
				},
			},
			{ID: "A", Type: domain.FieldTypeSelect, Options: []string{"x", "y"}},
			{
				ID:            "B",
				Type:          domain.FieldTypeSelect,
				Options:       on,
				AutoFillRules: []domain.Rule{{TriggerValue: "on", TargetID: "A", TargetValue: "y"}},
			},
			{
				ID:            "D",
				Type:          domain.FieldTypeSelect,
				Options:       on,
				AutoFillRules: []domain.Rule{{TriggerValue: "on", TargetID: "A", TargetValue: "x"}},
			},
		},
	}
}

// chainTemplate links n booleans f0 -> f1 -> ... on "true".
func chainTemplate(n int) *domain.Template {
	t := &domain.Template{Name: "Chain"}
	for i := 0; i < n; i++ {
		f := domain.Field{ID: chainID(i), Type: domain.FieldTypeBoolean}
		if i+1 < n {
			f.AutoFillRules = []domain.Rule{{TriggerValue: "true", TargetID: chainID(i + 1), TargetValue: "true"}}
		}
		t.Fields = append(t.Fields, f)
	}
	return t
}

func chainID(i int) string {
	return "f" + string(rune('0'+i))
}

// checklistField is the scoring example: three yes/no/na items, two
// buckets and a downgrade on item B.
func checklistField() domain.Field {
	return domain.Field{
		ID:    "quality",
		Label: "Quality",
		Type:  domain.FieldTypeChecklist,
		ChecklistItems: []domain.ChecklistItem{
			{ID: "A", Label: "Item A"},
			{ID: "B", Label: "Item B"},
			{ID: "C", Label: "Item C"},
		},
		ChecklistChoices: []domain.ChecklistChoice{
			{Value: "1", Label: "yes"},
			{Value: "0", Label: "no"},
			{Value: "na", Label: "skip"},
		},
		ChecklistScoring: &domain.ChecklistScoring{
			Mode:     domain.ScoringModeSum,
			NALabel:  "Not applicable",
			NAValues: []string{"na"},
			Buckets: []domain.ScoreBucket{
				{Label: "Weak", Min: ptr(0), Max: ptr(1)},
				{Label: "Strong", Min: ptr(2)},
			},
			DowngradeRules: []domain.DowngradeRule{
				{ItemID: "B", MatchValues: []string{"no"}, TargetLabel: "Weak"},
			},
		},
	}
}

// recordingMetrics counts engine metric calls.
type recordingMetrics struct {
	mu        sync.Mutex
	written   map[domain.ProvenanceKind]int
	retracted int
	aborted   int
	applied   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{written: make(map[domain.ProvenanceKind]int)}
}

func (m *recordingMetrics) ValueWritten(kind domain.ProvenanceKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[kind]++
}

func (m *recordingMetrics) ValueRetracted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retracted++
}

func (m *recordingMetrics) CascadeAborted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted++
}

func (m *recordingMetrics) SuggestionsApplied(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied += n
}
