package domain

// ScoringModeSum adds the numeric value of every scored item.
const ScoringModeSum = "sum"

// ChecklistScoring turns checklist selections into a labelled score.
type ChecklistScoring struct {
	// Mode is the aggregation mode. Only "sum" is supported.
	Mode string `json:"mode" yaml:"mode"`

	// NALabel names the tally of not-applicable answers.
	NALabel string `json:"naLabel,omitempty" yaml:"naLabel,omitempty"`

	// NAValues are choice values (or labels) excluded from the sum.
	NAValues []string `json:"naValues,omitempty" yaml:"naValues,omitempty"`

	// Buckets are evaluated in declaration order; the first match wins.
	Buckets []ScoreBucket `json:"buckets,omitempty" yaml:"buckets,omitempty"`

	// DowngradeRules override the bucket label in declaration order; the last match wins.
	DowngradeRules []DowngradeRule `json:"downgradeRules,omitempty" yaml:"downgradeRules,omitempty"`
}

// ScoreBucket is a labelled numeric range. A nil bound is unbounded.
type ScoreBucket struct {
	Label string   `json:"label" yaml:"label"`
	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains reports whether sum falls inside the bucket's closed range.
func (b ScoreBucket) Contains(sum float64) bool {
	if b.Min != nil && sum < *b.Min {
		return false
	}
	if b.Max != nil && sum > *b.Max {
		return false
	}
	return true
}

// DowngradeRule forces TargetLabel when ItemID's selection is in MatchValues.
type DowngradeRule struct {
	ItemID      string   `json:"itemId" yaml:"itemId"`
	MatchValues []string `json:"matchValues" yaml:"matchValues"`
	TargetLabel string   `json:"targetLabel" yaml:"targetLabel"`
}

// ChecklistResult is the derived score of a checklist field.
type ChecklistResult struct {
	// Sum is the total of scoring-eligible item values.
	Sum float64

	// NACount is the number of items answered with a not-applicable choice.
	NACount int

	// NALabel is the scoring configuration's label for NACount.
	NALabel string

	// Answered is the number of items with a selection.
	Answered int

	// Unanswered is the number of items without a selection.
	Unanswered int

	// BaseLabel is the bucket that contains Sum, empty if none does.
	BaseLabel string

	// BucketLabel is the final label after downgrade rules.
	BucketLabel string

	// Downgraded is true when a downgrade rule changed the label.
	Downgraded bool
}

func (s ChecklistScoring) clone() ChecklistScoring {
	out := s
	out.NAValues = cloneStrings(s.NAValues)
	if s.Buckets != nil {
		out.Buckets = make([]ScoreBucket, len(s.Buckets))
		for i, b := range s.Buckets {
			out.Buckets[i] = ScoreBucket{Label: b.Label, Min: cloneFloat(b.Min), Max: cloneFloat(b.Max)}
		}
	}
	if s.DowngradeRules != nil {
		out.DowngradeRules = make([]DowngradeRule, len(s.DowngradeRules))
		for i, r := range s.DowngradeRules {
			r.MatchValues = cloneStrings(r.MatchValues)
			out.DowngradeRules[i] = r
		}
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
