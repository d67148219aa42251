package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

// Ensure ScoringService implements the interface.
var _ driving.ScoringService = (*ScoringService)(nil)

// ScoringService computes checklist scores on demand. It never mutates
// field state.
type ScoringService struct{}

// NewScoringService creates a scoring service.
func NewScoringService() *ScoringService {
	return &ScoringService{}
}

// Compute scores one checklist field from its item selections.
func (s *ScoringService) Compute(field domain.Field, selections map[string]string) (domain.ChecklistResult, error) {
	if field.Type != domain.FieldTypeChecklist {
		return domain.ChecklistResult{}, fmt.Errorf("%w: %q is not a checklist", domain.ErrInvalidInput, field.ID)
	}
	if field.ChecklistScoring == nil {
		return domain.ChecklistResult{}, fmt.Errorf("%w: %q", domain.ErrNoScoring, field.ID)
	}
	return ComputeChecklistResult(field.ChecklistItems, field.ChecklistChoices, *field.ChecklistScoring, selections), nil
}

// ComputeAll scores every scored checklist field of an annotation.
func (s *ScoringService) ComputeAll(tmpl *domain.Template, a domain.Annotation) map[string]domain.ChecklistResult {
	out := make(map[string]domain.ChecklistResult)
	if tmpl == nil {
		return out
	}
	for i := range tmpl.Fields {
		f := tmpl.Fields[i]
		if f.Type != domain.FieldTypeChecklist || f.ChecklistScoring == nil {
			continue
		}
		res, err := s.Compute(f, a.Items[f.ID])
		if err != nil {
			continue
		}
		out[f.ID] = res
	}
	return out
}

// ComputeChecklistResult scores item selections against a scoring config.
//
// Each selection resolves to a choice (the item's own choices, else
// choices). Selections that no longer match a choice, and choices whose
// value or label is listed in NAValues, count as not applicable. Other
// numeric values are summed; non-numeric values are ignored. The first
// bucket containing the sum gives the base label, then downgrade rules
// apply in order and the last match wins.
func ComputeChecklistResult(
	items []domain.ChecklistItem,
	choices []domain.ChecklistChoice,
	scoring domain.ChecklistScoring,
	selections map[string]string,
) domain.ChecklistResult {
	if len(choices) == 0 {
		choices = domain.DefaultChecklistChoices()
	}
	naValues := scoring.NAValues
	if len(naValues) == 0 {
		naValues = []string{"na"}
	}
	res := domain.ChecklistResult{NALabel: scoring.NALabel}
	if res.NALabel == "" {
		res.NALabel = "N/A"
	}

	resolved := make(map[string]domain.ChecklistChoice, len(items))
	for i := range items {
		item := &items[i]
		sel := selections[item.ID]
		if sel == "" {
			res.Unanswered++
			continue
		}
		res.Answered++

		effective := choices
		if len(item.Choices) > 0 {
			effective = item.Choices
		}
		choice, ok := resolveChoice(effective, sel)
		if !ok {
			res.NACount++
			continue
		}
		resolved[item.ID] = choice
		if matchesAny(choice, sel, naValues) {
			res.NACount++
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(choice.Value), 64)
		if err != nil {
			continue
		}
		res.Sum += n
	}

	for _, b := range scoring.Buckets {
		if b.Contains(res.Sum) {
			res.BaseLabel = b.Label
			break
		}
	}
	res.BucketLabel = res.BaseLabel

	for _, rule := range scoring.DowngradeRules {
		sel := selections[rule.ItemID]
		if sel == "" {
			continue
		}
		if matchesAny(resolved[rule.ItemID], sel, rule.MatchValues) {
			res.BucketLabel = rule.TargetLabel
		}
	}
	res.Downgraded = res.BucketLabel != res.BaseLabel
	return res
}

// matchesAny reports whether the raw selection, or the resolved choice's
// value or label, is among candidates. Comparison ignores case.
func matchesAny(choice domain.ChecklistChoice, sel string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(c, sel) ||
			(choice.Value != "" && strings.EqualFold(c, choice.Value)) ||
			(choice.Label != "" && strings.EqualFold(c, choice.Label)) {
			return true
		}
	}
	return false
}
