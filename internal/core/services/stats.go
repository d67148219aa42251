package services

import (
	"sort"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// anonymousAnnotator labels records without an author.
const anonymousAnnotator = "anonymous"

// StatsService aggregates submitted annotations for reporting.
type StatsService struct {
	scoring *ScoringService
}

// NewStatsService creates a stats service.
func NewStatsService(scoring *ScoringService) *StatsService {
	if scoring == nil {
		scoring = NewScoringService()
	}
	return &StatsService{scoring: scoring}
}

// Summarize counts values per field, checklist buckets and mean scores,
// and ranks annotators by number of records.
func (s *StatsService) Summarize(tmpl *domain.Template, records []domain.AnnotationRecord) domain.Stats {
	stats := domain.Stats{
		Total:        len(records),
		ValueCounts:  make(map[string]map[string]int),
		BucketCounts: make(map[string]map[string]int),
		MeanScores:   make(map[string]float64),
	}
	if tmpl == nil {
		return stats
	}

	sums := make(map[string]float64)
	scored := make(map[string]int)
	byAnnotator := make(map[string]int)

	for _, rec := range records {
		name := rec.Annotator
		if name == "" {
			name = anonymousAnnotator
		}
		byAnnotator[name]++

		for i := range tmpl.Fields {
			f := &tmpl.Fields[i]
			if f.Type == domain.FieldTypeChecklist {
				continue
			}
			v := rec.Annotation.Values[f.ID]
			if v == "" {
				continue
			}
			if f.Type == domain.FieldTypeBoolean {
				if norm, ok := normalizeFieldValue(f, v); ok && norm == "true" {
					v = "TRUE"
				} else {
					v = "FALSE"
				}
			}
			increment(stats.ValueCounts, f.ID, v)
		}

		for id, res := range s.scoring.ComputeAll(tmpl, rec.Annotation) {
			if res.Answered == 0 {
				continue
			}
			sums[id] += res.Sum
			scored[id]++
			if res.BucketLabel != "" {
				increment(stats.BucketCounts, id, res.BucketLabel)
			}
		}
	}

	for id, n := range scored {
		stats.MeanScores[id] = sums[id] / float64(n)
	}

	stats.Leaderboard = make([]domain.AnnotatorCount, 0, len(byAnnotator))
	for name, n := range byAnnotator {
		stats.Leaderboard = append(stats.Leaderboard, domain.AnnotatorCount{Annotator: name, Count: n})
	}
	sort.Slice(stats.Leaderboard, func(i, j int) bool {
		a, b := stats.Leaderboard[i], stats.Leaderboard[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Annotator < b.Annotator
	})
	return stats
}

func increment(m map[string]map[string]int, key, value string) {
	if m[key] == nil {
		m[key] = make(map[string]int)
	}
	m[key][value]++
}
