package domain

// AnnotationRecord is one submitted annotation with its author.
type AnnotationRecord struct {
	DocumentRef string
	Annotator   string
	Annotation  Annotation
}

// AnnotatorCount is one leaderboard entry.
type AnnotatorCount struct {
	Annotator string
	Count     int
}

// Stats summarises a set of annotation records.
type Stats struct {
	// Total is the number of records.
	Total int

	// ValueCounts maps field id to value to occurrences.
	// Boolean values are counted as "TRUE" and "FALSE".
	ValueCounts map[string]map[string]int

	// BucketCounts maps checklist field id to final bucket label to occurrences.
	BucketCounts map[string]map[string]int

	// MeanScores maps checklist field id to the mean checklist sum.
	MeanScores map[string]float64

	// Leaderboard lists annotators by descending record count.
	Leaderboard []AnnotatorCount
}
