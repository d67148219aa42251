package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvenance_String(t *testing.T) {
	assert.Equal(t, "manual", Manual().String())
	assert.Equal(t, "autofilled(t)", Autofilled("t").String())
	assert.Equal(t, "ai-suggested", AISuggested().String())
	assert.Equal(t, "manual", Provenance{}.String())
}

func TestProvenance_IsAutofilledBy(t *testing.T) {
	p := Autofilled("trigger")

	assert.True(t, p.IsAutofilledBy("trigger"))
	assert.False(t, p.IsAutofilledBy("other"))
	assert.False(t, Manual().IsAutofilledBy(""))
}

func TestFieldState_Clone(t *testing.T) {
	s := FieldState{
		Value:    "x",
		Items:    map[string]string{"a": "1"},
		Snapshot: &AISnapshot{Value: "v0"},
	}

	c := s.Clone()
	c.Items["a"] = "0"
	c.Snapshot.Value = "changed"

	assert.Equal(t, "1", s.Items["a"])
	assert.Equal(t, "v0", s.Snapshot.Value)
}

func TestAnnotation_FlattenAndParse(t *testing.T) {
	tmpl := sampleTemplate()
	a := NewAnnotation()
	a.Values["trigger_funding"] = "true"
	a.Values["ethics_COI"] = "true"
	a.Items["quality"] = map[string]string{"a": "1", "b": "2"}
	a.Contexts["trigger_funding"] = "funded by"
	a.Contexts["ethics_COI"] = ""
	a.Reasonings["trigger_funding"] = "because"

	row := a.Flatten()

	assert.Equal(t, map[string]string{
		"trigger_funding":           "true",
		"ethics_COI":                "true",
		"quality__a":                "1",
		"quality__b":                "2",
		"trigger_funding_context":   "funded by",
		"trigger_funding_reasoning": "because",
	}, row)

	row["unrelated"] = "ignored"
	parsed := ParseFlatAnnotation(tmpl, row)

	assert.Equal(t, "true", parsed.Values["trigger_funding"])
	assert.Equal(t, "2", parsed.Items["quality"]["b"])
	assert.Equal(t, "funded by", parsed.Contexts["trigger_funding"])
	assert.Equal(t, "because", parsed.Reasonings["trigger_funding"])
	assert.NotContains(t, parsed.Values, "unrelated")
	assert.NotContains(t, parsed.Values, "quality")
}
