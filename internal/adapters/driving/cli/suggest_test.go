package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func TestSuggestCmd(t *testing.T) {
	setupTestEnv(t, &fakeSource{answer: domain.Suggestions{
		"design": {Value: "rct", Context: "Abstract"},
		"ghost":  {Value: "x"},
	}})

	out, _, err := executeCommand(t, "", "suggest", "review", "paper.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, `"value": "rct"`)
	assert.NotContains(t, out, "ghost")
}

func TestSuggestCmd_EmptyAnswer(t *testing.T) {
	setupTestEnv(t, &fakeSource{})

	_, stderr, err := executeCommand(t, "", "suggest", "review", "paper.pdf")
	require.NoError(t, err)
	assert.Contains(t, stderr, "No suggestions returned.")
}

func TestModelsCmd(t *testing.T) {
	setupTestEnv(t, &fakeSource{})

	out, _, err := executeCommand(t, "", "models")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash\ngemini-2.5-pro\n", out)
}

func TestSuggestCmd_Unavailable(t *testing.T) {
	setupTestEnv(t, nil)

	_, _, err := executeCommand(t, "", "suggest", "review", "paper.pdf")
	assert.ErrorIs(t, err, domain.ErrSuggestionsUnavailable)

	_, _, err = executeCommand(t, "", "models")
	assert.ErrorIs(t, err, domain.ErrSuggestionsUnavailable)
}
