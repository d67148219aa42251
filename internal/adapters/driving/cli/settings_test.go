package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsSetAndShow(t *testing.T) {
	setupTestEnv(t, nil)

	out, _, err := executeCommand(t, "", "settings", "set", "engine.max_cascade_depth", "10")
	require.NoError(t, err)
	assert.Equal(t, "engine.max_cascade_depth = 10\n", out)

	out, _, err = executeCommand(t, "", "settings", "set", "ai.api_key", "AIzaSy0123456789")
	require.NoError(t, err)
	assert.Contains(t, out, "ai.api_key = AIza...6789")

	out, _, err = executeCommand(t, "", "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Max cascade depth: 10")
	assert.Contains(t, out, "None (AI suggestions disabled)")
	assert.Contains(t, out, "Status: not configured")
}

func TestSettingsSet_Invalid(t *testing.T) {
	setupTestEnv(t, nil)

	_, _, err := executeCommand(t, "", "settings", "set", "bogus.key", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = executeCommand(t, "", "settings", "set", "--", "engine.debounce_ms", "-5")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsAI_Ollama(t *testing.T) {
	setupTestEnv(t, nil)

	out, _, err := executeCommand(t, "2\n\n", "settings", "ai")
	require.NoError(t, err)
	assert.Contains(t, out, "AI provider configured: Ollama (local) (llama3.2)")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.AI.Provider)
}

func TestSettingsAI_Disable(t *testing.T) {
	setupTestEnv(t, nil)
	require.NoError(t, settingsService.Set("ai.provider", "ollama"))

	out, _, err := executeCommand(t, "3\n", "settings", "ai")
	require.NoError(t, err)
	assert.Contains(t, out, "AI suggestions disabled.")

	_, _, err = executeCommand(t, "", "settings", "set", "ai.provider", "none")
	require.NoError(t, err)
}
