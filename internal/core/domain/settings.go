package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service that can suggest field values.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables AI suggestions.
	AIProviderNone AIProvider = ""

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderNone:
		return "None (AI suggestions disabled)"
	default:
		return unknownDescription
	}
}

// AISettings holds AI suggestion provider configuration.
type AISettings struct {
	// Provider is the suggestion service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for Gemini).
	APIKey string

	// RequestsPerSecond limits calls to the provider. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the AI provider is set up.
func (a AISettings) IsConfigured() bool {
	if !a.Provider.IsValid() {
		return false
	}
	if a.Provider.RequiresAPIKey() && a.APIKey == "" {
		return false
	}
	return true
}

// SharedSettings holds shared template context configuration.
type SharedSettings struct {
	// RedisAddr is the address of the shared template store.
	RedisAddr string

	// PollInterval is how often the shared template is checked for upstream changes.
	PollInterval time.Duration
}

// EngineSettings tunes the field engine.
type EngineSettings struct {
	// DebounceWindow coalesces "fields updated" notices.
	DebounceWindow time.Duration

	// MaxCascadeDepth bounds rule propagation.
	MaxCascadeDepth int

	// AIRespectsLock makes the AI overlay skip locked fields.
	AIRespectsLock bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	AI     AISettings
	Shared SharedSettings
	Engine EngineSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI suggestions are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		AI: AISettings{},
		Shared: SharedSettings{
			RedisAddr:    "localhost:6379",
			PollInterval: 60 * time.Second,
		},
		Engine: EngineSettings{
			DebounceWindow:  300 * time.Millisecond,
			MaxCascadeDepth: 64,
			AIRespectsLock:  false,
		},
	}
}

// AllAIProviders returns providers that can suggest field values.
func AllAIProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
	}
}

// DefaultAIModels returns default models for each provider.
func DefaultAIModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "gemini-2.5-flash",
		AIProviderOllama: "llama3.2",
	}
}

// GeminiModels returns the Gemini models offered for suggestions.
func GeminiModels() []string {
	return []string{
		"gemini-2.5-flash-lite",
		"gemini-2.5-flash",
		"gemini-2.5-pro",
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemma-3-27b-it",
		"gemma-3n-e4b-it",
	}
}

// SettingValue converts v to the type a setting is stored as: string, bool,
// int64 or float64.
func SettingValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case time.Duration:
		return nil, fmt.Errorf("%w: durations are stored as whole seconds or milliseconds", ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unsupported setting type %T", ErrInvalidInput, v)
	}
}
