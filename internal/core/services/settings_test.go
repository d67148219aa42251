package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.AI, settings.AI)
	assert.Equal(t, defaults.Shared, settings.Shared)
	assert.Equal(t, defaults.Engine, settings.Engine)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("ai.provider", "gemini")
	_ = store.Set("ai.api_key", "key")
	_ = store.Set("ai.rps", 2)
	_ = store.Set("shared.redis_addr", "redis:6380")
	_ = store.Set("shared.poll_seconds", 15)
	_ = store.Set("engine.debounce_ms", 50)
	_ = store.Set("engine.max_cascade_depth", 8)
	_ = store.Set("engine.ai_respects_lock", true)

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderGemini, settings.AI.Provider)
	assert.Equal(t, "gemini-2.5-flash", settings.AI.Model, "default model fills in")
	assert.Equal(t, "key", settings.AI.APIKey)
	assert.InDelta(t, 2.0, settings.AI.RequestsPerSecond, 0.0001)
	assert.Equal(t, "redis:6380", settings.Shared.RedisAddr)
	assert.Equal(t, 15*time.Second, settings.Shared.PollInterval)
	assert.Equal(t, 50*time.Millisecond, settings.Engine.DebounceWindow)
	assert.Equal(t, 8, settings.Engine.MaxCascadeDepth)
	assert.True(t, settings.Engine.AIRespectsLock)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("ai.provider", "invalid_provider")

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderNone, settings.AI.Provider)
	assert.Empty(t, settings.AI.Model)
}

func TestSettingsService_SaveAndGet(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := &domain.AppSettings{
		AI: domain.AISettings{
			Provider:          domain.AIProviderOllama,
			Model:             "qwen3",
			BaseURL:           "http://gpu:11434",
			RequestsPerSecond: 0.5,
		},
		Shared: domain.SharedSettings{
			RedisAddr:    "shared:6379",
			PollInterval: 30 * time.Second,
		},
		Engine: domain.EngineSettings{
			DebounceWindow:  100 * time.Millisecond,
			MaxCascadeDepth: 16,
			AIRespectsLock:  true,
		},
	}

	require.NoError(t, service.Save(settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, got)
}

func TestSettingsService_Save_KeepsStoredAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("ai.api_key", "existing")
	service := NewSettingsService(store)

	require.NoError(t, service.Save(&domain.AppSettings{AI: domain.AISettings{Provider: domain.AIProviderGemini}}))

	assert.Equal(t, "existing", store.GetString("ai.api_key"))
}

func TestSettingsService_Save_FailureKeepsStoredSettings(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.SetAIProvider(domain.AIProviderOllama, "mistral", ""))

	boom := errors.New("disk full")
	store.SetFailure(boom)
	err := service.SetAIProvider(domain.AIProviderGemini, "", "secret")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "save settings")

	store.SetFailure(nil)
	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, got.AI.Provider)
	assert.Equal(t, "mistral", got.AI.Model)
	assert.Empty(t, got.AI.APIKey)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"ai.provider", "ollama", "ollama"},
		{"ai.provider", "", ""},
		{"ai.model", "llama3.2", "llama3.2"},
		{"ai.rps", "1.5", 1.5},
		{"shared.poll_seconds", "5", int64(5)},
		{"engine.debounce_ms", "0", int64(0)},
		{"engine.max_cascade_depth", "12", int64(12)},
		{"engine.ai_respects_lock", "true", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			require.NoError(t, service.Set(tt.key, tt.value))

			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ai.provider", "openai"},
		{"ai.rps", "fast"},
		{"ai.rps", "-1"},
		{"shared.poll_seconds", "-5"},
		{"engine.max_cascade_depth", "deep"},
		{"engine.ai_respects_lock", "maybe"},
		{"search.mode", "hybrid"},
	}

	service := NewSettingsService(memory.NewConfigStore())
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.ErrorIs(t, service.Set(tt.key, tt.value), domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_SetAIProvider(t *testing.T) {
	t.Run("gemini with key", func(t *testing.T) {
		store := memory.NewConfigStore()
		service := NewSettingsService(store)

		require.NoError(t, service.SetAIProvider(domain.AIProviderGemini, "", "secret"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderGemini, settings.AI.Provider)
		assert.Equal(t, "gemini-2.5-flash", settings.AI.Model)
		assert.Equal(t, "secret", settings.AI.APIKey)
		assert.Empty(t, settings.AI.BaseURL)
	})

	t.Run("gemini without key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())

		err := service.SetAIProvider(domain.AIProviderGemini, "", "")
		assert.Error(t, err)
	})

	t.Run("ollama gets local base url", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())

		require.NoError(t, service.SetAIProvider(domain.AIProviderOllama, "mistral", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "mistral", settings.AI.Model)
		assert.Equal(t, "http://localhost:11434", settings.AI.BaseURL)
	})

	t.Run("invalid provider", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())

		assert.Error(t, service.SetAIProvider("openai", "", "key"))
	})
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())
		assert.NoError(t, service.Validate())
	})

	t.Run("gemini without key", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("ai.provider", "gemini")
		service := NewSettingsService(store)

		assert.Error(t, service.Validate())
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestRuntimeOptionsFromSettings(t *testing.T) {
	opts := RuntimeOptionsFromSettings(domain.EngineSettings{
		DebounceWindow:  time.Second,
		MaxCascadeDepth: 3,
		AIRespectsLock:  true,
	})

	assert.Equal(t, time.Second, opts.DebounceWindow)
	assert.Equal(t, 3, opts.MaxCascadeDepth)
	assert.True(t, opts.AIRespectsLock)
}
