package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAIProvider      = "ai.provider"
	keyAIModel         = "ai.model"
	keyAIBaseURL       = "ai.base_url"
	keyAIAPIKey        = "ai.api_key"
	keyAIRPS           = "ai.rps"
	keySharedRedisAddr = "shared.redis_addr"
	keySharedPollSecs  = "shared.poll_seconds"
	keyEngineDebounce  = "engine.debounce_ms"
	keyEngineMaxDepth  = "engine.max_cascade_depth"
	keyEngineAILock    = "engine.ai_respects_lock"
)

// SettingKeys lists the keys accepted by Set.
func SettingKeys() []string {
	return []string{
		keyAIProvider, keyAIModel, keyAIBaseURL, keyAIAPIKey, keyAIRPS,
		keySharedRedisAddr, keySharedPollSecs,
		keyEngineDebounce, keyEngineMaxDepth, keyEngineAILock,
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		AI: domain.AISettings{
			Provider:          s.getProvider(defaults.AI.Provider),
			Model:             s.configStore.GetString(keyAIModel),
			BaseURL:           s.configStore.GetString(keyAIBaseURL),
			APIKey:            s.configStore.GetString(keyAIAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyAIRPS),
		},
		Shared: domain.SharedSettings{
			RedisAddr:    s.getString(keySharedRedisAddr, defaults.Shared.RedisAddr),
			PollInterval: s.getSeconds(keySharedPollSecs, defaults.Shared.PollInterval),
		},
		Engine: domain.EngineSettings{
			DebounceWindow:  s.getMillis(keyEngineDebounce, defaults.Engine.DebounceWindow),
			MaxCascadeDepth: s.getInt(keyEngineMaxDepth, defaults.Engine.MaxCascadeDepth),
			AIRespectsLock:  s.getBool(keyEngineAILock, defaults.Engine.AIRespectsLock),
		},
	}

	if settings.AI.Provider.IsValid() && settings.AI.Model == "" {
		settings.AI.Model = domain.DefaultAIModels()[settings.AI.Provider]
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyAIProvider:      settings.AI.Provider.String(),
		keyAIModel:         settings.AI.Model,
		keyAIBaseURL:       settings.AI.BaseURL,
		keyAIRPS:           settings.AI.RequestsPerSecond,
		keySharedRedisAddr: settings.Shared.RedisAddr,
		keySharedPollSecs:  int(settings.Shared.PollInterval / time.Second),
		keyEngineDebounce:  int(settings.Engine.DebounceWindow / time.Millisecond),
		keyEngineMaxDepth:  settings.Engine.MaxCascadeDepth,
		keyEngineAILock:    settings.Engine.AIRespectsLock,
	}
	// Keep a stored key when the caller did not supply one.
	if settings.AI.APIKey != "" {
		values[keyAIAPIKey] = settings.AI.APIKey
	}

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Set updates a single setting by key, converting value to the key's type.
func (s *SettingsService) Set(key, value string) error {
	switch key {
	case keyAIProvider:
		provider := domain.AIProvider(value)
		if provider != domain.AIProviderNone && !provider.IsValid() {
			return fmt.Errorf("%w: unknown AI provider %q", domain.ErrInvalidInput, value)
		}
		return s.configStore.Set(key, value)
	case keyAIModel, keyAIBaseURL, keyAIAPIKey, keySharedRedisAddr:
		return s.configStore.Set(key, value)
	case keyAIRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		return s.configStore.Set(key, f)
	case keySharedPollSecs, keyEngineDebounce, keyEngineMaxDepth:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		return s.configStore.Set(key, n)
	case keyEngineAILock:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		return s.configStore.Set(key, b)
	default:
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidInput, key, strings.Join(SettingKeys(), ", "))
	}
}

// SetAIProvider configures the AI suggestion provider.
func (s *SettingsService) SetAIProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid AI provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.AI.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.AI.Model = model
	} else {
		settings.AI.Model = domain.DefaultAIModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.AI.BaseURL == "" {
			settings.AI.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.AI.BaseURL = ""
	}

	settings.AI.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.AI.Provider != domain.AIProviderNone && !settings.AI.IsConfigured() {
		return fmt.Errorf("AI provider %q is not fully configured", settings.AI.Provider.Description())
	}
	if settings.Engine.MaxCascadeDepth < 1 {
		return fmt.Errorf("%s must be at least 1", keyEngineMaxDepth)
	}
	if settings.Shared.PollInterval < 0 {
		return fmt.Errorf("%s must not be negative", keySharedPollSecs)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if n := s.configStore.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if n := s.configStore.GetInt(key); n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return defaultVal
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyAIProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
