package driven

// ConfigStore persists settings under dot keys such as "ai.provider" or
// "engine.max_cascade_depth". The part before the first dot names the
// section the key belongs to.
//
// Values are strings, bools, int64s or float64s. Other integer and float
// types are converted on write; anything else is rejected without changing
// the store.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't numeric.
	GetInt(key string) int

	// GetFloat retrieves a numeric configuration value as float64.
	// Integers are converted. Returns 0 if key doesn't exist or isn't numeric.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	// Returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// Set stores one value and persists immediately.
	Set(key string, value any) error

	// SetAll stores several values and persists once. If persisting fails
	// the store keeps its previous values.
	SetAll(values map[string]any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
