package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the AI provider, the shared template store and the
field engine.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by key.

Keys:
  ai.provider              gemini, ollama or none
  ai.model                 model name
  ai.base_url              Ollama endpoint
  ai.api_key               Gemini API key
  ai.rps                   requests per second to the provider (0 = unlimited)
  shared.redis_addr        address of the shared template store
  shared.poll_seconds      upstream check interval
  engine.debounce_ms       "fields updated" coalescing window
  engine.max_cascade_depth rule propagation bound
  engine.ai_respects_lock  true to keep AI suggestions off locked fields`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsAICmd = &cobra.Command{
	Use:   "ai",
	Short: "Configure the AI suggestion provider",
	Long:  `Pick a provider, a model and (for Gemini) an API key, then check the provider responds.`,
	RunE:  runSettingsAI,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsAICmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[AI]")
	cmd.Printf("  Provider: %s\n", settings.AI.Provider.Description())
	if settings.AI.Provider.IsValid() {
		cmd.Printf("  Model: %s\n", settings.AI.Model)
	}
	if settings.AI.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.AI.BaseURL)
	}
	if settings.AI.Provider.RequiresAPIKey() {
		if settings.AI.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.AI.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if settings.AI.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g req/s\n", settings.AI.RequestsPerSecond)
	}
	status := "configured"
	if !settings.AI.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Shared templates]")
	cmd.Printf("  Redis: %s\n", settings.Shared.RedisAddr)
	cmd.Printf("  Poll interval: %s\n", settings.Shared.PollInterval)
	cmd.Println()

	cmd.Println("[Engine]")
	cmd.Printf("  Debounce window: %s\n", settings.Engine.DebounceWindow)
	cmd.Printf("  Max cascade depth: %d\n", settings.Engine.MaxCascadeDepth)
	cmd.Printf("  AI respects lock: %s\n", yesNo(settings.Engine.AIRespectsLock))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'annotate settings ai' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	key, value := args[0], args[1]
	if key == "ai.provider" && value == "none" {
		value = ""
	}
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	display := value
	if key == "ai.api_key" {
		display = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, display)

	if strings.HasPrefix(key, "ai.") {
		return checkAIConfig(cmd)
	}
	return nil
}

func runSettingsAI(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select AI Provider")
	providers := []domain.AIProvider{domain.AIProviderGemini, domain.AIProviderOllama, domain.AIProviderNone}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	if selected == domain.AIProviderNone {
		if err := settingsService.Set("ai.provider", ""); err != nil {
			return fmt.Errorf("failed to disable AI provider: %w", err)
		}
		cmd.Println("AI suggestions disabled.")
		return nil
	}

	defaultModel := domain.DefaultAIModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetAIProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure AI provider: %w", err)
	}
	if err := checkAIConfig(cmd); err != nil {
		return err
	}
	cmd.Printf("AI provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

// checkAIConfig pings the configured provider.
func checkAIConfig(cmd *cobra.Command) error {
	if aiValidator == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.AI.IsConfigured() {
		return nil
	}
	cmd.Print("Validating configuration... ")
	if err := aiValidator.ValidateSuggestions(&settings.AI); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("AI configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
