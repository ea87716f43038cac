package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// stdin is the input of interactive prompts.
var stdin io.Reader = os.Stdin

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change the configuration stored in ~/.docqa/config.toml.

Keys use dotted names such as embedding.provider or retrieval.top_k.
API keys may also come from OPENAI_API_KEY, GOOGLE_API_KEY and
ANTHROPIC_API_KEY when none is stored.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [embedding|vision|generation]",
	Short: "Store a provider API key without echoing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetKey,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and ping every configured provider",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to choose the embedding, generation and vision providers.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cfg, err := settingsService.Get()
	if err != nil {
		cmd.Printf("Warning: %v\n\n", err)
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.Dim("File: " + settingsService.Path()))
	cmd.Println()

	cmd.Println(st.Heading("[Embedding]"))
	printModelSettings(cmd, cfg.Embedding.ModelSettings)
	cmd.Printf("  Dimensions: %d\n", cfg.Embedding.ResolvedDimensions())
	cmd.Println()

	cmd.Println(st.Heading("[Generation]"))
	printModelSettings(cmd, cfg.Generation.ModelSettings)
	cmd.Printf("  Max tokens: %d\n", cfg.Generation.MaxTokens)
	cmd.Printf("  Temperature: %.2f\n", cfg.Generation.Temperature)
	cmd.Println()

	cmd.Println(st.Heading("[Vision]"))
	printModelSettings(cmd, cfg.Vision)
	cmd.Println()

	cmd.Println(st.Heading("[Vector store]"))
	cmd.Printf("  Backend: %s\n", cfg.VectorStore.Backend)
	if cfg.VectorStore.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", cfg.VectorStore.DataDir)
	}
	if cfg.VectorStore.DSN != "" {
		cmd.Printf("  DSN: %s\n", maskDSN(cfg.VectorStore.DSN))
	}
	cmd.Println()

	cmd.Println(st.Heading("[Chunking]"))
	cmd.Printf("  Chunk size: %d-%d characters\n", cfg.Chunking.MinChunkChars, cfg.Chunking.MaxChunkChars)
	cmd.Printf("  Processors: %s\n", strings.Join(cfg.Chunking.Processors, ", "))
	cmd.Println()

	cmd.Println(st.Heading("[Retrieval]"))
	r := cfg.Retrieval
	cmd.Printf("  Top K: %d\n", r.TopK)
	cmd.Printf("  Thresholds: floor %.2f, medium %.2f, high %.2f\n", r.SimilarityFloor, r.MediumThreshold, r.HighThreshold)
	cmd.Printf("  Context budget: %d characters\n", r.MaxContextChars)
	cmd.Printf("  Answer timeout: %s\n", r.AnswerTimeout)
	cmd.Println()

	if err := cfg.Validate(); err != nil {
		cmd.Println(st.Warn(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'docqa config set' to fix configuration issues.")
	} else {
		cmd.Println(st.OK("Configuration is valid."))
	}
	return nil
}

func printModelSettings(cmd *cobra.Command, m domain.ModelSettings) {
	if m.Provider == "" {
		cmd.Println("  Provider: (none)")
		return
	}
	cmd.Printf("  Provider: %s\n", m.Provider.Description())
	cmd.Printf("  Model: %s\n", m.Model)
	if m.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", m.BaseURL)
	}
	if m.Provider.RequiresAPIKey() {
		if m.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(m.APIKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Printf("Enter %s API key: ", args[0])
	key := readPassword()
	cmd.Println()
	if key == "" {
		return fmt.Errorf("%w: empty API key", domain.ErrInvalidInput)
	}

	if err := settingsService.SetAPIKey(args[0], key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Printf("Stored %s API key %s\n", args[0], maskAPIKey(key))
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cfg, err := settingsService.Get()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := settingsService.ValidateProviders(); err != nil {
		return fmt.Errorf("provider check failed: %w", err)
	}
	cmd.Println("Configuration is valid and all configured providers respond.")
	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Println("docqa Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()

	reader := bufio.NewReader(stdin)
	steps := []struct {
		title      string
		capability string
		providers  []domain.AIProvider
		optional   bool
	}{
		{"Embedding Provider", domain.CapabilityEmbedding, domain.AllEmbeddingProviders(), false},
		{"Generation Provider", domain.CapabilityGeneration, domain.AllGenerationProviders(), true},
		{"Vision Provider", domain.CapabilityVision, visionProviders(), true},
	}

	for i, step := range steps {
		cmd.Printf("Step %d: %s\n", i+1, step.title)
		cmd.Println(strings.Repeat("-", len(step.title)+8))

		options := len(step.providers)
		for j, p := range step.providers {
			cmd.Printf("  %d. %s\n", j+1, p.Description())
		}
		if step.optional {
			options++
			cmd.Printf("  %d. None\n", options)
		}
		cmd.Print("\nEnter choice [1]: ")
		choice := parseChoice(readLine(reader), options, 1)
		cmd.Println()

		if choice > len(step.providers) {
			if err := settingsService.Set(step.capability+".provider", ""); err != nil {
				return err
			}
			continue
		}

		provider := step.providers[choice-1]
		if err := settingsService.Set(step.capability+".provider", string(provider)); err != nil {
			return fmt.Errorf("failed to set %s provider: %w", step.capability, err)
		}
		if provider.RequiresAPIKey() {
			cmd.Printf("Enter %s API key (leave empty to use the environment): ", provider)
			if key := readLine(reader); key != "" {
				if err := settingsService.SetAPIKey(step.capability, key); err != nil {
					return fmt.Errorf("failed to store API key: %w", err)
				}
			}
			cmd.Println()
		}
		cmd.Printf("Set %s provider to: %s\n\n", step.capability, provider.Description())
	}

	cmd.Println("Settings saved. Run 'docqa config validate' to check connectivity.")
	return nil
}

func visionProviders() []domain.AIProvider {
	var out []domain.AIProvider
	for _, p := range domain.AllGenerationProviders() {
		if p.SupportsVision() {
			out = append(out, p)
		}
	}
	return out
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		password, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a connection string.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":****" + dsn[at:]
	}
	return dsn
}
