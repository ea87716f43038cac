// Package cli implements the docqa command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// skipBootstrap marks commands that run without the pipeline services.
const skipBootstrap = "skip-bootstrap"

var (
	version = "dev"
	verbose bool

	indexService    driving.IndexService
	answerService   driving.AnswerService
	statusService   driving.StatusService
	settingsService driving.SettingsService

	// supportedMIMETypes limits directory indexing to files a normaliser can read.
	supportedMIMETypes []string

	bootstrap func(ctx context.Context) (*Services, error)
	closeFn   func() error
)

// Services holds the core services the commands drive.
type Services struct {
	Index     driving.IndexService
	Answer    driving.AnswerService
	Status    driving.StatusService
	Settings  driving.SettingsService
	MIMETypes []string

	// Close releases the adapters behind the services.
	Close func() error
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documentation",
	Long: `docqa indexes HTML, Markdown, OpenAPI and plain text documents, including
the images they reference, into a vector index and answers questions from them
with a confidence grade, source attributions and follow-up suggestions.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	indexService = s.Index
	answerService = s.Answer
	statusService = s.Status
	settingsService = s.Settings
	supportedMIMETypes = s.MIMETypes
	closeFn = s.Close
}

// SetBootstrap sets the function that builds the services once flags are parsed.
// It is skipped when services were installed with SetServices.
func SetBootstrap(fn func(ctx context.Context) (*Services, error)) {
	bootstrap = fn
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeFn != nil {
		if cerr := closeFn(); cerr != nil {
			logger.Warn("closing services: %v", cerr)
		}
	}
	return err
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if _, ok := cmd.Annotations[skipBootstrap]; ok {
		return nil
	}
	if bootstrap == nil || indexService != nil || answerService != nil || settingsService != nil {
		return nil
	}

	services, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

// errNotConfigured reports a missing service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
