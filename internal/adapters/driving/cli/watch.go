package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	watchSource  string
	watchInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory indexed as it changes",
	Long: `Indexes a directory, then re-indexes files as they are created or modified
and removes deleted files from the index. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSource, "source", "s", "", "prefix for source names")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "index existing files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	ctx := cmd.Context()
	connector := filesystem.New(watchSource, args[0], supportedMIMETypes)
	defer connector.Close()

	changes, err := connector.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}

	if watchInitial {
		docs, errs := connector.Walk(ctx)
		for raw := range docs {
			applyChange(ctx, cmd, domain.RawDocumentChange{Type: domain.ChangeCreated, Document: raw})
		}
		for err := range errs {
			cmd.PrintErrf("Failed to walk %s: %v\n", args[0], err)
		}
	}

	cmd.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", connector.Root())
	for change := range changes {
		applyChange(ctx, cmd, change)
	}
	return nil
}

// applyChange mirrors one file change into the index. Failures are reported
// and the watch continues.
func applyChange(ctx context.Context, cmd *cobra.Command, change domain.RawDocumentChange) {
	source := change.Document.Source
	logger.Debug("%s %s", change.Type, source)

	if change.Type == domain.ChangeDeleted {
		removed, err := indexService.RemoveSource(ctx, source)
		if err != nil {
			cmd.PrintErrf("Failed to remove %s: %v\n", source, err)
			return
		}
		if removed > 0 {
			cmd.Printf("Removed %s (%d records)\n", source, removed)
		}
		return
	}

	result, err := indexService.IndexDocument(ctx, change.Document)
	if err != nil {
		cmd.PrintErrf("Failed to index %s: %v\n", source, err)
		return
	}
	printIndexResult(cmd, result)
}
