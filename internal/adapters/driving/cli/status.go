package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	statusJSON  bool
	sourcesJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of the index and models",
	Long: `Reports whether the vector index is reachable and how many records it holds,
and whether the embedding, vision and generation models are configured and
responding.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed sources",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var removeCmd = &cobra.Command{
	Use:   "remove [source]",
	Short: "Remove a source from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output sources as JSON")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(removeCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errNotConfigured("status")
	}

	status := statusService.Status(cmd.Context())

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.Heading("Index"))
	cmd.Printf("  Backend: %s\n", status.Index.Backend)
	cmd.Printf("  Status: %s\n", st.Status(true, status.Index.Reachable))
	cmd.Printf("  Records: %d\n", status.Index.RecordCount)
	cmd.Printf("  Dimension: %d\n", status.Index.Dimension)
	if status.Index.Error != "" {
		cmd.Printf("  Error: %s\n", st.Fail(status.Index.Error))
	}
	cmd.Println()

	printModelHealth(cmd, st, "Embedding", status.Embedding)
	printModelHealth(cmd, st, "Vision", status.Vision)
	printModelHealth(cmd, st, "Generation", status.Generation)

	if status.Ready() {
		cmd.Println(st.OK("Ready to answer questions."))
	} else {
		cmd.Println(st.Warn("Not ready: the index and embedding model must both be reachable."))
	}
	return nil
}

func printModelHealth(cmd *cobra.Command, st *Styles, name string, h domain.ModelHealth) {
	cmd.Println(st.Heading(name))
	cmd.Printf("  Status: %s\n", st.Status(h.Configured, h.Reachable))
	if h.Provider != "" {
		cmd.Printf("  Provider: %s\n", h.Provider)
	}
	if h.Model != "" {
		cmd.Printf("  Model: %s\n", h.Model)
	}
	if h.Error != "" {
		cmd.Printf("  Error: %s\n", st.Fail(h.Error))
	}
	cmd.Println()
}

func runSources(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	sources, err := indexService.ListSources(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if sourcesJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(sources) == 0 {
		cmd.Println("No sources indexed.")
		return nil
	}

	cmd.Println("Sources:")
	for _, s := range sources {
		cmd.Printf("  %s  %d records (%d text, %d image)\n", s.Source, s.RecordCount, s.TextCount, s.ImageCount)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}

	removed, err := indexService.RemoveSource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	if removed == 0 {
		cmd.Printf("Source %s was not indexed.\n", args[0])
		return nil
	}
	cmd.Printf("Removed %d records of %s.\n", removed, args[0])
	return nil
}
