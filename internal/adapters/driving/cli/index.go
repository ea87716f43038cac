package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	indexSource  string
	indexBaseURI string
	indexMIME    string
	indexJSON    bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index documents into the vector index",
	Long: `Normalises, chunks, embeds and stores documents. Each path is a file or a
directory; directories are indexed recursively, skipping hidden entries and
files no normaliser can read.

Re-indexing a source replaces everything previously stored for it.

For a single file, --source names the document (default: the file name) and
--base-uri sets the location relative image references resolve against.
For directories, --source is a prefix for the relative file paths.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexSource, "source", "s", "", "source name (prefix for directories)")
	indexCmd.Flags().StringVar(&indexBaseURI, "base-uri", "", "base location for resolving image references")
	indexCmd.Flags().StringVar(&indexMIME, "mime", "", "override the detected MIME type")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}
	if len(args) > 1 && (indexBaseURI != "" || indexMIME != "") {
		return fmt.Errorf("%w: --base-uri and --mime need a single path", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	var results []*domain.IndexResult
	var entries []indexEntry
	var failed int
	report := func(raw domain.RawDocument) {
		result, err := indexService.IndexDocument(ctx, raw)
		if err != nil {
			failed++
			cmd.PrintErrf("Failed to index %s: %v\n", raw.Source, err)
			// A partial write still carries the count of persisted records.
			if result == nil {
				result = &domain.IndexResult{Source: raw.Source}
			}
			entries = append(entries, indexEntry{IndexResult: result, Error: err.Error()})
			return
		}
		results = append(results, result)
		entries = append(entries, indexEntry{IndexResult: result})
		if !indexJSON {
			printIndexResult(cmd, result)
		}
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			failed++
			cmd.PrintErrf("Failed to read %s: %v\n", path, err)
			continue
		}

		if !info.IsDir() {
			raw, err := filesystem.ReadFile(path, singleSource(args))
			if err != nil {
				failed++
				cmd.PrintErrf("Failed to read %s: %v\n", path, err)
				continue
			}
			if indexBaseURI != "" {
				raw.BaseURI = indexBaseURI
			}
			if indexMIME != "" {
				raw.MIMEType = indexMIME
			}
			report(raw)
			continue
		}

		connector := filesystem.New(indexSource, path, supportedMIMETypes)
		docs, errs := connector.Walk(ctx)
		for raw := range docs {
			report(raw)
		}
		for err := range errs {
			failed++
			cmd.PrintErrf("Failed to walk %s: %v\n", path, err)
		}
	}

	if indexJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printIndexSummary(cmd, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed to index", failed)
	}
	if len(results) == 0 {
		return errors.New("no documents found")
	}
	return nil
}

// indexEntry is one document of the --json output.
type indexEntry struct {
	*domain.IndexResult
	Error string `json:"error,omitempty"`
}

// singleSource returns the --source flag when it names a single file.
func singleSource(args []string) string {
	if len(args) == 1 {
		return indexSource
	}
	return ""
}

func printIndexResult(cmd *cobra.Command, r *domain.IndexResult) {
	st := stylesFor(cmd.OutOrStdout())
	cmd.Printf("Indexed %s: %d chunks (%d text, %d image)\n",
		r.Source, r.ChunksWritten, r.TextChunks, r.ImageChunks)
	if r.ChunksSkipped > 0 {
		cmd.Printf("  %s\n", st.Warn(fmt.Sprintf("%d chunk(s) skipped without content", r.ChunksSkipped)))
	}
	if r.FragmentsSkipped > 0 {
		cmd.Printf("  %s\n", st.Warn(fmt.Sprintf("%d unparseable fragment(s) skipped", r.FragmentsSkipped)))
	}
	if r.VisionFallbacks > 0 {
		cmd.Printf("  %s\n", st.Warn(fmt.Sprintf("%d image(s) embedded without a description", r.VisionFallbacks)))
	}
}

func printIndexSummary(cmd *cobra.Command, results []*domain.IndexResult) {
	if len(results) < 2 {
		return
	}
	var chunks int
	for _, r := range results {
		chunks += r.ChunksWritten
	}
	cmd.Println()
	cmd.Printf("%d documents, %d chunks indexed.\n", len(results), chunks)
}
