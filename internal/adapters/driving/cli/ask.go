package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	askTopK int
	askType string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the passages most similar to the question and answers from them.

The answer carries a confidence grade derived from the best similarity score,
the sources it drew on and up to three follow-up questions. When nothing
relevant is indexed, the answer says so instead of guessing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
	askCmd.Flags().StringVarP(&askType, "type", "t", "", "restrict retrieval to text or image passages")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errNotConfigured("answer")
	}

	contentType, err := domain.ParseContentType(askType)
	if err != nil {
		return fmt.Errorf("%w: --type must be text or image", err)
	}
	if askTopK < 0 {
		return fmt.Errorf("%w: --top-k must not be negative", domain.ErrInvalidInput)
	}

	question := strings.Join(args, " ")
	answer, err := answerService.Ask(cmd.Context(), question, domain.AskOptions{
		TopK:        askTopK,
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, a *domain.Answer) {
	st := stylesFor(cmd.OutOrStdout())

	cmd.Printf("%s %s\n", st.Heading("Answer"), st.Confidence(a.Confidence))
	cmd.Println()
	cmd.Println(a.AnswerText)

	if a.Outcome != domain.OutcomeAnswered && a.Reason != "" {
		cmd.Println()
		cmd.Println(st.Warn("Note: " + a.Reason))
	}

	if len(a.Sources) > 0 {
		cmd.Println()
		cmd.Println(st.Heading("Sources"))
		for i, src := range a.Sources {
			cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, src.Source, src.ContentType, src.Score)
			if src.Preview != "" {
				cmd.Printf("      %s\n", st.Dim(src.Preview))
			}
		}
	}

	if len(a.FollowUps) > 0 {
		cmd.Println()
		cmd.Println(st.Heading("Follow-up questions"))
		for _, q := range a.FollowUps {
			cmd.Printf("  - %s\n", q)
		}
	}

	cmd.Println()
	cmd.Println(st.Dim(fmt.Sprintf("top score %.2f, %d/%d relevant, %s",
		a.Metrics.TopScore, a.Metrics.Relevant, a.Metrics.Retrieved, a.Elapsed.Round(time.Millisecond))))
}
