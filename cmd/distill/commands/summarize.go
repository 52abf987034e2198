package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/source"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize PDFs, web pages or text",
	Long: `Summarize one or more inputs with the configured language model.

Examples:
  distill summarize -u "https://example.com/post"
  distill summarize -f paper.pdf --max-length 300 --format text
  cat notes.txt | distill summarize -t -`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	addInputFlags(summarizeCmd)
	flags := summarizeCmd.Flags()
	flags.Int("max-length", 0, "target summary length in words (default from config, 1000)")
	flags.Bool("include-metadata", true, "include document metadata in the result")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	maxLength, _ := cmd.Flags().GetInt("max-length")
	includeMetadata, _ := cmd.Flags().GetBool("include-metadata")

	return runEach(cmd, func(ctx context.Context, d *distill.Distiller, in source.Input) (any, error) {
		return d.Summarize(ctx, distill.SummarizeRequest{
			Input:           in,
			MaxLength:       maxLength,
			IncludeMetadata: includeMetadata,
		})
	})
}
