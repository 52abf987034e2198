package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract key points, entities or custom data",
	Long: `Extract structured data from one or more inputs.

Modes:
  key_points  important facts as key/value pairs
  entities    people, organizations, locations and other named entities
  custom      whatever --instructions asks for, optionally shaped by --schema

The schema file is JSON or YAML, either a field list or a JSON Schema object.

Examples:
  distill extract -u "https://example.com" --mode key_points
  distill extract -f contract.pdf --mode custom \
      --instructions "Find the parties and the term" --schema contract.yaml`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	addInputFlags(extractCmd)
	flags := extractCmd.Flags()
	flags.String("mode", string(prompt.ModeKeyPoints), "extraction mode: key_points, entities, custom")
	flags.StringP("instructions", "i", "", "what to extract (required for custom mode)")
	flags.StringP("schema", "s", "", "path to a schema file for custom mode")
	flags.Bool("include-context", false, "describe the source in the result")
}

func runExtract(cmd *cobra.Command, args []string) error {
	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := prompt.ParseMode(modeStr)
	if err != nil || mode == prompt.ModeSummary {
		return fmt.Errorf("unknown extraction mode %q (use key_points, entities, custom)", modeStr)
	}

	instructions, _ := cmd.Flags().GetString("instructions")
	if mode == prompt.ModeCustom && instructions == "" {
		return fmt.Errorf("--instructions is required for custom mode")
	}

	var sch *schema.Schema
	if path, _ := cmd.Flags().GetString("schema"); path != "" {
		data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads user-specified schema file
		if err != nil {
			return err
		}
		s, err := schema.Parse(data)
		if err != nil {
			logger.Error("failed to load schema", "path", path, "error", err)
			return err
		}
		logger.Debug("schema loaded", "name", s.Name, "fields", len(s.Fields))
		sch = &s
	}

	includeContext, _ := cmd.Flags().GetBool("include-context")

	return runEach(cmd, func(ctx context.Context, d *distill.Distiller, in source.Input) (any, error) {
		return d.Extract(ctx, distill.ExtractRequest{
			Input:              in,
			Mode:               mode,
			CustomInstructions: instructions,
			Schema:             sch,
			IncludeContext:     includeContext,
		})
	})
}
