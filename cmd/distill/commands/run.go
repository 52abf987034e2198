package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/internal/output"
	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/source"
)

// addInputFlags registers the source and output flags shared by the
// one-shot commands.
func addInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayP("text", "t", nil, "text to process, - reads stdin (can be repeated)")
	flags.StringSliceP("url", "u", nil, "URL(s) to fetch (can be repeated)")
	flags.StringSliceP("file", "f", nil, "PDF or text file(s) (can be repeated)")

	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")
	flags.Duration("timeout", 5*time.Minute, "overall timeout per input")
}

// collectInputs reads the source flags in text, url, file order.
func collectInputs(cmd *cobra.Command) ([]source.Input, error) {
	texts, _ := cmd.Flags().GetStringArray("text")
	urls, _ := cmd.Flags().GetStringSlice("url")
	files, _ := cmd.Flags().GetStringSlice("file")

	var inputs []source.Input
	for _, t := range texts {
		if t == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			t = string(data)
		}
		inputs = append(inputs, source.Input{Type: source.TypeText, Text: t})
	}
	for _, u := range urls {
		inputs = append(inputs, source.Input{Type: source.TypeURL, URL: u})
	}
	for _, path := range files {
		in, err := fileInput(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// fileInput sniffs a local file: PDFs are sent as uploads, anything that
// looks like text as text.
func fileInput(path string) (source.Input, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads user-specified input file
	if err != nil {
		return source.Input{}, err
	}
	logger.Debug("read input file", "path", path, "size", humanize.Bytes(uint64(len(data))))

	switch kind := source.DetectType(data); kind {
	case source.KindPDF:
		return source.Input{Type: source.TypePDF, Data: data, Filename: filepath.Base(path)}, nil
	case source.KindText:
		return source.Input{Type: source.TypeText, Text: string(data), Filename: filepath.Base(path)}, nil
	default:
		return source.Input{}, fmt.Errorf("%s: unsupported file type %s", path, kind)
	}
}

// runEach builds a Distiller and calls fn for every input, writing results
// in the requested format. Inputs that fail are logged and skipped.
func runEach(cmd *cobra.Command, fn func(ctx context.Context, d *distill.Distiller, in source.Input) (any, error)) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputs, err := collectInputs(cmd)
	if err != nil {
		logger.Error("failed to read inputs", "error", err)
		return err
	}
	if len(inputs) == 0 {
		return cmd.Help()
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	dc, err := cfg.DistillConfig()
	if err != nil {
		return err
	}
	d, err := distill.New(distill.WithConfig(dc))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = d.Close() }()

	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	writer, err := output.NewWriter(outFile, format)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	provider, model := d.Provider()
	logInfo("Processing %d input(s) with %s/%s", len(inputs), provider, model)

	failed := 0
	for i, in := range inputs {
		inCtx, inCancel := context.WithTimeout(logger.ContextWith(ctx, "input", describe(in)), timeout)
		start := time.Now()
		result, err := fn(inCtx, d, in)
		inCancel()

		if err != nil {
			failed++
			logger.Error("input failed", "input", describe(in), "kind", distill.KindOf(err), "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		logger.Debug("input done", "index", i, "input", describe(in), "duration", time.Since(start))

		if err := writer.Write(result); err != nil {
			logger.Error("failed to write output", "error", err)
			return err
		}
	}

	if err := writer.Close(); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(inputs))
	}
	return nil
}

func describe(in source.Input) string {
	switch {
	case in.URL != "":
		return in.URL
	case in.Filename != "":
		return in.Filename
	default:
		text := strings.TrimSpace(in.Text)
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		return fmt.Sprintf("text %q", text)
	}
}
