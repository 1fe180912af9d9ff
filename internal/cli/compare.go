package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/export"
	"github.com/fmuoria/doc-compare-agent/internal/ingestion"
)

type compareFlags struct {
	deployment string
	format     string
	out        string
	ruleBased  bool
}

func newCompareCmd(st *state) *cobra.Command {
	f := &compareFlags{}

	cmd := &cobra.Command{
		Use:   "compare <spec-file> <response-file>",
		Short: "Compare one response document against a specification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), st, f, args[0], args[1], cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.deployment, "deployment", "", "AI Core deployment ID or model (default from config)")
	flags.StringVar(&f.format, "format", formatText, "Output format: json or text")
	flags.StringVar(&f.out, "out", "", "Also write the result to this Excel file")
	flags.BoolVar(&f.ruleBased, "rule-based", false, "Use the rule-based scorer instead of AI analysis")

	return cmd
}

func runCompare(ctx context.Context, st *state, f *compareFlags, specPath, responsePath string, out io.Writer) error {
	if err := checkFormat(f.format); err != nil {
		return err
	}

	specText, err := ingestion.ExtractFile(specPath)
	if err != nil {
		return exitError(3, "failed to read specification: %v", err)
	}
	responseText, err := ingestion.ExtractFile(responsePath)
	if err != nil {
		return exitError(3, "failed to read response: %v", err)
	}

	c, err := st.components(ctx, f.ruleBased, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Service.CompareDocuments(ctx, specText, responseText, f.deployment)
	if err != nil {
		return exitError(1, "%v", err)
	}

	if err := renderComparison(out, f.format, result); err != nil {
		return err
	}

	if f.out != "" {
		name := strings.TrimSuffix(filepath.Base(responsePath), filepath.Ext(responsePath))
		written, err := export.ExportComparison(filepath.Base(specPath), name, result, f.out)
		if err != nil {
			return exitError(1, "failed to export: %v", err)
		}
		st.logger.Info("result exported", slog.String("path", written))
	}
	return nil
}
