package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/agent"
	"github.com/fmuoria/doc-compare-agent/internal/export"
)

type batchFlags struct {
	spec      string
	dir       string
	subject   string
	out       string
	format    string
	ruleBased bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.spec, "spec", "", "Specification document (required)")
	flags.StringVar(&f.out, "out", "", "Write the ranking to this Excel file")
	flags.StringVar(&f.format, "format", formatText, "Output format: json or text")
	flags.BoolVar(&f.ruleBased, "rule-based", false, "Use the rule-based scorer instead of AI analysis")
	_ = cmd.MarkFlagRequired("spec")
}

func newBatchCmd(st *state) *cobra.Command {
	f := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Rank every response document in a directory against a specification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.dir != "" {
				st.cfg.UploadsDir = f.dir
			}
			return runBatch(cmd.Context(), st, f, cmd.OutOrStdout(), cmd.ErrOrStderr(),
				func(ctx context.Context, a *agent.ComparisonAgent) error {
					return a.IngestFromUploadWithContext(ctx, f.spec)
				})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.dir, "dir", "", "Directory of response documents (default: config uploads_dir)")

	return cmd
}

func newGmailCmd(st *state) *cobra.Command {
	f := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "Fetch response attachments from Gmail and rank them against a specification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), st, f, cmd.OutOrStdout(), cmd.ErrOrStderr(),
				func(ctx context.Context, a *agent.ComparisonAgent) error {
					return a.IngestFromGmailWithContext(ctx, f.subject, f.spec)
				})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.subject, "subject", "", "Email subject to search for (required)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runBatch(ctx context.Context, st *state, f *batchFlags, out, errOut io.Writer, ingest func(context.Context, *agent.ComparisonAgent) error) error {
	if err := checkFormat(f.format); err != nil {
		return err
	}

	c, err := st.components(ctx, f.ruleBased, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	c.Agent.SetProgressCallback(func(current, total int, message string) {
		fmt.Fprintf(errOut, "[%3d%%] %s\n", current*100/max(total, 1), message)
	})

	if err := ingest(ctx, c.Agent); err != nil {
		if errors.Is(err, context.Canceled) {
			return exitError(130, "processing canceled")
		}
		return exitError(1, "%v", err)
	}

	report, err := c.Agent.GetReport()
	if err != nil {
		return exitError(1, "%v", err)
	}

	if err := renderBatch(out, f.format, report); err != nil {
		return err
	}

	if f.out != "" {
		written, err := export.ExportToExcel(report, f.out)
		if err != nil {
			return exitError(1, "failed to export: %v", err)
		}
		st.logger.Info("ranking exported", slog.String("path", written))
	}
	return nil
}
