package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/llm"
)

func newDeploymentsCmd(st *state) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "List the deployments available from the AI provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeployments(cmd.Context(), st, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, "Output format: json or text")
	return cmd
}

func runDeployments(ctx context.Context, st *state, format string, out io.Writer) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	c, err := st.components(ctx, false, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.Deployments == nil {
		return exitError(1, "provider %q cannot list deployments", st.cfg.LLM.Provider)
	}

	list, err := c.Deployments.ListDeployments(ctx)
	if errors.Is(err, llm.ErrNotSupported) {
		return exitError(1, "provider %q cannot list deployments", st.cfg.LLM.Provider)
	}
	if err != nil {
		return exitError(1, "failed to list deployments: %v", err)
	}

	rows := make([][]string, 0, len(list.Resources))
	for _, d := range list.Resources {
		rows = append(rows, []string{d.ID, d.Status, d.ConfigurationName, d.ScenarioID})
	}
	return renderDeployments(out, format, list, rows)
}
