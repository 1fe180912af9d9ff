package cli

import (
	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/gui"
)

func newGUICmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := gui.NewApp(gui.Options{
				Config:     st.cfg,
				ConfigPath: st.configPath,
				Logger:     st.logger,
			})
			app.Run()
			return nil
		},
	}
}
