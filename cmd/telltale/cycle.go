package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/schema"
)

func newCycleCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cycle <path>",
		Short: "Advance a control to its next value",
		Long:  "Activates the control at the given path the way a dashboard indicator tap would: toggles flip, selects advance with wrap-around, sliders step and wrap from max to min. The next value is computed from the server's current state.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	return cmd
}

func runCycle(cmd *cobra.Command, configPath, path string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, err := newSyncSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	_, state, err := sess.Activate(cmd.Context(), path)
	if err != nil {
		return err
	}

	control, _ := sess.Registry().ByPath(path)
	settled, _ := schema.Resolve(control, state)
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", path, schema.FormatValue(control, settled, schema.UnitSystem(state)))
	return nil
}
