package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/schema"
)

func newControlsCmd() *cobra.Command {
	var (
		configPath string
		group      string
		showAll    bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List the control registry with live values",
		Long:  "Fetches the control registry and current state from the server and lists each control with its resolved value. Controls hidden by visibility rules are skipped unless --all is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControls(cmd, configPath, group, showAll, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.Flags().StringVar(&group, "group", "", "only list controls in this group")
	cmd.Flags().BoolVar(&showAll, "all", false, "include controls hidden by visibility rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw registry as JSON")
	return cmd
}

func runControls(cmd *cobra.Command, configPath, group string, showAll, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, err := newSyncSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	registry := sess.Registry()
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(registry)
	}

	state := sess.State()
	system := schema.UnitSystem(state)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tLABEL\tGROUP\tTYPE\tVALUE")
	listed := 0
	for i := range registry.Controls {
		c := &registry.Controls[i]
		if group != "" && c.Group != group {
			continue
		}
		if !showAll && !schema.Visible(c, state) {
			continue
		}
		display := "-"
		if value, ok := schema.Resolve(c, state); ok {
			display = schema.FormatValue(c, value, system)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Path, c.Label, c.Group, c.Kind, display)
		listed++
	}
	w.Flush()

	if listed == 0 {
		fmt.Fprintln(out, "No controls matched.")
	}
	return nil
}
