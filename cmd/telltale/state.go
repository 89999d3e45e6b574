package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read and write vehicle state",
		Long:  "Reads and writes the authoritative vehicle state through the server. Writes are normalized server-side; the local mirror always ends up as the full document the server settled on.",
	}

	cmd.AddCommand(newStateGetCmd())
	cmd.AddCommand(newStateSetCmd())
	cmd.AddCommand(newStateResetCmd())
	return cmd
}

func newStateGetCmd() *cobra.Command {
	var (
		configPath string
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Show the state document or one control value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runStateGet(cmd, configPath, path, raw)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the value as JSON instead of formatted")
	return cmd
}

func runStateGet(cmd *cobra.Command, configPath, path string, raw bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, err := newSyncSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := sess.State()

	if path == "" {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if control, ok := sess.Registry().ByPath(path); ok {
		value, resolved := schema.Resolve(control, state)
		if !resolved {
			return fmt.Errorf("no value at path %q", path)
		}
		if raw {
			return printJSON(out, value)
		}
		fmt.Fprintf(out, "%s\n", schema.FormatValue(control, value, schema.UnitSystem(state)))
		return nil
	}

	// Not a registered control; read the document directly.
	value, ok := statepath.Get(state, path)
	if !ok {
		return fmt.Errorf("no value at path %q", path)
	}
	return printJSON(out, value)
}

func newStateSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set one control value",
		Long:  "Coerces the value to the control's declared type and sends a minimal patch. The server clamps, snaps, and converts; the printed value is what it settled on.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateSet(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	return cmd
}

func runStateSet(cmd *cobra.Command, configPath, path, value string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, err := newSyncSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	state, err := sess.ApplyEdit(cmd.Context(), path, value)
	if err != nil {
		return err
	}

	control, _ := sess.Registry().ByPath(path)
	settled, _ := schema.Resolve(control, state)
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", path, schema.FormatValue(control, settled, schema.UnitSystem(state)))
	return nil
}

func newStateResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the factory state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateReset(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	return cmd
}

func runStateReset(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	sess, err := newSyncSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if _, err := sess.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "State reset to factory defaults.")
	return nil
}

func printJSON(out io.Writer, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
