package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/ambient"
	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

func newWatchCmd() *cobra.Command {
	var (
		configPath  string
		interval    int
		showAmbient bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream telemetry in real-time",
		Long:  "Polls the server for telemetry snapshots and prints them as they arrive. Failed polls are skipped; the last good snapshot stays on screen until the next one lands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath, interval, showAmbient)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.Flags().IntVar(&interval, "interval", 0, "poll interval in seconds (default: config)")
	cmd.Flags().BoolVar(&showAmbient, "ambient", false, "print derived ambient presentation parameters")
	return cmd
}

func runWatch(cmd *cobra.Command, configPath string, interval int, showAmbient bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.Client.PollSeconds
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := newSyncSession(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching telemetry from %s... (Ctrl+C to stop)\n", cfg.Client.BaseURL)

	for snapshot := range sess.PollTelemetry(ctx, time.Duration(interval)*time.Second) {
		state := sess.State()
		printTelemetry(out, snapshot, schema.UnitSystem(state))
		if showAmbient {
			printAmbient(out, ambient.Compute(ambient.FromDocuments(state, snapshot)))
		}
	}
	return nil
}

func printTelemetry(out io.Writer, doc statepath.Document, system string) {
	clock := "--:--"
	if s, ok := doc["clock_time"].(string); ok {
		clock = s
	}
	fmt.Fprintf(out, "[%s] outside %s  engine %s  fuel %s%%  range %s  trip %s  odometer %s\n",
		clock,
		schema.FormatTemperature(telemetryNumber(doc, "outside_temp_c"), system),
		schema.FormatTemperature(telemetryNumber(doc, "engine_temp_c"), system),
		formatFloat(telemetryNumber(doc, "fuel_level_pct")),
		schema.FormatDistance(telemetryNumber(doc, "range_km"), system),
		schema.FormatDistance(telemetryNumber(doc, "trip_km"), system),
		schema.FormatDistance(telemetryNumber(doc, "odometer_km"), system),
	)
}

func printAmbient(out io.Writer, p ambient.Params) {
	fmt.Fprintf(out, "        ambient: speed %.2f  heat %.2f  rain %.2f  wind %.2f  hue %.0f  pulse %.1fs\n",
		p.SpeedRatio, p.HeatRatio, p.RainIntensity, p.WindIntensity, p.Hue, p.PulseSeconds)
}

func telemetryNumber(doc statepath.Document, key string) float64 {
	if n, ok := doc[key].(float64); ok {
		return n
	}
	return 0
}

func formatFloat(n float64) string {
	return fmt.Sprintf("%.1f", n)
}
