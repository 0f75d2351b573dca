package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragdocs/ragdocs/internal/telemetry"
	"github.com/ragdocs/ragdocs/internal/ui"
)

type statsOptions struct {
	format string
}

func newStatsCmd() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index contents and query telemetry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	return cmd
}

func runStats(cmd *cobra.Command, opts *statsOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{logToStderr: debugMode})
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.engine.Stats(ctx)
	if err != nil {
		return err
	}

	// Telemetry is best effort; a missing metrics database just means
	// no searches have been recorded yet.
	var snapshot *telemetry.Snapshot
	if metrics, err := telemetry.Open(a.metricsPath()); err == nil {
		snapshot, err = metrics.Snapshot()
		if err != nil {
			a.logger.Warn("read query metrics failed", "error", err)
			snapshot = nil
		}
		_ = metrics.Close()
	}

	if opts.format == "json" {
		out := struct {
			Index     any `json:"index"`
			Telemetry any `json:"telemetry,omitempty"`
		}{Index: stats}
		if snapshot != nil {
			out.Telemetry = snapshot
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	renderer := ui.NewRenderer(os.Stdout, plainOutput())
	renderer.Stats(stats)
	if snapshot != nil {
		renderer.Telemetry(snapshot)
	}
	return nil
}
