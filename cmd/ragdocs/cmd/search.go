package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragdocs/ragdocs/internal/engine"
	"github.com/ragdocs/ragdocs/internal/telemetry"
	"github.com/ragdocs/ragdocs/internal/ui"
)

type searchOptions struct {
	technologies []string
	categories   []string
	topK         int
	format       string
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation index",
		Long: `Search runs semantic search over the indexed documentation and
prints the results grouped by technology. Results can be narrowed to
specific technologies or categories.`,
		Example: `  ragdocs search "how to configure replication"
  ragdocs search -t milvus -c deployment "cluster setup"
  ragdocs search --format json "index types"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.technologies, "technology", "t", nil, "restrict to technologies")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "restrict to categories")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "maximum number of results (0 = config default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts *searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (expected text or json)", opts.format)
	}

	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{logToStderr: debugMode})
	if err != nil {
		return err
	}
	defer a.close()

	topK := opts.topK
	if topK <= 0 {
		topK = a.cfg.Search.TopK
	}

	start := time.Now()
	results, err := a.engine.Search(ctx, query, opts.technologies, opts.categories, topK)
	if err != nil {
		return err
	}
	recordSearchMetrics(a, query, time.Since(start), results)

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	ui.NewRenderer(os.Stdout, plainOutput()).SearchResults(results)
	return nil
}

// recordSearchMetrics persists query telemetry. Failures are logged
// and never affect the search result.
func recordSearchMetrics(a *app, query string, latency time.Duration, results map[string][]engine.Result) {
	metrics, err := telemetry.Open(a.metricsPath())
	if err != nil {
		a.logger.Warn("open query metrics failed", "error", err)
		return
	}
	defer metrics.Close()

	hits := make(map[string]int, len(results))
	for tech, rs := range results {
		hits[tech] = len(rs)
	}
	if err := metrics.RecordSearch(query, latency, hits); err != nil {
		a.logger.Warn("record search metrics failed", "error", err)
	}
}
