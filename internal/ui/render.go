package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ragdocs/ragdocs/internal/engine"
	"github.com/ragdocs/ragdocs/internal/store"
	"github.com/ragdocs/ragdocs/internal/telemetry"
)

// snippetLength bounds how much chunk content a search result prints.
const snippetLength = 300

// Renderer writes human-readable command output.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer for the given writer.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// SyncStats prints one technology's sync summary.
func (r *Renderer) SyncStats(stats *engine.SyncStats) {
	if !stats.Changed() {
		fmt.Fprintf(r.out, "%s %s\n",
			r.styles.Success.Render("✓"),
			r.styles.Label.Render(fmt.Sprintf("%s: no changes (%s)", stats.Technology, stats.Duration.Round(time.Millisecond))))
		return
	}

	fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Success.Render("✓"),
		r.styles.Title.Render(stats.Technology))
	fmt.Fprintf(r.out, "  %s %d new, %d modified, %d deleted",
		r.styles.Label.Render("files:"),
		stats.NewFiles, stats.ModifiedFiles, stats.DeletedFiles)
	if stats.SkippedFiles > 0 {
		fmt.Fprintf(r.out, ", %s", r.styles.Warning.Render(fmt.Sprintf("%d skipped", stats.SkippedFiles)))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "  %s %d indexed in %s\n",
		r.styles.Label.Render("chunks:"),
		stats.Chunks, stats.Duration.Round(time.Millisecond))
}

// SearchResults prints grouped search results.
func (r *Renderer) SearchResults(results map[string][]engine.Result) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("no results"))
		return
	}

	techs := make([]string, 0, len(results))
	for tech := range results {
		techs = append(techs, tech)
	}
	sort.Strings(techs)

	for _, tech := range techs {
		fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render(tech))
		for _, res := range results[tech] {
			fmt.Fprintf(r.out, "  %s %s %s\n",
				r.styles.Title.Render(res.SectionTitle),
				r.styles.Score.Render(fmt.Sprintf("(%.2f)", res.Score)),
				r.styles.Dim.Render("["+res.Category+"]"))
			fmt.Fprintf(r.out, "    %s\n", r.styles.Label.Render(res.FilePath))
			if snippet := makeSnippet(res.Content); snippet != "" {
				fmt.Fprintf(r.out, "    %s\n", snippet)
			}
		}
		fmt.Fprintln(r.out)
	}
}

// Stats prints index statistics.
func (r *Renderer) Stats(stats *store.Stats) {
	fmt.Fprintf(r.out, "%s %d\n", r.styles.Label.Render("chunks:"), stats.Chunks)
	if len(stats.Technologies) == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("no technologies indexed"))
		return
	}

	techs := make([]string, 0, len(stats.Technologies))
	for tech := range stats.Technologies {
		techs = append(techs, tech)
	}
	sort.Strings(techs)
	for _, tech := range techs {
		fmt.Fprintf(r.out, "  %s %d\n",
			r.styles.Title.Render(tech), stats.Technologies[tech])
	}
}

// Telemetry prints a query metrics summary.
func (r *Renderer) Telemetry(snap *telemetry.Snapshot) {
	fmt.Fprintf(r.out, "%s %d\n", r.styles.Label.Render("searches:"), snap.Searches)
	if snap.Searches == 0 {
		return
	}

	for _, bucket := range []telemetry.LatencyBucket{
		telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100,
		telemetry.BucketP500, telemetry.BucketP1000,
	} {
		if count := snap.LatencyHistogram[bucket]; count > 0 {
			fmt.Fprintf(r.out, "  %s %d\n", r.styles.Title.Render(string(bucket)), count)
		}
	}

	if len(snap.ZeroResultQueries) > 0 {
		fmt.Fprintf(r.out, "%s\n", r.styles.Warning.Render("recent zero-result queries:"))
		for _, q := range snap.ZeroResultQueries {
			fmt.Fprintf(r.out, "  %s\n", r.styles.Dim.Render(q))
		}
	}
}

// Error prints an error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Error.Render("✗"), err.Error())
}

// makeSnippet collapses whitespace and bounds content for display.
func makeSnippet(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	if len(collapsed) <= snippetLength {
		return collapsed
	}
	cut := collapsed[:snippetLength]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
