package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragdocs/ragdocs/internal/config"
	"github.com/ragdocs/ragdocs/internal/ui"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [technology...]",
		Short: "Index new, modified and deleted documentation files",
		Long: `Sync diffs each technology's documentation directory against the
fingerprint cache, removes chunks for deleted or modified files,
re-indexes what changed and persists the index. With no arguments all
configured technologies are synced.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{logToStderr: debugMode})
	if err != nil {
		return err
	}
	defer a.close()

	renderer := ui.NewRenderer(os.Stdout, plainOutput())

	names := args
	if len(names) == 0 {
		for _, tech := range a.cfg.Technologies {
			names = append(names, tech.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no technologies configured; add them to %s", config.ProjectConfigName)
	}

	var failed int
	for _, name := range names {
		dir, ok := a.cfg.TechnologyPath(name)
		if !ok {
			renderer.Error(fmt.Errorf("unknown technology %q", name))
			failed++
			continue
		}

		stats, err := a.engine.Sync(ctx, name, dir)
		if err != nil {
			renderer.Error(fmt.Errorf("sync %s: %w", name, err))
			failed++
			continue
		}
		renderer.SyncStats(stats)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d technologies failed to sync", failed, len(names))
	}
	return nil
}
