package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ragdocs/ragdocs/internal/embed"
	"github.com/ragdocs/ragdocs/internal/mcp"
	"github.com/ragdocs/ragdocs/internal/watcher"
)

type serveOptions struct {
	watch  bool
	noSync bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve syncs all configured technologies, then exposes search_docs,
sync_docs and list_technologies as MCP tools over stdio. With --watch
the documentation directories are watched and re-synced on change.

Stdout carries the MCP protocol; logs go to the log file only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "watch documentation directories and re-sync on change")
	cmd.Flags().BoolVar(&opts.noSync, "no-sync", false, "skip the initial sync")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stdout is the MCP transport, so logs must not reach it or stderr.
	a, err := newApp(ctx, appOptions{logToStderr: false})
	if err != nil {
		return err
	}
	defer a.close()

	// Load the embedding model up front so the first tool call does
	// not pay for it.
	embed.WarmUp(ctx, a.embed)

	if !opts.noSync {
		for _, tech := range a.cfg.Technologies {
			stats, err := a.engine.Sync(ctx, tech.Name, tech.Path)
			if err != nil {
				a.logger.Error("initial sync failed", "technology", tech.Name, "error", err)
				continue
			}
			a.logger.Info("initial sync complete",
				"technology", tech.Name, "chunks", stats.Chunks, "duration", stats.Duration)
		}
	}

	server, err := mcp.NewServer(a.engine, a.cfg, a.logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.watch {
		targets := make([]watcher.Target, 0, len(a.cfg.Technologies))
		for _, tech := range a.cfg.Technologies {
			targets = append(targets, watcher.Target{Technology: tech.Name, DocsDir: tech.Path})
		}

		w := watcher.New(targets, func(ctx context.Context, technology, docsDir string) error {
			_, err := a.engine.Sync(ctx, technology, docsDir)
			return err
		}, a.cfg.Watcher.Debounce, a.logger)

		g.Go(func() error {
			return w.Start(ctx)
		})
	}

	g.Go(func() error {
		return server.Serve(ctx, a.cfg.Server.Transport)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		a.logger.Info("server shutting down")
		return nil
	}
	return err
}
