// Package cmd implements the ragdocs command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ragdocs/ragdocs/internal/config"
	"github.com/ragdocs/ragdocs/internal/embed"
	"github.com/ragdocs/ragdocs/internal/engine"
	"github.com/ragdocs/ragdocs/internal/logging"
	"github.com/ragdocs/ragdocs/internal/store"
	"github.com/ragdocs/ragdocs/internal/tracker"
	"github.com/ragdocs/ragdocs/internal/ui"
	"github.com/ragdocs/ragdocs/pkg/version"
)

var (
	configPath string
	debugMode  bool
	noColor    bool
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragdocs",
		Short: "Incremental documentation indexing and semantic search",
		Long: `ragdocs keeps a local vector index of markdown documentation in sync
with the files on disk and serves filtered semantic search over it,
either from the command line or as an MCP server.

Technologies and their documentation directories are declared in
.ragdocs.yaml (or ~/.config/ragdocs/config.yaml).`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newSyncCmd(),
		newSearchCmd(),
		newServeCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracker *tracker.Tracker
	embed   embed.Embedder
	store   *store.Store
	engine  *engine.Engine

	logCleanup func()
}

// appOptions tweaks wiring per subcommand.
type appOptions struct {
	// logToStderr mirrors logs to stderr. Must stay false for the MCP
	// stdio transport, where stderr is the only side channel and noisy
	// logs confuse some clients.
	logToStderr bool
}

// newApp loads configuration and wires tracker, embedder, store and
// engine. Call close when done.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	if cfg.Server.LogLevel != "" && !debugMode {
		logCfg.Level = cfg.Server.LogLevel
	}
	logCfg.WriteToStderr = opts.logToStderr

	logger, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logCleanup()
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings, logger)
	if err != nil {
		logCleanup()
		return nil, err
	}

	st, err := store.Open(store.Config{
		Dir:            cfg.IndexDir(),
		Dimensions:     embedder.Dimensions(),
		M:              cfg.Index.M,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
	}, logger)
	if err != nil {
		_ = embedder.Close()
		logCleanup()
		return nil, err
	}

	tr := tracker.New(cfg.CachePath(), logger)
	eng := engine.New(tr, embedder, st, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		tracker:    tr,
		embed:      embedder,
		store:      st,
		engine:     eng,
		logCleanup: logCleanup,
	}, nil
}

// close releases the store, the embedder and the log file.
func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
	if err := a.embed.Close(); err != nil {
		a.logger.Warn("embedder close failed", "error", err)
	}
	a.logCleanup()
}

// metricsPath is where query telemetry is persisted.
func (a *app) metricsPath() string {
	return filepath.Join(a.cfg.DataDir, "metrics.db")
}

// plainOutput reports whether styled output is disabled, by flag or
// because stdout is a pipe or NO_COLOR is set.
func plainOutput() bool {
	return noColor || !ui.ShouldUseColor()
}
