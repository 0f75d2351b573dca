package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ragdocs/ragdocs/internal/config"
	"github.com/ragdocs/ragdocs/internal/engine"
	"github.com/ragdocs/ragdocs/internal/segment"
	"github.com/ragdocs/ragdocs/pkg/version"
)

// Server bridges AI clients with the documentation engine.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	config *config.Config
	logger *slog.Logger
}

// SearchDocsInput is the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query        string   `json:"query" jsonschema:"the documentation search query"`
	Technologies []string `json:"technologies,omitempty" jsonschema:"restrict results to these technologies"`
	Categories   []string `json:"categories,omitempty" jsonschema:"restrict results to these categories, e.g. deployment, security"`
	TopK         int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default 3"`
}

// SearchResultOutput is one hit in search_docs output.
type SearchResultOutput struct {
	Content      string  `json:"content"`
	Technology   string  `json:"technology"`
	FilePath     string  `json:"file_path"`
	SectionTitle string  `json:"section_title"`
	SectionLevel int     `json:"section_level"`
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
}

// SearchDocsOutput is the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Results map[string][]SearchResultOutput `json:"results" jsonschema:"search results grouped by technology"`
}

// SyncDocsInput is the input schema for the sync_docs tool.
type SyncDocsInput struct {
	Technology string `json:"technology,omitempty" jsonschema:"technology to sync; empty syncs all configured technologies"`
}

// SyncStatsOutput summarizes one technology's sync.
type SyncStatsOutput struct {
	Technology    string `json:"technology"`
	NewFiles      int    `json:"new_files"`
	ModifiedFiles int    `json:"modified_files"`
	DeletedFiles  int    `json:"deleted_files"`
	SkippedFiles  int    `json:"skipped_files,omitempty"`
	Chunks        int    `json:"chunks"`
}

// SyncDocsOutput is the output schema for the sync_docs tool.
type SyncDocsOutput struct {
	Synced []SyncStatsOutput `json:"synced"`
}

// ListTechnologiesInput is the input schema for list_technologies.
type ListTechnologiesInput struct{}

// TechnologyInfo describes one indexed technology.
type TechnologyInfo struct {
	Name   string `json:"name"`
	Chunks int64  `json:"chunks"`
}

// ListTechnologiesOutput is the output schema for list_technologies.
type ListTechnologiesOutput struct {
	Technologies []TechnologyInfo `json:"technologies"`
	Categories   []string         `json:"categories"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: eng,
		config: cfg,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ragdocs",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Semantic search across indexed technology documentation. Finds conceptually relevant sections, not just keyword matches. Supports filtering by technology and category (deployment, performance, features, scalability, security, integration, general).",
	}, s.searchDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "sync_docs",
		Description: "Incrementally re-index documentation. Only changed files are processed; unchanged files are skipped via fingerprint comparison.",
	}, s.syncDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_technologies",
		Description: "List indexed technologies with chunk counts, plus the category names usable as search filters.",
	}, s.listTechnologiesHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

func (s *Server) searchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchDocsOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchDocsOutput{}, NewInvalidParamsError("query parameter is required")
	}

	results, err := s.engine.Search(ctx, input.Query, input.Technologies, input.Categories, input.TopK)
	if err != nil {
		return nil, SearchDocsOutput{}, MapError(err)
	}

	output := SearchDocsOutput{Results: make(map[string][]SearchResultOutput, len(results))}
	for tech, group := range results {
		outGroup := make([]SearchResultOutput, 0, len(group))
		for _, r := range group {
			outGroup = append(outGroup, SearchResultOutput{
				Content:      r.Content,
				Technology:   r.Technology,
				FilePath:     r.FilePath,
				SectionTitle: r.SectionTitle,
				SectionLevel: r.SectionLevel,
				Category:     r.Category,
				Score:        r.Score,
			})
		}
		output.Results[tech] = outGroup
	}
	return nil, output, nil
}

func (s *Server) syncDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SyncDocsInput) (
	*mcp.CallToolResult,
	SyncDocsOutput,
	error,
) {
	targets := s.config.Technologies
	if input.Technology != "" {
		path, ok := s.config.TechnologyPath(input.Technology)
		if !ok {
			return nil, SyncDocsOutput{}, NewInvalidParamsError(
				fmt.Sprintf("technology %q is not configured", input.Technology))
		}
		targets = []config.Technology{{Name: input.Technology, Path: path}}
	}
	if len(targets) == 0 {
		return nil, SyncDocsOutput{}, NewInvalidParamsError("no technologies configured")
	}

	output := SyncDocsOutput{Synced: make([]SyncStatsOutput, 0, len(targets))}
	for _, target := range targets {
		stats, err := s.engine.Sync(ctx, target.Name, target.Path)
		if err != nil {
			return nil, SyncDocsOutput{}, MapError(err)
		}
		output.Synced = append(output.Synced, SyncStatsOutput{
			Technology:    stats.Technology,
			NewFiles:      stats.NewFiles,
			ModifiedFiles: stats.ModifiedFiles,
			DeletedFiles:  stats.DeletedFiles,
			SkippedFiles:  stats.SkippedFiles,
			Chunks:        stats.Chunks,
		})
	}
	return nil, output, nil
}

func (s *Server) listTechnologiesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListTechnologiesInput) (
	*mcp.CallToolResult,
	ListTechnologiesOutput,
	error,
) {
	techs, err := s.engine.Technologies(ctx)
	if err != nil {
		return nil, ListTechnologiesOutput{}, MapError(err)
	}

	output := ListTechnologiesOutput{
		Technologies: make([]TechnologyInfo, 0, len(techs)),
		Categories:   segment.Categories(),
	}
	for name, chunks := range techs {
		output.Technologies = append(output.Technologies, TechnologyInfo{Name: name, Chunks: chunks})
	}
	sort.Slice(output.Technologies, func(i, j int) bool {
		return output.Technologies[i].Name < output.Technologies[j].Name
	})
	return nil, output, nil
}

// Serve runs the server on the given transport until the context ends.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
