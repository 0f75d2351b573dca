package mcp

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdocs/ragdocs/internal/config"
	"github.com/ragdocs/ragdocs/internal/embed"
	"github.com/ragdocs/ragdocs/internal/engine"
	ragerr "github.com/ragdocs/ragdocs/internal/errors"
	"github.com/ragdocs/ragdocs/internal/store"
	"github.com/ragdocs/ragdocs/internal/tracker"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()
	docsDir := filepath.Join(dataDir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tr := tracker.New(filepath.Join(dataDir, "fingerprints.json"), logger)
	emb := embed.NewStaticEmbedder()
	st, err := store.Open(store.Config{
		Dir:        filepath.Join(dataDir, "index"),
		Dimensions: emb.Dimensions(),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.Technologies = []config.Technology{{Name: "milvus", Path: docsDir}}

	eng := engine.New(tr, emb, st, logger)
	srv, err := NewServer(eng, cfg, logger)
	require.NoError(t, err)
	return srv, docsDir
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(nil, config.DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestSyncThenSearchTools(t *testing.T) {
	srv, docsDir := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "guide.md"),
		[]byte("# Cluster Setup\n\ninstall and configure the cluster\n"), 0o644))

	_, syncOut, err := srv.syncDocsHandler(ctx, nil, SyncDocsInput{})
	require.NoError(t, err)
	require.Len(t, syncOut.Synced, 1)
	assert.Equal(t, 1, syncOut.Synced[0].NewFiles)
	assert.Equal(t, 1, syncOut.Synced[0].Chunks)

	_, searchOut, err := srv.searchDocsHandler(ctx, nil, SearchDocsInput{
		Query: "install configure cluster",
	})
	require.NoError(t, err)
	require.Contains(t, searchOut.Results, "milvus")
	assert.Equal(t, "Cluster Setup", searchOut.Results["milvus"][0].SectionTitle)
}

func TestSearchDocsRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.searchDocsHandler(context.Background(), nil, SearchDocsInput{})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSyncDocsUnknownTechnology(t *testing.T) {
	srv, _ := newTestServer(t)

	_, _, err := srv.syncDocsHandler(context.Background(), nil, SyncDocsInput{Technology: "django"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestListTechnologies(t *testing.T) {
	srv, docsDir := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "a.md"), []byte("# A\n\ntext\n"), 0o644))

	_, _, err := srv.syncDocsHandler(ctx, nil, SyncDocsInput{})
	require.NoError(t, err)

	_, out, err := srv.listTechnologiesHandler(ctx, nil, ListTechnologiesInput{})
	require.NoError(t, err)
	require.Len(t, out.Technologies, 1)
	assert.Equal(t, "milvus", out.Technologies[0].Name)
	assert.Equal(t, int64(1), out.Technologies[0].Chunks)
	assert.Contains(t, out.Categories, "general")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation maps to invalid params",
			ragerr.ValidationError("bad input", nil), ErrCodeInvalidParams},
		{"query empty maps to invalid params",
			ragerr.New(ragerr.ErrCodeQueryEmpty, "empty", nil), ErrCodeInvalidParams},
		{"storage maps to store unavailable",
			ragerr.StorageError("disk gone", nil), ErrCodeStoreUnavailable},
		{"embedder unreachable maps to embedding failed",
			ragerr.New(ragerr.ErrCodeEmbedderUnreachable, "down", nil), ErrCodeEmbeddingFailed},
		{"plain error maps to internal",
			assert.AnError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.wantCode, mapped.Code)
		})
	}

	assert.Nil(t, MapError(nil))
}
