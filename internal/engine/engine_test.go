package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragdocs/ragdocs/internal/embed"
	ragerr "github.com/ragdocs/ragdocs/internal/errors"
	"github.com/ragdocs/ragdocs/internal/store"
	"github.com/ragdocs/ragdocs/internal/tracker"
)

type testEnv struct {
	engine  *Engine
	docsDir string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tr := tracker.New(filepath.Join(dataDir, "fingerprints.json"), logger)
	emb := embed.NewStaticEmbedder()
	st, err := store.Open(store.Config{
		Dir:        filepath.Join(dataDir, "index"),
		Dimensions: emb.Dimensions(),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return &testEnv{
		engine:  New(tr, emb, st, logger),
		docsDir: filepath.Join(dataDir, "docs"),
		dataDir: dataDir,
	}
}

func (env *testEnv) writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.docsDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

func TestSyncIndexesNewFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "guide.md", "# Install Guide\n\nHow to install and setup the cluster.\n\n## Security\n\nEnable authentication.\n")

	stats, err := env.engine.Sync(ctx, "milvus", env.docsDir)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewFiles)
	assert.Equal(t, 2, stats.Chunks)
	assert.Contains(t, env.engine.Available(), "milvus")
}

func TestSyncNoChangesIsCheap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "guide.md", "# Guide\n\ntext\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	stats, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)
	assert.False(t, stats.Changed())
	assert.Zero(t, stats.Chunks)
	// A no-change pass still marks the technology available.
	assert.Contains(t, env.engine.Available(), "milvus")
}

func TestSyncModifiedFileReplacesChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.writeDoc(t, "guide.md", "# Old Title\n\nold body about widgets\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("# New Title\n\nnew body about gadgets\n"), 0o644))
	stats, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ModifiedFiles)

	results, err := env.engine.Search(ctx, "gadgets body", nil, nil, 5)
	require.NoError(t, err)
	for _, r := range results["milvus"] {
		assert.NotEqual(t, "Old Title", r.SectionTitle)
	}
}

func TestSyncDeletedFileLeavesIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.writeDoc(t, "gone.md", "# Vanishing\n\nthis disappears\n")
	env.writeDoc(t, "stays.md", "# Staying\n\nthis remains\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	stats, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeletedFiles)

	results, err := env.engine.Search(ctx, "vanishing disappears", nil, nil, 5)
	require.NoError(t, err)
	for _, r := range results["milvus"] {
		assert.NotEqual(t, "Vanishing", r.SectionTitle)
	}
}

func TestSearchGroupsByTechnology(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "milvus/a.md", "# Milvus Scaling\n\nscale the milvus cluster horizontally\n")
	env.writeDoc(t, "qdrant/b.md", "# Qdrant Scaling\n\nscale the qdrant cluster horizontally\n")

	_, err := env.engine.Sync(ctx, "milvus", filepath.Join(env.docsDir, "milvus"))
	require.NoError(t, err)
	_, err = env.engine.Sync(ctx, "qdrant", filepath.Join(env.docsDir, "qdrant"))
	require.NoError(t, err)

	results, err := env.engine.Search(ctx, "scale the cluster horizontally", nil, nil, 10)

	require.NoError(t, err)
	assert.Contains(t, results, "milvus")
	assert.Contains(t, results, "qdrant")
	for _, group := range results {
		for i := 1; i < len(group); i++ {
			assert.GreaterOrEqual(t, group[i-1].Score, group[i].Score)
		}
	}
}

func TestSearchCapsEachTechnologyIndependently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "milvus/a.md", "# One\n\nreplication setup steps\n\n# Two\n\nreplication tuning notes\n\n# Three\n\nreplication failure modes\n")
	env.writeDoc(t, "qdrant/b.md", "# Uno\n\nreplication setup steps\n\n# Dos\n\nreplication tuning notes\n")

	_, err := env.engine.Sync(ctx, "milvus", filepath.Join(env.docsDir, "milvus"))
	require.NoError(t, err)
	_, err = env.engine.Sync(ctx, "qdrant", filepath.Join(env.docsDir, "qdrant"))
	require.NoError(t, err)

	results, err := env.engine.Search(ctx, "replication setup", nil, nil, 2)

	require.NoError(t, err)
	for tech, group := range results {
		assert.LessOrEqual(t, len(group), 2, "technology %s exceeds cap", tech)
	}
}

func TestSearchTechnologyFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "milvus/a.md", "# Milvus Guide\n\ncluster deployment details\n")
	env.writeDoc(t, "qdrant/b.md", "# Qdrant Guide\n\ncluster deployment details\n")

	_, err := env.engine.Sync(ctx, "milvus", filepath.Join(env.docsDir, "milvus"))
	require.NoError(t, err)
	_, err = env.engine.Sync(ctx, "qdrant", filepath.Join(env.docsDir, "qdrant"))
	require.NoError(t, err)

	results, err := env.engine.Search(ctx, "cluster deployment", []string{"milvus"}, nil, 10)

	require.NoError(t, err)
	assert.Contains(t, results, "milvus")
	assert.NotContains(t, results, "qdrant")
}

func TestSearchCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "a.md", "# Securing Access\n\nenable authentication and encryption for the api\n\n# Tuning\n\nimprove throughput and latency\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	results, err := env.engine.Search(ctx, "authentication encryption api", nil, []string{"security"}, 10)

	require.NoError(t, err)
	for _, r := range results["milvus"] {
		assert.Equal(t, "security", r.Category)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Search(context.Background(), "  ", nil, nil, 3)

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeQueryEmpty, ragerr.GetCode(err))
}

func TestSearchScoresWithinRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "a.md", "# Topic\n\nsome searchable text\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	results, err := env.engine.Search(ctx, "searchable text", nil, nil, 5)
	require.NoError(t, err)
	for _, group := range results {
		for _, r := range group {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
		}
	}
}

func TestBuildFilterExpression(t *testing.T) {
	tests := []struct {
		name         string
		technologies []string
		categories   []string
		want         string
	}{
		{"none", nil, nil, ""},
		{"technologies only", []string{"milvus", "qdrant"}, nil,
			`technology in ["milvus", "qdrant"]`},
		{"categories only", nil, []string{"security"},
			`category in ["security"]`},
		{"both", []string{"milvus"}, []string{"deployment"},
			`technology in ["milvus"] && category in ["deployment"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilterExpression(tt.technologies, tt.categories))
		})
	}
}

func TestTechnologiesFromStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.writeDoc(t, "a.md", "# One\n\ntext\n")

	_, err := env.engine.Sync(ctx, "milvus", env.docsDir)
	require.NoError(t, err)

	techs, err := env.engine.Technologies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), techs["milvus"])
}
