package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "docs_tech", cfg.Collection)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, 8, cfg.Index.M)
	assert.Equal(t, 64, cfg.Index.EfConstruction)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 2*time.Second, cfg.Watcher.Debounce)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	// Given a working directory with no config file
	t.Chdir(t.TempDir())

	// When loading without an explicit path
	cfg, err := Load("")

	// Then defaults apply
	require.NoError(t, err)
	assert.Equal(t, "docs_tech", cfg.Collection)
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeConfigNotFound, ragerr.GetCode(err))
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
collection: my_docs
technologies:
  - name: milvus
    path: /docs/milvus
  - name: fastapi
    path: /docs/fastapi
embeddings:
  provider: static
search:
  top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "my_docs", cfg.Collection)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 5, cfg.Search.TopK)
	require.Len(t, cfg.Technologies, 2)

	p, ok := cfg.TechnologyPath("fastapi")
	assert.True(t, ok)
	assert.Equal(t, "/docs/fastapi", p)

	_, ok = cfg.TechnologyPath("django")
	assert.False(t, ok)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection: [unclosed"), 0o644))

	_, err := Load(path)

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.GetCode(err))
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RAGDOCS_COLLECTION", "env_docs")
	t.Setenv("RAGDOCS_TOP_K", "7")
	t.Setenv("RAGDOCS_EMBEDDER", "static")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "env_docs", cfg.Collection)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty collection", func(c *Config) { c.Collection = "" }, true},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }, true},
		{"zero m", func(c *Config) { c.Index.M = 0 }, true},
		{"negative dimensions", func(c *Config) { c.Embeddings.Dimensions = -1 }, true},
		{"zero batch size", func(c *Config) { c.Embeddings.BatchSize = 0 }, true},
		{"unnamed technology", func(c *Config) {
			c.Technologies = []Technology{{Name: "", Path: "/x"}}
		}, true},
		{"technology without path", func(c *Config) {
			c.Technologies = []Technology{{Name: "milvus", Path: ""}}
		}, true},
		{"duplicate technology", func(c *Config) {
			c.Technologies = []Technology{
				{Name: "milvus", Path: "/a"},
				{Name: "milvus", Path: "/b"},
			}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Collection = "saved_docs"
	cfg.Technologies = []Technology{{Name: "pymilvus", Path: "/docs/pymilvus"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved_docs", loaded.Collection)
	require.Len(t, loaded.Technologies, 1)
	assert.Equal(t, "pymilvus", loaded.Technologies[0].Name)
}
