// Package config provides configuration loading for ragdocs.
//
// Configuration is resolved in priority order:
//  1. Environment variables (RAGDOCS_*) - highest priority
//  2. Project config (.ragdocs.yaml in the working directory)
//  3. User config (~/.config/ragdocs/config.yaml)
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

// ProjectConfigName is the per-project configuration file name.
const ProjectConfigName = ".ragdocs.yaml"

// Config represents the complete ragdocs configuration.
type Config struct {
	Version      int              `yaml:"version" json:"version"`
	DataDir      string           `yaml:"data_dir" json:"data_dir"`
	Collection   string           `yaml:"collection" json:"collection"`
	Technologies []Technology     `yaml:"technologies" json:"technologies"`
	Embeddings   EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index        IndexConfig      `yaml:"index" json:"index"`
	Search       SearchConfig     `yaml:"search" json:"search"`
	Watcher      WatcherConfig    `yaml:"watcher" json:"watcher"`
	Server       ServerConfig     `yaml:"server" json:"server"`
}

// Technology maps a technology name to its documentation directory.
type Technology struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" (default) or "static".
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model name (provider-specific).
	Model string `yaml:"model" json:"model"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// Dimensions is the embedding dimension; 0 means autodetect.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize is the number of texts per embedding request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexConfig configures the ANN index on the vector field.
// Construction breadth trades build time for recall; search breadth
// trades query latency for recall.
type IndexConfig struct {
	// M is the HNSW max connections per layer.
	M int `yaml:"m" json:"m"`
	// EfConstruction is the HNSW build-time search width.
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	// EfSearch is the HNSW query-time search width.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// SearchConfig configures search defaults.
type SearchConfig struct {
	// TopK is the default per-technology result cap.
	TopK int `yaml:"top_k" json:"top_k"`
}

// WatcherConfig configures the filesystem watcher used by serve --watch.
type WatcherConfig struct {
	// Debounce is the window for coalescing file events before a re-sync.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns the built-in defaults, mirroring the reference
// deployment (384-dim MiniLM-class embeddings over an L2 HNSW index).
func DefaultConfig() *Config {
	return &Config{
		Version:    1,
		DataDir:    defaultDataDir(),
		Collection: "docs_tech",
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "all-minilm",
			OllamaHost: "http://localhost:11434",
			Dimensions: 0, // autodetect from the model
			BatchSize:  32,
			CacheSize:  1000,
		},
		Index: IndexConfig{
			M:              8,
			EfConstruction: 64,
			EfSearch:       64,
		},
		Search: SearchConfig{
			TopK: 3,
		},
		Watcher: WatcherConfig{
			Debounce: 2 * time.Second,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultDataDir returns ~/.ragdocs, falling back to the temp dir.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ragdocs")
	}
	return filepath.Join(home, ".ragdocs")
}

// userConfigPath returns ~/.config/ragdocs/config.yaml.
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ragdocs", "config.yaml")
}

// Load resolves configuration from the given explicit path or the
// standard locations, applies environment overrides, and validates.
// A missing config file is not an error: defaults are used.
func Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	path := explicitPath
	if path == "" {
		for _, candidate := range []string{ProjectConfigName, userConfigPath()} {
			if candidate == "" {
				continue
			}
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if explicitPath != "" {
				return nil, ragerr.New(ragerr.ErrCodeConfigNotFound,
					fmt.Sprintf("config file not found: %s", path), err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, ragerr.ConfigError(
				fmt.Sprintf("invalid config file %s", path), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies RAGDOCS_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAGDOCS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RAGDOCS_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v := os.Getenv("RAGDOCS_EMBEDDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("RAGDOCS_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("RAGDOCS_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("RAGDOCS_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.Search.TopK = k
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Collection == "" {
		return ragerr.ConfigError("collection name must not be empty", nil)
	}
	if c.Search.TopK <= 0 {
		return ragerr.ConfigError("search.top_k must be positive", nil)
	}
	if c.Index.M <= 0 || c.Index.EfConstruction <= 0 || c.Index.EfSearch <= 0 {
		return ragerr.ConfigError("index parameters must be positive", nil)
	}
	if c.Embeddings.Dimensions < 0 {
		return ragerr.ConfigError("embeddings.dimensions must not be negative", nil)
	}
	if c.Embeddings.BatchSize <= 0 {
		return ragerr.ConfigError("embeddings.batch_size must be positive", nil)
	}

	seen := make(map[string]struct{}, len(c.Technologies))
	for _, tech := range c.Technologies {
		if tech.Name == "" {
			return ragerr.ConfigError("technology name must not be empty", nil)
		}
		if tech.Path == "" {
			return ragerr.ConfigError(
				fmt.Sprintf("technology %q has no docs path", tech.Name), nil)
		}
		if _, dup := seen[tech.Name]; dup {
			return ragerr.ConfigError(
				fmt.Sprintf("duplicate technology %q", tech.Name), nil)
		}
		seen[tech.Name] = struct{}{}
	}

	return nil
}

// TechnologyPath returns the docs path for a configured technology name.
func (c *Config) TechnologyPath(name string) (string, bool) {
	for _, t := range c.Technologies {
		if t.Name == name {
			return t.Path, true
		}
	}
	return "", false
}

// CachePath returns the fingerprint cache location for this data dir.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "fingerprints.json")
}

// IndexDir returns the directory holding the named collection's index
// files. Separate collections get separate directories.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index", c.Collection)
}

// Save writes the configuration as YAML to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ragerr.ConfigError("failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ragerr.ConfigError("failed to create config directory", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ragerr.ConfigError("failed to write config file", err)
	}
	return nil
}
