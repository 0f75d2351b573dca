package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ragdocs/ragdocs/internal/config"
)

// NewFromConfig builds the embedder stack the configuration asks for.
// The "ollama" provider falls back to the static embedder when the
// daemon is unreachable, so indexing and search keep working offline.
// The result is always wrapped in an LRU cache.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var inner Embedder
	switch cfg.Provider {
	case "", "ollama":
		ollama, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    DefaultTimeout,
		})
		if err != nil {
			logger.Warn("Ollama unavailable, using static embeddings",
				slog.String("host", cfg.OllamaHost),
				slog.String("error", err.Error()))
			inner = NewStaticEmbedder()
		} else {
			logger.Info("using Ollama embeddings",
				slog.String("model", ollama.ModelName()),
				slog.Int("dimensions", ollama.Dimensions()))
			inner = ollama
		}
	case "static":
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}

	return NewCachedEmbedder(inner, cfg.CacheSize)
}

// WarmUp embeds a short probe so remote providers load their model
// before the first real query. Errors are ignored; a cold first query
// just pays the load cost instead.
func WarmUp(ctx context.Context, e Embedder) {
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, _ = e.Embed(warmCtx, "warmup")
}
