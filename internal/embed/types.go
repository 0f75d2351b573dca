// Package embed turns documentation text into fixed-dimension vectors.
//
// Two providers are available: an Ollama-backed embedder for real
// semantic quality, and a deterministic hash-based embedder that works
// offline. Both produce unit-length vectors so the index can rank by
// Euclidean distance.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 32

	// MaxBatchSize caps a single request to bound memory use.
	MaxBatchSize = 256

	// DefaultTimeout is the per-request timeout for remote embedders.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// StaticDimensions is the vector size of the hash-based embedder,
	// matching the MiniLM class of sentence transformer models.
	StaticDimensions = 384
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"
)

// FallbackOllamaModels are tried in order when the configured model is
// not installed.
var FallbackOllamaModels = []string{
	"all-minilm",
	"nomic-embed-text",
	"mxbai-embed-large",
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host           string
	Model          string
	FallbackModels []string
	// Dimensions forces the vector size; 0 autodetects from the model.
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
	// SkipHealthCheck bypasses model discovery, for tests.
	SkipHealthCheck bool
}

// normalizeVector scales a vector to unit length. Zero vectors pass
// through unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
