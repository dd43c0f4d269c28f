package embed

import (
	"context"
	"math"
	"time"
)

// Timeout and retry constants (spec §6 names the embedder contract only
// as embed/dimensions/is_available; these govern the Ollama backend's own
// HTTP behavior, not the interface).
const (
	// DefaultWarmTimeout is the timeout for a query once the model is loaded.
	DefaultWarmTimeout = 120 * time.Second

	// DefaultColdTimeout is the timeout for a query that may need to load
	// the model first (first call, or after ModelUnloadThreshold idle).
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is the duration after which a model is considered
	// "cold"; Ollama unloads models after roughly 5 minutes of inactivity.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the default total number of embedding attempts,
	// the first one included.
	DefaultMaxRetries = 3
)

// EmbeddingGemma constants (default)
const (
	// DefaultDimensions is the embedding dimension for EmbeddingGemma
	DefaultDimensions = 768

	// DefaultContext is the context window for EmbeddingGemma (4x larger than MiniLM)
	DefaultContext = 2048
)

// Embedder is spec §6's contract: embed one text, report dimensionality
// (0 meaning lexical-only mode), and report availability. Close is not
// named by the spec but is carried as the idiomatic Go resource-lifecycle
// method Engine.Dispose calls.
type Embedder interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension (0 = no-op).
	Dimensions() int

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
