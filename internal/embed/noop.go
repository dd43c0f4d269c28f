package embed

import "context"

// NoopEmbedder is the embedder used in lexical-only mode (config.EmbedderNoop):
// it produces no vectors at all, so the store never gets a vector column to
// search and the engine falls back to BM25-only ranking. It exists so callers
// can always hold a concrete Embedder without branching on "do we have one".
type NoopEmbedder struct{}

// NewNoopEmbedder returns the no-op embedder. It never fails and never blocks.
func NewNoopEmbedder() *NoopEmbedder {
	return &NoopEmbedder{}
}

var _ Embedder = (*NoopEmbedder)(nil)

func (e *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// Dimensions returns 0, the signal store/index code uses to skip vector storage.
func (e *NoopEmbedder) Dimensions() int { return 0 }

// Available always reports true: there is nothing to warm up or connect to.
func (e *NoopEmbedder) Available(ctx context.Context) bool { return true }

func (e *NoopEmbedder) Close() error { return nil }
