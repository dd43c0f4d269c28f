package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Kind selects which concrete Embedder New constructs. It mirrors
// config.EmbedderKind one to one; embed does not import internal/config to
// avoid a dependency cycle, so callers pass the string value through.
type Kind string

const (
	KindNoop         Kind = "noop"
	KindOllama       Kind = "ollama"
	KindTransformers Kind = "transformers"
)

// New builds the embedder selected by kind. baseURL and model are only
// consulted for KindOllama; both fall back to the Ollama defaults when empty.
//
// KindTransformers has no concrete backend in this codebase: there is no Go
// client for a local sentence-transformers server anywhere in the dependency
// set this engine pulls from, so selecting it is a configuration error rather
// than a silent downgrade to noop.
func New(ctx context.Context, kind Kind, baseURL, model string) (Embedder, error) {
	switch kind {
	case KindNoop, "":
		return NewNoopEmbedder(), nil

	case KindOllama:
		embedder, err := newOllama(ctx, baseURL, model)
		if err != nil {
			return nil, err
		}
		if !isCacheDisabled() {
			return NewCachedEmbedderWithDefaults(embedder), nil
		}
		return embedder, nil

	case KindTransformers:
		return nil, fmt.Errorf("embedder kind %q has no backend: run an ollama model instead, or select noop for lexical-only search", kind)

	default:
		return nil, fmt.Errorf("unknown embedder kind %q", kind)
	}
}

func newOllama(ctx context.Context, baseURL, model string) (*OllamaEmbedder, error) {
	cfg := DefaultOllamaConfig()
	if baseURL != "" {
		cfg.Host = baseURL
	}
	if model != "" {
		cfg.Model = model
	}

	embedder, err := NewOllamaEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder unavailable at %s: %w", cfg.Host, err)
	}
	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("HOLOCRON_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}
