package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoopKindReturnsNoopEmbedder(t *testing.T) {
	e, err := New(context.Background(), KindNoop, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Dimensions())
}

func TestNew_EmptyKindDefaultsToNoop(t *testing.T) {
	e, err := New(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Dimensions())
}

func TestNew_TransformersKindReturnsConstructionError(t *testing.T) {
	_, err := New(context.Background(), KindTransformers, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend")
}

func TestNew_UnknownKindReturnsError(t *testing.T) {
	_, err := New(context.Background(), Kind("bogus"), "", "")
	require.Error(t, err)
}

func TestNew_OllamaKindFailsFastWhenUnreachable(t *testing.T) {
	// No Ollama server is running in the test environment, so construction
	// should fail with a clear error rather than hang or silently fall back.
	_, err := New(context.Background(), KindOllama, "http://127.0.0.1:1", "nomic-embed-text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama embedder unavailable")
}

func TestIsCacheDisabled_RecognizesFalsyValues(t *testing.T) {
	for _, v := range []string{"false", "0", "off", "disabled"} {
		t.Setenv("HOLOCRON_EMBED_CACHE", v)
		assert.True(t, isCacheDisabled(), "value %q should disable cache", v)
	}
}

func TestIsCacheDisabled_DefaultsToEnabled(t *testing.T) {
	t.Setenv("HOLOCRON_EMBED_CACHE", "")
	assert.False(t, isCacheDisabled())
}
