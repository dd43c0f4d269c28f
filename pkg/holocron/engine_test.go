package holocron

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishitank/holocron/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.PersistPath = filepath.Join(t.TempDir(), "index.db")
	return cfg
}

func writeProjectFile(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func TestOpen_NoopEmbedderConstructsWithoutNetwork(t *testing.T) {
	root := t.TempDir()
	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	assert.Equal(t, 0, eng.embedder.Dimensions())
}

func TestIndexDirectory_IndexesAllDiscoveredFiles(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeProjectFile(t, root, "util.go", "package main\n\nfunc helper() int {\n\treturn 42\n}\n")

	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	res, err := eng.IndexDirectory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWalked)
	assert.Greater(t, res.ChunksAdded, 0)
}

func TestSearch_FindsIndexedContentByLexicalMatch(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "widget.go", "package widgets\n\nfunc RenderWidget() string {\n\treturn \"rendered\"\n}\n")

	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	_, err = eng.IndexDirectory(context.Background())
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), "RenderWidget", SearchOptions{MaxResults: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Chunk.Content, "RenderWidget")
}

func TestFormatContext_RendersSearchResultsAsXML(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "widget.go", "package widgets\n\nfunc RenderWidget() string {\n\treturn \"rendered\"\n}\n")

	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	_, err = eng.IndexDirectory(context.Background())
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), "RenderWidget", SearchOptions{MaxResults: 5})
	require.NoError(t, err)

	out := eng.FormatContext(results, "RenderWidget", FormatOptions{})
	assert.Contains(t, out, "<codebase_context")
	assert.Contains(t, out, "widget.go")
}

func TestRemoveFiles_DropsChunksForGivenPath(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "widget.go", "package widgets\n\nfunc RenderWidget() string {\n\treturn \"rendered\"\n}\n")

	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	_, err = eng.IndexDirectory(context.Background())
	require.NoError(t, err)

	require.NoError(t, eng.RemoveFiles([]string{"widget.go"}))

	results, err := eng.Search(context.Background(), "RenderWidget", SearchOptions{MaxResults: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClearIndex_EmptiesStoreAndResetsFreshnessSidecar(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "widget.go", "package widgets\n\nfunc RenderWidget() string { return \"\" }\n")

	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	_, err = eng.IndexDirectory(context.Background())
	require.NoError(t, err)
	require.NoError(t, eng.SaveLastIndexedCommit("deadbeef"))

	require.NoError(t, eng.ClearIndex())

	results, err := eng.Search(context.Background(), "RenderWidget", SearchOptions{MaxResults: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCheckFreshness_NonGitRootResolvesWithoutError(t *testing.T) {
	root := t.TempDir()
	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })

	_, err = eng.CheckFreshness()
	require.NoError(t, err)
}

func TestDispose_ClosesStoreSoFurtherUseFails(t *testing.T) {
	root := t.TempDir()
	eng, err := Open(context.Background(), root, testConfig(t))
	require.NoError(t, err)

	require.NoError(t, eng.Dispose())

	_, err = eng.IndexDirectory(context.Background())
	assert.Error(t, err)
}
