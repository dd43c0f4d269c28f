package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, content, 0o644))
}

func collect(t *testing.T, root string) map[string]FileResult {
	t.Helper()
	s := New()
	ch, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	out := make(map[string]FileResult)
	for res := range ch {
		require.NoError(t, res.Error)
		out[res.File.Path] = *res.File
	}
	return out
}

func TestScan_YieldsTextFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", []byte("package main\n"))
	writeFile(t, root, "pkg/util.go", []byte("package pkg\n"))
	writeFile(t, root, "README.md", []byte("# hi\n"))

	files := collect(t, root)
	require.Len(t, files, 3)
	assert.Equal(t, "go", files["main.go"].Language)
	assert.Equal(t, "go", files["pkg/util.go"].Language)
	assert.Equal(t, "markdown", files["README.md"].Language)
}

func TestScan_SkipsBlockedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/lib/index.js", []byte("module.exports = {}"))
	writeFile(t, root, "vendor/pkg/file.go", []byte("package pkg"))
	writeFile(t, root, ".git/HEAD", []byte("ref: refs/heads/main"))
	writeFile(t, root, "src/app.go", []byte("package app"))

	files := collect(t, root)
	require.Len(t, files, 1)
	_, ok := files["src/app.go"]
	assert.True(t, ok)
}

func TestScan_SkipsDotfileDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".config/settings.json", []byte("{}"))
	writeFile(t, root, "src/main.go", []byte("package main"))

	files := collect(t, root)
	require.Len(t, files, 1)
}

func TestScan_SkipsUnknownExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "image.png", []byte{0x89, 0x50, 0x4e, 0x47})
	writeFile(t, root, "main.go", []byte("package main"))

	files := collect(t, root)
	require.Len(t, files, 1)
	_, ok := files["main.go"]
	assert.True(t, ok)
}

func TestScan_SkipsOversizeFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, maxFileSize+1)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, root, "huge.go", big)
	writeFile(t, root, "small.go", []byte("package main"))

	files := collect(t, root)
	require.Len(t, files, 1)
	_, ok := files["small.go"]
	assert.True(t, ok)
}

func TestScan_RejectsNulByteContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "binary.go", []byte("package main\x00garbage"))
	writeFile(t, root, "text.go", []byte("package main"))

	files := collect(t, root)
	require.Len(t, files, 1)
	_, ok := files["text.go"]
	assert.True(t, ok)
}

func TestScan_RejectsHighNonPrintableRatio(t *testing.T) {
	root := t.TempDir()
	garbage := make([]byte, 1024)
	for i := range garbage {
		garbage[i] = byte(0x01 + (i % 10))
	}
	writeFile(t, root, "noise.txt", garbage)
	writeFile(t, root, "clean.txt", []byte("hello world, this is clean text\n"))

	files := collect(t, root)
	require.Len(t, files, 1)
	_, ok := files["clean.txt"]
	assert.True(t, ok)
}

func TestScan_DetectsDockerfileAndMakefileByBasename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", []byte("FROM scratch"))
	writeFile(t, root, "Makefile", []byte("all:\n\techo hi"))

	files := collect(t, root)
	require.Len(t, files, 2)
	assert.Equal(t, "dockerfile", files["Dockerfile"].Language)
	assert.Equal(t, "makefile", files["Makefile"].Language)
}

func TestScan_EmptyDirectoryYieldsNoFiles(t *testing.T) {
	root := t.TempDir()
	files := collect(t, root)
	assert.Empty(t, files)
}
