package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/scanner"
	"github.com/rishitank/holocron/internal/store"
)

const (
	testEventuallyTimeout = 2 * time.Second
	testEventuallyTick    = 5 * time.Millisecond
)

type fakeScanner struct {
	files []scanner.FileResult
	err   error
}

func (f *fakeScanner) Scan(ctx context.Context, root string) (<-chan scanner.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan scanner.ScanResult, len(f.files))
	for _, file := range f.files {
		file := file
		ch <- scanner.ScanResult{File: &file}
	}
	close(ch)
	return ch, nil
}

type fakeReader struct {
	byPath map[string]scanner.FileResult
}

func (f *fakeReader) ReadFile(absPath string) (scanner.FileResult, bool) {
	fr, ok := f.byPath[absPath]
	return fr, ok
}

type fakeEmbedder struct {
	dims int
	err  error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32(len(text))
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

type fakeStore struct {
	mu       sync.Mutex
	removed  []string
	batches  [][]store.Entry
	events   []store.IndexEvent
	cleared  bool
	addBatch func(entries []store.Entry) error
}

func (f *fakeStore) RemoveByFilePath(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeStore) AddBatch(entries []store.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addBatch != nil {
		return f.addBatch(entries)
	}
	f.batches = append(f.batches, entries)
	return nil
}

func (f *fakeStore) LogIndexEvent(ev store.IndexEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) ClearAll() error {
	f.cleared = true
	return nil
}

func TestIndexDirectory_ChunksAndEmbedsDiscoveredFiles(t *testing.T) {
	sc := &fakeScanner{files: []scanner.FileResult{
		{Path: "a.go", Contents: "func A() {}\n", Language: "go"},
		{Path: "b.go", Contents: "func B() {}\n", Language: "go"},
	}}
	st := &fakeStore{}
	ix := New("/repo", sc, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 4}, st)

	result, err := ix.IndexDirectory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesWalked)
	assert.Equal(t, result.ChunksAdded, len(st.batches[0]))
	require.Len(t, st.events, 1)
	assert.Equal(t, "full", st.events[0].EventType)
	for _, e := range st.batches[0] {
		assert.Len(t, e.Vector, 4)
	}
}

func TestIndexDirectory_LexicalOnlyModeAttachesEmptyVectors(t *testing.T) {
	sc := &fakeScanner{files: []scanner.FileResult{
		{Path: "a.go", Contents: "func A() {}\n", Language: "go"},
	}}
	st := &fakeStore{}
	ix := New("/repo", sc, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	_, err := ix.IndexDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, st.batches, 1)
	for _, e := range st.batches[0] {
		assert.Empty(t, e.Vector)
	}
}

func TestIndexDirectory_RemovesEachFileBeforeReinserting(t *testing.T) {
	sc := &fakeScanner{files: []scanner.FileResult{
		{Path: "a.go", Contents: "func A() {}\n", Language: "go"},
	}}
	st := &fakeStore{}
	ix := New("/repo", sc, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	_, err := ix.IndexDirectory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, st.removed)
}

func TestIndexDirectory_EmbedderErrorAbortsIndexing(t *testing.T) {
	sc := &fakeScanner{files: []scanner.FileResult{
		{Path: "a.go", Contents: "func A() {}\n", Language: "go"},
	}}
	st := &fakeStore{}
	ix := New("/repo", sc, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 4, err: assertErr{}}, st)

	_, err := ix.IndexDirectory(context.Background())
	require.Error(t, err)
	assert.Empty(t, st.batches)
	assert.Empty(t, st.events)
}

type assertErr struct{}

func (assertErr) Error() string { return "embedder unavailable" }

func TestIndexFiles_ReadsExactlyGivenPathsAsIncremental(t *testing.T) {
	reader := &fakeReader{byPath: map[string]scanner.FileResult{
		"/repo/a.go": {Path: "a.go", Contents: "func A() {}\n", Language: "go"},
	}}
	st := &fakeStore{}
	ix := New("/repo", &fakeScanner{}, reader, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	result, err := ix.IndexFiles(context.Background(), []string{"a.go"}, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesWalked)
	require.Len(t, st.events, 1)
	assert.Equal(t, "incremental", st.events[0].EventType)
	assert.Equal(t, "deadbeef", st.events[0].CommitSHA)
}

func TestIndexFiles_SkipsUnreadablePaths(t *testing.T) {
	reader := &fakeReader{byPath: map[string]scanner.FileResult{}}
	st := &fakeStore{}
	ix := New("/repo", &fakeScanner{}, reader, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	result, err := ix.IndexFiles(context.Background(), []string{"missing.go"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesWalked)
}

func TestConcurrentIndexDirectory_SecondCallIsRejected(t *testing.T) {
	block := make(chan struct{})
	st := &fakeStore{addBatch: func(entries []store.Entry) error {
		<-block
		return nil
	}}
	sc := &fakeScanner{files: []scanner.FileResult{{Path: "a.go", Contents: "func A() {}\n", Language: "go"}}}
	ix := New("/repo", sc, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	errCh := make(chan error, 1)
	go func() {
		_, err := ix.IndexDirectory(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { ix.mu.Lock(); defer ix.mu.Unlock(); return ix.running }, testEventuallyTimeout, testEventuallyTick)

	_, err := ix.IndexDirectory(context.Background())
	assert.Error(t, err)

	close(block)
	require.NoError(t, <-errCh)
}

func TestRemoveFiles_RemovesEveryPath(t *testing.T) {
	st := &fakeStore{}
	ix := New("/repo", &fakeScanner{}, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	require.NoError(t, ix.RemoveFiles([]string{"a.go", "b.go"}))
	assert.Equal(t, []string{"a.go", "b.go"}, st.removed)
}

func TestClearIndex_DelegatesToStore(t *testing.T) {
	st := &fakeStore{}
	ix := New("/repo", &fakeScanner{}, &fakeReader{}, chunk.NewCodeChunker(), &fakeEmbedder{dims: 0}, st)

	require.NoError(t, ix.ClearIndex())
	assert.True(t, st.cleared)
}
