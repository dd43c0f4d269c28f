// Package index runs the four-phase ingestion pipeline spec §4.7 describes:
// bounded-concurrency read/chunk, sequential embed, a single batched store
// write, and an audit-log append.
//
// The dependency-injection shape (an Indexer built from small, independently
// testable collaborators) follows the teacher's index.Runner/
// RunnerDependencies idiom; the bounded worker pool is grounded on
// search/engine.go's use of golang.org/x/sync/errgroup.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/herrors"
	"github.com/rishitank/holocron/internal/scanner"
	"github.com/rishitank/holocron/internal/store"
)

// phaseAConcurrency is spec §4.7's fixed read/chunk worker limit.
const phaseAConcurrency = 16

// Embedder is the subset of internal/embed.Embedder the indexer needs.
// Embedding dimension 0 means lexical-only mode: chunks are stored with an
// empty vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Scanner is the subset of internal/scanner.Scanner the indexer needs for
// a full-tree walk.
type Scanner interface {
	Scan(ctx context.Context, root string) (<-chan scanner.ScanResult, error)
}

// FileReader is the subset of internal/scanner.Scanner the indexer needs
// to resolve an explicit path list (index_files / incremental re-index).
type FileReader interface {
	ReadFile(absPath string) (scanner.FileResult, bool)
}

// Store is the subset of internal/store.Store the indexer writes through.
type Store interface {
	RemoveByFilePath(path string) error
	AddBatch(entries []store.Entry) error
	LogIndexEvent(ev store.IndexEvent) error
	ClearAll() error
}

// Result is index_directory/index_files's return value (spec §4.7).
type Result struct {
	FilesWalked int
	ChunksAdded int
}

// Indexer runs the ingest pipeline against one project root.
type Indexer struct {
	root     string
	scanner  Scanner
	reader   FileReader
	chunker  chunk.Chunker
	embedder Embedder
	store    Store

	mu      sync.Mutex
	running bool
}

// New builds an Indexer. root is the absolute project directory; chunker
// is typically chunk.NewCodeChunker(), which already dispatches between
// boundary-based and sliding-window chunking per file.
func New(root string, sc Scanner, reader FileReader, chunker chunk.Chunker, embedder Embedder, st Store) *Indexer {
	return &Indexer{root: root, scanner: sc, reader: reader, chunker: chunker, embedder: embedder, store: st}
}

// acquire enforces spec §4.7's "only one indexing operation in flight per
// engine instance"; callers attempting a concurrent run get an error
// instead of silently queuing.
func (ix *Indexer) acquire() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.running {
		return herrors.New(herrors.CodeStoreIO, "an indexing operation is already in progress", nil)
	}
	ix.running = true
	return nil
}

func (ix *Indexer) release() {
	ix.mu.Lock()
	ix.running = false
	ix.mu.Unlock()
}

// IndexDirectory walks root to exhaustion via the scanner, then runs the
// ingest pipeline over every discovered file as a "full" event.
func (ix *Indexer) IndexDirectory(ctx context.Context) (Result, error) {
	if err := ix.acquire(); err != nil {
		return Result{}, err
	}
	defer ix.release()

	results, err := ix.scanner.Scan(ctx, ix.root)
	if err != nil {
		return Result{}, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan %s: %w", ix.root, err))
	}

	var files []scanner.FileResult
	for r := range results {
		if r.Error != nil {
			continue
		}
		if r.File != nil {
			files = append(files, *r.File)
		}
	}

	chunksAdded, err := ix.runPipeline(ctx, files, "full", "")
	if err != nil {
		return Result{}, err
	}
	return Result{FilesWalked: len(files), ChunksAdded: chunksAdded}, nil
}

// IndexFiles re-reads and re-chunks exactly the given paths (relative to
// root), running the pipeline as an "incremental" event.
func (ix *Indexer) IndexFiles(ctx context.Context, paths []string, commitSHA string) (Result, error) {
	if err := ix.acquire(); err != nil {
		return Result{}, err
	}
	defer ix.release()

	files := ix.readPaths(paths)
	chunksAdded, err := ix.runPipeline(ctx, files, "incremental", commitSHA)
	if err != nil {
		return Result{}, err
	}
	return Result{FilesWalked: len(files), ChunksAdded: chunksAdded}, nil
}

func (ix *Indexer) readPaths(paths []string) []scanner.FileResult {
	var files []scanner.FileResult
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(ix.root, p)
		}
		if fr, ok := ix.reader.ReadFile(abs); ok {
			fr.Path = filepath.ToSlash(p)
			files = append(files, fr)
		}
	}
	return files
}

// runPipeline implements spec §4.7's internal pipeline phases 1-4 given an
// already-resolved file list.
func (ix *Indexer) runPipeline(ctx context.Context, files []scanner.FileResult, eventType, commitSHA string) (int, error) {
	for _, f := range files {
		if err := ix.store.RemoveByFilePath(f.Path); err != nil {
			return 0, err
		}
	}

	chunks, err := ix.phaseAReadAndChunk(ctx, files)
	if err != nil {
		return 0, err
	}

	entries, err := ix.phaseBEmbed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if len(entries) > 0 {
		if err := ix.store.AddBatch(entries); err != nil {
			return 0, err
		}
	}

	if err := ix.store.LogIndexEvent(store.IndexEvent{
		EventType:    eventType,
		FilesChanged: len(files),
		ChunksAdded:  len(entries),
		CommitSHA:    commitSHA,
	}); err != nil {
		return 0, err
	}

	return len(entries), nil
}

// phaseAReadAndChunk runs C1 over every file with a fixed concurrency of
// phaseAConcurrency (spec §4.7 phase A). Files are already in memory
// (scanner.FileResult.Contents), so this phase is really "chunk", not
// "read"; the semaphore still bounds CPU fan-out the same way the teacher
// bounds network fan-out in search/engine.go.
func (ix *Indexer) phaseAReadAndChunk(ctx context.Context, files []scanner.FileResult) ([]chunk.Chunk, error) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(phaseAConcurrency)

	results := make([][]chunk.Chunk, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = ix.chunker.Chunk(chunk.FileInput{
				Path:     f.Path,
				Contents: f.Contents,
				Language: f.Language,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("chunk phase: %w", err))
	}

	var out []chunk.Chunk
	for _, cs := range results {
		out = append(out, cs...)
	}
	return out, nil
}

// phaseBEmbed computes each chunk's contextual embedding input and calls
// the embedder sequentially (spec §4.7 phase B — intentionally not
// parallelized, unlike phase A). An embedder error aborts the whole call.
func (ix *Indexer) phaseBEmbed(ctx context.Context, chunks []chunk.Chunk) ([]store.Entry, error) {
	entries := make([]store.Entry, 0, len(chunks))
	for _, c := range chunks {
		c.MemoryType = chunk.Classify(c.FilePath)

		var vec []float32
		if ix.embedder.Dimensions() > 0 {
			input := chunk.ContextualEmbeddingInput(c)
			v, err := ix.embedder.Embed(ctx, input)
			if err != nil {
				return nil, herrors.Wrap(herrors.CodeEmbedderIO, fmt.Errorf("embed chunk %s: %w", c.ID, err))
			}
			vec = v
		}

		entries = append(entries, store.Entry{Chunk: c, Vector: vec, MemoryType: c.MemoryType})
	}
	return entries, nil
}

// RemoveFiles removes every listed path from the store without re-indexing
// it (spec §4.7's remove_files).
func (ix *Indexer) RemoveFiles(paths []string) error {
	for _, p := range paths {
		if err := ix.store.RemoveByFilePath(filepath.ToSlash(p)); err != nil {
			return err
		}
	}
	return nil
}

// ClearIndex wipes the entire store (spec §4.7's clear_index).
func (ix *Indexer) ClearIndex() error {
	return ix.store.ClearAll()
}
