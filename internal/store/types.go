// Package store is the hybrid BM25 + vector + relational store (spec §4.5):
// one SQLite database file holding chunk metadata, a weighted full-text
// index, a vector index, a chunk-link graph, and an append-only event log.
package store

import "github.com/rishitank/holocron/internal/chunk"

// CurrentSchemaVersion gates destructive migration (spec §4.5): a stored
// version lower than this triggers a drop-and-recreate of the
// schema-bound tables on next Open.
const CurrentSchemaVersion = 1

// ChunkMeta is one row of chunk_meta, joined out of search results.
type ChunkMeta struct {
	RowID      int64
	ID         string
	Content    string
	FilePath   string
	StartLine  int
	EndLine    int
	Language   string
	SymbolName string
	IngestedAt int64 // epoch ms
	MemoryType chunk.MemoryType
}

// Entry is one unit of work for AddBatch: a chunk, its embedding vector
// (possibly empty for lexical-only mode), and an optional memory type
// override (defaults to semantic when empty).
type Entry struct {
	Chunk      chunk.Chunk
	Vector     []float32
	MemoryType chunk.MemoryType
}

// SearchHit is one row returned by SearchBM25 or SearchVector: a chunk
// joined with its match score.
type SearchHit struct {
	Chunk ChunkMeta
	Score float64
}

// Link is one row of chunk_links: a directed similarity edge between two
// chunk ids.
type Link struct {
	SrcID      string
	DstID      string
	Similarity float64
	CreatedAt  int64
}

// IndexEvent is one row of index_events, the append-only indexing audit
// log.
type IndexEvent struct {
	ID            int64
	EventType     string // "full" | "incremental" | "files"
	FilesChanged  int
	ChunksAdded   int
	ChunksRemoved int
	CommitSHA     string
	CreatedAt     int64
}

// bm25Weights are the fixed column weights from spec §4.5:
// content=10.0, symbol_name=1.0, file_tokens=5.0, code_tokens=3.0.
var bm25Weights = [4]float64{10.0, 1.0, 5.0, 3.0}
