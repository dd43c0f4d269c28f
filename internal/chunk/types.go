// Package chunk turns a file's text into retrievable Chunk records at
// function/class/method boundaries, with overlap applied to oversize blocks.
package chunk

// MemoryType classifies a chunk as payload code/docs (semantic) or tooling
// config/scripts (procedural). Retrieval weights procedural chunks lower.
type MemoryType string

const (
	MemoryTypeSemantic   MemoryType = "semantic"
	MemoryTypeProcedural MemoryType = "procedural"
)

// Chunk is the atomic unit of retrieval: a contiguous span of one file.
type Chunk struct {
	ID          string // "{path}:{start}:{end}[:{subindex}]"
	Content     string // verbatim text
	FilePath    string // absolute path
	StartLine   int    // 0-based, inclusive
	EndLine     int    // 0-based, exclusive (half-open range)
	Language    string // lowercase
	SymbolName  string // optional
	IngestedAt  int64  // epoch ms, set by the store on insert
	MemoryType  MemoryType
}

// FileInput is the input to a Chunker: one file's text plus its detected
// language (empty language routes to the sliding-window fallback).
type FileInput struct {
	Path     string
	Contents string
	Language string
}

// Chunker splits one file's contents into an ordered list of Chunks.
// Implementations never fail on content: a pathological file still yields at
// least one chunk spanning the whole input.
type Chunker interface {
	Chunk(file FileInput) []Chunk
}
