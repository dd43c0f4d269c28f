package chunk

import "strings"

// SlidingWindowChunker is the "text" chunker-selection option: fixed-size
// overlapping windows, used directly for languages with no boundary
// patterns (spec §4.1 step 1 fallback).
type SlidingWindowChunker struct {
	size    int
	overlap int
}

// NewSlidingWindowChunker returns the default 200-line/20-line-overlap chunker.
func NewSlidingWindowChunker() *SlidingWindowChunker {
	return &SlidingWindowChunker{size: slidingWindowSize, overlap: slidingWindowOverlap}
}

// Chunk implements Chunker.
func (c *SlidingWindowChunker) Chunk(file FileInput) []Chunk {
	if file.Contents == "" {
		return nil
	}
	lines := splitLines(file.Contents)
	if len(lines) <= c.size {
		return []Chunk{{
			ID:        chunkID(file.Path, 0, len(lines), ""),
			Content:   file.Contents,
			FilePath:  file.Path,
			StartLine: 0,
			EndLine:   len(lines),
			Language:  file.Language,
		}}
	}

	var chunks []Chunk
	for start := 0; start < len(lines); {
		end := start + c.size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, Chunk{
			ID:        chunkID(file.Path, start, end, ""),
			Content:   strings.Join(lines[start:end], "\n"),
			FilePath:  file.Path,
			StartLine: start,
			EndLine:   end,
			Language:  file.Language,
		})
		if end == len(lines) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}
