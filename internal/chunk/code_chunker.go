package chunk

import (
	"fmt"
	"strings"
)

const (
	slidingWindowSize    = 200
	slidingWindowOverlap = 20

	maxChunkLines  = 150
	splitOverlap   = 10
)

// boundary is a detected symbol start: the line it begins on and its name.
type boundary struct {
	line int
	name string
}

// CodeChunker implements the language-aware ("ast" in the chunker-selection
// config knob) boundary chunker described in spec §4.1: scan for top-level
// declarations via per-language regex, split into half-open ranges, fall
// back to the sliding-window chunker when the language has no patterns, and
// split any oversize chunk into overlapping sub-chunks.
type CodeChunker struct{}

// NewCodeChunker returns the language-aware chunker.
func NewCodeChunker() *CodeChunker { return &CodeChunker{} }

// Chunk implements Chunker.
func (c *CodeChunker) Chunk(file FileInput) []Chunk {
	if file.Contents == "" {
		return nil
	}

	cfg, ok := languagesWithPatterns(strings.ToLower(file.Language))
	if !ok {
		return NewSlidingWindowChunker().Chunk(file)
	}

	lines := splitLines(file.Contents)
	boundaries := findBoundaries(lines, cfg)

	if len(boundaries) == 0 {
		return splitOversize(Chunk{
			ID:        chunkID(file.Path, 0, len(lines), ""),
			Content:   file.Contents,
			FilePath:  file.Path,
			StartLine: 0,
			EndLine:   len(lines),
			Language:  file.Language,
		})
	}

	var chunks []Chunk
	for i, b := range boundaries {
		end := len(lines)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].line
		}
		base := Chunk{
			ID:         chunkID(file.Path, b.line, end, ""),
			Content:    strings.Join(lines[b.line:end], "\n"),
			FilePath:   file.Path,
			StartLine:  b.line,
			EndLine:    end,
			Language:   file.Language,
			SymbolName: b.name,
		}
		chunks = append(chunks, splitOversize(base)...)
	}
	return chunks
}

// findBoundaries scans every line against every pattern for the language,
// recording the first match per line and discarding reserved/underscore
// names.
func findBoundaries(lines []string, cfg *languageConfig) []boundary {
	var out []boundary
	for i, line := range lines {
		for _, p := range cfg.patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			idx := p.re.SubexpIndex("name")
			if idx < 0 || idx >= len(m) {
				continue
			}
			name := m[idx]
			if name == "" || strings.HasPrefix(name, "_") {
				continue
			}
			if _, reserved := reservedKeywords[name]; reserved {
				continue
			}
			out = append(out, boundary{line: i, name: name})
			break
		}
	}
	return out
}

// splitOversize splits a chunk whose line count exceeds maxChunkLines into
// overlapping sub-chunks; sub-chunks inherit the parent symbol name suffixed
// with their index.
func splitOversize(c Chunk) []Chunk {
	total := c.EndLine - c.StartLine
	if total <= maxChunkLines {
		return []Chunk{c}
	}

	lines := splitLines(c.Content)
	var out []Chunk
	subIndex := 0
	for start := 0; start < len(lines); {
		end := start + maxChunkLines
		if end > len(lines) {
			end = len(lines)
		}
		symbol := c.SymbolName
		if symbol != "" {
			symbol = fmt.Sprintf("%s#%d", symbol, subIndex)
		}
		out = append(out, Chunk{
			ID:         chunkID(c.FilePath, c.StartLine+start, c.StartLine+end, fmt.Sprintf("%d", subIndex)),
			Content:    strings.Join(lines[start:end], "\n"),
			FilePath:   c.FilePath,
			StartLine:  c.StartLine + start,
			EndLine:    c.StartLine + end,
			Language:   c.Language,
			SymbolName: symbol,
		})
		if end == len(lines) {
			break
		}
		start = end - splitOverlap
		subIndex++
	}
	return out
}

func chunkID(path string, start, end int, subindex string) string {
	if subindex == "" {
		return fmt.Sprintf("%s:%d:%d", path, start, end)
	}
	return fmt.Sprintf("%s:%d:%d:%s", path, start, end, subindex)
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
