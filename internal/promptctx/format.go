// Package promptctx implements C9, the context formatter: it turns a
// ranked SearchResult slice into the single stable wire format the engine
// promises outer layers — a <codebase_context> XML block, built by
// threshold-filtering, per-file diversification, content-prefix dedup, and
// line-boundary-aware truncation.
//
// The manual strings.Builder + fmt.Fprintf emission style is grounded on
// the teacher's internal/mcp/format.go (FormatSearchResults et al.), which
// builds markdown the same way: one pass over ranked results, one
// Fprintf-per-field, no templating package.
package promptctx

import (
	"fmt"
	"strings"

	"github.com/rishitank/holocron/internal/retrieve"
)

const (
	// DefaultMaxCharsPerChunk is spec §4.9's max_chars_per_chunk default.
	DefaultMaxCharsPerChunk = 2000
	// DefaultRelevanceThreshold is spec §4.9's relevance_threshold default.
	DefaultRelevanceThreshold = 0.05
	// DefaultMaxResultsPerFile is spec §4.9's max_results_per_file default.
	DefaultMaxResultsPerFile = 2

	// contentPrefixLen is the dedup key length (spec §4.9 step 3).
	contentPrefixLen = 200
)

// Options configures one FormatContext call (spec §4.9).
type Options struct {
	MaxCharsPerChunk   int
	RelevanceThreshold float64
	MaxResultsPerFile  int
}

// WithDefaults fills any zero field with spec §4.9's stated default.
func (o Options) WithDefaults() Options {
	if o.MaxCharsPerChunk <= 0 {
		o.MaxCharsPerChunk = DefaultMaxCharsPerChunk
	}
	if o.RelevanceThreshold <= 0 {
		o.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if o.MaxResultsPerFile <= 0 {
		o.MaxResultsPerFile = DefaultMaxResultsPerFile
	}
	return o
}

// FormatContext implements spec §4.9's six-step pipeline. It is a pure
// function of its inputs: same results, query and options always produce
// the same string.
func FormatContext(results []retrieve.SearchResult, query string, opts Options) string {
	opts = opts.WithDefaults()

	survivors := dropBelowThreshold(results, opts.RelevanceThreshold)
	survivors = enforcePerFileDiversity(survivors, opts.MaxResultsPerFile)
	survivors = dedupeByContentPrefix(survivors)

	if len(survivors) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<codebase_context query="%s" results="%d">`, escapeAttr(query), len(survivors))
	sb.WriteString("\n")
	for i, r := range survivors {
		writeResult(&sb, i+1, r, opts.MaxCharsPerChunk)
	}
	sb.WriteString("</codebase_context>")

	return sb.String()
}

func dropBelowThreshold(results []retrieve.SearchResult, threshold float64) []retrieve.SearchResult {
	out := make([]retrieve.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			continue
		}
		out = append(out, r)
	}
	return out
}

// enforcePerFileDiversity keeps at most maxPerFile results per file_path,
// preserving input order (spec §4.9 step 2: "in order, keep at most N").
func enforcePerFileDiversity(results []retrieve.SearchResult, maxPerFile int) []retrieve.SearchResult {
	counts := make(map[string]int, len(results))
	out := make([]retrieve.SearchResult, 0, len(results))
	for _, r := range results {
		path := r.Chunk.FilePath
		if counts[path] >= maxPerFile {
			continue
		}
		counts[path]++
		out = append(out, r)
	}
	return out
}

// dedupeByContentPrefix keeps the first occurrence of each distinct
// content prefix (spec §4.9 step 3: first 200 chars, first occurrence
// wins).
func dedupeByContentPrefix(results []retrieve.SearchResult) []retrieve.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]retrieve.SearchResult, 0, len(results))
	for _, r := range results {
		key := contentPrefix(r.Chunk.Content)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func contentPrefix(content string) string {
	if len(content) <= contentPrefixLen {
		return content
	}
	return content[:contentPrefixLen]
}

// writeResult emits one <result> block (spec §4.9 step 5). Attribute
// order is fixed: rank, file, lines, language, symbol (optional), score.
func writeResult(sb *strings.Builder, rank int, r retrieve.SearchResult, maxChars int) {
	c := r.Chunk
	fmt.Fprintf(sb, `<result rank="%d" file="%s" lines="%d-%d" language="%s"`,
		rank, escapeAttr(c.FilePath), c.StartLine, c.EndLine, escapeAttr(c.Language))
	if c.SymbolName != "" {
		fmt.Fprintf(sb, ` symbol="%s"`, escapeAttr(c.SymbolName))
	}
	fmt.Fprintf(sb, ` score="%.2f">`, r.Score)
	sb.WriteString("\n")
	sb.WriteString(truncateContent(c.Content, maxChars))
	sb.WriteString("\n</result>\n")
}

// truncateContent implements spec §4.9 step 5's truncation rule: cut at
// the last newline at or before maxChars, falling back to a hard cut when
// no such newline exists.
func truncateContent(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	window := content[:maxChars]
	cut := strings.LastIndexByte(window, '\n')
	if cut < 0 {
		cut = maxChars
	}
	return content[:cut] + "\n... [truncated]"
}

func escapeAttr(s string) string {
	r := strings.NewReplacer(
		`&`, "&amp;",
		`"`, "&quot;",
		`<`, "&lt;",
		`>`, "&gt;",
	)
	return r.Replace(s)
}
