package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Scanner discovers indexable files beneath a project root. Grounded on the
// teacher's `scanner.Scanner` depth-first `filepath.WalkDir` idiom, trimmed
// to spec §4.2's fixed rule set (no gitignore, no include/exclude patterns,
// no submodules — those are amanmcp-specific extras outside spec scope).
type Scanner struct{}

// New returns a Scanner.
func New() *Scanner { return &Scanner{} }

// Scan walks root depth-first and streams each indexable file on the
// returned channel. The channel is closed when the walk completes or ctx is
// canceled. Yield order within a directory is unspecified.
func (s *Scanner) Scan(ctx context.Context, root string) (<-chan ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, results)
	}()
	return results, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d os.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if !isAllowed(relPath) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > maxFileSize {
			return nil
		}

		contents, ok := readIfText(path)
		if !ok {
			return nil
		}

		select {
		case results <- ScanResult{File: &FileResult{
			Path:     filepath.ToSlash(relPath),
			Contents: contents,
			Language: DetectLanguage(relPath),
		}}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// ReadFile applies the walker's own size-cap/binary-sniff rules to one
// absolute path outside of a tree walk, for callers that already have a
// path list (spec §4.7's indexer, given paths from the git tracker rather
// than a fresh Scan). ok is false for a missing, oversize, or binary file.
func (s *Scanner) ReadFile(absPath string) (FileResult, bool) {
	fi, err := os.Stat(absPath)
	if err != nil || fi.IsDir() || fi.Size() > maxFileSize {
		return FileResult{}, false
	}
	contents, ok := readIfText(absPath)
	if !ok {
		return FileResult{}, false
	}
	return FileResult{
		Path:     filepath.ToSlash(absPath),
		Contents: contents,
		Language: DetectLanguage(absPath),
	}, true
}

// shouldSkipDir reports whether a directory should be pruned: the fixed
// blocklist, plus any dotfile directory (but not "." or "..").
func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, blocked := skipDirs[name]
	return blocked
}

// readIfText reads the whole file, rejects it if it is larger than
// maxFileSize, binary-sniffs the first binarySampleSize bytes per spec §4.2,
// and returns the full contents when the file passes.
func readIfText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if len(data) > maxFileSize {
		return "", false
	}

	sample := data
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
	}
	if isBinary(sample) {
		return "", false
	}

	return string(data), true
}

// isBinary declares a sample binary if it contains a NUL byte or more than
// nonPrintableRatioThreshold of its bytes are non-printable, non-whitespace.
func isBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}

	nonPrintable := 0
	for i := 0; i < len(sample); {
		b := sample[i]
		if b == 0 {
			return true
		}
		if b < utf8.RuneSelf {
			if !isPrintableASCII(b) {
				nonPrintable++
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			nonPrintable++
		}
		i += size
	}

	return float64(nonPrintable)/float64(len(sample)) > nonPrintableRatioThreshold
}

func isPrintableASCII(b byte) bool {
	switch b {
	case '\t', '\n', '\r':
		return true
	}
	return b >= 0x20 && b < 0x7f
}
