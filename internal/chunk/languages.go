package chunk

import "regexp"

// boundaryPattern is one line-anchored regex used to detect a top-level
// symbol declaration. Name is captured in the first ("name") subgroup.
type boundaryPattern struct {
	re *regexp.Regexp
}

// languageConfig holds the boundary patterns for one language, kept in the
// same registry shape the teacher uses for its tree-sitter language table —
// here the detection mechanism is regex, per spec's line-anchored algorithm.
type languageConfig struct {
	name     string
	patterns []boundaryPattern
}

// reservedKeywords are never accepted as symbol names (control-flow words
// that regex patterns can incidentally capture).
var reservedKeywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "else": {},
	"catch": {}, "try": {}, "do": {}, "return": {}, "match": {},
}

func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

// languageRegistry maps a lowercase language name to its boundary patterns.
var languageRegistry = map[string]*languageConfig{
	"typescript": {
		name: "typescript",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)},
			{mustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)`)},
			{mustCompile(`^\s*(?:export\s+)?interface\s+(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)`)},
			{mustCompile(`^\s*(?:public|private|protected|static|async)?\s*(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)\s*\([^)]*\)\s*(?::\s*[^\{]+)?\{`)},
		},
	},
	"javascript": {
		name: "javascript",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)},
			{mustCompile(`^\s*(?:export\s+)?(?:default\s+)?class\s+(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)`)},
			{mustCompile(`^\s*(?:const|let|var)\s+(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`)},
		},
	},
	"python": {
		name: "python",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:async\s+)?def\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\(`)},
			{mustCompile(`^\s*class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*[:\(]`)},
		},
	},
	"go": {
		name: "go",
		patterns: []boundaryPattern{
			{mustCompile(`^func\s+(?:\([^)]*\)\s*)?(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\(`)},
			{mustCompile(`^type\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s+(?:struct|interface)\s*\{`)},
		},
	},
	"rust": {
		name: "rust",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*[\(<]`)},
			{mustCompile(`^\s*(?:pub\s+)?struct\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*(?:pub\s+)?enum\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*impl(?:<[^>]*>)?\s+(?:[A-Za-z_][A-Za-z0-9_]*\s+for\s+)?(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
		},
	},
	"java": {
		name: "java",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?(?:final\s+)?class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*(?:public|private|protected)?\s*interface\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?(?:[A-Za-z_][A-Za-z0-9_<>\[\],\s]*\s+)(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*\)\s*(?:throws\s+[^\{]+)?\{`)},
		},
	},
	"ruby": {
		name: "ruby",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*def\s+(?:self\.)?(?P<name>[A-Za-z_][A-Za-z0-9_?!=]*)`)},
			{mustCompile(`^\s*class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*module\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
		},
	},
	"csharp": {
		name: "csharp",
		patterns: []boundaryPattern{
			{mustCompile(`^\s*(?:public|private|protected|internal)?\s*(?:static\s+)?(?:abstract\s+|sealed\s+|partial\s+)?class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*(?:public|private|protected|internal)?\s*interface\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`)},
			{mustCompile(`^\s*(?:public|private|protected|internal)\s+(?:static\s+)?(?:async\s+)?(?:[A-Za-z_][A-Za-z0-9_<>\[\],\s]*\s+)(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*\)\s*\{`)},
		},
	},
}

// languagesWithPatterns reports whether language has a boundary pattern
// table. Callers fall back to the sliding-window chunker when false.
func languagesWithPatterns(language string) (*languageConfig, bool) {
	cfg, ok := languageRegistry[language]
	return cfg, ok
}
