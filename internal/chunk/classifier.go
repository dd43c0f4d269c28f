package chunk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// proceduralExts are config/script extensions (spec §4.4): always
// procedural, regardless of directory.
var proceduralExts = map[string]struct{}{
	".json": {},
	".yaml": {},
	".yml":  {},
	".toml": {},
	".ini":  {},
	".env":  {},
	".sh":   {},
	".bash": {},
	".zsh":  {},
	".fish": {},
	".ps1":  {},
}

// proceduralBasenamePatterns are basename regexes that mark procedural
// tooling files independent of extension.
var proceduralBasenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^docker-compose`),
	regexp.MustCompile(`\.config\.(ts|js|cjs|mjs)$`),
	regexp.MustCompile(`^tsconfig.*\.json$`),
	regexp.MustCompile(`^\.eslintrc`),
	regexp.MustCompile(`^\.prettierrc`),
	regexp.MustCompile(`^(vitest|jest)\.config`),
}

// Classify assigns a MemoryType to a chunk by inspecting its file path, per
// spec §4.4: procedural for build/tooling config and scripts, semantic for
// everything else (application source and prose documentation).
func Classify(path string) MemoryType {
	base := filepath.Base(path)
	baseLower := strings.ToLower(base)

	if baseLower == "makefile" || baseLower == "dockerfile" {
		return MemoryTypeProcedural
	}

	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := proceduralExts[ext]; ok {
		return MemoryTypeProcedural
	}

	for _, p := range proceduralBasenamePatterns {
		if p.MatchString(baseLower) {
			return MemoryTypeProcedural
		}
	}

	return MemoryTypeSemantic
}
