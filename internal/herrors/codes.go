// Package herrors provides the structured error taxonomy for the
// holocron core (spec.md §7). Named herrors, not errors, so it never
// shadows the standard library package in call sites that import both.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (store, file, git)
//   - 3XX: Network/transport errors (embedder, inference)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package herrors

// Category classifies an error code for metrics/logging.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity classifies how the caller should react.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Kinds from spec.md §7's error taxonomy table.
const (
	// CodeDimensionMismatch: add_batch contains a vector whose width
	// differs from the store's fixed dimension; the batch is rolled back.
	CodeDimensionMismatch = "ERR_401_DIMENSION_MISMATCH"

	// CodeStoreIO: the database open/query/exec failed.
	CodeStoreIO = "ERR_201_STORE_IO"

	// CodeEmbedderIO: embedder transport/HTTP failure. The indexer
	// surfaces this; the retriever instead falls back to lexical-only.
	CodeEmbedderIO = "ERR_301_EMBEDDER_IO"

	// CodeFulltextGrammar: the query was malformed for the full-text
	// grammar. Swallowed inside search_bm25; caller sees an empty result.
	CodeFulltextGrammar = "ERR_402_FULLTEXT_GRAMMAR"

	// CodeChunkerNone: the file's language has no boundary patterns.
	// Never surfaced — silent fallback to the sliding-window chunker.
	CodeChunkerNone = "ERR_403_CHUNKER_NONE"

	// CodeGitUnavailable: path is not a git working tree, or git itself
	// is unavailable. check_freshness returns Full.
	CodeGitUnavailable = "ERR_202_GIT_UNAVAILABLE"

	// CodeMigrationRequired: the stored schema_version is older than the
	// current constant. Triggers a destructive migration, logged, then
	// continues.
	CodeMigrationRequired = "ERR_102_MIGRATION_REQUIRED"

	// CodeHookTimeout: an external hook could not read stdin within its
	// deadline. Owned entirely by the outer hook layer — the core never
	// raises it, but the code is reserved here so outer layers share one
	// taxonomy.
	CodeHookTimeout = "ERR_302_HOOK_TIMEOUT"

	// CodeInternal is the catch-all for unexpected internal failures.
	CodeInternal = "ERR_501_INTERNAL"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case CodeMigrationRequired, CodeGitUnavailable, CodeChunkerNone, CodeFulltextGrammar:
		return SeverityWarning
	case CodeDimensionMismatch, CodeStoreIO, CodeEmbedderIO:
		return SeverityError
	default:
		return SeverityError
	}
}

func retryableFromCode(code string) bool {
	return code == CodeEmbedderIO
}
