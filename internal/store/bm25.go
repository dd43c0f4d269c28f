package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/herrors"
)

// SearchBM25 normalizes query via the chunk package's tokenizer, then runs
// a weighted full-text match against chunks_fts (spec §4.5's weights
// content=10.0, symbol_name=1.0, file_tokens=5.0, code_tokens=3.0), joined
// with chunk_meta. A malformed query (FULLTEXT_GRAMMAR) is swallowed:
// callers see an empty slice, never an error, per spec §7.
func (s *Store) SearchBM25(query string, topK int) ([]SearchHit, error) {
	normalized := chunk.NormalizeQuery(query)
	if normalized == "" || topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		fmt.Sprintf(
			`SELECT c.rowid, c.id, c.content, c.file_path, c.start_line, c.end_line,
			        c.language, c.symbol_name, c.ingested_at, c.memory_type,
			        bm25(chunks_fts, %f, %f, %f, %f) AS raw_score
			 FROM chunks_fts
			 JOIN chunk_meta c ON c.rowid = chunks_fts.rowid
			 WHERE chunks_fts MATCH ?
			 ORDER BY raw_score ASC
			 LIMIT ?`,
			bm25Weights[0], bm25Weights[1], bm25Weights[2], bm25Weights[3],
		),
		normalized, topK,
	)
	if err != nil {
		if isFullTextGrammarError(err) {
			return nil, nil
		}
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("search_bm25: %w", err))
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var m ChunkMeta
		var memType string
		var rawScore float64
		if err := rows.Scan(&m.RowID, &m.ID, &m.Content, &m.FilePath, &m.StartLine, &m.EndLine,
			&m.Language, &m.SymbolName, &m.IngestedAt, &memType, &rawScore); err != nil {
			return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan search_bm25 row: %w", err))
		}
		m.MemoryType = chunk.MemoryType(memType)
		// bm25() returns lower-is-better; negate so higher-is-better,
		// consistent with search_vector's score convention.
		hits = append(hits, SearchHit{Chunk: m, Score: -rawScore})
	}
	return hits, rows.Err()
}

func isFullTextGrammarError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error") || strings.Contains(msg, "malformed match")
}

// GetChunkByID is the point lookup spec §4.5 names get_chunk_by_id.
func (s *Store) GetChunkByID(id string) (*ChunkMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m ChunkMeta
	var memType string
	err := s.db.QueryRow(
		`SELECT rowid, id, content, file_path, start_line, end_line, language, symbol_name, ingested_at, memory_type
		 FROM chunk_meta WHERE id = ?`,
		id,
	).Scan(&m.RowID, &m.ID, &m.Content, &m.FilePath, &m.StartLine, &m.EndLine,
		&m.Language, &m.SymbolName, &m.IngestedAt, &memType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("get_chunk_by_id %s: %w", id, err))
	}
	m.MemoryType = chunk.MemoryType(memType)
	return &m, nil
}
