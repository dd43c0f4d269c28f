package store

import (
	"fmt"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/herrors"
)

// SearchVector issues a sqlite-vec nearest-neighbor query limited to topK,
// joined with chunk_meta, scoring each hit as 1/(1+distance) (spec §4.5).
// Returns an empty result, never an error, when the store has no
// committed dimension or queryVec is empty.
func (s *Store) SearchVector(queryVec []float32, topK int) ([]SearchHit, error) {
	s.mu.RLock()
	dimension := s.dimension
	s.mu.RUnlock()

	if dimension == 0 || len(queryVec) == 0 || topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT c.rowid, c.id, c.content, c.file_path, c.start_line, c.end_line,
		        c.language, c.symbol_name, c.ingested_at, c.memory_type, v.distance
		 FROM vecs v
		 JOIN chunk_meta c ON c.rowid = v.chunk_rowid
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance ASC`,
		float32SliceToBytes(queryVec), topK,
	)
	if err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("search_vector: %w", err))
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var m ChunkMeta
		var memType string
		var distance float64
		if err := rows.Scan(&m.RowID, &m.ID, &m.Content, &m.FilePath, &m.StartLine, &m.EndLine,
			&m.Language, &m.SymbolName, &m.IngestedAt, &memType, &distance); err != nil {
			return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan search_vector row: %w", err))
		}
		m.MemoryType = chunk.MemoryType(memType)
		hits = append(hits, SearchHit{Chunk: m, Score: 1.0 / (1.0 + distance)})
	}
	return hits, rows.Err()
}
