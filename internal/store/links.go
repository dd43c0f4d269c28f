package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rishitank/holocron/internal/herrors"
)

// opportunisticLinkNeighbors/opportunisticLinkMinSim bound the inline
// link-building pass buildOpportunisticLinks runs inside AddBatch: at
// most this many edges per newly-embedded chunk, each scored at or above
// this similarity floor. The floor is deliberately looser than
// expandGraphHops' query-time graphHopMinSim (0.9 in internal/retrieve):
// this pass only ever sees whatever neighbors happen to exist at insert
// time, so it stores a wider candidate set and leaves the stricter
// filtering to query time.
const (
	opportunisticLinkNeighbors = 3
	opportunisticLinkMinSim    = 0.75
)

// AddLinks is spec §4.5's add_links: a transactional upsert on (src, dst).
func (s *Store) AddLinks(links []Link) error {
	if len(links) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("begin add_links: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UnixMilli()
	for _, l := range links {
		createdAt := l.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}
		if _, err := tx.Exec(
			`INSERT INTO chunk_links(src_id, dst_id, similarity, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(src_id, dst_id) DO UPDATE SET
			   similarity = excluded.similarity,
			   created_at = excluded.created_at`,
			l.SrcID, l.DstID, l.Similarity, createdAt,
		); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("upsert link %s->%s: %w", l.SrcID, l.DstID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("commit add_links: %w", err))
	}
	committed = true
	return nil
}

// GetLinks returns up to limit links from srcID, ordered descending by
// similarity (spec §4.5's get_links).
func (s *Store) GetLinks(srcID string, limit int) ([]Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT src_id, dst_id, similarity, created_at FROM chunk_links
		 WHERE src_id = ? ORDER BY similarity DESC LIMIT ?`,
		srcID, limit,
	)
	if err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("get_links %s: %w", srcID, err))
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.SrcID, &l.DstID, &l.Similarity, &l.CreatedAt); err != nil {
			return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan link row: %w", err))
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// buildOpportunisticLinks is spec §9's resolution of the link-building
// open question: rather than a separate background job, it runs inline
// inside AddBatch's transaction right after a chunk's vector lands,
// querying vecs for that vector's nearest neighbors and upserting a
// directed edge for each one at or above opportunisticLinkMinSim. It
// takes tx directly (not AddLinks) because AddBatch already holds s.mu
// for the whole batch and sync.Mutex is not reentrant.
func (s *Store) buildOpportunisticLinks(tx *sql.Tx, srcID string, srcRowID int64, vector []float32) error {
	rows, err := tx.Query(
		`SELECT c.id, c.rowid, v.distance
		 FROM vecs v
		 JOIN chunk_meta c ON c.rowid = v.chunk_rowid
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance ASC`,
		float32SliceToBytes(vector), opportunisticLinkNeighbors+1,
	)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("opportunistic link search for %s: %w", srcID, err))
	}

	type candidate struct {
		dstID      string
		similarity float64
	}
	var candidates []candidate
	for rows.Next() {
		var dstID string
		var dstRowID int64
		var distance float64
		if err := rows.Scan(&dstID, &dstRowID, &distance); err != nil {
			rows.Close()
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan opportunistic link row: %w", err))
		}
		if dstRowID == srcRowID {
			continue
		}
		similarity := 1.0 / (1.0 + distance)
		if similarity < opportunisticLinkMinSim {
			continue
		}
		candidates = append(candidates, candidate{dstID: dstID, similarity: similarity})
		if len(candidates) >= opportunisticLinkNeighbors {
			break
		}
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("iterate opportunistic link rows for %s: %w", srcID, rowsErr))
	}

	now := time.Now().UnixMilli()
	for _, c := range candidates {
		if _, err := tx.Exec(
			`INSERT INTO chunk_links(src_id, dst_id, similarity, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(src_id, dst_id) DO UPDATE SET
			   similarity = excluded.similarity,
			   created_at = excluded.created_at`,
			srcID, c.dstID, c.similarity, now,
		); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("upsert opportunistic link %s->%s: %w", srcID, c.dstID, err))
		}
	}
	return nil
}
