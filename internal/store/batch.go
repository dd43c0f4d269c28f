package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/herrors"
)

// AddBatch is the transactional upsert described in spec §4.5: each entry's
// existing row (by chunk id) is deleted from all three tables, then
// reinserted with a fresh ingested_at timestamp. The whole batch rolls back
// if any vector's width disagrees with the store's fixed dimension.
func (s *Store) AddBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("begin add_batch: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UnixMilli()

	// pendingDim/pendingHasVectors track a dimension newly committed
	// during this batch; they only land on the Store once tx.Commit
	// succeeds, so a mid-batch rollback never leaves in-memory state
	// ahead of what's actually on disk.
	pendingDim := s.dimension
	pendingHasVectors := s.hasVectors

	for _, e := range entries {
		if err := s.upsertOne(tx, e, now, &pendingDim, &pendingHasVectors); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("commit add_batch: %w", err))
	}
	committed = true
	s.dimension = pendingDim
	s.hasVectors = pendingHasVectors
	s.invalidateSize()
	return nil
}

func (s *Store) upsertOne(tx *sql.Tx, e Entry, now int64, pendingDim *int, pendingHasVectors *bool) error {
	if err := s.deleteByID(tx, e.Chunk.ID); err != nil {
		return err
	}

	memType := e.MemoryType
	if memType == "" {
		memType = chunk.MemoryTypeSemantic
	}

	res, err := tx.Exec(
		`INSERT INTO chunk_meta(id, content, file_path, start_line, end_line, language, symbol_name, ingested_at, memory_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Chunk.ID, e.Chunk.Content, e.Chunk.FilePath, e.Chunk.StartLine, e.Chunk.EndLine,
		e.Chunk.Language, e.Chunk.SymbolName, now, string(memType),
	)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("insert chunk_meta for %s: %w", e.Chunk.ID, err))
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("read rowid for %s: %w", e.Chunk.ID, err))
	}

	fileTokens := chunk.FileTokens(e.Chunk.FilePath)
	codeTokens := chunk.ExtractCodeTokens(e.Chunk.Content)

	if _, err := tx.Exec(
		`INSERT INTO chunks_fts(rowid, content, symbol_name, file_tokens, code_tokens) VALUES (?, ?, ?, ?, ?)`,
		rowID, e.Chunk.Content, e.Chunk.SymbolName, fileTokens, codeTokens,
	); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("insert chunks_fts for %s: %w", e.Chunk.ID, err))
	}

	if len(e.Vector) > 0 {
		if err := s.ensureDimensions(tx, len(e.Vector), pendingDim, pendingHasVectors); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO vecs(chunk_rowid, embedding) VALUES (?, ?)`,
			rowID, float32SliceToBytes(e.Vector),
		); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("insert vecs for %s: %w", e.Chunk.ID, err))
		}
		if err := s.buildOpportunisticLinks(tx, e.Chunk.ID, rowID, e.Vector); err != nil {
			return err
		}
	}

	return nil
}

// deleteByID removes an existing chunk id's rows from all three tables,
// a no-op if the id is not present. FTS5/vec0 virtual tables don't support
// upsert, hence delete-then-insert.
func (s *Store) deleteByID(tx *sql.Tx, id string) error {
	var rowID sql.NullInt64
	err := tx.QueryRow(`SELECT rowid FROM chunk_meta WHERE id = ?`, id).Scan(&rowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("lookup existing rowid for %s: %w", id, err))
	}
	if !rowID.Valid {
		return nil
	}

	if _, err := tx.Exec(`DELETE FROM chunks_fts WHERE rowid = ?`, rowID.Int64); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("delete existing fts row for %s: %w", id, err))
	}
	if s.hasVectors {
		if _, err := tx.Exec(`DELETE FROM vecs WHERE chunk_rowid = ?`, rowID.Int64); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("delete existing vector row for %s: %w", id, err))
		}
	}
	if _, err := tx.Exec(`DELETE FROM chunk_meta WHERE rowid = ?`, rowID.Int64); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("delete existing chunk_meta row for %s: %w", id, err))
	}
	return nil
}

// RemoveByFilePath transactionally deletes every chunk whose file_path
// matches, from all three tables (spec §4.5's remove_by_file_path).
func (s *Store) RemoveByFilePath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("begin remove_by_file_path: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.Query(`SELECT rowid, id FROM chunk_meta WHERE file_path = ?`, path)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("select rows for %s: %w", path, err))
	}
	var ids []string
	for rows.Next() {
		var rowID int64
		var id string
		if err := rows.Scan(&rowID, &id); err != nil {
			rows.Close()
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("scan row for %s: %w", path, err))
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if err := s.deleteByID(tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("commit remove_by_file_path: %w", err))
	}
	committed = true
	s.invalidateSize()
	return nil
}

func float32SliceToBytes(floats []float32) []byte {
	out := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
