package store

import (
	"fmt"
	"time"

	"github.com/rishitank/holocron/internal/herrors"
)

// LogIndexEvent appends one row to index_events with the current
// wall-clock timestamp (spec §4.5's log_index_event).
func (s *Store) LogIndexEvent(ev IndexEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO index_events(event_type, files_changed, chunks_added, chunks_removed, commit_sha, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.EventType, ev.FilesChanged, ev.ChunksAdded, ev.ChunksRemoved, ev.CommitSHA, time.Now().UnixMilli(),
	)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("log_index_event: %w", err))
	}
	return nil
}
