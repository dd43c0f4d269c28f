package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rishitank/holocron/internal/herrors"
)

func init() {
	sqlite_vec.Auto()
}

// Store is the single-file hybrid store: one *sql.DB holding chunk_meta,
// chunks_fts, vecs, chunk_links, index_events and _meta. Grounded on the
// teacher's `SQLiteBM25Index` (WAL pragmas, single-writer connection pool;
// statements are run directly through Exec/Query, none is prepared up
// front), widened to the full schema spec.md
// §4.5/§6 describes and switched to the CGO `mattn/go-sqlite3` driver
// because `sqlite-vec`'s `vec0` virtual table is a loadable C extension
// the teacher's pure-Go `modernc.org/sqlite` driver cannot load.
type Store struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	dimension  int
	hasVectors bool
	cachedSize int64
	sizeValid  bool
}

// Open opens or creates the database file at path and ensures the schema
// is current. Equivalent to calling newStore then EnsureReady.
func Open(path string) (*Store, error) {
	s, err := newStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureReady(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("create store directory %s: %w", dir, err))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("open database: %w", err))
	}

	// Single writer: SQLite serializes writers anyway, and the one-conn
	// pool avoids "database is locked" under WAL + concurrent readers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("set pragma %q: %w", p, err))
		}
	}

	return &Store{db: db, path: path}, nil
}

// EnsureReady opens the schema: migrates if a stale version is present,
// creates fresh tables if none exist, and restores the vector virtual
// table if a dimension was already committed to _meta. Idempotent.
func (s *Store) EnsureReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureMetaTable(); err != nil {
		return err
	}

	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version != 0 && version < CurrentSchemaVersion {
		slog.Warn("holocron_store_migration_required",
			slog.Int("stored_version", version),
			slog.Int("current_version", CurrentSchemaVersion))
		if err := s.dropSchemaBoundTables(); err != nil {
			return err
		}
		version = 0
	}

	if err := s.createCoreTables(); err != nil {
		return err
	}

	if version == 0 {
		if err := s.setSchemaVersion(CurrentSchemaVersion); err != nil {
			return err
		}
	}

	dim, err := s.readDimension()
	if err != nil {
		return err
	}
	if dim > 0 {
		if err := s.createVectorTable(dim); err != nil {
			return err
		}
		s.dimension = dim
		s.hasVectors = true
	}

	return nil
}

func (s *Store) ensureMetaTable() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS _meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("create _meta table: %w", err))
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT value FROM _meta WHERE key = 'schema_version'`).Scan(&raw)
	if err == sql.ErrNoRows || !raw.Valid {
		return 0, nil
	}
	if err != nil {
		return 0, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("read schema_version: %w", err))
	}
	var v int
	_, scanErr := fmt.Sscanf(raw.String, "%d", &v)
	if scanErr != nil {
		return 0, nil
	}
	return v, nil
}

func (s *Store) setSchemaVersion(v int) error {
	_, err := s.db.Exec(
		`INSERT INTO _meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", v),
	)
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("write schema_version: %w", err))
	}
	return nil
}

func (s *Store) readDimension() (int, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT value FROM _meta WHERE key = 'dimensions'`).Scan(&raw)
	if err == sql.ErrNoRows || !raw.Valid {
		return 0, nil
	}
	if err != nil {
		return 0, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("read dimensions: %w", err))
	}
	var d int
	_, scanErr := fmt.Sscanf(raw.String, "%d", &d)
	if scanErr != nil {
		return 0, nil
	}
	return d, nil
}

// dropSchemaBoundTables drops the three schema-bound tables and clears
// the committed dimension, per spec §4.5's migration rule. index_events
// (the audit log) is intentionally preserved.
func (s *Store) dropSchemaBoundTables() error {
	stmts := []string{
		`DROP TABLE IF EXISTS chunk_meta`,
		`DROP TABLE IF EXISTS chunks_fts`,
		`DROP TABLE IF EXISTS vecs`,
		`DELETE FROM _meta WHERE key = 'dimensions'`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("migration step %q: %w", stmt, err))
		}
	}
	return nil
}

func (s *Store) createCoreTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunk_meta (
		rowid       INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT UNIQUE NOT NULL,
		content     TEXT NOT NULL,
		file_path   TEXT NOT NULL,
		start_line  INTEGER NOT NULL,
		end_line    INTEGER NOT NULL,
		language    TEXT NOT NULL,
		symbol_name TEXT NOT NULL DEFAULT '',
		ingested_at INTEGER NOT NULL,
		memory_type TEXT NOT NULL DEFAULT 'semantic'
	);
	CREATE INDEX IF NOT EXISTS idx_chunk_meta_file_path ON chunk_meta(file_path);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		content,
		symbol_name,
		file_tokens,
		code_tokens,
		tokenize = 'porter unicode61'
	);

	CREATE TABLE IF NOT EXISTS chunk_links (
		src_id      TEXT NOT NULL,
		dst_id      TEXT NOT NULL,
		similarity  REAL NOT NULL,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (src_id, dst_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunk_links_src ON chunk_links(src_id);

	CREATE TABLE IF NOT EXISTS index_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type     TEXT NOT NULL,
		files_changed  INTEGER NOT NULL,
		chunks_added   INTEGER NOT NULL,
		chunks_removed INTEGER NOT NULL,
		commit_sha     TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("create core schema: %w", err))
	}
	return nil
}

// createVectorTable (re)creates the vec0 virtual table for dimension d.
// vec0 tables can't be altered, so callers must only call this once per
// dimension; EnsureReady/ensureDimensions guard that invariant.
func (s *Store) createVectorTable(d int) error {
	return s.createVectorTableWith(s.db, d)
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting the same
// statement run standalone (EnsureReady) or inside a caller's transaction
// (ensureDimensions, called mid-upsert). The single-conn pool
// (SetMaxOpenConns(1)) means running these via s.db.Exec while a tx is
// open would deadlock waiting for a second connection that never frees.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) createVectorTableWith(x execer, d int) error {
	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vecs USING vec0(chunk_rowid INTEGER PRIMARY KEY, embedding float[%d])`,
		d,
	)
	if _, err := x.Exec(stmt); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("create vector table: %w", err))
	}
	return nil
}

// ensureDimensions commits the store's fixed embedding width on first
// non-empty insert, or validates a new vector against the committed width.
// Returns DIMENSION_MISMATCH if d disagrees with an already-fixed width.
// tx must be the transaction the caller is already inside, so the vector
// table creation and _meta write participate in it instead of racing the
// single-connection pool for a second connection. pendingDim/pendingHasVectors
// are the calling batch's not-yet-committed view of the store's dimension,
// updated in place; AddBatch only copies them onto the Store after commit.
func (s *Store) ensureDimensions(tx *sql.Tx, d int, pendingDim *int, pendingHasVectors *bool) error {
	if *pendingDim == 0 {
		if err := s.createVectorTableWith(tx, d); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO _meta(key, value) VALUES ('dimensions', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			fmt.Sprintf("%d", d),
		); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("commit dimensions: %w", err))
		}
		*pendingDim = d
		*pendingHasVectors = true
		return nil
	}
	if *pendingDim != d {
		return herrors.New(herrors.CodeDimensionMismatch,
			fmt.Sprintf("vector width %d does not match fixed dimension %d", d, *pendingDim), nil).
			WithDetail("got", fmt.Sprintf("%d", d)).
			WithDetail("fixed", fmt.Sprintf("%d", *pendingDim))
	}
	return nil
}

// Dimension returns the store's committed embedding width, or 0 if no
// vector has ever been inserted.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// HasVectors reports whether any vector has ever been committed to this
// store (spec's "has_vectors" cached getter).
func (s *Store) HasVectors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasVectors
}

// Size returns the number of rows in chunk_meta (spec's "size" cached
// getter). The first call queries the database; subsequent calls are
// invalidated by AddBatch/RemoveByFilePath/ClearAll.
func (s *Store) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizeValid {
		return s.cachedSize, nil
	}
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_meta`).Scan(&n); err != nil {
		return 0, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("count chunk_meta: %w", err))
	}
	s.cachedSize = n
	s.sizeValid = true
	return n, nil
}

func (s *Store) invalidateSize() {
	s.sizeValid = false
}

// ClearAll truncates chunk/full-text/links tables, drops the vector table,
// and clears the committed dimension (spec §4.5's clear_all).
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("begin clear_all: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DELETE FROM chunk_meta`,
		`DELETE FROM chunks_fts`,
		`DELETE FROM chunk_links`,
		`DROP TABLE IF EXISTS vecs`,
		`DELETE FROM _meta WHERE key = 'dimensions'`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("clear_all step %q: %w", stmt, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("commit clear_all: %w", err))
	}

	s.dimension = 0
	s.hasVectors = false
	s.invalidateSize()
	return nil
}

// Close checkpoints the WAL and closes the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
