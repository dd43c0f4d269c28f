// Package holocron is the public facade spec §6 describes: the single
// entry point outer layers (a CLI, an MCP tool server, a chat harness)
// import to get an indexed, searchable view of one codebase. It wires
// together the scanner, chunker, store, embedder, indexer, retriever, git
// tracker, and context formatter into one Engine value; none of those
// packages know about each other directly.
//
// The shape — a single struct built by New, holding already-constructed
// collaborators, exposing exactly the operations the caller needs — is
// grounded on the teacher's pkg/indexer and pkg/searcher facade packages
// (since superseded here by internal/index and internal/retrieve, but
// their thread-safety and idempotency doc-comment conventions carry over
// to Engine's own operations below).
package holocron

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/config"
	"github.com/rishitank/holocron/internal/embed"
	"github.com/rishitank/holocron/internal/git"
	"github.com/rishitank/holocron/internal/herrors"
	"github.com/rishitank/holocron/internal/index"
	"github.com/rishitank/holocron/internal/logging"
	"github.com/rishitank/holocron/internal/promptctx"
	"github.com/rishitank/holocron/internal/retrieve"
	"github.com/rishitank/holocron/internal/scanner"
	"github.com/rishitank/holocron/internal/store"
)

// Result is index_directory/index_files's return value.
type Result = index.Result

// SearchOptions configures one Search call (spec §4.8's MaxResults/MinScore/
// Languages).
type SearchOptions = retrieve.Options

// SearchResult is one ranked hit.
type SearchResult = retrieve.SearchResult

// FormatOptions configures FormatContext (spec §4.9's three knobs).
type FormatOptions = promptctx.Options

// FreshnessDecision is CheckFreshness's verdict (spec §4.6).
type FreshnessDecision = git.FreshnessDecision

// Engine is the indexed, searchable view of one project root. It is safe
// for concurrent Search/FormatContext calls; Index* operations serialize
// against each other via internal/index's single-in-flight guard.
type Engine struct {
	root       string
	cfg        *config.Config
	store      *store.Store
	embedder   embed.Embedder
	indexer    *index.Indexer
	engine     *retrieve.Engine
	tracker    *git.Tracker
	logger     *slog.Logger
	logCleanup func()
}

// Open builds an Engine for root using cfg (see config.Load). It opens or
// creates the SQLite store at cfg.PersistPath and constructs the embedder
// cfg.Embedder.Kind selects; an unreachable Ollama host fails here, not on
// first Search.
func Open(ctx context.Context, root string, cfg *config.Config) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("resolve root %s: %w", root, err))
	}

	st, err := store.Open(cfg.PersistPath)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(ctx, embed.Kind(cfg.Embedder.Kind), cfg.Embedder.BaseURL, cfg.Embedder.Model)
	if err != nil {
		_ = st.Close()
		return nil, herrors.Wrap(herrors.CodeEmbedderIO, err)
	}

	sc := scanner.New()
	chunker := selectChunker(cfg.Chunker)
	ix := index.New(absRoot, sc, sc, chunker, embedder, st)
	retr := retrieve.New(st, embedder, wallClockMillis)
	tracker := git.New(filepath.Dir(cfg.PersistPath))

	logger, logCleanup, err := defaultLogger(cfg.LogLevel, filepath.Join(filepath.Dir(cfg.PersistPath), "holocron.log"))
	if err != nil {
		_ = embedder.Close()
		_ = st.Close()
		return nil, herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("set up logging: %w", err))
	}

	return &Engine{
		root:       absRoot,
		cfg:        cfg,
		store:      st,
		embedder:   embedder,
		indexer:    ix,
		engine:     retr,
		tracker:    tracker,
		logger:     logger,
		logCleanup: logCleanup,
	}, nil
}

func wallClockMillis() int64 { return time.Now().UnixMilli() }

func selectChunker(kind config.ChunkerKind) chunk.Chunker {
	if kind == config.ChunkerText {
		return chunk.NewSlidingWindowChunker()
	}
	return chunk.NewCodeChunker()
}

// defaultLogger builds a structured logger that writes JSON to the
// rotating file internal/logging manages, next to the store's own
// database (so "holocron logs" has something to read per project), and
// mirrors it to stderr, the way the teacher's own CLI commands set up
// logging via logging.Setup.
func defaultLogger(level, logPath string) (*slog.Logger, func(), error) {
	cfg := logging.DefaultConfig()
	if level != "" {
		cfg.Level = level
	}
	cfg.FilePath = logPath
	cfg.WriteToStderr = true
	return logging.Setup(cfg)
}

// IndexDirectory walks the full project tree and (re)indexes every file
// (spec §4.7's "full" event).
func (e *Engine) IndexDirectory(ctx context.Context) (Result, error) {
	res, err := e.indexer.IndexDirectory(ctx)
	if err != nil {
		e.logger.Error("index_directory failed", "root", e.root, "error", err)
		return res, err
	}
	e.logger.Info("index_directory complete", "files", res.FilesWalked, "chunks", res.ChunksAdded)
	return res, nil
}

// IndexFiles re-indexes exactly the given paths (relative to root), as an
// "incremental" event tagged with commitSHA (spec §4.7/§4.6).
func (e *Engine) IndexFiles(ctx context.Context, paths []string, commitSHA string) (Result, error) {
	res, err := e.indexer.IndexFiles(ctx, paths, commitSHA)
	if err != nil {
		e.logger.Error("index_files failed", "paths", len(paths), "error", err)
		return res, err
	}
	e.logger.Info("index_files complete", "files", res.FilesWalked, "chunks", res.ChunksAdded)
	return res, nil
}

// RemoveFiles deletes every chunk belonging to the given paths from the
// store, without re-reading or re-chunking anything (spec §4.7).
func (e *Engine) RemoveFiles(paths []string) error {
	return e.indexer.RemoveFiles(paths)
}

// ClearIndex drops every row from the store, drops its vector table and
// committed embedding dimension, and clears the recorded last-indexed
// commit.
func (e *Engine) ClearIndex() error {
	if err := e.indexer.ClearIndex(); err != nil {
		return err
	}
	return e.tracker.ClearLastIndexedCommit()
}

// Search runs the hybrid retrieval pipeline (spec §4.8). Per spec.md §2's
// control flow, it calls C6 first: on an Incremental freshness decision it
// triggers C7 for the changed paths (and records the new commit) before
// querying C5; on None or Full it queries as-is, leaving a full rebuild to
// an explicit IndexDirectory call (spec.md names the incremental trigger
// only — auto-rebuilding the whole index on every search would make
// Search's latency depend on repo size).
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	decision, err := e.tracker.CheckFreshness(e.root)
	if err != nil {
		return nil, err
	}

	if decision.Kind == git.Incremental {
		changed := append(append([]string{}, decision.Added...), decision.Modified...)
		if len(changed) > 0 {
			if _, err := e.IndexFiles(ctx, changed, decision.CurrentCommit); err != nil {
				return nil, err
			}
		}
		if len(decision.Deleted) > 0 {
			if err := e.RemoveFiles(decision.Deleted); err != nil {
				return nil, err
			}
		}
		if err := e.SaveLastIndexedCommit(decision.CurrentCommit); err != nil {
			return nil, err
		}
	}

	return e.engine.Search(ctx, query, opts)
}

// FormatContext renders ranked results into the <codebase_context> XML
// block outer layers embed in a prompt (spec §4.9).
func (e *Engine) FormatContext(results []SearchResult, query string, opts FormatOptions) string {
	return promptctx.FormatContext(results, query, opts)
}

// CheckFreshness compares the store's last-indexed commit against root's
// current git HEAD and recommends no-op/full/incremental re-indexing
// (spec §4.6). Search already acts on an Incremental decision itself; a
// Full decision is left for the caller to act on explicitly (typically by
// calling IndexDirectory and then SaveLastIndexedCommit), since Search
// does not trigger a full rebuild on its own.
func (e *Engine) CheckFreshness() (FreshnessDecision, error) {
	return e.tracker.CheckFreshness(e.root)
}

// SaveLastIndexedCommit records commitSHA as the last commit this engine
// successfully indexed, so the next CheckFreshness diffs from it.
func (e *Engine) SaveLastIndexedCommit(commitSHA string) error {
	return e.tracker.SaveLastIndexedCommit(commitSHA)
}

// Dispose releases the store's database handle, the embedder's
// connections, and the log file writer. The Engine must not be used
// afterward.
func (e *Engine) Dispose() error {
	embedErr := e.embedder.Close()
	storeErr := e.store.Close()
	if e.logCleanup != nil {
		e.logCleanup()
	}
	if embedErr != nil {
		return embedErr
	}
	return storeErr
}
