// Package main is a minimal smoke-test binary for the holocron engine: it
// indexes one directory and runs one query against it, plus a "logs"
// subcommand (grounded on the teacher's dedicated cmd/amanmcp-logs binary)
// for tailing the JSON log pkg/holocron.Engine writes. It is not a CLI
// dispatcher — the full subcommand surface (init/config/watch/daemon/mcp
// server) that the teacher's cmd/amanmcp/cmd package provided is explicitly
// out of scope here; this binary exists to prove pkg/holocron wires end to
// end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/rishitank/holocron/internal/config"
	"github.com/rishitank/holocron/internal/logging"
	"github.com/rishitank/holocron/pkg/holocron"
	"github.com/rishitank/holocron/pkg/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "logs" {
		if err := runLogs(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "holocron:", err)
			os.Exit(1)
		}
		return
	}

	var (
		root        = flag.String("root", ".", "project directory to index")
		query       = flag.String("query", "", "query to run after indexing; empty skips search")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(*root, *query); err != nil {
		fmt.Fprintln(os.Stderr, "holocron:", err)
		os.Exit(1)
	}
}

func run(root, query string) error {
	ctx := context.Background()

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := holocron.Open(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer eng.Dispose()

	res, err := eng.IndexDirectory(ctx)
	if err != nil {
		return fmt.Errorf("index directory: %w", err)
	}
	fmt.Printf("indexed %d files, %d chunks\n", res.FilesWalked, res.ChunksAdded)

	if query == "" {
		return nil
	}

	results, err := eng.Search(ctx, query, holocron.SearchOptions{MaxResults: 10})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	fmt.Print(eng.FormatContext(results, query, holocron.FormatOptions{}))
	return nil
}

// runLogs implements the "logs" subcommand: tail or follow the JSON log
// file pkg/holocron.Engine writes next to a project's store, falling back
// to the global ~/.holocron/logs/server.log if that project's log file does
// not exist yet or its config fails to load (-root defaults to the current
// directory). Grounded on the teacher's dedicated
// cmd/amanmcp-logs binary, collapsed to the single Go log source holocron
// has (the teacher also merges a second MLX Python server's logs, which
// holocron has no equivalent of).
func runLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	var (
		root    = fs.String("root", ".", "project directory whose log file to read")
		file    = fs.String("file", "", "explicit log file path, overrides -root")
		lines   = fs.Int("n", 50, "number of lines to show")
		level   = fs.String("level", "", "filter by level (debug|info|warn|error)")
		pattern = fs.String("filter", "", "filter by pattern (regex)")
		noColor = fs.Bool("no-color", false, "disable colored output")
		follow  = fs.Bool("f", false, "follow log output (like tail -f)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var projectLogPath string
	if cfg, err := config.Load(*root); err == nil {
		projectLogPath = filepath.Join(filepath.Dir(cfg.PersistPath), "holocron.log")
	}

	path, err := logging.FindLogFile(*file, projectLogPath)
	if err != nil {
		_ = logging.EnsureLogDir()
		return err
	}

	var pat *regexp.Regexp
	if *pattern != "" {
		pat, err = regexp.Compile(*pattern)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   *level,
		Pattern: pat,
		NoColor: *noColor,
	}, os.Stdout)

	fmt.Fprintf(os.Stderr, "Log file: %s\n", path)
	if *follow {
		fmt.Fprintln(os.Stderr, "Following... (Ctrl+C to stop)")
	}
	fmt.Fprintln(os.Stderr, "---")

	if !*follow {
		entries, err := viewer.Tail(path, *lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, entries) }()

	for {
		select {
		case entry := <-entries:
			fmt.Println(viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\n---\nStopped.")
			return nil
		}
	}
}
