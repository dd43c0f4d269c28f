package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.holocron/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".holocron", "logs")
	}
	return filepath.Join(home, ".holocron", "logs")
}

// DefaultLogPath returns the default global log path, used when an Engine
// has not been pointed at a per-project one.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// FindLogFile resolves the log file "holocron logs" should read: explicit
// takes precedence if given, then each of fallbacks in order, then the
// global default. Returns an error naming every path checked if none exist.
func FindLogFile(explicit string, fallbacks ...string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	checked := append(append([]string{}, fallbacks...), DefaultLogPath())
	for _, p := range checked {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no log file found. Checked: %v\nRun an index or search first to generate one", checked)
}

// EnsureLogDir creates the global log directory if it doesn't exist. Used
// by the logs subcommand so DefaultLogPath's directory exists even before
// any Engine has written to it.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}
