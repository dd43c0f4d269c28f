// Package logging provides JSON file logging with size-based rotation and a
// viewer for reading the log back. Setup always writes to Config.FilePath
// and, when Config.WriteToStderr is set, mirrors every record to stderr.
//
// pkg/holocron.Engine writes one such log next to each project's store;
// the "holocron logs" subcommand tails or follows it.
package logging
