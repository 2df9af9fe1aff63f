// Package logger prints progress and per-document problems of an ingestion
// run to stderr. Debug, Info, Warn and Section lines appear only with
// --verbose; Error lines always appear because they name documents the
// operator will have to re-run.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity tag written in front of a line.
type Level string

// Levels in increasing severity.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables the verbose levels.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose levels are printed.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log lines. The progress view uses it to hold lines
// back while it owns the terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether a line at level would be printed.
func Enabled(level Level) bool {
	return level == LevelError || IsVerbose()
}

// Debug prints per-unit detail such as downloads and extraction timings.
func Debug(format string, args ...any) {
	emit(LevelDebug, format, args...)
}

// Info prints run milestones.
func Info(format string, args ...any) {
	emit(LevelInfo, format, args...)
}

// Warn prints recoverable problems: skipped archive members, failed
// extraction, cleanup failures.
func Warn(format string, args ...any) {
	emit(LevelWarn, format, args...)
}

// Error prints regardless of verbose mode.
func Error(format string, args ...any) {
	emit(LevelError, format, args...)
}

// Section prints a phase header such as "Index" or "Ingest".
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func emit(level Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level != LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}
