// Package runconfig - ambient process configuration for the engine
//
// Grounded on envconfig/config.go's style: one function per setting,
// reading an environment variable with a documented default, rather
// than a struct populated by a tagged-reflection decoder. Engine
// callers needing determinism should still construct option.Option
// explicitly; these are process-wide fallbacks for the few settings
// that make sense as ambient configuration (worker count, topology/
// weight search paths, log verbosity). No other package in this module
// reads them; option.Default does not consult them.
package runconfig

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// NumThreads returns the default worker count for parallel-for regions
// (spec.md §5), configurable via LATTICE_NUM_THREADS. Falls back to
// runtime.GOMAXPROCS(0) when unset or invalid.
func NumThreads() int {
	if s := Var("LATTICE_NUM_THREADS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return runtime.GOMAXPROCS(0)
}

// ModelPath returns a directory for topology/weight files, configurable
// via LATTICE_MODEL_PATH. Default: the working directory. engine.Load
// reads from the io.Readers it is given and does not consult this.
func ModelPath() string {
	if s := Var("LATTICE_MODEL_PATH"); s != "" {
		return s
	}
	return "."
}

// LogLevel returns the slog level for the package's own diagnostic
// logging, configurable via LATTICE_DEBUG the same way envconfig.LogLevel
// reads OLLAMA_DEBUG.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LATTICE_DEBUG"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil && b {
			level = slog.LevelDebug
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil && i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Var reads an environment variable, trimming surrounding whitespace
// and matching quotes the way envconfig.Var does.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
