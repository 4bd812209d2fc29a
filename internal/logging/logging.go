package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init creates and sets the package-level default slog logger. All
// diagnostics go to stderr as JSON: stdout is reserved for the NDJSON
// event stream when the forwarder runs in fallback mode, and the two
// must never interleave.
func Init(level slog.Level) {
	InitWriter(os.Stderr, level)
}

// InitWriter is Init with an explicit destination, for tests.
func InitWriter(w io.Writer, level slog.Level) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to
// slog.Level. Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
