// Package logging configures the process-wide slog logger. Normal runs log
// warnings and above to stderr; the verbose flag drops the level to debug,
// and an optional trace file captures everything with rotation.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the logger. When traceFile is non-empty, records are also
// written there through a rotating file sink.
func New(verbose bool, traceFile string) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if traceFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   traceFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
		})
		// The trace file always gets full detail.
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
