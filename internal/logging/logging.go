// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log destination and verbosity.
type Options struct {
	// File is the log file path. Empty writes to stderr.
	File string

	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// MaxSizeMB caps a single log file before rotation.
	MaxSizeMB int

	// MaxBackups caps the number of rotated files kept.
	MaxBackups int
}

// New returns a logger per the options. The closer is non-nil when a log
// file is in use and must be closed on shutdown.
func New(opts Options) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)

	if opts.File == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		Compress:   true,
	}
	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})
	return slog.New(handler), rotator
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
