// Package diag builds the diagnostic sink: an append-only, timestamped,
// severity-tagged text log that the recorder writes failures to.
package diag

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultPath matches the file name the logger has always written to.
const DefaultPath = "llm_logger_errors.log"

// Config selects where diagnostics go and the minimum severity kept.
type Config struct {
	// Path of the append-only log file. Empty writes to stderr.
	Path string

	// Level is one of debug, info, warn, error. Empty means error.
	Level string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New opens the sink described by cfg. The returned io.Closer releases the
// log file and must be called after the recorder using the sink has closed.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open diagnostic log: %w", err)
		}
		w, closer = f, f
	}

	return NewWithWriter(w, level), closer, nil
}

// NewWithWriter returns a sink over an arbitrary writer. Writes from
// concurrent goroutines are serialized by the slog handler.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown diagnostic level %q", s)
	}
}
