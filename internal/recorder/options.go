package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/llm-interaction-logger/internal/interaction"
	"github.com/tjfontaine/llm-interaction-logger/internal/storage/sqlite"
	"github.com/tjfontaine/llm-interaction-logger/internal/tokens"
)

// DefaultDBPath is used when no WithDBPath option is given.
const DefaultDBPath = "llm_logs.db"

// Option is a functional option for configuring a Logger.
type Option func(*Logger) error

// StoreOpener opens the storage the worker writes to. It runs on the worker
// goroutine, which then owns the returned store until it closes it.
type StoreOpener func(ctx context.Context, path string) (Store, error)

func openSQLite(ctx context.Context, path string) (Store, error) {
	store, err := sqlite.New(ctx, path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// WithDBPath sets the SQLite database file (or DSN).
func WithDBPath(path string) Option {
	return func(l *Logger) error {
		if path == "" {
			return fmt.Errorf("database path must not be empty")
		}
		l.dbPath = path
		return nil
	}
}

// WithDiagnostics sets the diagnostic sink. Defaults to slog.Default().
func WithDiagnostics(logger *slog.Logger) Option {
	return func(l *Logger) error {
		if logger == nil {
			return fmt.Errorf("diagnostic logger must not be nil")
		}
		l.diag = logger
		return nil
	}
}

// WithPollInterval sets how long the worker waits on an empty queue before
// re-checking for shutdown.
func WithPollInterval(d time.Duration) Option {
	return func(l *Logger) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %s", d)
		}
		l.pollInterval = d
		return nil
	}
}

// WithQueueHighWater emits a warning when the queue depth reaches n. Zero
// disables the check.
func WithQueueHighWater(n int) Option {
	return func(l *Logger) error {
		if n < 0 {
			return fmt.Errorf("queue high-water mark must not be negative, got %d", n)
		}
		l.highWater = n
		return nil
	}
}

// WithTokenEstimation enables tiktoken prompt token estimation for responses
// whose usage omits prompt_tokens.
func WithTokenEstimation(enabled bool) Option {
	return func(l *Logger) error {
		if enabled {
			l.estimator = tokens.NewCounter()
		} else {
			l.estimator = nil
		}
		return nil
	}
}

// WithEstimator sets a custom prompt token estimator.
func WithEstimator(e interaction.PromptEstimator) Option {
	return func(l *Logger) error {
		l.estimator = e
		return nil
	}
}

// WithTracer sets the tracer used for per-write spans. Defaults to the global
// provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(l *Logger) error {
		if t == nil {
			return fmt.Errorf("tracer must not be nil")
		}
		l.tracer = t
		return nil
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		l.now = now
		return nil
	}
}

// WithStoreOpener replaces the SQLite store with another Store implementation.
func WithStoreOpener(open StoreOpener) Option {
	return func(l *Logger) error {
		if open == nil {
			return fmt.Errorf("store opener must not be nil")
		}
		l.openStore = open
		return nil
	}
}
