// Package recorder records request/response interactions to SQLite without
// blocking the caller.
//
// Log normalizes, validates and builds the record on the caller's goroutine,
// then hands it to an unbounded queue. A single worker goroutine owns the
// database connection and drains the queue one insert at a time. Close stops
// intake, waits for the queue to drain and closes the database.
//
// Nothing on the Log path returns an error or panics into the caller; every
// failure is written to the diagnostic sink.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
	"github.com/tjfontaine/llm-interaction-logger/internal/interaction"
	"github.com/tjfontaine/llm-interaction-logger/internal/queue"
)

const tracerName = "github.com/tjfontaine/llm-interaction-logger/internal/recorder"

// Store is the storage collaborator used by the worker.
type Store interface {
	InsertInteraction(ctx context.Context, interaction *domain.Interaction) error
	Close() error
}

// State is the lifecycle position of a Logger.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Logger is the asynchronous interaction recorder. Log may be called from any
// number of goroutines. Callers must Close the Logger to flush queued records.
type Logger struct {
	dbPath       string
	diag         *slog.Logger
	pollInterval time.Duration
	highWater    int
	estimator    interaction.PromptEstimator
	tracer       trace.Tracer
	now          func() time.Time
	openStore    StoreOpener

	builder *interaction.Builder
	queue   *queue.MemoryQueue[*domain.Interaction]

	// intake orders Log's state check and enqueue against Close, so no record
	// is accepted after the worker may have seen the final empty queue.
	intake sync.RWMutex
	state  atomic.Int32

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error

	highWaterWarned atomic.Bool
}

// New starts a Logger. The worker opens storage in the background; storage
// errors surface only through the diagnostic sink.
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		dbPath:       DefaultDBPath,
		diag:         slog.Default(),
		pollInterval: queue.DefaultPollInterval,
		now:          time.Now,
		openStore:    openSQLite,
		queue:        queue.NewMemoryQueue[*domain.Interaction](),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	if l.tracer == nil {
		l.tracer = otel.Tracer(tracerName)
	}
	l.builder = &interaction.Builder{Now: l.now, Estimator: l.estimator}

	l.state.Store(int32(StateCreated))
	go l.run()
	l.state.Store(int32(StateRunning))

	return l, nil
}

// With runs fn with a new Logger and always closes it afterwards, returning
// the first error from New, fn or Close.
func With(fn func(*Logger) error, opts ...Option) (err error) {
	l, err := New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(l)
}

// State returns the current lifecycle state.
func (l *Logger) State() State {
	return State(l.state.Load())
}

// Pending returns the number of records waiting for the worker.
func (l *Logger) Pending() int {
	return l.queue.Length()
}

// Log records one interaction. request and response may be maps or JSON
// text (string, []byte, json.RawMessage). Log never blocks on storage and
// never reports failure to the caller.
func (l *Logger) Log(request, response any) {
	defer func() {
		if r := recover(); r != nil {
			l.diag.Error("unexpected error logging interaction", slog.Any("panic", r))
		}
	}()

	rec, ok := l.prepare(request, response)
	if !ok {
		return
	}
	l.enqueue(rec)
}

func (l *Logger) prepare(request, response any) (*domain.Interaction, bool) {
	req, err := interaction.EnsureStructured(request)
	if err != nil {
		l.diag.Error("error processing input data",
			slog.String("side", string(domain.SideRequest)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	resp, err := interaction.EnsureStructured(response)
	if err != nil {
		l.diag.Error("error processing input data",
			slog.String("side", string(domain.SideResponse)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	if !interaction.Validate(req, resp, l.diag) {
		return nil, false
	}

	rec, err := l.builder.Build(req, resp)
	if err != nil {
		var serr *domain.SerializationError
		switch {
		case errors.Is(err, domain.ErrMissingModel):
			l.diag.Error("model name not found in response, skipping")
		case errors.As(err, &serr):
			l.diag.Error("error serializing data to JSON",
				slog.String("side", string(serr.Side)),
				slog.String("error", serr.Err.Error()),
			)
		default:
			l.diag.Error("error building interaction record", slog.String("error", err.Error()))
		}
		return nil, false
	}

	return rec, true
}

func (l *Logger) enqueue(rec *domain.Interaction) {
	l.intake.RLock()
	defer l.intake.RUnlock()

	if l.State() != StateRunning {
		l.diag.Error("dropping interaction",
			slog.String("interaction_id", rec.ID),
			slog.String("error", domain.ErrLoggerClosed.Error()),
		)
		return
	}

	if err := l.queue.Enqueue(rec); err != nil {
		l.diag.Error("failed to enqueue interaction",
			slog.String("interaction_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if l.highWater > 0 {
		if depth := l.queue.Length(); depth >= l.highWater && l.highWaterWarned.CompareAndSwap(false, true) {
			l.diag.Warn("interaction queue reached high-water mark",
				slog.Int("depth", depth),
				slog.Int("high_water", l.highWater),
			)
		}
	}
}

// Close stops accepting records, waits for the worker to persist everything
// already queued, and closes storage. It is safe to call more than once and
// from several goroutines; every call waits for the same shutdown.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		l.intake.Lock()
		l.state.Store(int32(StateDraining))
		l.queue.Close()
		l.intake.Unlock()
	})

	<-l.done
	l.state.Store(int32(StateClosed))
	return l.closeErr
}
