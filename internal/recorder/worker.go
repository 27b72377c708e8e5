package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/llm-interaction-logger/internal/domain"
	"github.com/tjfontaine/llm-interaction-logger/internal/queue"
)

// run is the persistence worker. It is the only goroutine that opens, uses or
// closes the store. It exits once Close has been called and the queue is
// empty, or immediately if the store cannot be opened.
func (l *Logger) run() {
	defer close(l.done)

	ctx := context.Background()

	store, err := l.openStore(ctx, l.dbPath)
	if err != nil {
		l.diag.Error("failed to initialize interaction store",
			slog.String("path", l.dbPath),
			slog.String("error", err.Error()),
		)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.diag.Error("failed to close interaction store", slog.String("error", err.Error()))
			l.closeErr = err
		}
	}()

	for {
		rec, ok, err := l.queue.DequeueWithTimeout(ctx, l.pollInterval)
		if errors.Is(err, queue.ErrQueueClosed) {
			// Close was called and every queued record has been handled
			return
		}
		if err != nil {
			l.diag.Error("failed to dequeue interaction", slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		l.persist(ctx, store, rec)
		l.rearmHighWater()
	}
}

// persist writes one record. Failures are diagnosed and the record dropped.
func (l *Logger) persist(ctx context.Context, store Store, rec *domain.Interaction) {
	ctx, span := l.tracer.Start(ctx, "interaction.persist", trace.WithAttributes(
		attribute.String("interaction.id", rec.ID),
		attribute.String("interaction.model", rec.Model),
	))
	defer span.End()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during insert: %v", r)
			}
		}()
		return store.InsertInteraction(ctx, rec)
	}()
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	msg := "database error logging interaction"
	if errors.Is(err, domain.ErrDuplicateInteraction) {
		msg = "integrity error logging interaction"
	}
	l.diag.Error(msg,
		slog.String("interaction_id", rec.ID),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) rearmHighWater() {
	if l.highWater > 0 && l.highWaterWarned.Load() && l.queue.Length() < max(l.highWater/2, 1) {
		l.highWaterWarned.Store(false)
	}
}
