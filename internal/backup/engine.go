// Package backup drives the checkpointed incremental sync of remote
// collections into the object store.
package backup

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// I/O fan-out limit for persisting one page of items.
const ioConcurrency = 50

// ProgressSink receives page-level progress updates.
type ProgressSink interface {
	SetTotal(total int)
	Add(n int)
}

// NopSink discards progress updates.
type NopSink struct{}

func (NopSink) SetTotal(int) {}
func (NopSink) Add(int)      {}

// Source is the per-entity-kind capability record the engine drives.
// Implementations own their cursor: Load reads it from storage, Page
// fetches at it, Advance moves it past a processed page, and Save
// makes it durable. Process must not return until every item of the
// page has been attempted.
type Source[T any] interface {
	Kind() string
	Load(ctx context.Context) error
	Total(ctx context.Context) (int, error)
	Page(ctx context.Context, limit int) ([]T, error)
	Process(ctx context.Context, items []T) error
	Advance(items []T)
	Save(ctx context.Context) error
}

// Run performs one sync pass over a source and returns the number of
// items processed. The next page is never fetched before the current
// page's checkpoint is durably written, so killing the process loses
// at most one page of (idempotent) work.
func Run[T any](ctx context.Context, logger *slog.Logger, src Source[T], pageSize int, sink ProgressSink) (int, error) {
	tracer := otel.Tracer("mailbak/backup")
	ctx, span := tracer.Start(ctx, "Sync/"+src.Kind())
	defer span.End()

	if err := src.Load(ctx); err != nil {
		return 0, fmt.Errorf("loading %s checkpoint: %w", src.Kind(), err)
	}

	total, err := src.Total(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching %s total: %w", src.Kind(), err)
	}
	span.SetAttributes(attribute.Int("sync.total", total))
	sink.SetTotal(total)
	logger.Info("starting sync", "kind", src.Kind(), "remaining", total)

	processed := 0
	for processed < total {
		items, err := src.Page(ctx, pageSize)
		if err != nil {
			return processed, fmt.Errorf("fetching %s page after %d items: %w", src.Kind(), processed, err)
		}
		if len(items) == 0 {
			break
		}

		if err := src.Process(ctx, items); err != nil {
			return processed, fmt.Errorf("processing %s page after %d items: %w", src.Kind(), processed, err)
		}

		src.Advance(items)
		if err := src.Save(ctx); err != nil {
			return processed, fmt.Errorf("saving %s checkpoint after %d items: %w", src.Kind(), processed, err)
		}

		processed += len(items)
		sink.Add(len(items))
		logger.Info("processed page", "kind", src.Kind(), "page", len(items), "processed", processed, "total", total)
	}
	return processed, nil
}
