// Package events records provider message ids so webhook redeliveries are
// acknowledged without running a second conversational turn.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var eventsTracer = otel.Tracer("carrental.internal.events")

// Deduper remembers which provider event ids were already handled.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	// MarkProcessed returns false if the id was already recorded.
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

const (
	selectProcessedSQL = `SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2`
	insertProcessedSQL = `INSERT INTO processed_events (provider, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	purgeProcessedSQL  = `DELETE FROM processed_events WHERE processed_at < $1`
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore keeps processed ids in the processed_events table.
type ProcessedStore struct {
	db rowQuerier
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{db: pool}
}

func newProcessedStoreWithExec(db rowQuerier) *ProcessedStore {
	return &ProcessedStore{db: db}
}

func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ctx, span := eventsTracer.Start(ctx, "events.already_processed",
		trace.WithAttributes(attribute.String("events.provider", provider)))
	defer span.End()

	var one int
	err := s.db.QueryRow(ctx, selectProcessedSQL, provider, eventID).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		span.RecordError(err)
		return false, fmt.Errorf("events: check processed %s/%s: %w", provider, eventID, err)
	}
}

func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ctx, span := eventsTracer.Start(ctx, "events.mark_processed",
		trace.WithAttributes(attribute.String("events.provider", provider)))
	defer span.End()

	tag, err := s.db.Exec(ctx, insertProcessedSQL, provider, eventID)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("events: mark processed %s/%s: %w", provider, eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeBefore deletes ids recorded before cutoff and returns how many went.
func (s *ProcessedStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeProcessedSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("events: purge processed: %w", err)
	}
	return tag.RowsAffected(), nil
}
