package cqrs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
)

// LogEntry is one durable, append-only record of an event envelope. The id
// is assigned on append and doubles as the global delivery key.
type LogEntry struct {
	ID            int64
	AggregateType string
	AggregateID   uuid.UUID
	Sequence      int64
	EventType     string
	SchemaVersion int
	OccurredAt    time.Time
	Payload       []byte
	Traceparent   string
	Tracestate    string
}

type EventLogRepository struct {
	pool *db.Pool
}

func NewEventLogRepository(pool *db.Pool) *EventLogRepository {
	return &EventLogRepository{pool: pool}
}

// Append inserts the entry and returns it with the assigned log id. The
// caller supplies the transaction of the originating aggregate mutation so
// the log write commits or rolls back together with it. Entries are never
// updated or deleted afterwards.
func (r *EventLogRepository) Append(ctx context.Context, tx pgx.Tx, entry LogEntry) (LogEntry, error) {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	err := tx.QueryRow(ctx, `
		INSERT INTO event_log (aggregate_type, aggregate_id, aggregate_sequence, event_type, schema_version, occurred_at, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, entry.AggregateType, entry.AggregateID, entry.Sequence, entry.EventType, entry.SchemaVersion,
		entry.OccurredAt, entry.Payload, traceparent, tracestate).Scan(&entry.ID)
	if err != nil {
		return LogEntry{}, err
	}
	entry.Traceparent = traceparent
	entry.Tracestate = tracestate
	return entry, nil
}

// ListByAggregate returns every entry of one aggregate in sequence order,
// for replaying projections.
func (r *EventLogRepository) ListByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, aggregate_sequence, event_type, schema_version, occurred_at, payload, traceparent, tracestate
		FROM event_log
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY aggregate_sequence
	`, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Sequence, &e.EventType,
			&e.SchemaVersion, &e.OccurredAt, &e.Payload, &e.Traceparent, &e.Tracestate); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}
