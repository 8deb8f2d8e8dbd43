package cqrs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/orderflow/libs/db"
)

// OutboxEntry is a pending delivery referencing exactly one log entry. It
// is created with the entry, deleted on successful projection, and
// otherwise accumulates attempts with a backoff window.
type OutboxEntry struct {
	ID            int64
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	Event         LogEntry
}

type OutboxRepository struct {
	pool *db.Pool
}

func NewOutboxRepository(pool *db.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Publish records the intent to deliver one logged event. It must run in
// the same transaction as the Append that produced the entry; that is what
// makes the dual write safe.
func (r *OutboxRepository) Publish(ctx context.Context, tx pgx.Tx, eventID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (event_id, attempts, next_attempt_at, last_error)
		VALUES ($1, 0, now(), '')
	`, eventID)
	return err
}

// FetchReady returns up to limit entries with attempts < maxRetries and
// next_attempt_at in the past, ordered by the referenced event's aggregate
// sequence. That ordering preserves causal order among deliveries for the
// same aggregate.
func (r *OutboxRepository) FetchReady(ctx context.Context, aggregateType string, limit, maxRetries int) ([]OutboxEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.attempts, o.next_attempt_at, o.last_error,
		       e.id, e.aggregate_type, e.aggregate_id, e.aggregate_sequence, e.event_type,
		       e.schema_version, e.occurred_at, e.payload, e.traceparent, e.tracestate
		FROM outbox o
		JOIN event_log e ON e.id = o.event_id
		WHERE e.aggregate_type = $1
		  AND o.attempts < $2
		  AND o.next_attempt_at <= now()
		ORDER BY e.aggregate_sequence
		LIMIT $3
	`, aggregateType, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var o OutboxEntry
		if err := rows.Scan(&o.ID, &o.Attempts, &o.NextAttemptAt, &o.LastError,
			&o.Event.ID, &o.Event.AggregateType, &o.Event.AggregateID, &o.Event.Sequence, &o.Event.EventType,
			&o.Event.SchemaVersion, &o.Event.OccurredAt, &o.Event.Payload, &o.Event.Traceparent, &o.Event.Tracestate); err != nil {
			return nil, err
		}
		entries = append(entries, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// Delete removes the entry after successful delivery. Idempotent: deleting
// an already-deleted entry is not an error.
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM outbox WHERE id = $1`, id)
	return err
}

// MarkFailed bumps the attempt count and pushes the next eligible attempt
// past the delay. The entry itself survives until retries exhaust.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, reason string, delay time.Duration) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox
		SET attempts = attempts + 1,
		    next_attempt_at = $2,
		    last_error = $3
		WHERE id = $1
	`, id, time.Now().UTC().Add(delay), reason)
	return err
}
