package metrics

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/db"
)

// Event is one catalog change as seen on the wire.
type Event struct {
	ID         string
	Type       string
	ProductID  string
	Sequence   int64
	OccurredAt time.Time
}

// Daily holds the per-day catalog activity counters.
type Daily struct {
	Day              time.Time `json:"day"`
	RegisteredCount  int64     `json:"registered_count"`
	RetiredCount     int64     `json:"retired_count"`
	UpdatedCount     int64     `json:"updated_count"`
	DistinctProducts int64     `json:"distinct_products"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordEvent stores the raw event and bumps that day's counters in one
// transaction. The event log insert carries the dedupe key, so a replayed
// delivery never double-counts.
func (r *Repository) RecordEvent(ctx context.Context, ev Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO catalog_events (event_id, event_type, product_id, aggregate_sequence, occurred_at)
		VALUES ($1, $2, $3::uuid, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.ID, ev.Type, ev.ProductID, ev.Sequence, ev.OccurredAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	registeredInc, retiredInc, updatedInc := 0, 0, 0
	switch ev.Type {
	case "ProductRegistered":
		registeredInc = 1
	case "ProductRetired":
		retiredInc = 1
	default:
		updatedInc = 1
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO daily_catalog_metrics (day, registered_count, retired_count, updated_count)
		VALUES ($1::date, $2, $3, $4)
		ON CONFLICT (day)
		DO UPDATE SET registered_count = daily_catalog_metrics.registered_count + EXCLUDED.registered_count,
		              retired_count = daily_catalog_metrics.retired_count + EXCLUDED.retired_count,
		              updated_count = daily_catalog_metrics.updated_count + EXCLUDED.updated_count,
		              updated_at = now()
	`, ev.OccurredAt.UTC(), registeredInc, retiredInc, updatedInc); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DailyTotals reads one day's counters. A day with no recorded activity
// comes back zeroed rather than as an error.
func (r *Repository) DailyTotals(ctx context.Context, day time.Time) (*Daily, error) {
	d := &Daily{Day: day}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(m.registered_count, 0),
			COALESCE(m.retired_count, 0),
			COALESCE(m.updated_count, 0),
			(SELECT count(DISTINCT product_id) FROM catalog_events
			 WHERE occurred_at >= $1::date AND occurred_at < $1::date + interval '1 day')
		FROM (SELECT 1) one
		LEFT JOIN daily_catalog_metrics m ON m.day = $1::date
	`, day.UTC()).Scan(&d.RegisteredCount, &d.RetiredCount, &d.UpdatedCount, &d.DistinctProducts)
	if err != nil {
		return nil, err
	}
	return d, nil
}
