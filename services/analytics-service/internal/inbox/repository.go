package inbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/orderflow/libs/db"
)

// Repository tracks which Kafka deliveries have already been processed so
// redeliveries are dropped instead of double-counted.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record claims an event id. It returns false when the id was already
// claimed by an earlier delivery.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type, received_at)
		VALUES ($1, $2, now())
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}

// Delete releases a claim so the broker's redelivery of the same event
// gets processed. Used when handling fails after the claim was taken.
func (r *Repository) Delete(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM inbox_events WHERE event_id = $1
	`, eventID)
	return err
}

// PruneBefore drops claims older than the cutoff. The broker's retention
// bounds how far back a redelivery can reach, so old claims are dead weight.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM inbox_events WHERE received_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
