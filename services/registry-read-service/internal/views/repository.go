package views

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	"github.com/md-rashed-zaman/orderflow/libs/product"
)

// Repository persists product views in the product_views table. Catalogs
// and event history ride along as jsonb.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) FindByID(ctx context.Context, id product.ProductID) (*product.View, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT product_id, version, sku_id, name, description, status, catalogs, events, created_at, updated_at
		FROM product_views
		WHERE product_id = $1
	`, id.UUID())
	view, err := scanView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Save upserts the view. Last write wins per product; the projector's
// staleness guard keeps out-of-order writes harmless.
func (r *Repository) Save(ctx context.Context, view *product.View) error {
	catalogs, err := json.Marshal(view.Catalogs)
	if err != nil {
		return err
	}
	events, err := json.Marshal(view.Events)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO product_views (product_id, version, sku_id, name, description, status, catalogs, events, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (product_id) DO UPDATE
		SET version = EXCLUDED.version,
		    sku_id = EXCLUDED.sku_id,
		    name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    status = EXCLUDED.status,
		    catalogs = EXCLUDED.catalogs,
		    events = EXCLUDED.events,
		    updated_at = EXCLUDED.updated_at
	`, view.ID.UUID(), view.Version, view.SkuID.String(), view.Name, view.Description,
		string(view.Status), catalogs, events, view.CreatedAt, view.UpdatedAt)
	return err
}

// Search lists views whose name matches the pattern, newest first. A `*`
// in the pattern is a wildcard; matching is case-insensitive. An empty
// pattern matches everything.
func (r *Repository) Search(ctx context.Context, pattern string, limit, offset int) ([]*product.View, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	like := "%"
	if pattern != "" {
		like = strings.ReplaceAll(pattern, "*", "%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM product_views WHERE name ILIKE $1
	`, like).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, version, sku_id, name, description, status, catalogs, events, created_at, updated_at
		FROM product_views
		WHERE name ILIKE $1
		ORDER BY updated_at DESC, product_id
		LIMIT $2 OFFSET $3
	`, like, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*product.View
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, view)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return result, total, nil
}

func scanView(row pgx.Row) (*product.View, error) {
	var v product.View
	var status, sku string
	var catalogs, events []byte
	if err := row.Scan(&v.ID, &v.Version, &sku, &v.Name, &v.Description, &status,
		&catalogs, &events, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.SkuID = product.SkuID(sku)
	v.Status = product.Lifecycle(status)
	if len(catalogs) > 0 {
		if err := json.Unmarshal(catalogs, &v.Catalogs); err != nil {
			return nil, err
		}
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &v.Events); err != nil {
			return nil, err
		}
	}
	return &v, nil
}
