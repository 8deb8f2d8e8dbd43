package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	"github.com/md-rashed-zaman/orderflow/libs/product"
)

// ProductRepository stores the write-side aggregate state. The row is a
// snapshot; the event log is the source of truth.
type ProductRepository struct {
	pool *db.Pool
}

func NewProductRepository(pool *db.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *ProductRepository) ExistsBySku(ctx context.Context, tx pgx.Tx, sku product.SkuID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM products WHERE sku_id = $1 AND status = $2
		)
	`, sku.String(), string(product.LifecycleActive)).Scan(&exists)
	return exists, err
}

// FindByIDForUpdate locks the aggregate row for the rest of the
// transaction so concurrent commands on one product serialize.
func (r *ProductRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id product.ProductID) (*product.Product, error) {
	var p product.Product
	var sku, status string
	err := tx.QueryRow(ctx, `
		SELECT id, sku_id, name, description, status, version
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id.UUID()).Scan(&p.ID, &sku, &p.Name, &p.Description, &status, &p.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.SkuID = product.SkuID(sku)
	p.Status = product.Lifecycle(status)
	return &p, nil
}

func (r *ProductRepository) Insert(ctx context.Context, tx pgx.Tx, p *product.Product) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO products (id, sku_id, name, description, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, p.ID.UUID(), p.SkuID.String(), p.Name, p.Description, string(p.Status), p.Version)
	return err
}

func (r *ProductRepository) Update(ctx context.Context, tx pgx.Tx, p *product.Product) error {
	_, err := tx.Exec(ctx, `
		UPDATE products
		SET name = $2,
		    description = $3,
		    status = $4,
		    version = $5,
		    updated_at = now()
		WHERE id = $1
	`, p.ID.UUID(), p.Name, p.Description, string(p.Status), p.Version)
	return err
}
