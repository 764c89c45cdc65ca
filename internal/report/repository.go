package report

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	TotalsByStatus(ctx context.Context) ([]StatusTotal, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockVariant, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) TotalsByStatus(ctx context.Context) ([]StatusTotal, error) {
	query := `
		SELECT status, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS total
		FROM orders
		GROUP BY status`

	totals := make([]StatusTotal, 0)
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate orders by status: %w", err)
	}

	return totals, nil
}

func (r *sqlxRepository) LowStock(ctx context.Context, threshold int) ([]LowStockVariant, error) {
	query := `
		SELECT p.id AS product_id, p.name AS product_name, v.id AS variant_id,
			v.sku, v.size, v.color, v.stock_quantity
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.is_active AND p.is_active AND v.stock_quantity <= $1
		ORDER BY v.stock_quantity, p.name, v.size, v.color`

	variants := make([]LowStockVariant, 0)
	if err := r.db.SelectContext(ctx, &variants, query, threshold); err != nil {
		return nil, fmt.Errorf("repository: failed to query low stock variants: %w", err)
	}

	return variants, nil
}
