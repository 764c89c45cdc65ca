package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// CreateOrder inserts the order with its items and decrements the stock of
	// every referenced variant in one transaction. Item prices and the total
	// are recomputed from the rows locked by the decrement.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
	// UpdateOrderStatus moves the order from one status to another only if it
	// still has the expected status.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (time.Time, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, customer_name, customer_email, customer_phone,
	shipping_street, shipping_city, shipping_state, shipping_postal_code, shipping_country,
	notes, total, status, created_at, updated_at`

const itemColumns = `id, order_id, product_id, variant_id, size, color, quantity, unit_price, subtotal, created_at`

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order) (err error) {
	if o.ID == uuid.Nil {
		o.ID, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", o.ID).Msg("repository: panic during order creation, rolling back")
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback order transaction")
			}
			err = translateTxError(err)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = translateTxError(fmt.Errorf("repository: failed to commit order transaction: %w", commitErr))
		}
	}()

	// Variants are locked in a fixed order so two orders over the same
	// variants queue behind each other instead of deadlocking.
	lockOrder := make([]int, len(o.Items))
	for i := range lockOrder {
		lockOrder[i] = i
	}
	slices.SortStableFunc(lockOrder, func(a, b int) int {
		return bytes.Compare(o.Items[a].VariantID.Bytes(), o.Items[b].VariantID.Bytes())
	})
	for _, i := range lockOrder {
		if err = decrementStock(ctx, tx, &o.Items[i]); err != nil {
			return err
		}
	}

	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	o.Total = total

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.Notes, o.Total, string(o.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = now, now

	for i := range o.Items {
		item := &o.Items[i]

		item.ID, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.OrderID = o.ID
		item.CreatedAt = now

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, size, color, quantity, unit_price, subtotal, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.Size, item.Color,
			item.Quantity, item.UnitPrice, item.Subtotal, i, now,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	return nil
}

// decrementStock takes item.Quantity units from the variant, failing when the
// product or variant is inactive, gone, or short of stock at this point of the
// transaction. The item is repriced from the row it just locked.
func decrementStock(ctx context.Context, tx pgx.Tx, item *OrderItem) error {
	var price decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE product_variants v
		SET stock_quantity = v.stock_quantity - $1, updated_at = NOW()
		FROM products p
		WHERE v.id = $2 AND p.id = v.product_id
		  AND p.is_active AND v.is_active AND v.stock_quantity >= $1
		RETURNING COALESCE(v.price, p.price)`,
		item.Quantity, item.VariantID,
	).Scan(&price)
	if err == nil {
		if !price.Equal(item.UnitPrice) {
			log.Warn().
				Stringer("variant_id", item.VariantID).
				Str("checked_price", item.UnitPrice.StringFixed(2)).
				Str("current_price", price.StringFixed(2)).
				Msg("repository: price changed since the order was checked, using current price")
		}
		item.UnitPrice = price
		item.Subtotal = price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("repository: failed to decrement stock for variant %s: %w", item.VariantID, err)
	}

	var (
		stock         int
		active        bool
		productActive bool
		productName   string
	)
	err = tx.QueryRow(ctx, `
		SELECT v.stock_quantity, v.is_active, p.is_active, p.name
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`,
		item.VariantID,
	).Scan(&stock, &active, &productActive, &productName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &VariantNotFoundError{ProductID: item.ProductID, Size: item.Size, Color: item.Color}
		}
		return fmt.Errorf("repository: failed to read stock for variant %s: %w", item.VariantID, err)
	}
	if !productActive {
		return &InactiveProductError{ProductID: item.ProductID, Name: productName}
	}
	if !active {
		return &InactiveVariantError{VariantID: item.VariantID}
	}
	return &InsufficientStockError{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Size:      item.Size,
		Color:     item.Color,
		Available: stock,
		Requested: item.Quantity,
	}
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	items, err := r.itemsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []OrderItem{}
	}

	return o, nil
}

func (r *postgresRepository) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []OrderItem{}
		}
	}

	return orders, nil
}

func (r *postgresRepository) itemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY position`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]OrderItem, len(orderIDs))
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.Size,
			&item.Color,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items: %w", err)
	}

	return result, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (time.Time, error) {
	updatedAt := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), updatedAt, id, string(from),
	)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", to).Msg("repository: failed to update order status")
		return time.Time{}, fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return time.Time{}, ErrConcurrentModification
	}

	return updatedAt, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.Customer.Name,
		&o.Customer.Email,
		&o.Customer.Phone,
		&o.ShippingAddress.Street,
		&o.ShippingAddress.City,
		&o.ShippingAddress.State,
		&o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country,
		&o.Notes,
		&o.Total,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return ErrConcurrentModification
		}
	}
	return err
}
