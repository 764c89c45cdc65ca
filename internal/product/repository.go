package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrDuplicateVariant = errors.New("variant with this size and color already exists")
	ErrProductInUse     = errors.New("product is referenced by existing orders")
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, upd VariantUpdate) (*Variant, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, name, description, category, price, sale_price, is_active, image_urls, created_at, updated_at`

const variantColumns = `id, product_id, sku, size, color, stock_quantity, price, is_active, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, p *Product) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("product_id", p.ID).Msg("repository: failed to rollback product transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit product transaction: %w", commitErr)
		}
	}()

	now := time.Now().UTC()
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.SalePrice, p.IsActive, p.ImageURLs, now, now,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now

	for i := range p.Variants {
		v := &p.Variants[i]
		v.ProductID = p.ID
		if err = insertVariant(ctx, tx, v, i, now); err != nil {
			return err
		}
	}

	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// nextPosition places a variant after every existing variant of its product.
const nextPosition = -1

func insertVariant(ctx context.Context, q execer, v *Variant, position int, now time.Time) error {
	if v.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate variant ID: %w", err)
		}
		v.ID = id
	}

	_, err := q.Exec(ctx, `
		INSERT INTO product_variants (`+variantColumns+`, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        CASE WHEN $11::integer >= 0 THEN $11::integer
		             ELSE (SELECT COALESCE(MAX(position) + 1, 0) FROM product_variants WHERE product_id = $2)
		        END)`,
		v.ID, v.ProductID, v.SKU, v.Size, v.Color, v.StockQuantity, v.Price, v.IsActive, now, now, position,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVariant
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to insert variant %s/%s: %w", v.Size, v.Color, err)
	}
	v.CreatedAt, v.UpdatedAt = now, now
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	variants, err := r.variantsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	p.Variants = variants[id]
	if p.Variants == nil {
		p.Variants = []Variant{}
	}

	return p, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1::boolean = FALSE OR is_active)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		filter.ActiveOnly, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *p)
		ids = append(ids, p.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating products: %w", err)
	}

	if len(ids) == 0 {
		return products, nil
	}

	variants, err := r.variantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Variants = variants[products[i].ID]
		if products[i].Variants == nil {
			products[i].Variants = []Variant{}
		}
	}

	return products, nil
}

func (r *postgresRepository) variantsFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY position, created_at`,
		productIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query variants: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Variant, len(productIDs))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan variant: %w", err)
		}
		result[v.ProductID] = append(result[v.ProductID], *v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating variants: %w", err)
	}

	return result, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}

	cmdTag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, category = $3, price = $4, sale_price = $5,
		    is_active = $6, image_urls = $7, updated_at = $8
		WHERE id = $9`,
		p.Name, p.Description, p.Category, p.Price, p.SalePrice, p.IsActive, p.ImageURLs, now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	p.UpdatedAt = now

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) AddVariant(ctx context.Context, v *Variant) error {
	return insertVariant(ctx, r.db, v, nextPosition, time.Now().UTC())
}

// UpdateVariant only touches the columns set in upd, so a concurrent stock
// decrement is never overwritten by a price or SKU change.
func (r *postgresRepository) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, upd VariantUpdate) (*Variant, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE product_variants
		SET sku = COALESCE($1::text, sku),
		    stock_quantity = COALESCE($2::integer, stock_quantity),
		    price = CASE WHEN $4::boolean THEN NULL ELSE COALESCE($3::numeric, price) END,
		    is_active = COALESCE($5::boolean, is_active),
		    updated_at = $6
		WHERE id = $7 AND product_id = $8
		RETURNING `+variantColumns,
		upd.SKU, upd.StockQuantity, upd.Price, upd.ClearPrice, upd.IsActive, time.Now().UTC(), variantID, productID,
	)

	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("repository: failed to update variant %s: %w", variantID, err)
	}
	return v, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p         Product
		salePrice decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&salePrice,
		&p.IsActive,
		&p.ImageURLs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if salePrice.Valid {
		p.SalePrice = &salePrice.Decimal
	}
	return &p, nil
}

func scanVariant(row pgx.Row) (*Variant, error) {
	var (
		v     Variant
		price decimal.NullDecimal
	)
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.SKU,
		&v.Size,
		&v.Color,
		&v.StockQuantity,
		&price,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		v.Price = &price.Decimal
	}
	return &v, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
