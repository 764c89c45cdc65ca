package report

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
)

type StatusTotal struct {
	Status order.OrderStatus `db:"status" json:"status"`
	Count  int               `db:"order_count" json:"count"`
	Total  decimal.Decimal   `db:"total" json:"total"`
}

type Summary struct {
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	ByStatus []StatusTotal   `json:"by_status"`
}

type LowStockVariant struct {
	ProductID     uuid.UUID `db:"product_id" json:"product_id"`
	ProductName   string    `db:"product_name" json:"product_name"`
	VariantID     uuid.UUID `db:"variant_id" json:"variant_id"`
	SKU           string    `db:"sku" json:"sku"`
	Size          string    `db:"size" json:"size"`
	Color         string    `db:"color" json:"color"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
}
