package product

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty"`
	IsActive    bool             `json:"is_active"`
	ImageURLs   []string         `json:"image_urls"`
	Variants    []Variant        `json:"variants"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TotalStock is the sum of stock across all variants, active or not.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.StockQuantity
	}
	return total
}

// FindVariant returns the active variant matching size and color exactly.
func (p *Product) FindVariant(size, color string) (*Variant, bool) {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.IsActive && v.Size == size && v.Color == color {
			return v, true
		}
	}
	return nil, false
}

type Variant struct {
	ID            uuid.UUID        `json:"id"`
	ProductID     uuid.UUID        `json:"product_id"`
	SKU           string           `json:"sku"`
	Size          string           `json:"size"`
	Color         string           `json:"color"`
	StockQuantity int              `json:"stock_quantity"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// EffectivePrice is the variant override when set, otherwise the product price.
func (v *Variant) EffectivePrice(productPrice decimal.Decimal) decimal.Decimal {
	if v.Price != nil {
		return *v.Price
	}
	return productPrice
}

type ListFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ProductUpdate carries the scalar fields an admin may change. Nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	SalePrice   *decimal.Decimal
	ClearSale   bool
	IsActive    *bool
	ImageURLs   []string
}

type VariantUpdate struct {
	SKU           *string
	StockQuantity *int
	Price         *decimal.Decimal
	ClearPrice    bool
	IsActive      *bool
}
