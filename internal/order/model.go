package order

import (
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	Customer        Customer        `json:"customer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Notes           string          `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemRequest identifies a variant indirectly by size and color within a product.
type ItemRequest struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

type CreateOrderRequest struct {
	Customer        Customer
	ShippingAddress ShippingAddress
	Notes           string
	Items           []ItemRequest
}

// Validate reports the first missing or malformed required field.
func (r *CreateOrderRequest) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"customer.name", r.Customer.Name},
		{"customer.email", r.Customer.Email},
		{"shipping_address.street", r.ShippingAddress.Street},
		{"shipping_address.city", r.ShippingAddress.City},
		{"shipping_address.postal_code", r.ShippingAddress.PostalCode},
		{"shipping_address.country", r.ShippingAddress.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Message: "is required"}
		}
	}

	if _, err := mail.ParseAddress(r.Customer.Email); err != nil {
		return &ValidationError{Field: "customer.email", Message: "must be a valid email address"}
	}

	if len(r.Items) == 0 {
		return &ValidationError{Field: "items", Message: "order must contain at least one item"}
	}

	for i, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return &ValidationError{Field: itemField(i, "product_id"), Message: "is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: itemField(i, "quantity"), Message: "must be greater than zero"}
		}
	}

	return nil
}

type ListFilter struct {
	Status OrderStatus
	Limit  int
	Offset int
}
