package order

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrConcurrentModification = errors.New("order was modified concurrently, retry the request")
)

// NotFoundError reports a referenced product that does not exist.
type NotFoundError struct {
	ProductID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InactiveProductError struct {
	ProductID uuid.UUID
	Name      string
}

func (e *InactiveProductError) Error() string {
	return fmt.Sprintf("product %q (%s) is not active", e.Name, e.ProductID)
}

// InactiveVariantError is returned when a variant was deactivated between
// validation and the stock decrement.
type InactiveVariantError struct {
	VariantID uuid.UUID
}

func (e *InactiveVariantError) Error() string {
	return fmt.Sprintf("variant %s is not active", e.VariantID)
}

type InsufficientStockError struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Size      string
	Color     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID == uuid.Nil {
		return fmt.Sprintf("insufficient stock for product %s. Available: %d, Requested: %d",
			e.ProductID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s variant %s/%s. Available: %d, Requested: %d",
		e.ProductID, e.Size, e.Color, e.Available, e.Requested)
}

type VariantNotFoundError struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("no active variant with size %q and color %q for product %s", e.Size, e.Color, e.ProductID)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
