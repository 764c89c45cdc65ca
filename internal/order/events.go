package order

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
)

type Event struct {
	Type           EventType       `json:"type"`
	OrderID        uuid.UUID       `json:"order_id"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, Event) error { return nil }
