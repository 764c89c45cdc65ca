package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	deadline bool
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	_, c.deadline = ctx.Deadline()
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func TestPublisher_PublishOrderEvent(t *testing.T) {
	ch := &recordingChannel{}
	p := newPublisher(ch, "happy_baby.orders")

	event := order.Event{
		Type:           order.EventOrderStatusChanged,
		OrderID:        uuid.Must(uuid.NewV4()),
		Status:         order.StatusShipped,
		PreviousStatus: order.StatusProcessing,
		Total:          decimal.RequireFromString("180.00"),
		OccurredAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishOrderEvent(context.Background(), event))

	assert.Equal(t, "happy_baby.orders", ch.exchange)
	assert.Equal(t, "order.status_changed", ch.key)
	assert.True(t, ch.deadline)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "order.status_changed", body["type"])
	assert.Equal(t, event.OrderID.String(), body["order_id"])
	assert.Equal(t, "shipped", body["status"])
	assert.Equal(t, "processing", body["previous_status"])
	assert.Equal(t, "180", body["total"])
}

func TestPublisher_OmitsEmptyPreviousStatus(t *testing.T) {
	ch := &recordingChannel{}
	p := newPublisher(ch, "happy_baby.orders")

	require.NoError(t, p.PublishOrderEvent(context.Background(), order.Event{
		Type:    order.EventOrderCreated,
		OrderID: uuid.Must(uuid.NewV4()),
		Status:  order.StatusPending,
		Total:   decimal.NewFromInt(10),
	}))

	assert.Equal(t, "order.created", ch.key)
	assert.NotContains(t, string(ch.msg.Body), "previous_status")
}

func TestPublisher_ChannelError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel/connection is not open")}
	p := newPublisher(ch, "happy_baby.orders")

	err := p.PublishOrderEvent(context.Background(), order.Event{Type: order.EventOrderCreated, OrderID: uuid.Must(uuid.NewV4())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not publish order.created")
}
