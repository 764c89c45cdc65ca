package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
)

const publishTimeout = 3 * time.Second

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch       channel
	exchange string
}

func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return newPublisher(ch, exchange)
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// PublishOrderEvent sends the event as persistent JSON. The event type is the
// routing key, e.g. order.created.
func (p *Publisher) PublishOrderEvent(ctx context.Context, event order.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.OrderID.String() + ":" + string(event.Type) + ":" + string(event.Status),
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("could not publish %s for order %s: %w", event.Type, event.OrderID, err)
	}
	return nil
}

var _ order.EventPublisher = (*Publisher)(nil)
