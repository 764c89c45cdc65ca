package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/config"
)

const (
	ExchangeType = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// Connect dials the broker with a few retries and declares the order events
// exchange. It returns nil, nil, nil when no URL is configured.
func Connect(ctx context.Context, cfg config.RabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	if cfg.URL == "" {
		log.Warn().Msg("RABBITMQ_URL not set, order events disabled")
		return nil, nil, nil
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to RabbitMQ")
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info().Str("exchange", cfg.Exchange).Msg("Connected to RabbitMQ")
	return conn, ch, nil
}
