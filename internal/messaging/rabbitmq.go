package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"example.com/backstage/services/laundry/config"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitMQBus implements Bus over a topic exchange with one durable queue bound to every event type
type RabbitMQBus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	acks     <-chan amqp.Confirmation
	mu       sync.Mutex
	exchange string
	queue    string
	prefetch int
	source   string
}

// NewRabbitMQBus dials the broker and declares the topology
func NewRabbitMQBus(cfg config.RabbitMQConfig, source string) (*RabbitMQBus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open RabbitMQ channel")
	}

	if err := declareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to enable publisher confirms")
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	return &RabbitMQBus{
		conn:     conn,
		ch:       ch,
		acks:     ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		prefetch: prefetch,
		source:   source,
	}, nil
}

func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", queue)
	}
	if err := ch.QueueBind(queue, "#", exchange, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind queue %s", queue)
	}
	return nil
}

// Publish sends an event routed by its type and waits for the broker confirm
func (b *RabbitMQBus) Publish(ctx context.Context, event Event) error {
	event.Source = b.source
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.ch.PublishWithContext(ctx, b.exchange, string(event.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Timestamp:    time.Now().UTC(),
		AppId:        b.source,
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to publish %s", event.Type)
	}

	select {
	case conf := <-b.acks:
		if !conf.Ack {
			return errors.Errorf("broker rejected %s", event.Type)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers queued events to handler until ctx is cancelled. A failed event is requeued
// once and dropped on its second failure.
func (b *RabbitMQBus) Consume(ctx context.Context, handler Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open RabbitMQ consumer channel")
	}
	defer ch.Close()

	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		return errors.Wrap(err, "failed to set prefetch")
	}

	deliveries, err := ch.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to consume from %s", b.queue)
	}

	log.Info().Str("queue", b.queue).Msg("Consuming events from RabbitMQ")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("RabbitMQ delivery channel closed")
			}
			b.dispatch(ctx, d, handler)
		}
	}
}

func (b *RabbitMQBus) dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	var event Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("Dropping undecodable message")
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Str("type", string(event.Type)).Bool("redelivered", d.Redelivered).Msg("Error processing event")
		if err := d.Nack(false, !d.Redelivered); err != nil {
			log.Error().Err(err).Msg("Error rejecting message")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("Error acknowledging message")
	}
}

// Close closes the channel and the connection
func (b *RabbitMQBus) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
