package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/backstage/services/laundry/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const receiveBatchSize = 10

// ServiceBus implements Bus over an Azure Service Bus queue
type ServiceBus struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// NewServiceBus creates a new Azure Service Bus client
func NewServiceBus(cfg config.AzureConfig, source string) (*ServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBus{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// Publish sends an event to the queue
func (s *ServiceBus) Publish(ctx context.Context, event Event) error {
	event.Source = s.source
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	msg := &azservicebus.Message{
		Body:        data,
		MessageID:   &event.ID,
		ContentType: stringPtr("application/json"),
		Subject:     stringPtr(string(event.Type)),
		ApplicationProperties: map[string]interface{}{
			"source": s.source,
			"time":   event.OccurredAt.Format(time.RFC3339),
		},
	}

	return errors.Wrapf(s.sender.SendMessage(ctx, msg, nil), "failed to send %s", event.Type)
}

// Consume receives messages in batches until ctx is cancelled. Messages whose handler fails are
// abandoned so the broker redelivers them.
func (s *ServiceBus) Consume(ctx context.Context, handler Handler) error {
	receiver, err := s.client.NewReceiverForQueue(s.queueName, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus receiver")
		}
	}()

	log.Info().Str("queue", s.queueName).Msg("Consuming events from Service Bus")

	for {
		messages, err := receiver.ReceiveMessages(ctx, receiveBatchSize, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, message := range messages {
			s.dispatch(ctx, receiver, message, handler)
		}
	}
}

func (s *ServiceBus) dispatch(ctx context.Context, receiver *azservicebus.Receiver, message *azservicebus.ReceivedMessage, handler Handler) {
	var event Event
	if err := json.Unmarshal(message.Body, &event); err != nil {
		log.Error().Err(err).Str("message_id", message.MessageID).Msg("Dropping undecodable message")
		if err := receiver.DeadLetterMessage(ctx, message, nil); err != nil {
			log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error dead-lettering message")
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Error().Err(err).Str("message_id", message.MessageID).Str("type", string(event.Type)).Msg("Error processing event")
		if err := receiver.AbandonMessage(context.Background(), message, nil); err != nil {
			log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error abandoning message")
		}
		return
	}

	if err := receiver.CompleteMessage(context.Background(), message, nil); err != nil {
		log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error completing message")
	}
}

// Close closes the sender and the client
func (s *ServiceBus) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}

func stringPtr(s string) *string { return &s }
