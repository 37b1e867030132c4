package messaging

import (
	"context"
	"sync"

	"example.com/backstage/services/laundry/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// InlineBus hands published events straight to the handler in the publishing goroutine.
// It backs the "none" driver, where one process both publishes and projects.
type InlineBus struct {
	mu      sync.RWMutex
	handler Handler
}

// NewInlineBus creates an inline bus. The handler may be nil and attached later through Consume.
func NewInlineBus(handler Handler) *InlineBus {
	return &InlineBus{handler: handler}
}

// Publish runs the handler. Events published before a handler is attached are dropped.
func (b *InlineBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	if handler == nil {
		log.Debug().Str("type", string(event.Type)).Msg("No inline handler attached, event dropped")
		return nil
	}
	return handler(ctx, event)
}

// Consume attaches handler and blocks until ctx is cancelled
func (b *InlineBus) Consume(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.handler = nil
	b.mu.Unlock()
	return nil
}

// Close is a no-op
func (b *InlineBus) Close() error { return nil }

// NewBus selects the transport named by messaging.driver
func NewBus(cfg config.Config) (Bus, error) {
	source := cfg.Messaging.Source
	switch cfg.Messaging.Driver {
	case "azure":
		bus, err := NewServiceBus(cfg.Azure, source)
		if err != nil {
			return nil, err
		}
		return bus, nil
	case "rabbitmq":
		bus, err := NewRabbitMQBus(cfg.RabbitMQ, source)
		if err != nil {
			return nil, err
		}
		return bus, nil
	case "none", "":
		return NewInlineBus(nil), nil
	default:
		return nil, errors.Errorf("unknown messaging driver %q", cfg.Messaging.Driver)
	}
}
