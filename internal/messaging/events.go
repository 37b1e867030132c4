package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EventType names a domain event
type EventType string

const (
	OrderCreated        EventType = "order.created"
	OrderUpdated        EventType = "order.updated"
	OrderStatusChanged  EventType = "order.status_changed"
	OrderDeleted        EventType = "order.deleted"
	SchedulingRequested EventType = "scheduling.requested"
	SchedulingConfirmed EventType = "scheduling.confirmed"
	RouteCreated        EventType = "route.created"
	RouteDeleted        EventType = "route.deleted"
	RouteStarted        EventType = "route.started"
	RouteStopCompleted  EventType = "route.stop_completed"
)

// Event is the envelope carried on the bus
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Source      string          `json:"source,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a JSON encoded payload. A nil payload is left empty.
func NewEvent(eventType EventType, aggregateID uuid.UUID, payload interface{}) (Event, error) {
	event := Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID.String(),
		OccurredAt:  time.Now().UTC(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, errors.Wrapf(err, "failed to marshal %s payload", eventType)
		}
		event.Payload = data
	}

	return event, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return errors.Errorf("event %s has no payload", e.Type)
	}
	return errors.Wrapf(json.Unmarshal(e.Payload, v), "failed to decode %s payload", e.Type)
}

// AggregateUUID parses the aggregate id
func (e Event) AggregateUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.AggregateID)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "event %s has invalid aggregate id %q", e.Type, e.AggregateID)
	}
	return id, nil
}

// Handler processes one event. A returned error leaves the message for redelivery where the
// transport supports it.
type Handler func(ctx context.Context, event Event) error

// Publisher sends events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Consumer delivers events to a handler until the context ends
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Bus is both ends of an event transport
type Bus interface {
	Publisher
	Consumer
}
