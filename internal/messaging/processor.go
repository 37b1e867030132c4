package messaging

import (
	"context"

	"example.com/backstage/services/laundry/internal/metrics"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SchedulingPayload is carried by scheduling events
type SchedulingPayload struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

// RoutePayload is carried by route events
type RoutePayload struct {
	DriverName string      `json:"driver_name"`
	OrderIDs   []uuid.UUID `json:"order_ids"`
}

// OrderProjector keeps a read model of orders up to date
type OrderProjector interface {
	ProjectOrder(ctx context.Context, id uuid.UUID) error
	RemoveOrder(ctx context.Context, id uuid.UUID) error
}

// Processor routes bus events to the order projection
type Processor struct {
	projector OrderProjector
	metrics   *metrics.Metrics
}

// NewProcessor creates a new event processor
func NewProcessor(projector OrderProjector, m *metrics.Metrics) *Processor {
	return &Processor{projector: projector, metrics: m}
}

// Handle processes one event. Unknown event types are acknowledged and ignored.
func (p *Processor) Handle(ctx context.Context, event Event) error {
	log.Debug().Str("type", string(event.Type)).Str("aggregate_id", event.AggregateID).Msg("Processing event")

	err := p.handle(ctx, event)
	if p.metrics != nil {
		p.metrics.Observe("event_"+string(event.Type), err)
	}
	return err
}

func (p *Processor) handle(ctx context.Context, event Event) error {
	switch event.Type {
	case OrderCreated, OrderUpdated, OrderStatusChanged:
		id, err := event.AggregateUUID()
		if err != nil {
			return err
		}
		return p.projector.ProjectOrder(ctx, id)

	case OrderDeleted:
		id, err := event.AggregateUUID()
		if err != nil {
			return err
		}
		return p.projector.RemoveOrder(ctx, id)

	case SchedulingRequested, SchedulingConfirmed:
		var payload SchedulingPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		return p.projector.ProjectOrder(ctx, payload.OrderID)

	case RouteCreated, RouteDeleted, RouteStarted, RouteStopCompleted:
		var payload RoutePayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		for _, id := range payload.OrderIDs {
			if err := p.projector.ProjectOrder(ctx, id); err != nil {
				return errors.Wrapf(err, "failed to project order %s", id)
			}
		}
		return nil

	default:
		log.Warn().Str("type", string(event.Type)).Msg("Ignoring unknown event type")
		return nil
	}
}
