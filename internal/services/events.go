package services

import (
	"context"

	"example.com/backstage/services/laundry/internal/messaging"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// publish sends a domain event. Failures are logged and never fail the caller.
func publish(ctx context.Context, publisher messaging.Publisher, eventType messaging.EventType, aggregateID uuid.UUID, payload interface{}) {
	if publisher == nil {
		return
	}

	event, err := messaging.NewEvent(eventType, aggregateID, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(eventType)).Msg("Failed to build event")
		return
	}

	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("type", string(eventType)).
			Str("aggregate_id", aggregateID.String()).
			Msg("Failed to publish event")
	}
}
