package services

import (
	"context"

	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const reconcileBatchSize = 200

// ProjectionService keeps the order search index in line with the database
type ProjectionService struct {
	orders  OrderStore
	index   OrderIndex
	metrics *metrics.Metrics
}

// NewProjectionService creates a new projection service. A nil index turns every call into a no-op.
func NewProjectionService(orders OrderStore, index OrderIndex, m *metrics.Metrics) *ProjectionService {
	return &ProjectionService{orders: orders, index: index, metrics: m}
}

// ProjectOrder re-indexes an order, or drops it from the index when it no longer exists
func (s *ProjectionService) ProjectOrder(ctx context.Context, id uuid.UUID) error {
	if s.index == nil {
		return nil
	}

	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return s.index.DeleteOrder(ctx, id)
	}
	if err != nil {
		return err
	}

	err = s.index.IndexOrder(ctx, order)
	s.metrics.Observe("project_order", err)
	return err
}

// RemoveOrder drops an order from the index
func (s *ProjectionService) RemoveOrder(ctx context.Context, id uuid.UUID) error {
	if s.index == nil {
		return nil
	}
	return s.index.DeleteOrder(ctx, id)
}

// Reconcile re-indexes every order and returns how many were written. Individual failures are
// logged and skipped.
func (s *ProjectionService) Reconcile(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	indexed, failed := 0, 0
	err := s.orders.ForEachBatch(ctx, reconcileBatchSize, func(orders []models.Order) error {
		for i := range orders {
			if err := s.index.IndexOrder(ctx, &orders[i]); err != nil {
				failed++
				log.Warn().Err(err).Str("order_id", orders[i].ID.String()).Msg("Failed to index order")
				continue
			}
			indexed++
		}
		return ctx.Err()
	})
	if err != nil {
		return indexed, errors.Wrap(err, "reconcile aborted")
	}

	s.metrics.SetGauge("search_reconcile_failures", int64(failed))
	log.Info().Int("indexed", indexed).Int("failed", failed).Msg("Search index reconciled")
	return indexed, nil
}
