package services

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/eta"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/validation"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TrackingStatus tells how far an order is from being delivered
type TrackingStatus string

const (
	TrackingNotScheduled TrackingStatus = "not_scheduled"
	TrackingNotStarted   TrackingStatus = "not_started"
	TrackingCalculating  TrackingStatus = "calculating"
	TrackingEstimated    TrackingStatus = "estimated"
	TrackingDelivered    TrackingStatus = "delivered"
)

// Tracking is the delivery progress of one order
type Tracking struct {
	OrderID        uuid.UUID              `json:"order_id"`
	OrderNumber    string                 `json:"order_number"`
	Status         TrackingStatus         `json:"status"`
	RouteID        *uuid.UUID             `json:"route_id,omitempty"`
	DriverName     string                 `json:"driver_name,omitempty"`
	DriverLocation *models.DriverLocation `json:"driver_location,omitempty"`
	StopIndex      int                    `json:"stop_index"`
	StopsBefore    int                    `json:"stops_before"`
	EtaMinutes     *int                   `json:"eta_minutes"`
}

// TrackingService estimates when a driver reaches an order
type TrackingService struct {
	orders      OrderStore
	routes      RouteStore
	drivers     DriverLocator
	provider    eta.Provider
	serviceTime time.Duration
	metrics     *metrics.Metrics
}

// NewTrackingService creates a new tracking service
func NewTrackingService(orders OrderStore, routes RouteStore, drivers DriverLocator, provider eta.Provider, serviceTime time.Duration, m *metrics.Metrics) *TrackingService {
	return &TrackingService{
		orders:      orders,
		routes:      routes,
		drivers:     drivers,
		provider:    provider,
		serviceTime: serviceTime,
		metrics:     m,
	}
}

// TrackOrder reports the delivery progress of an order. ETA misses are reported as
// "calculating", never as errors.
func (s *TrackingService) TrackOrder(ctx context.Context, orderID uuid.UUID) (*Tracking, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.track(ctx, order)
}

// TrackCustomerOrder tracks an order owned by the given telephone number
func (s *TrackingService) TrackCustomerOrder(ctx context.Context, phone string, orderID uuid.UUID) (*Tracking, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TelephoneNumber != validation.NormalizePhone(phone) {
		return nil, ErrNotFound
	}
	return s.track(ctx, order)
}

func (s *TrackingService) track(ctx context.Context, order *models.Order) (*Tracking, error) {
	tracking := &Tracking{OrderID: order.ID, OrderNumber: order.OrderNumber, Status: TrackingNotScheduled}

	route, err := s.routes.GetByOrderID(ctx, order.ID)
	if errors.Is(err, ErrNotFound) {
		return tracking, nil
	}
	if err != nil {
		return nil, err
	}

	tracking.RouteID = &route.ID
	tracking.DriverName = route.DriverName

	var target *models.RouteStop
	remaining := make([]models.RouteStop, 0, len(route.Stops))
	for i := range route.Stops {
		stop := route.Stops[i]
		if stop.OrderID == order.ID {
			target = &route.Stops[i]
			tracking.StopIndex = stop.Position
		}
		if !stop.IsCompleted {
			remaining = append(remaining, stop)
		}
	}
	if target == nil {
		return tracking, nil
	}
	if target.IsCompleted {
		tracking.Status = TrackingDelivered
		return tracking, nil
	}
	if !route.IsStarted {
		tracking.Status = TrackingNotStarted
		return tracking, nil
	}

	tracking.Status = TrackingCalculating
	location, err := s.drivers.DriverLocation(ctx, route.DriverName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("driver", route.DriverName).Msg("Failed to load driver location")
		}
		return tracking, nil
	}
	tracking.DriverLocation = location

	ids := make([]string, 0, len(remaining))
	waypoints := make([]string, 0, len(remaining))
	for _, stop := range remaining {
		ids = append(ids, stop.OrderID.String())
		if stop.OrderID == order.ID {
			break
		}
		waypoints = append(waypoints, stop.Waypoint())
	}
	tracking.StopsBefore = len(ids) - 1

	done := s.metrics.Time("directions")
	resp, err := s.provider.Directions(ctx, location.Waypoint(), waypoints, target.Waypoint())
	done()
	s.metrics.Observe("directions", err)
	if err != nil {
		log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("Directions request failed")
		return tracking, nil
	}

	if minutes, ok := eta.Estimate(resp, ids, order.ID.String(), s.serviceTime); ok {
		tracking.EtaMinutes = &minutes
		tracking.Status = TrackingEstimated
	}
	return tracking, nil
}
