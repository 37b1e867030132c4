package services

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/cache"
	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/routing"
	"example.com/backstage/services/laundry/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const driverLocationTTL = 10 * time.Minute

// RouteInput is the payload for a route. For automatic routes OrderIDs is optional and
// defaults to every eligible order.
type RouteInput struct {
	DriverName string      `json:"driver_name"`
	OrderIDs   []uuid.UUID `json:"order_ids"`
}

// LocationInput is a driver position report
type LocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RoutePlan is a route with its estimated driving distance from the depot
type RoutePlan struct {
	*models.Route
	DistanceKm float64 `json:"distance_km"`
}

// DriverRouteView is what a driver sees: the active route and the last reported position
type DriverRouteView struct {
	Route    *models.Route          `json:"route"`
	Location *models.DriverLocation `json:"location"`
}

// RoutingService plans and runs driver routes
type RoutingService struct {
	orders    OrderStore
	routes    RouteStore
	locations DriverLocationStore
	cache     Cache
	publisher messaging.Publisher
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	depot     routing.Point
	now       func() time.Time
}

// NewRoutingService creates a new routing service
func NewRoutingService(
	orders OrderStore,
	routes RouteStore,
	locations DriverLocationStore,
	c Cache,
	publisher messaging.Publisher,
	tracer tracing.Tracer,
	m *metrics.Metrics,
	depot routing.Point,
) *RoutingService {
	return &RoutingService{
		orders:    orders,
		routes:    routes,
		locations: locations,
		cache:     c,
		publisher: publisher,
		tracer:    tracer,
		metrics:   m,
		depot:     depot,
		now:       time.Now,
	}
}

// EligibleOrders lists confirmed pickup/delivery orders not yet on a route
func (s *RoutingService) EligibleOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListEligibleForRouting(ctx)
}

// CreateRoute stores a route visiting the given orders in the given sequence
func (s *RoutingService) CreateRoute(ctx context.Context, input RouteInput) (*RoutePlan, error) {
	if input.DriverName == "" {
		return nil, invalid("driver name is required")
	}
	if len(input.OrderIDs) == 0 {
		return nil, invalid("a route needs at least one order")
	}
	if len(uniqueIDs(input.OrderIDs)) != len(input.OrderIDs) {
		return nil, invalid("a route may visit each order once")
	}

	eligible, err := s.eligibleByID(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(input.OrderIDs))
	for _, id := range input.OrderIDs {
		order, ok := eligible[id]
		if !ok {
			return nil, invalid("order %s is not eligible for routing", id)
		}
		orders = append(orders, order)
	}

	return s.save(ctx, input.DriverName, orders)
}

// AutoRoute orders the candidate orders by nearest neighbour from the depot and stores the route
func (s *RoutingService) AutoRoute(ctx context.Context, input RouteInput) (*RoutePlan, error) {
	if input.DriverName == "" {
		return nil, invalid("driver name is required")
	}

	eligible, err := s.orders.ListEligibleForRouting(ctx)
	if err != nil {
		return nil, err
	}

	candidates := eligible
	if len(input.OrderIDs) > 0 {
		byID := make(map[uuid.UUID]models.Order, len(eligible))
		for _, o := range eligible {
			byID[o.ID] = o
		}
		candidates = make([]models.Order, 0, len(input.OrderIDs))
		for _, id := range uniqueIDs(input.OrderIDs) {
			order, ok := byID[id]
			if !ok {
				return nil, invalid("order %s is not eligible for routing", id)
			}
			candidates = append(candidates, order)
		}
	}
	if len(candidates) == 0 {
		return nil, invalid("no orders eligible for routing")
	}

	byID := make(map[uuid.UUID]models.Order, len(candidates))
	points := make([]routing.Candidate, 0, len(candidates))
	for _, o := range candidates {
		byID[o.ID] = o
		c := routing.Candidate{OrderID: o.ID}
		if o.HasCoordinates() {
			c.Location = &routing.Point{Lat: *o.Latitude, Lng: *o.Longitude}
		}
		points = append(points, c)
	}

	ordered := make([]models.Order, 0, len(candidates))
	for _, c := range routing.NearestNeighbour(s.depot, points) {
		ordered = append(ordered, byID[c.OrderID])
	}

	return s.save(ctx, input.DriverName, ordered)
}

func (s *RoutingService) eligibleByID(ctx context.Context) (map[uuid.UUID]models.Order, error) {
	eligible, err := s.orders.ListEligibleForRouting(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Order, len(eligible))
	for _, o := range eligible {
		byID[o.ID] = o
	}
	return byID, nil
}

func (s *RoutingService) save(ctx context.Context, driverName string, orders []models.Order) (*RoutePlan, error) {
	route := &models.Route{DriverName: driverName, Stops: make([]models.RouteStop, 0, len(orders))}
	points := make([]routing.Candidate, 0, len(orders))
	for i, o := range orders {
		route.Stops = append(route.Stops, models.RouteStop{
			OrderID:   o.ID,
			Position:  i,
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Address:   o.DeliveryAddress,
		})
		c := routing.Candidate{OrderID: o.ID}
		if o.HasCoordinates() {
			c.Location = &routing.Point{Lat: *o.Latitude, Lng: *o.Longitude}
		}
		points = append(points, c)
	}

	err := s.routes.Create(ctx, route)
	s.metrics.Observe("create_route", err)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return nil, ErrOrderOnRoute
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, messaging.RouteCreated, route.ID, routePayload(route))
	log.Info().
		Str("route_id", route.ID.String()).
		Str("driver", driverName).
		Int("stops", len(route.Stops)).
		Msg("Route created")

	return &RoutePlan{Route: route, DistanceKm: routing.TotalDistance(s.depot, points)}, nil
}

// ListRoutes lists routes, optionally of one driver
func (s *RoutingService) ListRoutes(ctx context.Context, driverName string) ([]models.Route, error) {
	return s.routes.List(ctx, driverName)
}

// GetRoute gets a route with its stops
func (s *RoutingService) GetRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// DeleteRoute removes a route that has not started. Its orders become eligible again.
func (s *RoutingService) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if route.IsStarted {
		return ErrRouteStarted
	}

	if err := s.routes.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return ErrRouteStarted
		}
		return err
	}

	publish(ctx, s.publisher, messaging.RouteDeleted, route.ID, routePayload(route))
	log.Info().Str("route_id", id.String()).Msg("Route deleted")
	return nil
}

// StartRoute marks a route as started and its orders as in progress
func (s *RoutingService) StartRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if route.IsStarted {
		return nil, ErrRouteStarted
	}

	now := s.now()
	if err := s.routes.Start(ctx, id, now); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrRouteStarted
		}
		return nil, err
	}
	route.IsStarted = true
	route.StartedAt = &now

	publish(ctx, s.publisher, messaging.RouteStarted, route.ID, routePayload(route))
	log.Info().Str("route_id", id.String()).Str("driver", route.DriverName).Msg("Route started")
	return route, nil
}

// CompleteStop records a visited stop and completes its order's scheduling
func (s *RoutingService) CompleteStop(ctx context.Context, routeID, stopID uuid.UUID) (*models.RouteStop, error) {
	stop, err := s.routes.CompleteStop(ctx, routeID, stopID, s.now())
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, messaging.RouteStopCompleted, routeID,
		messaging.RoutePayload{OrderIDs: []uuid.UUID{stop.OrderID}})
	s.metrics.IncrementCounter("stops_completed")
	return stop, nil
}

// UpdateDriverLocation records a driver position
func (s *RoutingService) UpdateDriverLocation(ctx context.Context, driverName string, input LocationInput) (*models.DriverLocation, error) {
	if driverName == "" {
		return nil, invalid("driver name is required")
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, invalid("coordinates out of range")
	}

	location := &models.DriverLocation{
		DriverName: driverName,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		UpdatedAt:  s.now(),
	}
	if err := s.locations.Upsert(ctx, location); err != nil {
		return nil, err
	}

	s.cacheLocation(ctx, location)
	return location, nil
}

// DriverLocation returns the last position of a driver, from the cache when possible
func (s *RoutingService) DriverLocation(ctx context.Context, driverName string) (*models.DriverLocation, error) {
	key := cache.GetDriverLocationCacheKey(driverName)
	if s.cache != nil && s.cache.Enabled() {
		var location models.DriverLocation
		if err := s.cache.Get(ctx, key, &location); err == nil {
			return &location, nil
		}
	}

	location, err := s.locations.Get(ctx, driverName)
	if err != nil {
		return nil, err
	}
	s.cacheLocation(ctx, location)
	return location, nil
}

func (s *RoutingService) cacheLocation(ctx context.Context, location *models.DriverLocation) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	key := cache.GetDriverLocationCacheKey(location.DriverName)
	if err := s.cache.Set(ctx, key, location, driverLocationTTL); err != nil {
		log.Warn().Err(err).Str("driver", location.DriverName).Msg("Failed to cache driver location")
	}
}

// DriverRoute returns the active route of a driver with the driver's last position
func (s *RoutingService) DriverRoute(ctx context.Context, driverName string) (*DriverRouteView, error) {
	route, err := s.routes.GetActiveForDriver(ctx, driverName)
	if err != nil {
		return nil, err
	}

	view := &DriverRouteView{Route: route}
	location, err := s.DriverLocation(ctx, driverName)
	switch {
	case err == nil:
		view.Location = location
	case !errors.Is(err, ErrNotFound):
		log.Warn().Err(err).Str("driver", driverName).Msg("Failed to load driver location")
	}
	return view, nil
}

func routePayload(route *models.Route) messaging.RoutePayload {
	ids := make([]uuid.UUID, 0, len(route.Stops))
	for _, stop := range route.Stops {
		ids = append(ids, stop.OrderID)
	}
	return messaging.RoutePayload{DriverName: route.DriverName, OrderIDs: ids}
}
