package services

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/eta"
	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil && order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	args := m.Called(ctx, ids)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) ListEligibleForRouting(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) Update(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderStore) UpdateStatuses(ctx context.Context, ids []uuid.UUID, status models.OrderStatus, now time.Time) error {
	return m.Called(ctx, ids, status, now).Error(0)
}

func (m *MockOrderStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderStore) CountReceivedOn(ctx context.Context, t time.Time) (int64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderStore) ForEachBatch(ctx context.Context, size int, fn func(orders []models.Order) error) error {
	args := m.Called(ctx, size)
	if batches, ok := args.Get(0).([][]models.Order); ok {
		for _, batch := range batches {
			if err := fn(batch); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

type MockCustomerStore struct {
	mock.Mock
}

func (m *MockCustomerStore) Upsert(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	if args.Error(0) == nil {
		customer.ID = uuid.New()
	}
	return args.Error(0)
}

type MockTimeSlotStore struct {
	mock.Mock
}

func (m *MockTimeSlotStore) Create(ctx context.Context, slot *models.TimeSlot) error {
	return m.Called(ctx, slot).Error(0)
}

func (m *MockTimeSlotStore) Update(ctx context.Context, slot *models.TimeSlot) error {
	return m.Called(ctx, slot).Error(0)
}

func (m *MockTimeSlotStore) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeSlot, error) {
	args := m.Called(ctx, id)
	slot, _ := args.Get(0).(*models.TimeSlot)
	return slot, args.Error(1)
}

func (m *MockTimeSlotStore) ListForDate(ctx context.Context, date time.Time, types []models.SlotType) ([]models.TimeSlot, error) {
	args := m.Called(ctx, date, types)
	slots, _ := args.Get(0).([]models.TimeSlot)
	return slots, args.Error(1)
}

type MockSchedulingRequestStore struct {
	mock.Mock
}

func (m *MockSchedulingRequestStore) Create(ctx context.Context, req *models.SchedulingRequest) error {
	args := m.Called(ctx, req)
	if args.Error(0) == nil {
		req.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockSchedulingRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SchedulingRequest, error) {
	args := m.Called(ctx, id)
	req, _ := args.Get(0).(*models.SchedulingRequest)
	return req, args.Error(1)
}

func (m *MockSchedulingRequestStore) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SchedulingRequest, error) {
	args := m.Called(ctx, status)
	reqs, _ := args.Get(0).([]models.SchedulingRequest)
	return reqs, args.Error(1)
}

func (m *MockSchedulingRequestStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error) {
	args := m.Called(ctx, orderID)
	reqs, _ := args.Get(0).([]models.SchedulingRequest)
	return reqs, args.Error(1)
}

func (m *MockSchedulingRequestStore) Decide(ctx context.Context, req *models.SchedulingRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockRouteStore struct {
	mock.Mock
}

func (m *MockRouteStore) Create(ctx context.Context, route *models.Route) error {
	args := m.Called(ctx, route)
	if args.Error(0) == nil {
		route.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRouteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	args := m.Called(ctx, id)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *MockRouteStore) List(ctx context.Context, driverName string) ([]models.Route, error) {
	args := m.Called(ctx, driverName)
	routes, _ := args.Get(0).([]models.Route)
	return routes, args.Error(1)
}

func (m *MockRouteStore) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Route, error) {
	args := m.Called(ctx, orderID)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *MockRouteStore) GetActiveForDriver(ctx context.Context, driverName string) (*models.Route, error) {
	args := m.Called(ctx, driverName)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *MockRouteStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRouteStore) Start(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

func (m *MockRouteStore) CompleteStop(ctx context.Context, routeID, stopID uuid.UUID, now time.Time) (*models.RouteStop, error) {
	args := m.Called(ctx, routeID, stopID, now)
	stop, _ := args.Get(0).(*models.RouteStop)
	return stop, args.Error(1)
}

type MockDriverLocationStore struct {
	mock.Mock
}

func (m *MockDriverLocationStore) Upsert(ctx context.Context, location *models.DriverLocation) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockDriverLocationStore) Get(ctx context.Context, driverName string) (*models.DriverLocation, error) {
	args := m.Called(ctx, driverName)
	location, _ := args.Get(0).(*models.DriverLocation)
	return location, args.Error(1)
}

type MockOrderIndex struct {
	mock.Mock
}

func (m *MockOrderIndex) IndexOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderIndex) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderIndex) SearchOrders(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, text, limit)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Enabled() bool { return true }

func (m *MockCache) Get(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	if fill, ok := args.Get(1).(func(interface{})); ok {
		fill(value)
	}
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

type MockDirections struct {
	mock.Mock
}

func (m *MockDirections) Directions(ctx context.Context, origin string, waypoints []string, destination string) (*eta.DirectionsResponse, error) {
	args := m.Called(ctx, origin, waypoints, destination)
	resp, _ := args.Get(0).(*eta.DirectionsResponse)
	return resp, args.Error(1)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event messaging.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []messaging.EventType {
	out := make([]messaging.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
