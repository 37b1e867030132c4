package api

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/progress"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/scheduling"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input services.OrderInput) (*models.Order, error) {
	args := m.Called(ctx, input)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) CreateCustomerOrder(ctx context.Context, identity auth.Identity, input services.OrderInput) (*models.Order, error) {
	args := m.Called(ctx, identity, input)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) GetCustomerOrder(ctx context.Context, phone string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, phone, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]services.OrderSummary, error) {
	args := m.Called(ctx, filter)
	orders, _ := args.Get(0).([]services.OrderSummary)
	return orders, args.Error(1)
}

func (m *MockOrderService) ListCustomerOrders(ctx context.Context, phone string) ([]services.OrderSummary, error) {
	args := m.Called(ctx, phone)
	orders, _ := args.Get(0).([]services.OrderSummary)
	return orders, args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, id uuid.UUID, input services.OrderInput) (*models.Order, error) {
	args := m.Called(ctx, id, input)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderService) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status models.OrderStatus) error {
	return m.Called(ctx, ids, status).Error(0)
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderService) SetItemProgress(ctx context.Context, id uuid.UUID, itemIndex int, completed bool) (progress.Stats, error) {
	args := m.Called(ctx, id, itemIndex, completed)
	return args.Get(0).(progress.Stats), args.Error(1)
}

func (m *MockOrderService) GetProgress(ctx context.Context, id uuid.UUID) (progress.Stats, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(progress.Stats), args.Error(1)
}

func (m *MockOrderService) EditView(ctx context.Context, id uuid.UUID) (*services.OrderEditView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*services.OrderEditView)
	return view, args.Error(1)
}

func (m *MockOrderService) SearchOrders(ctx context.Context, text string) ([]services.OrderSummary, error) {
	args := m.Called(ctx, text)
	orders, _ := args.Get(0).([]services.OrderSummary)
	return orders, args.Error(1)
}

func (m *MockOrderService) ExportOrders(ctx context.Context, filter repositories.OrderFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type MockSchedulingService struct {
	mock.Mock
}

func (m *MockSchedulingService) TimeSlots(ctx context.Context, date time.Time, slotType models.SlotType) ([]scheduling.SlotView, error) {
	args := m.Called(ctx, date, slotType)
	slots, _ := args.Get(0).([]scheduling.SlotView)
	return slots, args.Error(1)
}

func (m *MockSchedulingService) CreateTimeSlot(ctx context.Context, input services.TimeSlotInput) (*models.TimeSlot, error) {
	args := m.Called(ctx, input)
	slot, _ := args.Get(0).(*models.TimeSlot)
	return slot, args.Error(1)
}

func (m *MockSchedulingService) UpdateTimeSlot(ctx context.Context, id uuid.UUID, input services.TimeSlotInput) (*models.TimeSlot, error) {
	args := m.Called(ctx, id, input)
	slot, _ := args.Get(0).(*models.TimeSlot)
	return slot, args.Error(1)
}

func (m *MockSchedulingService) CreateRequest(ctx context.Context, input services.RequestInput) (*models.SchedulingRequest, error) {
	args := m.Called(ctx, input)
	req, _ := args.Get(0).(*models.SchedulingRequest)
	return req, args.Error(1)
}

func (m *MockSchedulingService) CreateCustomerRequest(ctx context.Context, identity auth.Identity, input services.RequestInput) (*models.SchedulingRequest, error) {
	args := m.Called(ctx, identity, input)
	req, _ := args.Get(0).(*models.SchedulingRequest)
	return req, args.Error(1)
}

func (m *MockSchedulingService) DecideRequest(ctx context.Context, id uuid.UUID, input services.DecisionInput, staff auth.Identity) (*models.SchedulingRequest, error) {
	args := m.Called(ctx, id, input, staff)
	req, _ := args.Get(0).(*models.SchedulingRequest)
	return req, args.Error(1)
}

func (m *MockSchedulingService) CancelRequest(ctx context.Context, id uuid.UUID, identity auth.Identity) (*models.SchedulingRequest, error) {
	args := m.Called(ctx, id, identity)
	req, _ := args.Get(0).(*models.SchedulingRequest)
	return req, args.Error(1)
}

func (m *MockSchedulingService) OrderRequests(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error) {
	args := m.Called(ctx, orderID)
	reqs, _ := args.Get(0).([]models.SchedulingRequest)
	return reqs, args.Error(1)
}

func (m *MockSchedulingService) PendingRequests(ctx context.Context) ([]scheduling.TriagedRequest, error) {
	args := m.Called(ctx)
	reqs, _ := args.Get(0).([]scheduling.TriagedRequest)
	return reqs, args.Error(1)
}

type MockRoutingService struct {
	mock.Mock
}

func (m *MockRoutingService) EligibleOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockRoutingService) CreateRoute(ctx context.Context, input services.RouteInput) (*services.RoutePlan, error) {
	args := m.Called(ctx, input)
	plan, _ := args.Get(0).(*services.RoutePlan)
	return plan, args.Error(1)
}

func (m *MockRoutingService) AutoRoute(ctx context.Context, input services.RouteInput) (*services.RoutePlan, error) {
	args := m.Called(ctx, input)
	plan, _ := args.Get(0).(*services.RoutePlan)
	return plan, args.Error(1)
}

func (m *MockRoutingService) ListRoutes(ctx context.Context, driverName string) ([]models.Route, error) {
	args := m.Called(ctx, driverName)
	routes, _ := args.Get(0).([]models.Route)
	return routes, args.Error(1)
}

func (m *MockRoutingService) GetRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	args := m.Called(ctx, id)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *MockRoutingService) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRoutingService) StartRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	args := m.Called(ctx, id)
	route, _ := args.Get(0).(*models.Route)
	return route, args.Error(1)
}

func (m *MockRoutingService) CompleteStop(ctx context.Context, routeID, stopID uuid.UUID) (*models.RouteStop, error) {
	args := m.Called(ctx, routeID, stopID)
	stop, _ := args.Get(0).(*models.RouteStop)
	return stop, args.Error(1)
}

func (m *MockRoutingService) UpdateDriverLocation(ctx context.Context, driverName string, input services.LocationInput) (*models.DriverLocation, error) {
	args := m.Called(ctx, driverName, input)
	location, _ := args.Get(0).(*models.DriverLocation)
	return location, args.Error(1)
}

func (m *MockRoutingService) DriverLocation(ctx context.Context, driverName string) (*models.DriverLocation, error) {
	args := m.Called(ctx, driverName)
	location, _ := args.Get(0).(*models.DriverLocation)
	return location, args.Error(1)
}

func (m *MockRoutingService) DriverRoute(ctx context.Context, driverName string) (*services.DriverRouteView, error) {
	args := m.Called(ctx, driverName)
	view, _ := args.Get(0).(*services.DriverRouteView)
	return view, args.Error(1)
}

type MockTrackingService struct {
	mock.Mock
}

func (m *MockTrackingService) TrackOrder(ctx context.Context, orderID uuid.UUID) (*services.Tracking, error) {
	args := m.Called(ctx, orderID)
	tracking, _ := args.Get(0).(*services.Tracking)
	return tracking, args.Error(1)
}

func (m *MockTrackingService) TrackCustomerOrder(ctx context.Context, phone string, orderID uuid.UUID) (*services.Tracking, error) {
	args := m.Called(ctx, phone, orderID)
	tracking, _ := args.Get(0).(*services.Tracking)
	return tracking, args.Error(1)
}
