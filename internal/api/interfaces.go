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
)

// OrderService is the order API consumed by the handlers
type OrderService interface {
	CreateOrder(ctx context.Context, input services.OrderInput) (*models.Order, error)
	CreateCustomerOrder(ctx context.Context, identity auth.Identity, input services.OrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetCustomerOrder(ctx context.Context, phone string, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]services.OrderSummary, error)
	ListCustomerOrders(ctx context.Context, phone string) ([]services.OrderSummary, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, input services.OrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status models.OrderStatus) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	SetItemProgress(ctx context.Context, id uuid.UUID, itemIndex int, completed bool) (progress.Stats, error)
	GetProgress(ctx context.Context, id uuid.UUID) (progress.Stats, error)
	EditView(ctx context.Context, id uuid.UUID) (*services.OrderEditView, error)
	SearchOrders(ctx context.Context, text string) ([]services.OrderSummary, error)
	ExportOrders(ctx context.Context, filter repositories.OrderFilter) ([]byte, error)
}

// SchedulingService is the time slot and scheduling request API consumed by the handlers
type SchedulingService interface {
	TimeSlots(ctx context.Context, date time.Time, slotType models.SlotType) ([]scheduling.SlotView, error)
	CreateTimeSlot(ctx context.Context, input services.TimeSlotInput) (*models.TimeSlot, error)
	UpdateTimeSlot(ctx context.Context, id uuid.UUID, input services.TimeSlotInput) (*models.TimeSlot, error)
	CreateRequest(ctx context.Context, input services.RequestInput) (*models.SchedulingRequest, error)
	CreateCustomerRequest(ctx context.Context, identity auth.Identity, input services.RequestInput) (*models.SchedulingRequest, error)
	DecideRequest(ctx context.Context, id uuid.UUID, input services.DecisionInput, staff auth.Identity) (*models.SchedulingRequest, error)
	CancelRequest(ctx context.Context, id uuid.UUID, identity auth.Identity) (*models.SchedulingRequest, error)
	OrderRequests(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error)
	PendingRequests(ctx context.Context) ([]scheduling.TriagedRequest, error)
}

// RoutingService is the route planning and driver API consumed by the handlers
type RoutingService interface {
	EligibleOrders(ctx context.Context) ([]models.Order, error)
	CreateRoute(ctx context.Context, input services.RouteInput) (*services.RoutePlan, error)
	AutoRoute(ctx context.Context, input services.RouteInput) (*services.RoutePlan, error)
	ListRoutes(ctx context.Context, driverName string) ([]models.Route, error)
	GetRoute(ctx context.Context, id uuid.UUID) (*models.Route, error)
	DeleteRoute(ctx context.Context, id uuid.UUID) error
	StartRoute(ctx context.Context, id uuid.UUID) (*models.Route, error)
	CompleteStop(ctx context.Context, routeID, stopID uuid.UUID) (*models.RouteStop, error)
	UpdateDriverLocation(ctx context.Context, driverName string, input services.LocationInput) (*models.DriverLocation, error)
	DriverLocation(ctx context.Context, driverName string) (*models.DriverLocation, error)
	DriverRoute(ctx context.Context, driverName string) (*services.DriverRouteView, error)
}

// TrackingService reports delivery progress
type TrackingService interface {
	TrackOrder(ctx context.Context, orderID uuid.UUID) (*services.Tracking, error)
	TrackCustomerOrder(ctx context.Context, phone string, orderID uuid.UUID) (*services.Tracking, error)
}
