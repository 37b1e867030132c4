package services

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/progress"
	"example.com/backstage/services/laundry/internal/repositories"

	"github.com/google/uuid"
)

// OrderStore persists orders
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error)
	ListEligibleForRouting(ctx context.Context) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	UpdateStatuses(ctx context.Context, ids []uuid.UUID, status models.OrderStatus, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountReceivedOn(ctx context.Context, t time.Time) (int64, error)
	ForEachBatch(ctx context.Context, size int, fn func(orders []models.Order) error) error
}

// CustomerStore persists customers
type CustomerStore interface {
	Upsert(ctx context.Context, customer *models.Customer) error
}

// TimeSlotStore persists time slots
type TimeSlotStore interface {
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeSlot, error)
	ListForDate(ctx context.Context, date time.Time, types []models.SlotType) ([]models.TimeSlot, error)
}

// SchedulingRequestStore persists scheduling requests
type SchedulingRequestStore interface {
	Create(ctx context.Context, req *models.SchedulingRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SchedulingRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SchedulingRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error)
	Decide(ctx context.Context, req *models.SchedulingRequest) error
}

// RouteStore persists routes
type RouteStore interface {
	Create(ctx context.Context, route *models.Route) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	List(ctx context.Context, driverName string) ([]models.Route, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Route, error)
	GetActiveForDriver(ctx context.Context, driverName string) (*models.Route, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Start(ctx context.Context, id uuid.UUID, now time.Time) error
	CompleteStop(ctx context.Context, routeID, stopID uuid.UUID, now time.Time) (*models.RouteStop, error)
}

// DriverLocationStore persists driver positions
type DriverLocationStore interface {
	Upsert(ctx context.Context, location *models.DriverLocation) error
	Get(ctx context.Context, driverName string) (*models.DriverLocation, error)
}

// ProgressTracker records per-item completion flags
type ProgressTracker interface {
	UpdateItemCompletion(ctx context.Context, orderID string, itemIndex int, completed bool)
	GetCompletionStats(ctx context.Context, orderID string, totalItems int) progress.Stats
	GetCompletionStatsBatch(ctx context.Context, totals map[string]int) map[string]progress.Stats
	ClearOrderProgress(ctx context.Context, orderID string)
}

// Cache is a JSON key-value cache
type Cache interface {
	Enabled() bool
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// OrderIndex is the order search index
type OrderIndex interface {
	IndexOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	SearchOrders(ctx context.Context, text string, limit int) ([]uuid.UUID, error)
}

// DriverLocator returns the latest known driver position
type DriverLocator interface {
	DriverLocation(ctx context.Context, driverName string) (*models.DriverLocation, error)
}
