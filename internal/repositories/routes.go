package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteRepository provides access to driver routes and their stops
type RouteRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db *gorm.DB, readOnlyDB *gorm.DB) *RouteRepository {
	return &RouteRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

func preloadStops(db *gorm.DB) *gorm.DB {
	return db.Preload("Stops", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Create inserts a route with its stops. An order already on another route yields ErrDuplicateKey.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	return translate(r.db.WithContext(ctx).Create(route).Error, "failed to create route")
}

// GetByID gets a route with its stops in order
func (r *RouteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	var route models.Route
	if err := preloadStops(r.db.WithContext(ctx)).First(&route, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get route")
	}
	return &route, nil
}

// List returns routes, newest first, optionally for one driver
func (r *RouteRepository) List(ctx context.Context, driverName string) ([]models.Route, error) {
	q := preloadStops(r.readOnlyDB.WithContext(ctx))
	if driverName != "" {
		q = q.Where("driver_name = ?", driverName)
	}

	var routes []models.Route
	if err := q.Order("created_at DESC").Find(&routes).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list routes")
	}
	return routes, nil
}

// GetByOrderID gets the route that has a stop for the order
func (r *RouteRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Route, error) {
	var stop models.RouteStop
	if err := r.readOnlyDB.WithContext(ctx).First(&stop, "order_id = ?", orderID).Error; err != nil {
		return nil, translate(err, "failed to get route stop for order")
	}
	return r.GetByID(ctx, stop.RouteID)
}

// GetActiveForDriver gets the newest route of the driver that still has an open stop
func (r *RouteRepository) GetActiveForDriver(ctx context.Context, driverName string) (*models.Route, error) {
	var route models.Route
	err := preloadStops(r.readOnlyDB.WithContext(ctx)).
		Where("driver_name = ?", driverName).
		Where("EXISTS (?)", r.readOnlyDB.Model(&models.RouteStop{}).
			Select("1").
			Where("route_stops.route_id = routes.id AND route_stops.is_completed = ?", false)).
		Order("created_at DESC").
		First(&route).Error
	if err != nil {
		return nil, translate(err, "failed to get active route for driver")
	}
	return &route, nil
}

// Delete removes a route that has not been started, together with its stops
func (r *RouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var route models.Route
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&route, "id = ?", id).Error; err != nil {
			return translate(err, "failed to lock route")
		}
		if route.IsStarted {
			return ErrStaleState
		}

		if err := tx.Where("route_id = ?", id).Delete(&models.RouteStop{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete route stops")
		}
		if err := tx.Delete(&models.Route{}, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "failed to delete route")
		}
		return nil
	})
}

// Start marks a route as started and moves its orders to in progress
func (r *RouteRepository) Start(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Route{}).
			Where("id = ? AND is_started = ?", id, false).
			Updates(map[string]interface{}{"is_started": true, "started_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to start route")
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		err := tx.Model(&models.Order{}).
			Where("id IN (?)", tx.Model(&models.RouteStop{}).Select("order_id").Where("route_id = ? AND is_completed = ?", id, false)).
			Update("scheduling_status", models.SchedulingStatusInProgress).Error
		return errors.Wrap(err, "failed to update order scheduling status")
	})
}

// CompleteStop marks a stop as visited and its order as completed
func (r *RouteRepository) CompleteStop(ctx context.Context, routeID, stopID uuid.UUID, now time.Time) (*models.RouteStop, error) {
	var stop models.RouteStop
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&stop, "id = ? AND route_id = ?", stopID, routeID).Error; err != nil {
			return translate(err, "failed to get route stop")
		}
		if stop.IsCompleted {
			return nil
		}

		stop.IsCompleted = true
		stop.CompletedAt = &now
		if err := tx.Model(&stop).Updates(map[string]interface{}{"is_completed": true, "completed_at": now}).Error; err != nil {
			return errors.Wrap(err, "failed to complete route stop")
		}
		return setOrderSchedulingStatus(tx, stop.OrderID, models.SchedulingStatusCompleted)
	})
	if err != nil {
		return nil, err
	}
	return &stop, nil
}
