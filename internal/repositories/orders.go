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

// OrderFilter narrows order listings. Zero fields are ignored.
type OrderFilter struct {
	Status      models.OrderStatus
	ServiceType models.ServiceType
	Phone       string
	From        *time.Time
	To          *time.Time
	Query       string
	Limit       int
	Offset      int
}

// OrderRepository provides access to orders and their items
type OrderRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Create inserts an order with its items
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	return translate(err, "failed to create order")
}

// GetByID gets an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := preloadItems(r.readOnlyDB.WithContext(ctx)).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "failed to get order by ID")
	}
	return &order, nil
}

// List returns orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := preloadItems(r.readOnlyDB.WithContext(ctx)).Model(&models.Order{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ServiceType != "" {
		q = q.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Phone != "" {
		q = q.Where("telephone_number = ?", filter.Phone)
	}
	if filter.From != nil {
		q = q.Where("received_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("received_date < ?", *filter.To)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("order_number ILIKE ? OR telephone_number ILIKE ? OR customer_name ILIKE ? OR delivery_address ILIKE ?",
			like, like, like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var orders []models.Order
	if err := q.Order("received_date DESC").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// ListByIDs returns the orders with the given ids, in no particular order
func (r *OrderRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var orders []models.Order
	err := preloadItems(r.readOnlyDB.WithContext(ctx)).Where("id IN ?", ids).Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders by ID")
	}
	return orders, nil
}

// ListEligibleForRouting returns confirmed pickup/delivery orders that are not on any route
func (r *OrderRepository) ListEligibleForRouting(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := preloadItems(r.readOnlyDB.WithContext(ctx)).
		Where("service_type = ?", models.ServiceTypePickupDelivery).
		Where("status IN ?", []models.OrderStatus{models.OrderStatusPending, models.OrderStatusReady}).
		Where("scheduling_status = ?", models.SchedulingStatusConfirmed).
		Where("id NOT IN (?)", r.readOnlyDB.Model(&models.RouteStop{}).Select("order_id")).
		Order("received_date ASC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders eligible for routing")
	}
	return orders, nil
}

// Update saves the order fields and replaces its items
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(order).Omit(clause.Associations, "created_at").Select("*").Updates(order)
		if res.Error != nil {
			return translate(res.Error, "failed to update order")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Item{}).Error; err != nil {
			return errors.Wrap(err, "failed to remove order items")
		}
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
			order.Items[i].OrderID = order.ID
		}
		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return errors.Wrap(err, "failed to create order items")
			}
		}
		return nil
	})
}

// UpdateStatuses sets the status of every listed order, or none of them when any is missing
func (r *OrderRepository) UpdateStatuses(ctx context.Context, ids []uuid.UUID, status models.OrderStatus, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": status}
		if status == models.OrderStatusCompleted {
			updates["completed_date"] = now
		} else {
			updates["completed_date"] = nil
		}

		res := tx.Model(&models.Order{}).Where("id IN ?", ids).Updates(updates)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to update order statuses")
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrNotFound
		}
		return nil
	})
}

// Delete soft-deletes an order and removes its route stop. An order whose stop is still open on a
// started route yields ErrOrderInTransit.
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stops []models.RouteStop
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", id).
			Find(&stops).Error
		if err != nil {
			return errors.Wrap(err, "failed to lock route stop")
		}

		for _, stop := range stops {
			var route models.Route
			if err := tx.First(&route, "id = ?", stop.RouteID).Error; err != nil {
				return translate(err, "failed to get route")
			}
			if route.IsStarted && !stop.IsCompleted {
				return ErrOrderInTransit
			}
			if err := tx.Delete(&models.RouteStop{}, "id = ?", stop.ID).Error; err != nil {
				return errors.Wrap(err, "failed to delete route stop")
			}
		}

		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to delete order")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountReceivedOn counts orders received on the day of t, deleted ones included so numbers are
// never reused
func (r *OrderRepository) CountReceivedOn(ctx context.Context, t time.Time) (int64, error) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Order{}).
		Where("received_date >= ? AND received_date < ?", start, end).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count orders")
	}
	return count, nil
}

// ForEachBatch walks every live order in batches of size
func (r *OrderRepository) ForEachBatch(ctx context.Context, size int, fn func(orders []models.Order) error) error {
	var batch []models.Order
	res := preloadItems(r.readOnlyDB.WithContext(ctx)).FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return errors.Wrap(res.Error, "failed to walk orders")
}
