package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TimeSlotRepository provides access to bookable time slots
type TimeSlotRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewTimeSlotRepository creates a new time slot repository
func NewTimeSlotRepository(db *gorm.DB, readOnlyDB *gorm.DB) *TimeSlotRepository {
	return &TimeSlotRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a time slot
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	return translate(r.db.WithContext(ctx).Create(slot).Error, "failed to create time slot")
}

// Update saves every field of a time slot
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	res := r.db.WithContext(ctx).Model(slot).Select("*").Omit("created_at").Updates(slot)
	if res.Error != nil {
		return translate(res.Error, "failed to update time slot")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID gets a time slot
func (r *TimeSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.readOnlyDB.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get time slot")
	}
	return &slot, nil
}

// ListForDate returns the slots starting on the day of date with one of the given types,
// ordered by start time
func (r *TimeSlotRepository) ListForDate(ctx context.Context, date time.Time, types []models.SlotType) ([]models.TimeSlot, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	q := r.readOnlyDB.WithContext(ctx).Where("start_time >= ? AND start_time < ?", start, end)
	if len(types) > 0 {
		q = q.Where("slot_type IN ?", types)
	}

	var slots []models.TimeSlot
	if err := q.Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list time slots")
	}
	return slots, nil
}

// reserve takes one place in an active slot with spare capacity
func reserve(tx *gorm.DB, slotID uuid.UUID) error {
	res := tx.Model(&models.TimeSlot{}).
		Where("id = ? AND is_active = ? AND current_orders < max_orders", slotID, true).
		Update("current_orders", gorm.Expr("current_orders + 1"))
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to reserve time slot")
	}
	if res.RowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}
