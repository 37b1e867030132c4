package repositories

import (
	"context"

	"example.com/backstage/services/laundry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DriverLocationRepository stores the last known position of each driver
type DriverLocationRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewDriverLocationRepository creates a new driver location repository
func NewDriverLocationRepository(db *gorm.DB, readOnlyDB *gorm.DB) *DriverLocationRepository {
	return &DriverLocationRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Upsert records a driver position
func (r *DriverLocationRepository) Upsert(ctx context.Context, location *models.DriverLocation) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "driver_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "updated_at"}),
	}).Create(location).Error
	return translate(err, "failed to upsert driver location")
}

// Get returns the last position of a driver
func (r *DriverLocationRepository) Get(ctx context.Context, driverName string) (*models.DriverLocation, error) {
	var location models.DriverLocation
	if err := r.db.WithContext(ctx).First(&location, "driver_name = ?", driverName).Error; err != nil {
		return nil, translate(err, "failed to get driver location")
	}
	return &location, nil
}
