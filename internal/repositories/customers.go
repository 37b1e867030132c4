package repositories

import (
	"context"

	"example.com/backstage/services/laundry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository provides access to customers
type CustomerRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CustomerRepository {
	return &CustomerRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Upsert creates the customer or refreshes name and address of the one with the same telephone
// number. The stored row, with its id, is written back into customer.
func (r *CustomerRepository) Upsert(ctx context.Context, customer *models.Customer) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telephone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "updated_at"}),
	}).Create(customer).Error
	if err != nil {
		return translate(err, "failed to upsert customer")
	}

	return translate(r.db.WithContext(ctx).Where("telephone_number = ?", customer.TelephoneNumber).First(customer).Error,
		"failed to reload customer")
}

// GetByPhone gets a customer by telephone number
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.readOnlyDB.WithContext(ctx).Where("telephone_number = ?", phone).First(&customer).Error; err != nil {
		return nil, translate(err, "failed to get customer by phone")
	}
	return &customer, nil
}
