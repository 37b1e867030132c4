package repositories

import (
	"context"

	"example.com/backstage/services/laundry/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulingRequestRepository provides access to scheduling requests
type SchedulingRequestRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewSchedulingRequestRepository creates a new scheduling request repository
func NewSchedulingRequestRepository(db *gorm.DB, readOnlyDB *gorm.DB) *SchedulingRequestRepository {
	return &SchedulingRequestRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a request and marks its order as requested unless the order is already
// confirmed or on a started route
func (r *SchedulingRequestRepository) Create(ctx context.Context, req *models.SchedulingRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("TimeSlot").Create(req).Error; err != nil {
			return translate(err, "failed to create scheduling request")
		}
		return moveOrderSchedulingStatus(tx, req.OrderID, requestCreated)
	})
}

// GetByID gets a request with its time slot
func (r *SchedulingRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SchedulingRequest, error) {
	var req models.SchedulingRequest
	if err := r.db.WithContext(ctx).Preload("TimeSlot").First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to get scheduling request")
	}
	return &req, nil
}

// ListByStatus returns requests in the given status, oldest first
func (r *SchedulingRequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SchedulingRequest, error) {
	var reqs []models.SchedulingRequest
	err := r.readOnlyDB.WithContext(ctx).Preload("TimeSlot").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scheduling requests")
	}
	return reqs, nil
}

// ListByOrder returns every request made for an order, newest first
func (r *SchedulingRequestRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error) {
	var reqs []models.SchedulingRequest
	err := r.readOnlyDB.WithContext(ctx).Preload("TimeSlot").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scheduling requests for order")
	}
	return reqs, nil
}

// Decide moves a pending request to req.Status: confirmed, rejected or cancelled. Confirming with
// a slot reserves a place in it; the order scheduling status follows in the same transaction. A
// request that is no longer pending yields ErrStaleState.
func (r *SchedulingRequestRepository) Decide(ctx context.Context, req *models.SchedulingRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Status == models.RequestStatusConfirmed && req.TimeSlotID != nil {
			if err := reserve(tx, *req.TimeSlotID); err != nil {
				return err
			}
		}

		res := tx.Model(&models.SchedulingRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":              req.Status,
				"requested_date_time": req.RequestedDateTime,
				"staff_notes":         req.StaffNotes,
				"confirmed_by":        req.ConfirmedBy,
				"confirmed_at":        req.ConfirmedAt,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to update scheduling request")
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		change := requestClosed
		if req.Status == models.RequestStatusConfirmed {
			change = requestConfirmed
		}
		return moveOrderSchedulingStatus(tx, req.OrderID, change)
	})
}

type requestChange int

const (
	requestCreated requestChange = iota
	requestConfirmed
	requestClosed
)

// nextSchedulingStatus returns the order scheduling status after one of its requests changed.
// confirmed and pending count the order's other requests in those states. An order on a started
// route keeps its status, and closing a request only releases an order that was waiting on requests.
func nextSchedulingStatus(current models.SchedulingStatus, change requestChange, confirmed, pending int64) models.SchedulingStatus {
	if current == models.SchedulingStatusInProgress {
		return current
	}

	switch change {
	case requestCreated:
		if current == models.SchedulingStatusConfirmed {
			return current
		}
		return models.SchedulingStatusRequested
	case requestConfirmed:
		return models.SchedulingStatusConfirmed
	default:
		if current != models.SchedulingStatusRequested {
			return current
		}
		switch {
		case confirmed > 0:
			return models.SchedulingStatusConfirmed
		case pending > 0:
			return models.SchedulingStatusRequested
		default:
			return models.SchedulingStatusNone
		}
	}
}

func moveOrderSchedulingStatus(tx *gorm.DB, orderID uuid.UUID, change requestChange) error {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "scheduling_status").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return translate(err, "failed to lock order")
	}

	var confirmed, pending int64
	if change == requestClosed {
		counts := []struct {
			Status models.RequestStatus
			N      int64
		}{}
		err := tx.Model(&models.SchedulingRequest{}).
			Select("status, count(*) AS n").
			Where("order_id = ? AND status IN ?", orderID, []models.RequestStatus{models.RequestStatusConfirmed, models.RequestStatusPending}).
			Group("status").
			Scan(&counts).Error
		if err != nil {
			return errors.Wrap(err, "failed to count open scheduling requests")
		}
		for _, c := range counts {
			if c.Status == models.RequestStatusConfirmed {
				confirmed = c.N
			} else {
				pending = c.N
			}
		}
	}

	next := nextSchedulingStatus(order.SchedulingStatus, change, confirmed, pending)
	if next == order.SchedulingStatus {
		return nil
	}
	err = tx.Model(&models.Order{}).Where("id = ?", orderID).Update("scheduling_status", next).Error
	return errors.Wrap(err, "failed to update order scheduling status")
}

func setOrderSchedulingStatus(tx *gorm.DB, orderID uuid.UUID, status models.SchedulingStatus) error {
	res := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("scheduling_status", status)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to update order scheduling status")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
