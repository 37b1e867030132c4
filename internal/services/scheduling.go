package services

import (
	"context"
	"time"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/cache"
	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/scheduling"
	"example.com/backstage/services/laundry/internal/tracing"
	"example.com/backstage/services/laundry/internal/validation"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const pendingCacheTTL = 2 * time.Minute

// TimeSlotInput is the payload for creating or editing a time slot
type TimeSlotInput struct {
	StartTime   time.Time       `json:"start_time" validate:"required"`
	EndTime     time.Time       `json:"end_time" validate:"required"`
	MaxOrders   int             `json:"max_orders" validate:"gte=1"`
	IsActive    *bool           `json:"is_active"`
	SlotType    models.SlotType `json:"slot_type" validate:"required,oneof=Pickup Delivery Both"`
	Description string          `json:"description"`
}

// RequestInput is the payload for a new scheduling request
type RequestInput struct {
	OrderID           uuid.UUID          `json:"order_id" validate:"required"`
	RequestType       models.RequestType `json:"request_type" validate:"required,oneof=Pickup Delivery"`
	RequestedDateTime time.Time          `json:"requested_date_time" validate:"required"`
	TimeSlotID        *uuid.UUID         `json:"time_slot_id"`
	CustomerPhone     string             `json:"customer_phone" validate:"omitempty,phone"`
	CustomerName      string             `json:"customer_name"`
	CustomerNotes     string             `json:"customer_notes"`
}

// DecisionInput is the staff answer to a pending request
type DecisionInput struct {
	Approve             bool       `json:"approve"`
	AlternativeDateTime *time.Time `json:"alternative_date_time"`
	StaffNotes          string     `json:"staff_notes"`
}

// SchedulingService handles time slots and scheduling requests
type SchedulingService struct {
	requests  SchedulingRequestStore
	slots     TimeSlotStore
	orders    OrderStore
	cache     Cache
	publisher messaging.Publisher
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSchedulingService creates a new scheduling service
func NewSchedulingService(
	requests SchedulingRequestStore,
	slots TimeSlotStore,
	orders OrderStore,
	c Cache,
	publisher messaging.Publisher,
	tracer tracing.Tracer,
	m *metrics.Metrics,
) *SchedulingService {
	return &SchedulingService{
		requests:  requests,
		slots:     slots,
		orders:    orders,
		cache:     c,
		publisher: publisher,
		tracer:    tracer,
		metrics:   m,
		now:       time.Now,
	}
}

// TimeSlots lists the slots of a day that accept the given visit type
func (s *SchedulingService) TimeSlots(ctx context.Context, date time.Time, slotType models.SlotType) ([]scheduling.SlotView, error) {
	slots, err := s.slots.ListForDate(ctx, date, scheduling.SlotTypesFor(slotType))
	if err != nil {
		return nil, err
	}

	views := make([]scheduling.SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, scheduling.NewSlotView(slot))
	}
	return views, nil
}

// CreateTimeSlot adds a bookable window
func (s *SchedulingService) CreateTimeSlot(ctx context.Context, input TimeSlotInput) (*models.TimeSlot, error) {
	if err := validateSlot(input); err != nil {
		return nil, err
	}

	slot := &models.TimeSlot{
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		MaxOrders:   input.MaxOrders,
		IsActive:    input.IsActive == nil || *input.IsActive,
		SlotType:    input.SlotType,
		Description: input.Description,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	log.Info().Str("slot_id", slot.ID.String()).Str("time", slot.DisplayTime()).Msg("Time slot created")
	return slot, nil
}

// UpdateTimeSlot edits a slot. Its booked count is kept and may not exceed the new maximum.
func (s *SchedulingService) UpdateTimeSlot(ctx context.Context, id uuid.UUID, input TimeSlotInput) (*models.TimeSlot, error) {
	if err := validateSlot(input); err != nil {
		return nil, err
	}

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.MaxOrders < slot.CurrentOrders {
		return nil, invalid("max orders %d is below the %d orders already booked", input.MaxOrders, slot.CurrentOrders)
	}

	slot.StartTime = input.StartTime
	slot.EndTime = input.EndTime
	slot.MaxOrders = input.MaxOrders
	if input.IsActive != nil {
		slot.IsActive = *input.IsActive
	}
	slot.SlotType = input.SlotType
	slot.Description = input.Description

	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func validateSlot(input TimeSlotInput) error {
	if err := validation.ValidateStruct(input); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if !input.EndTime.After(input.StartTime) {
		return invalid("end time must be after start time")
	}
	return nil
}

// CreateRequest records a customer ask for a pickup or delivery time
func (s *SchedulingService) CreateRequest(ctx context.Context, input RequestInput) (*models.SchedulingRequest, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, invalid("order %s is cancelled", order.OrderNumber)
	}

	if input.TimeSlotID != nil {
		slot, err := s.slots.GetByID(ctx, *input.TimeSlotID)
		if err != nil {
			return nil, err
		}
		if !slot.IsAvailable() {
			return nil, ErrSlotFull
		}
		if !slotAccepts(slot.SlotType, input.RequestType) {
			return nil, invalid("a %s slot does not accept %s requests", slot.SlotType, input.RequestType)
		}
	}

	req := &models.SchedulingRequest{
		OrderID:           order.ID,
		RequestType:       input.RequestType,
		RequestedDateTime: input.RequestedDateTime,
		Status:            models.RequestStatusPending,
		CustomerPhone:     validation.NormalizePhone(input.CustomerPhone),
		CustomerName:      input.CustomerName,
		CustomerNotes:     input.CustomerNotes,
		TimeSlotID:        input.TimeSlotID,
	}
	if req.CustomerPhone == "" {
		req.CustomerPhone = order.TelephoneNumber
	}
	if req.CustomerName == "" {
		req.CustomerName = order.CustomerName
	}

	err = s.requests.Create(ctx, req)
	s.metrics.Observe("create_scheduling_request", err)
	if err != nil {
		return nil, err
	}

	s.invalidatePending(ctx)
	publish(ctx, s.publisher, messaging.SchedulingRequested, req.ID,
		messaging.SchedulingPayload{OrderID: order.ID, Status: string(req.Status)})

	log.Info().
		Str("request_id", req.ID.String()).
		Str("order_id", order.ID.String()).
		Time("requested_at", req.RequestedDateTime).
		Msg("Scheduling request created")
	return req, nil
}

// CreateCustomerRequest records a request for an order owned by the signed in customer
func (s *SchedulingService) CreateCustomerRequest(ctx context.Context, identity auth.Identity, input RequestInput) (*models.SchedulingRequest, error) {
	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.TelephoneNumber != validation.NormalizePhone(identity.PhoneNumber) {
		return nil, ErrNotFound
	}

	input.CustomerPhone = identity.PhoneNumber
	if input.CustomerName == "" {
		input.CustomerName = identity.Name
	}
	return s.CreateRequest(ctx, input)
}

func slotAccepts(slotType models.SlotType, requestType models.RequestType) bool {
	return slotType == models.SlotTypeBoth || string(slotType) == string(requestType)
}

// DecideRequest confirms or rejects a pending request. Confirming books a place in the
// request's slot; rejecting returns the order to unscheduled unless another request still holds it.
func (s *SchedulingService) DecideRequest(ctx context.Context, id uuid.UUID, input DecisionInput, staff auth.Identity) (*models.SchedulingRequest, error) {
	txn := s.tracer.StartTransaction("decide-scheduling-request")
	defer s.tracer.EndTransaction(txn)

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	req.StaffNotes = input.StaffNotes
	if input.Approve {
		now := s.now()
		req.Status = models.RequestStatusConfirmed
		req.ConfirmedBy = staff.Name
		if req.ConfirmedBy == "" {
			req.ConfirmedBy = staff.PhoneNumber
		}
		req.ConfirmedAt = &now
		if input.AlternativeDateTime != nil {
			req.RequestedDateTime = *input.AlternativeDateTime
		}
	} else {
		req.Status = models.RequestStatusRejected
	}

	err = s.requests.Decide(ctx, req)
	s.metrics.Observe("decide_scheduling_request", err)
	switch {
	case errors.Is(err, repositories.ErrCapacityExceeded):
		return nil, ErrSlotFull
	case errors.Is(err, repositories.ErrStaleState):
		return nil, ErrRequestNotPending
	case err != nil:
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.invalidatePending(ctx)
	publish(ctx, s.publisher, messaging.SchedulingConfirmed, req.ID,
		messaging.SchedulingPayload{OrderID: req.OrderID, Status: string(req.Status)})

	log.Info().
		Str("request_id", req.ID.String()).
		Str("status", string(req.Status)).
		Str("staff", req.ConfirmedBy).
		Msg("Scheduling request decided")
	return req, nil
}

// CancelRequest withdraws a pending request of the signed in customer
func (s *SchedulingService) CancelRequest(ctx context.Context, id uuid.UUID, identity auth.Identity) (*models.SchedulingRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerPhone != validation.NormalizePhone(identity.PhoneNumber) {
		return nil, ErrNotFound
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	req.Status = models.RequestStatusCancelled
	if err := s.requests.Decide(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrRequestNotPending
		}
		return nil, err
	}

	s.invalidatePending(ctx)
	return req, nil
}

// OrderRequests lists the requests made for an order
func (s *SchedulingService) OrderRequests(ctx context.Context, orderID uuid.UUID) ([]models.SchedulingRequest, error) {
	return s.requests.ListByOrder(ctx, orderID)
}

// PendingRequests returns pending requests sorted by urgency. The list is read from the cache
// refreshed by the worker when present; urgency is always computed against the current time.
func (s *SchedulingService) PendingRequests(ctx context.Context) ([]scheduling.TriagedRequest, error) {
	var pending []models.SchedulingRequest
	if s.cache != nil && s.cache.Enabled() {
		err := s.cache.Get(ctx, cache.PendingRequestsCacheKey, &pending)
		if err == nil {
			return scheduling.SortByUrgency(pending, s.now()), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Failed to read pending requests from cache")
		}
	}

	pending, err := s.LoadPending(ctx)
	if err != nil {
		return nil, err
	}
	s.StorePending(ctx, pending)
	return scheduling.SortByUrgency(pending, s.now()), nil
}

// LoadPending reads the pending requests from the database
func (s *SchedulingService) LoadPending(ctx context.Context) ([]models.SchedulingRequest, error) {
	pending, err := s.requests.ListByStatus(ctx, models.RequestStatusPending)
	if err != nil {
		return nil, err
	}
	s.metrics.SetGauge("pending_scheduling_requests", int64(len(pending)))
	return pending, nil
}

// StorePending writes the pending requests to the cache
func (s *SchedulingService) StorePending(ctx context.Context, pending []models.SchedulingRequest) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if pending == nil {
		pending = []models.SchedulingRequest{}
	}
	if err := s.cache.Set(ctx, cache.PendingRequestsCacheKey, pending, pendingCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache pending requests")
	}
}

func (s *SchedulingService) invalidatePending(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Delete(ctx, cache.PendingRequestsCacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate pending requests cache")
	}
}
