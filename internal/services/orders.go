package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/address"
	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/progress"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/tracing"
	"example.com/backstage/services/laundry/internal/validation"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	orderNumberAttempts = 3
	searchLimit         = 50
)

// ItemInput describes one article of an order
type ItemInput struct {
	Type   models.ItemType `json:"type" validate:"required"`
	Length *float64        `json:"length" validate:"omitempty,gt=0"`
	Width  *float64        `json:"width" validate:"omitempty,gt=0"`
	Price  *float64        `json:"price" validate:"omitempty,gte=0"`
}

// OrderInput is the payload for creating or editing an order
type OrderInput struct {
	CustomerName    string             `json:"customer_name"`
	TelephoneNumber string             `json:"telephone_number" validate:"required,phone"`
	ServiceType     models.ServiceType `json:"service_type" validate:"required,oneof=Office PickupDelivery"`
	DeliveryAddress string             `json:"delivery_address"`
	Street          string             `json:"street"`
	StreetNumber    string             `json:"street_number"`
	City            string             `json:"city"`
	ApartmentNumber string             `json:"apartment_number"`
	Latitude        *float64           `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64           `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Observation     string             `json:"observation"`
	Status          models.OrderStatus `json:"status" validate:"omitempty,oneof=Pending Ready Completed Cancelled"`
	ReceivedDate    *time.Time         `json:"received_date"`
	Items           []ItemInput        `json:"items" validate:"required,min=1,dive"`
}

// OrderSummary is an order with its item completion stats
type OrderSummary struct {
	models.Order
	Progress   progress.Stats `json:"progress"`
	TotalPrice float64        `json:"total_price"`
}

// OrderEditView is an order with its address split into components for editing
type OrderEditView struct {
	Order   *models.Order      `json:"order"`
	Address address.Components `json:"address"`
}

// OrderService handles order business logic
type OrderService struct {
	orders    OrderStore
	customers CustomerStore
	progress  ProgressTracker
	index     OrderIndex
	publisher messaging.Publisher
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	pricing   config.PricingConfig
	now       func() time.Time
}

// NewOrderService creates a new order service. index may be nil when search is disabled.
func NewOrderService(
	orders OrderStore,
	customers CustomerStore,
	tracker ProgressTracker,
	index OrderIndex,
	publisher messaging.Publisher,
	tracer tracing.Tracer,
	m *metrics.Metrics,
	pricing config.PricingConfig,
) *OrderService {
	return &OrderService{
		orders:    orders,
		customers: customers,
		progress:  tracker,
		index:     index,
		publisher: publisher,
		tracer:    tracer,
		metrics:   m,
		pricing:   pricing,
		now:       time.Now,
	}
}

// CreateOrder validates and stores a new order
func (s *OrderService) CreateOrder(ctx context.Context, input OrderInput) (*models.Order, error) {
	txn := s.tracer.StartTransaction("create-order")
	defer s.tracer.EndTransaction(txn)
	defer s.metrics.Time("create_order")()

	if err := s.validate(input); err != nil {
		return nil, err
	}

	order := s.buildOrder(input)
	order.ReceivedDate = s.now()
	if input.ReceivedDate != nil {
		order.ReceivedDate = *input.ReceivedDate
	}
	order.SchedulingStatus = models.SchedulingStatusNone
	s.applyStatus(order, input.Status)
	s.linkCustomer(ctx, order)

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		if order.OrderNumber, err = s.nextOrderNumber(ctx, order.ReceivedDate, attempt); err != nil {
			break
		}
		if err = s.orders.Create(ctx, order); !errors.Is(err, repositories.ErrDuplicateKey) {
			break
		}
		order.ID = uuid.Nil
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
		}
	}
	s.metrics.Observe("create_order", err)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create order")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("items", len(order.Items)).
		Msg("Order created")

	s.metrics.IncrementCounter("orders_created")
	publish(ctx, s.publisher, messaging.OrderCreated, order.ID, nil)
	return order, nil
}

// CreateCustomerOrder creates a pending order for the signed in customer
func (s *OrderService) CreateCustomerOrder(ctx context.Context, identity auth.Identity, input OrderInput) (*models.Order, error) {
	input.TelephoneNumber = identity.PhoneNumber
	if input.CustomerName == "" {
		input.CustomerName = identity.Name
	}
	input.Status = models.OrderStatusPending
	input.ReceivedDate = nil
	return s.CreateOrder(ctx, input)
}

// GetOrder gets an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetCustomerOrder gets an order owned by the given telephone number. Orders of other
// customers are reported as missing.
func (s *OrderService) GetCustomerOrder(ctx context.Context, phone string, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.TelephoneNumber != validation.NormalizePhone(phone) {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListOrders lists orders with their completion stats
func (s *OrderService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]OrderSummary, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, orders), nil
}

// ListCustomerOrders lists the orders of one telephone number
func (s *OrderService) ListCustomerOrders(ctx context.Context, phone string) ([]OrderSummary, error) {
	return s.ListOrders(ctx, repositories.OrderFilter{Phone: validation.NormalizePhone(phone)})
}

func (s *OrderService) summarize(ctx context.Context, orders []models.Order) []OrderSummary {
	totals := make(map[string]int, len(orders))
	for _, o := range orders {
		totals[o.ID.String()] = len(o.Items)
	}
	stats := s.progress.GetCompletionStatsBatch(ctx, totals)

	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, OrderSummary{
			Order:      o,
			Progress:   stats[o.ID.String()],
			TotalPrice: o.TotalPrice(),
		})
	}
	return summaries
}

// UpdateOrder replaces the editable fields and the items of an order. Item progress is kept;
// flags past the new item count are ignored when stats are read.
func (s *OrderService) UpdateOrder(ctx context.Context, id uuid.UUID, input OrderInput) (*models.Order, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(input)
	order.ID = existing.ID
	order.CreatedAt = existing.CreatedAt
	order.OrderNumber = existing.OrderNumber
	order.SchedulingStatus = existing.SchedulingStatus
	order.ReceivedDate = existing.ReceivedDate
	if input.ReceivedDate != nil {
		order.ReceivedDate = *input.ReceivedDate
	}
	order.CompletedDate = existing.CompletedDate
	order.CustomerID = existing.CustomerID
	order.Status = existing.Status
	if input.Status != "" && input.Status != existing.Status {
		s.applyStatus(order, input.Status)
	}
	s.linkCustomer(ctx, order)

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, messaging.OrderUpdated, order.ID, nil)
	return order, nil
}

// UpdateStatus changes the status of one order
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return s.BulkUpdateStatus(ctx, []uuid.UUID{id}, status)
}

// BulkUpdateStatus changes the status of every listed order, or of none when one is missing
func (s *OrderService) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status models.OrderStatus) error {
	if !status.Valid() {
		return invalid("unknown order status %q", status)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return invalid("no orders given")
	}

	err := s.orders.UpdateStatuses(ctx, ids, status, s.now())
	s.metrics.Observe("update_order_status", err)
	if err != nil {
		return err
	}

	for _, id := range ids {
		publish(ctx, s.publisher, messaging.OrderStatusChanged, id, map[string]string{"status": string(status)})
	}
	log.Info().Int("orders", len(ids)).Str("status", string(status)).Msg("Order status updated")
	return nil
}

// DeleteOrder removes an order together with its item progress and route stop. An order a
// driver is on the way to cannot be deleted.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrOrderInTransit) {
			return ErrOrderOnRoute
		}
		return err
	}

	s.progress.ClearOrderProgress(ctx, id.String())
	publish(ctx, s.publisher, messaging.OrderDeleted, id, nil)

	log.Info().Str("order_id", id.String()).Msg("Order deleted")
	return nil
}

// SetItemProgress marks one item of an order as done or not done
func (s *OrderService) SetItemProgress(ctx context.Context, id uuid.UUID, itemIndex int, completed bool) (progress.Stats, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return progress.Stats{}, err
	}
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return progress.Stats{}, invalid("item index %d out of range, order has %d items", itemIndex, len(order.Items))
	}

	s.progress.UpdateItemCompletion(ctx, id.String(), itemIndex, completed)
	return s.progress.GetCompletionStats(ctx, id.String(), len(order.Items)), nil
}

// GetProgress returns the completion stats of an order
func (s *OrderService) GetProgress(ctx context.Context, id uuid.UUID) (progress.Stats, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return progress.Stats{}, err
	}
	return s.progress.GetCompletionStats(ctx, id.String(), len(order.Items)), nil
}

// EditView returns an order with its address components. Orders stored with only a free-text
// address get components parsed from it.
func (s *OrderService) EditView(ctx context.Context, id uuid.UUID) (*OrderEditView, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	components := address.Components{
		Street:          order.Street,
		StreetNumber:    order.StreetNumber,
		City:            order.City,
		ApartmentNumber: order.ApartmentNumber,
	}
	if components.IsZero() && order.DeliveryAddress != "" {
		components = address.Parse(order.DeliveryAddress)
	}

	return &OrderEditView{Order: order, Address: components}, nil
}

// SearchOrders finds orders by free text, through the search index when available and the
// database otherwise
func (s *OrderService) SearchOrders(ctx context.Context, text string) ([]OrderSummary, error) {
	if text == "" {
		return nil, invalid("search text is required")
	}

	if s.index != nil {
		orders, err := s.searchIndex(ctx, text)
		if err == nil {
			return s.summarize(ctx, orders), nil
		}
		log.Warn().Err(err).Msg("Search index unavailable, falling back to database")
	}

	return s.ListOrders(ctx, repositories.OrderFilter{Query: text, Limit: searchLimit})
}

func (s *OrderService) searchIndex(ctx context.Context, text string) ([]models.Order, error) {
	ids, err := s.index.SearchOrders(ctx, text, searchLimit)
	if err != nil {
		return nil, err
	}

	found, err := s.orders.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Order, len(found))
	for _, o := range found {
		byID[o.ID] = o
	}
	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *OrderService) validate(input OrderInput) error {
	if err := validation.ValidateStruct(input); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	for i, item := range input.Items {
		if item.Type == models.ItemTypeCarpet && (item.Length == nil || item.Width == nil) {
			return invalid("item %d: carpets need length and width", i)
		}
	}

	if input.ServiceType == models.ServiceTypePickupDelivery &&
		input.DeliveryAddress == "" && input.Street == "" {
		return invalid("pickup and delivery orders need an address")
	}

	return nil
}

func (s *OrderService) buildOrder(input OrderInput) *models.Order {
	components := address.Components{
		Street:          input.Street,
		StreetNumber:    input.StreetNumber,
		City:            input.City,
		ApartmentNumber: input.ApartmentNumber,
	}
	deliveryAddress := input.DeliveryAddress
	switch {
	case deliveryAddress == "" && !components.IsZero():
		deliveryAddress = address.Format(components)
	case deliveryAddress != "" && components.IsZero():
		components = address.Parse(deliveryAddress)
	}

	order := &models.Order{
		CustomerName:    input.CustomerName,
		TelephoneNumber: validation.NormalizePhone(input.TelephoneNumber),
		ServiceType:     input.ServiceType,
		DeliveryAddress: deliveryAddress,
		Street:          components.Street,
		StreetNumber:    components.StreetNumber,
		City:            components.City,
		ApartmentNumber: components.ApartmentNumber,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		Observation:     input.Observation,
		Items:           make([]models.Item, 0, len(input.Items)),
	}

	for i, in := range input.Items {
		item := models.Item{Position: i, Type: in.Type}
		if in.Type == models.ItemTypeCarpet {
			item.Length = in.Length
			item.Width = in.Width
		}
		item.Price = s.price(item, in.Price)
		order.Items = append(order.Items, item)
	}

	return order
}

// price returns the explicit price when given, otherwise the configured tariff
func (s *OrderService) price(item models.Item, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	switch item.Type {
	case models.ItemTypeCarpet:
		return math.Round(item.Area()*s.pricing.CarpetPerSquareMeter*100) / 100
	case models.ItemTypeBlanket:
		return s.pricing.Blanket
	default:
		return s.pricing.Default
	}
}

func (s *OrderService) applyStatus(order *models.Order, status models.OrderStatus) {
	if status == "" {
		status = models.OrderStatusPending
	}
	order.Status = status
	if status == models.OrderStatusCompleted {
		now := s.now()
		order.CompletedDate = &now
	} else {
		order.CompletedDate = nil
	}
}

// linkCustomer attaches the order to the customer with the same telephone number, creating it
// when needed. Failures leave the order unlinked.
func (s *OrderService) linkCustomer(ctx context.Context, order *models.Order) {
	if s.customers == nil {
		return
	}

	customer := &models.Customer{
		Name:            order.CustomerName,
		TelephoneNumber: order.TelephoneNumber,
		Address:         order.DeliveryAddress,
	}
	if err := s.customers.Upsert(ctx, customer); err != nil {
		log.Warn().Err(err).Str("phone", order.TelephoneNumber).Msg("Failed to upsert customer")
		return
	}
	order.CustomerID = &customer.ID
}

func (s *OrderService) nextOrderNumber(ctx context.Context, received time.Time, attempt int) (string, error) {
	count, err := s.orders.CountReceivedOn(ctx, received)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", received.Format("20060102"), count+1+int64(attempt)), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
