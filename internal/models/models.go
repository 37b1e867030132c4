package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ServiceType tells whether an order is dropped off at the office or picked up and delivered
type ServiceType string

const (
	ServiceTypeOffice         ServiceType = "Office"
	ServiceTypePickupDelivery ServiceType = "PickupDelivery"
)

// OrderStatus is the processing status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusReady     OrderStatus = "Ready"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// SchedulingStatus tracks an order through pickup/delivery scheduling and routing
type SchedulingStatus string

const (
	SchedulingStatusNone       SchedulingStatus = "none"
	SchedulingStatusRequested  SchedulingStatus = "requested"
	SchedulingStatusConfirmed  SchedulingStatus = "confirmed"
	SchedulingStatusInProgress SchedulingStatus = "inprogress"
	SchedulingStatusCompleted  SchedulingStatus = "completed"
)

// ItemType is the kind of article being cleaned
type ItemType string

const (
	ItemTypeCarpet  ItemType = "Carpet"
	ItemTypeBlanket ItemType = "Blanket"
)

// Customer is a person placing orders, identified by telephone number
type Customer struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Name            string         `json:"name"`
	TelephoneNumber string         `gorm:"not null;uniqueIndex" json:"telephone_number"`
	Address         string         `json:"address"`
}

// Order is a batch of items received from a customer
type Order struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
	OrderNumber      string           `gorm:"not null;uniqueIndex" json:"order_number"`
	CustomerID       *uuid.UUID       `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName     string           `json:"customer_name"`
	TelephoneNumber  string           `gorm:"not null;index" json:"telephone_number"`
	ServiceType      ServiceType      `gorm:"not null" json:"service_type"`
	DeliveryAddress  string           `json:"delivery_address"`
	Street           string           `json:"street"`
	StreetNumber     string           `json:"street_number"`
	City             string           `json:"city"`
	ApartmentNumber  string           `json:"apartment_number"`
	Latitude         *float64         `json:"latitude"`
	Longitude        *float64         `json:"longitude"`
	Observation      string           `json:"observation"`
	Status           OrderStatus      `gorm:"not null;index" json:"status"`
	SchedulingStatus SchedulingStatus `gorm:"not null;default:none;index" json:"scheduling_status"`
	ReceivedDate     time.Time        `gorm:"not null;index" json:"received_date"`
	CompletedDate    *time.Time       `json:"completed_date"`
	Items            []Item           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Customer         *Customer        `gorm:"foreignKey:CustomerID" json:"-"`
}

// HasCoordinates reports whether the order can be placed on a map
func (o *Order) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// TotalPrice sums the item prices
func (o *Order) TotalPrice() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price
	}
	return total
}

// Item is a single article in an order. Position is the item index within the order.
type Item struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Position int       `gorm:"not null" json:"index"`
	Type     ItemType  `gorm:"not null" json:"type"`
	Length   *float64  `json:"length"`
	Width    *float64  `json:"width"`
	Price    float64   `json:"price"`
}

// Area returns the carpet surface in square meters, zero for other item types
func (i *Item) Area() float64 {
	if i.Type != ItemTypeCarpet || i.Length == nil || i.Width == nil {
		return 0
	}
	return *i.Length * *i.Width
}

// SlotType says which kind of visit a time slot accepts
type SlotType string

const (
	SlotTypePickup   SlotType = "Pickup"
	SlotTypeDelivery SlotType = "Delivery"
	SlotTypeBoth     SlotType = "Both"
)

// TimeSlot is a bookable window with a maximum number of orders
type TimeSlot struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	StartTime     time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime       time.Time      `gorm:"not null" json:"end_time"`
	MaxOrders     int            `gorm:"not null" json:"max_orders"`
	CurrentOrders int            `gorm:"not null;default:0" json:"current_orders"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	SlotType      SlotType       `gorm:"not null" json:"slot_type"`
	Description   string         `json:"description"`
}

// DisplayTime renders the slot window as "HH:MM - HH:MM"
func (s *TimeSlot) DisplayTime() string {
	return fmt.Sprintf("%s - %s", s.StartTime.Format("15:04"), s.EndTime.Format("15:04"))
}

// IsAvailable reports whether the slot is active and has spare capacity
func (s *TimeSlot) IsAvailable() bool {
	return s.IsActive && s.CurrentOrders < s.MaxOrders
}

// RequestType is the kind of visit a customer asks for
type RequestType string

const (
	RequestTypePickup   RequestType = "Pickup"
	RequestTypeDelivery RequestType = "Delivery"
)

// RequestStatus is the staff decision on a scheduling request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "Pending"
	RequestStatusConfirmed RequestStatus = "Confirmed"
	RequestStatusRejected  RequestStatus = "Rejected"
	RequestStatusCancelled RequestStatus = "Cancelled"
)

// SchedulingRequest is a customer ask for a pickup or delivery time, pending staff confirmation
type SchedulingRequest struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	OrderID           uuid.UUID     `gorm:"type:uuid;not null;index" json:"order_id"`
	RequestType       RequestType   `gorm:"not null" json:"request_type"`
	RequestedDateTime time.Time     `gorm:"not null" json:"requested_date_time"`
	Status            RequestStatus `gorm:"not null;index" json:"status"`
	CustomerPhone     string        `json:"customer_phone"`
	CustomerName      string        `json:"customer_name"`
	CustomerNotes     string        `json:"customer_notes"`
	StaffNotes        string        `json:"staff_notes"`
	ConfirmedBy       string        `json:"confirmed_by"`
	ConfirmedAt       *time.Time    `json:"confirmed_at"`
	TimeSlotID        *uuid.UUID    `gorm:"type:uuid" json:"time_slot_id"`
	TimeSlot          *TimeSlot     `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
}

// Route is an ordered trip of stops assigned to one driver
type Route struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	DriverName string      `gorm:"not null;index" json:"driver_name"`
	IsStarted  bool        `gorm:"not null;default:false" json:"is_started"`
	StartedAt  *time.Time  `json:"started_at"`
	Stops      []RouteStop `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE" json:"stops"`
}

// RouteStop is an order visit within a route. Position is the stop index within the route.
type RouteStop struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"route_id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Position    int        `gorm:"not null" json:"index"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Address     string     `json:"address"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Waypoint renders the stop for a directions request, preferring coordinates over the address
func (s *RouteStop) Waypoint() string {
	if s.Latitude != nil && s.Longitude != nil {
		return fmt.Sprintf("%f,%f", *s.Latitude, *s.Longitude)
	}
	return s.Address
}

// DriverLocation is the last reported position of a driver
type DriverLocation struct {
	DriverName string    `gorm:"primaryKey" json:"driver_name"`
	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Waypoint renders the driver position for a directions request
func (d *DriverLocation) Waypoint() string {
	return fmt.Sprintf("%f,%f", d.Latitude, d.Longitude)
}

// BeforeCreate assigns ids to new rows
func (c *Customer) BeforeCreate(tx *gorm.DB) error { return assignID(&c.ID) }

// BeforeCreate assigns ids to new rows
func (o *Order) BeforeCreate(tx *gorm.DB) error { return assignID(&o.ID) }

// BeforeCreate assigns ids to new rows
func (i *Item) BeforeCreate(tx *gorm.DB) error { return assignID(&i.ID) }

// BeforeCreate assigns ids to new rows
func (s *TimeSlot) BeforeCreate(tx *gorm.DB) error { return assignID(&s.ID) }

// BeforeCreate assigns ids to new rows
func (r *SchedulingRequest) BeforeCreate(tx *gorm.DB) error { return assignID(&r.ID) }

// BeforeCreate assigns ids to new rows
func (r *Route) BeforeCreate(tx *gorm.DB) error { return assignID(&r.ID) }

// BeforeCreate assigns ids to new rows
func (s *RouteStop) BeforeCreate(tx *gorm.DB) error { return assignID(&s.ID) }

func assignID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}

// SetupModels runs the schema migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Customer{},
		&Order{},
		&Item{},
		&TimeSlot{},
		&SchedulingRequest{},
		&Route{},
		&RouteStop{},
		&DriverLocation{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to auto-migrate models")
	}
	return nil
}
