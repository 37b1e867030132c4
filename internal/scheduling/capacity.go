package scheduling

import (
	"example.com/backstage/services/laundry/internal/models"
)

// CapacityLevel describes how booked a time slot is
type CapacityLevel string

const (
	CapacityLow    CapacityLevel = "low"
	CapacityMedium CapacityLevel = "medium"
	CapacityHigh   CapacityLevel = "high"
	CapacityFull   CapacityLevel = "full"
)

// Color maps a level to the indicator color shown next to the slot
func (l CapacityLevel) Color() string {
	switch l {
	case CapacityLow:
		return "green"
	case CapacityMedium:
		return "yellow"
	case CapacityHigh:
		return "red"
	default:
		return "gray"
	}
}

// Capacity returns the booking level: below half is low, below 80% medium, otherwise high.
// A slot with no spare room, or no room at all, is full.
func Capacity(currentOrders, maxOrders int) CapacityLevel {
	if maxOrders <= 0 || currentOrders >= maxOrders {
		return CapacityFull
	}

	ratio := float64(currentOrders) / float64(maxOrders)
	switch {
	case ratio < 0.5:
		return CapacityLow
	case ratio < 0.8:
		return CapacityMedium
	default:
		return CapacityHigh
	}
}

// SlotView is a time slot with its derived display fields
type SlotView struct {
	models.TimeSlot
	DisplayTime   string        `json:"display_time"`
	IsAvailable   bool          `json:"is_available"`
	CapacityLevel CapacityLevel `json:"capacity_level"`
	CapacityColor string        `json:"capacity_color"`
}

// NewSlotView derives the display fields of a slot
func NewSlotView(slot models.TimeSlot) SlotView {
	level := Capacity(slot.CurrentOrders, slot.MaxOrders)
	if !slot.IsActive {
		level = CapacityFull
	}
	return SlotView{
		TimeSlot:      slot,
		DisplayTime:   slot.DisplayTime(),
		IsAvailable:   slot.IsAvailable(),
		CapacityLevel: level,
		CapacityColor: level.Color(),
	}
}

// SlotTypesFor returns the slot types that satisfy a filter. Pickup and Delivery also match
// slots open to both; Both or an empty filter matches everything.
func SlotTypesFor(filter models.SlotType) []models.SlotType {
	switch filter {
	case models.SlotTypePickup:
		return []models.SlotType{models.SlotTypePickup, models.SlotTypeBoth}
	case models.SlotTypeDelivery:
		return []models.SlotType{models.SlotTypeDelivery, models.SlotTypeBoth}
	default:
		return []models.SlotType{models.SlotTypePickup, models.SlotTypeDelivery, models.SlotTypeBoth}
	}
}
