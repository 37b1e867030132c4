package api

import (
	"net/http"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// SchedulingHandler handles time slots and scheduling requests
type SchedulingHandler struct {
	scheduling SchedulingService
}

// NewSchedulingHandler creates a new scheduling handler
func NewSchedulingHandler(scheduling SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{scheduling: scheduling}
}

// RegisterRoutes registers the handler's routes
func (h *SchedulingHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/timeslots", h.ListTimeSlots)

	slots := v1.Group("/timeslots", RequireRole(auth.ManagerRoles...))
	{
		slots.POST("", h.CreateTimeSlot)
		slots.PUT("/:id", h.UpdateTimeSlot)
	}

	requests := v1.Group("/scheduling/requests", RequireRole(auth.StaffRoles...))
	{
		requests.POST("", h.CreateRequest)
		requests.GET("/pending", h.PendingRequests)
		requests.POST("/:id/confirm", h.DecideRequest)
	}

	customer := v1.Group("/customer/requests", RequireRole(auth.RoleCustomer))
	{
		customer.POST("", h.CreateCustomerRequest)
		customer.DELETE("/:id", h.CancelRequest)
	}
}

// ListTimeSlots lists the slots of a day with their capacity indicator
func (h *SchedulingHandler) ListTimeSlots(c *gin.Context) {
	date, err := queryDate(c, "date")
	if err != nil {
		badRequest(c, err)
		return
	}
	if date == nil {
		badRequest(c, errors.New("date is required"))
		return
	}

	slots, err := h.scheduling.TimeSlots(c.Request.Context(), *date, models.SlotType(c.Query("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateTimeSlot adds a bookable window
func (h *SchedulingHandler) CreateTimeSlot(c *gin.Context) {
	var input services.TimeSlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	slot, err := h.scheduling.CreateTimeSlot(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// UpdateTimeSlot edits a slot
func (h *SchedulingHandler) UpdateTimeSlot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.TimeSlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	slot, err := h.scheduling.UpdateTimeSlot(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// CreateRequest records a scheduling request taken by staff
func (h *SchedulingHandler) CreateRequest(c *gin.Context) {
	var input services.RequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	req, err := h.scheduling.CreateRequest(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// PendingRequests lists pending requests, most urgent first
func (h *SchedulingHandler) PendingRequests(c *gin.Context) {
	pending, err := h.scheduling.PendingRequests(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// DecideRequest confirms or rejects a pending request
func (h *SchedulingHandler) DecideRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.DecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	staff, _ := identityFrom(c)
	req, err := h.scheduling.DecideRequest(c.Request.Context(), id, input, staff)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// CreateCustomerRequest records a request for one of the caller's orders
func (h *SchedulingHandler) CreateCustomerRequest(c *gin.Context) {
	var input services.RequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	identity, _ := identityFrom(c)
	req, err := h.scheduling.CreateCustomerRequest(c.Request.Context(), identity, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// CancelRequest withdraws one of the caller's pending requests
func (h *SchedulingHandler) CancelRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	identity, _ := identityFrom(c)
	req, err := h.scheduling.CancelRequest(c.Request.Context(), id, identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
