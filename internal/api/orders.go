package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orders     OrderService
	tracking   TrackingService
	scheduling SchedulingService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderService, tracking TrackingService, scheduling SchedulingService) *OrderHandler {
	return &OrderHandler{
		orders:     orders,
		tracking:   tracking,
		scheduling: scheduling,
	}
}

// StatusRequest changes the status of one order
type StatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// BulkStatusRequest changes the status of several orders at once
type BulkStatusRequest struct {
	OrderIDs []uuid.UUID       `json:"order_ids" binding:"required"`
	Status   models.OrderStatus `json:"status" binding:"required"`
}

// ItemProgressRequest marks an item as done or not done
type ItemProgressRequest struct {
	Completed bool `json:"completed"`
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	staff := v1.Group("/orders", RequireRole(auth.StaffRoles...))
	{
		staff.GET("", h.ListOrders)
		staff.POST("", h.CreateOrder)
		staff.GET("/search", h.SearchOrders)
		staff.GET("/export", h.ExportOrders)
		staff.POST("/status", h.BulkUpdateStatus)
		staff.GET("/:id", h.GetOrder)
		staff.PUT("/:id", h.UpdateOrder)
		staff.DELETE("/:id", h.DeleteOrder)
		staff.GET("/:id/edit", h.EditOrder)
		staff.PUT("/:id/status", h.UpdateStatus)
		staff.GET("/:id/progress", h.GetProgress)
		staff.PUT("/:id/items/:index/progress", h.SetItemProgress)
		staff.GET("/:id/tracking", h.TrackOrder)
		staff.GET("/:id/requests", h.OrderRequests)
	}

	customer := v1.Group("/customer/orders", RequireRole(auth.RoleCustomer))
	{
		customer.GET("", h.ListCustomerOrders)
		customer.POST("", h.CreateCustomerOrder)
		customer.GET("/:id", h.GetCustomerOrder)
		customer.GET("/:id/tracking", h.TrackCustomerOrder)
	}
}

// ListOrders lists orders with their item progress
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter, err := orderFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// CreateOrder creates an order on behalf of a customer
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input services.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// SearchOrders finds orders by free text
func (h *OrderHandler) SearchOrders(c *gin.Context) {
	orders, err := h.orders.SearchOrders(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ExportOrders downloads the filtered order list as a spreadsheet
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	filter, err := orderFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	data, err := h.orders.ExportOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// BulkUpdateStatus changes the status of several orders, all or none
func (h *OrderHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.orders.BulkUpdateStatus(c.Request.Context(), req.OrderIDs, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.OrderIDs), "status": req.Status})
}

// GetOrder gets an order by ID
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder replaces an order and its items
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder deletes an order
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EditOrder returns an order with its address split for the edit form
func (h *OrderHandler) EditOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.EditView(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateStatus changes the status of one order
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// GetProgress returns the item completion stats of an order
func (h *OrderHandler) GetProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.orders.GetProgress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SetItemProgress marks one item as done or not done and returns the new stats
func (h *OrderHandler) SetItemProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, errors.Errorf("invalid item index %q", c.Param("index")))
		return
	}

	var req ItemProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	stats, err := h.orders.SetItemProgress(c.Request.Context(), id, index, req.Completed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TrackOrder reports the delivery progress of an order
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tracking, err := h.tracking.TrackOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking)
}

// OrderRequests lists the scheduling requests of an order
func (h *OrderHandler) OrderRequests(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	requests, err := h.scheduling.OrderRequests(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListCustomerOrders lists the caller's orders
func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	identity, _ := identityFrom(c)

	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), identity.PhoneNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// CreateCustomerOrder creates an order for the caller's phone number
func (h *OrderHandler) CreateCustomerOrder(c *gin.Context) {
	identity, _ := identityFrom(c)

	var input services.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.CreateCustomerOrder(c.Request.Context(), identity, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetCustomerOrder gets one of the caller's orders
func (h *OrderHandler) GetCustomerOrder(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetCustomerOrder(c.Request.Context(), identity.PhoneNumber, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// TrackCustomerOrder reports the delivery progress of one of the caller's orders
func (h *OrderHandler) TrackCustomerOrder(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tracking, err := h.tracking.TrackCustomerOrder(c.Request.Context(), identity.PhoneNumber, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking)
}
