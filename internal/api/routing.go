package api

import (
	"net/http"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/gin-gonic/gin"
)

// RoutingHandler handles routes and driver positions
type RoutingHandler struct {
	routing RoutingService
}

// NewRoutingHandler creates a new routing handler
func NewRoutingHandler(routing RoutingService) *RoutingHandler {
	return &RoutingHandler{routing: routing}
}

// RegisterRoutes registers the handler's routes
func (h *RoutingHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	routes := v1.Group("/routes", RequireRole(auth.StaffRoles...))
	{
		routes.GET("", h.ListRoutes)
		routes.POST("", h.CreateRoute)
		routes.POST("/auto", h.AutoRoute)
		routes.GET("/eligible", h.EligibleOrders)
		routes.GET("/:id", h.GetRoute)
		routes.DELETE("/:id", RequireRole(auth.ManagerRoles...), h.DeleteRoute)
		routes.POST("/:id/start", h.StartRoute)
		routes.POST("/:id/stops/:stopId/complete", h.CompleteStop)
	}

	drivers := v1.Group("/drivers/:name", RequireRole(auth.StaffRoles...))
	{
		drivers.GET("/location", h.GetDriverLocation)
		drivers.PUT("/location", h.UpdateDriverLocation)
		drivers.GET("/route", h.DriverRoute)
	}
}

// ListRoutes lists routes, optionally filtered by driver
func (h *RoutingHandler) ListRoutes(c *gin.Context) {
	routes, err := h.routing.ListRoutes(c.Request.Context(), c.Query("driver"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

// CreateRoute stores a route in the given stop sequence
func (h *RoutingHandler) CreateRoute(c *gin.Context) {
	var input services.RouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.routing.CreateRoute(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// AutoRoute plans a nearest neighbour route from the depot
func (h *RoutingHandler) AutoRoute(c *gin.Context) {
	var input services.RouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.routing.AutoRoute(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// EligibleOrders lists the orders that can be put on a route
func (h *RoutingHandler) EligibleOrders(c *gin.Context) {
	orders, err := h.routing.EligibleOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetRoute gets a route with its stops
func (h *RoutingHandler) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	route, err := h.routing.GetRoute(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DeleteRoute deletes a route that has not started
func (h *RoutingHandler) DeleteRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.routing.DeleteRoute(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartRoute starts a route
func (h *RoutingHandler) StartRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	route, err := h.routing.StartRoute(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// CompleteStop marks a stop as visited
func (h *RoutingHandler) CompleteStop(c *gin.Context) {
	routeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stopID, ok := pathID(c, "stopId")
	if !ok {
		return
	}

	stop, err := h.routing.CompleteStop(c.Request.Context(), routeID, stopID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stop)
}

// GetDriverLocation returns the last reported position of a driver
func (h *RoutingHandler) GetDriverLocation(c *gin.Context) {
	location, err := h.routing.DriverLocation(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

// UpdateDriverLocation records a driver position
func (h *RoutingHandler) UpdateDriverLocation(c *gin.Context) {
	var input services.LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	location, err := h.routing.UpdateDriverLocation(c.Request.Context(), c.Param("name"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

// DriverRoute returns the active route of a driver
func (h *RoutingHandler) DriverRoute(c *gin.Context) {
	view, err := h.routing.DriverRoute(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
