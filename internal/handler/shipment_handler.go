package handler

import (
	"net/http"
	"strings"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// ShipmentHandler exposes the shipment registry over HTTP.
type ShipmentHandler struct {
	shipmentService service.ShipmentService
}

func NewShipmentHandler(shipmentService service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService}
}

// Create handles POST /api/shipments
// @Summary Create a shipment
// @Tags shipments
// @Accept json
// @Produce json
// @Param body body service.CreateShipmentRequest true "Shipment"
// @Success 201 {object} response.Response{data=model.Shipment}
// @Router /api/shipments [post]
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req service.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	shipment, err := h.shipmentService.Create(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shipment))
}

// Update handles PUT /api/shipments/:id
// @Summary Update a shipment
// @Tags shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param body body service.UpdateShipmentRequest true "Fields to change"
// @Success 200 {object} response.Response{data=model.Shipment}
// @Router /api/shipments/{id} [put]
func (h *ShipmentHandler) Update(c *gin.Context) {
	var req service.UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	shipment, err := h.shipmentService.Update(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shipment))
}

// Get handles GET /api/shipments/:id
// @Summary Get a shipment by id
// @Tags shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} response.Response{data=model.Shipment}
// @Router /api/shipments/{id} [get]
func (h *ShipmentHandler) Get(c *gin.Context) {
	shipment, err := h.shipmentService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shipment))
}

// List handles GET /api/shipments
// @Summary List shipments
// @Tags shipments
// @Produce json
// @Param status query string false "PLANNING, IN_TRANSIT, DELIVERED or CANCELLED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/shipments [get]
func (h *ShipmentHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	status := strings.ToUpper(c.Query("status"))

	shipments, total, err := h.shipmentService.List(c.Request.Context(), params.Page, params.Limit, status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": shipments,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// RegisterRoutes mounts the shipment registry routes.
func (h *ShipmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	shipments := r.Group("/api/shipments")
	{
		shipments.GET("", middleware.RequirePermission("shipments.view"), h.List)
		shipments.GET("/:id", middleware.RequirePermission("shipments.view"), h.Get)
		shipments.POST("", middleware.RequirePermission("shipments.manage"), h.Create)
		shipments.PUT("/:id", middleware.RequirePermission("shipments.manage"), h.Update)
	}
}
