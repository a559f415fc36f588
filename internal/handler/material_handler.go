package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaterialHandler exposes the material inventory over HTTP.
type MaterialHandler struct {
	materialService service.MaterialService
}

func NewMaterialHandler(materialService service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

// Create handles POST /api/materials
// @Summary Add a material to the inventory
// @Tags materials
// @Accept json
// @Produce json
// @Param body body service.CreateMaterialRequest true "Material"
// @Success 201 {object} response.Response{data=model.Material}
// @Router /api/materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	material, err := h.materialService.Create(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// Update handles PUT /api/materials/:id
// @Summary Update an inventory entry
// @Tags materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param body body service.UpdateMaterialRequest true "Fields to change"
// @Success 200 {object} response.Response{data=model.Material}
// @Router /api/materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	material, err := h.materialService.Update(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// Delete handles DELETE /api/materials/:id
// @Summary Remove an inventory entry (soft delete)
// @Tags materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Response
// @Router /api/materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materialService.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// Get handles GET /api/materials/:id
// @Summary Get a material by id
// @Tags materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Response{data=model.Material}
// @Router /api/materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.materialService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// List handles GET /api/materials
// @Summary List inventory entries
// @Tags materials
// @Produce json
// @Param search query string false "Search by name or SKU"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	materials, total, err := h.materialService.List(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": materials,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// RegisterRoutes mounts the material inventory routes.
func (h *MaterialHandler) RegisterRoutes(r *gin.RouterGroup) {
	materials := r.Group("/api/materials")
	{
		materials.GET("", middleware.RequirePermission("materials.view"), h.List)
		materials.GET("/:id", middleware.RequirePermission("materials.view"), h.Get)
		materials.POST("", middleware.RequirePermission("materials.manage"), h.Create)
		materials.PUT("/:id", middleware.RequirePermission("materials.manage"), h.Update)
		materials.DELETE("/:id", middleware.RequirePermission("materials.manage"), h.Delete)
	}
}
