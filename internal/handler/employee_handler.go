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

// EmployeeHandler exposes the employee directory over HTTP.
type EmployeeHandler struct {
	employeeService service.EmployeeService
}

func NewEmployeeHandler(employeeService service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService}
}

// Create handles POST /api/employees
// @Summary Add an employee to the directory
// @Tags employees
// @Accept json
// @Produce json
// @Param body body service.CreateEmployeeRequest true "Employee"
// @Success 201 {object} response.Response{data=model.Employee}
// @Router /api/employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	employee, err := h.employeeService.Create(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, employee))
}

// Update handles PUT /api/employees/:id
// @Summary Update a directory entry
// @Tags employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param body body service.UpdateEmployeeRequest true "Fields to change"
// @Success 200 {object} response.Response{data=model.Employee}
// @Router /api/employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	employee, err := h.employeeService.Update(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, employee))
}

// Delete handles DELETE /api/employees/:id
// @Summary Remove a directory entry (soft delete)
// @Tags employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Response
// @Router /api/employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *gin.Context) {
	if err := h.employeeService.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// Get handles GET /api/employees/:id
// @Summary Get an employee by id
// @Tags employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Response{data=model.Employee}
// @Router /api/employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	employee, err := h.employeeService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, employee))
}

// List handles GET /api/employees
// @Summary List directory entries
// @Tags employees
// @Produce json
// @Param position query string false "DRIVER, SUPERVISOR or WORKER"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	position := strings.ToUpper(c.Query("position"))

	employees, total, err := h.employeeService.List(c.Request.Context(), params.Page, params.Limit, position)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": employees,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// RegisterRoutes mounts the employee directory routes.
func (h *EmployeeHandler) RegisterRoutes(r *gin.RouterGroup) {
	employees := r.Group("/api/employees")
	{
		employees.GET("", middleware.RequirePermission("employees.view"), h.List)
		employees.GET("/:id", middleware.RequirePermission("employees.view"), h.Get)
		employees.POST("", middleware.RequirePermission("employees.manage"), h.Create)
		employees.PUT("/:id", middleware.RequirePermission("employees.manage"), h.Update)
		employees.DELETE("/:id", middleware.RequirePermission("employees.manage"), h.Delete)
	}
}
