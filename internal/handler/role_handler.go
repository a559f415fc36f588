package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleHandler exposes the RBAC role catalog over HTTP.
type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// List handles GET /api/roles
// @Summary List roles with their permissions
// @Tags roles
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Role}
// @Router /api/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// RegisterRoutes mounts the role catalog routes.
func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	roles := r.Group("/api/roles")
	{
		roles.GET("", middleware.RequireRole("admin"), h.List)
	}
}
