package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the audit trail over HTTP.
type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List handles GET /api/audit
// @Summary List audit entries, newest first
// @Tags audit
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.auditService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": entries,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// RegisterRoutes mounts the audit trail routes.
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/api/audit")
	{
		audit.GET("", middleware.RequirePermission("audit.view"), h.List)
	}
}
