package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"backoffice/internal/allocation"
	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApprovalHandler exposes the approval workflow over HTTP.
type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// SubmitApprovalBody is the body of a single-domain submission.
type SubmitApprovalBody struct {
	Domain string                     `json:"domain" binding:"required"`
	Draft  service.AllocationDraftDTO `json:"draft"`
}

// SubmitBatchBody is the body of a batch submission.
type SubmitBatchBody struct {
	Draft service.AllocationDraftDTO `json:"draft"`
}

// DecisionBody carries reviewer comments or a rejection reason.
type DecisionBody struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

// statusForError maps workflow error classes onto HTTP status codes.
// Unrecognized errors are treated as internal; unreachable-store errors
// surface as 503 so clients can distinguish outage from rejection.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyDomain),
		errors.Is(err, allocation.ErrValidation),
		errors.Is(err, model.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case isStoreUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isStoreUnavailable(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// Submit handles POST /api/shipments/:id/approvals
// @Summary Submit an approval request for one resource domain
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param body body SubmitApprovalBody true "Domain and draft selections"
// @Success 201 {object} response.Response{data=service.ApprovalRequestResponse}
// @Failure 422 {object} response.Response
// @Router /api/shipments/{id}/approvals [post]
func (h *ApprovalHandler) Submit(c *gin.Context) {
	var body SubmitApprovalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	domain := allocation.Domain(strings.ToUpper(body.Domain))
	userID := c.GetString("userID")

	result, err := h.approvalService.SubmitApproval(c.Request.Context(), c.Param("id"), domain, body.Draft, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// SubmitBatch handles POST /api/shipments/:id/approvals/batch
// @Summary Submit approval requests for every non-empty domain of a draft
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param body body SubmitBatchBody true "Draft selections"
// @Success 201 {object} response.Response{data=service.BatchResult}
// @Success 207 {object} response.Response{data=service.BatchResult} "Partial success"
// @Router /api/shipments/{id}/approvals/batch [post]
func (h *ApprovalHandler) SubmitBatch(c *gin.Context) {
	var body SubmitBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	userID := c.GetString("userID")
	result, err := h.approvalService.SubmitAllApprovals(c.Request.Context(), c.Param("id"), body.Draft, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// Per-domain failures are reported, not hidden behind a single code.
	status := http.StatusCreated
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, response.Success(status, result))
}

// AggregateStatus handles GET /api/shipments/:id/approvals/status
// @Summary Latest approval status per department for a shipment
// @Tags approvals
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} response.Response{data=service.AggregateStatus}
// @Router /api/shipments/{id}/approvals/status [get]
func (h *ApprovalHandler) AggregateStatus(c *gin.Context) {
	sid, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	status, err := h.approvalService.GetAggregateStatus(c.Request.Context(), sid)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// History handles GET /api/shipments/:id/approvals/history
// @Summary Full approval history for a shipment, oldest first
// @Tags approvals
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} response.Response{data=[]service.ApprovalRequestResponse}
// @Router /api/shipments/{id}/approvals/history [get]
func (h *ApprovalHandler) History(c *gin.Context) {
	sid, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	history, err := h.approvalService.GetHistory(c.Request.Context(), sid)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// List handles GET /api/approvals
// @Summary Review queue, filterable by status and department
// @Tags approvals
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param department query string false "HR, INVENTORY or FINANCE"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /api/approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.ApprovalFilter{
		Status:     strings.ToUpper(c.Query("status")),
		Department: strings.ToUpper(c.Query("department")),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	requests, total, err := h.approvalService.ListApprovalRequests(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": requests,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// Approve handles PUT /api/approvals/:id/approve
// @Summary Approve a pending request
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param body body DecisionBody false "Optional reviewer comments"
// @Success 200 {object} response.Response{data=service.ApprovalRequestResponse}
// @Failure 409 {object} response.Response "Request already decided"
// @Router /api/approvals/{id}/approve [put]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var body DecisionBody
	_ = c.ShouldBindJSON(&body) // comments are optional

	actor := service.Actor{UserID: c.GetString("userID"), Role: c.GetString("userRole")}
	result, err := h.approvalService.Approve(c.Request.Context(), c.Param("id"), actor, body.Comments)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject handles PUT /api/approvals/:id/reject
// @Summary Reject a pending request with a reason
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param body body DecisionBody true "Rejection reason"
// @Success 200 {object} response.Response{data=service.ApprovalRequestResponse}
// @Failure 409 {object} response.Response "Request already decided"
// @Router /api/approvals/{id}/reject [put]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "rejection reason is required"))
		return
	}

	actor := service.Actor{UserID: c.GetString("userID"), Role: c.GetString("userRole")}
	result, err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), actor, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RegisterRoutes mounts the approval workflow routes. Submission needs the
// request permission; decisions are additionally checked against the owning
// department inside the service.
func (h *ApprovalHandler) RegisterRoutes(r *gin.RouterGroup) {
	shipments := r.Group("/api/shipments/:id/approvals")
	{
		shipments.POST("", middleware.RequirePermission("approvals.request"), h.Submit)
		shipments.POST("/batch", middleware.RequirePermission("approvals.request"), h.SubmitBatch)
		shipments.GET("/status", middleware.RequirePermission("approvals.view"), h.AggregateStatus)
		shipments.GET("/history", middleware.RequirePermission("approvals.view"), h.History)
	}

	approvals := r.Group("/api/approvals")
	{
		approvals.GET("", middleware.RequirePermission("approvals.view"), h.List)
		approvals.PUT("/:id/approve", middleware.RequirePermission(), h.Approve)
		approvals.PUT("/:id/reject", middleware.RequirePermission(), h.Reject)
	}
}
