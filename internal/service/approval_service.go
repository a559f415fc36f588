package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"backoffice/internal/allocation"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrEmptyDomain marks a submission for a domain with no selections. The UI
// should not even enable the action; the coordinator refuses regardless.
var ErrEmptyDomain = errors.New("no selections for domain")

// ErrPermissionDenied marks a decision attempted by an actor whose role
// lacks the deciding department's permission.
var ErrPermissionDenied = errors.New("permission denied")

// decisionPermissions maps each department to the permission code its
// reviewers must hold.
var decisionPermissions = map[string]string{
	model.DepartmentHR:        "approvals.decide.hr",
	model.DepartmentInventory: "approvals.decide.inventory",
	model.DepartmentFinance:   "approvals.decide.finance",
}

// domainRequestTypes maps draft domains onto persisted request types.
var domainRequestTypes = map[allocation.Domain]string{
	allocation.DomainTeam:      model.RequestTypeTeam,
	allocation.DomainMaterials: model.RequestTypeMaterials,
	allocation.DomainExpenses:  model.RequestTypeExpenses,
}

// --- DTOs ---

// Requester identifies who is submitting, resolved from the auth layer.
type Requester struct {
	UserID string
	Name   string
	Email  string
}

// Actor identifies who is deciding a request.
type Actor struct {
	UserID string
	Role   string
}

// ShipmentRef is the opaque shipment reference carried on every request.
type ShipmentRef struct {
	ID     uuid.UUID
	Number string
}

// MaterialSelectionDTO is one material line of a submitted draft.
type MaterialSelectionDTO struct {
	MaterialID string `json:"material_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
}

// ExpenseItemDTO is one expense line of a submitted draft. Amount is a
// decimal string.
type ExpenseItemDTO struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Category    string `json:"category"`
}

// AllocationDraftDTO carries the client-held draft selections on submission.
// The server rebuilds a Draft from it so the local invariants are enforced
// here too, not just in the browser.
type AllocationDraftDTO struct {
	DriverID     string                 `json:"driver_id"`
	SupervisorID string                 `json:"supervisor_id"`
	WorkerIDs    []string               `json:"worker_ids"`
	Materials    []MaterialSelectionDTO `json:"materials"`
	Expenses     []ExpenseItemDTO       `json:"expenses"`
}

// DomainFailure reports one failed domain of a batch submission.
type DomainFailure struct {
	Domain allocation.Domain `json:"domain"`
	Reason string            `json:"reason"`
	Err    error             `json:"-"`
}

// BatchResult is the partial-success outcome of a batch submission. A
// failure in one domain never blocks the others.
type BatchResult struct {
	Succeeded []allocation.Domain `json:"succeeded"`
	Failed    []DomainFailure     `json:"failed"`
}

// AggregateStatus reports, per department, the status of its most recent
// request for a shipment, or NOT_REQUESTED.
type AggregateStatus struct {
	HR        string `json:"hr"`
	Inventory string `json:"inventory"`
	Finance   string `json:"finance"`
}

// ApprovalRequestResponse is the API shape of one approval request.
type ApprovalRequestResponse struct {
	ID               string          `json:"id"`
	ShipmentID       string          `json:"shipment_id"`
	ShipmentNumber   string          `json:"shipment_number"`
	RequestType      string          `json:"request_type"`
	Department       string          `json:"department"`
	RequestedBy      string          `json:"requested_by"`
	RequestedByEmail string          `json:"requested_by_email,omitempty"`
	RequestedAt      string          `json:"requested_at"`
	Payload          json.RawMessage `json:"payload"`
	Status           string          `json:"status"`
	ApprovedBy       *string         `json:"approved_by,omitempty"`
	ApprovedAt       *string         `json:"approved_at,omitempty"`
	RejectedBy       *string         `json:"rejected_by,omitempty"`
	RejectedAt       *string         `json:"rejected_at,omitempty"`
	Comments         string          `json:"comments,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
}

// --- Collaborator interfaces ---

// PermissionChecker resolves whether a role holds a permission code.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleName, code string) (bool, error)
}

// EventBroadcaster pushes workflow events to connected clients. Implemented
// by the websocket hub; best effort only.
type EventBroadcaster interface {
	BroadcastEvent(event string, data interface{})
}

// --- Interface ---

// ApprovalService coordinates the resource-approval workflow: it fans a
// draft out into per-department requests, aggregates their statuses, and
// applies reviewer decisions.
type ApprovalService interface {
	// Core coordinator operations.
	RequestApproval(ctx context.Context, domain allocation.Domain, shipment ShipmentRef, draft *allocation.Draft, requester Requester) (ApprovalRequestResponse, error)
	RequestAllApprovals(ctx context.Context, shipment ShipmentRef, draft *allocation.Draft, requester Requester) BatchResult
	GetAggregateStatus(ctx context.Context, shipmentID uuid.UUID) (AggregateStatus, error)
	GetHistory(ctx context.Context, shipmentID uuid.UUID) ([]ApprovalRequestResponse, error)

	// HTTP-facing wrappers that rebuild the draft from the wire shape.
	SubmitApproval(ctx context.Context, shipmentID string, domain allocation.Domain, dto AllocationDraftDTO, userID string) (ApprovalRequestResponse, error)
	SubmitAllApprovals(ctx context.Context, shipmentID string, dto AllocationDraftDTO, userID string) (BatchResult, error)

	// Review queue and decisions.
	ListApprovalRequests(ctx context.Context, filter repository.ApprovalFilter) ([]ApprovalRequestResponse, int64, error)
	Approve(ctx context.Context, id string, actor Actor, comments string) (ApprovalRequestResponse, error)
	Reject(ctx context.Context, id string, actor Actor, reason string) (ApprovalRequestResponse, error)
}

type approvalService struct {
	approvalRepo repository.ApprovalRepository
	shipmentRepo repository.ShipmentRepository
	employeeRepo repository.EmployeeRepository
	materialRepo repository.MaterialRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	perms        PermissionChecker
	events       EventBroadcaster
	log          zerolog.Logger
}

func NewApprovalService(
	approvalRepo repository.ApprovalRepository,
	shipmentRepo repository.ShipmentRepository,
	employeeRepo repository.EmployeeRepository,
	materialRepo repository.MaterialRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	perms PermissionChecker,
	events EventBroadcaster,
	logger zerolog.Logger,
) ApprovalService {
	return &approvalService{
		approvalRepo: approvalRepo,
		shipmentRepo: shipmentRepo,
		employeeRepo: employeeRepo,
		materialRepo: materialRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		perms:        perms,
		events:       events,
		log:          logger,
	}
}

// --- Core coordinator ---

func (s *approvalService) RequestApproval(ctx context.Context, domain allocation.Domain, shipment ShipmentRef, draft *allocation.Draft, requester Requester) (ApprovalRequestResponse, error) {
	requestType, ok := domainRequestTypes[domain]
	if !ok {
		return ApprovalRequestResponse{}, fmt.Errorf("unknown domain %q", domain)
	}

	if !draft.IsDomainNonEmpty(domain) {
		return ApprovalRequestResponse{}, fmt.Errorf("%w: %s", ErrEmptyDomain, domain)
	}

	payload := buildPayload(requestType, draft)

	req := &model.ApprovalRequest{
		ShipmentID:       shipment.ID,
		ShipmentNumber:   shipment.Number,
		RequestedBy:      requester.Name,
		RequestedByEmail: requester.Email,
	}
	if err := req.SetPayload(payload); err != nil {
		return ApprovalRequestResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.approvalRepo.Create(txCtx, req); createErr != nil {
			return fmt.Errorf("failed to create approval request: %w", createErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(requester.UserID); parseErr == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]interface{}{
			"shipment_number": shipment.Number,
			"request_type":    req.RequestType,
			"department":      req.Department,
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateApprovalRequest,
			EntityID:   req.ID.String(),
			EntityName: req.RequestType,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("shipment", shipment.Number).
		Str("department", req.Department).
		Msg("approval requested")

	if s.events != nil {
		s.events.BroadcastEvent("approval.requested", map[string]interface{}{
			"request_id":      req.ID.String(),
			"shipment_number": shipment.Number,
			"request_type":    req.RequestType,
			"department":      req.Department,
			"requested_by":    requester.Name,
		})
	}

	return toApprovalResponse(*req), nil
}

// RequestAllApprovals submits every non-empty domain independently, in the
// fixed order team, materials, expenses. A failed domain is reported and the
// remaining domains are still attempted.
func (s *approvalService) RequestAllApprovals(ctx context.Context, shipment ShipmentRef, draft *allocation.Draft, requester Requester) BatchResult {
	result := BatchResult{Succeeded: []allocation.Domain{}, Failed: []DomainFailure{}}

	for _, domain := range allocation.Domains {
		if !draft.IsDomainNonEmpty(domain) {
			continue
		}

		if _, err := s.RequestApproval(ctx, domain, shipment, draft, requester); err != nil {
			s.log.Error().Err(err).
				Str("shipment", shipment.Number).
				Str("domain", string(domain)).
				Msg("approval submission failed")
			result.Failed = append(result.Failed, DomainFailure{Domain: domain, Reason: err.Error(), Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, domain)
	}

	return result
}

func (s *approvalService) GetAggregateStatus(ctx context.Context, shipmentID uuid.UUID) (AggregateStatus, error) {
	requests, err := s.approvalRepo.ListByShipment(ctx, shipmentID)
	if err != nil {
		return AggregateStatus{}, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	// Latest request per department wins, regardless of store order.
	latest := make(map[string]model.ApprovalRequest, 3)
	for _, req := range requests {
		current, seen := latest[req.Department]
		if !seen || req.RequestedAt.After(current.RequestedAt) {
			latest[req.Department] = req
		}
	}

	status := AggregateStatus{
		HR:        model.StatusNotRequested,
		Inventory: model.StatusNotRequested,
		Finance:   model.StatusNotRequested,
	}
	if req, ok := latest[model.DepartmentHR]; ok {
		status.HR = req.Status
	}
	if req, ok := latest[model.DepartmentInventory]; ok {
		status.Inventory = req.Status
	}
	if req, ok := latest[model.DepartmentFinance]; ok {
		status.Finance = req.Status
	}

	return status, nil
}

// GetHistory returns the chronological audit trail, oldest first. The store
// order is never assumed.
func (s *approvalService) GetHistory(ctx context.Context, shipmentID uuid.UUID) ([]ApprovalRequestResponse, error) {
	requests, err := s.approvalRepo.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].RequestedAt.Before(requests[j].RequestedAt)
	})

	history := make([]ApprovalRequestResponse, 0, len(requests))
	for _, req := range requests {
		history = append(history, toApprovalResponse(req))
	}
	return history, nil
}

// --- HTTP-facing wrappers ---

func (s *approvalService) SubmitApproval(ctx context.Context, shipmentID string, domain allocation.Domain, dto AllocationDraftDTO, userID string) (ApprovalRequestResponse, error) {
	shipment, requester, draft, err := s.prepareSubmission(ctx, shipmentID, dto, userID)
	if err != nil {
		return ApprovalRequestResponse{}, err
	}
	return s.RequestApproval(ctx, domain, shipment, draft, requester)
}

func (s *approvalService) SubmitAllApprovals(ctx context.Context, shipmentID string, dto AllocationDraftDTO, userID string) (BatchResult, error) {
	shipment, requester, draft, err := s.prepareSubmission(ctx, shipmentID, dto, userID)
	if err != nil {
		return BatchResult{}, err
	}
	return s.RequestAllApprovals(ctx, shipment, draft, requester), nil
}

// prepareSubmission resolves the shipment and requester and rebuilds the
// draft from the wire shape, re-running every local invariant server-side.
func (s *approvalService) prepareSubmission(ctx context.Context, shipmentID string, dto AllocationDraftDTO, userID string) (ShipmentRef, Requester, *allocation.Draft, error) {
	sid, err := uuid.Parse(shipmentID)
	if err != nil {
		return ShipmentRef{}, Requester{}, nil, fmt.Errorf("invalid shipment id: %w", err)
	}

	shipment, err := s.shipmentRepo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ShipmentRef{}, Requester{}, nil, fmt.Errorf("shipment not found: %s", shipmentID)
		}
		return ShipmentRef{}, Requester{}, nil, fmt.Errorf("failed to load shipment: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ShipmentRef{}, Requester{}, nil, fmt.Errorf("failed to resolve requester: %w", err)
	}

	draft, err := s.buildDraft(ctx, dto)
	if err != nil {
		return ShipmentRef{}, Requester{}, nil, err
	}

	ref := ShipmentRef{ID: shipment.ID, Number: shipment.ShipmentNumber}
	requester := Requester{UserID: user.ID.String(), Name: user.Username, Email: user.Email}
	return ref, requester, draft, nil
}

// buildDraft reconstructs an allocation draft from the wire shape,
// denormalizing every referenced employee and material from the directories.
func (s *approvalService) buildDraft(ctx context.Context, dto AllocationDraftDTO) (*allocation.Draft, error) {
	draft := allocation.NewDraft()

	if dto.DriverID != "" {
		ref, err := s.lookupEmployee(ctx, dto.DriverID)
		if err != nil {
			return nil, err
		}
		draft.SetDriver(ref)
	}

	if dto.SupervisorID != "" {
		ref, err := s.lookupEmployee(ctx, dto.SupervisorID)
		if err != nil {
			return nil, err
		}
		draft.SetSupervisor(ref)
	}

	for _, workerID := range dto.WorkerIDs {
		ref, err := s.lookupEmployee(ctx, workerID)
		if err != nil {
			return nil, err
		}
		draft.AddWorker(*ref)
	}

	for _, line := range dto.Materials {
		mid, err := uuid.Parse(line.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid material id %q", allocation.ErrValidation, line.MaterialID)
		}
		material, err := s.materialRepo.FindByID(ctx, mid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: material not found: %s", allocation.ErrValidation, line.MaterialID)
			}
			return nil, fmt.Errorf("failed to load material: %w", err)
		}

		ref := allocation.MaterialRef{
			ID:                material.ID.String(),
			Name:              material.Name,
			Unit:              material.Unit,
			AvailableQuantity: material.AvailableQuantity,
		}
		if err := draft.AddMaterial(ref, line.Quantity); err != nil {
			return nil, err
		}
	}

	for _, item := range dto.Expenses {
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid expense amount %q", allocation.ErrValidation, item.Amount)
		}
		if err := draft.AddExpense(item.Description, amount, item.Category); err != nil {
			return nil, err
		}
	}

	return draft, nil
}

func (s *approvalService) lookupEmployee(ctx context.Context, id string) (*allocation.EmployeeRef, error) {
	eid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid employee id %q", allocation.ErrValidation, id)
	}
	employee, err := s.employeeRepo.FindByID(ctx, eid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: employee not found: %s", allocation.ErrValidation, id)
		}
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	return &allocation.EmployeeRef{
		ID:         employee.ID.String(),
		Name:       employee.FullName,
		Position:   employee.Position,
		Department: employee.Department,
	}, nil
}

// --- Review queue and decisions ---

func (s *approvalService) ListApprovalRequests(ctx context.Context, filter repository.ApprovalFilter) ([]ApprovalRequestResponse, int64, error) {
	requests, total, err := s.approvalRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	result := make([]ApprovalRequestResponse, 0, len(requests))
	for _, req := range requests {
		result = append(result, toApprovalResponse(req))
	}
	return result, total, nil
}

func (s *approvalService) Approve(ctx context.Context, id string, actor Actor, comments string) (ApprovalRequestResponse, error) {
	return s.decide(ctx, id, actor, model.ApprovalApproved, comments)
}

func (s *approvalService) Reject(ctx context.Context, id string, actor Actor, reason string) (ApprovalRequestResponse, error) {
	return s.decide(ctx, id, actor, model.ApprovalRejected, reason)
}

func (s *approvalService) decide(ctx context.Context, id string, actor Actor, decision string, comments string) (ApprovalRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("invalid approval request id: %w", err)
	}

	existing, err := s.approvalRepo.FindByID(ctx, requestID)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("approval request not found: %w", err)
	}

	// The deciding actor must hold the owning department's permission.
	code := decisionPermissions[existing.Department]
	allowed, err := s.perms.HasPermission(ctx, actor.Role, code)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("failed to verify permissions: %w", err)
	}
	if !allowed {
		return ApprovalRequestResponse{}, fmt.Errorf("%w: role %q cannot decide for %s", ErrPermissionDenied, actor.Role, existing.Department)
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("failed to resolve reviewer: %w", err)
	}

	var updated *model.ApprovalRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		updated, txErr = s.approvalRepo.Transition(txCtx, requestID, decision, user.Username, comments)
		if txErr != nil {
			return txErr
		}

		action := model.ActionApproveRequest
		if decision == model.ApprovalRejected {
			action = model.ActionRejectRequest
		}

		details, _ := json.Marshal(map[string]interface{}{
			"shipment_number": updated.ShipmentNumber,
			"request_type":    updated.RequestType,
			"department":      updated.Department,
			"comments":        comments,
		})
		uid := user.ID
		audit := &model.AuditLog{
			UserID:     &uid,
			Action:     action,
			EntityID:   updated.ID.String(),
			EntityName: updated.RequestType,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.log.Info().
		Str("request_id", updated.ID.String()).
		Str("shipment", updated.ShipmentNumber).
		Str("decision", decision).
		Str("reviewer", user.Username).
		Msg("approval decided")

	if s.events != nil {
		s.events.BroadcastEvent("approval.decided", map[string]interface{}{
			"request_id":      updated.ID.String(),
			"shipment_number": updated.ShipmentNumber,
			"request_type":    updated.RequestType,
			"department":      updated.Department,
			"status":          updated.Status,
			"decided_by":      user.Username,
		})
	}

	return toApprovalResponse(*updated), nil
}

// --- Helpers ---

// buildPayload snapshots the draft's denormalized selections into the
// persisted union for the given request type.
func buildPayload(requestType string, draft *allocation.Draft) model.RequestPayload {
	payload := model.RequestPayload{Type: requestType}

	switch requestType {
	case model.RequestTypeTeam:
		team := &model.TeamPayload{Workers: []model.TeamMember{}}
		if driver := draft.Driver(); driver != nil {
			team.Driver = toTeamMember(*driver)
		}
		if supervisor := draft.Supervisor(); supervisor != nil {
			team.Supervisor = toTeamMember(*supervisor)
		}
		for _, w := range draft.Workers() {
			team.Workers = append(team.Workers, *toTeamMember(w))
		}
		payload.Team = team

	case model.RequestTypeMaterials:
		materials := &model.MaterialsPayload{Items: []model.MaterialLine{}}
		for _, m := range draft.Materials() {
			materials.Items = append(materials.Items, model.MaterialLine{
				MaterialID:         m.Material.ID,
				Name:               m.Material.Name,
				Quantity:           m.Quantity,
				Unit:               m.Material.Unit,
				AvailableAtRequest: m.Material.AvailableQuantity,
			})
		}
		payload.Materials = materials

	case model.RequestTypeExpenses:
		expenses := &model.ExpensesPayload{Items: []model.ExpenseLine{}, TotalAmount: draft.TotalExpenses()}
		for _, e := range draft.Expenses() {
			expenses.Items = append(expenses.Items, model.ExpenseLine{
				Description: e.Description,
				Amount:      e.Amount,
				Category:    e.Category,
			})
		}
		payload.Expenses = expenses
	}

	return payload
}

func toTeamMember(ref allocation.EmployeeRef) *model.TeamMember {
	return &model.TeamMember{
		EmployeeID: ref.ID,
		Name:       ref.Name,
		Position:   ref.Position,
		Department: ref.Department,
	}
}

func toApprovalResponse(a model.ApprovalRequest) ApprovalRequestResponse {
	resp := ApprovalRequestResponse{
		ID:               a.ID.String(),
		ShipmentID:       a.ShipmentID.String(),
		ShipmentNumber:   a.ShipmentNumber,
		RequestType:      a.RequestType,
		Department:       a.Department,
		RequestedBy:      a.RequestedBy,
		RequestedByEmail: a.RequestedByEmail,
		RequestedAt:      a.RequestedAt.Format(timeFormat),
		Payload:          json.RawMessage(a.Payload),
		Status:           a.Status,
		Comments:         a.Comments,
		RejectionReason:  a.RejectionReason,
	}

	resp.ApprovedBy = a.ApprovedBy
	resp.RejectedBy = a.RejectedBy
	if a.ApprovedAt != nil {
		ts := a.ApprovedAt.Format(timeFormat)
		resp.ApprovedAt = &ts
	}
	if a.RejectedAt != nil {
		ts := a.RejectedAt.Format(timeFormat)
		resp.RejectedAt = &ts
	}

	return resp
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
