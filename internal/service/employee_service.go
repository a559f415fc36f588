package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CreateEmployeeRequest is the payload for adding a directory entry.
type CreateEmployeeRequest struct {
	FullName   string `json:"full_name" binding:"required"`
	Position   string `json:"position" binding:"required"`
	Department string `json:"department" binding:"required"`
	Phone      string `json:"phone"`
}

// UpdateEmployeeRequest is the payload for editing a directory entry. Nil
// fields are left unchanged.
type UpdateEmployeeRequest struct {
	FullName   *string `json:"full_name"`
	Position   *string `json:"position"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
	Active     *bool   `json:"active"`
}

// EmployeeService manages the employee directory. Approval payloads snapshot
// directory entries, so edits here never rewrite submitted requests.
type EmployeeService interface {
	Create(ctx context.Context, req CreateEmployeeRequest, userID string) (*model.Employee, error)
	Update(ctx context.Context, id string, req UpdateEmployeeRequest, userID string) (*model.Employee, error)
	Delete(ctx context.Context, id string, userID string) error
	GetByID(ctx context.Context, id string) (*model.Employee, error)
	List(ctx context.Context, page, limit int, position string) ([]model.Employee, int64, error)
}

type employeeService struct {
	employeeRepo repository.EmployeeRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	log          zerolog.Logger
}

func NewEmployeeService(
	employeeRepo repository.EmployeeRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger zerolog.Logger,
) EmployeeService {
	return &employeeService{
		employeeRepo: employeeRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		log:          logger,
	}
}

func validPosition(position string) bool {
	switch position {
	case model.PositionDriver, model.PositionSupervisor, model.PositionWorker:
		return true
	}
	return false
}

func (s *employeeService) Create(ctx context.Context, req CreateEmployeeRequest, userID string) (*model.Employee, error) {
	if !validPosition(req.Position) {
		return nil, fmt.Errorf("invalid position %q", req.Position)
	}

	employee := &model.Employee{
		FullName:   req.FullName,
		Position:   req.Position,
		Department: req.Department,
		Phone:      req.Phone,
		Active:     true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.employeeRepo.Create(txCtx, employee); createErr != nil {
			return fmt.Errorf("failed to create employee: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateEmployee, employee)
	})
	if err != nil {
		return nil, err
	}

	return employee, nil
}

func (s *employeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest, userID string) (*model.Employee, error) {
	employee, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		employee.FullName = *req.FullName
	}
	if req.Position != nil {
		if !validPosition(*req.Position) {
			return nil, fmt.Errorf("invalid position %q", *req.Position)
		}
		employee.Position = *req.Position
	}
	if req.Department != nil {
		employee.Department = *req.Department
	}
	if req.Phone != nil {
		employee.Phone = *req.Phone
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.employeeRepo.Update(txCtx, employee); updateErr != nil {
			return fmt.Errorf("failed to update employee: %w", updateErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateEmployee, employee)
	})
	if err != nil {
		return nil, err
	}

	return employee, nil
}

func (s *employeeService) Delete(ctx context.Context, id string, userID string) error {
	employee, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.employeeRepo.Delete(txCtx, employee.ID); deleteErr != nil {
			return fmt.Errorf("failed to delete employee: %w", deleteErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteEmployee, employee)
	})
}

func (s *employeeService) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	eid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid employee id: %w", err)
	}

	employee, err := s.employeeRepo.FindByID(ctx, eid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: employee %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return employee, nil
}

func (s *employeeService) List(ctx context.Context, page, limit int, position string) ([]model.Employee, int64, error) {
	return s.employeeRepo.List(ctx, page, limit, position)
}

func (s *employeeService) audit(ctx context.Context, userID, action string, employee *model.Employee) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(map[string]interface{}{
		"position":   employee.Position,
		"department": employee.Department,
	})
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   employee.ID.String(),
		EntityName: employee.FullName,
		Details:    string(details),
	})
}
