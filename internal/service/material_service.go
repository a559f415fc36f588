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

// CreateMaterialRequest is the payload for adding an inventory entry.
type CreateMaterialRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Unit              string `json:"unit" binding:"required"`
	AvailableQuantity int    `json:"available_quantity"`
}

// UpdateMaterialRequest is the payload for editing an inventory entry. Nil
// fields are left unchanged.
type UpdateMaterialRequest struct {
	Name              *string `json:"name"`
	Unit              *string `json:"unit"`
	AvailableQuantity *int    `json:"available_quantity"`
}

// MaterialService manages the material directory whose available quantities
// bound what a draft may request.
type MaterialService interface {
	Create(ctx context.Context, req CreateMaterialRequest, userID string) (*model.Material, error)
	Update(ctx context.Context, id string, req UpdateMaterialRequest, userID string) (*model.Material, error)
	Delete(ctx context.Context, id string, userID string) error
	GetByID(ctx context.Context, id string) (*model.Material, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Material, int64, error)
}

type materialService struct {
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	log          zerolog.Logger
}

func NewMaterialService(
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger zerolog.Logger,
) MaterialService {
	return &materialService{
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		log:          logger,
	}
}

func (s *materialService) Create(ctx context.Context, req CreateMaterialRequest, userID string) (*model.Material, error) {
	if req.AvailableQuantity < 0 {
		return nil, fmt.Errorf("available quantity must not be negative, got %d", req.AvailableQuantity)
	}
	if existing, err := s.materialRepo.FindBySKU(ctx, req.SKU); err == nil && existing != nil {
		return nil, fmt.Errorf("material SKU %q already exists", req.SKU)
	}

	material := &model.Material{
		SKU:               req.SKU,
		Name:              req.Name,
		Unit:              req.Unit,
		AvailableQuantity: req.AvailableQuantity,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.materialRepo.Create(txCtx, material); createErr != nil {
			return fmt.Errorf("failed to create material: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateMaterial, material)
	})
	if err != nil {
		return nil, err
	}

	return material, nil
}

func (s *materialService) Update(ctx context.Context, id string, req UpdateMaterialRequest, userID string) (*model.Material, error) {
	material, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		material.Name = *req.Name
	}
	if req.Unit != nil {
		material.Unit = *req.Unit
	}
	if req.AvailableQuantity != nil {
		if *req.AvailableQuantity < 0 {
			return nil, fmt.Errorf("available quantity must not be negative, got %d", *req.AvailableQuantity)
		}
		material.AvailableQuantity = *req.AvailableQuantity
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.materialRepo.Update(txCtx, material); updateErr != nil {
			return fmt.Errorf("failed to update material: %w", updateErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateMaterial, material)
	})
	if err != nil {
		return nil, err
	}

	return material, nil
}

func (s *materialService) Delete(ctx context.Context, id string, userID string) error {
	material, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.materialRepo.Delete(txCtx, material.ID); deleteErr != nil {
			return fmt.Errorf("failed to delete material: %w", deleteErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteMaterial, material)
	})
}

func (s *materialService) GetByID(ctx context.Context, id string) (*model.Material, error) {
	mid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid material id: %w", err)
	}

	material, err := s.materialRepo.FindByID(ctx, mid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: material %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load material: %w", err)
	}
	return material, nil
}

func (s *materialService) List(ctx context.Context, page, limit int, search string) ([]model.Material, int64, error) {
	return s.materialRepo.List(ctx, page, limit, search)
}

func (s *materialService) audit(ctx context.Context, userID, action string, material *model.Material) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(map[string]interface{}{
		"sku":                material.SKU,
		"available_quantity": material.AvailableQuantity,
	})
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   material.ID.String(),
		EntityName: material.Name,
		Details:    string(details),
	})
}
