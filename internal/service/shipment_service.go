package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrNotFound marks a lookup for an entity that does not exist.
var ErrNotFound = errors.New("not found")

// CreateShipmentRequest is the payload for creating a shipment.
type CreateShipmentRequest struct {
	ShipmentNumber string     `json:"shipment_number" binding:"required"`
	Origin         string     `json:"origin" binding:"required"`
	Destination    string     `json:"destination" binding:"required"`
	CargoType      string     `json:"cargo_type"`
	WeightKg       float64    `json:"weight_kg"`
	ScheduledDate  *time.Time `json:"scheduled_date"`
	Note           string     `json:"note"`
}

// UpdateShipmentRequest is the payload for updating a shipment. Nil fields
// are left unchanged.
type UpdateShipmentRequest struct {
	Origin        *string    `json:"origin"`
	Destination   *string    `json:"destination"`
	CargoType     *string    `json:"cargo_type"`
	WeightKg      *float64   `json:"weight_kg"`
	Status        *string    `json:"status"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Note          *string    `json:"note"`
}

// ShipmentService manages the shipment lifecycle. The approval workflow only
// references shipments; it never mutates them.
type ShipmentService interface {
	Create(ctx context.Context, req CreateShipmentRequest, userID string) (*model.Shipment, error)
	Update(ctx context.Context, id string, req UpdateShipmentRequest, userID string) (*model.Shipment, error)
	GetByID(ctx context.Context, id string) (*model.Shipment, error)
	List(ctx context.Context, page, limit int, status string) ([]model.Shipment, int64, error)
}

type shipmentService struct {
	shipmentRepo repository.ShipmentRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	log          zerolog.Logger
}

func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger zerolog.Logger,
) ShipmentService {
	return &shipmentService{
		shipmentRepo: shipmentRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		log:          logger,
	}
}

func (s *shipmentService) Create(ctx context.Context, req CreateShipmentRequest, userID string) (*model.Shipment, error) {
	if existing, err := s.shipmentRepo.FindByNumber(ctx, req.ShipmentNumber); err == nil && existing != nil {
		return nil, fmt.Errorf("shipment number %q already exists", req.ShipmentNumber)
	}

	shipment := &model.Shipment{
		ShipmentNumber: req.ShipmentNumber,
		Origin:         req.Origin,
		Destination:    req.Destination,
		CargoType:      req.CargoType,
		WeightKg:       req.WeightKg,
		Status:         model.ShipmentStatusPlanning,
		ScheduledDate:  req.ScheduledDate,
		Note:           req.Note,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.shipmentRepo.Create(txCtx, shipment); createErr != nil {
			return fmt.Errorf("failed to create shipment: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateShipment, shipment, map[string]interface{}{
			"origin":      shipment.Origin,
			"destination": shipment.Destination,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("shipment", shipment.ShipmentNumber).Msg("shipment created")
	return shipment, nil
}

func (s *shipmentService) Update(ctx context.Context, id string, req UpdateShipmentRequest, userID string) (*model.Shipment, error) {
	shipment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Origin != nil {
		shipment.Origin = *req.Origin
	}
	if req.Destination != nil {
		shipment.Destination = *req.Destination
	}
	if req.CargoType != nil {
		shipment.CargoType = *req.CargoType
	}
	if req.WeightKg != nil {
		shipment.WeightKg = *req.WeightKg
	}
	if req.Status != nil {
		switch *req.Status {
		case model.ShipmentStatusPlanning, model.ShipmentStatusInTransit,
			model.ShipmentStatusDelivered, model.ShipmentStatusCancelled:
			shipment.Status = *req.Status
		default:
			return nil, fmt.Errorf("invalid shipment status %q", *req.Status)
		}
	}
	if req.ScheduledDate != nil {
		shipment.ScheduledDate = req.ScheduledDate
	}
	if req.Note != nil {
		shipment.Note = *req.Note
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.shipmentRepo.Update(txCtx, shipment); updateErr != nil {
			return fmt.Errorf("failed to update shipment: %w", updateErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateShipment, shipment, map[string]interface{}{
			"status": shipment.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	return shipment, nil
}

func (s *shipmentService) GetByID(ctx context.Context, id string) (*model.Shipment, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid shipment id: %w", err)
	}

	shipment, err := s.shipmentRepo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: shipment %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	return shipment, nil
}

func (s *shipmentService) List(ctx context.Context, page, limit int, status string) ([]model.Shipment, int64, error) {
	return s.shipmentRepo.List(ctx, page, limit, status)
}

func (s *shipmentService) audit(ctx context.Context, userID, action string, shipment *model.Shipment, extra map[string]interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(extra)
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   shipment.ID.String(),
		EntityName: shipment.ShipmentNumber,
		Details:    string(details),
	})
}
