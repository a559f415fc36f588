package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidTransition marks a decision attempted on a request that is no
// longer PENDING. Terminal requests are immutable.
var ErrInvalidTransition = errors.New("approval request already decided")

// ApprovalFilter narrows the review-queue listing.
type ApprovalFilter struct {
	Status     string // PENDING, APPROVED, REJECTED or empty for all
	Department string // HR, INVENTORY, FINANCE or empty for all
	Page       int
	Limit      int
}

// ApprovalRepository is the persistence boundary for approval requests.
// ListByShipment returns records in no guaranteed order; callers sort.
type ApprovalRepository interface {
	Create(ctx context.Context, req *model.ApprovalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]model.ApprovalRequest, error)
	List(ctx context.Context, filter ApprovalFilter) ([]model.ApprovalRequest, int64, error)
	Transition(ctx context.Context, id uuid.UUID, decision string, actor string, comments string) (*model.ApprovalRequest, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// Create stamps RequestedAt and the PENDING status, re-validates the payload
// invariants, and persists. Malformed requests never reach the table.
func (r *approvalRepository) Create(ctx context.Context, req *model.ApprovalRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	req.Status = model.ApprovalPending

	if err := req.ValidateForCreate(); err != nil {
		return err
	}

	return GetDB(ctx, r.db).Create(req).Error
}

func (r *approvalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]model.ApprovalRequest, error) {
	var requests []model.ApprovalRequest
	if err := GetDB(ctx, r.db).Where("shipment_id = ?", shipmentID).Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *approvalRepository) List(ctx context.Context, filter ApprovalFilter) ([]model.ApprovalRequest, int64, error) {
	var requests []model.ApprovalRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ApprovalRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("requested_at DESC").Offset(offset).Limit(filter.Limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// Transition applies a decision as a conditional update keyed on the
// current PENDING status. Of two concurrent decisions on the same id only
// the first wins; the second observes zero affected rows and fails with
// ErrInvalidTransition instead of overwriting.
func (r *approvalRepository) Transition(ctx context.Context, id uuid.UUID, decision string, actor string, comments string) (*model.ApprovalRequest, error) {
	now := time.Now().UTC()

	var updates map[string]interface{}
	switch decision {
	case model.ApprovalApproved:
		updates = map[string]interface{}{
			"status":      model.ApprovalApproved,
			"approved_by": actor,
			"approved_at": now,
			"comments":    comments,
		}
	case model.ApprovalRejected:
		updates = map[string]interface{}{
			"status":           model.ApprovalRejected,
			"rejected_by":      actor,
			"rejected_at":      now,
			"rejection_reason": comments,
		}
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	db := GetDB(ctx, r.db)
	res := db.Model(&model.ApprovalRequest{}).
		Where("id = ? AND status = ?", id, model.ApprovalPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Either the record is missing or it is already terminal.
		var existing model.ApprovalRequest
		if err := db.First(&existing, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, id, existing.Status)
	}

	var updated model.ApprovalRequest
	if err := db.First(&updated, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}
