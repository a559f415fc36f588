package service

import (
	"context"

	"backoffice/internal/model"
	"backoffice/internal/repository"
)

// AuditService exposes the read side of the audit log.
type AuditService interface {
	List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return s.auditRepo.List(ctx, page, limit)
}
