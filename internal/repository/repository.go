package repository

import (
	"context"

	"viaje-seguro-partner/internal/domain"
)

type ActionAuditRepository interface {
	Create(ctx context.Context, audit *domain.ActionAudit) error
	ListByBooking(ctx context.Context, partnerID, bookingID string, limit int32) ([]domain.ActionAudit, error)
}

// NopAuditRepository is used when no database is configured.
type NopAuditRepository struct{}

func (NopAuditRepository) Create(ctx context.Context, audit *domain.ActionAudit) error {
	return nil
}

func (NopAuditRepository) ListByBooking(ctx context.Context, partnerID, bookingID string, limit int32) ([]domain.ActionAudit, error) {
	return []domain.ActionAudit{}, nil
}
