package postgres

import (
	"context"
	"database/sql"
	"time"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/repository"
)

type actionAuditRepository struct {
	db *sql.DB
}

func NewActionAuditRepository(db *sql.DB) repository.ActionAuditRepository {
	return &actionAuditRepository{db: db}
}

func (r *actionAuditRepository) Create(ctx context.Context, a *domain.ActionAudit) error {
	logger.EnterMethod("actionAuditRepository.Create", "bookingID", a.BookingID, "action", a.Action)

	if a.CreatedOn.IsZero() {
		a.CreatedOn = time.Now().UTC()
	}
	query := `INSERT INTO partner_action_audits (partner_id, booking_id, action, outcome, detail, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("INSERT", "partner_action_audits", "bookingID", a.BookingID, "action", a.Action)

	err := r.db.QueryRowContext(ctx, query, a.PartnerID, a.BookingID, a.Action, a.Outcome, a.Detail, a.CreatedOn).Scan(&a.ID)
	logger.DatabaseResult("INSERT", 1, err, "auditID", a.ID)

	if err != nil {
		logger.ExitMethodWithError("actionAuditRepository.Create", err, "bookingID", a.BookingID)
	} else {
		logger.ExitMethod("actionAuditRepository.Create", "auditID", a.ID)
	}
	return err
}

func (r *actionAuditRepository) ListByBooking(ctx context.Context, partnerID, bookingID string, limit int32) ([]domain.ActionAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, partner_id, booking_id, action, outcome, detail, created_on
	          FROM partner_action_audits WHERE partner_id = $1 AND booking_id = $2
	          ORDER BY created_on DESC LIMIT $3`
	logger.DatabaseCall("SELECT", "partner_action_audits", "bookingID", bookingID)

	rows, err := r.db.QueryContext(ctx, query, partnerID, bookingID, limit)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	audits := []domain.ActionAudit{}
	for rows.Next() {
		var a domain.ActionAudit
		if err := rows.Scan(&a.ID, &a.PartnerID, &a.BookingID, &a.Action, &a.Outcome, &a.Detail, &a.CreatedOn); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(audits)), nil)
	return audits, nil
}
