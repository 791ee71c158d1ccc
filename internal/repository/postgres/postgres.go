package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/repository"
)

const schema = `CREATE TABLE IF NOT EXISTS partner_action_audits (
	id          BIGSERIAL PRIMARY KEY,
	partner_id  TEXT NOT NULL,
	booking_id  TEXT NOT NULL,
	action      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	created_on  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_partner_action_audits_booking
	ON partner_action_audits (partner_id, booking_id, created_on DESC)`

type Store struct {
	db *sql.DB
	repository.ActionAuditRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		ActionAuditRepository: NewActionAuditRepository(db),
	}
}

// Migrate creates the audit table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	logger.DatabaseCall("MIGRATE", "partner_action_audits")
	_, err := s.db.ExecContext(ctx, schema)
	logger.DatabaseResult("MIGRATE", 0, err)
	if err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}
