package domain

import "time"

// DeliveryPhase tells whether photos document the hand-off to the renter
// (OWNER_PRE) or the vehicle coming back (OWNER_POST).
type DeliveryPhase string

const (
	DeliveryPhaseOwnerPre  DeliveryPhase = "OWNER_PRE"
	DeliveryPhaseOwnerPost DeliveryPhase = "OWNER_POST"
)

func (p DeliveryPhase) Valid() bool {
	return p == DeliveryPhaseOwnerPre || p == DeliveryPhaseOwnerPost
}

// DeliveryMedia is what gets persisted on the backend for one phase of one
// booking. Mileage is omitted when unknown.
type DeliveryMedia struct {
	Phase   DeliveryPhase `json:"phase"`
	URLs    []string      `json:"urls"`
	Mileage *int64        `json:"mileage,omitempty"`
}

// ActionAudit records one mutating request issued from the partner console.
type ActionAudit struct {
	ID        int64     `json:"id"`
	PartnerID string    `json:"partner_id"`
	BookingID string    `json:"booking_id"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedOn time.Time `json:"created_on"`
}

const (
	AuditOutcomeSuccess  = "SUCCESS"
	AuditOutcomeFailure  = "FAILURE"
	AuditOutcomeDegraded = "DEGRADED"
)
