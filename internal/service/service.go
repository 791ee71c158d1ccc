package service

import (
	"context"
	"io"
	"time"

	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/dashboard"
	"viaje-seguro-partner/internal/delivery"
	"viaje-seguro-partner/internal/domain"
)

// NoticeLevel is how a notice should be rendered.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message produced by an action.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Action names used for in-flight guards, audits and metrics.
const (
	ActionApprove       = "approve"
	ActionReject        = "reject"
	ActionDeliver       = "deliver"
	ActionConfirmReturn = "confirm_return"
	ActionMarkPaid      = "mark_paid"
	ActionFinalize      = "finalize"
)

// ActionResult is returned by every booking mutation. Snapshot is nil when
// the refresh after the mutation failed.
type ActionResult struct {
	Notices  []Notice            `json:"notices"`
	Snapshot *dashboard.Snapshot `json:"snapshot,omitempty"`
}

// FinalizeResult is returned when a capture session is finalized.
type FinalizeResult struct {
	Upload   delivery.Result     `json:"upload"`
	Notices  []Notice            `json:"notices"`
	Snapshot *dashboard.Snapshot `json:"snapshot,omitempty"`
}

type DashboardService interface {
	// Refresh fetches the partner's bookings and replaces the cached snapshot.
	Refresh(ctx context.Context, partner domain.Partner) (dashboard.Snapshot, error)
	Cached(partnerID string) (dashboard.Snapshot, bool)
	Approve(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error)
	Reject(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error)
	Deliver(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error)
	ConfirmReturn(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error)
	MarkPaid(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error)
	DeliveryPhotos(ctx context.Context, bookingID string) ([]string, error)
	// AuditTrail lists the partner's recorded actions on a booking, newest
	// first.
	AuditTrail(ctx context.Context, partner domain.Partner, bookingID string) ([]domain.ActionAudit, error)
	// PruneSnapshots drops snapshots generated before cutoff.
	PruneSnapshots(cutoff time.Time) int
}

type CaptureService interface {
	Open(ctx context.Context, partner domain.Partner, bookingID string, phase domain.DeliveryPhase) (capture.View, error)
	Close(partnerID string) error
	View(partnerID string) (capture.View, error)
	PushFrame(partnerID string, r io.Reader) error
	ReportCameraFailure(partnerID, reason string) (capture.View, error)
	SubmitMileage(ctx context.Context, partnerID, raw string) (capture.View, error)
	CapturePhoto(partnerID string, step int) (capture.View, error)
	Retake(ctx context.Context, partnerID string, step int) (capture.View, error)
	Advance(ctx context.Context, partnerID string) (capture.View, error)
	SkipOptional(partnerID string) (capture.View, error)
	Finalize(ctx context.Context, partner domain.Partner) (*FinalizeResult, error)
	// ExpireIdle closes every session untouched since cutoff and returns
	// their booking ids.
	ExpireIdle(cutoff time.Time) []string
}
