package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"viaje-seguro-partner/internal/backend"
	"viaje-seguro-partner/internal/dashboard"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/metrics"
	"viaje-seguro-partner/internal/repository"
)

type dashboardService struct {
	client     backend.Client
	auditRepo  repository.ActionAuditRepository
	vatPercent float64
	now        func() time.Time

	guard *inFlight

	mu        sync.RWMutex
	snapshots map[string]dashboard.Snapshot
}

func NewDashboardService(
	client backend.Client,
	auditRepo repository.ActionAuditRepository,
	vatPercent float64,
) DashboardService {
	if auditRepo == nil {
		auditRepo = repository.NopAuditRepository{}
	}
	return &dashboardService{
		client:     client,
		auditRepo:  auditRepo,
		vatPercent: vatPercent,
		now:        time.Now,
		guard:      newInFlight(),
		snapshots:  make(map[string]dashboard.Snapshot),
	}
}

func (s *dashboardService) Refresh(ctx context.Context, partner domain.Partner) (dashboard.Snapshot, error) {
	logger.EnterMethod("dashboardService.Refresh", "partnerID", partner.ID)

	bookings, err := s.client.ListPartnerBookings(ctx)
	if err != nil {
		logger.ExitMethodWithError("dashboardService.Refresh", err, "partnerID", partner.ID)
		return dashboard.Snapshot{}, err
	}

	snap := dashboard.Project(bookings, s.now(), s.vatPercent)

	s.mu.Lock()
	s.snapshots[partner.ID] = snap
	metrics.DashboardSnapshots.Set(float64(len(s.snapshots)))
	s.mu.Unlock()

	logger.ExitMethod("dashboardService.Refresh", "partnerID", partner.ID,
		"bookings", len(bookings), "pending", len(snap.Pending), "active", len(snap.Active))
	return snap, nil
}

func (s *dashboardService) Cached(partnerID string) (dashboard.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[partnerID]
	return snap, ok
}

func (s *dashboardService) Approve(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error) {
	return s.mutate(ctx, partner, bookingID, ActionApprove, "Booking approved", func(ctx context.Context) error {
		return s.client.UpdateBookingStatus(ctx, bookingID, domain.BookingStatusApproved)
	})
}

func (s *dashboardService) Reject(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error) {
	return s.mutate(ctx, partner, bookingID, ActionReject, "Booking rejected", func(ctx context.Context) error {
		return s.client.UpdateBookingStatus(ctx, bookingID, domain.BookingStatusDeclined)
	})
}

func (s *dashboardService) Deliver(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error) {
	return s.mutate(ctx, partner, bookingID, ActionDeliver, "Vehicle marked as delivered", func(ctx context.Context) error {
		return s.client.MarkDelivered(ctx, bookingID)
	})
}

func (s *dashboardService) ConfirmReturn(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error) {
	return s.mutate(ctx, partner, bookingID, ActionConfirmReturn, "Return confirmed", func(ctx context.Context) error {
		return s.client.ConfirmReturn(ctx, bookingID)
	})
}

func (s *dashboardService) MarkPaid(ctx context.Context, partner domain.Partner, bookingID string) (*ActionResult, error) {
	return s.mutate(ctx, partner, bookingID, ActionMarkPaid, "Cash payment recorded", func(ctx context.Context) error {
		return s.client.MarkPaid(ctx, bookingID)
	})
}

func (s *dashboardService) DeliveryPhotos(ctx context.Context, bookingID string) ([]string, error) {
	if bookingID == "" {
		return nil, domain.NewValidationError("bookingId", "booking id is required")
	}
	urls, err := s.client.ListDeliveryPhotos(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

func (s *dashboardService) AuditTrail(ctx context.Context, partner domain.Partner, bookingID string) ([]domain.ActionAudit, error) {
	if bookingID == "" {
		return nil, domain.NewValidationError("bookingId", "booking id is required")
	}
	audits, err := s.auditRepo.ListByBooking(ctx, partner.ID, bookingID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}
	if audits == nil {
		audits = []domain.ActionAudit{}
	}
	return audits, nil
}

func (s *dashboardService) PruneSnapshots(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, snap := range s.snapshots {
		if snap.GeneratedAt.Before(cutoff) {
			delete(s.snapshots, id)
			pruned++
		}
	}
	metrics.DashboardSnapshots.Set(float64(len(s.snapshots)))
	return pruned
}

// mutate runs one booking action: guard, call, audit, then re-fetch the list
// so the views reflect the backend's new state.
func (s *dashboardService) mutate(
	ctx context.Context,
	partner domain.Partner,
	bookingID, action, successMsg string,
	call func(ctx context.Context) error,
) (*ActionResult, error) {
	logger.EnterMethod("dashboardService.mutate", "action", action, "bookingID", bookingID)

	if bookingID == "" {
		return nil, domain.NewValidationError("bookingId", "booking id is required")
	}
	release, err := s.guard.acquire(action, bookingID)
	if err != nil {
		logger.ExitMethodWithError("dashboardService.mutate", err, "action", action, "bookingID", bookingID)
		return &ActionResult{Notices: []Notice{{Level: NoticeWarning, Message: "This action is already in progress"}}}, err
	}
	defer release()

	if err := call(ctx); err != nil {
		metrics.BookingActionsTotal.WithLabelValues(action, "failure").Inc()
		recordAudit(ctx, s.auditRepo, partner, bookingID, action, domain.AuditOutcomeFailure, err.Error())
		logger.ExitMethodWithError("dashboardService.mutate", err, "action", action, "bookingID", bookingID)
		return &ActionResult{Notices: []Notice{errorNotice(action, err)}}, err
	}
	metrics.BookingActionsTotal.WithLabelValues(action, "success").Inc()
	recordAudit(ctx, s.auditRepo, partner, bookingID, action, domain.AuditOutcomeSuccess, "")

	res := &ActionResult{Notices: []Notice{{Level: NoticeSuccess, Message: successMsg}}}
	if snap, err := s.Refresh(ctx, partner); err != nil {
		res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: "The action succeeded but the list could not be refreshed"})
	} else {
		res.Snapshot = &snap
	}

	logger.ExitMethod("dashboardService.mutate", "action", action, "bookingID", bookingID)
	return res, nil
}

func errorNotice(action string, err error) Notice {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return Notice{Level: NoticeError, Message: "Your session has expired, sign in again"}
	case errors.Is(err, domain.ErrNotFound):
		return Notice{Level: NoticeError, Message: "Booking not found"}
	case domain.IsValidation(err):
		return Notice{Level: NoticeError, Message: err.Error()}
	}
	return Notice{Level: NoticeError, Message: fmt.Sprintf("Could not %s the booking: %v", actionVerb(action), err)}
}

func actionVerb(action string) string {
	switch action {
	case ActionConfirmReturn:
		return "confirm the return of"
	case ActionMarkPaid:
		return "mark as paid"
	case ActionFinalize:
		return "finalize"
	}
	return action
}

// recordAudit never fails the action it describes.
func recordAudit(ctx context.Context, repo repository.ActionAuditRepository, partner domain.Partner, bookingID, action, outcome, detail string) {
	audit := &domain.ActionAudit{
		PartnerID: partner.ID,
		BookingID: bookingID,
		Action:    action,
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := repo.Create(ctx, audit); err != nil {
		logger.Warn("Failed to record action audit", "action", action, "bookingID", bookingID, "error", err)
	}
}
