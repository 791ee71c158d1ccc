package service

import (
	"context"
	"io"
	"sync"
	"time"

	"viaje-seguro-partner/internal/backend"
	"viaje-seguro-partner/internal/camera"
	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/delivery"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/metrics"
	"viaje-seguro-partner/internal/repository"
	"viaje-seguro-partner/internal/storage"
)

// PersistWarning is shown when the photos reached storage but the backend did
// not record them.
const PersistWarning = "photos uploaded but not recorded on the server"

// ReturnNotConfirmed is shown when a return capture could not be recorded.
const ReturnNotConfirmed = "return not confirmed; confirm it again from the dashboard"

// FrameSink is implemented by camera providers the device pushes frames to.
type FrameSink interface {
	PushFrame(r io.Reader) error
	ReportFailure(reason string)
}

type CaptureOptions struct {
	Render camera.RenderOptions
	// NewProvider returns the camera of a new session. Defaults to a
	// camera.FeedProvider.
	NewProvider func() camera.Provider
}

type captureEntry struct {
	partner    domain.Partner
	provider   camera.Provider
	camera     *camera.Session
	engine     *capture.Engine
	reconciler *delivery.Reconciler
}

type captureService struct {
	client     backend.Client
	uploader   storage.Uploader
	dashboards DashboardService
	auditRepo  repository.ActionAuditRepository
	notifier   ReceiptNotifier
	opts       CaptureOptions

	guard *inFlight

	mu       sync.Mutex
	sessions map[string]*captureEntry
}

func NewCaptureService(
	client backend.Client,
	uploader storage.Uploader,
	dashboards DashboardService,
	auditRepo repository.ActionAuditRepository,
	notifier ReceiptNotifier,
	opts CaptureOptions,
) CaptureService {
	if auditRepo == nil {
		auditRepo = repository.NopAuditRepository{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.NewProvider == nil {
		opts.NewProvider = func() camera.Provider { return camera.NewFeedProvider() }
	}
	return &captureService{
		client:     client,
		uploader:   uploader,
		dashboards: dashboards,
		auditRepo:  auditRepo,
		notifier:   notifier,
		opts:       opts,
		guard:      newInFlight(),
		sessions:   make(map[string]*captureEntry),
	}
}

func (s *captureService) Open(ctx context.Context, partner domain.Partner, bookingID string, phase domain.DeliveryPhase) (capture.View, error) {
	logger.EnterMethod("captureService.Open", "partnerID", partner.ID, "bookingID", bookingID, "phase", phase)

	if bookingID == "" {
		return capture.View{}, domain.NewValidationError("bookingId", "booking id is required")
	}
	if !phase.Valid() {
		return capture.View{}, domain.NewValidationError("phase", "phase must be OWNER_PRE or OWNER_POST")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[partner.ID]; exists {
		logger.ExitMethodWithError("captureService.Open", domain.ErrCaptureSessionActive, "partnerID", partner.ID)
		return capture.View{}, domain.ErrCaptureSessionActive
	}

	provider := s.opts.NewProvider()
	cam := camera.NewSession(provider, s.opts.Render)
	entry := &captureEntry{
		partner:    partner,
		provider:   provider,
		camera:     cam,
		engine:     capture.NewEngine(bookingID, phase, cam),
		reconciler: delivery.NewReconciler(s.uploader, s.client),
	}
	s.sessions[partner.ID] = entry
	metrics.CaptureSessionsOpenedTotal.WithLabelValues(string(phase)).Inc()

	logger.ExitMethod("captureService.Open", "partnerID", partner.ID, "sessionID", entry.engine.Session().ID)
	return entry.engine.View(), nil
}

func (s *captureService) Close(partnerID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[partnerID]
	delete(s.sessions, partnerID)
	s.mu.Unlock()

	if !ok {
		return domain.ErrNoCaptureSession
	}
	entry.engine.Close()
	return nil
}

func (s *captureService) View(partnerID string) (capture.View, error) {
	entry, err := s.entry(partnerID)
	if err != nil {
		return capture.View{}, err
	}
	return entry.engine.View(), nil
}

func (s *captureService) PushFrame(partnerID string, r io.Reader) error {
	entry, err := s.entry(partnerID)
	if err != nil {
		return err
	}
	sink, ok := entry.provider.(FrameSink)
	if !ok {
		return domain.NewValidationError("frame", "this camera does not accept frames")
	}
	return sink.PushFrame(r)
}

// ReportCameraFailure puts the camera in its error state. The session stays
// open so the user can close it or retry from another device.
func (s *captureService) ReportCameraFailure(partnerID, reason string) (capture.View, error) {
	entry, err := s.entry(partnerID)
	if err != nil {
		return capture.View{}, err
	}
	sink, ok := entry.provider.(FrameSink)
	if !ok {
		return capture.View{}, domain.NewValidationError("camera", "this camera does not report failures")
	}
	sink.ReportFailure(reason)

	entry.camera.Close()
	if err := entry.camera.Open(context.Background()); err != nil {
		metrics.CameraAccessErrorsTotal.Inc()
		logger.Warn("Camera unavailable", "partnerID", partnerID, "reason", reason)
	}
	return entry.engine.View(), nil
}

func (s *captureService) SubmitMileage(ctx context.Context, partnerID, raw string) (capture.View, error) {
	return s.step(partnerID, func(e *capture.Engine) error { return e.SubmitMileage(ctx, raw) })
}

func (s *captureService) CapturePhoto(partnerID string, step int) (capture.View, error) {
	view, err := s.step(partnerID, func(e *capture.Engine) error { return e.CapturePhoto(step) })
	if err == nil {
		metrics.PhotosCapturedTotal.WithLabelValues(capture.Steps[step].Key).Inc()
	}
	return view, err
}

func (s *captureService) Retake(ctx context.Context, partnerID string, step int) (capture.View, error) {
	return s.step(partnerID, func(e *capture.Engine) error { return e.Retake(ctx, step) })
}

func (s *captureService) Advance(ctx context.Context, partnerID string) (capture.View, error) {
	return s.step(partnerID, func(e *capture.Engine) error { return e.Advance(ctx) })
}

func (s *captureService) SkipOptional(partnerID string) (capture.View, error) {
	return s.step(partnerID, func(e *capture.Engine) error { return e.SkipOptional() })
}

// step runs one wizard operation. Camera access failures leave the wizard on
// its new step and are reported through the view.
func (s *captureService) step(partnerID string, op func(e *capture.Engine) error) (capture.View, error) {
	entry, err := s.entry(partnerID)
	if err != nil {
		return capture.View{}, err
	}
	if err := op(entry.engine); err != nil {
		if domain.IsCameraAccess(err) {
			metrics.CameraAccessErrorsTotal.Inc()
			return entry.engine.View(), nil
		}
		return entry.engine.View(), err
	}
	return entry.engine.View(), nil
}

// Finalize uploads and records the photos, then asks the backend for the
// status transition of the phase: delivered for OWNER_PRE, returned for
// OWNER_POST. The transition is attempted even when recording failed.
func (s *captureService) Finalize(ctx context.Context, partner domain.Partner) (*FinalizeResult, error) {
	logger.EnterMethod("captureService.Finalize", "partnerID", partner.ID)

	entry, err := s.entry(partner.ID)
	if err != nil {
		return nil, err
	}
	session := entry.engine.Session()
	release, err := s.guard.acquire(ActionFinalize, session.BookingID)
	if err != nil {
		return &FinalizeResult{
			Upload:  entry.reconciler.Last(),
			Notices: []Notice{{Level: NoticeWarning, Message: "Photos are already being uploaded"}},
		}, err
	}
	defer release()

	// Once started, the upload runs to the end even if the caller goes away.
	work := context.WithoutCancel(ctx)

	var urls []string
	started := time.Now()
	upload, err := entry.reconciler.Finalize(work, entry.engine, func(u []string) { urls = u })
	if upload.Stage != delivery.StageIdle {
		metrics.FinalizeTotal.WithLabelValues(string(session.Phase), string(upload.Stage)).Inc()
	}
	if len(upload.URLs) > 0 {
		metrics.UploadDuration.Observe(time.Since(started).Seconds())
	}

	res := &FinalizeResult{Upload: upload}
	degraded := false
	switch {
	case err == nil:
		res.Notices = append(res.Notices, Notice{Level: NoticeSuccess, Message: "Photos saved"})
	case upload.PersistFailed:
		degraded = true
		urls = upload.URLs
		res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: PersistWarning})
	default:
		// Nothing was recorded; the session stays open for a retry.
		if !domain.IsValidation(err) {
			recordAudit(work, s.auditRepo, partner, session.BookingID, ActionFinalize, domain.AuditOutcomeFailure, err.Error())
		}
		res.Notices = append(res.Notices, errorNotice(ActionFinalize, err))
		logger.ExitMethodWithError("captureService.Finalize", err, "bookingID", session.BookingID)
		return res, err
	}

	outcome := domain.AuditOutcomeSuccess
	if degraded {
		outcome = domain.AuditOutcomeDegraded
		entry.engine.Close()
	}
	recordAudit(work, s.auditRepo, partner, session.BookingID, ActionFinalize, outcome, upload.Err)

	// A return is not confirmed on photos the backend never recorded.
	if degraded && session.Phase == domain.DeliveryPhaseOwnerPost {
		res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: ReturnNotConfirmed})
	} else if err := s.transition(work, session); err != nil {
		res.Notices = append(res.Notices, Notice{Level: NoticeError, Message: "Photos are stored but the booking status could not be updated: " + err.Error()})
	} else {
		res.Notices = append(res.Notices, Notice{Level: NoticeSuccess, Message: transitionMessage(session.Phase)})
	}

	s.mu.Lock()
	if s.sessions[partner.ID] == entry {
		delete(s.sessions, partner.ID)
	}
	s.mu.Unlock()

	receipt := Receipt{BookingID: session.BookingID, Phase: session.Phase, Mileage: session.Mileage, URLs: urls, Degraded: degraded}
	if err := s.notifier.SendDeliveryReceipt(work, partner, receipt); err != nil {
		logger.Warn("Delivery receipt not sent", "bookingID", session.BookingID, "error", err)
	}

	if s.dashboards != nil {
		if snap, err := s.dashboards.Refresh(ctx, partner); err == nil {
			res.Snapshot = &snap
		}
	}

	logger.ExitMethod("captureService.Finalize", "bookingID", session.BookingID, "photos", len(urls), "degraded", degraded)
	return res, nil
}

func (s *captureService) transition(ctx context.Context, session capture.Session) error {
	action := ActionDeliver
	call := s.client.MarkDelivered
	if session.Phase == domain.DeliveryPhaseOwnerPost {
		action = ActionConfirmReturn
		call = s.client.ConfirmReturn
	}

	err := call(ctx, session.BookingID)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		logger.Error("Status transition after finalize failed", "bookingID", session.BookingID, "action", action, "error", err)
	}
	metrics.BookingActionsTotal.WithLabelValues(action, outcome).Inc()
	return err
}

func transitionMessage(phase domain.DeliveryPhase) string {
	if phase == domain.DeliveryPhaseOwnerPost {
		return "Return confirmed"
	}
	return "Vehicle marked as delivered"
}

// ExpireIdle closes sessions nobody touched since cutoff. A session with an
// upload in progress is left alone.
func (s *captureService) ExpireIdle(cutoff time.Time) []string {
	s.mu.Lock()
	var expired []*captureEntry
	for id, entry := range s.sessions {
		if entry.engine.IdleSince().After(cutoff) {
			continue
		}
		if stage := entry.reconciler.Last().Stage; stage == delivery.StageUploading || stage == delivery.StagePersisting {
			continue
		}
		expired = append(expired, entry)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	bookings := make([]string, 0, len(expired))
	for _, entry := range expired {
		entry.engine.Close()
		bookings = append(bookings, entry.engine.Session().BookingID)
		metrics.CaptureSessionsExpiredTotal.Inc()
		logger.Info("Capture session expired", "partnerID", entry.partner.ID, "bookingID", entry.engine.Session().BookingID)
	}
	return bookings
}

func (s *captureService) entry(partnerID string) (*captureEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[partnerID]
	if !ok {
		return nil, domain.ErrNoCaptureSession
	}
	return entry, nil
}
