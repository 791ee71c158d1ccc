package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"viaje-seguro-partner/internal/backend"
	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/dashboard"
	"viaje-seguro-partner/internal/delivery"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/security"
	"viaje-seguro-partner/internal/service"
	"viaje-seguro-partner/internal/storage"
)

const testSecret = "a-very-long-secret-used-only-in-tests-1234"

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Refresh(ctx context.Context, partner domain.Partner) (dashboard.Snapshot, error) {
	args := m.Called(ctx, partner)
	return args.Get(0).(dashboard.Snapshot), args.Error(1)
}

func (m *MockDashboardService) Cached(partnerID string) (dashboard.Snapshot, bool) {
	args := m.Called(partnerID)
	return args.Get(0).(dashboard.Snapshot), args.Bool(1)
}

func (m *MockDashboardService) result(args mock.Arguments) (*service.ActionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ActionResult), args.Error(1)
}

func (m *MockDashboardService) Approve(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error) {
	return m.result(m.Called(ctx, partner, bookingID))
}

func (m *MockDashboardService) Reject(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error) {
	return m.result(m.Called(ctx, partner, bookingID))
}

func (m *MockDashboardService) Deliver(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error) {
	return m.result(m.Called(ctx, partner, bookingID))
}

func (m *MockDashboardService) ConfirmReturn(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error) {
	return m.result(m.Called(ctx, partner, bookingID))
}

func (m *MockDashboardService) MarkPaid(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error) {
	return m.result(m.Called(ctx, partner, bookingID))
}

func (m *MockDashboardService) DeliveryPhotos(ctx context.Context, bookingID string) ([]string, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDashboardService) AuditTrail(ctx context.Context, partner domain.Partner, bookingID string) ([]domain.ActionAudit, error) {
	args := m.Called(ctx, partner, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionAudit), args.Error(1)
}

func (m *MockDashboardService) PruneSnapshots(cutoff time.Time) int {
	return m.Called(cutoff).Int(0)
}

type MockCaptureService struct {
	mock.Mock
}

func (m *MockCaptureService) view(args mock.Arguments) (capture.View, error) {
	return args.Get(0).(capture.View), args.Error(1)
}

func (m *MockCaptureService) Open(ctx context.Context, partner domain.Partner, bookingID string, phase domain.DeliveryPhase) (capture.View, error) {
	return m.view(m.Called(ctx, partner, bookingID, phase))
}

func (m *MockCaptureService) Close(partnerID string) error {
	return m.Called(partnerID).Error(0)
}

func (m *MockCaptureService) View(partnerID string) (capture.View, error) {
	return m.view(m.Called(partnerID))
}

func (m *MockCaptureService) PushFrame(partnerID string, r io.Reader) error {
	data, _ := io.ReadAll(r)
	return m.Called(partnerID, data).Error(0)
}

func (m *MockCaptureService) ReportCameraFailure(partnerID, reason string) (capture.View, error) {
	return m.view(m.Called(partnerID, reason))
}

func (m *MockCaptureService) SubmitMileage(ctx context.Context, partnerID, raw string) (capture.View, error) {
	return m.view(m.Called(ctx, partnerID, raw))
}

func (m *MockCaptureService) CapturePhoto(partnerID string, step int) (capture.View, error) {
	return m.view(m.Called(partnerID, step))
}

func (m *MockCaptureService) Retake(ctx context.Context, partnerID string, step int) (capture.View, error) {
	return m.view(m.Called(ctx, partnerID, step))
}

func (m *MockCaptureService) Advance(ctx context.Context, partnerID string) (capture.View, error) {
	return m.view(m.Called(ctx, partnerID))
}

func (m *MockCaptureService) SkipOptional(partnerID string) (capture.View, error) {
	return m.view(m.Called(partnerID))
}

func (m *MockCaptureService) Finalize(ctx context.Context, partner domain.Partner) (*service.FinalizeResult, error) {
	args := m.Called(ctx, partner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FinalizeResult), args.Error(1)
}

func (m *MockCaptureService) ExpireIdle(cutoff time.Time) []string {
	return m.Called(cutoff).Get(0).([]string)
}

type fixture struct {
	dash    *MockDashboardService
	capture *MockCaptureService
	handler http.Handler
	token   string
}

var owner = domain.Partner{ID: "partner-1", Email: "owner@example.com"}

func newFixture(t *testing.T, mockStorage *storage.MockStorageService) *fixture {
	t.Helper()
	tm := security.NewTokenManager(testSecret, "viaje-seguro")
	token, err := tm.GenerateAccessToken(owner.ID, owner.Email, []string{security.RolePartner}, time.Hour)
	require.NoError(t, err)

	f := &fixture{dash: new(MockDashboardService), capture: new(MockCaptureService), token: token}
	f.handler = NewRouter(RouterConfig{
		Dashboards:     f.dash,
		Captures:       f.capture,
		TokenManager:   tm,
		MockStorage:    mockStorage,
		AllowedTypes:   []string{"image/jpeg"},
		MaxUploadBytes: 1 << 20,
	})
	return f
}

func (f *fixture) do(method, path string, body io.Reader, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// authedCtx matches a context carrying the partner and the forwarded token.
func authedCtx(token string) interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		p, ok := PartnerFromContext(ctx)
		fwd, _ := backend.TokenFromContext(ctx)
		return ok && p.ID == owner.ID && fwd == token
	})
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/v1/dashboard", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.dash.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestGetDashboard(t *testing.T) {
	f := newFixture(t, nil)
	snap := dashboard.Snapshot{Pending: []dashboard.Row{{Booking: domain.Booking{ID: "b-1"}}}, Stats: dashboard.Stats{ActiveRentals: 2}}
	f.dash.On("Refresh", authedCtx(f.token), owner).Return(snap, nil).Once()

	rec := f.do(http.MethodGet, "/api/v1/dashboard", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dashboard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "b-1", got.Pending[0].Booking.ID)
	assert.Equal(t, 2, got.Stats.ActiveRentals)

	f.dash.On("Refresh", mock.Anything, owner).Return(dashboard.Snapshot{}, &domain.NetworkError{Op: "list_bookings", Err: errors.New("eof")}).Once()
	rec = f.do(http.MethodGet, "/api/v1/dashboard", nil, true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load your bookings")
}

func TestBookingActions(t *testing.T) {
	tests := []struct {
		path   string
		method string
	}{
		{"/api/v1/bookings/b-1/approve", "Approve"},
		{"/api/v1/bookings/b-1/reject", "Reject"},
		{"/api/v1/bookings/b-1/deliver", "Deliver"},
		{"/api/v1/bookings/b-1/confirm-return", "ConfirmReturn"},
		{"/api/v1/bookings/b-1/mark-paid", "MarkPaid"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			f := newFixture(t, nil)
			res := &service.ActionResult{Notices: []service.Notice{{Level: service.NoticeSuccess, Message: "ok"}}, Snapshot: &dashboard.Snapshot{}}
			f.dash.On(tt.method, authedCtx(f.token), owner, "b-1").Return(res, nil)

			rec := f.do(http.MethodPost, tt.path, nil, true)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"level":"success"`)
			f.dash.AssertExpectations(t)
		})
	}
}

func TestBookingActionErrors(t *testing.T) {
	f := newFixture(t, nil)
	busy := &service.ActionResult{Notices: []service.Notice{{Level: service.NoticeWarning, Message: "This action is already in progress"}}}
	f.dash.On("Approve", mock.Anything, owner, "b-1").Return(busy, domain.ErrActionInFlight)
	f.dash.On("Reject", mock.Anything, owner, "b-1").Return(nil, &domain.NetworkError{Op: "update_status", StatusCode: 422, Err: errors.New("not pending")})

	rec := f.do(http.MethodPost, "/api/v1/bookings/b-1/approve", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")

	rec = f.do(http.MethodPost, "/api/v1/bookings/b-1/reject", nil, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeliveryPhotos(t *testing.T) {
	f := newFixture(t, nil)
	f.dash.On("DeliveryPhotos", mock.Anything, "b-1").Return([]string{"https://cdn/a.jpg"}, nil)
	f.dash.On("DeliveryPhotos", mock.Anything, "b-2").Return(nil, domain.ErrNotFound)

	rec := f.do(http.MethodGet, "/api/v1/bookings/b-1/delivery-photos", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookingId":"b-1","urls":["https://cdn/a.jpg"]}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/v1/bookings/b-2/delivery-photos", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t, nil)
	f.dash.On("AuditTrail", mock.Anything, owner, "b-1").Return([]domain.ActionAudit{{ID: 7, Action: "approve", Outcome: "SUCCESS"}}, nil)

	rec := f.do(http.MethodGet, "/api/v1/bookings/b-1/audit", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"approve"`)
}

func TestCaptureRoutes(t *testing.T) {
	f := newFixture(t, nil)
	view := capture.View{SessionID: "s-1", BookingID: "b-1", Phase: domain.DeliveryPhaseOwnerPre, CurrentStep: capture.MileageStep}

	t.Run("Open", func(t *testing.T) {
		f.capture.On("Open", authedCtx(f.token), owner, "b-1", domain.DeliveryPhaseOwnerPre).Return(view, nil).Once()
		rec := f.do(http.MethodPost, "/api/v1/capture", strings.NewReader(`{"bookingId":"b-1","phase":"OWNER_PRE"}`), true)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"sessionId":"s-1"`)
	})

	t.Run("Open conflict", func(t *testing.T) {
		f.capture.On("Open", mock.Anything, owner, "b-2", domain.DeliveryPhaseOwnerPost).Return(capture.View{}, domain.ErrCaptureSessionActive).Once()
		rec := f.do(http.MethodPost, "/api/v1/capture", strings.NewReader(`{"bookingId":"b-2","phase":"OWNER_POST"}`), true)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Bad body", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/capture", strings.NewReader(`{`), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Mileage as number or string", func(t *testing.T) {
		f.capture.On("SubmitMileage", mock.Anything, owner.ID, "1234.5").Return(view, nil).Once()
		f.capture.On("SubmitMileage", mock.Anything, owner.ID, "99").Return(view, nil).Once()

		rec := f.do(http.MethodPost, "/api/v1/capture/mileage", strings.NewReader(`{"value":1234.5}`), true)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = f.do(http.MethodPost, "/api/v1/capture/mileage", strings.NewReader(`{"value":"99"}`), true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Invalid mileage keeps the view", func(t *testing.T) {
		f.capture.On("SubmitMileage", mock.Anything, owner.ID, "abc").Return(view, domain.NewValidationError("mileage", "invalid mileage")).Once()
		rec := f.do(http.MethodPost, "/api/v1/capture/mileage", strings.NewReader(`{"value":"abc"}`), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"view"`)
		assert.Contains(t, rec.Body.String(), "invalid mileage")
	})

	t.Run("Photo and retake", func(t *testing.T) {
		f.capture.On("CapturePhoto", owner.ID, 2).Return(view, nil).Once()
		f.capture.On("CapturePhoto", owner.ID, 3).Return(view, &domain.CameraNotReadyError{Step: 3}).Once()
		f.capture.On("Retake", mock.Anything, owner.ID, 1).Return(view, nil).Once()

		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/steps/2/photo", nil, true).Code)
		assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/capture/steps/3/photo", nil, true).Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/steps/1/retake", nil, true).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/capture/steps/x/photo", nil, true).Code)
	})

	t.Run("Frame and camera error", func(t *testing.T) {
		f.capture.On("PushFrame", owner.ID, []byte("jpegbytes")).Return(nil).Once()
		f.capture.On("ReportCameraFailure", owner.ID, "NotAllowedError").Return(view, nil).Once()
		f.capture.On("ReportCameraFailure", owner.ID, "").Return(view, nil).Once()

		assert.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/api/v1/capture/frame", bytes.NewReader([]byte("jpegbytes")), true).Code)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/capture/frame", strings.NewReader("not an image"))
		req.Header.Set("Authorization", "Bearer "+f.token)
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/camera-error", strings.NewReader(`{"reason":"NotAllowedError"}`), true).Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/camera-error", nil, true).Code)
	})

	t.Run("Advance, skip, view and close", func(t *testing.T) {
		f.capture.On("Advance", mock.Anything, owner.ID).Return(view, nil).Once()
		f.capture.On("SkipOptional", owner.ID).Return(view, nil).Once()
		f.capture.On("View", owner.ID).Return(view, nil).Once()
		f.capture.On("Close", owner.ID).Return(nil).Once()
		f.capture.On("Close", owner.ID).Return(domain.ErrNoCaptureSession).Once()

		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/advance", nil, true).Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/capture/skip", nil, true).Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/capture", nil, true).Code)
		assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/capture", nil, true).Code)
		assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/capture", nil, true).Code)
	})

	t.Run("Finalize", func(t *testing.T) {
		done := &service.FinalizeResult{
			Upload:  delivery.Result{Stage: delivery.StageDone, BookingID: "b-1"},
			Notices: []service.Notice{{Level: service.NoticeWarning, Message: service.PersistWarning}},
		}
		f.capture.On("Finalize", authedCtx(f.token), owner).Return(done, nil).Once()
		rec := f.do(http.MethodPost, "/api/v1/capture/finalize", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), service.PersistWarning)

		failed := &service.FinalizeResult{Notices: []service.Notice{{Level: service.NoticeError, Message: "upload failed"}}}
		f.capture.On("Finalize", mock.Anything, owner).Return(failed, &domain.NetworkError{Op: "upload_photos", Err: errors.New("reset")}).Once()
		rec = f.do(http.MethodPost, "/api/v1/capture/finalize", nil, true)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "upload failed")
	})

	f.capture.AssertExpectations(t)
}

func TestMockStorageRoutes(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewMockStorageService("http://localhost:8080", dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveFile("deliveries/b-1/odometer.jpg", strings.NewReader("jpeg-data")))
	f := newFixture(t, store)

	rec := f.do(http.MethodGet, "/api/v1/download/any?key=deliveries/b-1/odometer.jpg", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-data", rec.Body.String())

	rec = f.do(http.MethodGet, "/api/v1/download/any?key=missing.jpg", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("Stored photos cannot be overwritten over HTTP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/upload/anything?key=deliveries/b-1/odometer.jpg", strings.NewReader("FORGED"))
		req.Header.Set("Content-Type", "image/jpeg")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusOK, rec.Code)

		rec = f.do(http.MethodGet, "/api/v1/download/any?key=deliveries/b-1/odometer.jpg", nil, false)
		assert.Equal(t, "jpeg-data", rec.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.NewValidationError("x", "y")))
	assert.Equal(t, http.StatusUnauthorized, statusFor(domain.ErrUnauthorized))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNoCaptureSession))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrCaptureSessionActive))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(&domain.CameraAccessError{Reason: "denied"}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&domain.NetworkError{Op: "x", StatusCode: 503, Err: errors.New("down")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
