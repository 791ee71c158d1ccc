package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"viaje-seguro-partner/internal/security"
	"viaje-seguro-partner/internal/service"
	"viaje-seguro-partner/internal/storage"
)

type RouterConfig struct {
	Dashboards   service.DashboardService
	Captures     service.CaptureService
	TokenManager security.TokenManager
	// MockStorage is nil unless photos are stored locally.
	MockStorage    *storage.MockStorageService
	AllowedTypes   []string
	MaxUploadBytes int64
}

// NewRouter builds the console API. Every route is named; the name decides
// whether the auth middleware requires a token.
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware, LoggingMiddleware, NewAuthMiddleware(cfg.TokenManager).Handler)

	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet).Name("health")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	if cfg.MockStorage != nil {
		RegisterMockStorageRoutes(router, NewImageUploadHandler(cfg.MockStorage))
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	dash := NewDashboardHandler(cfg.Dashboards)
	api.HandleFunc("/dashboard", dash.GetDashboard).Methods(http.MethodGet).Name("dashboard")
	api.HandleFunc("/bookings/{id}/approve", dash.Approve()).Methods(http.MethodPost).Name("booking_approve")
	api.HandleFunc("/bookings/{id}/reject", dash.Reject()).Methods(http.MethodPost).Name("booking_reject")
	api.HandleFunc("/bookings/{id}/deliver", dash.Deliver()).Methods(http.MethodPost).Name("booking_deliver")
	api.HandleFunc("/bookings/{id}/confirm-return", dash.ConfirmReturn()).Methods(http.MethodPost).Name("booking_confirm_return")
	api.HandleFunc("/bookings/{id}/mark-paid", dash.MarkPaid()).Methods(http.MethodPost).Name("booking_mark_paid")
	api.HandleFunc("/bookings/{id}/delivery-photos", dash.DeliveryPhotos).Methods(http.MethodGet).Name("booking_photos")
	api.HandleFunc("/bookings/{id}/audit", dash.AuditTrail).Methods(http.MethodGet).Name("booking_audit")

	capture := NewCaptureHandler(cfg.Captures, cfg.AllowedTypes, cfg.MaxUploadBytes)
	api.HandleFunc("/capture", capture.Open).Methods(http.MethodPost).Name("capture_open")
	api.HandleFunc("/capture", capture.View).Methods(http.MethodGet).Name("capture_view")
	api.HandleFunc("/capture", capture.Close).Methods(http.MethodDelete).Name("capture_close")
	api.HandleFunc("/capture/frame", capture.Frame).Methods(http.MethodPut).Name("capture_frame")
	api.HandleFunc("/capture/camera-error", capture.CameraError).Methods(http.MethodPost).Name("capture_camera_error")
	api.HandleFunc("/capture/mileage", capture.Mileage).Methods(http.MethodPost).Name("capture_mileage")
	api.HandleFunc("/capture/steps/{step}/photo", capture.Photo).Methods(http.MethodPost).Name("capture_photo")
	api.HandleFunc("/capture/steps/{step}/retake", capture.Retake).Methods(http.MethodPost).Name("capture_retake")
	api.HandleFunc("/capture/advance", capture.Advance).Methods(http.MethodPost).Name("capture_advance")
	api.HandleFunc("/capture/skip", capture.Skip).Methods(http.MethodPost).Name("capture_skip")
	api.HandleFunc("/capture/finalize", capture.Finalize).Methods(http.MethodPost).Name("capture_finalize")

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
