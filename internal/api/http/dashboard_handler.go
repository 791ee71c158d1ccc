package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/service"
)

// DashboardHandler serves the booking views and the booking actions.
type DashboardHandler struct {
	dashboards service.DashboardService
}

func NewDashboardHandler(dashboards service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	partner, ok := PartnerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	snap, err := h.dashboards.Refresh(r.Context(), partner)
	if err != nil {
		writeError(w, err, service.Notice{Level: service.NoticeError, Message: "Could not load your bookings"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type bookingAction func(ctx context.Context, partner domain.Partner, bookingID string) (*service.ActionResult, error)

func (h *DashboardHandler) action(run bookingAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partner, ok := PartnerFromContext(r.Context())
		if !ok {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		res, err := run(r.Context(), partner, mux.Vars(r)["id"])
		if err != nil {
			var notices []service.Notice
			if res != nil {
				notices = res.Notices
			}
			writeError(w, err, notices...)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *DashboardHandler) Approve() http.HandlerFunc       { return h.action(h.dashboards.Approve) }
func (h *DashboardHandler) Reject() http.HandlerFunc        { return h.action(h.dashboards.Reject) }
func (h *DashboardHandler) Deliver() http.HandlerFunc       { return h.action(h.dashboards.Deliver) }
func (h *DashboardHandler) ConfirmReturn() http.HandlerFunc { return h.action(h.dashboards.ConfirmReturn) }
func (h *DashboardHandler) MarkPaid() http.HandlerFunc      { return h.action(h.dashboards.MarkPaid) }

func (h *DashboardHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	partner, ok := PartnerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	audits, err := h.dashboards.AuditTrail(r.Context(), partner, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audits)
}

func (h *DashboardHandler) DeliveryPhotos(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["id"]
	urls, err := h.dashboards.DeliveryPhotos(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookingId": bookingID, "urls": urls})
}
