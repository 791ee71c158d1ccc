package http

import (
	"encoding/json"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/service"
)

// CaptureHandler exposes the photo wizard of the signed-in partner.
type CaptureHandler struct {
	captures      service.CaptureService
	frameTypes    []string
	maxFrameBytes int64
}

func NewCaptureHandler(captures service.CaptureService, frameTypes []string, maxFrameBytes int64) *CaptureHandler {
	if len(frameTypes) == 0 {
		frameTypes = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if maxFrameBytes <= 0 {
		maxFrameBytes = 10 << 20
	}
	return &CaptureHandler{captures: captures, frameTypes: frameTypes, maxFrameBytes: maxFrameBytes}
}

type openCaptureRequest struct {
	BookingID string               `json:"bookingId"`
	Phase     domain.DeliveryPhase `json:"phase"`
}

type mileageRequest struct {
	// Value is kept as raw JSON text so both 1234 and "1234" are accepted.
	Value rawValue `json:"value"`
}

type rawValue string

func (v *rawValue) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*v = rawValue(s)
		return nil
	}
	*v = rawValue(strings.TrimSpace(string(b)))
	return nil
}

type cameraErrorRequest struct {
	Reason string `json:"reason"`
}

func (h *CaptureHandler) Open(w http.ResponseWriter, r *http.Request) {
	partner, ok := PartnerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	var req openCaptureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.captures.Open(r.Context(), partner, req.BookingID, req.Phase)
	h.respond(w, http.StatusCreated, view, err)
}

func (h *CaptureHandler) View(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	view, err := h.captures.View(partner.ID)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Close(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	if err := h.captures.Close(partner.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CaptureHandler) Frame(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	// A frame without a declared type is sniffed by the decoder.
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if !slices.Contains(h.frameTypes, strings.ToLower(mediaType)) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "unsupported frame type: " + ct})
			return
		}
	}
	body := http.MaxBytesReader(w, r.Body, h.maxFrameBytes)
	if err := h.captures.PushFrame(partner.ID, body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CaptureHandler) CameraError(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	var req cameraErrorRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	view, err := h.captures.ReportCameraFailure(partner.ID, req.Reason)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Mileage(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	var req mileageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.captures.SubmitMileage(r.Context(), partner.ID, string(req.Value))
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Photo(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	step, err := stepParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.captures.CapturePhoto(partner.ID, step)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Retake(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	step, err := stepParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.captures.Retake(r.Context(), partner.ID, step)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Advance(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	view, err := h.captures.Advance(r.Context(), partner.ID)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Skip(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	view, err := h.captures.SkipOptional(partner.ID)
	h.respond(w, http.StatusOK, view, err)
}

func (h *CaptureHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	partner, _ := PartnerFromContext(r.Context())
	res, err := h.captures.Finalize(r.Context(), partner)
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

// respond writes the wizard state. On a user error the state is still sent
// so the UI can keep rendering it.
func (h *CaptureHandler) respond(w http.ResponseWriter, status int, view capture.View, err error) {
	if err == nil {
		writeJSON(w, status, view)
		return
	}
	if view.SessionID == "" {
		writeError(w, err)
		return
	}
	writeJSON(w, statusFor(err), struct {
		Error string       `json:"error"`
		View  capture.View `json:"view"`
	}{Error: err.Error(), View: view})
}

func stepParam(r *http.Request) (int, error) {
	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil {
		return 0, domain.NewValidationError("step", "step must be a number")
	}
	return step, nil
}
