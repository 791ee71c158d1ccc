package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/storage"
)

// Stage is where a finalize attempt currently stands.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageUploading  Stage = "uploading"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// MediaStore persists the delivery record of one booking.
type MediaStore interface {
	SaveDeliveryMedia(ctx context.Context, bookingID string, media domain.DeliveryMedia) error
}

// Result describes the last finalize attempt.
type Result struct {
	Stage     Stage    `json:"stage"`
	BookingID string   `json:"bookingId"`
	Phase     string   `json:"phase"`
	URLs      []string `json:"urls,omitempty"`
	Mileage   *int64   `json:"mileage,omitempty"`
	Err       string   `json:"error,omitempty"`

	// PersistFailed means the photos are stored but the backend has no record
	// pointing at them.
	PersistFailed bool      `json:"persistFailed"`
	FinishedAt    time.Time `json:"finishedAt,omitempty"`
}

// Reconciler uploads the photos of a finished capture session and records
// them on the backend. Only one finalize runs at a time.
type Reconciler struct {
	uploader storage.Uploader
	store    MediaStore

	mu      sync.Mutex
	running bool
	last    Result
}

func NewReconciler(uploader storage.Uploader, store MediaStore) *Reconciler {
	return &Reconciler{
		uploader: uploader,
		store:    store,
		last:     Result{Stage: StageIdle},
	}
}

// UploadPrefix is the storage folder for a booking's delivery photos.
func UploadPrefix(bookingID string) string {
	return "deliveries/" + bookingID
}

// Finalize uploads, then persists, then calls onComplete with the URLs
// exactly once and closes the engine. An upload failure leaves the engine
// untouched so the user can retry. A persist failure is returned as-is with
// the stage set to failed and PersistFailed set; the uploaded objects stay.
func (r *Reconciler) Finalize(ctx context.Context, engine *capture.Engine, onComplete func(urls []string)) (Result, error) {
	if !engine.CanFinalize() {
		return r.Last(), domain.NewValidationError("photos", "take all required photos before finishing")
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return r.Last(), domain.ErrActionInFlight
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	session := engine.Session()
	log := logger.WithBooking(session.BookingID)
	res := Result{
		BookingID: session.BookingID,
		Phase:     string(session.Phase),
		Mileage:   session.Mileage,
	}

	files := filesOf(session)
	r.enter(&res, StageUploading)
	log.Info("Uploading delivery photos", "phase", session.Phase, "count", len(files))

	urls, err := r.uploader.UploadFiles(ctx, UploadPrefix(session.BookingID), files)
	if err != nil {
		err = &domain.NetworkError{Op: "upload_photos", Err: err}
		return r.fail(&res, err, false), err
	}
	res.URLs = urls

	r.enter(&res, StagePersisting)
	media := domain.DeliveryMedia{Phase: session.Phase, URLs: urls, Mileage: session.Mileage}
	if err := r.store.SaveDeliveryMedia(ctx, session.BookingID, media); err != nil {
		log.Error("Delivery photos uploaded but not recorded", "error", err, "urls", len(urls))
		err = fmt.Errorf("record delivery media: %w", err)
		return r.fail(&res, err, true), err
	}

	if onComplete != nil {
		onComplete(urls)
	}
	engine.Close()

	res.FinishedAt = time.Now()
	r.enter(&res, StageDone)
	log.Info("Delivery photos recorded", "phase", session.Phase, "count", len(urls))
	return res, nil
}

// Last returns the outcome of the most recent attempt.
func (r *Reconciler) Last() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reconciler) enter(res *Result, stage Stage) {
	res.Stage = stage
	r.mu.Lock()
	r.last = *res
	r.mu.Unlock()
}

func (r *Reconciler) fail(res *Result, err error, persistFailed bool) Result {
	res.Err = err.Error()
	res.PersistFailed = persistFailed
	res.FinishedAt = time.Now()
	r.enter(res, StageFailed)
	return *res
}

// filesOf lists the filled slots in step order; an empty optional slot is
// left out.
func filesOf(s capture.Session) []storage.File {
	files := make([]storage.File, 0, capture.StepCount)
	for i, img := range s.Images {
		if len(img) == 0 {
			continue
		}
		files = append(files, storage.File{
			Name:        capture.Steps[i].Key + ".jpg",
			ContentType: "image/jpeg",
			Data:        img,
		})
	}
	return files
}
