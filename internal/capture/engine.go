package capture

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"viaje-seguro-partner/internal/camera"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
)

// Session is the state of one capture wizard for one booking and phase.
type Session struct {
	ID          string
	BookingID   string
	Phase       domain.DeliveryPhase
	Mileage     *int64
	CurrentStep int
	Images      [StepCount][]byte
	OpenedAt    time.Time
	TouchedAt   time.Time
}

// Filled reports which slots hold a photo.
func (s Session) Filled() [StepCount]bool {
	var out [StepCount]bool
	for i, img := range s.Images {
		out[i] = len(img) > 0
	}
	return out
}

// FilledCount is the number of non-empty slots.
func (s Session) FilledCount() int {
	n := 0
	for _, img := range s.Images {
		if len(img) > 0 {
			n++
		}
	}
	return n
}

// RequiredFilled reports whether every mandatory slot holds a photo.
func (s Session) RequiredFilled() bool {
	for i := 0; i < RequiredPhotos; i++ {
		if len(s.Images[i]) == 0 {
			return false
		}
	}
	return true
}

// Engine drives the mileage form and the photo steps. Every step change
// releases the camera and acquires it again for the new step.
type Engine struct {
	mu      sync.Mutex
	camera  *camera.Session
	session Session
	closed  bool
	now     func() time.Time
}

// NewEngine opens a wizard for the booking. The camera stays off until the
// mileage has been accepted.
func NewEngine(bookingID string, phase domain.DeliveryPhase, cam *camera.Session) *Engine {
	e := &Engine{
		camera: cam,
		now:    time.Now,
	}
	e.session = Session{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		Phase:     phase,
	}
	e.Start()
	return e
}

// Start resets all state back to the mileage form.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.closed = false
	logger.CaptureEvent(e.session.BookingID, "start", MileageStep, "phase", e.session.Phase)
}

func (e *Engine) resetLocked() {
	e.camera.Close()
	now := e.now()
	e.session.Mileage = nil
	e.session.CurrentStep = MileageStep
	e.session.Images = [StepCount][]byte{}
	e.session.OpenedAt = now
	e.session.TouchedAt = now
}

// ParseMileage accepts a finite, non-negative number. The fractional part of
// the reading is dropped.
func ParseMileage(raw string) (int64, error) {
	invalid := domain.NewValidationError("mileage", "invalid mileage")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, invalid
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= math.MaxInt64 {
		return 0, invalid
	}
	return int64(math.Floor(v)), nil
}

// SubmitMileage validates the reading and moves to the first photo step. A
// camera failure does not undo the move; it is returned and kept in View.
func (e *Engine) SubmitMileage(ctx context.Context, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if e.session.CurrentStep != MileageStep {
		return domain.NewValidationError("mileage", "mileage was already recorded")
	}

	mileage, err := ParseMileage(raw)
	if err != nil {
		logger.CaptureEvent(e.session.BookingID, "mileage_rejected", MileageStep, "value", raw)
		return err
	}
	e.session.Mileage = &mileage
	logger.CaptureEvent(e.session.BookingID, "mileage_accepted", MileageStep, "mileage", mileage)
	return e.moveToLocked(ctx, 0)
}

// CapturePhoto stores the current frame in slot step. It never advances.
func (e *Engine) CapturePhoto(step int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if step < 0 || step >= StepCount {
		return domain.NewValidationError("step", "unknown capture step")
	}
	if step != e.session.CurrentStep {
		return domain.NewValidationError("step", "only the current step can be captured")
	}
	if len(e.session.Images[step]) > 0 {
		return domain.NewValidationError("step", "photo already taken, retake it to replace")
	}

	still, err := e.camera.Snapshot()
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) || errors.Is(err, camera.ErrStopped) {
			return &domain.CameraNotReadyError{Step: step}
		}
		return err
	}
	e.session.Images[step] = still
	e.session.TouchedAt = e.now()
	logger.CaptureEvent(e.session.BookingID, "captured", step, "bytes", len(still))
	return nil
}

// Retake clears slot step and makes it the current step again.
func (e *Engine) Retake(ctx context.Context, step int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if step < 0 || step >= StepCount {
		return domain.NewValidationError("step", "unknown capture step")
	}
	if e.session.CurrentStep == MileageStep {
		return domain.NewValidationError("mileage", "record the mileage first")
	}
	// Only steps already reached can be retaken.
	if step > e.session.CurrentStep {
		return domain.NewValidationError("step", "finish the current step first")
	}
	e.session.Images[step] = nil
	logger.CaptureEvent(e.session.BookingID, "retake", step)
	return e.moveToLocked(ctx, step)
}

// Advance moves to the next step once the current one has a photo. At the
// last step it does nothing.
func (e *Engine) Advance(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	cur := e.session.CurrentStep
	if cur == MileageStep {
		return domain.NewValidationError("mileage", "record the mileage first")
	}
	if cur >= lastStep {
		return nil
	}
	if len(e.session.Images[cur]) == 0 {
		return domain.NewValidationError("step", "capture a photo before continuing")
	}
	return e.moveToLocked(ctx, cur+1)
}

// CanFinalize is true once every mandatory slot is filled.
func (e *Engine) CanFinalize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.session.RequiredFilled()
}

// CanSkipOptional is true while the optional last step is on screen without a
// photo and everything before it is done.
func (e *Engine) CanSkipOptional() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canSkipLocked()
}

func (e *Engine) canSkipLocked() bool {
	return !e.closed &&
		e.session.CurrentStep == lastStep &&
		len(e.session.Images[lastStep]) == 0 &&
		e.session.RequiredFilled()
}

// SkipOptional releases the camera so the session can be finalized without the
// detail photo.
func (e *Engine) SkipOptional() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if !e.canSkipLocked() {
		return domain.NewValidationError("step", "the optional photo can only be skipped from its own step")
	}
	e.camera.Close()
	logger.CaptureEvent(e.session.BookingID, "skip_optional", lastStep)
	return nil
}

// Close releases the camera and discards everything captured.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.resetLocked()
	e.closed = true
	logger.CaptureEvent(e.session.BookingID, "closed", MileageStep)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Session returns a copy of the current state; image slices are shared and
// must not be modified.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// IdleSince is the last time the user interacted with the wizard.
func (e *Engine) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.TouchedAt
}

// View is the read model rendered by the UI.
type View struct {
	SessionID       string               `json:"sessionId"`
	BookingID       string               `json:"bookingId"`
	Phase           domain.DeliveryPhase `json:"phase"`
	Mileage         *int64               `json:"mileage,omitempty"`
	CurrentStep     int                  `json:"currentStep"`
	Step            *Step                `json:"step,omitempty"`
	Filled          [StepCount]bool      `json:"filled"`
	CameraReady     bool                 `json:"cameraReady"`
	CameraError     string               `json:"cameraError,omitempty"`
	CanFinalize     bool                 `json:"canFinalize"`
	CanSkipOptional bool                 `json:"canSkipOptional"`
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		SessionID:       e.session.ID,
		BookingID:       e.session.BookingID,
		Phase:           e.session.Phase,
		Mileage:         e.session.Mileage,
		CurrentStep:     e.session.CurrentStep,
		Filled:          e.session.Filled(),
		CameraReady:     e.camera.Ready(),
		CanFinalize:     !e.closed && e.session.RequiredFilled(),
		CanSkipOptional: e.canSkipLocked(),
	}
	if e.session.CurrentStep >= 0 {
		step := Steps[e.session.CurrentStep]
		v.Step = &step
	}
	if err := e.camera.Err(); err != nil {
		v.CameraError = err.Error()
	}
	return v
}

func (e *Engine) usableLocked() error {
	if e.closed {
		return domain.ErrNoCaptureSession
	}
	e.session.TouchedAt = e.now()
	return nil
}

func (e *Engine) moveToLocked(ctx context.Context, step int) error {
	e.camera.Close()
	e.session.CurrentStep = step
	logger.CaptureEvent(e.session.BookingID, "enter_step", step, "key", Steps[step].Key)
	return e.camera.Open(ctx)
}
