package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrActionInFlight       = errors.New("action already in progress for this booking")
	ErrCaptureSessionActive = errors.New("another capture session is already open")
	ErrNoCaptureSession     = errors.New("no capture session is open")
)

// ValidationError is a user mistake the user can correct and retry.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CameraAccessMessage is shown to the user whenever the camera can't be opened.
const CameraAccessMessage = "couldn't access the camera — check permissions and device support"

// CameraAccessError means permission was denied or there is no usable camera.
// It is never retried automatically.
type CameraAccessError struct {
	Reason string
	Err    error
}

func (e *CameraAccessError) Error() string {
	if e.Reason == "" {
		return CameraAccessMessage
	}
	return fmt.Sprintf("%s (%s)", CameraAccessMessage, e.Reason)
}

func (e *CameraAccessError) Unwrap() error { return e.Err }

// CameraNotReadyError is returned when a capture is requested before a frame
// is available.
type CameraNotReadyError struct {
	Step int
}

func (e *CameraNotReadyError) Error() string {
	return fmt.Sprintf("camera is not ready for step %d", e.Step)
}

// NetworkError wraps a failed call to the backend or to object storage.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsCameraAccess(err error) bool {
	var c *CameraAccessError
	return errors.As(err, &c)
}

func IsCameraNotReady(err error) bool {
	var c *CameraNotReadyError
	return errors.As(err, &c)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}
