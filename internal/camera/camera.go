package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
)

var (
	ErrNotReady = errors.New("camera has no live frame")
	ErrStopped  = errors.New("camera stream stopped")
)

type Facing string

const (
	FacingEnvironment Facing = "environment"
)

// Constraints are the media constraints requested on Open.
type Constraints struct {
	Facing Facing
}

// Stream is a live video source bound to a surface.
type Stream interface {
	// Frame returns the frame currently displayed on the surface.
	Frame() (image.Image, error)
	// Stop stops every track of the stream.
	Stop()
}

// Provider grants access to a camera. Implementations return a
// *domain.CameraAccessError when permission is denied or no device exists.
type Provider interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// RenderOptions control how a frame is turned into a still.
type RenderOptions struct {
	MaxWidth int
	Quality  int
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	return o
}

// Session owns at most one stream at a time. Open and Close are paired; Close
// is safe to call on a closed session.
type Session struct {
	provider Provider
	opts     RenderOptions

	mu     sync.Mutex
	stream Stream
	err    error
}

func NewSession(provider Provider, opts RenderOptions) *Session {
	return &Session{provider: provider, opts: opts.withDefaults()}
}

// Open requests a rear-facing stream. On failure the session is left in an
// error state with no stream.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil
	}

	logger.ExternalServiceCall("camera", "open", "facing", FacingEnvironment)
	stream, err := s.provider.Open(ctx, Constraints{Facing: FacingEnvironment})
	if err != nil {
		if !domain.IsCameraAccess(err) {
			err = &domain.CameraAccessError{Reason: err.Error(), Err: err}
		}
		s.err = err
		logger.ExternalServiceResult("camera", "open", err)
		return err
	}
	logger.ExternalServiceResult("camera", "open", nil)

	s.stream = stream
	s.err = nil
	return nil
}

// Close stops all tracks and detaches the surface.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}
	s.stream.Stop()
	s.stream = nil
	logger.Debug("camera stream released")
}

// Ready reports whether a stream is bound.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Err returns the last access error, if the session is in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot renders the current frame to a JPEG still.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return nil, ErrNotReady
	}
	frame, err := stream.Frame()
	if err != nil {
		return nil, err
	}
	return RenderStill(frame, s.opts)
}

// RenderStill draws frame onto a canvas no wider than opts.MaxWidth and
// encodes it as JPEG.
func RenderStill(frame image.Image, opts RenderOptions) ([]byte, error) {
	opts = opts.withDefaults()
	src := frame.Bounds()
	w, h := src.Dx(), src.Dy()
	if w == 0 || h == 0 {
		return nil, ErrNotReady
	}
	if opts.MaxWidth > 0 && w > opts.MaxWidth {
		h = h * opts.MaxWidth / w
		w = opts.MaxWidth
		if h == 0 {
			h = 1
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), frame, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode still: %w", err)
	}
	return buf.Bytes(), nil
}
