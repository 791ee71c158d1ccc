package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	_ "golang.org/x/image/webp"

	"viaje-seguro-partner/internal/domain"
)

// FeedProvider is a camera whose surface is fed by frames the device pushes to
// the server. The device can also report that it was denied access or has no
// camera; that failure sticks for the lifetime of the feed.
type FeedProvider struct {
	mu      sync.Mutex
	latest  image.Image
	failure string
	active  *feedStream
}

func NewFeedProvider() *FeedProvider {
	return &FeedProvider{}
}

// PushFrame decodes one frame (JPEG, PNG, GIF or WebP) and shows it on the
// surface of the active stream.
func (f *FeedProvider) PushFrame(r io.Reader) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return domain.NewValidationError("frame", fmt.Sprintf("unsupported frame: %v", err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = img
	return nil
}

// ReportFailure records that the device could not provide a camera.
func (f *FeedProvider) ReportFailure(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reason == "" {
		reason = "unavailable"
	}
	f.failure = reason
	if f.active != nil {
		f.active.stopped = true
		f.active = nil
	}
}

func (f *FeedProvider) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.CameraAccessError{Reason: "request cancelled", Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failure != "" {
		return nil, &domain.CameraAccessError{Reason: f.failure}
	}
	// A new stream starts on a blank surface.
	f.latest = nil
	s := &feedStream{feed: f}
	f.active = s
	return s, nil
}

type feedStream struct {
	feed    *FeedProvider
	stopped bool
}

func (s *feedStream) Frame() (image.Image, error) {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if s.feed.latest == nil {
		return nil, ErrNotReady
	}
	return s.feed.latest, nil
}

func (s *feedStream) Stop() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.stopped = true
	if s.feed.active == s {
		s.feed.active = nil
		s.feed.latest = nil
	}
}
