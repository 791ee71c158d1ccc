package camera

import (
	"context"
	"image"
	"image/color"
	"sync"

	"viaje-seguro-partner/internal/domain"
)

type StubOutcome int

const (
	StubGrant StubOutcome = iota
	StubDeny
	StubUnavailable
)

// StubProvider simulates a device camera. It counts granted opens and stops so
// callers can check that every stream was released.
type StubProvider struct {
	mu      sync.Mutex
	outcome StubOutcome
	frame   image.Image
	noFrame bool
	opens   int
	stops   int
	denials int
}

// NewStubProvider returns a stub that always shows a small solid frame.
func NewStubProvider(outcome StubOutcome) *StubProvider {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	return &StubProvider{outcome: outcome, frame: img}
}

// WithoutFrames makes granted streams report ErrNotReady.
func (p *StubProvider) WithoutFrames() *StubProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noFrame = true
	return p
}

func (p *StubProvider) SetOutcome(o StubOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcome = o
}

func (p *StubProvider) Open(ctx context.Context, c Constraints) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.outcome {
	case StubDeny:
		p.denials++
		return nil, &domain.CameraAccessError{Reason: "permission denied"}
	case StubUnavailable:
		p.denials++
		return nil, &domain.CameraAccessError{Reason: "no camera device"}
	}
	p.opens++
	return &stubStream{provider: p}, nil
}

func (p *StubProvider) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func (p *StubProvider) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *StubProvider) Denials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.denials
}

// Active is the number of streams opened and not yet stopped.
func (p *StubProvider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens - p.stops
}

type stubStream struct {
	provider *StubProvider
	stopped  bool
}

func (s *stubStream) Frame() (image.Image, error) {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if s.provider.noFrame {
		return nil, ErrNotReady
	}
	return s.provider.frame, nil
}

func (s *stubStream) Stop() {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.provider.stops++
}
