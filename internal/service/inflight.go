package service

import (
	"sync"

	"viaje-seguro-partner/internal/domain"
)

// inFlight rejects a second submission of the same action on the same
// booking while the first one is still running.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{keys: make(map[string]struct{})}
}

func (f *inFlight) acquire(action, bookingID string) (func(), error) {
	key := action + "/" + bookingID

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.keys[key]; busy {
		return nil, domain.ErrActionInFlight
	}
	f.keys[key] = struct{}{}

	return func() {
		f.mu.Lock()
		delete(f.keys, key)
		f.mu.Unlock()
	}, nil
}
