package artifacts

import (
	"errors"
	"sync/atomic"

	"FerryCast/internal/domain/models"
)

// Store is the readiness gate in front of the loaded artifacts. It is written
// once at startup and read lock-free by every request afterwards.
type Store struct {
	current atomic.Pointer[Artifacts]
}

func NewStore() *Store { return &Store{} }

// Set publishes a for readers. Only the first call succeeds.
func (s *Store) Set(a *Artifacts) error {
	if a == nil {
		return errors.New("artifacts: nil")
	}
	if !s.current.CompareAndSwap(nil, a) {
		return errors.New("artifacts: already loaded")
	}
	return nil
}

// Get returns the loaded artifacts or ErrArtifactsNotLoaded.
func (s *Store) Get() (*Artifacts, error) {
	a := s.current.Load()
	if a == nil {
		return nil, models.ErrArtifactsNotLoaded
	}
	return a, nil
}

// Ready reports whether predictions can be served.
func (s *Store) Ready() bool { return s.current.Load() != nil }
