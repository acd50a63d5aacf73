package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ppe-vision/internal/model"
)

// UnavailableStore stands in for a store that could not be opened. Every
// data call fails with ErrStorageUnavailable so callers degrade to memory.
type UnavailableStore struct {
	cause error
}

// NewUnavailable returns a store that reports cause on every data call.
func NewUnavailable(cause error) *UnavailableStore {
	return &UnavailableStore{cause: cause}
}

func (s *UnavailableStore) err() error {
	return eris.Wrapf(ErrStorageUnavailable, "store: %v", s.cause)
}

func (s *UnavailableStore) Migrate(_ context.Context) error { return nil }
func (s *UnavailableStore) Close() error                    { return nil }

func (s *UnavailableStore) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, s.err()
}

func (s *UnavailableStore) Put(_ context.Context, _ string, _ []byte) error {
	return s.err()
}

func (s *UnavailableStore) Delete(_ context.Context, _ string) error {
	return s.err()
}

func (s *UnavailableStore) RecordEvents(_ context.Context, _ []model.Event) error {
	return s.err()
}

func (s *UnavailableStore) ListEvents(_ context.Context, _ int) ([]model.Event, error) {
	return nil, s.err()
}
