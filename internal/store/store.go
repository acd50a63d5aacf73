// Package store persists small keyed documents (run history, preferences)
// and the PPE event log.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ppe-vision/internal/model"
)

// ErrStorageUnavailable marks a persistence failure. Callers degrade to
// in-memory operation instead of aborting.
var ErrStorageUnavailable = eris.New("storage unavailable")

// Store is a key-value document store. Put replaces the whole value
// atomically; a reader never observes a partial write.
type Store interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// EventRecorder is implemented by stores that keep the PPE event log.
type EventRecorder interface {
	RecordEvents(ctx context.Context, events []model.Event) error
	ListEvents(ctx context.Context, limit int) ([]model.Event, error)
}

// DefaultEventLimit caps ListEvents when the caller passes a non-positive limit.
const DefaultEventLimit = 50

func eventLimit(limit int) int {
	if limit <= 0 {
		return DefaultEventLimit
	}
	return limit
}
