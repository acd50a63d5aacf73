package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ppe-vision/internal/model"
)

const eventsFile = "events.jsonl"

// FileStore keeps one file per key under a directory. Writes go to a temp
// file that is renamed over the target, so readers see the old or the new
// value, never a mix.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a FileStore rooted at dir.
func NewFile(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Migrate(_ context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "file: create dir %s", s.dir)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "file: read %s", key)
	}
	return b, nil
}

func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+url.PathEscape(key)+"-*")
	if err != nil {
		return eris.Wrapf(err, "file: create temp for %s", key)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "file: write %s", key)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "file: sync %s", key)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "file: close %s", key)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), s.path(key)), "file: rename %s", key)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "file: delete %s", key)
	}
	return nil
}

// RecordEvents appends events as JSON lines.
func (s *FileStore) RecordEvents(_ context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, eventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "file: open events")
	}
	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			f.Close() //nolint:errcheck
			return eris.Wrapf(err, "file: append event %s", e.ID)
		}
	}
	return eris.Wrap(f.Close(), "file: close events")
}

func (s *FileStore) ListEvents(_ context.Context, limit int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(filepath.Join(s.dir, eventsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "file: open events")
	}
	defer f.Close() //nolint:errcheck

	var all []model.Event
	dec := json.NewDecoder(f)
	for dec.More() {
		var e model.Event
		if err := dec.Decode(&e); err != nil {
			return nil, eris.Wrap(err, "file: decode event")
		}
		all = append(all, e)
	}
	return newestEvents(all, limit), nil
}

// newestEvents orders events newest first and applies the limit.
func newestEvents(all []model.Event, limit int) []model.Event {
	slices.SortStableFunc(all, func(a, b model.Event) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if n := eventLimit(limit); len(all) > n {
		all = all[:n]
	}
	return all
}
