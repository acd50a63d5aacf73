package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	st := NewFile(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// stores returns every in-process driver under a common name for table tests.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newTestSQLiteStore(t),
		"file":   newTestFileStore(t),
		"memory": NewMemory(),
	}
}

func TestStores_KVContract(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			v, err := st.Get(ctx, "ppeHistory")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, st.Put(ctx, "ppeHistory", []byte(`[{"id":"a"}]`)))
			require.NoError(t, st.Put(ctx, "ppeHistory", []byte(`[]`)))
			v, err = st.Get(ctx, "ppeHistory")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(v))

			require.NoError(t, st.Delete(ctx, "ppeHistory"))
			require.NoError(t, st.Delete(ctx, "ppeHistory"))
			v, err = st.Get(ctx, "ppeHistory")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestStores_EventContract(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec, ok := st.(EventRecorder)
			require.True(t, ok)
			ctx := context.Background()

			events, err := rec.ListEvents(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, events)

			require.NoError(t, rec.RecordEvents(ctx, testEvents(base)))
			events, err = rec.ListEvents(ctx, 2)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, "e3", events[0].ID)
			assert.Equal(t, "e2", events[1].ID)
		})
	}
}

func TestFileStore_KeyIsEscaped(t *testing.T) {
	st := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "../escape", []byte("x")))
	_, err := os.Stat(filepath.Join(st.dir, "..%2Fescape.json"))
	assert.NoError(t, err)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	st := newTestFileStore(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, st.Put(ctx, "darkMode", []byte("true")))
	}
	entries, err := os.ReadDir(st.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "darkMode.json", entries[0].Name())
}

func TestFileStore_PutWithoutDir(t *testing.T) {
	st := NewFile(filepath.Join(t.TempDir(), "never-created"))
	err := st.Put(context.Background(), "darkMode", []byte("true"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file: create temp for darkMode")
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, st.Put(ctx, "k", in))
	in[0] = 'z'

	out, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _ := st.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
