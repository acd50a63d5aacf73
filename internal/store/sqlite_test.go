package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ppe-vision/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testEvents(base time.Time) []model.Event {
	return []model.Event{
		{ID: "e1", RunID: "r1", Type: model.EventPPEViolation, Severity: model.SeverityHigh, Label: "NO-Hardhat", Confidence: 0.9, Source: "a.jpg", CreatedAt: base},
		{ID: "e2", RunID: "r2", Type: model.EventNormal, Severity: model.SeverityLow, Label: "Person", Confidence: 0.7, Source: "b.jpg", CreatedAt: base.Add(time.Minute)},
		{ID: "e3", RunID: "r3", Type: model.EventNormal, Severity: model.SeverityLow, Source: "c.mp4", CreatedAt: base.Add(2 * time.Minute)},
	}
}

func TestSQLite_KV_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	v, err := st.Get(context.Background(), "ppeHistory")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLite_KV_PutGetOverwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "darkMode", []byte("true")))
	v, err := st.Get(ctx, "darkMode")
	require.NoError(t, err)
	assert.Equal(t, "true", string(v))

	require.NoError(t, st.Put(ctx, "darkMode", []byte("false")))
	v, err = st.Get(ctx, "darkMode")
	require.NoError(t, err)
	assert.Equal(t, "false", string(v))
}

func TestSQLite_KV_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "ppeHistory", []byte("[]")))
	require.NoError(t, st.Delete(ctx, "ppeHistory"))
	require.NoError(t, st.Delete(ctx, "ppeHistory"))

	v, err := st.Get(ctx, "ppeHistory")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Events_RecordAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.RecordEvents(ctx, testEvents(base)))
	require.NoError(t, st.RecordEvents(ctx, nil))

	events, err := st.ListEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e3", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)
	assert.Equal(t, model.EventNormal, events[1].Type)
	assert.Equal(t, model.SeverityLow, events[1].Severity)
	assert.Equal(t, "Person", events[1].Label)
	assert.True(t, base.Add(time.Minute).Equal(events[1].CreatedAt))

	all, err := st.ListEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, model.EventPPEViolation, all[2].Type)
}

func TestSQLite_Events_DuplicateID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, st.RecordEvents(ctx, testEvents(base)[:1]))
	err := st.RecordEvents(ctx, testEvents(base))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert event e1")

	// The failed batch is rolled back as a whole.
	all, err := st.ListEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	require.Error(t, err)
}
