package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/ppe-vision/internal/resilience"
	"github.com/sells-group/ppe-vision/internal/store"
)

var quickRetry = resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}

func TestPreferences_DefaultOff(t *testing.T) {
	p := OpenPreferences(context.Background(), store.NewMemory(), quickRetry)
	assert.False(t, p.DarkMode())
	assert.False(t, p.Degraded())
}

func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	p := OpenPreferences(ctx, st, quickRetry)
	require.NoError(t, p.SetDarkMode(ctx, true))
	assert.True(t, p.DarkMode())

	raw, err := st.Get(ctx, DarkModeKey)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))
	assert.True(t, OpenPreferences(ctx, st, quickRetry).DarkMode())

	require.NoError(t, p.SetDarkMode(ctx, false))
	assert.False(t, OpenPreferences(ctx, st, quickRetry).DarkMode())
}

func TestPreferences_MalformedValue(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Put(ctx, DarkModeKey, []byte("maybe")))

	p := OpenPreferences(ctx, st, quickRetry)
	assert.False(t, p.DarkMode())
	assert.False(t, p.Degraded())
}

func TestPreferences_WriteFailureKeepsValue(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemory(), err: errDiskGone, putFails: 1}

	p := OpenPreferences(ctx, st, quickRetry)
	err := p.SetDarkMode(ctx, true)
	assert.True(t, eris.Is(err, store.ErrStorageUnavailable))
	assert.True(t, p.DarkMode())
	assert.True(t, p.Degraded())

	// Degraded preferences stop writing.
	require.NoError(t, p.SetDarkMode(ctx, false))
	assert.Equal(t, 1, st.puts)
}

func TestPreferences_ReadFailure(t *testing.T) {
	st := &flakyStore{MemoryStore: store.NewMemory(), err: errDiskGone, getFails: 1}

	p := OpenPreferences(context.Background(), st, quickRetry)
	assert.True(t, p.Degraded())
	assert.False(t, p.DarkMode())
}

func TestPreferences_RetriesAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	ctx := context.Background()
	locked := errors.New("database is locked")
	st := &flakyStore{MemoryStore: store.NewMemory(), err: locked, getFails: 1, putFails: 1}

	p := OpenPreferences(ctx, st, quickRetry)
	require.False(t, p.Degraded())
	require.NoError(t, p.SetDarkMode(ctx, true))

	retries := logs.FilterMessage("resilience: storage busy, retrying").All()
	require.Len(t, retries, 2)
	assert.Equal(t, "prefs get", retries[0].ContextMap()["operation"])
	assert.Equal(t, "prefs put", retries[1].ContextMap()["operation"])
	assert.Equal(t, "ledger", retries[1].ContextMap()["component"])
}
