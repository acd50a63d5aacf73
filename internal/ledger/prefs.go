package ledger

import (
	"context"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ppe-vision/internal/resilience"
	"github.com/sells-group/ppe-vision/internal/store"
)

// DarkModeKey is the storage key of the dark-mode preference.
const DarkModeKey = "darkMode"

// Preferences persists user display preferences next to the history.
type Preferences struct {
	mu       sync.Mutex
	store    store.Store
	retry    resilience.RetryConfig
	darkMode bool
	degraded bool
}

// OpenPreferences loads stored preferences. Missing or unreadable values
// fall back to defaults.
func OpenPreferences(ctx context.Context, st store.Store, retry resilience.RetryConfig) *Preferences {
	p := &Preferences{store: st, retry: retry}

	raw, err := resilience.DoVal(ctx, loggedRetry(retry, "prefs get"), func(ctx context.Context) ([]byte, error) {
		return st.Get(ctx, DarkModeKey)
	})
	if err != nil {
		p.degraded = true
		zap.L().Warn("ledger: preferences unavailable, using defaults", zap.Error(err))
		return p
	}
	if len(raw) > 0 {
		v, err := strconv.ParseBool(string(raw))
		if err != nil {
			zap.L().Warn("ledger: ignoring malformed dark mode value", zap.ByteString("value", raw))
		}
		p.darkMode = v
	}
	return p
}

// DarkMode returns the current preference.
func (p *Preferences) DarkMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.darkMode
}

// SetDarkMode updates the preference. The in-memory value changes even when
// persisting fails.
func (p *Preferences) SetDarkMode(ctx context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.darkMode = on
	if p.degraded {
		return nil
	}
	err := resilience.Do(ctx, loggedRetry(p.retry, "prefs put"), func(ctx context.Context) error {
		return p.store.Put(ctx, DarkModeKey, []byte(strconv.FormatBool(on)))
	})
	if err != nil {
		p.degraded = true
		return eris.Wrapf(store.ErrStorageUnavailable, "ledger: persist dark mode: %v", err)
	}
	return nil
}

// Degraded reports whether preferences are memory-only.
func (p *Preferences) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}
