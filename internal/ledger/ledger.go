// Package ledger keeps the bounded, newest-first history of completed runs
// and persists it through a store.Store.
package ledger

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ppe-vision/internal/model"
	"github.com/sells-group/ppe-vision/internal/resilience"
	"github.com/sells-group/ppe-vision/internal/store"
)

const (
	// HistoryKey is the storage key of the serialized history list.
	HistoryKey = "ppeHistory"

	// Capacity is the maximum number of retained runs.
	Capacity = 20
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetry overrides the retry policy used for storage calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(l *Ledger) { l.retry = cfg }
}

// Ledger holds at most Capacity runs, newest first. Storage problems never
// fail a mutation: the ledger keeps working in memory and reports
// store.ErrStorageUnavailable.
type Ledger struct {
	mu       sync.Mutex
	store    store.Store
	retry    resilience.RetryConfig
	entries  []model.RunResult
	degraded bool
}

// Open loads the persisted history. Malformed data yields an empty ledger;
// an unreachable store yields an empty ledger in in-memory mode.
func Open(ctx context.Context, st store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: st, retry: resilience.DefaultRetryConfig()}
	for _, o := range opts {
		o(l)
	}

	raw, err := resilience.DoVal(ctx, l.retryConfig("get"), func(ctx context.Context) ([]byte, error) {
		return st.Get(ctx, HistoryKey)
	})
	if err != nil {
		l.degraded = true
		zap.L().Warn("ledger: storage unavailable, history kept in memory", zap.Error(err))
		return l
	}
	if len(raw) == 0 {
		return l
	}

	var entries []model.RunResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		zap.L().Warn("ledger: discarding malformed history", zap.Error(err))
		return l
	}
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}
	l.entries = entries
	return l
}

func (l *Ledger) retryConfig(op string) resilience.RetryConfig {
	return loggedRetry(l.retry, op)
}

// loggedRetry installs the retry logger unless the caller set its own hook.
func loggedRetry(cfg resilience.RetryConfig, op string) resilience.RetryConfig {
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("ledger", op)
	}
	return cfg
}

// Degraded reports whether the ledger has fallen back to memory-only mode.
func (l *Ledger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Append records a run at the front of the history, drops the oldest entry
// past Capacity and persists the whole list in one write.
func (l *Ledger) Append(ctx context.Context, r model.RunResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]model.RunResult, 0, min(len(l.entries)+1, Capacity))
	next = append(next, cloneRun(r))
	for _, e := range l.entries {
		if len(next) == Capacity {
			break
		}
		next = append(next, e)
	}
	l.entries = next
	return l.persist(ctx)
}

// List returns the history newest first. The result is a copy.
func (l *Ledger) List() []model.RunResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.RunResult, len(l.entries))
	for i, e := range l.entries {
		out[i] = cloneRun(e)
	}
	return out
}

// Len returns the number of retained runs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the history and removes it from storage. Asking the user
// for confirmation is the caller's job.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if l.degraded {
		return nil
	}
	err := resilience.Do(ctx, l.retryConfig("delete"), func(ctx context.Context) error {
		return l.store.Delete(ctx, HistoryKey)
	})
	return l.degrade(err, "clear history")
}

// persist must be called with l.mu held.
func (l *Ledger) persist(ctx context.Context) error {
	if l.degraded {
		return nil
	}
	b, err := json.Marshal(l.entries)
	if err != nil {
		return eris.Wrap(err, "ledger: marshal history")
	}
	err = resilience.Do(ctx, l.retryConfig("put"), func(ctx context.Context) error {
		return l.store.Put(ctx, HistoryKey, b)
	})
	return l.degrade(err, "persist history")
}

// degrade switches to memory-only mode after a failed storage call.
func (l *Ledger) degrade(err error, action string) error {
	if err == nil {
		return nil
	}
	l.degraded = true
	zap.L().Warn("ledger: storage unavailable, continuing in memory",
		zap.String("action", action),
		zap.Error(err),
	)
	return eris.Wrapf(store.ErrStorageUnavailable, "ledger: %s: %v", action, err)
}

func cloneRun(r model.RunResult) model.RunResult {
	r.Detections = slices.Clone(r.Detections)
	return r
}
