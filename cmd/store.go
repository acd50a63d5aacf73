package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ppe-vision/internal/config"
	"github.com/sells-group/ppe-vision/internal/store"
)

// storage is what every driver provides: the key-value boundary plus the
// event log.
type storage interface {
	store.Store
	store.EventRecorder
}

func initStore(ctx context.Context) (storage, error) {
	var (
		st  storage
		err error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "ppe-vision.db"
		}
		st, err = store.NewSQLite(dsn)
	case config.DriverPostgres:
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case config.DriverFile:
		st = store.NewFile(cfg.Store.Dir)
	case config.DriverMemory:
		st = store.NewMemory()
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// openStore is initStore for commands that keep working without
// persistence. A store that cannot be opened is replaced by one that fails
// every call, so history and preferences fall back to memory.
func openStore(ctx context.Context) storage {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("store: unavailable, keeping state in memory",
			zap.String("driver", cfg.Store.Driver),
			zap.Error(err),
		)
		return store.NewUnavailable(err)
	}
	return st
}
