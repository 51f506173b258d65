package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivanoskov/fintracker/internal/config"
	"github.com/ivanoskov/fintracker/internal/logger"
)

// Purger is implemented by stores that can drop expired snapshots in bulk.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Open builds the store selected by cfg.State.Driver. The returned close
// function releases its resources.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }
	ttl := cfg.State.TTL

	switch cfg.State.Driver {
	case config.StateDriverSupabase:
		s, err := NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table, ttl)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.StateDriverPostgres:
		if err := Migrate(cfg.Database.DSN()); err != nil {
			return nil, noop, err
		}
		db, err := Connect(ctx, cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		return NewPostgresStore(db, ttl), db.Close, nil
	case config.StateDriverMemory, "":
		return NewMemoryStore(ttl), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown state driver %q", cfg.State.Driver)
}

// RunSweeper purges expired snapshots every interval until ctx is done.
// Stores without Purge are left alone.
func RunSweeper(ctx context.Context, store Store, interval time.Duration) {
	p, ok := store.(Purger)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Warn(ctx, "state", "state.purge", logger.Err(err))
				continue
			}
			if n > 0 {
				logger.Debug(ctx, "state", "state.purge", slog.Int64("removed", n))
			}
		}
	}
}
