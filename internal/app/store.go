package app

import (
	"context"
	"fmt"

	"github.com/vetoapp23/vetoapp/internal/platform/cache"
	"github.com/vetoapp23/vetoapp/internal/platform/db"
	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

// OpenStore builds the persistence collaborator selected by configuration.
// The returned closer releases driver resources; it may be nil.
func OpenStore(ctx context.Context, cfg *Config) (kv.Store, func(), error) {
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		return kv.NewMemory(), nil, nil
	case StoreDriverRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		store := kv.NewRedisWithClient(client)
		return store, func() { _ = store.Close() }, nil
	case StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		store, err := kv.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
}
