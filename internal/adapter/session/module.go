package session

import (
	"context"

	"go.uber.org/fx"

	"github.com/polkiloo/quickcart/internal/config"
)

// Module wires the session cache; with no redis address configured the store
// runs in disabled mode.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) *Store {
		return New(cfg.RedisAddr, cfg.StatusCacheTTL)
	}),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, store *Store) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
}
