package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(openConfiguredCarts)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openConfiguredCarts connects to the cart storage named by the environment.
func openConfiguredCarts(ctx context.Context) (*cart.Registry, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	var closers []func() error
	closeAll := func() error {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		return errs
	}

	deps := storage.Deps{TTL: cfg.Cart.StorageTTL}
	if cfg.Cart.UsesSQL() {
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, client.Close)
		deps.DB = client.DB()
	}
	if cfg.Cart.Driver() == config.StorageDriverRedis {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, client.Close)
		deps.Redis = client
	}

	backend, err := storage.ForDriver(cfg.Cart.Driver(), deps)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	registry := cart.NewRegistry(cart.RegistryParams{
		KeyPrefix: cfg.Cart.StorageKey,
		Storage:   backend,
		Logger:    logg,
	})
	return registry, closeAll, nil
}
