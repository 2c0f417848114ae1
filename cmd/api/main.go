package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/pubsub"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/remote"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	pruneInterval   = time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.ID(),
		"cart_storage": cfg.Cart.Driver(),
	})

	readiness := map[string]controllers.Pinger{}
	deps := storage.Deps{TTL: cfg.Cart.StorageTTL}

	if cfg.Cart.UsesSQL() {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(ctx, "error closing database", err)
			}
		}()
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
			requireResource(ctx, logg, "migrations", err)
		}
		deps.DB = dbClient.DB()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		deps.Redis = redisClient
		readiness["redis"] = redisClient
	}

	backend, err := storage.ForDriver(cfg.Cart.Driver(), deps)
	requireResource(ctx, logg, "cart storage", err)
	readiness["cart_storage"] = backend

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry, cfg.Cart.Driver())
	jobMetrics := metrics.NewJobMetrics(registry)

	sinks := notifications.Multi{
		notifications.ContextRecorder{},
		notifications.NewLogNotifier(logg),
	}
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		publisher := notifications.NewPublisher(pubsubClient.CartEventsPublisher(), logg)
		defer publisher.Wait()
		sinks = append(sinks, publisher)
		readiness["pubsub"] = pubsubClient
	}

	carts := cart.NewRegistry(cart.RegistryParams{
		KeyPrefix: cfg.Cart.StorageKey,
		Storage:   backend,
		Notifier:  sinks,
		Observer:  cartMetrics,
		Logger:    logg,
		IdleTTL:   cfg.Cart.SessionIdleTTL,
	})

	api, err := remote.NewClient(cfg.Catalog, logg)
	requireResource(ctx, logg, "remote api client", err)
	catalogClient, err := catalog.NewClient(api, cfg.Catalog.SearchLimit)
	requireResource(ctx, logg, "catalog client", err)
	ordersClient, err := orders.NewClient(api, cfg.Orders.Path)
	requireResource(ctx, logg, "orders client", err)
	submitter, err := orders.NewSubmitter(catalogClient, ordersClient, logg)
	requireResource(ctx, logg, "order submitter", err)

	routerDeps := routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Carts:     carts,
		Catalog:   catalogClient,
		Searcher:  catalog.NewSearcher(catalogClient, cfg.Catalog.SearchDebounce),
		Submitter: submitter,
		Gatherer:  registry,
		Readiness: readiness,
	}
	if redisClient != nil {
		routerDeps.RateLimiter = redisClient
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           routes.NewRouter(routerDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithField(gctx, "addr", server.Addr), "api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		carts.RunSweeper(gctx, cfg.Cart.SweepInterval, jobMetrics)
		return nil
	})
	g.Go(func() error {
		storage.RunPruner(gctx, backend, cfg.Cart.StorageTTL, pruneInterval, jobMetrics, logg)
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
