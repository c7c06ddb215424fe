package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	api "github.com/coupradise/catalog/internal/api/http"
	"github.com/coupradise/catalog/internal/cache"
	"github.com/coupradise/catalog/internal/config"
	"github.com/coupradise/catalog/internal/counters"
	"github.com/coupradise/catalog/internal/database/postgres"
	"github.com/coupradise/catalog/internal/invalidation"
	"github.com/coupradise/catalog/internal/service"
	pkgpostgres "github.com/coupradise/catalog/pkg/postgres"
)

// Run wires the catalog together and serves it until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	logger := httplog.NewLogger("coupradise-catalog", httplog.Options{
		JSON:    cfg.Env == config.EnvProd,
		Concise: cfg.Env != config.EnvProd,
		LogLevel: func() slog.Level {
			if cfg.Env == config.EnvDev {
				return slog.LevelDebug
			}
			return slog.LevelInfo
		}(),
	})

	cacheStore := cache.NewRedisStore(rdb)
	invalidator := invalidation.New(cacheStore, logger.Logger)

	offerRepo := postgres.NewOfferRepository(db)
	counterRepo := postgres.NewCounterRepository(db)
	storeRepo := postgres.NewStoreRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	subscriberRepo := postgres.NewSubscriberRepository(db)

	ttl := service.CacheTTL{
		Short:  cfg.Cache.ShortTTL,
		Medium: cfg.Cache.MediumTTL,
		Long:   cfg.Cache.LongTTL,
	}

	aggregator := counters.New(counterRepo, offerRepo, logger.Logger)

	offerSvc := service.NewOfferService(offerRepo, counterRepo, cacheStore, invalidator, ttl)
	catalogSvc := service.NewCatalogService(storeRepo, categoryRepo, subscriberRepo, cacheStore, invalidator, ttl)
	eventSvc := service.NewEventService(offerRepo, aggregator)

	r := api.NewRouter(logger, offerSvc, catalogSvc, eventSvc)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
