package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/brewrank/internal/adapters/auth"
	"github.com/okian/brewrank/internal/adapters/http/api"
	"github.com/okian/brewrank/internal/adapters/http/swagger"
	"github.com/okian/brewrank/internal/adapters/replay"
	"github.com/okian/brewrank/internal/adapters/repository"
	app "github.com/okian/brewrank/internal/app"
	"github.com/okian/brewrank/internal/config"
	"github.com/okian/brewrank/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// backends builds the service options for the configured store and replay
// guard. The returned cleanup closes every opened connection.
func backends(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	var (
		opts    []app.Option
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.StoreBackend == config.BackendMongo {
		db, err := repository.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout())
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect mongo: %w", err)
		}
		closers = append(closers, func() {
			if err := db.Close(context.Background()); err != nil {
				log.Warn(ctx, "mongo close failed", logger.Error(err))
			}
		})
		store, err := repository.NewMongoStore(db)
		if err != nil {
			return nil, cleanup, err
		}
		catalog, err := repository.NewMongoCatalog(db)
		if err != nil {
			return nil, cleanup, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, cleanup, err
		}
		if err := catalog.EnsureIndexes(ctx); err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, app.WithStore(store), app.WithCatalog(catalog))
		log.Info(ctx, "using mongo store", logger.String("database", cfg.MongoDatabase))
	}

	if cfg.GuardBackend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		guard, err := replay.NewRedisGuard(client, replay.WithTTL(2*cfg.SessionTTL()))
		if err != nil {
			_ = client.Close()
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := guard.Close(); err != nil {
				log.Warn(ctx, "redis close failed", logger.Error(err))
			}
		})
		if err := guard.Ping(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("connect redis: %w", err)
		}
		opts = append(opts, app.WithStepGuard(guard))
		log.Info(ctx, "using redis step guard", logger.String("addr", cfg.RedisAddr))
	}

	opts = append(opts,
		app.WithLogger(log),
		app.WithGuardSize(cfg.GuardSize),
		app.WithSessionSecret(cfg.SessionSecret),
		app.WithSessionTTL(cfg.SessionTTL()),
		app.WithMaxSearchLimit(cfg.MaxSearchLimit),
		app.WithSeedCatalog(cfg.SeedCatalog),
	)
	return opts, cleanup, nil
}

// newHandler registers the docs and business routes for svc.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) (http.Handler, error) {
	tokens, err := auth.NewVerifier(cfg.AuthSecret)
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, tokens, svc, cfg.MaxSearchLimit).Register(ctx, mux)
	return mux, nil
}
