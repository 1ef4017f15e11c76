// Command seed loads the sample catalog into the configured MongoDB when
// its beers collection is empty.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/brewrank/internal/adapters/repository"
	"github.com/okian/brewrank/internal/config"
	"github.com/okian/brewrank/internal/seed"
	"github.com/okian/brewrank/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("seed")

	if cfg.StoreBackend != config.BackendMongo {
		log.Warn(ctx, "store_backend is not mongo; the memory store seeds itself on start",
			logger.String("store_backend", cfg.StoreBackend))
		return
	}

	db, err := repository.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout())
	if err != nil {
		log.Error(ctx, "connect mongo", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Close(context.Background()) }()

	catalog, err := repository.NewMongoCatalog(db)
	if err != nil {
		log.Error(ctx, "open catalog", logger.Error(err))
		os.Exit(1)
	}
	if err := catalog.EnsureIndexes(ctx); err != nil {
		log.Error(ctx, "ensure indexes", logger.Error(err))
		os.Exit(1)
	}

	res, err := seed.Run(ctx, catalog, seed.SampleBeers())
	if err != nil {
		log.Error(ctx, "seed catalog", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "catalog seeded",
		logger.Int("existing", res.Existing),
		logger.Int("inserted", res.Inserted),
		logger.Bool("skipped", res.Skipped),
	)
}
