// Package main runs the standalone REST API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/api"
	"github.com/netzhuffle/tcgp-tracker/internal/config"
	"github.com/netzhuffle/tcgp-tracker/internal/storage"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/collection"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/probability"
	"github.com/netzhuffle/tcgp-tracker/internal/watcher"
)

var (
	addr       = flag.String("addr", "", "Listen address (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
	sourcePath = flag.String("source", "", "Catalog source file (overrides config)")
	watch      = flag.Bool("watch", false, "Re-synchronize when the source file changes")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *sourcePath != "" {
		cfg.Catalog.SourcePath = *sourcePath
	}
	if *watch {
		cfg.Catalog.Watch = true
	}

	var logger *zap.Logger
	if cfg.App.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Fatal("failed to get home directory", zap.Error(err))
		}
		cfg.Database.Path = filepath.Join(home, ".tcgp-tracker", "collection.db")
	}

	dbConfig := storage.DefaultConfig(cfg.Database.Path)
	dbConfig.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()

	cache := idcache.New()
	sets := repository.NewSetRepository(db.Conn(), cache)
	boosters := repository.NewBoosterRepository(db.Conn(), cache)
	cards := repository.NewCardRepository(db.Conn())
	ownership := repository.NewOwnershipRepository(db.Conn())

	prob := probability.NewService(cards, logger)
	coll := collection.NewService(sets, boosters, cards, ownership, cache, prob, logger)
	synchronizer := catalog.NewSynchronizer(sets, boosters, cards, cache, logger)

	server := api.NewServer(api.Config{
		Addr:       cfg.API.Addr,
		SourcePath: cfg.Catalog.SourcePath,
		RateLimit:  cfg.API.RateLimit,
		RateBurst:  cfg.API.RateBurst,
	}, coll, sets, synchronizer, logger)
	server.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Catalog.Watch && cfg.Catalog.SourcePath != "" {
		debounce, err := cfg.WatchDebounce()
		if err != nil {
			logger.Fatal("invalid watch debounce", zap.Error(err))
		}
		w := watcher.New(cfg.Catalog.SourcePath, debounce, synchronizer, logger)
		go func() {
			if err := w.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("catalog watcher stopped", zap.Error(err))
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
