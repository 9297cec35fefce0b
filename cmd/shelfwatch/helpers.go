package main

import (
	"context"
	"fmt"
	"log/slog"

	"shelfwatch/internal/config"
	"shelfwatch/internal/engine"
	"shelfwatch/internal/queue"
	"shelfwatch/internal/service"
	"shelfwatch/internal/storage"
)

// openStorage loads configuration, opens the SQLite store, and runs pending
// migrations. Every command goes through here.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, *config.Options, error) {
	opts, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := storage.NewSQLiteStorage(opts.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, opts, nil
}

// buildQueue creates the assessment queue: Redis normally, in-memory for
// dry runs.
func buildQueue(ctx context.Context, opts *config.Options, dryRun bool) (service.AssessmentQueue, func(), error) {
	if dryRun {
		mem := queue.NewMemoryQueue()
		return mem, func() {}, nil
	}

	rq, err := queue.NewRedisQueue(ctx, queue.RedisConfig{
		Addr:     opts.Redis.Addr,
		Password: opts.Redis.Password,
		DB:       opts.Redis.DB,
		Key:      opts.Redis.QueueKey,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if closeErr := rq.Close(); closeErr != nil {
			slog.Warn("Failed to close queue connection", "error", closeErr)
		}
	}

	return rq, cleanup, nil
}

// buildEngine wires the resolution engine from configuration.
func buildEngine(store service.Storage, q service.AssessmentQueue, opts *config.Options, dryRun bool) (*engine.Engine, error) {
	patterns, err := opts.CompileCodePatterns()
	if err != nil {
		return nil, err
	}

	return engine.NewWithConfig(store, q, engine.Config{
		CodePatterns: patterns,
		Cascade:      opts.CascadeOptions(),
		Bands: engine.Bands{
			ExistingFloor:       opts.Resolution.ExistingFloor,
			ConfidenceThreshold: opts.Resolution.ConfidenceThreshold,
		},
		TightPriceTolerance: opts.Resolution.TightPriceTolerance,
		ImagePriceTolerance: opts.Resolution.ImagePriceTolerance,
		Workers:             opts.Resolution.Workers,
		DryRun:              dryRun,
	}), nil
}
