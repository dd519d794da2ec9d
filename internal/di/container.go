package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"image-pipeline/config"
	"image-pipeline/internal/domain"
	"image-pipeline/internal/infrastructure/cache"
	"image-pipeline/internal/infrastructure/codec"
	"image-pipeline/internal/infrastructure/objectstore"
	"image-pipeline/internal/infrastructure/placeholder"
	"image-pipeline/internal/usecase"
)

type ApplicationComponents struct {
	Processor     *usecase.ImageProcessor
	ManifestStore domain.ManifestStore

	closers []func() error
}

// NewApplicationComponents builds the processor and its collaborators from cfg.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ApplicationComponents, error) {
	processingCfg, err := cfg.ToProcessingConfig()
	if err != nil {
		return nil, err
	}
	processingCfg = processingCfg.WithDefaults()

	components := &ApplicationComponents{}

	store, err := components.newManifestStore(ctx, cfg, processingCfg.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.LRUSize > 0 {
		store = cache.NewLRUManifestStore(store, cfg.Cache.LRUSize, cfg.Cache.LRUTTL)
	}
	components.ManifestStore = store

	opts := []usecase.Option{usecase.WithLogger(logger)}
	if cfg.Storage.S3.Enabled() {
		mirror, err := objectstore.NewS3Mirror(ctx, objectstore.S3MirrorConfig{
			Bucket:   cfg.Storage.S3.Bucket,
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
			Prefix:   cfg.Storage.S3.Prefix,
		})
		if err != nil {
			_ = components.Close()
			return nil, fmt.Errorf("create s3 mirror: %w", err)
		}
		opts = append(opts, usecase.WithMirror(mirror))
		logger.Info("variant mirror enabled", "bucket", cfg.Storage.S3.Bucket)
	}

	processor, err := usecase.NewImageProcessor(
		processingCfg,
		codec.NewCodec(),
		placeholder.NewBlurhashEncoder(),
		store,
		opts...,
	)
	if err != nil {
		_ = components.Close()
		return nil, err
	}
	components.Processor = processor

	return components, nil
}

func (c *ApplicationComponents) newManifestStore(ctx context.Context, cfg *config.Config, cacheDir string, logger *slog.Logger) (domain.ManifestStore, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		store, err := cache.NewRedisManifestStoreWithURL(cfg.Cache.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("create redis manifest store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		logger.Info("manifest store ready", "backend", config.BackendRedis)
		return store, nil
	default:
		store, err := cache.NewFileManifestStore(cacheDir, logger)
		if err != nil {
			return nil, fmt.Errorf("create file manifest store: %w", err)
		}
		logger.Info("manifest store ready", "backend", config.BackendFile, "dir", cacheDir)
		return store, nil
	}
}

// Close releases connections held by the components.
func (c *ApplicationComponents) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
