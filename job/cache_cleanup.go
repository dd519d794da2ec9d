package job

import (
	"context"
	"time"

	"image-pipeline/internal/domain"
)

// CacheCleaner is implemented by the image processor.
type CacheCleaner interface {
	CleanupCache(ctx context.Context, maxAge time.Duration) (domain.SweepReport, error)
}

// CacheCleanupJob returns a job function that sweeps manifests older than maxAge.
func CacheCleanupJob(cleaner CacheCleaner, maxAge time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := cleaner.CleanupCache(ctx, maxAge)
		return err
	}
}
