package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"image-pipeline/internal/adapter/handler"
	"image-pipeline/internal/di"
	"image-pipeline/job"
	"image-pipeline/middleware"
	"image-pipeline/utils/logger"
	"image-pipeline/utils/otel"
)

func newServeCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Long: `Run the HTTP service: POST /api/v1/images accepts multipart uploads,
processed variants are served under the URL prefix, and expired manifests are
swept in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cc.runServe(ctx)
		},
	}
}

func (cc *cliContext) runServe(ctx context.Context) error {
	cfg := cc.cfg

	otelCfg := otel.ConfigFromEnv()
	if cc.build.Version != "" {
		otelCfg.ServiceVersion = cc.build.Version
	}
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		cc.logger.ErrorContext(ctx, "failed to initialize OpenTelemetry", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	log := logger.Init(cfg.Logging.Level, otelCfg.Enabled)

	components, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize components: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("failed to close components", "error", err)
		}
	}()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimit.RequestsPerMinute), cfg.RateLimit.Burst)
		defer limiter.Stop()
	}

	processingCfg := components.Processor.Config()
	e := handler.NewServer(handler.ServerDeps{
		Processor: components.Processor,
		Config:    processingCfg,
		Upload: handler.UploadConfig{
			Dir:      processingCfg.UploadDir,
			Field:    cfg.Images.UploadField,
			MaxBytes: cfg.Images.MaxUploadBytes,
		},
		BodyLimit:   cfg.Server.BodyLimit,
		RateLimiter: limiter,
		OTelEnabled: otelCfg.Enabled,
		ServiceName: otelCfg.ServiceName,
		Logger:      log,
	})

	scheduler := job.NewJobScheduler(log)
	scheduler.Add(job.Job{
		Name:     "cache_cleanup",
		Interval: cfg.Cache.CleanupInterval,
		Timeout:  cfg.Cache.CleanupTimeout,
		Fn:       job.CacheCleanupJob(components.Processor, cfg.Cache.MaxAge),
	})

	address := ":" + cfg.Server.Port
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "starting image-pipeline server",
			"address", address,
			"version", cc.build.Version,
			"cache_backend", cfg.Cache.Backend)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()

		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := e.Shutdown(shutdownCtx)
		scheduler.Shutdown()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server exited properly")
	return nil
}
