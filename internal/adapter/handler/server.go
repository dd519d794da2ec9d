package handler

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"image-pipeline/internal/domain"
	"image-pipeline/middleware"
	"image-pipeline/utils/logger"
)

// ServerDeps collects what NewServer wires into the router.
type ServerDeps struct {
	Processor   ImageProcessorUsecase
	Config      domain.ProcessingConfig
	Upload      UploadConfig
	BodyLimit   string
	RateLimiter *middleware.RateLimiter
	OTelEnabled bool
	ServiceName string
	Logger      *slog.Logger
}

// NewServer builds the echo instance serving uploads, processed variants,
// health and metrics.
func NewServer(deps ServerDeps) *echo.Echo {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	contextLogger := logger.NewContextLogger(log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())

	if deps.OTelEnabled {
		e.Use(otelecho.Middleware(deps.ServiceName))
		e.Use(middleware.OTelStatusMiddleware())
	}

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ctx := c.Request().Context()
			l := contextLogger.WithContext(ctx)
			if v.Error == nil {
				l.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				l.ErrorContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(echomw.Recover())
	if deps.BodyLimit != "" {
		e.Use(echomw.BodyLimit(deps.BodyLimit))
	}

	healthHandler := NewHealthHandler()
	e.GET("/health", healthHandler.Handle)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	upload := deps.Upload
	if upload.Dir == "" {
		upload.Dir = deps.Config.UploadDir
	}

	uploadChain := []echo.MiddlewareFunc{middleware.NoStore()}
	if deps.RateLimiter != nil {
		uploadChain = append(uploadChain, deps.RateLimiter.Middleware())
	}
	uploadChain = append(uploadChain,
		UploadSaver(upload),
		ProcessImageMiddleware(deps.Processor, deps.Config.DeleteOriginal),
	)

	imageHandler := NewImageHandler()
	e.POST("/api/v1/images", imageHandler.Upload, uploadChain...)

	prefix := strings.TrimRight(deps.Config.URLPrefix, "/")
	if prefix == "" {
		prefix = domain.DefaultURLPrefix
	}
	variants := e.Group(prefix, middleware.Immutable())
	variants.Static("/", deps.Config.ProcessedDir)

	return e
}
