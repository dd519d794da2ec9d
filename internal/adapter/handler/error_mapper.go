package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"image-pipeline/internal/domain"
	"image-pipeline/metrics"
	"image-pipeline/utils/logger"
)

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrUploadMissing):
		return echo.NewHTTPError(http.StatusBadRequest, "image upload is required")

	case errors.Is(err, domain.ErrUploadTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image upload is too large")

	case errors.Is(err, domain.ErrDecodeFailed),
		errors.Is(err, domain.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "file is not a supported image")

	case errors.Is(err, domain.ErrInvalidOptions):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid processing options")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// HTTPErrorHandler renders every error as {"error": message}. Domain errors
// go through mapDomainError; other echo.HTTPErrors keep their status.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if domain.IsClientFault(err) || !errors.As(err, &he) {
			he = mapDomainError(err)
		}

		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}

		ctx := c.Request().Context()
		attrs := []any{
			"request_id", logger.RequestIDFrom(ctx),
			"method", c.Request().Method,
			"path", c.Path(),
			"status", he.Code,
			"error", err,
		}
		if he.Code >= http.StatusInternalServerError {
			metrics.RecordError("http", http.StatusText(he.Code))
			log.ErrorContext(ctx, "request error", attrs...)
		} else {
			log.WarnContext(ctx, "request rejected", attrs...)
		}

		c.Response().Header().Set("Cache-Control", "no-store")
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, map[string]string{"error": msg})
		}
		if err != nil {
			log.ErrorContext(ctx, "failed to write error response", "error", err)
		}
	}
}
