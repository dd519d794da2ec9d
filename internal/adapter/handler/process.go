package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"

	"image-pipeline/internal/domain"
)

// OptionsFormField optionally carries a JSON object of processing options.
const OptionsFormField = "options"

// ImageProcessorUsecase is the slice of the processor the HTTP layer needs.
type ImageProcessorUsecase interface {
	ProcessImage(ctx context.Context, inputPath string, opts domain.Options) (*domain.ProcessingResult, error)
}

// ProcessImageMiddleware runs the saved upload through the processor and
// stores the manifest under ManifestContextKey. With deleteOriginal the
// upload is removed whether or not processing succeeds.
func ProcessImageMiddleware(processor ImageProcessorUsecase, deleteOriginal bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path, ok := c.Get(UploadPathContextKey).(string)
			if !ok || path == "" {
				return fmt.Errorf("%w: no saved upload", domain.ErrUploadMissing)
			}
			if deleteOriginal {
				defer removeUpload(c, path)
			}

			opts, err := requestOptions(c)
			if err != nil {
				return err
			}

			result, err := processor.ProcessImage(c.Request().Context(), path, opts)
			if err != nil {
				return err
			}

			c.Set(ManifestContextKey, result)
			return next(c)
		}
	}
}

func requestOptions(c echo.Context) (domain.Options, error) {
	raw := c.FormValue(OptionsFormField)
	if raw == "" {
		return nil, nil
	}
	var opts domain.Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOptions, err)
	}
	return opts, nil
}
