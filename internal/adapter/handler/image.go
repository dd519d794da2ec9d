package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"image-pipeline/internal/domain"
)

// ImageHandler responds to processed uploads.
type ImageHandler struct{}

// NewImageHandler creates a new image handler.
func NewImageHandler() *ImageHandler {
	return &ImageHandler{}
}

// Upload returns the manifest left by ProcessImageMiddleware: 201 for a
// fresh result, 200 for a cache hit.
func (h *ImageHandler) Upload(c echo.Context) error {
	result, ok := c.Get(ManifestContextKey).(*domain.ProcessingResult)
	if !ok || result == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "image was not processed")
	}

	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}
