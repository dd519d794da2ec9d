package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"image-pipeline/internal/domain"
	"image-pipeline/utils/fileutil"
	"image-pipeline/utils/logger"
)

// Echo context keys shared by the upload chain.
const (
	UploadPathContextKey = "image_pipeline.upload_path"
	ManifestContextKey   = "image_pipeline.manifest"
)

// DefaultUploadField is the multipart field carrying the image.
const DefaultUploadField = "image"

// UploadConfig configures UploadSaver.
type UploadConfig struct {
	Dir      string
	Field    string
	MaxBytes int64
}

// UploadSaver stores the multipart file in cfg.Dir under a random name and
// records its path under UploadPathContextKey.
func UploadSaver(cfg UploadConfig) echo.MiddlewareFunc {
	if cfg.Field == "" {
		cfg.Field = DefaultUploadField
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fh, err := c.FormFile(cfg.Field)
			if err != nil {
				if isBodyTooLarge(err) {
					return fmt.Errorf("%w: %w", domain.ErrUploadTooLarge, err)
				}
				return fmt.Errorf("%w: field %q: %w", domain.ErrUploadMissing, cfg.Field, err)
			}
			if cfg.MaxBytes > 0 && fh.Size > cfg.MaxBytes {
				return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrUploadTooLarge, fh.Size, cfg.MaxBytes)
			}

			src, err := fh.Open()
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer src.Close()

			path := filepath.Join(cfg.Dir, uuid.NewString()+uploadExtension(fh.Filename))
			err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
				r := io.Reader(src)
				if cfg.MaxBytes > 0 {
					r = io.LimitReader(src, cfg.MaxBytes+1)
				}
				n, err := io.Copy(w, r)
				if err != nil {
					return err
				}
				if cfg.MaxBytes > 0 && n > cfg.MaxBytes {
					return domain.ErrUploadTooLarge
				}
				return nil
			})
			if err != nil {
				if errors.Is(err, domain.ErrUploadTooLarge) {
					return err
				}
				return fmt.Errorf("save upload: %w", err)
			}

			ctx := c.Request().Context()
			slog.InfoContext(ctx, "upload saved",
				"request_id", logger.RequestIDFrom(ctx),
				"path", path,
				"size", fh.Size)

			c.Set(UploadPathContextKey, path)
			return next(c)
		}
	}
}

// uploadExtension keeps a short alphanumeric extension from the client
// file name and drops anything else.
func uploadExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func isBodyTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return true
	}
	var he *echo.HTTPError
	return errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge
}

// removeUpload deletes an uploaded original, logging failures.
func removeUpload(c echo.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		ctx := c.Request().Context()
		slog.WarnContext(ctx, "failed to delete original upload",
			"request_id", logger.RequestIDFrom(ctx),
			"path", path,
			"error", err)
	}
}
