package domain

import (
	"errors"
	"fmt"
)

// Source errors. ErrDecodeFailed and ErrUnsupportedFormat are client faults.
var (
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrSourceUnreadable  = errors.New("source image unreadable")
	ErrInvalidOptions    = errors.New("invalid processing options")
)

// Upload errors.
var (
	ErrUploadMissing  = errors.New("no uploaded image")
	ErrUploadTooLarge = errors.New("uploaded image too large")
)

// Pipeline errors.
var (
	ErrInvalidConfig = errors.New("invalid processing config")
	ErrCacheMiss     = errors.New("manifest cache miss")
	ErrUpscale       = errors.New("target width exceeds source width")
)

// ProcessingError is returned when an image cannot be processed at all.
type ProcessingError struct {
	Op   string
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process image %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// IsClientFault reports whether err was caused by the submitted input rather
// than by the server.
func IsClientFault(err error) bool {
	return errors.Is(err, ErrDecodeFailed) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInvalidOptions) ||
		errors.Is(err, ErrUploadMissing) ||
		errors.Is(err, ErrUploadTooLarge)
}
