package domain

import (
	"context"
	"image"
	"io"
	"time"
)

//go:generate mockgen -source=port.go -destination=../../mocks/mock_ports.go -package=mocks

// ImageCodec decodes, resizes and encodes images.
type ImageCodec interface {
	// Probe reads dimensions and encoded format without decoding pixels.
	Probe(data []byte) (Metadata, error)
	// ProbeFile probes an encoded file on disk and returns its byte size.
	ProbeFile(path string) (Metadata, int64, error)
	Decode(data []byte) (image.Image, error)
	// Resize scales img to width, keeping the aspect ratio.
	Resize(img image.Image, width int) image.Image
	Encode(w io.Writer, img image.Image, format Format, quality int) error
}

// PlaceholderEncoder turns an image into a compact blur placeholder string.
type PlaceholderEncoder interface {
	Encode(ctx context.Context, img image.Image) (string, error)
}

// ManifestStore persists processing manifests by cache key.
type ManifestStore interface {
	// Get returns ErrCacheMiss when no usable entry exists.
	Get(ctx context.Context, key string) (*ProcessingResult, error)
	Save(ctx context.Context, key string, result *ProcessingResult) error
	// Sweep deletes entries older than maxAge. Per-entry failures are
	// counted in the report and do not stop the sweep.
	Sweep(ctx context.Context, maxAge time.Duration) (SweepReport, error)
}

// VariantMirror copies freshly written variants to secondary storage.
type VariantMirror interface {
	Mirror(ctx context.Context, variant Variant, localPath string) error
}
