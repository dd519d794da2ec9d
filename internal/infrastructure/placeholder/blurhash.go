package placeholder

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/buckket/go-blurhash"
	"github.com/disintegration/imaging"
)

const (
	// Footprint is the edge length the source is reduced to before encoding.
	Footprint   = 32
	XComponents = 4
	YComponents = 3
)

// BlurhashEncoder produces BlurHash placeholders.
type BlurhashEncoder struct {
	footprint   int
	xComponents int
	yComponents int
}

// NewBlurhashEncoder creates an encoder with a 32x32 footprint and a 4x3
// component grid.
func NewBlurhashEncoder() *BlurhashEncoder {
	return &BlurhashEncoder{
		footprint:   Footprint,
		xComponents: XComponents,
		yComponents: YComponents,
	}
}

// Encode downsamples img and encodes it. Panics inside the encoder are
// returned as errors.
func (e *BlurhashEncoder) Encode(_ context.Context, img image.Image) (hash string, err error) {
	if img == nil {
		return "", errors.New("blurhash: nil image")
	}

	defer func() {
		if r := recover(); r != nil {
			hash, err = "", fmt.Errorf("blurhash: encoder panic: %v", r)
		}
	}()

	// imaging always returns NRGBA, so the alpha channel is present.
	small := imaging.Resize(img, e.footprint, e.footprint, imaging.Box)

	hash, err = blurhash.Encode(e.xComponents, e.yComponents, small)
	if err != nil {
		return "", fmt.Errorf("blurhash: %w", err)
	}
	return hash, nil
}
