package placeholder

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 90, A: 255})
		}
	}
	return img
}

func TestBlurhashEncoder_Encode(t *testing.T) {
	enc := NewBlurhashEncoder()

	hash, err := enc.Encode(context.Background(), gradient(400, 300))
	require.NoError(t, err)
	// size flag, max AC, 4 chars of DC, then 2 chars per AC component.
	assert.Len(t, hash, 6+2*(XComponents*YComponents-1))

	again, err := enc.Encode(context.Background(), gradient(400, 300))
	require.NoError(t, err)
	assert.Equal(t, hash, again, "encoding is deterministic")
}

func TestBlurhashEncoder_Errors(t *testing.T) {
	enc := NewBlurhashEncoder()

	_, err := enc.Encode(context.Background(), nil)
	assert.Error(t, err)

}

func TestBlurhashEncoder_IgnoresCancellation(t *testing.T) {
	enc := NewBlurhashEncoder()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hash, err := enc.Encode(ctx, gradient(10, 10))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}
