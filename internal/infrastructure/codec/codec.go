package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"image-pipeline/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	libjpeg "github.com/pixiv/go-libjpeg/jpeg"

	// Registers the WebP decoder with image.Decode / image.DecodeConfig.
	// imaging already registers jpeg, png, gif, bmp and tiff.
	_ "golang.org/x/image/webp"
)

const (
	// webpMethod is libwebp's slowest, best-compressing effort level.
	webpMethod = 6

	// maxPixels bounds decodes so a crafted header cannot exhaust memory.
	maxPixels = 100_000_000
)

// Codec implements domain.ImageCodec: imaging decodes, resizes and writes
// PNG, libjpeg (through go-libjpeg) writes progressive JPEG and libwebp
// (through go-webp) writes WebP.
type Codec struct {
	webpMethod int
	maxPixels  int
}

// Option configures a Codec.
type Option func(*Codec)

// WithWebPMethod overrides the WebP effort level (0 fastest, 6 smallest).
func WithWebPMethod(method int) Option {
	return func(c *Codec) {
		if method >= 0 && method <= 6 {
			c.webpMethod = method
		}
	}
}

// WithMaxPixels overrides the decode pixel budget.
func WithMaxPixels(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// NewCodec creates a Codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{webpMethod: webpMethod, maxPixels: maxPixels}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe reads the header of data.
func (c *Codec) Probe(data []byte) (domain.Metadata, error) {
	if len(data) == 0 {
		return domain.Metadata{}, fmt.Errorf("%w: empty image data", domain.ErrDecodeFailed)
	}
	return c.probe(bytes.NewReader(data))
}

// ProbeFile reads the header of the file at path and returns its size.
func (c *Codec) ProbeFile(path string) (domain.Metadata, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Metadata{}, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Metadata{}, 0, err
	}

	meta, err := c.probe(f)
	if err != nil {
		return domain.Metadata{}, 0, err
	}
	return meta, info.Size(), nil
}

func (c *Codec) probe(r io.Reader) (domain.Metadata, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("%w: %w", domain.ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.Metadata{}, fmt.Errorf("%w: invalid dimensions %dx%d", domain.ErrDecodeFailed, cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > c.maxPixels {
		return domain.Metadata{}, fmt.Errorf("%w: %dx%d exceeds pixel limit", domain.ErrDecodeFailed, cfg.Width, cfg.Height)
	}
	return domain.Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode decodes the full image.
func (c *Codec) Decode(data []byte) (image.Image, error) {
	if _, err := c.Probe(data); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecodeFailed, err)
	}
	return img, nil
}

// Resize scales img to width with Lanczos resampling, height following the
// aspect ratio. Images already at width are returned unchanged.
func (c *Codec) Resize(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() == width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Encode writes img in format.
func (c *Codec) Encode(w io.Writer, img image.Image, format domain.Format, quality int) error {
	switch format {
	case domain.FormatJPEG:
		return libjpeg.Encode(w, toYCbCr(img), &libjpeg.EncoderOptions{
			Quality:         quality,
			OptimizeCoding:  true,
			ProgressiveMode: true,
		})

	case domain.FormatPNG:
		// PNG is lossless; quality has no effect on the output.
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))

	case domain.FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("webp options: %w", err)
		}
		options.Method = c.webpMethod
		return webp.Encode(w, img, options)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// toYCbCr converts img to 4:2:0 YCbCr, the layout libjpeg encodes directly.
// Alpha is dropped the way image/jpeg drops it.
func toYCbCr(img image.Image) *image.YCbCr {
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return ycc
	}

	b := img.Bounds()
	out := image.NewYCbCr(b, image.YCbCrSubsampleRatio420)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			out.Y[out.YOffset(x, y)] = yy
			ci := out.COffset(x, y)
			out.Cb[ci] = cb
			out.Cr[ci] = cr
		}
	}
	return out
}
