package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"image-pipeline/internal/domain"
	"image-pipeline/internal/infrastructure/cache"
	"image-pipeline/internal/infrastructure/codec"
	"image-pipeline/internal/infrastructure/placeholder"
	"image-pipeline/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) domain.ProcessingConfig {
	t.Helper()
	root := t.TempDir()
	cfg := domain.DefaultProcessingConfig()
	cfg.UploadDir = filepath.Join(root, "original")
	cfg.ProcessedDir = filepath.Join(root, "processed")
	cfg.CacheDir = filepath.Join(root, "cache")
	return cfg
}

func newTestProcessor(t *testing.T, cfg domain.ProcessingConfig, opts ...Option) *ImageProcessor {
	t.Helper()
	store, err := cache.NewFileManifestStore(cfg.CacheDir, discardLogger())
	require.NoError(t, err)

	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	p, err := NewImageProcessor(cfg, codec.NewCodec(codec.WithWebPMethod(0)), placeholder.NewBlurhashEncoder(), store, opts...)
	require.NoError(t, err)
	return p
}

func writeJPEG(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 96,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))

	path := filepath.Join(dir, "upload.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func variantsBySuffix(result *domain.ProcessingResult, format domain.Format) map[string]domain.Variant {
	out := make(map[string]domain.Variant)
	for _, v := range result.Variants {
		if v.Format == format {
			out[v.Suffix] = v
		}
	}
	return out
}

func TestNewImageProcessor(t *testing.T) {
	t.Run("creates every directory", func(t *testing.T) {
		cfg := testConfig(t)
		newTestProcessor(t, cfg)

		for _, dir := range []string{
			cfg.UploadDir,
			cfg.CacheDir,
			filepath.Join(cfg.ProcessedDir, "webp"),
			filepath.Join(cfg.ProcessedDir, "jpeg"),
		} {
			info, err := os.Stat(dir)
			require.NoError(t, err, dir)
			assert.True(t, info.IsDir())
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sizes = []domain.SizeSpec{{Width: 100, Suffix: "a"}, {Width: 200, Suffix: "a"}}
		store := mocks.NewMockManifestStore(gomock.NewController(t))

		_, err := NewImageProcessor(cfg, codec.NewCodec(), nil, store)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("requires a store", func(t *testing.T) {
		_, err := NewImageProcessor(testConfig(t), codec.NewCodec(), nil, nil)
		assert.Error(t, err)
	})
}

func TestProcessImage_DefaultConfig(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 2000, 1500)

	result, err := p.ProcessImage(context.Background(), input, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.OriginalInfo{Width: 2000, Height: 1500, Format: "jpeg", ByteSize: result.Original.ByteSize}, result.Original)
	assert.Positive(t, result.Original.ByteSize)
	assert.Len(t, result.ContentHash, 64)
	assert.False(t, result.Cached)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))

	require.Len(t, result.Variants, 10)
	for _, format := range []domain.Format{domain.FormatWebP, domain.FormatJPEG} {
		bySuffix := variantsBySuffix(result, format)
		require.Len(t, bySuffix, 5, format)

		assert.Equal(t, 320, bySuffix["sm"].Width)
		assert.Equal(t, 240, bySuffix["sm"].Height)
		assert.Equal(t, 768, bySuffix["md"].Width)
		assert.Equal(t, 1024, bySuffix["lg"].Width)
		assert.Equal(t, 1920, bySuffix["xl"].Width)
		assert.Equal(t, 2000, bySuffix["original"].Width)
		assert.Equal(t, 1500, bySuffix["original"].Height)

		for suffix, v := range bySuffix {
			name := result.ContentHash + "_" + suffix + "." + string(format)
			assert.Equal(t, "/images/"+string(format)+"/"+name, v.URL)

			info, err := os.Stat(filepath.Join(cfg.ProcessedDir, string(format), name))
			require.NoError(t, err)
			assert.Equal(t, info.Size(), v.ByteSize)
		}
	}

	webp := result.Srcset[domain.FormatWebP]
	entries := strings.Split(webp, ", ")
	require.Len(t, entries, 5)
	assert.True(t, strings.HasSuffix(entries[0], " 320w"))
	assert.True(t, strings.HasSuffix(entries[4], " 2000w"))
	assert.NotContains(t, result.Srcset, domain.FormatPNG)

	require.NotNil(t, result.BlurPlaceholder)
	assert.Len(t, *result.BlurPlaceholder, 28)
}

func TestProcessImage_CacheHit(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 400, 300)
	ctx := context.Background()

	first, err := p.ProcessImage(ctx, input, nil)
	require.NoError(t, err)

	second, err := p.ProcessImage(ctx, input, domain.Options{})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Zero(t, second.ProcessingTimeMs)
	assert.Equal(t, first.CacheKey, second.CacheKey)
	assert.Equal(t, first.Variants, second.Variants)
	assert.Equal(t, first.Srcset, second.Srcset)
	assert.Equal(t, first.BlurPlaceholder, second.BlurPlaceholder)
}

func TestProcessImage_NoUpscale(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 500, 400)

	result, err := p.ProcessImage(context.Background(), input, nil)
	require.NoError(t, err)

	require.Len(t, result.Variants, 4)
	for _, v := range result.Variants {
		assert.LessOrEqual(t, v.Width, 500)
		assert.Contains(t, []string{"sm", "original"}, v.Suffix)
	}
	assert.Equal(t, 2, strings.Count(result.Srcset[domain.FormatJPEG], "w"))
}

func TestProcessImage_OptionsChangeCacheKeyOnly(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 400, 300)
	ctx := context.Background()

	plain, err := p.ProcessImage(ctx, input, nil)
	require.NoError(t, err)

	tagged, err := p.ProcessImage(ctx, input, domain.Options{"crop": "square"})
	require.NoError(t, err)

	assert.False(t, tagged.Cached)
	assert.NotEqual(t, plain.CacheKey, tagged.CacheKey)
	assert.Equal(t, plain.ContentHash, tagged.ContentHash)
	assert.Equal(t, plain.Variants, tagged.Variants)
}

func TestProcessImage_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 400, 300)
	ctx := context.Background()

	first, err := p.ProcessImage(ctx, input, nil)
	require.NoError(t, err)

	// Dropping the manifest forces the variant pass to run again.
	require.NoError(t, os.RemoveAll(cfg.CacheDir))
	require.NoError(t, os.MkdirAll(cfg.CacheDir, 0o755))

	second, err := p.ProcessImage(ctx, input, nil)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, first.Variants, second.Variants)

	entries, err := os.ReadDir(filepath.Join(cfg.ProcessedDir, "webp"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestProcessImage_Concurrent(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	input := writeJPEG(t, cfg.UploadDir, 400, 300)

	const callers = 4
	results := make([]*domain.ProcessingResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.ProcessImage(context.Background(), input, nil)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Variants, results[i].Variants)
	}
}

func TestProcessImage_FatalErrors(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := p.ProcessImage(ctx, filepath.Join(cfg.UploadDir, "nope.jpg"), nil)
		assert.ErrorIs(t, err, domain.ErrSourceUnreadable)

		var perr *domain.ProcessingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "read source", perr.Op)
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(cfg.UploadDir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("plain text, not pixels"), 0o644))

		_, err := p.ProcessImage(ctx, path, nil)
		assert.ErrorIs(t, err, domain.ErrDecodeFailed)
		assert.True(t, domain.IsClientFault(err))
	})

	t.Run("truncated image", func(t *testing.T) {
		good := writeJPEG(t, t.TempDir(), 300, 200)
		data, err := os.ReadFile(good)
		require.NoError(t, err)

		path := filepath.Join(cfg.UploadDir, "truncated.jpg")
		require.NoError(t, os.WriteFile(path, data[:len(data)/3], 0o644))

		_, err = p.ProcessImage(ctx, path, nil)
		assert.ErrorIs(t, err, domain.ErrDecodeFailed)
	})
}

func TestProcessImage_PlaceholderFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sizes = []domain.SizeSpec{{Width: 100, Suffix: "thumb"}}

	ctrl := gomock.NewController(t)
	ph := mocks.NewMockPlaceholderEncoder(ctrl)
	ph.EXPECT().Encode(gomock.Any(), gomock.Any()).Return("", errors.New("boom"))

	store, err := cache.NewFileManifestStore(cfg.CacheDir, discardLogger())
	require.NoError(t, err)
	p, err := NewImageProcessor(cfg, codec.NewCodec(codec.WithWebPMethod(0)), ph, store, WithLogger(discardLogger()))
	require.NoError(t, err)

	result, err := p.ProcessImage(context.Background(), writeJPEG(t, cfg.UploadDir, 200, 100), nil)
	require.NoError(t, err)

	assert.Nil(t, result.BlurPlaceholder)
	assert.Len(t, result.Variants, 2)
}

type failingCodec struct {
	*codec.Codec
	fail domain.Format
}

func (c failingCodec) Encode(w io.Writer, img image.Image, format domain.Format, quality int) error {
	if format == c.fail {
		return errors.New("encoder unavailable")
	}
	return c.Codec.Encode(w, img, format, quality)
}

func TestProcessImage_VariantFailureIsIsolated(t *testing.T) {
	cfg := testConfig(t)
	store, err := cache.NewFileManifestStore(cfg.CacheDir, discardLogger())
	require.NoError(t, err)

	c := failingCodec{Codec: codec.NewCodec(codec.WithWebPMethod(0)), fail: domain.FormatWebP}
	p, err := NewImageProcessor(cfg, c, nil, store, WithLogger(discardLogger()))
	require.NoError(t, err)

	result, err := p.ProcessImage(context.Background(), writeJPEG(t, cfg.UploadDir, 400, 300), nil)
	require.NoError(t, err)

	require.Len(t, result.Variants, 2)
	for _, v := range result.Variants {
		assert.Equal(t, domain.FormatJPEG, v.Format)
	}
	assert.NotContains(t, result.Srcset, domain.FormatWebP)
	assert.Nil(t, result.BlurPlaceholder)

	entries, err := os.ReadDir(filepath.Join(cfg.ProcessedDir, "webp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "failed encodes leave no partial files")
}

func TestProcessImage_StoreErrorsDegrade(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sizes = []domain.SizeSpec{{Suffix: "original"}}
	cfg.Formats = []domain.Format{domain.FormatPNG}

	ctrl := gomock.NewController(t)
	store := mocks.NewMockManifestStore(ctrl)
	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, r *domain.ProcessingResult) error {
			assert.Zero(t, r.ProcessingTimeMs)
			assert.False(t, r.Cached)
			return errors.New("connection refused")
		})

	p, err := NewImageProcessor(cfg, codec.NewCodec(), nil, store, WithLogger(discardLogger()))
	require.NoError(t, err)

	result, err := p.ProcessImage(context.Background(), writeJPEG(t, cfg.UploadDir, 120, 80), nil)
	require.NoError(t, err)

	require.Len(t, result.Variants, 1)
	assert.Equal(t, domain.FormatPNG, result.Variants[0].Format)
	assert.Equal(t, 120, result.Variants[0].Width)
}

func TestProcessImage_Mirror(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sizes = []domain.SizeSpec{{Width: 100, Suffix: "thumb"}}
	cfg.Formats = []domain.Format{domain.FormatJPEG}

	ctrl := gomock.NewController(t)
	mirror := mocks.NewMockVariantMirror(ctrl)
	mirror.EXPECT().
		Mirror(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, v domain.Variant, localPath string) error {
			assert.Equal(t, "thumb", v.Suffix)
			assert.FileExists(t, localPath)
			return errors.New("bucket unavailable")
		})

	p := newTestProcessor(t, cfg, WithMirror(mirror))
	result, err := p.ProcessImage(context.Background(), writeJPEG(t, cfg.UploadDir, 200, 100), nil)
	require.NoError(t, err)
	assert.Len(t, result.Variants, 1)
}

func TestProcessImage_CanceledCallerDoesNotDegradeManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sizes = []domain.SizeSpec{{Width: 100, Suffix: "thumb"}}
	cfg.Formats = []domain.Format{domain.FormatJPEG}

	ctrl := gomock.NewController(t)
	mirror := mocks.NewMockVariantMirror(ctrl)
	mirror.EXPECT().
		Mirror(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.Variant, _ string) error {
			assert.NoError(t, ctx.Err(), "mirror runs on a live context")
			return nil
		})

	p := newTestProcessor(t, cfg, WithMirror(mirror))
	input := writeJPEG(t, cfg.UploadDir, 200, 100)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	first, err := p.ProcessImage(canceled, input, nil)
	require.NoError(t, err)
	require.NotNil(t, first.BlurPlaceholder)
	assert.Len(t, first.Variants, 1)

	second, err := p.ProcessImage(context.Background(), input, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.NotNil(t, second.BlurPlaceholder)
	assert.Equal(t, *first.BlurPlaceholder, *second.BlurPlaceholder)
}

func TestCreateVariant_MirrorsReusedFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Formats = []domain.Format{domain.FormatJPEG}

	ctrl := gomock.NewController(t)
	mirror := mocks.NewMockVariantMirror(ctrl)
	gomock.InOrder(
		mirror.EXPECT().Mirror(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("bucket unavailable")),
		mirror.EXPECT().Mirror(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, v domain.Variant, localPath string) error {
				assert.Equal(t, "half", v.Suffix)
				assert.Equal(t, 150, v.Width)
				assert.FileExists(t, localPath)
				return nil
			}),
	)

	p := newTestProcessor(t, cfg, WithMirror(mirror))
	ctx := context.Background()
	src, err := p.loadSource(writeJPEG(t, cfg.UploadDir, 300, 200))
	require.NoError(t, err)
	size := domain.SizeSpec{Width: 150, Suffix: "half"}

	created := p.CreateVariant(ctx, src, domain.FormatJPEG, size)
	require.Equal(t, domain.OutcomeCreated, created.Kind, "%v", created.Err)

	reused := p.CreateVariant(ctx, src, domain.FormatJPEG, size)
	require.Equal(t, domain.OutcomeReused, reused.Kind)
}

func TestCreateVariant(t *testing.T) {
	cfg := testConfig(t)
	cfg.Formats = []domain.Format{domain.FormatJPEG}
	p := newTestProcessor(t, cfg)
	ctx := context.Background()

	input := writeJPEG(t, cfg.UploadDir, 300, 200)
	src, err := p.loadSource(input)
	require.NoError(t, err)

	size := domain.SizeSpec{Width: 150, Suffix: "half"}

	created := p.CreateVariant(ctx, src, domain.FormatJPEG, size)
	require.Equal(t, domain.OutcomeCreated, created.Kind, "%v", created.Err)
	assert.Equal(t, 150, created.Variant.Width)
	assert.Equal(t, 100, created.Variant.Height)

	reused := p.CreateVariant(ctx, src, domain.FormatJPEG, size)
	require.Equal(t, domain.OutcomeReused, reused.Kind)
	assert.Equal(t, created.Variant, reused.Variant)

	skipped := p.CreateVariant(ctx, src, domain.FormatJPEG, domain.SizeSpec{Width: 301, Suffix: "big"})
	assert.Equal(t, domain.OutcomeSkipped, skipped.Kind)
	assert.ErrorIs(t, skipped.Err, domain.ErrUpscale)
	assert.NoFileExists(t, cfg.VariantPath(domain.FormatJPEG, src.ContentHash, "big"))

	t.Run("unreadable existing file is re-encoded", func(t *testing.T) {
		path := cfg.VariantPath(domain.FormatJPEG, src.ContentHash, "half")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

		out := p.CreateVariant(ctx, src, domain.FormatJPEG, size)
		require.Equal(t, domain.OutcomeCreated, out.Kind, "%v", out.Err)
		assert.Equal(t, 150, out.Variant.Width)
	})
}

func TestCreateVariants_Order(t *testing.T) {
	cfg := testConfig(t)
	cfg.Formats = []domain.Format{domain.FormatJPEG, domain.FormatPNG}
	cfg.Sizes = []domain.SizeSpec{
		{Width: 50, Suffix: "a"},
		{Width: 500, Suffix: "b"},
		{Suffix: "original"},
	}
	p := newTestProcessor(t, cfg)

	src, err := p.loadSource(writeJPEG(t, cfg.UploadDir, 100, 100))
	require.NoError(t, err)
	src.Image, err = p.codec.Decode(src.Data)
	require.NoError(t, err)

	outcomes := p.createVariants(context.Background(), src)
	require.Len(t, outcomes, 6)

	want := []struct {
		suffix string
		format domain.Format
		kind   domain.OutcomeKind
	}{
		{"a", domain.FormatJPEG, domain.OutcomeCreated},
		{"a", domain.FormatPNG, domain.OutcomeCreated},
		{"b", domain.FormatJPEG, domain.OutcomeSkipped},
		{"b", domain.FormatPNG, domain.OutcomeSkipped},
		{"original", domain.FormatJPEG, domain.OutcomeCreated},
		{"original", domain.FormatPNG, domain.OutcomeCreated},
	}
	for i, w := range want {
		assert.Equal(t, w.suffix, outcomes[i].Size.Suffix, "outcome %d", i)
		assert.Equal(t, w.format, outcomes[i].Format, "outcome %d", i)
		assert.Equal(t, w.kind, outcomes[i].Kind, "outcome %d", i)
	}
}

func TestGenerateBlurhash(t *testing.T) {
	p := newTestProcessor(t, testConfig(t))
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	hash := p.GenerateBlurhash(ctx, img)
	require.NotNil(t, hash)
	assert.Len(t, *hash, 28)

	assert.Nil(t, p.GenerateBlurhash(ctx, nil))
}

func TestCleanupCache(t *testing.T) {
	cfg := testConfig(t)
	p := newTestProcessor(t, cfg)
	ctx := context.Background()

	result := &domain.ProcessingResult{ContentHash: "abc", Variants: []domain.Variant{}}
	require.NoError(t, p.SaveToCache(ctx, "fresh", result.Clone()))
	require.NoError(t, p.SaveToCache(ctx, "month", result.Clone()))
	require.NoError(t, p.SaveToCache(ctx, "ancient", result.Clone()))

	age := func(key string, d time.Duration) {
		ts := time.Now().Add(-d)
		require.NoError(t, os.Chtimes(filepath.Join(cfg.CacheDir, key+".json"), ts, ts))
	}
	age("month", 29*24*time.Hour)
	age("ancient", 31*24*time.Hour)

	report, err := p.CleanupCache(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Deleted)

	_, ok := p.CheckCache(ctx, "ancient")
	assert.False(t, ok)
	_, ok = p.CheckCache(ctx, "month")
	assert.True(t, ok)

	report, err = p.CleanupCache(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)

	_, ok = p.CheckCache(ctx, "fresh")
	assert.True(t, ok)
}
