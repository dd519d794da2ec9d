package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"image-pipeline/internal/domain"
	"image-pipeline/metrics"
	"image-pipeline/utils/fileutil"
	"image-pipeline/utils/logger"
)

// DefaultCacheMaxAge is the manifest age CleanupCache uses when given none.
const DefaultCacheMaxAge = 30 * 24 * time.Hour

const tracerName = "image-pipeline/usecase"

// ImageProcessor turns uploaded images into content-addressed variants and
// a manifest describing them.
type ImageProcessor struct {
	cfg         domain.ProcessingConfig
	codec       domain.ImageCodec
	placeholder domain.PlaceholderEncoder
	store       domain.ManifestStore
	mirror      domain.VariantMirror

	logger  *logger.ContextLogger
	perf    *logger.PerformanceLogger
	tracer  trace.Tracer
	flights singleflight.Group
	now     func() time.Time
}

// Option configures optional ImageProcessor collaborators.
type Option func(*ImageProcessor)

// WithMirror copies every newly created variant to secondary storage.
func WithMirror(m domain.VariantMirror) Option {
	return func(p *ImageProcessor) { p.mirror = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *ImageProcessor) {
		if l != nil {
			p.logger = logger.NewContextLogger(l)
			p.perf = logger.NewPerformanceLogger(l)
		}
	}
}

// WithClock overrides the time source used for processing durations.
func WithClock(now func() time.Time) Option {
	return func(p *ImageProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewImageProcessor merges cfg over the defaults, validates it and creates
// every directory the processor writes to.
func NewImageProcessor(
	cfg domain.ProcessingConfig,
	codec domain.ImageCodec,
	placeholder domain.PlaceholderEncoder,
	store domain.ManifestStore,
	opts ...Option,
) (*ImageProcessor, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, errors.New("image processor: codec is required")
	}
	if store == nil {
		return nil, errors.New("image processor: manifest store is required")
	}

	for _, dir := range cfg.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	p := &ImageProcessor{
		cfg:         cfg,
		codec:       codec,
		placeholder: placeholder,
		store:       store,
		logger:      logger.NewContextLogger(slog.Default()),
		perf:        logger.NewPerformanceLogger(slog.Default()),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *ImageProcessor) Config() domain.ProcessingConfig {
	return p.cfg
}

// ProcessImage produces the manifest for the image at inputPath. Reading or
// decoding the source is the only fatal failure. Individual variant and
// placeholder failures shrink the manifest instead.
func (p *ImageProcessor) ProcessImage(ctx context.Context, inputPath string, opts domain.Options) (*domain.ProcessingResult, error) {
	ctx = logger.WithOperation(ctx, "process_image")
	ctx, span := p.tracer.Start(ctx, "ImageProcessor.ProcessImage",
		trace.WithAttributes(attribute.String("image.path", inputPath)))
	defer span.End()

	start := p.now()
	timer := p.perf.StartTimer(ctx, "process_image")

	result, err := p.processImage(ctx, inputPath, opts, start)
	if err != nil {
		timer.EndWithError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordProcess(metrics.ResultError, p.now().Sub(start).Seconds())
		return nil, err
	}
	timer.End()

	outcome := metrics.ResultMiss
	if result.Cached {
		outcome = metrics.ResultHit
	}
	span.SetAttributes(
		attribute.String("image.content_hash", result.ContentHash),
		attribute.Bool("image.cache_hit", result.Cached),
		attribute.Int("image.variants", len(result.Variants)),
	)
	metrics.RecordProcess(outcome, p.now().Sub(start).Seconds())
	return result, nil
}

func (p *ImageProcessor) processImage(ctx context.Context, inputPath string, opts domain.Options, start time.Time) (*domain.ProcessingResult, error) {
	src, err := p.loadSource(inputPath)
	if err != nil {
		return nil, err
	}

	key, err := domain.CacheKey(src.ContentHash, opts)
	if err != nil {
		return nil, &domain.ProcessingError{Op: "build cache key", Path: inputPath, Err: err}
	}

	v, err, shared := p.flights.Do(key, func() (any, error) {
		// The flight runs to completion even if the caller that started it
		// goes away; spans and log fields are kept.
		work := context.WithoutCancel(ctx)
		if cached, ok := p.CheckCache(work, key); ok {
			cached.Cached = true
			return cached, nil
		}
		return p.processMiss(work, src, key, start)
	})
	if err != nil {
		return nil, err
	}

	result := v.(*domain.ProcessingResult)
	if shared {
		result = result.Clone()
	}
	return result, nil
}

// loadSource reads inputPath and probes its header.
func (p *ImageProcessor) loadSource(inputPath string) (*domain.SourceImage, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, &domain.ProcessingError{
			Op:   "read source",
			Path: inputPath,
			Err:  fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err),
		}
	}

	meta, err := p.codec.Probe(data)
	if err != nil {
		if !errors.Is(err, domain.ErrDecodeFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDecodeFailed, err)
		}
		return nil, &domain.ProcessingError{Op: "decode metadata", Path: inputPath, Err: err}
	}

	return &domain.SourceImage{
		Path:        inputPath,
		Data:        data,
		ContentHash: domain.ContentHash(data),
		Original: domain.OriginalInfo{
			Width:    meta.Width,
			Height:   meta.Height,
			Format:   meta.Format,
			ByteSize: int64(len(data)),
		},
	}, nil
}

func (p *ImageProcessor) processMiss(ctx context.Context, src *domain.SourceImage, key string, start time.Time) (*domain.ProcessingResult, error) {
	img, err := p.codec.Decode(src.Data)
	if err != nil {
		if !errors.Is(err, domain.ErrDecodeFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDecodeFailed, err)
		}
		return nil, &domain.ProcessingError{Op: "decode", Path: src.Path, Err: err}
	}
	src.Image = img

	blur := p.GenerateBlurhash(ctx, img)

	outcomes := p.createVariants(ctx, src)
	variants := make([]domain.Variant, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			variants = append(variants, *o.Variant)
		}
	}

	result := &domain.ProcessingResult{
		Original:        src.Original,
		BlurPlaceholder: blur,
		Variants:        variants,
		Srcset:          GenerateSrcset(variants),
		ContentHash:     src.ContentHash,
		CacheKey:        key,
	}
	elapsed := p.now().Sub(start)

	// The persisted manifest carries no timing; hits report zero.
	if err := p.SaveToCache(ctx, key, result.Clone()); err != nil {
		metrics.RecordError("save_manifest", "store")
		p.logger.WithContext(ctx).WarnContext(ctx, "failed to save manifest",
			"cache_key", key,
			"error", err)
	}

	result.ProcessingTimeMs = elapsed.Milliseconds()
	return result, nil
}

type cell struct {
	size   domain.SizeSpec
	format domain.Format
}

// createVariants runs every (size, format) cell on a bounded pool. Outcomes
// are returned in configuration order: sizes outer, formats inner.
func (p *ImageProcessor) createVariants(ctx context.Context, src *domain.SourceImage) []domain.VariantOutcome {
	cells := make([]cell, 0, len(p.cfg.Sizes)*len(p.cfg.Formats))
	for _, size := range p.cfg.Sizes {
		for _, format := range p.cfg.Formats {
			cells = append(cells, cell{size: size, format: format})
		}
	}

	resize := newResizeMemo(src.Image, p.codec)
	outcomes := make([]domain.VariantOutcome, len(cells))

	var g errgroup.Group
	g.SetLimit(p.cfg.VariantConcurrency)
	for i, c := range cells {
		g.Go(func() error {
			outcomes[i] = p.createVariant(ctx, src, c.format, c.size, resize.get)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// CreateVariant produces one (size, format) variant of src. An existing
// output file is reused without re-encoding.
func (p *ImageProcessor) CreateVariant(ctx context.Context, src *domain.SourceImage, format domain.Format, size domain.SizeSpec) domain.VariantOutcome {
	return p.createVariant(ctx, src, format, size, func(img image.Image, width int) image.Image {
		return p.codec.Resize(img, width)
	})
}

func (p *ImageProcessor) createVariant(
	ctx context.Context,
	src *domain.SourceImage,
	format domain.Format,
	size domain.SizeSpec,
	resize func(img image.Image, width int) image.Image,
) (outcome domain.VariantOutcome) {
	ctx, span := p.tracer.Start(ctx, "ImageProcessor.CreateVariant", trace.WithAttributes(
		attribute.String("variant.format", string(format)),
		attribute.String("variant.suffix", size.Suffix),
		attribute.Int("variant.width", size.Width),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Failed(format, size, fmt.Errorf("panic: %v", r))
		}
		p.observeOutcome(ctx, span, outcome)
	}()

	if size.Width > src.Original.Width {
		return domain.Skipped(format, size, domain.ErrUpscale)
	}

	outPath := p.cfg.VariantPath(format, src.ContentHash, size.Suffix)
	url := p.cfg.VariantURL(format, src.ContentHash, size.Suffix)

	if fileutil.Exists(outPath) {
		meta, byteSize, err := p.codec.ProbeFile(outPath)
		if err == nil {
			v := domain.Variant{
				URL:      url,
				Format:   format,
				Width:    meta.Width,
				Height:   meta.Height,
				ByteSize: byteSize,
				Suffix:   size.Suffix,
			}
			p.mirrorVariant(ctx, v, outPath)
			return domain.Reused(size, v)
		}
		p.logger.WithContext(ctx).WarnContext(ctx, "existing variant unreadable, re-encoding",
			"path", outPath,
			"error", err)
	}

	img, err := p.decoded(src)
	if err != nil {
		return domain.Failed(format, size, err)
	}
	if !size.IsOriginal() {
		img = resize(img, size.Width)
	}

	quality := p.cfg.Quality.For(format)
	if err := fileutil.WriteAtomic(outPath, 0o644, func(w io.Writer) error {
		return p.codec.Encode(w, img, format, quality)
	}); err != nil {
		return domain.Failed(format, size, fmt.Errorf("encode %s: %w", format, err))
	}

	meta, byteSize, err := p.codec.ProbeFile(outPath)
	if err != nil {
		return domain.Failed(format, size, fmt.Errorf("read back %s: %w", outPath, err))
	}

	v := domain.Variant{
		URL:      url,
		Format:   format,
		Width:    meta.Width,
		Height:   meta.Height,
		ByteSize: byteSize,
		Suffix:   size.Suffix,
	}

	p.mirrorVariant(ctx, v, outPath)
	return domain.Created(size, v)
}

// mirrorVariant copies the file at localPath to the mirror, if one is set.
// Reused files go through it too, so uploads that failed earlier are retried.
func (p *ImageProcessor) mirrorVariant(ctx context.Context, v domain.Variant, localPath string) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.Mirror(ctx, v, localPath); err != nil {
		metrics.RecordError("mirror_variant", "upload")
		p.logger.WithContext(ctx).WarnContext(ctx, "failed to mirror variant",
			"path", localPath,
			"error", err)
	}
}

// decoded returns the decoded source, decoding it on first use.
func (p *ImageProcessor) decoded(src *domain.SourceImage) (image.Image, error) {
	if src.Image != nil {
		return src.Image, nil
	}
	img, err := p.codec.Decode(src.Data)
	if err != nil {
		return nil, err
	}
	src.Image = img
	return img, nil
}

func (p *ImageProcessor) observeOutcome(ctx context.Context, span trace.Span, o domain.VariantOutcome) {
	var byteSize int64
	if o.Variant != nil {
		byteSize = o.Variant.ByteSize
	}
	metrics.RecordVariant(string(o.Format), o.Kind.String(), byteSize)
	span.SetAttributes(attribute.String("variant.outcome", o.Kind.String()))

	log := p.logger.WithContext(ctx)
	switch o.Kind {
	case domain.OutcomeSkipped:
		log.DebugContext(ctx, "variant skipped",
			"format", o.Format,
			"suffix", o.Size.Suffix,
			"reason", o.Err)
	case domain.OutcomeFailed:
		span.RecordError(o.Err)
		log.WarnContext(ctx, "variant failed",
			"format", o.Format,
			"suffix", o.Size.Suffix,
			"error", o.Err)
	}
}

// GenerateBlurhash returns the blur placeholder for img, or nil when it
// cannot be produced.
func (p *ImageProcessor) GenerateBlurhash(ctx context.Context, img image.Image) *string {
	if p.placeholder == nil || img == nil {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "ImageProcessor.GenerateBlurhash")
	defer span.End()

	hash, err := p.placeholder.Encode(ctx, img)
	if err != nil || hash == "" {
		if err == nil {
			err = errors.New("empty placeholder")
		}
		span.RecordError(err)
		metrics.RecordPlaceholderFailure()
		p.logger.WithContext(ctx).WarnContext(ctx, "blur placeholder generation failed", "error", err)
		return nil
	}
	return &hash
}

// CheckCache returns the manifest stored under key. Store errors other than
// a miss are logged and reported as a miss.
func (p *ImageProcessor) CheckCache(ctx context.Context, key string) (*domain.ProcessingResult, bool) {
	result, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			metrics.RecordError("check_cache", "store")
			p.logger.WithContext(ctx).WarnContext(ctx, "manifest lookup failed, treating as miss",
				"cache_key", key,
				"error", err)
		}
		return nil, false
	}
	return result, true
}

// SaveToCache persists result under key.
func (p *ImageProcessor) SaveToCache(ctx context.Context, key string, result *domain.ProcessingResult) error {
	result.ProcessingTimeMs = 0
	result.Cached = false
	return p.store.Save(ctx, key, result)
}

// CleanupCache deletes manifests older than maxAge, or DefaultCacheMaxAge
// when maxAge is not positive.
func (p *ImageProcessor) CleanupCache(ctx context.Context, maxAge time.Duration) (domain.SweepReport, error) {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	ctx = logger.WithOperation(ctx, "cleanup_cache")

	report, err := p.store.Sweep(ctx, maxAge)
	metrics.RecordSweep(report.Deleted, report.Failed)

	log := p.logger.WithContext(ctx)
	if err != nil {
		log.ErrorContext(ctx, "manifest cache cleanup failed",
			"max_age", maxAge.String(),
			"deleted", report.Deleted,
			"error", err)
		return report, fmt.Errorf("cleanup cache: %w", err)
	}
	log.InfoContext(ctx, "manifest cache cleanup completed",
		"max_age", maxAge.String(),
		"scanned", report.Scanned,
		"deleted", report.Deleted,
		"failed", report.Failed,
		"elapsed_ms", report.Elapsed.Milliseconds())
	return report, nil
}

// resizeMemo shares one resize per target width between formats.
type resizeMemo struct {
	src   image.Image
	codec domain.ImageCodec
	mu    sync.Mutex
	sized map[int]*resizeEntry
}

type resizeEntry struct {
	once sync.Once
	img  image.Image
}

func newResizeMemo(src image.Image, codec domain.ImageCodec) *resizeMemo {
	return &resizeMemo{src: src, codec: codec, sized: make(map[int]*resizeEntry)}
}

func (m *resizeMemo) get(_ image.Image, width int) image.Image {
	m.mu.Lock()
	e, ok := m.sized[width]
	if !ok {
		e = &resizeEntry{}
		m.sized[width] = e
	}
	m.mu.Unlock()

	e.once.Do(func() { e.img = m.codec.Resize(m.src, width) })
	return e.img
}
